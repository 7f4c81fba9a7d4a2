package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/rmlstar/internal/compiler"
	"github.com/roach88/rmlstar/internal/ir"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Validation, scenario or materialization failure
	ExitCommandError = 2 // Unreadable rules, config, source or sink
)

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError attaches an exit code to err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the exit code carried by err, ExitFailure otherwise.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as text or JSON.
//
// Statements never go through the formatter; with the stdout sink the
// formatter writes to stderr so N-Triples output stays clean.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; falls back to Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error part of a CLIResponse. Code is either a CLI code
// (E001..E120) or a materialization code (REFERENCE, DATA_ACCESS, ...).
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// FailureDetails locates a materialization failure.
type FailureDetails struct {
	Rule    string `json:"rule,omitempty"`
	Elapsed string `json:"elapsed,omitempty"`
	Cause   string `json:"cause,omitempty"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format. Text output shows
// details only in verbose mode.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// MaterializeFailure reports a failed run under its materialization error
// code and returns that code. Errors outside the taxonomy (sink failures,
// cancellation) are reported as E001.
func (f *OutputFormatter) MaterializeFailure(err error) string {
	var me *ir.MaterializeError
	if !errors.As(err, &me) {
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
		return ErrCodeGeneric
	}

	details := FailureDetails{Rule: me.RuleID}
	if me.Elapsed > 0 {
		details.Elapsed = me.Elapsed.String()
	}
	if me.Err != nil {
		details.Cause = me.Err.Error()
	}
	_ = f.Error(string(me.Code), me.Message, details)
	if f.Format != "json" && me.RuleID != "" {
		fmt.Fprintf(f.Writer, "  in triples map %s\n", me.RuleID)
	}
	return string(me.Code)
}

// VerboseLog writes a diagnostic line in verbose mode only.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// Warn reports a non-fatal finding on the diagnostic writer, regardless of
// verbosity.
func (f *OutputFormatter) Warn(message string) {
	fmt.Fprintf(f.GetErrWriter(), "warning: %s\n", message)
}

// CycleWarnings reports warning-level cycle findings (parent triples map
// cycles). Error-level reports are validation errors and are skipped.
func (f *OutputFormatter) CycleWarnings(reports []compiler.CycleReport) {
	for _, r := range reports {
		if r.Level == "error" {
			continue
		}
		f.Warn(r.Message)
	}
}

// GetErrWriter returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
