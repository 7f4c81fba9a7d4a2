package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rmlstar/internal/compiler"
	"github.com/roach88/rmlstar/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.CycleReport     `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <rules>",
		Short: "Validate a mapping document without materializing",
		Long: `Validate a CUE mapping document without touching any source.

Compiles the document, checks every rule (term maps, templates, joins,
gathers, function references, rule shapes) and analyzes quoted and parent
triples map references for cycles. Quoted cycles are errors; parent-only
cycles are reported as warnings.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, rulesPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	loaded, err := LoadMapping(rulesPath)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Read %d CUE file(s), %d rule(s)", loaded.FileCount, len(loaded.Table.Rules))

	errs, warnings := checkTable(loaded.Table)
	if len(errs) > 0 {
		return outputValidationErrors(formatter, errs, warnings)
	}
	return outputValidateSuccess(formatter, warnings)
}

// checkTable runs rule validation and cycle analysis. Cycle reports at
// error level are returned as validation errors.
func checkTable(table *ir.RuleTable) ([]compiler.ValidationError, []compiler.CycleReport) {
	errs := compiler.Validate(table)
	var warnings []compiler.CycleReport
	for _, c := range compiler.AnalyzeCycles(table) {
		if c.Level == "error" {
			errs = append(errs, compiler.ValidationError{
				Field:   strings.Join(c.Path, " → "),
				Message: c.Message,
				Code:    ErrCodeCycle,
			})
			continue
		}
		warnings = append(warnings, c)
	}
	return errs, warnings
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, warnings []compiler.CycleReport) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Warnings: warnings})
	}

	formatter.CycleWarnings(warnings)
	fmt.Fprintln(formatter.Writer, "✓ Mapping valid")
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError, warnings []compiler.CycleReport) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:    false,
				Errors:   errs,
				Warnings: warnings,
			},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "%s\n", err.Field)
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}
	formatter.CycleWarnings(warnings)

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
