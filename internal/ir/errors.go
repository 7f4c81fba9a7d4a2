package ir

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaterializeError represents a fatal error raised while materializing a rule.
//
// Errors include:
//   - Data access: a logical source was unreachable or malformed
//   - Reference: an expression names a column absent from the row-set
//   - Mapping shape: no rule shape matches the rule
//   - Encoding: term generation produced an invalid or empty term
//   - Cycle: quoted/parent recursion revisits a triples map
//   - Unsupported: a declared but unimplemented feature (cartesianProduct)
//
// Non-matching join rows are not errors; they are dropped.
type MaterializeError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// RuleID is the triples map identifier being materialized.
	RuleID string

	// Elapsed is the time spent on the rule before it failed.
	Elapsed time.Duration

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes materialization errors.
type ErrorCode string

const (
	ErrCodeDataAccess   ErrorCode = "DATA_ACCESS"
	ErrCodeReference    ErrorCode = "REFERENCE"
	ErrCodeMappingShape ErrorCode = "MAPPING_SHAPE"
	ErrCodeEncoding     ErrorCode = "ENCODING"
	ErrCodeCycle        ErrorCode = "CYCLE_DETECTED"
	ErrCodeUnsupported  ErrorCode = "UNSUPPORTED"
)

// Error implements the error interface.
func (e *MaterializeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.RuleID != "" {
		fmt.Fprintf(&b, " (rule=%s", e.RuleID)
		if e.Elapsed > 0 {
			fmt.Fprintf(&b, ", elapsed=%s", e.Elapsed)
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *MaterializeError) Unwrap() error {
	return e.Err
}

// IsCode reports whether err wraps a MaterializeError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var me *MaterializeError
	if errors.As(err, &me) {
		return me.Code == code
	}
	return false
}

// IsReferenceError returns true for missing-column errors.
func IsReferenceError(err error) bool { return IsCode(err, ErrCodeReference) }

// IsShapeError returns true for unclassifiable rules.
func IsShapeError(err error) bool { return IsCode(err, ErrCodeMappingShape) }

// IsCycleError returns true for recursive rule cycles.
func IsCycleError(err error) bool { return IsCode(err, ErrCodeCycle) }

// IsDataAccessError returns true for source failures.
func IsDataAccessError(err error) bool { return IsCode(err, ErrCodeDataAccess) }

// IsEncodingError returns true for invalid generated terms.
func IsEncodingError(err error) bool { return IsCode(err, ErrCodeEncoding) }

// IsUnsupportedError returns true for declared but unimplemented features.
func IsUnsupportedError(err error) bool { return IsCode(err, ErrCodeUnsupported) }

// NewReferenceError creates an error for a reference absent from the row-set.
func NewReferenceError(ruleID, column string) *MaterializeError {
	return &MaterializeError{
		Code:    ErrCodeReference,
		Message: fmt.Sprintf("reference %q not found in row-set", column),
		RuleID:  ruleID,
	}
}

// NewShapeError creates an error for a rule no shape matches.
func NewShapeError(ruleID, msg string) *MaterializeError {
	return &MaterializeError{Code: ErrCodeMappingShape, Message: msg, RuleID: ruleID}
}

// NewEncodingError creates an error for an invalid generated term.
func NewEncodingError(ruleID, msg string) *MaterializeError {
	return &MaterializeError{Code: ErrCodeEncoding, Message: msg, RuleID: ruleID}
}

// NewDataAccessError wraps a source failure.
func NewDataAccessError(ruleID string, err error) *MaterializeError {
	return &MaterializeError{
		Code:    ErrCodeDataAccess,
		Message: "fetching logical source",
		RuleID:  ruleID,
		Err:     err,
	}
}

// NewCycleError creates an error for a recursion path that revisits a rule.
func NewCycleError(path []string) *MaterializeError {
	ruleID := ""
	if len(path) > 0 {
		ruleID = path[len(path)-1]
	}
	return &MaterializeError{
		Code:    ErrCodeCycle,
		Message: "triples map recursion cycle: " + strings.Join(path, " -> "),
		RuleID:  ruleID,
	}
}

// NewUnsupportedError creates an error for a feature the engine rejects.
func NewUnsupportedError(ruleID, msg string) *MaterializeError {
	return &MaterializeError{Code: ErrCodeUnsupported, Message: msg, RuleID: ruleID}
}
