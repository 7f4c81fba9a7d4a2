package queryir

import (
	"fmt"
	"strings"
)

// ValidationResult lists the problems found in a projection.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Validate checks a projection before compilation.
//
// Rules:
//  1. From is a non-empty Table or SubQuery
//  2. Columns are non-empty, unique, and never start with '#'
//  3. Predicates only reference requested columns
//
// Validate is a pure function with no side effects.
func Validate(p Projection) ValidationResult {
	v := &validator{columns: make(map[string]bool, len(p.Columns))}
	v.validateFrom(p.From)
	for _, c := range p.Columns {
		switch {
		case strings.TrimSpace(c) == "":
			v.addError("empty column name")
		case strings.HasPrefix(c, "#"):
			v.addError("column %q uses the reserved '#' prefix", c)
		case v.columns[c]:
			v.addError("duplicate column %q", c)
		}
		v.columns[c] = true
	}
	v.validatePredicate(p.Filter)

	return ValidationResult{Valid: len(v.errors) == 0, Errors: v.errors}
}

type validator struct {
	columns map[string]bool
	errors  []string
}

func (v *validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) validateFrom(f From) {
	switch from := f.(type) {
	case Table:
		if strings.TrimSpace(from.Name) == "" {
			v.addError("empty table name")
		}
	case SubQuery:
		if strings.TrimSpace(from.SQL) == "" {
			v.addError("empty query")
		}
	case nil:
		v.addError("projection has no relation")
	default:
		v.addError("unknown relation type %T", f)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
	case NotNull:
		if !v.columns[pred.Field] {
			v.addError("filter references unrequested column %q", pred.Field)
		}
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	default:
		v.addError("unknown predicate type %T", p)
	}
}
