package compiler

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/rmlstar/internal/engine"
	"github.com/roach88/rmlstar/internal/ir"
	"github.com/roach88/rmlstar/internal/term"
)

// Validation error codes (E200-E299)
const (
	ErrEmptyTable          = "E200" // rule table has no rules
	ErrMissingRuleID       = "E201" // rule without a triples map id
	ErrInvalidSource       = "E202" // missing or unknown logical source
	ErrInvalidTermMap      = "E203" // unknown term kind or term type
	ErrUnknownTriplesMap   = "E204" // quoted/parent reference to a missing triples map
	ErrInvalidJoin         = "E205" // empty join reference
	ErrInvalidGather       = "E206" // malformed gather directive
	ErrInconsistentMap     = "E207" // rules of one triples map disagree on the subject
	ErrUnknownFunction     = "E208" // function term names no declared execution
	ErrInvalidShape        = "E209" // no rule shape matches
	ErrInvalidTemplate     = "E210" // template does not parse
	ErrInvalidLangDatatype = "E211" // malformed language or datatype map
)

// ValidationError represents a rule table validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled rule table before materialization.
// Returns all errors found (does not fail-fast).
func Validate(table *ir.RuleTable) []ValidationError {
	if table == nil || len(table.Rules) == 0 {
		return []ValidationError{{Field: "rules", Message: "rule table has no rules", Code: ErrEmptyTable}}
	}

	var errs []ValidationError
	first := make(map[string]ir.Rule)
	for i, r := range table.Rules {
		field := fmt.Sprintf("rules[%d]", i)
		if r.ID != "" {
			field = fmt.Sprintf("%s(%s)", field, r.ID)
		}
		errs = append(errs, validateRule(table, r, field)...)

		if r.ID == "" {
			continue
		}
		if prev, ok := first[r.ID]; ok {
			errs = append(errs, compareSubjects(prev, r, field)...)
		} else {
			first[r.ID] = r
		}
	}
	return errs
}

func validateRule(table *ir.RuleTable, r ir.Rule, field string) []ValidationError {
	var errs []ValidationError

	if r.ID == "" {
		errs = append(errs, ValidationError{Field: field + ".id", Message: "rule has no triples map id", Code: ErrMissingRuleID})
	}

	if !ir.ValidSourceTypes[r.Source.Type] {
		errs = append(errs, ValidationError{
			Field:   field + ".source.type",
			Message: fmt.Sprintf("unknown source type %q", r.Source.Type),
			Code:    ErrInvalidSource,
		})
	}
	if r.Source.Name == "" {
		errs = append(errs, ValidationError{Field: field + ".source.name", Message: "source connection name is required", Code: ErrInvalidSource})
	}
	if r.Source.Value == "" {
		errs = append(errs, ValidationError{Field: field + ".source.value", Message: "table, query or path is required", Code: ErrInvalidSource})
	}
	if r.Source.Query && r.Source.Type != ir.SourceRDB {
		errs = append(errs, ValidationError{Field: field + ".source.query", Message: "queries apply to rdb sources only", Code: ErrInvalidSource})
	}

	positions := []struct {
		name string
		tm   ir.TermMap
		join []ir.JoinCondition
	}{
		{"subject", r.Subject, r.SubjectJoin},
		{"predicate", r.Predicate, nil},
		{"object", r.Object, r.ObjectJoin},
		{"graph", r.Graph, nil},
	}
	for _, p := range positions {
		errs = append(errs, validateTermMap(table, p.tm, field+"."+p.name)...)
		for j, jc := range p.join {
			if jc.Child == "" || jc.Parent == "" {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.%s.join[%d]", field, p.name, j),
					Message: "join condition needs both child and parent references",
					Code:    ErrInvalidJoin,
				})
			}
		}
	}

	if ld := r.LangDatatype; ld != nil {
		if ld.Selector != ir.SelectLanguage && ld.Selector != ir.SelectDatatype {
			errs = append(errs, ValidationError{Field: field + ".lang_datatype", Message: fmt.Sprintf("unknown selector %q", ld.Selector), Code: ErrInvalidLangDatatype})
		}
		if ld.Kind == ir.KindConstant && ld.Value == "" {
			errs = append(errs, ValidationError{Field: field + ".lang_datatype", Message: "empty constant", Code: ErrInvalidLangDatatype})
		}
		errs = append(errs, validateTermMap(table, ir.TermMap{Kind: ld.Kind, Value: ld.Value}, field+".lang_datatype")...)
	}

	if r.SubjectGather != nil {
		errs = append(errs, validateGather(r.SubjectGather, field+".subject_gather")...)
	}
	if r.ObjectGather != nil {
		errs = append(errs, validateGather(r.ObjectGather, field+".object_gather")...)
	}

	if _, err := engine.Classify(r); err != nil {
		var me *ir.MaterializeError
		msg := err.Error()
		if errors.As(err, &me) {
			msg = me.Message
		}
		errs = append(errs, ValidationError{Field: field, Message: msg, Code: ErrInvalidShape})
	}
	return errs
}

func validateTermMap(table *ir.RuleTable, tm ir.TermMap, field string) []ValidationError {
	if tm.IsAbsent() {
		return nil
	}
	var errs []ValidationError
	if !ir.ValidTermKinds[tm.Kind] {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("unknown term kind %q", tm.Kind), Code: ErrInvalidTermMap})
	}
	switch tm.TermType {
	case "", ir.TermIRI, ir.TermBlankNode, ir.TermLiteral:
	default:
		errs = append(errs, ValidationError{Field: field + ".term_type", Message: fmt.Sprintf("unknown term type %q", tm.TermType), Code: ErrInvalidTermMap})
	}

	switch tm.Kind {
	case ir.KindTemplate:
		if _, err := term.ParseTemplate(tm.Value); err != nil {
			errs = append(errs, ValidationError{Field: field, Message: err.Error(), Code: ErrInvalidTemplate})
		}
	case ir.KindReference:
		if tm.Value == "" {
			errs = append(errs, ValidationError{Field: field, Message: "empty reference", Code: ErrInvalidTermMap})
		}
	case ir.KindFunction:
		if _, ok := table.Functions[tm.Value]; !ok {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("function execution %q is not declared", tm.Value), Code: ErrUnknownFunction})
		}
	case ir.KindQuoted, ir.KindParent:
		if _, ok := table.Lookup(tm.Value); !ok {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("triples map %q is not declared", tm.Value), Code: ErrUnknownTriplesMap})
		}
	}
	return errs
}

func validateGather(g *ir.GatherSpec, field string) []ValidationError {
	var errs []ValidationError
	if len(g.References) == 0 {
		errs = append(errs, ValidationError{Field: field + ".references", Message: "gather needs at least one reference", Code: ErrInvalidGather})
	}
	for i, ref := range g.References {
		if ref == "" {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("%s.references[%d]", field, i), Message: "empty reference", Code: ErrInvalidGather})
		}
	}
	switch g.As {
	case ir.GatherList, ir.GatherBag, ir.GatherSeq, ir.GatherAlt:
	default:
		errs = append(errs, ValidationError{Field: field + ".as", Message: fmt.Sprintf("unknown gather target %q, must be list, bag, seq or alt", g.As), Code: ErrInvalidGather})
	}
	switch g.Strategy {
	case "", ir.StrategyAppend, ir.StrategyCartesian:
	default:
		errs = append(errs, ValidationError{Field: field + ".strategy", Message: fmt.Sprintf("unknown strategy %q", g.Strategy), Code: ErrInvalidGather})
	}
	return errs
}

// compareSubjects checks that rules of the same triples map share the
// subject map, its join and its gather directive.
func compareSubjects(a, b ir.Rule, field string) []ValidationError {
	same := a.Subject == b.Subject &&
		a.Source == b.Source &&
		slices.Equal(a.SubjectJoin, b.SubjectJoin) &&
		gathersEqual(a.SubjectGather, b.SubjectGather)
	if same {
		return nil
	}
	return []ValidationError{{
		Field:   field,
		Message: fmt.Sprintf("rules of triples map %q disagree on subject or source", a.ID),
		Code:    ErrInconsistentMap,
	}}
}

func gathersEqual(a, b *ir.GatherSpec) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.As == b.As &&
		a.Strategy == b.Strategy &&
		a.AllowEmpty == b.AllowEmpty &&
		slices.Equal(a.References, b.References)
}
