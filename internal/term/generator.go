package term

import (
	"fmt"
	"strings"
	"sync"

	"github.com/roach88/rmlstar/internal/ir"
)

// Options are the encoding flags of a materialization run.
type Options struct {
	// SafeChars are kept unencoded in IRI templates in addition to
	// ALPHA / DIGIT / "-._~".
	SafeChars string

	// OnlyPrintable drops non-printable runes from referenced values.
	OnlyPrintable bool

	// NormalizeNFC applies Unicode NFC normalization to referenced values.
	NormalizeNFC bool
}

// Spec is one term map expression to expand.
type Spec struct {
	Kind     ir.TermKind
	Value    string
	TermType ir.TermType

	// Datatype is the unwrapped datatype IRI used for natural mapping of
	// literal values, when known.
	Datatype string
}

// ExpandFunc expands a nested expression (function parameters).
type ExpandFunc func(rs ir.RowSet, spec Spec) ([]string, error)

// FunctionEvaluator computes function-valued term maps.
// Implemented by fnml.Registry.
type FunctionEvaluator interface {
	Evaluate(rs ir.RowSet, executionID string, expand ExpandFunc) ([]string, error)
}

// Generator expands term map expressions into serialized terms.
//
// Thread-safety: Generator is safe for concurrent use; parsed templates
// are cached behind a mutex.
type Generator struct {
	opts      Options
	functions FunctionEvaluator

	mu        sync.Mutex
	templates map[string]Template
}

// NewGenerator creates a generator. functions may be nil when the rule
// table declares no function executions.
func NewGenerator(opts Options, functions FunctionEvaluator) *Generator {
	return &Generator{
		opts:      opts,
		functions: functions,
		templates: make(map[string]Template),
	}
}

// Options returns the generator's encoding options.
func (g *Generator) Options() Options {
	return g.opts
}

// Template returns the parsed template, caching it.
func (g *Generator) Template(raw string) (Template, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if t, ok := g.templates[raw]; ok {
		return t, nil
	}
	t, err := ParseTemplate(raw)
	if err != nil {
		return Template{}, err
	}
	g.templates[raw] = t
	return t, nil
}

// Expand returns one serialized term per row of rs. Null terms are "".
//
// Errors are *ir.MaterializeError without a rule id; the caller attaches it.
func (g *Generator) Expand(rs ir.RowSet, spec Spec) ([]string, error) {
	raw, err := g.rawValues(rs, spec)
	if err != nil {
		return nil, err
	}

	for i, v := range raw {
		if v == "" {
			continue
		}
		switch spec.TermType {
		case ir.TermIRI:
			if !validIRI(v) {
				return nil, ir.NewEncodingError("", fmt.Sprintf("invalid IRI %q", v))
			}
			raw[i] = "<" + v + ">"
		case ir.TermBlankNode:
			if !validBlankLabel(v) {
				return nil, ir.NewEncodingError("", fmt.Sprintf("invalid blank node label %q", v))
			}
			raw[i] = "_:" + v
		case ir.TermLiteral:
			mapped, ok := NaturalMap(v, spec.Datatype)
			if !ok {
				raw[i] = ""
				continue
			}
			raw[i] = `"` + EscapeLiteral(mapped) + `"`
		}
	}
	return raw, nil
}

// rawValues computes the unwrapped lexical value per row.
func (g *Generator) rawValues(rs ir.RowSet, spec Spec) ([]string, error) {
	out := make([]string, rs.Len())

	switch spec.Kind {
	case ir.KindConstant:
		if spec.Value == "" && spec.TermType == ir.TermIRI {
			return nil, ir.NewEncodingError("", "empty constant IRI")
		}
		for i := range out {
			out[i] = spec.Value
		}

	case ir.KindReference:
		if !rs.HasColumn(spec.Value) {
			return nil, ir.NewReferenceError("", spec.Value)
		}
		for i, row := range rs.Rows {
			out[i] = g.opts.cleanValue(row[spec.Value])
		}

	case ir.KindTemplate:
		t, err := g.Template(spec.Value)
		if err != nil {
			return nil, ir.NewShapeError("", err.Error())
		}
		for _, ref := range t.References() {
			if !rs.HasColumn(ref) {
				return nil, ir.NewReferenceError("", ref)
			}
		}
		var encode func(string) string
		if spec.TermType == ir.TermIRI {
			safe := g.opts.SafeChars
			encode = func(v string) string { return PercentEncode(v, safe) }
		}
		for i, row := range rs.Rows {
			lookup := func(ref string) string { return g.opts.cleanValue(row[ref]) }
			if v, ok := t.Render(lookup, encode); ok {
				out[i] = v
			}
		}

	case ir.KindFunction:
		if g.functions == nil {
			return nil, ir.NewUnsupportedError("", fmt.Sprintf("function execution %q: no function evaluator", spec.Value))
		}
		vals, err := g.functions.Evaluate(rs, spec.Value, g.expandUnwrapped)
		if err != nil {
			return nil, err
		}
		if len(vals) != rs.Len() {
			return nil, ir.NewEncodingError("", fmt.Sprintf("function execution %q returned %d values for %d rows", spec.Value, len(vals), rs.Len()))
		}
		for i, v := range vals {
			if spec.TermType == ir.TermIRI {
				v = strings.TrimSpace(v)
			}
			out[i] = v
		}

	default:
		return nil, ir.NewShapeError("", fmt.Sprintf("term kind %q cannot be expanded", spec.Kind))
	}
	return out, nil
}

// expandUnwrapped expands a function parameter: lexical value, no wrapping.
func (g *Generator) expandUnwrapped(rs ir.RowSet, spec Spec) ([]string, error) {
	return g.rawValues(rs, spec)
}
