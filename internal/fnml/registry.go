package fnml

import (
	"fmt"
	"strings"

	"github.com/roach88/rmlstar/internal/ir"
	"github.com/roach88/rmlstar/internal/term"
)

// Func computes one value from named arguments. Argument names are the
// local names of the parameter IRIs. ok=false yields a null.
type Func func(args map[string]string) (value string, ok bool)

// Builtin is a registered function with its required parameters.
type Builtin struct {
	Fn       Func
	Required []string
}

// Registry resolves function executions to builtins.
type Registry struct {
	executions map[string]ir.FunctionExecution
	builtins   map[string]Builtin
}

// NewRegistry creates a registry over the rule table's function executions
// with the default builtins installed.
func NewRegistry(executions map[string]ir.FunctionExecution) *Registry {
	r := &Registry{
		executions: executions,
		builtins:   make(map[string]Builtin),
	}
	for iri, b := range defaultBuiltins() {
		r.builtins[iri] = b
	}
	return r
}

// Register binds a function IRI to a builtin, replacing any existing one.
func (r *Registry) Register(iri string, b Builtin) {
	r.builtins[iri] = b
}

// Has reports whether a function IRI is registered.
func (r *Registry) Has(iri string) bool {
	_, ok := r.builtins[iri]
	return ok
}

// Evaluate implements term.FunctionEvaluator.
func (r *Registry) Evaluate(rs ir.RowSet, executionID string, expand term.ExpandFunc) ([]string, error) {
	exec, ok := r.executions[executionID]
	if !ok {
		return nil, ir.NewShapeError("", fmt.Sprintf("function execution %q not declared", executionID))
	}
	b, ok := r.builtins[exec.Function]
	if !ok {
		return nil, ir.NewUnsupportedError("", fmt.Sprintf("function %q is not implemented", exec.Function))
	}

	params := make(map[string][]string, len(exec.Params))
	for _, p := range exec.Params {
		vals, err := expand(rs, term.Spec{Kind: p.Kind, Value: p.Value})
		if err != nil {
			return nil, fmt.Errorf("function execution %s, parameter %s: %w", executionID, p.Name, err)
		}
		params[LocalName(p.Name)] = vals
	}
	for _, name := range b.Required {
		if _, ok := params[name]; !ok {
			return nil, ir.NewShapeError("", fmt.Sprintf("function execution %q: missing parameter %q", executionID, name))
		}
	}

	out := make([]string, rs.Len())
	args := make(map[string]string, len(params))
	for i := range out {
		null := false
		for name, vals := range params {
			args[name] = vals[i]
			if vals[i] == "" && contains(b.Required, name) {
				null = true
			}
		}
		if null {
			continue
		}
		if v, ok := b.Fn(args); ok {
			out[i] = v
		}
	}
	return out, nil
}

// LocalName returns the fragment or last path segment of an IRI.
func LocalName(iri string) string {
	if i := strings.LastIndexAny(iri, "#/"); i >= 0 && i < len(iri)-1 {
		return iri[i+1:]
	}
	return iri
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
