package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/rmlstar/internal/ir"
)

// termKeys are the mutually exclusive keys selecting a term map kind.
var termKeys = []struct {
	key  string
	kind ir.TermKind
}{
	{"constant", ir.KindConstant},
	{"template", ir.KindTemplate},
	{"reference", ir.KindReference},
	{"function", ir.KindFunction},
	{"quoted", ir.KindQuoted},
	{"parent", ir.KindParent},
}

// CompileSource compiles a CUE mapping document held in memory.
func CompileSource(filename, src string) (*ir.RuleTable, error) {
	v := cuecontext.New().CompileString(src, cue.Filename(filename))
	return CompileRules(v)
}

// CompileRules parses a CUE value into a rule table.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// Triples maps are compiled in declaration order, which fixes rule and
// partition order.
func CompileRules(v cue.Value) (*ir.RuleTable, error) {
	if err := v.Validate(); err != nil {
		return nil, formatCUEError(err)
	}

	table := &ir.RuleTable{}

	fnVal := v.LookupPath(cue.ParsePath("function"))
	if fnVal.Exists() {
		fns, err := parseFunctions(fnVal)
		if err != nil {
			return nil, err
		}
		table.Functions = fns
	}

	tmVal := v.LookupPath(cue.ParsePath("triples_map"))
	if !tmVal.Exists() {
		return nil, &CompileError{
			Field:   "triples_map",
			Message: "at least one triples map is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := tmVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		rules, err := compileTriplesMap(unquote(iter.Selector()), iter.Value())
		if err != nil {
			return nil, err
		}
		table.Rules = append(table.Rules, rules...)
	}
	if len(table.Rules) == 0 {
		return nil, &CompileError{
			Field:   "triples_map",
			Message: "at least one triples map is required",
			Pos:     tmVal.Pos(),
		}
	}
	return table, nil
}

// compileTriplesMap expands one triples map into rules: one per
// predicate-object pair, class and graph.
func compileTriplesMap(id string, v cue.Value) ([]ir.Rule, error) {
	field := "triples_map." + id
	base := ir.Rule{ID: id}

	if p := v.LookupPath(cue.ParsePath("partition")); p.Exists() {
		s, err := p.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		base.Partition = s
	}

	src, err := parseSource(field, v)
	if err != nil {
		return nil, err
	}
	base.Source = src

	subjVal := v.LookupPath(cue.ParsePath("subject"))
	if !subjVal.Exists() {
		return nil, &CompileError{Field: field + ".subject", Message: "subject map is required", Pos: v.Pos()}
	}
	subj, err := parseTermMap(field+".subject", subjVal)
	if err != nil {
		return nil, err
	}
	base.Subject = subj.TermMap
	base.SubjectJoin = subj.join
	base.SubjectGather = subj.gather
	if subj.lang != nil {
		return nil, &CompileError{Field: field + ".subject", Message: "language and datatype apply to objects only", Pos: subjVal.Pos()}
	}

	classes, err := stringList(subjVal.LookupPath(cue.ParsePath("class")))
	if err != nil {
		return nil, err
	}
	subjGraphs, err := parseGraphs(field+".subject.graph", subjVal)
	if err != nil {
		return nil, err
	}

	var pairs []ir.Rule
	for _, class := range classes {
		r := base
		r.Predicate = ir.TermMap{Kind: ir.KindConstant, Value: rdfTypeIRI, TermType: ir.TermIRI}
		r.Object = ir.TermMap{Kind: ir.KindConstant, Value: class, TermType: ir.TermIRI}
		pairs = append(pairs, withGraphs(r, subjGraphs, nil)...)
	}

	pomVal := v.LookupPath(cue.ParsePath("predicate_object"))
	if pomVal.Exists() {
		list, err := pomVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for i := 0; list.Next(); i++ {
			rules, err := compilePredicateObject(fmt.Sprintf("%s.predicate_object[%d]", field, i), base, subjGraphs, list.Value())
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, rules...)
		}
	}

	if len(pairs) == 0 {
		if base.SubjectGather == nil {
			return nil, &CompileError{
				Field:   field,
				Message: "triples map needs a predicate-object map or a class",
				Pos:     v.Pos(),
			}
		}
		// A subject gather on its own still produces the collection.
		pairs = withGraphs(base, subjGraphs, nil)
	}
	return pairs, nil
}

const rdfTypeIRI = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

func compilePredicateObject(field string, base ir.Rule, subjGraphs []ir.TermMap, v cue.Value) ([]ir.Rule, error) {
	predVal := v.LookupPath(cue.ParsePath("predicate"))
	if !predVal.Exists() {
		return nil, &CompileError{Field: field + ".predicate", Message: "predicate map is required", Pos: v.Pos()}
	}
	pred, err := parseTermMap(field+".predicate", predVal)
	if err != nil {
		return nil, err
	}
	objVal := v.LookupPath(cue.ParsePath("object"))
	if !objVal.Exists() {
		return nil, &CompileError{Field: field + ".object", Message: "object map is required", Pos: v.Pos()}
	}
	obj, err := parseTermMap(field+".object", objVal)
	if err != nil {
		return nil, err
	}
	graphs, err := parseGraphs(field+".graph", v)
	if err != nil {
		return nil, err
	}

	r := base
	r.Predicate = pred.TermMap
	r.Object = obj.TermMap
	r.ObjectJoin = obj.join
	r.ObjectGather = obj.gather
	r.LangDatatype = obj.lang
	return withGraphs(r, subjGraphs, graphs), nil
}

// withGraphs emits one rule per graph map, or the rule unchanged when the
// triples map declares none.
func withGraphs(r ir.Rule, subjGraphs, pomGraphs []ir.TermMap) []ir.Rule {
	graphs := append(append([]ir.TermMap(nil), subjGraphs...), pomGraphs...)
	if len(graphs) == 0 {
		return []ir.Rule{r}
	}
	out := make([]ir.Rule, 0, len(graphs))
	seen := make(map[ir.TermMap]bool, len(graphs))
	for _, g := range graphs {
		if seen[g] {
			continue
		}
		seen[g] = true
		rg := r
		rg.Graph = g
		out = append(out, rg)
	}
	return out
}

// parsedTerm is a term map plus the directives attached to it.
type parsedTerm struct {
	ir.TermMap
	join   []ir.JoinCondition
	gather *ir.GatherSpec
	lang   *ir.LangDatatypeMap
}

// parseTermMap accepts a struct with exactly one kind key, or a bare
// string as shorthand for a constant.
func parseTermMap(field string, v cue.Value) (parsedTerm, error) {
	var pt parsedTerm
	if s, err := v.String(); err == nil {
		pt.Kind, pt.Value = ir.KindConstant, s
		return pt, nil
	}
	if v.IncompleteKind() != cue.StructKind {
		return pt, &CompileError{Field: field, Message: "term map must be a string or a struct", Pos: v.Pos()}
	}

	var found []string
	for _, tk := range termKeys {
		kv := v.LookupPath(cue.ParsePath(tk.key))
		if !kv.Exists() {
			continue
		}
		s, err := kv.String()
		if err != nil {
			return pt, formatCUEError(err)
		}
		found = append(found, tk.key)
		pt.Kind, pt.Value = tk.kind, s
	}
	if len(found) > 1 {
		return pt, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("term map declares %s; only one is allowed", strings.Join(found, " and ")),
			Pos:     v.Pos(),
		}
	}

	if g := v.LookupPath(cue.ParsePath("gather")); g.Exists() {
		spec, err := parseGather(field+".gather", g)
		if err != nil {
			return pt, err
		}
		pt.gather = spec
		if pt.Kind == ir.KindAbsent {
			pt.Kind = ir.KindGather
		}
	}
	if pt.Kind == ir.KindAbsent {
		return pt, &CompileError{
			Field:   field,
			Message: "term map needs one of constant, template, reference, function, quoted, parent or gather",
			Pos:     v.Pos(),
		}
	}

	if tt := v.LookupPath(cue.ParsePath("term_type")); tt.Exists() {
		s, err := tt.String()
		if err != nil {
			return pt, formatCUEError(err)
		}
		pt.TermType = ir.TermType(s)
	}

	if j := v.LookupPath(cue.ParsePath("join")); j.Exists() {
		if pt.Kind != ir.KindQuoted && pt.Kind != ir.KindParent {
			return pt, &CompileError{Field: field + ".join", Message: "join conditions need a quoted or parent triples map", Pos: j.Pos()}
		}
		conds, err := parseJoin(field+".join", j)
		if err != nil {
			return pt, err
		}
		pt.join = conds
	}

	for _, sel := range []ir.Selector{ir.SelectLanguage, ir.SelectDatatype} {
		lv := v.LookupPath(cue.ParsePath(string(sel)))
		if !lv.Exists() {
			continue
		}
		if pt.lang != nil {
			return pt, &CompileError{Field: field, Message: "language and datatype are mutually exclusive", Pos: lv.Pos()}
		}
		inner, err := parseTermMap(field+"."+string(sel), lv)
		if err != nil {
			return pt, err
		}
		switch inner.Kind {
		case ir.KindConstant, ir.KindTemplate, ir.KindReference, ir.KindFunction:
		default:
			return pt, &CompileError{Field: field + "." + string(sel), Message: fmt.Sprintf("%s map cannot be %s", sel, inner.Kind), Pos: lv.Pos()}
		}
		pt.lang = &ir.LangDatatypeMap{Selector: sel, Kind: inner.Kind, Value: inner.Value}
	}
	return pt, nil
}

func parseJoin(field string, v cue.Value) ([]ir.JoinCondition, error) {
	list, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var conds []ir.JoinCondition
	for i := 0; list.Next(); i++ {
		jv := list.Value()
		child, err := jv.LookupPath(cue.ParsePath("child")).String()
		if err != nil {
			return nil, &CompileError{Field: fmt.Sprintf("%s[%d].child", field, i), Message: "child reference is required", Pos: jv.Pos()}
		}
		parent, err := jv.LookupPath(cue.ParsePath("parent")).String()
		if err != nil {
			return nil, &CompileError{Field: fmt.Sprintf("%s[%d].parent", field, i), Message: "parent reference is required", Pos: jv.Pos()}
		}
		conds = append(conds, ir.JoinCondition{Child: child, Parent: parent})
	}
	return conds, nil
}

func parseGather(field string, v cue.Value) (*ir.GatherSpec, error) {
	refs, err := stringList(v.LookupPath(cue.ParsePath("references")))
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, &CompileError{Field: field + ".references", Message: "gather needs at least one reference", Pos: v.Pos()}
	}
	spec := &ir.GatherSpec{References: refs, As: ir.GatherList}

	if as := v.LookupPath(cue.ParsePath("as")); as.Exists() {
		s, err := as.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.As = ir.GatherKind(s)
	}
	if st := v.LookupPath(cue.ParsePath("strategy")); st.Exists() {
		s, err := st.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.Strategy = ir.Strategy(s)
	}
	if ae := v.LookupPath(cue.ParsePath("allow_empty")); ae.Exists() {
		b, err := ae.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.AllowEmpty = b
	}
	return spec, nil
}

// parseGraphs reads the optional graph key: one term map or a list.
func parseGraphs(field string, parent cue.Value) ([]ir.TermMap, error) {
	v := parent.LookupPath(cue.ParsePath("graph"))
	if !v.Exists() {
		return nil, nil
	}
	var values []cue.Value
	if v.IncompleteKind() == cue.ListKind {
		list, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for list.Next() {
			values = append(values, list.Value())
		}
	} else {
		values = []cue.Value{v}
	}

	graphs := make([]ir.TermMap, 0, len(values))
	for i, gv := range values {
		pt, err := parseTermMap(fmt.Sprintf("%s[%d]", field, i), gv)
		if err != nil {
			return nil, err
		}
		if pt.gather != nil || pt.join != nil || pt.lang != nil {
			return nil, &CompileError{Field: field, Message: "graph maps take no gather, join, language or datatype", Pos: gv.Pos()}
		}
		graphs = append(graphs, pt.TermMap)
	}
	return graphs, nil
}

func parseSource(field string, v cue.Value) (ir.Source, error) {
	sv := v.LookupPath(cue.ParsePath("source"))
	if !sv.Exists() {
		return ir.Source{}, &CompileError{Field: field + ".source", Message: "logical source is required", Pos: v.Pos()}
	}
	var src ir.Source
	for key, dst := range map[string]*string{
		"name":     &src.Name,
		"value":    &src.Value,
		"iterator": &src.Iterator,
	} {
		fv := sv.LookupPath(cue.ParsePath(key))
		if !fv.Exists() {
			continue
		}
		s, err := fv.String()
		if err != nil {
			return ir.Source{}, formatCUEError(err)
		}
		*dst = s
	}
	tv := sv.LookupPath(cue.ParsePath("type"))
	if !tv.Exists() {
		return ir.Source{}, &CompileError{Field: field + ".source.type", Message: "source type is required", Pos: sv.Pos()}
	}
	t, err := tv.String()
	if err != nil {
		return ir.Source{}, formatCUEError(err)
	}
	src.Type = ir.SourceType(t)
	if q := sv.LookupPath(cue.ParsePath("query")); q.Exists() {
		b, err := q.Bool()
		if err != nil {
			return ir.Source{}, formatCUEError(err)
		}
		src.Query = b
	}
	return src, nil
}

func parseFunctions(v cue.Value) (map[string]ir.FunctionExecution, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	fns := make(map[string]ir.FunctionExecution)
	for iter.Next() {
		id := unquote(iter.Selector())
		fv := iter.Value()
		field := "function." + id

		name, err := fv.LookupPath(cue.ParsePath("function")).String()
		if err != nil {
			return nil, &CompileError{Field: field + ".function", Message: "function IRI is required", Pos: fv.Pos()}
		}
		exec := ir.FunctionExecution{ID: id, Function: name}

		if pv := fv.LookupPath(cue.ParsePath("params")); pv.Exists() {
			list, err := pv.List()
			if err != nil {
				return nil, formatCUEError(err)
			}
			for i := 0; list.Next(); i++ {
				param := list.Value()
				pfield := fmt.Sprintf("%s.params[%d]", field, i)
				pname, err := param.LookupPath(cue.ParsePath("name")).String()
				if err != nil {
					return nil, &CompileError{Field: pfield + ".name", Message: "parameter name is required", Pos: param.Pos()}
				}
				pt, err := parseTermMap(pfield, param)
				if err != nil {
					return nil, err
				}
				exec.Params = append(exec.Params, ir.FunctionParam{Name: pname, Kind: pt.Kind, Value: pt.Value})
			}
		}
		fns[id] = exec
	}
	return fns, nil
}

// stringList reads an optional list of strings.
func stringList(v cue.Value) ([]string, error) {
	if !v.Exists() {
		return nil, nil
	}
	if s, err := v.String(); err == nil {
		return []string{s}, nil
	}
	list, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for list.Next() {
		s, err := list.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// unquote strips CUE's quoting from a field label such as "http://ex.org/TM".
func unquote(sel cue.Selector) string {
	return strings.Trim(sel.String(), `"`)
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
