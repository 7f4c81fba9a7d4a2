package engine

import (
	"github.com/roach88/rmlstar/internal/ir"
)

// refSet is an insertion-ordered set of reference names.
type refSet struct {
	seen  map[string]bool
	names []string
}

func newRefSet() *refSet {
	return &refSet{seen: make(map[string]bool)}
}

func (s *refSet) add(names ...string) {
	for _, n := range names {
		if n == "" || s.seen[n] {
			continue
		}
		s.seen[n] = true
		s.names = append(s.names, n)
	}
}

func (s *refSet) remove(names ...string) {
	for _, n := range names {
		if !s.seen[n] {
			continue
		}
		delete(s.seen, n)
		for i, v := range s.names {
			if v == n {
				s.names = append(s.names[:i], s.names[i+1:]...)
				break
			}
		}
	}
}

func (s *refSet) list() []string {
	return append([]string(nil), s.names...)
}

// termReferences returns the source references a term map reads.
// Function executions contribute the references of their parameters.
func (ev *evaluator) termReferences(kind ir.TermKind, value string) []string {
	return ev.termRefsVisited(kind, value, map[string]bool{})
}

func (ev *evaluator) termRefsVisited(kind ir.TermKind, value string, visited map[string]bool) []string {
	switch kind {
	case ir.KindReference:
		return []string{value}
	case ir.KindTemplate:
		t, err := ev.gen.Template(value)
		if err != nil {
			return nil
		}
		return t.References()
	case ir.KindFunction:
		if visited[value] {
			return nil
		}
		visited[value] = true
		exec, ok := ev.table.Functions[value]
		if !ok {
			return nil
		}
		var refs []string
		for _, p := range exec.Params {
			refs = append(refs, ev.termRefsVisited(p.Kind, p.Value, visited)...)
		}
		return refs
	}
	return nil
}

// fetchReferences returns every reference needed to evaluate rule over its
// own logical source, including nested rules evaluated over the same rows
// (quoted and parent maps without join conditions).
func (ev *evaluator) fetchReferences(rule ir.Rule, withGraph bool) []string {
	refs := newRefSet()
	ev.collectReferences(rule, withGraph, refs, map[string]bool{rule.ID: true})
	return refs.list()
}

func (ev *evaluator) collectReferences(rule ir.Rule, withGraph bool, refs *refSet, visited map[string]bool) {
	for _, tm := range []ir.TermMap{rule.Subject, rule.Predicate, rule.Object} {
		refs.add(ev.termReferences(tm.Kind, tm.Value)...)
	}
	if rule.LangDatatype != nil {
		refs.add(ev.termReferences(rule.LangDatatype.Kind, rule.LangDatatype.Value)...)
	}
	if withGraph {
		refs.add(ev.termReferences(rule.Graph.Kind, rule.Graph.Value)...)
	}
	for _, jc := range rule.SubjectJoin {
		refs.add(jc.Child)
	}
	for _, jc := range rule.ObjectJoin {
		refs.add(jc.Child)
	}

	nested := func(tm ir.TermMap, joins []ir.JoinCondition) {
		if len(joins) > 0 {
			return
		}
		inner, ok := ev.table.Lookup(tm.Value)
		if !ok || inner.Source != rule.Source {
			return
		}
		switch tm.Kind {
		case ir.KindQuoted:
			if visited[tm.Value] {
				return
			}
			visited[tm.Value] = true
			ev.collectReferences(inner, false, refs, visited)
		case ir.KindParent:
			refs.add(ev.termReferences(inner.Subject.Kind, inner.Subject.Value)...)
		}
	}
	nested(rule.Subject, rule.SubjectJoin)
	nested(rule.Object, rule.ObjectJoin)
}
