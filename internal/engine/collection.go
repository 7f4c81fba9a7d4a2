package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/rmlstar/internal/ir"
	"github.com/roach88/rmlstar/internal/term"
)

// Reserved columns of the gathered row-set.
const (
	colValue = "#value"
	colEmpty = "#empty"
)

// collectionBuilder turns a row-set with repeated values per owner into
// RDF lists or containers.
//
// The owner of a row is the tuple of the rule's non-gathered references.
// Rows are sorted so each owner's rows are contiguous, then scanned once;
// an owner change closes the current list or container.
type collectionBuilder struct {
	ev        *evaluator
	rule      ir.Rule
	spec      *ir.GatherSpec
	onSubject bool
	named     bool

	owners []string
	out    []ir.Statement
}

// gather dispatches the four gather shapes to a collectionBuilder.
func (ev *evaluator) gather(ctx context.Context, rule ir.Rule, shape Shape) ([]ir.Statement, error) {
	b := &collectionBuilder{ev: ev, rule: rule}
	switch shape {
	case ShapeNamedObjectGather:
		b.spec, b.named = rule.ObjectGather, true
	case ShapeUnnamedObjectGather:
		b.spec = rule.ObjectGather
	case ShapeUnnamedSubjectGather:
		b.spec, b.onSubject = rule.SubjectGather, true
	case ShapeNamedSubjectGather:
		b.spec, b.onSubject, b.named = rule.SubjectGather, true, true
	default:
		return nil, ir.NewShapeError(rule.ID, fmt.Sprintf("%s is not a gather shape", shape))
	}
	return b.build(ctx)
}

func (b *collectionBuilder) build(ctx context.Context) ([]ir.Statement, error) {
	if len(b.spec.References) == 0 {
		return nil, ir.NewShapeError(b.rule.ID, "gather has no references")
	}
	switch b.spec.Strategy {
	case "", ir.StrategyAppend:
	case ir.StrategyCartesian:
		return nil, ir.NewUnsupportedError(b.rule.ID, "gather strategy cartesianProduct is not supported")
	default:
		return nil, ir.NewShapeError(b.rule.ID, fmt.Sprintf("unknown gather strategy %q", b.spec.Strategy))
	}

	b.owners = b.ownerReferences()
	rs, err := b.rows(ctx)
	if err != nil {
		return nil, err
	}
	// An empty collection in subject position would assert statements
	// about rdf:nil or an empty node, so only object gathers keep them.
	if b.spec.AllowEmpty && !b.onSubject {
		if rs, err = b.addEmptyOwners(ctx, rs); err != nil {
			return nil, err
		}
	}
	if err := b.scan(rs); err != nil {
		return nil, err
	}
	return b.out, nil
}

// ownerReferences returns the non-gathered references of the rule, or the
// source record identity when there are none.
func (b *collectionBuilder) ownerReferences() []string {
	ev, r := b.ev, b.rule
	refs := newRefSet()
	refs.add(ev.termReferences(r.Predicate.Kind, r.Predicate.Value)...)
	if ev.withGraph() {
		refs.add(ev.termReferences(r.Graph.Kind, r.Graph.Value)...)
	}
	if b.onSubject {
		if b.named {
			refs.add(ev.termReferences(r.Subject.Kind, r.Subject.Value)...)
		}
		refs.add(ev.termReferences(r.Object.Kind, r.Object.Value)...)
		if r.LangDatatype != nil {
			refs.add(ev.termReferences(r.LangDatatype.Kind, r.LangDatatype.Value)...)
		}
	} else {
		refs.add(ev.termReferences(r.Subject.Kind, r.Subject.Value)...)
		if b.named {
			refs.add(ev.termReferences(r.Object.Kind, r.Object.Value)...)
		}
	}
	refs.remove(b.spec.References...)
	if len(refs.names) == 0 {
		return []string{ir.RecordColumn}
	}
	return refs.list()
}

// rows fetches the gathered values into colValue, grouped by owner.
//
// One reference: rows are sorted by (owner, value), except for JSON
// sources where the array order of the document is kept (stable sort).
// Several references: values are unioned per owner, duplicate (owner,
// value) pairs dropped, and rows sorted by (owner, value).
func (b *collectionBuilder) rows(ctx context.Context) (ir.RowSet, error) {
	cols := append(append([]string(nil), b.owners...), colValue)

	if len(b.spec.References) == 1 {
		ref := b.spec.References[0]
		rs, err := b.ev.fetch(ctx, b.rule, append(append([]string(nil), b.owners...), ref))
		if err != nil {
			return ir.RowSet{}, err
		}
		if !rs.HasColumn(ref) {
			return ir.RowSet{}, ir.NewReferenceError(b.rule.ID, ref)
		}
		rs = rs.WithColumn(colValue, rs.Column(ref))
		b.sortByOwner(rs, b.rule.Source.Type != ir.SourceJSON)
		return rs, nil
	}

	melted := ir.RowSet{Columns: cols}
	for _, ref := range b.spec.References {
		rs, err := b.ev.fetch(ctx, b.rule, append(append([]string(nil), b.owners...), ref))
		if err != nil {
			return ir.RowSet{}, err
		}
		if !rs.HasColumn(ref) {
			return ir.RowSet{}, ir.NewReferenceError(b.rule.ID, ref)
		}
		for _, row := range rs.Rows {
			m := make(ir.Row, len(cols))
			for _, o := range b.owners {
				m[o] = row[o]
			}
			m[colValue] = row[ref]
			melted.Rows = append(melted.Rows, m)
		}
	}
	melted = melted.DropNulls(colValue).Distinct()
	b.sortByOwner(melted, true)
	return melted, nil
}

// sortByOwner makes each owner's rows contiguous. byValue additionally
// orders the values inside an owner.
func (b *collectionBuilder) sortByOwner(rs ir.RowSet, byValue bool) {
	ownerKeys := make([]string, len(rs.Rows))
	idx := make([]int, len(rs.Rows))
	for i, row := range rs.Rows {
		ownerKeys[i] = rs.Key(row, b.owners)
		idx[i] = i
	}
	sort.SliceStable(idx, func(x, y int) bool {
		kx, ky := ownerKeys[idx[x]], ownerKeys[idx[y]]
		if kx != ky {
			return kx < ky
		}
		if byValue {
			return rs.Rows[idx[x]][colValue] < rs.Rows[idx[y]][colValue]
		}
		return false
	})
	sorted := make([]ir.Row, len(rs.Rows))
	for i, j := range idx {
		sorted[i] = rs.Rows[j]
	}
	copy(rs.Rows, sorted)
}

// addEmptyOwners inserts a placeholder row for every owner whose array is
// present but empty in the source document. Owners with at least one value
// in any gathered reference are never empty.
func (b *collectionBuilder) addEmptyOwners(ctx context.Context, rs ir.RowSet) (ir.RowSet, error) {
	if b.ev.docs == nil {
		return rs, nil
	}
	doc, err := b.ev.docs.Load(ctx, b.rule)
	if err != nil {
		return ir.RowSet{}, ir.NewDataAccessError(b.rule.ID, err)
	}

	present := make(map[string]bool, len(rs.Rows))
	for _, row := range rs.Rows {
		present[rs.Key(row, b.owners)] = true
	}
	added := false
	for _, ref := range b.spec.References {
		if !doc.HasEmptyArray(ref) {
			continue
		}
		owners, err := doc.EmptyOwners(ref, b.owners)
		if err != nil {
			return ir.RowSet{}, ir.NewDataAccessError(b.rule.ID, err)
		}
		for _, o := range owners {
			key := rs.Key(o, b.owners)
			if present[key] {
				continue
			}
			present[key] = true
			row := make(ir.Row, len(b.owners)+1)
			for _, c := range b.owners {
				row[c] = o[c]
			}
			row[colEmpty] = "1"
			rs.Rows = append(rs.Rows, row)
			added = true
		}
	}
	if added {
		if !rs.HasColumn(colEmpty) {
			rs.Columns = append(rs.Columns, colEmpty)
		}
		b.sortByOwner(rs, false)
	}
	return rs, nil
}

// scan walks contiguous owner groups and emits outer and structural triples.
func (b *collectionBuilder) scan(rs ir.RowSet) error {
	gen, rule := b.ev.gen, b.rule

	var subj, pred, obj, heads []string
	var err error
	if !rule.Predicate.IsAbsent() {
		if pred, err = gen.Expand(rs, predicateSpec(rule.Predicate)); err != nil {
			return err
		}
	}
	if b.onSubject {
		if b.named {
			if heads, err = gen.Expand(rs, subjectSpec(rule.Subject)); err != nil {
				return err
			}
		}
		if !rule.Object.IsAbsent() {
			if obj, err = b.ev.objectTerms(rule, rs); err != nil {
				return err
			}
		}
	} else {
		if subj, err = gen.Expand(rs, subjectSpec(rule.Subject)); err != nil {
			return err
		}
		if b.named {
			if heads, err = b.ev.objectTerms(rule, rs); err != nil {
				return err
			}
		}
	}
	elems, err := gen.Expand(rs, term.Spec{Kind: ir.KindReference, Value: colValue, TermType: ir.TermLiteral})
	if err != nil {
		return err
	}
	graphs, keep, err := b.ev.graphTerms(rule, rs)
	if err != nil {
		return err
	}

	for start := 0; start < rs.Len(); {
		key := rs.Key(rs.Rows[start], b.owners)
		end := start + 1
		for end < rs.Len() && rs.Key(rs.Rows[end], b.owners) == key {
			end++
		}
		if !keep[start] {
			start = end
			continue
		}

		g := graphs[start]
		empty := rs.Rows[start][colEmpty] == "1"
		var members []string
		for i := start; i < end; i++ {
			if elems[i] != "" {
				members = append(members, elems[i])
			}
		}
		if !empty && len(members) == 0 {
			start = end
			continue
		}

		var head string
		switch {
		case empty && b.spec.As == ir.GatherList:
			head = ir.RDFNil
		case b.named:
			head = heads[start]
		default:
			head = b.ev.alloc.Next()
		}
		if head == "" {
			start = end
			continue
		}

		if b.onSubject {
			if pred != nil && obj != nil && pred[start] != "" && obj[start] != "" {
				b.emit(head, pred[start], obj[start], g)
			}
		} else {
			if subj[start] == "" || pred[start] == "" {
				start = end
				continue
			}
			b.emit(subj[start], pred[start], head, g)
		}

		switch {
		case empty && b.spec.As.IsContainer():
			b.emit(head, ir.RDFType, containerType(b.spec.As), g)
		case empty:
		case b.spec.As.IsContainer():
			b.container(head, members, g)
		default:
			b.list(head, members, g)
		}
		start = end
	}
	return nil
}

// list chains members with rdf:first / rdf:rest from head to rdf:nil.
func (b *collectionBuilder) list(head string, members []string, graph string) {
	node := head
	for i, m := range members {
		b.emit(node, ir.RDFFirst, m, graph)
		if i == len(members)-1 {
			b.emit(node, ir.RDFRest, ir.RDFNil, graph)
			return
		}
		next := b.ev.alloc.Next()
		b.emit(node, ir.RDFRest, next, graph)
		node = next
	}
}

// container numbers members rdf:_1..rdf:_n and closes with rdf:type.
func (b *collectionBuilder) container(head string, members []string, graph string) {
	for i, m := range members {
		b.emit(head, ir.RDFMember(i+1), m, graph)
	}
	b.emit(head, ir.RDFType, containerType(b.spec.As), graph)
}

func (b *collectionBuilder) emit(s, p, o, g string) {
	b.out = append(b.out, ir.Statement{Subject: s, Predicate: p, Object: o, Graph: g})
}

func containerType(k ir.GatherKind) string {
	switch k {
	case ir.GatherBag:
		return ir.RDFBag
	case ir.GatherSeq:
		return ir.RDFSeq
	default:
		return ir.RDFAlt
	}
}
