package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/rmlstar/internal/ir"
	"github.com/roach88/rmlstar/internal/term"
)

// Reserved columns holding assembled terms.
const (
	colSubject   = "#s"
	colPredicate = "#p"
	colObject    = "#o"
	colParent    = "#parent"
)

// evaluator materializes single rules. It holds no per-rule state and is
// shared by all partition workers.
type evaluator struct {
	table    *ir.RuleTable
	source   DataSource
	docs     DocumentLoader
	gen      *term.Generator
	alloc    *BlankNodeAllocator
	format   ir.Format
	maxDepth int
}

func (ev *evaluator) withGraph() bool {
	return ev.format == ir.FormatNQuads
}

// evaluate produces the statements entailed by rule.
func (ev *evaluator) evaluate(ctx context.Context, rule ir.Rule) ([]ir.Statement, error) {
	shape, err := Classify(rule)
	if err != nil {
		return nil, err
	}
	if shape.IsGather() {
		return ev.gather(ctx, rule, shape)
	}

	var rs ir.RowSet
	if shape == ShapeConstant {
		rs = ir.NewRowSet(nil, ir.Row{})
	} else {
		rs, err = ev.fetch(ctx, rule, ev.fetchReferences(rule, ev.withGraph()))
		if err != nil {
			return nil, err
		}
	}

	out, err := ev.triples(ctx, rule, shape, rs, newRecursionPath(rule.ID, ev.maxDepth))
	if err != nil {
		return nil, err
	}
	graphs, keep, err := ev.graphTerms(rule, out)
	if err != nil {
		return nil, err
	}

	stmts := make([]ir.Statement, 0, out.Len())
	for i, row := range out.Rows {
		if !keep[i] {
			continue
		}
		stmts = append(stmts, ir.Statement{
			Subject:   row[colSubject],
			Predicate: row[colPredicate],
			Object:    row[colObject],
			Graph:     graphs[i],
		})
	}
	return stmts, nil
}

// triples assembles one triple per row into the reserved columns and
// ir.TripleColumn. Rows with a null position are dropped. The graph term is
// not part of the triple; only the outermost call attaches it.
func (ev *evaluator) triples(ctx context.Context, rule ir.Rule, shape Shape, rs ir.RowSet, path recursionPath) (ir.RowSet, error) {
	switch shape {
	case ShapeConstant, ShapePlain:
		return ev.assemble(rule, rs, "", "")
	case ShapeQuoted:
		return ev.quoted(ctx, rule, rs, path)
	case ShapeParentJoin:
		rs, col, err := ev.parentObject(ctx, rule, rs)
		if err != nil {
			return ir.RowSet{}, err
		}
		return ev.assemble(rule, rs, "", col)
	}
	return ir.RowSet{}, ir.NewShapeError(rule.ID, fmt.Sprintf("%s rule cannot be used as a quoted triple", shape))
}

// assemble expands every position not already present in a column.
func (ev *evaluator) assemble(rule ir.Rule, rs ir.RowSet, subjectCol, objectCol string) (ir.RowSet, error) {
	var subj, obj []string
	var err error

	if subjectCol != "" {
		subj = rs.Column(subjectCol)
	} else if subj, err = ev.gen.Expand(rs, subjectSpec(rule.Subject)); err != nil {
		return ir.RowSet{}, err
	}
	pred, err := ev.gen.Expand(rs, predicateSpec(rule.Predicate))
	if err != nil {
		return ir.RowSet{}, err
	}
	if objectCol != "" {
		obj = rs.Column(objectCol)
	} else if obj, err = ev.objectTerms(rule, rs); err != nil {
		return ir.RowSet{}, err
	}

	out := ir.RowSet{Columns: append([]string(nil), rs.Columns...)}
	for _, c := range []string{colSubject, colPredicate, colObject, ir.TripleColumn} {
		if !out.HasColumn(c) {
			out.Columns = append(out.Columns, c)
		}
	}
	for i, row := range rs.Rows {
		if subj[i] == "" || pred[i] == "" || obj[i] == "" {
			continue
		}
		cp := copyRow(row)
		cp[colSubject] = subj[i]
		cp[colPredicate] = pred[i]
		cp[colObject] = obj[i]
		cp[ir.TripleColumn] = ir.Statement{Subject: subj[i], Predicate: pred[i], Object: obj[i]}.Triple()
		out.Rows = append(out.Rows, cp)
	}
	return out, nil
}

// objectTerms expands the object map and appends the language tag or
// datatype suffix of literal objects.
func (ev *evaluator) objectTerms(rule ir.Rule, rs ir.RowSet) ([]string, error) {
	spec := objectSpec(rule)
	vals, err := ev.gen.Expand(rs, spec)
	if err != nil {
		return nil, err
	}
	ld := rule.LangDatatype
	if ld == nil || spec.TermType != ir.TermLiteral {
		return vals, nil
	}

	suffix, err := ev.gen.Expand(rs, term.Spec{Kind: ld.Kind, Value: ld.Value})
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		if v == "" {
			continue
		}
		switch {
		case suffix[i] == "":
			vals[i] = ""
		case ld.Selector == ir.SelectLanguage:
			vals[i] = v + "@" + suffix[i]
		default:
			vals[i] = v + "^^<" + suffix[i] + ">"
		}
	}
	return vals, nil
}

// quoted handles rules whose subject and/or object is a quoted triples map.
func (ev *evaluator) quoted(ctx context.Context, rule ir.Rule, rs ir.RowSet, path recursionPath) (ir.RowSet, error) {
	var subjCol, objCol string
	var err error

	if rule.Subject.Kind == ir.KindQuoted {
		rs, subjCol, err = ev.quotedColumn(ctx, rule, rule.Subject.Value, rule.SubjectJoin, rs, path, "s")
		if err != nil {
			return ir.RowSet{}, err
		}
	} else if !expandable(rule.Subject.Kind) {
		return ir.RowSet{}, ir.NewShapeError(rule.ID, fmt.Sprintf("subject map kind %q in quoted rule", rule.Subject.Kind))
	}

	switch {
	case rule.Object.Kind == ir.KindQuoted:
		rs, objCol, err = ev.quotedColumn(ctx, rule, rule.Object.Value, rule.ObjectJoin, rs, path, "o")
	case rule.Object.Kind == ir.KindParent:
		rs, objCol, err = ev.parentObject(ctx, rule, rs)
	case !expandable(rule.Object.Kind):
		err = ir.NewShapeError(rule.ID, fmt.Sprintf("object map kind %q in quoted rule", rule.Object.Kind))
	}
	if err != nil {
		return ir.RowSet{}, err
	}
	return ev.assemble(rule, rs, subjCol, objCol)
}

// quotedColumn evaluates the quoted triples map innerID and stores its
// triple, wrapped as << s p o >>, in a new column of rs.
//
// Without join conditions the inner rule is evaluated over the same rows
// (same logical source). With join conditions the inner rule is evaluated
// over its own source and inner-joined with rs.
func (ev *evaluator) quotedColumn(
	ctx context.Context,
	rule ir.Rule,
	innerID string,
	conds []ir.JoinCondition,
	rs ir.RowSet,
	path recursionPath,
	pos string,
) (ir.RowSet, string, error) {
	inner, ok := ev.table.Lookup(innerID)
	if !ok {
		return ir.RowSet{}, "", ir.NewShapeError(rule.ID, fmt.Sprintf("quoted triples map %q not found", innerID))
	}
	next, err := path.enter(innerID)
	if err != nil {
		return ir.RowSet{}, "", err
	}
	shape, err := Classify(inner)
	if err != nil {
		return ir.RowSet{}, "", err
	}
	col := fmt.Sprintf("#q%s%d", pos, path.depth())

	if len(conds) == 0 {
		if inner.Source != rule.Source {
			return ir.RowSet{}, "", ir.NewShapeError(rule.ID, fmt.Sprintf(
				"quoted triples map %q has a different logical source and no join condition", innerID))
		}
		out, err := ev.triples(ctx, inner, shape, rs, next)
		if err != nil {
			return ir.RowSet{}, "", err
		}
		return out.WithColumn(col, quote(out.Column(ir.TripleColumn))), col, nil
	}

	refs := newRefSet()
	refs.add(ev.fetchReferences(inner, false)...)
	for _, jc := range conds {
		refs.add(jc.Parent)
	}
	innerRows, err := ev.fetch(ctx, inner, refs.list())
	if err != nil {
		return ir.RowSet{}, "", err
	}
	innerTriples, err := ev.triples(ctx, inner, shape, innerRows, next)
	if err != nil {
		return ir.RowSet{}, "", err
	}
	joined, err := Join(rs, innerTriples, conds)
	if err != nil {
		return ir.RowSet{}, "", err
	}
	return joined.WithColumn(col, quote(joined.Column(ir.ParentPrefix+ir.TripleColumn))), col, nil
}

// parentObject resolves a referencing object map: the object becomes the
// parent triples map's subject, expanded over the joined parent columns.
func (ev *evaluator) parentObject(ctx context.Context, rule ir.Rule, rs ir.RowSet) (ir.RowSet, string, error) {
	parent, ok := ev.table.Lookup(rule.Object.Value)
	if !ok {
		return ir.RowSet{}, "", ir.NewShapeError(rule.ID, fmt.Sprintf("parent triples map %q not found", rule.Object.Value))
	}
	if !expandable(parent.Subject.Kind) {
		return ir.RowSet{}, "", ir.NewShapeError(rule.ID, fmt.Sprintf(
			"parent triples map %q has a %s subject and cannot be referenced", parent.ID, parent.Subject.Kind))
	}
	spec := subjectSpec(parent.Subject)

	if len(rule.ObjectJoin) == 0 {
		if parent.Source != rule.Source {
			return ir.RowSet{}, "", ir.NewShapeError(rule.ID, fmt.Sprintf(
				"parent triples map %q has a different logical source and no join condition", parent.ID))
		}
		vals, err := ev.gen.Expand(rs, spec)
		if err != nil {
			return ir.RowSet{}, "", err
		}
		return rs.WithColumn(colParent, vals), colParent, nil
	}

	refs := newRefSet()
	refs.add(ev.termReferences(parent.Subject.Kind, parent.Subject.Value)...)
	for _, jc := range rule.ObjectJoin {
		refs.add(jc.Parent)
	}
	parentRows, err := ev.fetch(ctx, parent, refs.list())
	if err != nil {
		return ir.RowSet{}, "", err
	}
	joined, err := Join(rs, parentRows, rule.ObjectJoin)
	if err != nil {
		return ir.RowSet{}, "", err
	}
	vals, err := ev.gen.Expand(joined.Unprefix(ir.ParentPrefix), spec)
	if err != nil {
		return ir.RowSet{}, "", err
	}
	return joined.WithColumn(colParent, vals), colParent, nil
}

// graphTerms expands the graph map for N-Quads output. keep[i] is false
// for rows whose graph term is null. rr:defaultGraph maps to "".
func (ev *evaluator) graphTerms(rule ir.Rule, rs ir.RowSet) ([]string, []bool, error) {
	graphs := make([]string, rs.Len())
	keep := make([]bool, rs.Len())
	for i := range keep {
		keep[i] = true
	}
	if !ev.withGraph() || rule.Graph.IsAbsent() {
		return graphs, keep, nil
	}

	vals, err := ev.gen.Expand(rs, graphSpec(rule.Graph))
	if err != nil {
		return nil, nil, err
	}
	for i, g := range vals {
		switch g {
		case "":
			keep[i] = false
		case "<" + ir.DefaultGraph + ">":
		default:
			graphs[i] = g
		}
	}
	return graphs, keep, nil
}

// fetch reads rows from the data source, classifying failures.
func (ev *evaluator) fetch(ctx context.Context, rule ir.Rule, refs []string) (ir.RowSet, error) {
	rs, err := ev.source.Fetch(ctx, rule, refs)
	if err != nil {
		var me *ir.MaterializeError
		if errors.As(err, &me) {
			return ir.RowSet{}, err
		}
		return ir.RowSet{}, ir.NewDataAccessError(rule.ID, err)
	}
	return rs, nil
}

func subjectSpec(tm ir.TermMap) term.Spec {
	tt := tm.TermType
	if tt == "" {
		tt = ir.TermIRI
	}
	return term.Spec{Kind: tm.Kind, Value: tm.Value, TermType: tt}
}

func predicateSpec(tm ir.TermMap) term.Spec {
	return term.Spec{Kind: tm.Kind, Value: tm.Value, TermType: ir.TermIRI}
}

func graphSpec(tm ir.TermMap) term.Spec {
	return term.Spec{Kind: tm.Kind, Value: tm.Value, TermType: ir.TermIRI}
}

// objectSpec defaults the term type the R2RML way: literal for references
// and for objects with a language or datatype, IRI otherwise.
func objectSpec(rule ir.Rule) term.Spec {
	tm := rule.Object
	tt := tm.TermType
	if tt == "" {
		if tm.Kind == ir.KindReference || rule.LangDatatype != nil {
			tt = ir.TermLiteral
		} else {
			tt = ir.TermIRI
		}
	}
	spec := term.Spec{Kind: tm.Kind, Value: tm.Value, TermType: tt}
	if ld := rule.LangDatatype; ld != nil && ld.Selector == ir.SelectDatatype && ld.Kind == ir.KindConstant {
		spec.Datatype = ld.Value
	}
	return spec
}

func quote(triples []string) []string {
	out := make([]string, len(triples))
	for i, t := range triples {
		out[i] = ir.QuoteTriple(t)
	}
	return out
}

func copyRow(row ir.Row) ir.Row {
	cp := make(ir.Row, len(row)+4)
	for k, v := range row {
		cp[k] = v
	}
	return cp
}
