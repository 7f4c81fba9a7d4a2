package engine

import (
	"sort"

	"github.com/roach88/rmlstar/internal/ir"
)

// Join computes the inner equality join of child and parent over conds.
//
// Parent columns are prefixed with ir.ParentPrefix. Rows without a partner
// on the other side produce nothing; that is inner-join semantics, not an
// error. Null join values never match. A join column missing from either
// row-set is a ReferenceError.
//
// Single-key joins build a hash index over the parent and keep child order.
// Multi-key joins sort both sides by the composite key and merge. Both
// produce the same set of rows.
func Join(child, parent ir.RowSet, conds []ir.JoinCondition) (ir.RowSet, error) {
	childKeys := make([]string, len(conds))
	parentKeys := make([]string, len(conds))
	for i, jc := range conds {
		if !child.HasColumn(jc.Child) {
			return ir.RowSet{}, ir.NewReferenceError("", jc.Child)
		}
		if !parent.HasColumn(jc.Parent) {
			return ir.RowSet{}, ir.NewReferenceError("", jc.Parent)
		}
		childKeys[i] = jc.Child
		parentKeys[i] = ir.ParentPrefix + jc.Parent
	}

	parent = parent.Prefix(ir.ParentPrefix)
	out := ir.RowSet{Columns: append(append([]string(nil), child.Columns...), parent.Columns...)}
	if len(conds) == 0 {
		return out, nil
	}
	if len(conds) == 1 {
		out.Rows = hashJoin(child, parent, childKeys[0], parentKeys[0])
	} else {
		out.Rows = mergeJoin(child, parent, childKeys, parentKeys)
	}
	return out, nil
}

// mergeRows combines a child row with an already prefixed parent row.
func mergeRows(c, p ir.Row) ir.Row {
	row := make(ir.Row, len(c)+len(p))
	for k, v := range c {
		row[k] = v
	}
	for k, v := range p {
		row[k] = v
	}
	return row
}

func hashJoin(child, parent ir.RowSet, childKey, parentKey string) []ir.Row {
	index := make(map[string][]int)
	for i, row := range parent.Rows {
		if v := row[parentKey]; v != "" {
			index[v] = append(index[v], i)
		}
	}
	var rows []ir.Row
	for _, c := range child.Rows {
		v := c[childKey]
		if v == "" {
			continue
		}
		for _, pi := range index[v] {
			rows = append(rows, mergeRows(c, parent.Rows[pi]))
		}
	}
	return rows
}

type keyedRow struct {
	key string
	row ir.Row
}

func sortedByKey(rs ir.RowSet, cols []string) []keyedRow {
	out := make([]keyedRow, 0, len(rs.Rows))
rows:
	for _, row := range rs.Rows {
		for _, c := range cols {
			if row[c] == "" {
				continue rows
			}
		}
		out = append(out, keyedRow{key: rs.Key(row, cols), row: row})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

func mergeJoin(child, parent ir.RowSet, childKeys, parentKeys []string) []ir.Row {
	cs := sortedByKey(child, childKeys)
	ps := sortedByKey(parent, parentKeys)

	var rows []ir.Row
	i, j := 0, 0
	for i < len(cs) && j < len(ps) {
		switch {
		case cs[i].key < ps[j].key:
			i++
		case cs[i].key > ps[j].key:
			j++
		default:
			key := cs[i].key
			jEnd := j
			for jEnd < len(ps) && ps[jEnd].key == key {
				jEnd++
			}
			for ; i < len(cs) && cs[i].key == key; i++ {
				for k := j; k < jEnd; k++ {
					rows = append(rows, mergeRows(cs[i].row, ps[k].row))
				}
			}
			j = jEnd
		}
	}
	return rows
}
