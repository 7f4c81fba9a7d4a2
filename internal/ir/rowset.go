package ir

import (
	"slices"
	"strconv"
	"strings"
)

// Reserved column names. They never collide with source references because
// logical sources cannot produce keys starting with '#'.
const (
	// RecordColumn carries the identity of the source record a row came from.
	RecordColumn = "#record"

	// TripleColumn carries an assembled triple through joins (quoted rules).
	TripleColumn = "#triple"
)

// ParentPrefix is prepended to parent columns by joins.
const ParentPrefix = "parent_"

// Row maps a reference name to its string value.
// A missing key or the empty string is a null.
type Row map[string]string

// RowSet is an ordered sequence of rows with a declared column list.
type RowSet struct {
	Columns []string
	Rows    []Row
}

// NewRowSet creates a row-set over the given columns.
func NewRowSet(columns []string, rows ...Row) RowSet {
	return RowSet{Columns: slices.Clone(columns), Rows: rows}
}

// Len returns the number of rows.
func (rs RowSet) Len() int {
	return len(rs.Rows)
}

// HasColumn reports whether the column is declared.
func (rs RowSet) HasColumn(name string) bool {
	return slices.Contains(rs.Columns, name)
}

// Column returns the values of one column in row order.
func (rs RowSet) Column(name string) []string {
	out := make([]string, len(rs.Rows))
	for i, row := range rs.Rows {
		out[i] = row[name]
	}
	return out
}

// WithColumn returns a copy with the column set to vals (one per row).
// Rows are copied; the receiver is not modified.
func (rs RowSet) WithColumn(name string, vals []string) RowSet {
	out := RowSet{Columns: slices.Clone(rs.Columns), Rows: make([]Row, len(rs.Rows))}
	if !out.HasColumn(name) {
		out.Columns = append(out.Columns, name)
	}
	for i, row := range rs.Rows {
		cp := make(Row, len(row)+1)
		for k, v := range row {
			cp[k] = v
		}
		cp[name] = vals[i]
		out.Rows[i] = cp
	}
	return out
}

// Filter returns the rows for which keep returns true, preserving order.
func (rs RowSet) Filter(keep func(Row) bool) RowSet {
	out := RowSet{Columns: slices.Clone(rs.Columns)}
	for _, row := range rs.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// DropNulls removes rows with a null in any of the given columns.
func (rs RowSet) DropNulls(columns ...string) RowSet {
	return rs.Filter(func(row Row) bool {
		for _, c := range columns {
			if row[c] == "" {
				return false
			}
		}
		return true
	})
}

// Prefix returns a copy with every column renamed to prefix+name.
func (rs RowSet) Prefix(prefix string) RowSet {
	out := RowSet{Columns: make([]string, len(rs.Columns)), Rows: make([]Row, len(rs.Rows))}
	for i, c := range rs.Columns {
		out.Columns[i] = prefix + c
	}
	for i, row := range rs.Rows {
		cp := make(Row, len(row))
		for k, v := range row {
			cp[prefix+k] = v
		}
		out.Rows[i] = cp
	}
	return out
}

// Unprefix returns a copy keeping only columns that start with prefix,
// with the prefix removed.
func (rs RowSet) Unprefix(prefix string) RowSet {
	out := RowSet{Rows: make([]Row, len(rs.Rows))}
	for _, c := range rs.Columns {
		if strings.HasPrefix(c, prefix) {
			out.Columns = append(out.Columns, strings.TrimPrefix(c, prefix))
		}
	}
	for i, row := range rs.Rows {
		cp := make(Row, len(out.Columns))
		for k, v := range row {
			if strings.HasPrefix(k, prefix) {
				cp[strings.TrimPrefix(k, prefix)] = v
			}
		}
		out.Rows[i] = cp
	}
	return out
}

// Distinct removes duplicate rows over the declared columns, keeping the
// first occurrence.
func (rs RowSet) Distinct() RowSet {
	seen := make(map[string]bool, len(rs.Rows))
	out := RowSet{Columns: slices.Clone(rs.Columns)}
	for _, row := range rs.Rows {
		key := rs.Key(row, rs.Columns)
		if seen[key] {
			continue
		}
		seen[key] = true
		out.Rows = append(out.Rows, row)
	}
	return out
}

// Key builds a composite key for a row over the given columns.
// Each value is length-prefixed, so no value content can make two
// different tuples encode to the same key.
func (rs RowSet) Key(row Row, columns []string) string {
	var b strings.Builder
	for _, c := range columns {
		v := row[c]
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteByte(':')
		b.WriteString(v)
	}
	return b.String()
}
