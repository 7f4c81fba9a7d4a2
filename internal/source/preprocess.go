package source

import (
	"slices"

	"github.com/roach88/rmlstar/internal/ir"
)

// Preprocessor normalizes fetched rows before the engine sees them.
type Preprocessor struct {
	// NullValues are source values treated as null in addition to the
	// empty string (for example "NULL" or "N/A").
	NullValues []string
}

// Apply replaces configured null values with nulls, drops rows with a null
// in any of refs, and removes duplicate rows. Order is preserved.
func (p Preprocessor) Apply(rs ir.RowSet, refs []string) ir.RowSet {
	if len(p.NullValues) > 0 {
		rows := make([]ir.Row, len(rs.Rows))
		for i, row := range rs.Rows {
			cp := make(ir.Row, len(row))
			for k, v := range row {
				if slices.Contains(p.NullValues, v) {
					v = ""
				}
				cp[k] = v
			}
			rows[i] = cp
		}
		rs = ir.RowSet{Columns: rs.Columns, Rows: rows}
	}
	return rs.DropNulls(refs...).Distinct()
}
