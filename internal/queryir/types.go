package queryir

import "github.com/roach88/rmlstar/internal/ir"

// From is the relation a Projection reads.
//
// This is a sealed interface: only Table and SubQuery implement it.
type From interface {
	fromNode()
}

// Predicate is a row filter.
//
// This is a sealed interface: only NotNull and And implement it.
type Predicate interface {
	predicateNode()
}

// Table reads a base table by name (rr:tableName).
type Table struct {
	Name string
}

func (Table) fromNode() {}

// SubQuery reads the result of an SQL query (rr:sqlQuery / rml:query).
// The query text is embedded verbatim as a derived table.
type SubQuery struct {
	SQL string
}

func (SubQuery) fromNode() {}

// NotNull keeps rows whose Field is not NULL and not the empty string.
type NotNull struct {
	Field string
}

func (NotNull) predicateNode() {}

// And keeps rows satisfying every predicate. An empty And keeps all rows.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Projection selects columns from a relation.
//
// Example:
//
//	Projection{
//	  From:    Table{Name: "employees"},
//	  Columns: []string{"id", "dept"},
//	  Filter:  And{Predicates: []Predicate{NotNull{Field: "id"}, NotNull{Field: "dept"}}},
//	}
//
// Translates to SQLite (see querysql):
//
//	SELECT "id", "dept" FROM (SELECT *, ROW_NUMBER() OVER () - 1 AS "#record" FROM "employees")
//	WHERE "id" IS NOT NULL AND CAST("id" AS TEXT) <> '' AND ...
//	GROUP BY "id", "dept" ORDER BY MIN("#record") ASC
type Projection struct {
	From    From      // Table or SubQuery
	Columns []string  // requested columns, in output order
	Filter  Predicate // nil = no filter
	Record  bool      // also return the record number as RecordColumn
}

// RecordColumn is the output column carrying the 0-based record number.
const RecordColumn = ir.RecordColumn

// RequireAll returns the filter that drops rows with a null in any column.
func RequireAll(columns []string) Predicate {
	if len(columns) == 0 {
		return nil
	}
	preds := make([]Predicate, len(columns))
	for i, c := range columns {
		preds[i] = NotNull{Field: c}
	}
	return And{Predicates: preds}
}
