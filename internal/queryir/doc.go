// Package queryir is the query intermediate representation for relational
// logical sources.
//
// A rule never hands raw SQL to the database layer. The source router
// describes what it needs from a table or query as a Projection, and a
// backend compiler (internal/querysql) turns that into dialect SQL:
//
//	[ir.Source + references] -> [Projection] -> [SQLite SQL]
//
// PROJECTION SEMANTICS:
//
// A Projection yields the requested columns of every source record as
// strings, with rows holding a NULL in any requested column removed and
// duplicate rows collapsed to their first occurrence. Rows come back in
// source record order. When Record is set, the 0-based record number is
// returned as an extra column and duplicates are kept (every record is
// distinct).
//
// SEALED INTERFACES:
//
// From and Predicate are sealed interfaces using the marker method pattern.
// Only types in this package implement them, so backend compilers can use
// exhaustive type switches:
//
//	switch f := p.From.(type) {
//	case Table:
//	    // FROM "name"
//	case SubQuery:
//	    // FROM (sql)
//	}
package queryir
