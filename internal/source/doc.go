// Package source implements the data access side of materialization: it
// turns a rule's logical source and a list of references into a row-set.
//
// A Router dispatches each rule to the Connector registered under the
// source's name. Connectors exist for SQLite databases (tables and SQL
// queries), JSON files (JSONPath iterators), CSV files, and in-memory
// tables. Every fetched row-set is preprocessed the same way regardless of
// connector: configured null values become nulls, rows with a null in a
// requested reference are dropped, and duplicates are removed.
//
// Thread-safety: Router and all connectors are safe for concurrent use by
// partition workers.
package source
