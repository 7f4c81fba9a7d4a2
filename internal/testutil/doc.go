// Package testutil provides helpers for comparing materialized statements.
//
// Materialization mints fresh blank nodes on every run, so tests compare
// statement sets up to blank node renaming (graph isomorphism) rather than
// by string equality.
package testutil
