// Package harness runs materialization scenarios for conformance testing.
//
// A scenario is a YAML file holding a CUE mapping document (inline or by
// path), source fixtures and the expected statements:
//
//	name: person-names
//	description: Template subjects with literal objects
//	rules_inline: |
//	  triples_map: Person: {...}
//	sources:
//	  db:
//	    type: rdb
//	    tables:
//	      people:
//	        columns: [id, name]
//	        rows:
//	          - {id: "1", name: Ada}
//	expect:
//	  statements:
//	    - <http://ex.org/p/1> <http://ex.org/name> "Ada"
//
// Each run stages the fixtures in a fresh temporary directory: rdb tables
// go into a SQLite database, json and csv files are written to disk, and
// memory tables are served directly. Rules are materialized with one
// worker and unprefixed blank node labels, so the output is deterministic
// and can be compared against golden files. Expected statements are
// compared up to blank node renaming.
package harness
