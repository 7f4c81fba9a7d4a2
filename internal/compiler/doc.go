// Package compiler turns mapping documents written in CUE into rule tables.
//
// A document declares triples maps and function executions:
//
//	triples_map: "http://ex.org/PersonMap": {
//		source: {name: "db", type: "rdb", value: "people"}
//		subject: {template: "http://ex.org/person/{id}", class: ["http://xmlns.com/foaf/0.1/Person"]}
//		predicate_object: [{
//			predicate: {constant: "http://xmlns.com/foaf/0.1/name"}
//			object: {reference: "name", language: "en"}
//		}]
//	}
//
// Every term map names exactly one of constant, template, reference,
// function, quoted, parent or gather. CompileRules normalizes each triples
// map into one rule per predicate-object pair and graph; Validate and
// AnalyzeCycles check the result before it reaches the engine.
package compiler
