// Package engine implements the rmlstar materialization engine.
//
// Given a normalized rule table and a data source, the engine produces the
// RDF statements each rule entails: term encoding, child/parent joins,
// RDF-star quoted triples (recursively), and RML-CC lists and containers.
//
// ARCHITECTURE:
//
// Rule Shapes:
// Every rule is classified once by Classify into exactly one Shape. The
// evaluator dispatches on the shape; shapes are checked in priority order
// (constant, quoted, parent join, object gathers, subject gathers, plain).
//
// Row-sets:
// Evaluation is column-oriented. A rule's row-set is fetched from the
// DataSource, joined or filtered, and carries the assembled terms in
// reserved columns (#s, #p, #o, #triple) so nested quoted rules can be
// joined like any other parent.
//
// Partitions:
// Rules inside a partition run sequentially. Partitions run in parallel,
// each worker building its own StatementSet; sets are unioned only after
// every worker completes. The BlankNodeAllocator is the only shared state.
//
// CRITICAL PATTERNS:
//
// Contiguous groups:
// Collection construction scans rows and closes a list or container when
// the owner key changes. Rows are explicitly sorted by owner key before the
// scan; input order is never trusted.
//
// Recursion guard:
// Quoted triples maps may nest. Every nested evaluation extends a path of
// visited triples maps and fails with CYCLE_DETECTED on revisit or when the
// configured maximum depth is exceeded.
package engine
