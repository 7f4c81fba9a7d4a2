// Package ir provides the intermediate representation shared by every
// rmlstar package: normalized mapping rules, row-sets fetched from logical
// sources, and serialized RDF statements.
//
// This package contains type definitions and small value helpers only. All
// other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - One Rule per triples map x predicate-object map combination
//   - Row values are strings; a missing key (or "") is a null
//   - Terms are already serialized (`<iri>`, `_:label`, `"lit"@en`)
//   - StatementSet is a set: structural dedup, order-irrelevant
package ir
