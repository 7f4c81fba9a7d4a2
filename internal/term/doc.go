// Package term expands term map expressions against a row-set into
// serialized RDF terms.
//
// Expansion is column-oriented: one call produces one term per row. A term
// of "" is a null; callers drop the row rather than emit a statement with a
// missing position.
//
// Lexical rules applied in order:
//   - template substitution (`{ref}`; `\{` and `\}` are literal braces)
//   - percent-encoding of substituted values (IRI templates only)
//   - natural mapping for xsd:boolean, xsd:dateTime and xsd:integer
//   - literal escaping
//   - wrapping by term type (`<iri>`, `_:label`, `"literal"`)
package term
