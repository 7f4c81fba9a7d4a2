package ir

import (
	"io"
	"sort"
	"strings"
)

// Format is the statement serialization.
type Format string

const (
	FormatNTriples Format = "ntriples"
	FormatNQuads   Format = "nquads"
)

// ValidFormats defines allowed output formats.
var ValidFormats = map[Format]bool{
	FormatNTriples: true,
	FormatNQuads:   true,
}

// Statement is a serialized triple with an optional graph term.
// An empty Graph is the default graph.
type Statement struct {
	Subject   string
	Predicate string
	Object    string
	Graph     string
}

// Triple returns "s p o" without graph or terminator.
func (s Statement) Triple() string {
	return s.Subject + " " + s.Predicate + " " + s.Object
}

// QuoteTriple wraps a serialized "s p o" triple as an RDF-star quoted
// triple term. The null triple stays null.
func QuoteTriple(triple string) string {
	if triple == "" {
		return ""
	}
	return "<< " + triple + " >>"
}

// Render serializes the statement without the trailing " .".
// N-Quads appends the graph term unless it is the default graph.
func (s Statement) Render(format Format) string {
	if format == FormatNQuads && s.Graph != "" {
		return s.Triple() + " " + s.Graph
	}
	return s.Triple()
}

// StatementSet is a deduplicated set of rendered statements.
// Not safe for concurrent mutation; workers build their own sets and the
// caller unions them after completion.
type StatementSet struct {
	lines map[string]struct{}
}

// NewStatementSet creates an empty set.
func NewStatementSet() *StatementSet {
	return &StatementSet{lines: make(map[string]struct{})}
}

// Add inserts a rendered statement.
func (s *StatementSet) Add(line string) {
	s.lines[line] = struct{}{}
}

// Contains reports whether the rendered statement is present.
func (s *StatementSet) Contains(line string) bool {
	_, ok := s.lines[line]
	return ok
}

// Union adds every statement of other into s.
func (s *StatementSet) Union(other *StatementSet) {
	if other == nil {
		return
	}
	for line := range other.lines {
		s.lines[line] = struct{}{}
	}
}

// Len returns the number of distinct statements.
func (s *StatementSet) Len() int {
	return len(s.lines)
}

// Sorted returns the statements in lexical order.
func (s *StatementSet) Sorted() []string {
	out := make([]string, 0, len(s.lines))
	for line := range s.lines {
		out = append(out, line)
	}
	sort.Strings(out)
	return out
}

// WriteTo writes one statement per line terminated by " .", in lexical
// order so file output is stable for a given set.
func (s *StatementSet) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	for _, line := range s.Sorted() {
		b.WriteString(line)
		b.WriteString(" .\n")
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}
