package testutil

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// graph is a parsed statement set.
type graph struct {
	stmts  [][]node
	blanks []string
	lines  map[string]bool
}

func parseGraph(lines []string) (*graph, error) {
	g := &graph{lines: make(map[string]bool)}
	seen := make(map[string]bool)
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		st, err := parseStatement(line)
		if err != nil {
			return nil, err
		}
		key := renderStatement(st, nil)
		if g.lines[key] {
			continue
		}
		g.lines[key] = true
		g.stmts = append(g.stmts, st)
		for _, n := range st {
			for _, b := range n.blanks(nil) {
				if !seen[b] {
					seen[b] = true
					g.blanks = append(g.blanks, b)
				}
			}
		}
	}
	return g, nil
}

func renderStatement(st []node, m map[string]string) string {
	parts := make([]string, len(st))
	for i, n := range st {
		parts[i] = n.render(m)
	}
	return strings.Join(parts, " ")
}

// colors assigns each blank node a label refined from the statements it
// occurs in, so only equally colored nodes are tried against each other.
func (g *graph) colors() map[string]string {
	color := make(map[string]string, len(g.blanks))
	for _, b := range g.blanks {
		color[b] = "_"
	}
	distinct := 1
	for round := 0; round < len(g.blanks)+1; round++ {
		next := make(map[string]string, len(g.blanks))
		contexts := make(map[string][]string, len(g.blanks))
		m := make(map[string]string, len(color))
		for k, v := range color {
			m[k] = "_:" + v
		}
		for _, st := range g.stmts {
			for _, b := range blanksOf(st) {
				prev := m[b]
				m[b] = "SELF"
				contexts[b] = append(contexts[b], renderStatement(st, m))
				m[b] = prev
			}
		}
		for _, b := range g.blanks {
			ctx := contexts[b]
			sort.Strings(ctx)
			h := fnv.New64a()
			h.Write([]byte(color[b] + "|" + strings.Join(ctx, "\n")))
			next[b] = fmt.Sprintf("%x", h.Sum64())
		}
		n := countDistinct(next)
		color = next
		if n == distinct {
			break
		}
		distinct = n
	}
	return color
}

func blanksOf(st []node) []string {
	var out []string
	for _, n := range st {
		out = n.blanks(out)
	}
	return out
}

func countDistinct(m map[string]string) int {
	set := make(map[string]bool, len(m))
	for _, v := range m {
		set[v] = true
	}
	return len(set)
}

// Isomorphic reports whether two statement sets are equal up to a
// bijective renaming of blank nodes. Quoted triples are compared
// structurally, including blank nodes inside them.
func Isomorphic(expected, actual []string) (bool, error) {
	a, err := parseGraph(expected)
	if err != nil {
		return false, err
	}
	b, err := parseGraph(actual)
	if err != nil {
		return false, err
	}
	if len(a.stmts) != len(b.stmts) || len(a.blanks) != len(b.blanks) {
		return false, nil
	}

	ca, cb := a.colors(), b.colors()
	candidates := make(map[string][]string, len(b.blanks))
	for _, y := range b.blanks {
		candidates[cb[y]] = append(candidates[cb[y]], y)
	}

	m := make(map[string]string, len(a.blanks))
	used := make(map[string]bool, len(b.blanks))
	var try func(i int) bool
	try = func(i int) bool {
		if i == len(a.blanks) {
			for _, st := range a.stmts {
				if !b.lines[renderStatement(st, m)] {
					return false
				}
			}
			return true
		}
		x := a.blanks[i]
		for _, y := range candidates[ca[x]] {
			if used[y] {
				continue
			}
			m[x], used[y] = y, true
			if consistent(a, b, m) && try(i+1) {
				return true
			}
			delete(m, x)
			used[y] = false
		}
		return false
	}
	return try(0), nil
}

// consistent checks every statement whose blank nodes are all mapped.
func consistent(a, b *graph, m map[string]string) bool {
	for _, st := range a.stmts {
		complete := true
		for _, x := range blanksOf(st) {
			if _, ok := m[x]; !ok {
				complete = false
				break
			}
		}
		if complete && !b.lines[renderStatement(st, m)] {
			return false
		}
	}
	return true
}

// AssertIsomorphic fails the test unless actual equals expected up to blank
// node renaming. Lines may carry a trailing " .".
func AssertIsomorphic(t testing.TB, expected, actual []string, msgAndArgs ...any) bool {
	t.Helper()
	ok, err := Isomorphic(expected, actual)
	if err != nil {
		return assert.Fail(t, "cannot parse statements: "+err.Error(), msgAndArgs...)
	}
	if ok {
		return true
	}
	exp := append([]string(nil), expected...)
	act := append([]string(nil), actual...)
	sort.Strings(exp)
	sort.Strings(act)
	return assert.Fail(t, fmt.Sprintf("statement sets are not isomorphic\nexpected:\n  %s\nactual:\n  %s",
		strings.Join(exp, "\n  "), strings.Join(act, "\n  ")), msgAndArgs...)
}
