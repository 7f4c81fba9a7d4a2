package engine

import (
	"slices"

	"github.com/roach88/rmlstar/internal/ir"
)

// DefaultMaxDepth is the default maximum quoted triples map nesting depth.
const DefaultMaxDepth = 16

// recursionPath is the chain of triples maps on the current evaluation
// path, outermost first.
//
// Quoted triples maps may nest other quoted triples maps. A path that would
// revisit a triples map is a cycle; a path longer than maxDepth is rejected
// even without a revisit so a long chain cannot exhaust the stack.
//
// Paths are values: enter returns an extended copy and never mutates the
// receiver, so sibling evaluations do not see each other's history.
type recursionPath struct {
	ids      []string
	maxDepth int
}

func newRecursionPath(root string, maxDepth int) recursionPath {
	return recursionPath{ids: []string{root}, maxDepth: maxDepth}
}

// enter returns the path extended with id.
func (p recursionPath) enter(id string) (recursionPath, error) {
	next := append(slices.Clone(p.ids), id)
	if slices.Contains(p.ids, id) {
		return p, ir.NewCycleError(next)
	}
	if p.maxDepth > 0 && len(next) > p.maxDepth {
		err := ir.NewCycleError(next)
		err.Message = "maximum quoted triples map nesting depth exceeded: " + err.Message
		return p, err
	}
	return recursionPath{ids: next, maxDepth: p.maxDepth}, nil
}

// depth is the number of triples maps on the path.
func (p recursionPath) depth() int {
	return len(p.ids)
}
