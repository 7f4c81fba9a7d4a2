package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/rmlstar/internal/ir"
)

// CycleReport describes a cycle of quoted triples map references.
//
// The engine rejects such cycles at run time with CYCLE_DETECTED, so every
// report is an error unless the cycle only passes through parent references.
type CycleReport struct {
	Path    []string `json:"path"`    // ["TM1", "TM2", "TM1"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "error" or "warning"
}

// AnalyzeCycles performs static cycle analysis over the quoted and parent
// references of a rule table.
//
// The algorithm:
//  1. Build a triples map reference graph (quoted and parent edges)
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-loop
//
// A component that contains a quoted edge is an error; the evaluator would
// recurse through it. Parent-only components never recurse (only the
// parent's subject map is used) and are reported as warnings.
//
// An acyclic table returns an empty list. Reports are ordered by the first
// triples map of each cycle.
func AnalyzeCycles(table *ir.RuleTable) []CycleReport {
	if table == nil || len(table.Rules) == 0 {
		return []CycleReport{}
	}

	graph := buildReferenceGraph(table)
	sccs := tarjanSCC(graph)

	reports := []CycleReport{}
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && graph.hasEdge(scc[0], scc[0])) {
			reports = append(reports, sccToReport(scc, graph))
		}
	}
	slices.SortFunc(reports, func(a, b CycleReport) int {
		return strings.Compare(a.Path[0], b.Path[0])
	})
	return reports
}

// referenceGraph maps triples map id → referenced ids, in rule order.
type referenceGraph struct {
	nodes  []string
	edges  map[string][]string
	quoted map[[2]string]bool
}

func (g *referenceGraph) addNode(id string) {
	if _, ok := g.edges[id]; !ok {
		g.edges[id] = nil
		g.nodes = append(g.nodes, id)
	}
}

func (g *referenceGraph) addEdge(from, to string, quoted bool) {
	g.addNode(from)
	g.addNode(to)
	if !slices.Contains(g.edges[from], to) {
		g.edges[from] = append(g.edges[from], to)
	}
	if quoted {
		g.quoted[[2]string{from, to}] = true
	}
}

func (g *referenceGraph) hasEdge(from, to string) bool {
	return slices.Contains(g.edges[from], to)
}

// buildReferenceGraph adds an edge for every quoted subject/object and
// every parent object.
func buildReferenceGraph(table *ir.RuleTable) *referenceGraph {
	g := &referenceGraph{
		edges:  make(map[string][]string),
		quoted: make(map[[2]string]bool),
	}
	for _, r := range table.Rules {
		g.addNode(r.ID)
		for _, tm := range []ir.TermMap{r.Subject, r.Object} {
			switch tm.Kind {
			case ir.KindQuoted:
				g.addEdge(r.ID, tm.Value, true)
			case ir.KindParent:
				g.addEdge(r.ID, tm.Value, false)
			}
		}
	}
	return g
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in rule order so the output is deterministic.
func tarjanSCC(graph *referenceGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph.edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range graph.nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// sccToReport converts an SCC into a report with a reconstructed cycle path
// starting at the member declared first.
func sccToReport(scc []string, graph *referenceGraph) CycleReport {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}
	start := scc[0]
	for _, n := range graph.nodes {
		if members[n] {
			start = n
			break
		}
	}

	var path []string
	if len(scc) == 1 {
		path = []string{start, start}
	} else {
		path = reconstructCyclePath(start, members, graph)
	}

	level := "warning"
	for edge := range graph.quoted {
		if members[edge[0]] && members[edge[1]] {
			level = "error"
			break
		}
	}

	kind := "parent"
	if level == "error" {
		kind = "quoted"
	}
	return CycleReport{
		Path:    path,
		Message: fmt.Sprintf("%s triples map cycle: %s", kind, strings.Join(path, " → ")),
		Level:   level,
	}
}

// reconstructCyclePath follows edges inside the SCC from start until it
// returns to start.
func reconstructCyclePath(start string, members map[string]bool, graph *referenceGraph) []string {
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph.edges[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
