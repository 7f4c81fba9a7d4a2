package engine

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/rmlstar/internal/ir"
)

// memTable is an in-memory logical source: declared columns plus rows.
type memTable struct {
	cols []string
	rows []ir.Row
}

// memSource serves rules from memTables keyed by Source.Value.
type memSource struct {
	tables map[string]memTable

	mu      sync.Mutex
	fetches int
}

func newMemSource(tables map[string]memTable) *memSource {
	return &memSource{tables: tables}
}

func (m *memSource) Fetch(ctx context.Context, rule ir.Rule, refs []string) (ir.RowSet, error) {
	if err := ctx.Err(); err != nil {
		return ir.RowSet{}, err
	}
	m.mu.Lock()
	m.fetches++
	m.mu.Unlock()

	tbl, ok := m.tables[rule.Source.Value]
	if !ok {
		return ir.RowSet{}, fmt.Errorf("table %q does not exist", rule.Source.Value)
	}
	for _, ref := range refs {
		if ref != ir.RecordColumn && !slices.Contains(tbl.cols, ref) {
			return ir.RowSet{}, ir.NewReferenceError(rule.ID, ref)
		}
	}
	out := ir.NewRowSet(refs)
	for i, row := range tbl.rows {
		r := make(ir.Row, len(refs))
		for _, ref := range refs {
			if ref == ir.RecordColumn {
				r[ref] = strconv.Itoa(i)
				continue
			}
			r[ref] = row[ref]
		}
		out.Rows = append(out.Rows, r)
	}
	return out.DropNulls(refs...).Distinct(), nil
}

// memDocs reports empty arrays per reference; every rule sees the same
// document.
type memDocs struct {
	empty map[string][]ir.Row
}

func (d memDocs) Load(ctx context.Context, rule ir.Rule) (Document, error) {
	return d, nil
}

func (d memDocs) HasEmptyArray(ref string) bool {
	return len(d.empty[ref]) > 0
}

func (d memDocs) EmptyOwners(ref string, ownerRefs []string) ([]ir.Row, error) {
	var out []ir.Row
	for _, row := range d.empty[ref] {
		o := make(ir.Row, len(ownerRefs))
		for _, c := range ownerRefs {
			o[c] = row[c]
		}
		out = append(out, o)
	}
	return out, nil
}

// recordingSink keeps every partition it receives.
type recordingSink struct {
	mu         sync.Mutex
	partitions []string
	sets       map[string]*ir.StatementSet
}

func (s *recordingSink) Write(ctx context.Context, partition string, set *ir.StatementSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sets == nil {
		s.sets = make(map[string]*ir.StatementSet)
	}
	s.partitions = append(s.partitions, partition)
	s.sets[partition] = set
	return nil
}

func iri(v string) ir.TermMap {
	return ir.TermMap{Kind: ir.KindConstant, Value: v}
}

func tmpl(v string) ir.TermMap {
	return ir.TermMap{Kind: ir.KindTemplate, Value: v}
}

func ref(v string) ir.TermMap {
	return ir.TermMap{Kind: ir.KindReference, Value: v}
}

func table(name string) ir.Source {
	return ir.Source{Name: "mem", Type: ir.SourceMemory, Value: name}
}

// materialize runs a whole rule table sequentially with plain blank node
// labels and returns the sorted statements.
func materialize(t testing.TB, rules []ir.Rule, src DataSource, opts ...EngineOption) []string {
	t.Helper()
	set, err := materializeErr(rules, src, opts...)
	require.NoError(t, err)
	return set.Sorted()
}

func materializeErr(rules []ir.Rule, src DataSource, opts ...EngineOption) (*ir.StatementSet, error) {
	base := []EngineOption{WithWorkers(1), WithAllocator(NewBlankNodeAllocator(""))}
	e := New(&ir.RuleTable{Rules: rules}, src, append(base, opts...)...)
	return e.Materialize(context.Background())
}
