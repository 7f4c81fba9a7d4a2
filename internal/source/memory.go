package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/rmlstar/internal/engine"
	"github.com/roach88/rmlstar/internal/ir"
)

// Memory serves tables held in memory, keyed by Source.Value.
type Memory struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

// NewMemory creates an empty in-memory connector.
func NewMemory() *Memory {
	return &Memory{tables: make(map[string]*Table)}
}

// Put stores a table under name, replacing any previous one.
func (m *Memory) Put(name string, t Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[name] = &t
}

// Type implements Connector.
func (m *Memory) Type() ir.SourceType {
	return ir.SourceMemory
}

// Close implements Connector.
func (m *Memory) Close() error {
	return nil
}

// Fetch implements Connector.
func (m *Memory) Fetch(ctx context.Context, rule ir.Rule, refs []string) (ir.RowSet, error) {
	m.mu.RLock()
	t, ok := m.tables[rule.Source.Value]
	m.mu.RUnlock()
	if !ok {
		return ir.RowSet{}, fmt.Errorf("table %q does not exist", rule.Source.Value)
	}
	return t.project(rule.ID, refs)
}

// Load implements Connector. Memory tables are flat.
func (m *Memory) Load(ctx context.Context, rule ir.Rule) (engine.Document, error) {
	return emptyDocument{}, nil
}
