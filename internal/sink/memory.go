package sink

import (
	"context"
	"sync"

	"github.com/roach88/rmlstar/internal/ir"
)

// Memory collects every partition into one deduplicated set.
type Memory struct {
	mu         sync.Mutex
	set        *ir.StatementSet
	partitions []string
}

// NewMemory creates an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{set: ir.NewStatementSet()}
}

// Write implements engine.Sink.
func (s *Memory) Write(ctx context.Context, partition string, set *ir.StatementSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set.Union(set)
	s.partitions = append(s.partitions, partition)
	return nil
}

// Set returns the union of all partitions written so far.
func (s *Memory) Set() *ir.StatementSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := ir.NewStatementSet()
	out.Union(s.set)
	return out
}

// Partitions returns the partition keys in arrival order.
func (s *Memory) Partitions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.partitions...)
}

// Close implements Sink.
func (s *Memory) Close() error {
	return nil
}
