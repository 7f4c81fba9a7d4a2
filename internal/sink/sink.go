package sink

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/roach88/rmlstar/internal/engine"
	"github.com/roach88/rmlstar/internal/ir"
)

// Sink receives partition sets and releases its resources on Close.
type Sink interface {
	engine.Sink
	Close() error
}

// Writer writes every partition to one io.Writer, in the order the
// partitions arrive. Lines end in " .".
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter creates a sink writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write implements engine.Sink.
func (s *Writer) Write(ctx context.Context, partition string, set *ir.StatementSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := set.WriteTo(s.w); err != nil {
		return fmt.Errorf("write partition %s: %w", partition, err)
	}
	return nil
}

// Close implements Sink. The underlying writer is not closed.
func (s *Writer) Close() error {
	return nil
}

var (
	_ Sink = (*Writer)(nil)
	_ Sink = (*Files)(nil)
	_ Sink = (*NATS)(nil)
	_ Sink = (*Memory)(nil)
)
