package sink

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/rmlstar/internal/ir"
)

// Files writes each partition to its own file in a directory:
// <dir>/<partition>.nt for N-Triples, .nq for N-Quads.
type Files struct {
	dir    string
	ext    string
	logger *slog.Logger
}

// NewFiles creates the output directory if needed.
func NewFiles(dir string, format ir.Format, logger *slog.Logger) (*Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Files{dir: dir, ext: Extension(format), logger: logger}, nil
}

// Extension returns the file extension for a format.
func Extension(format ir.Format) string {
	if format == ir.FormatNQuads {
		return ".nq"
	}
	return ".nt"
}

// Path returns the file a partition is written to.
func (s *Files) Path(partition string) string {
	return filepath.Join(s.dir, safeName(partition)+s.ext)
}

// Write implements engine.Sink. An existing file is replaced.
func (s *Files) Write(ctx context.Context, partition string, set *ir.StatementSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.Path(partition)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := set.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	s.logger.Info("partition written",
		"partition", partition,
		"path", path,
		"statements", set.Len(),
	)
	return nil
}

// Close implements Sink.
func (s *Files) Close() error {
	return nil
}

// safeName maps a partition key to a file name component.
func safeName(partition string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, partition)
	name = strings.Trim(name, ".")
	if name == "" {
		return "partition"
	}
	return name
}
