package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/roach88/rmlstar/internal/compiler"
	"github.com/roach88/rmlstar/internal/config"
	"github.com/roach88/rmlstar/internal/engine"
	"github.com/roach88/rmlstar/internal/ir"
	"github.com/roach88/rmlstar/internal/sink"
	"github.com/roach88/rmlstar/internal/source"
)

// Harness is the test execution engine.
// It runs scenarios with one worker and deterministic blank node labels.
type Harness struct {
	dir    string
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger passed to the engine and sources.
// Default: logs are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against fixtures staged in a fresh temporary
// directory, removed afterwards.
//
// Execution flow:
//  1. Compile and validate the rules
//  2. Stage source fixtures
//  3. Materialize every partition into an in-memory sink
//  4. Evaluate expectations
//
// Setup failures (bad rules, unwritable fixtures) are returned as errors.
// A materialization error is part of the result: it passes when the
// scenario expects that error code.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	dir, err := os.MkdirTemp("", "rmlstar-scenario-")
	if err != nil {
		return nil, fmt.Errorf("failed to create fixture directory: %w", err)
	}
	defer os.RemoveAll(dir)

	h := &Harness{
		dir:    dir,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	for _, opt := range opts {
		opt(h)
	}
	return h.run(context.Background(), scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	table, err := loadRules(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to compile rules: %w", err)
	}
	if verrs := compiler.Validate(table); len(verrs) > 0 {
		return nil, fmt.Errorf("invalid rules: %v", verrs[0])
	}

	cfg, err := h.stage(ctx, scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to stage sources: %w", err)
	}
	router, err := cfg.OpenRouter(h.logger)
	if err != nil {
		return nil, err
	}
	defer router.Close()

	opts := append(cfg.EngineOptions(),
		engine.WithWorkers(1),
		engine.WithAllocator(engine.NewBlankNodeAllocator("")),
		engine.WithDocumentLoader(router),
		engine.WithLogger(h.logger),
	)
	eng := engine.New(table, router, opts...)

	mem := sink.NewMemory()
	result := NewResult()
	if _, err := eng.MaterializeTo(ctx, mem); err != nil {
		code := errorCode(err)
		if code == "" {
			return nil, fmt.Errorf("materialization failed: %w", err)
		}
		result.ErrorCode = code
	} else {
		result.Statements = mem.Set().Sorted()
		result.Partitions = mem.Partitions()
	}

	for _, msg := range Evaluate(result, scenario.Expect) {
		result.AddError(msg)
	}
	return result, nil
}

func loadRules(s *Scenario) (*ir.RuleTable, error) {
	if s.RulesInline != "" {
		return compiler.CompileSource(s.Name+".cue", s.RulesInline)
	}
	table, _, err := compiler.LoadRules(s.Rules)
	return table, err
}

// stage writes fixtures under the harness directory and returns a config
// whose sources point at them.
func (h *Harness) stage(ctx context.Context, s *Scenario) (config.Config, error) {
	cfg := config.Default()
	cfg.Data.BaseDir = h.dir
	cfg.Data.NullValues = s.NullValues
	cfg.Encoding = s.Encoding
	if s.Format != "" {
		cfg.Output.Format = s.Format
	}
	cfg.Sources = make(map[string]config.SourceConfig, len(s.Sources))

	names := make([]string, 0, len(s.Sources))
	for name := range s.Sources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f := s.Sources[name]
		switch f.Type {
		case ir.SourceRDB:
			dsn := name + ".db"
			if err := stageSQLite(ctx, filepath.Join(h.dir, dsn), f.Tables); err != nil {
				return cfg, fmt.Errorf("source %s: %w", name, err)
			}
			cfg.Sources[name] = config.SourceConfig{Type: f.Type, DSN: dsn}
		case ir.SourceJSON, ir.SourceCSV:
			if err := stageFiles(filepath.Join(h.dir, name), f.Files); err != nil {
				return cfg, fmt.Errorf("source %s: %w", name, err)
			}
			cfg.Sources[name] = config.SourceConfig{Type: f.Type, Path: name}
		case ir.SourceMemory:
			cfg.Sources[name] = config.SourceConfig{Type: f.Type, Tables: f.Tables}
		}
	}
	return cfg, cfg.Validate()
}

func stageSQLite(ctx context.Context, path string, tables map[string]source.Table) error {
	db, err := source.OpenSQLite(path)
	if err != nil {
		return err
	}
	defer db.Close()

	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t := tables[name]
		if err := db.LoadTable(ctx, name, t.Columns, t.Rows); err != nil {
			return err
		}
	}
	return nil
}

func stageFiles(dir string, files map[string]string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func errorCode(err error) ir.ErrorCode {
	var me *ir.MaterializeError
	if errors.As(err, &me) {
		return me.Code
	}
	return ""
}
