package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rmlstar/internal/engine"
	"github.com/roach88/rmlstar/internal/ir"
	"github.com/roach88/rmlstar/internal/source"
	"github.com/roach88/rmlstar/internal/term"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ir.FormatNTriples, cfg.Output.Format)
	assert.Equal(t, OutputStdout, cfg.Output.Kind)
	assert.Equal(t, engine.DefaultMaxDepth, cfg.Engine.MaxNestingDepth)
	assert.Equal(t, 500, cfg.Output.NATS.Batch)
}

func TestParse_Full(t *testing.T) {
	cfg, err := Parse([]byte(`
output:
  format: nquads
  kind: nats
  nats:
    url: nats://bus:4222
    subject: rdf.out
    batch: 100
encoding:
  safe_percent_chars: "/:"
  only_printable: true
  normalize_nfc: true
data:
  null_values: ["NULL", "-"]
  base_dir: /data
sources:
  db:
    type: rdb
    dsn: people.db
  files:
    type: json
    path: docs
  inline:
    type: memory
    tables:
      colors:
        columns: [id, color]
        rows:
          - {id: "1", color: red}
engine:
  workers: 4
  max_nesting_depth: 3
  run_token: 0190c1d2-aaaa-7bbb-8ccc-123456789abc
`))
	require.NoError(t, err)

	assert.Equal(t, ir.FormatNQuads, cfg.Output.Format)
	assert.Equal(t, NATSConfig{URL: "nats://bus:4222", Subject: "rdf.out", Batch: 100}, cfg.Output.NATS)
	assert.Equal(t, term.Options{SafeChars: "/:", OnlyPrintable: true, NormalizeNFC: true}, cfg.TermOptions())
	assert.Equal(t, []string{"NULL", "-"}, cfg.Preprocessor().NullValues)
	assert.Equal(t, []string{"db", "files", "inline"}, cfg.SourceNames())
	assert.Equal(t, "/data/people.db", cfg.Resolve(cfg.Sources["db"].DSN))
	assert.Equal(t, []ir.Row{{"id": "1", "color": "red"}}, cfg.Sources["inline"].Tables["colors"].Rows)
	assert.Equal(t, 4, cfg.Engine.Workers)
	assert.Len(t, cfg.EngineOptions(), 5)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("output:\n  colour: red\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colour")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"format", func(c *Config) { c.Output.Format = "turtle" }, `output.format "turtle"`},
		{"kind", func(c *Config) { c.Output.Kind = "kafka" }, `output.kind "kafka"`},
		{"file dir", func(c *Config) { c.Output.Kind, c.Output.Dir = OutputFile, "" }, "output.dir is required"},
		{"nats subject", func(c *Config) { c.Output.Kind, c.Output.NATS.Subject = OutputNATS, "" }, "output.nats.subject is required"},
		{"workers", func(c *Config) { c.Engine.Workers = -1 }, "engine.workers"},
		{"depth", func(c *Config) { c.Engine.MaxNestingDepth = -2 }, "engine.max_nesting_depth"},
		{"source type", func(c *Config) {
			c.Sources = map[string]SourceConfig{"x": {Type: "oracle"}}
		}, `sources.x.type "oracle"`},
		{"rdb dsn", func(c *Config) {
			c.Sources = map[string]SourceConfig{"db": {Type: ir.SourceRDB}}
		}, "sources.db.dsn is required"},
		{"tables on json", func(c *Config) {
			c.Sources = map[string]SourceConfig{"f": {Type: ir.SourceJSON, Tables: map[string]source.Table{"t": {}}}}
		}, "sources.f.tables"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_ReportsAll(t *testing.T) {
	cfg := Default()
	cfg.Output.Format = "turtle"
	cfg.Engine.Workers = -1
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output.format")
	assert.Contains(t, err.Error(), "engine.workers")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rmlstar.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  kind: file\n  dir: out\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, OutputFile, cfg.Output.Kind)
	assert.Equal(t, dir, cfg.Data.BaseDir, "base dir defaults to the config file's directory")
	assert.Equal(t, filepath.Join(dir, "out"), cfg.Resolve(cfg.Output.Dir))
	assert.Equal(t, "/abs/x", cfg.Resolve("/abs/x"))
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
