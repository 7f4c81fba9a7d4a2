// Package config loads the materialization settings of an rmlstar run.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rmlstar/internal/engine"
	"github.com/roach88/rmlstar/internal/ir"
	"github.com/roach88/rmlstar/internal/source"
	"github.com/roach88/rmlstar/internal/term"
)

// Output kinds.
const (
	OutputStdout = "stdout"
	OutputFile   = "file"
	OutputNATS   = "nats"
)

// Config is the complete run configuration. It is passed by value and not
// modified after Load.
type Config struct {
	Output   OutputConfig            `yaml:"output"`
	Encoding EncodingConfig          `yaml:"encoding"`
	Data     DataConfig              `yaml:"data"`
	Sources  map[string]SourceConfig `yaml:"sources"`
	Engine   EngineConfig            `yaml:"engine"`
}

// OutputConfig selects the serialization and the sink.
type OutputConfig struct {
	// Format is "ntriples" (default) or "nquads".
	Format ir.Format `yaml:"format"`
	// Kind is "stdout" (default), "file" or "nats".
	Kind string `yaml:"kind"`
	// Dir receives one file per partition when Kind is "file".
	Dir string `yaml:"dir"`
	// NATS configures the message-bus sink.
	NATS NATSConfig `yaml:"nats"`
}

// NATSConfig configures the NATS sink.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
	// Batch is the number of statements per message.
	Batch int `yaml:"batch"`
}

// EncodingConfig controls term generation.
type EncodingConfig struct {
	// SafePercentChars are kept unencoded in IRI templates.
	SafePercentChars string `yaml:"safe_percent_chars"`
	OnlyPrintable    bool   `yaml:"only_printable"`
	NormalizeNFC     bool   `yaml:"normalize_nfc"`
}

// DataConfig controls source preprocessing.
type DataConfig struct {
	// NullValues are source values treated as null, in addition to "".
	NullValues []string `yaml:"null_values"`
	// BaseDir resolves relative source paths and DSNs.
	BaseDir string `yaml:"base_dir"`
}

// SourceConfig is one named connection referenced by rules.
type SourceConfig struct {
	Type ir.SourceType `yaml:"type"`
	// DSN is the database file for rdb sources.
	DSN string `yaml:"dsn,omitempty"`
	// Path is the directory holding json and csv files.
	Path string `yaml:"path,omitempty"`
	// Tables are inline tables for memory sources.
	Tables map[string]source.Table `yaml:"tables,omitempty"`
}

// EngineConfig tunes the materializer.
type EngineConfig struct {
	// Workers bounds parallel partitions; 0 uses GOMAXPROCS.
	Workers int `yaml:"workers"`
	// MaxNestingDepth bounds quoted triples map recursion; 0 disables it.
	MaxNestingDepth int `yaml:"max_nesting_depth"`
	// RunToken namespaces blank node labels; empty generates a fresh one.
	RunToken string `yaml:"run_token"`
}

// Default returns a Config with the built-in defaults.
func Default() Config {
	return Config{
		Output: OutputConfig{
			Format: ir.FormatNTriples,
			Kind:   OutputStdout,
			Dir:    "output",
			NATS: NATSConfig{
				URL:     "nats://127.0.0.1:4222",
				Subject: "rmlstar.statements",
				Batch:   500,
			},
		},
		Engine: EngineConfig{
			MaxNestingDepth: engine.DefaultMaxDepth,
		},
	}
}

// Load reads a YAML file over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.Data.BaseDir == "" {
		cfg.Data.BaseDir = filepath.Dir(path)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if !ir.ValidFormats[c.Output.Format] {
		errs = append(errs, fmt.Errorf("output.format %q must be ntriples or nquads", c.Output.Format))
	}
	switch c.Output.Kind {
	case OutputStdout:
	case OutputFile:
		if c.Output.Dir == "" {
			errs = append(errs, errors.New("output.dir is required for file output"))
		}
	case OutputNATS:
		if c.Output.NATS.URL == "" {
			errs = append(errs, errors.New("output.nats.url is required for nats output"))
		}
		if c.Output.NATS.Subject == "" {
			errs = append(errs, errors.New("output.nats.subject is required for nats output"))
		}
		if c.Output.NATS.Batch < 0 {
			errs = append(errs, errors.New("output.nats.batch must not be negative"))
		}
	default:
		errs = append(errs, fmt.Errorf("output.kind %q must be stdout, file or nats", c.Output.Kind))
	}
	if c.Engine.Workers < 0 {
		errs = append(errs, errors.New("engine.workers must not be negative"))
	}
	if c.Engine.MaxNestingDepth < 0 {
		errs = append(errs, errors.New("engine.max_nesting_depth must not be negative"))
	}

	for _, name := range c.SourceNames() {
		sc := c.Sources[name]
		field := "sources." + name
		if !ir.ValidSourceTypes[sc.Type] {
			errs = append(errs, fmt.Errorf("%s.type %q must be rdb, json, csv or memory", field, sc.Type))
			continue
		}
		switch sc.Type {
		case ir.SourceRDB:
			if sc.DSN == "" {
				errs = append(errs, fmt.Errorf("%s.dsn is required for rdb sources", field))
			}
		case ir.SourceMemory:
			if sc.DSN != "" || sc.Path != "" {
				errs = append(errs, fmt.Errorf("%s: memory sources take tables only", field))
			}
		}
		if sc.Type != ir.SourceMemory && len(sc.Tables) > 0 {
			errs = append(errs, fmt.Errorf("%s.tables apply to memory sources only", field))
		}
	}
	return errors.Join(errs...)
}

// SourceNames returns the configured connection names in sorted order.
func (c Config) SourceNames() []string {
	names := make([]string, 0, len(c.Sources))
	for name := range c.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve makes a relative path relative to data.base_dir.
func (c Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.Data.BaseDir == "" {
		return path
	}
	return filepath.Join(c.Data.BaseDir, path)
}

// TermOptions returns the term generation options.
func (c Config) TermOptions() term.Options {
	return term.Options{
		SafeChars:     c.Encoding.SafePercentChars,
		OnlyPrintable: c.Encoding.OnlyPrintable,
		NormalizeNFC:  c.Encoding.NormalizeNFC,
	}
}

// Preprocessor returns the source preprocessing settings.
func (c Config) Preprocessor() source.Preprocessor {
	return source.Preprocessor{NullValues: append([]string(nil), c.Data.NullValues...)}
}

// EngineOptions returns the engine options derived from the config.
// Callers append their own options (logger, document loader) after these.
func (c Config) EngineOptions() []engine.EngineOption {
	opts := []engine.EngineOption{
		engine.WithFormat(c.Output.Format),
		engine.WithMaxDepth(c.Engine.MaxNestingDepth),
		engine.WithTermOptions(c.TermOptions()),
	}
	if c.Engine.Workers > 0 {
		opts = append(opts, engine.WithWorkers(c.Engine.Workers))
	}
	if c.Engine.RunToken != "" {
		opts = append(opts, engine.WithAllocator(engine.NewBlankNodeAllocator(c.Engine.RunToken)))
	}
	return opts
}
