package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/rmlstar/internal/config"
	"github.com/roach88/rmlstar/internal/engine"
	"github.com/roach88/rmlstar/internal/ir"
)

// MaterializeOptions holds flags for the materialize command.
type MaterializeOptions struct {
	*RootOptions
	Config    string
	RDFFormat string
	OutDir    string
	Workers   int
	RunToken  string
}

// MaterializeResult summarizes a successful run.
type MaterializeResult struct {
	Statements int    `json:"statements"`
	Partitions int    `json:"partitions"`
	Rules      int    `json:"rules"`
	Format     string `json:"rdf_format"`
	Output     string `json:"output"`
	Elapsed    string `json:"elapsed"`
}

// NewMaterializeCommand creates the materialize command.
func NewMaterializeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MaterializeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "materialize <rules>",
		Short: "Materialize RDF statements from a mapping document",
		Long: `Compile and validate a mapping document, then evaluate every partition
against the configured sources and write the statements to the configured
sink (stdout, one file per partition, or NATS).

Sources, encoding options and the sink are read from --config. Flags
override the corresponding config settings.

Example:
  rmlstar materialize --config rmlstar.yaml ./rules
  rmlstar materialize --config rmlstar.yaml --rdf-format nquads --out ./out rules.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMaterialize(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "path to YAML config")
	cmd.Flags().StringVar(&opts.RDFFormat, "rdf-format", "", "statement serialization (ntriples|nquads)")
	cmd.Flags().StringVarP(&opts.OutDir, "out", "o", "", "write one file per partition into this directory")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "partitions evaluated in parallel (default GOMAXPROCS)")
	cmd.Flags().StringVar(&opts.RunToken, "run-token", "", "blank node namespace (default: fresh UUIDv7)")

	return cmd
}

// loadConfig reads the config file, or the defaults when none is given,
// and applies flag overrides.
func loadConfig(opts *MaterializeOptions) (config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		var err error
		if cfg, err = config.Load(opts.Config); err != nil {
			return cfg, err
		}
	}
	if opts.RDFFormat != "" {
		cfg.Output.Format = ir.Format(opts.RDFFormat)
	}
	if opts.OutDir != "" {
		// Flag paths are relative to the working directory, not the config.
		dir, err := filepath.Abs(opts.OutDir)
		if err != nil {
			return cfg, err
		}
		cfg.Output.Kind = config.OutputFile
		cfg.Output.Dir = dir
	}
	if opts.Workers != 0 {
		cfg.Engine.Workers = opts.Workers
	}
	if opts.RunToken != "" {
		cfg.Engine.RunToken = opts.RunToken
	}
	return cfg, cfg.Validate()
}

func runMaterialize(opts *MaterializeOptions, rulesPath string, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := loadConfig(opts)

	// Statements own stdout when the sink is stdout; the summary moves to stderr.
	summaryWriter := cmd.OutOrStdout()
	if cfg.Output.Kind == config.OutputStdout {
		summaryWriter = cmd.ErrOrStderr()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    summaryWriter,
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	logger.Info("compiling rules", "path", rulesPath)
	loaded, err := LoadMapping(rulesPath)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	table := loaded.Table

	errs, warnings := checkTable(table)
	for _, w := range warnings {
		logger.Warn("triples map cycle", "path", w.Path, "message", w.Message)
	}
	if len(errs) > 0 {
		return outputValidationErrors(formatter, errs, nil)
	}
	logger.Info("rules compiled",
		"files", loaded.FileCount,
		"rules", len(table.Rules),
		"partitions", len(table.Partitions()),
	)

	router, err := cfg.OpenRouter(logger)
	if err != nil {
		_ = formatter.Error(ErrCodeSource, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open sources", err)
	}
	defer router.Close()

	snk, err := cfg.OpenSink(cmd.OutOrStdout(), logger)
	if err != nil {
		_ = formatter.Error(ErrCodeSource, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open sink", err)
	}

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := engine.New(table, router, append(cfg.EngineOptions(),
		engine.WithDocumentLoader(router),
		engine.WithLogger(logger),
	)...)

	start := time.Now()
	n, err := eng.MaterializeTo(ctx, snk)
	if closeErr := snk.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("closing sink: %w", closeErr)
	}
	elapsed := time.Since(start)
	if err != nil {
		logger.Error("materialization failed", "error", err, "elapsed", elapsed)
		formatter.MaterializeFailure(err)
		return WrapExitError(ExitFailure, "materialization failed", err)
	}

	result := MaterializeResult{
		Statements: n,
		Partitions: len(table.Partitions()),
		Rules:      len(table.Rules),
		Format:     string(cfg.Output.Format),
		Output:     describeOutput(cfg),
		Elapsed:    elapsed.String(),
	}
	logger.Info("materialization complete",
		"statements", result.Statements,
		"partitions", result.Partitions,
		"elapsed", elapsed,
	)

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Materialized %d statement(s) from %d partition(s) to %s\n",
		result.Statements, result.Partitions, result.Output)
	return nil
}

func describeOutput(cfg config.Config) string {
	switch cfg.Output.Kind {
	case config.OutputFile:
		return cfg.Resolve(cfg.Output.Dir)
	case config.OutputNATS:
		return cfg.Output.NATS.URL + " " + cfg.Output.NATS.Subject
	default:
		return "stdout"
	}
}
