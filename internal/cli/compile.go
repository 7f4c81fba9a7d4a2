package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/rmlstar/internal/engine"
	"github.com/roach88/rmlstar/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	TriplesMaps int `json:"triples_maps"`
	Rules       int `json:"rules"`
	Partitions  int `json:"partitions"`
	Functions   int `json:"functions"`
}

// CompilationResult is the JSON payload of a successful compile.
type CompilationResult struct {
	Version string           `json:"version"`
	Stats   CompilationStats `json:"stats"`
	Table   *ir.RuleTable    `json:"table"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <rules>",
		Short: "Compile a CUE mapping document to a rule table",
		Long: `Compile a CUE mapping document (a .cue file or a directory holding one
CUE package) into the normalized rule table the engine evaluates.

Each triples map becomes one rule per class, predicate-object pair and
graph. The rule table is printed, or written as JSON with --output.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, rulesPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	loaded, err := LoadMapping(rulesPath)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Read %d CUE file(s) from %s", loaded.FileCount, rulesPath)

	table := loaded.Table
	stats := calculateStats(table)

	if opts.Output != "" {
		if err := writeTableToFile(table, opts.Output); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, "writing output file", err)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(CompilationResult{Version: ir.RuleTableVersion, Stats: stats, Table: table})
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %d triples map(s) into %d rule(s), %d partition(s)\n\n",
		stats.TriplesMaps, stats.Rules, stats.Partitions)
	fmt.Fprintln(formatter.Writer, "Rules:")
	for _, r := range table.Rules {
		shape, err := engine.Classify(r)
		label := shape.String()
		if err != nil {
			label = "unclassified"
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s → %s (%s)\n",
			r.ID, termLabel(r.Subject), termLabel(r.Object), label)
	}
	if opts.Output != "" {
		fmt.Fprintf(formatter.Writer, "\nWrote rule table to %s\n", opts.Output)
	}
	return nil
}

// calculateStats computes summary statistics of a rule table.
func calculateStats(table *ir.RuleTable) CompilationStats {
	maps := make(map[string]bool)
	for _, r := range table.Rules {
		maps[r.ID] = true
	}
	return CompilationStats{
		TriplesMaps: len(maps),
		Rules:       len(table.Rules),
		Partitions:  len(table.Partitions()),
		Functions:   len(table.Functions),
	}
}

// termLabel renders a term map compactly for listings.
func termLabel(t ir.TermMap) string {
	if t.IsAbsent() {
		return "-"
	}
	if t.Value == "" {
		return string(t.Kind)
	}
	return fmt.Sprintf("%s(%s)", t.Kind, t.Value)
}

// outputLoadError reports a load failure. Load failures are command-level
// errors (exit code 2).
func outputLoadError(formatter *OutputFormatter, err error) error {
	code, message := ErrCodeGeneric, err.Error()
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		code, message = loadErr.Code, loadErr.Message
		if formatter.Format != "json" && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
		}
	}
	_ = formatter.Error(code, message, nil)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// writeTableToFile writes the rule table as indented JSON.
func writeTableToFile(table *ir.RuleTable, filename string) error {
	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling rule table: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
