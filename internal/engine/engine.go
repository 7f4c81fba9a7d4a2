package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/rmlstar/internal/fnml"
	"github.com/roach88/rmlstar/internal/ir"
	"github.com/roach88/rmlstar/internal/term"
)

// Engine materializes a rule table.
//
// Thread-safety model:
//   - MaterializeRule / MaterializeGroup: safe from any goroutine; each call
//     builds its own StatementSet
//   - Materialize / MaterializeTo: run partitions on a bounded worker pool
//     and union the per-partition sets after every worker has returned
//
// INVARIANTS:
//   - The rule table is never mutated after construction
//   - Blank node labels are unique across the whole engine lifetime
//   - A rule failure aborts its partition and cancels the other partitions
type Engine struct {
	table   *ir.RuleTable
	ev      *evaluator
	workers int
	tokens  RunTokenGenerator
	logger  *slog.Logger
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithFormat selects N-Triples (default) or N-Quads output.
func WithFormat(f ir.Format) EngineOption {
	return func(e *Engine) {
		e.ev.format = f
	}
}

// WithWorkers bounds the number of partitions evaluated in parallel.
//
// Default: runtime.GOMAXPROCS(0). Use WithWorkers(1) for sequential runs.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithMaxDepth sets the maximum quoted triples map nesting depth.
//
// Default: 16 (DefaultMaxDepth). Zero disables the depth bound; revisits
// are still rejected.
func WithMaxDepth(depth int) EngineOption {
	return func(e *Engine) {
		e.ev.maxDepth = depth
	}
}

// WithGenerator replaces the term generator (encoding options, functions).
func WithGenerator(g *term.Generator) EngineOption {
	return func(e *Engine) {
		e.ev.gen = g
	}
}

// WithTermOptions builds the default generator with the given options.
func WithTermOptions(opts term.Options) EngineOption {
	return func(e *Engine) {
		e.ev.gen = term.NewGenerator(opts, fnml.NewRegistry(e.table.Functions))
	}
}

// WithAllocator shares a blank node allocator (tests, multi-table runs).
func WithAllocator(a *BlankNodeAllocator) EngineOption {
	return func(e *Engine) {
		e.ev.alloc = a
	}
}

// WithRunTokens sets where the run token namespacing blank nodes comes
// from. Ignored when WithAllocator is also given.
//
// Default: UUIDv7Generator.
func WithRunTokens(g RunTokenGenerator) EngineOption {
	return func(e *Engine) {
		e.tokens = g
	}
}

// WithDocumentLoader enables empty-array detection for gathers.
func WithDocumentLoader(l DocumentLoader) EngineOption {
	return func(e *Engine) {
		e.ev.docs = l
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine over a rule table and data source.
//
// The rule table's rules slice is copied so later mutation by the caller
// cannot change what the engine evaluates.
func New(table *ir.RuleTable, source DataSource, opts ...EngineOption) *Engine {
	tableCopy := &ir.RuleTable{
		Rules:     append([]ir.Rule(nil), table.Rules...),
		Functions: table.Functions,
	}

	e := &Engine{
		table:   tableCopy,
		workers: runtime.GOMAXPROCS(0),
		tokens:  UUIDv7Generator{},
		logger:  slog.Default(),
		ev: &evaluator{
			table:    tableCopy,
			source:   source,
			gen:      term.NewGenerator(term.Options{}, fnml.NewRegistry(tableCopy.Functions)),
			format:   ir.FormatNTriples,
			maxDepth: DefaultMaxDepth,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.ev.alloc == nil {
		e.ev.alloc = NewBlankNodeAllocator(e.tokens.Generate())
	}
	if e.workers < 1 {
		e.workers = 1
	}
	return e
}

// Format returns the output format.
func (e *Engine) Format() ir.Format {
	return e.ev.format
}

// MaterializeRule evaluates one rule into a fresh set.
//
// Failures are returned as *ir.MaterializeError carrying the triples map id
// and elapsed time, and logged at error level.
func (e *Engine) MaterializeRule(ctx context.Context, rule ir.Rule) (*ir.StatementSet, error) {
	start := time.Now()
	stmts, err := e.ev.evaluate(ctx, rule)
	elapsed := time.Since(start)
	if err != nil {
		err = annotate(err, rule.ID, elapsed)
		e.logger.Error("rule failed",
			"rule", rule.ID,
			"elapsed", elapsed,
			"error", err,
		)
		return nil, err
	}

	set := ir.NewStatementSet()
	for _, st := range stmts {
		set.Add(st.Render(e.ev.format))
	}
	e.logger.Debug("rule materialized",
		"rule", rule.ID,
		"statements", set.Len(),
		"elapsed", elapsed,
	)
	return set, nil
}

// MaterializeGroup evaluates rules sequentially and unions their
// statements, deduplicating across rules.
func (e *Engine) MaterializeGroup(ctx context.Context, rules []ir.Rule) (*ir.StatementSet, error) {
	set := ir.NewStatementSet()
	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rs, err := e.MaterializeRule(ctx, rule)
		if err != nil {
			return nil, err
		}
		set.Union(rs)
	}
	return set, nil
}

// PartitionResult is the statement set of one partition.
type PartitionResult struct {
	Key        string
	Statements *ir.StatementSet
	Elapsed    time.Duration
}

// MaterializePartitions evaluates every partition on the worker pool.
// Results are returned in partition order.
func (e *Engine) MaterializePartitions(ctx context.Context) ([]PartitionResult, error) {
	parts := e.table.Partitions()
	results := make([]PartitionResult, len(parts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, p := range parts {
		i, p := i, p
		g.Go(func() error {
			start := time.Now()
			set, err := e.MaterializeGroup(gctx, p.Rules)
			if err != nil {
				return fmt.Errorf("partition %s: %w", p.Key, err)
			}
			results[i] = PartitionResult{Key: p.Key, Statements: set, Elapsed: time.Since(start)}
			e.logger.Info("partition materialized",
				"partition", p.Key,
				"rules", len(p.Rules),
				"statements", set.Len(),
				"elapsed", results[i].Elapsed,
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Materialize evaluates the whole rule table and returns the union of all
// partitions.
func (e *Engine) Materialize(ctx context.Context) (*ir.StatementSet, error) {
	results, err := e.MaterializePartitions(ctx)
	if err != nil {
		return nil, err
	}
	set := ir.NewStatementSet()
	for _, r := range results {
		set.Union(r.Statements)
	}
	return set, nil
}

// MaterializeTo evaluates every partition and then hands each partition's
// set to the sink, in partition order. Returns the number of statements
// written.
func (e *Engine) MaterializeTo(ctx context.Context, sink Sink) (int, error) {
	results, err := e.MaterializePartitions(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, r := range results {
		if err := sink.Write(ctx, r.Key, r.Statements); err != nil {
			return total, fmt.Errorf("writing partition %s: %w", r.Key, err)
		}
		total += r.Statements.Len()
	}
	return total, nil
}

// annotate attaches the rule id and elapsed time to the MaterializeError
// in err's chain. Errors outside the taxonomy become data access failures;
// context cancellation is returned unchanged.
func annotate(err error, ruleID string, elapsed time.Duration) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var me *ir.MaterializeError
	if !errors.As(err, &me) {
		me = ir.NewDataAccessError(ruleID, err)
		err = me
	}
	if me.RuleID == "" {
		me.RuleID = ruleID
	}
	me.Elapsed = elapsed
	return err
}
