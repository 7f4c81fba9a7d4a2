package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/rmlstar/internal/engine"
	"github.com/roach88/rmlstar/internal/ir"
)

// Connector reads one kind of logical source.
//
// Fetch returns one row per source record (or per exploded array element
// for JSON) with a column per requested reference. Connectors do not need
// to drop nulls or duplicates; the Router does.
type Connector interface {
	Type() ir.SourceType
	Fetch(ctx context.Context, rule ir.Rule, refs []string) (ir.RowSet, error)
	Load(ctx context.Context, rule ir.Rule) (engine.Document, error)
	Close() error
}

// Router implements engine.DataSource and engine.DocumentLoader over named
// connectors.
type Router struct {
	mu         sync.RWMutex
	connectors map[string]Connector
	pre        Preprocessor
	logger     *slog.Logger
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithPreprocessor sets the null-value handling applied to every fetch.
func WithPreprocessor(p Preprocessor) RouterOption {
	return func(r *Router) {
		r.pre = p
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = l
	}
}

// NewRouter creates an empty router.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		connectors: make(map[string]Connector),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register binds a source name to a connector, replacing any previous one.
func (r *Router) Register(name string, c Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[name] = c
	r.logger.Debug("source registered", "source", name, "type", c.Type())
}

// Names returns the registered source names in sorted order.
func (r *Router) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.connectors))
	for n := range r.connectors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Router) resolve(rule ir.Rule) (Connector, error) {
	r.mu.RLock()
	c, ok := r.connectors[rule.Source.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, ir.NewDataAccessError(rule.ID, fmt.Errorf("no connection registered for source %q", rule.Source.Name))
	}
	if c.Type() != rule.Source.Type {
		return nil, ir.NewDataAccessError(rule.ID, fmt.Errorf(
			"source %q is a %s connection, rule expects %s", rule.Source.Name, c.Type(), rule.Source.Type))
	}
	return c, nil
}

// Fetch implements engine.DataSource.
//
// A rule with no references still yields one row per source record (via
// ir.RecordColumn) so its constant terms are emitted once per record.
func (r *Router) Fetch(ctx context.Context, rule ir.Rule, refs []string) (ir.RowSet, error) {
	c, err := r.resolve(rule)
	if err != nil {
		return ir.RowSet{}, err
	}
	if len(refs) == 0 {
		refs = []string{ir.RecordColumn}
	}
	rs, err := c.Fetch(ctx, rule, refs)
	if err != nil {
		return ir.RowSet{}, classify(rule.ID, err)
	}
	out := r.pre.Apply(rs, refs)
	r.logger.Debug("source fetched",
		"rule", rule.ID,
		"source", rule.Source.Name,
		"references", len(refs),
		"rows", out.Len(),
	)
	return out, nil
}

// Load implements engine.DocumentLoader.
func (r *Router) Load(ctx context.Context, rule ir.Rule) (engine.Document, error) {
	c, err := r.resolve(rule)
	if err != nil {
		return nil, err
	}
	doc, err := c.Load(ctx, rule)
	if err != nil {
		return nil, classify(rule.ID, err)
	}
	return doc, nil
}

// Close closes every registered connector and returns the joined errors.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for name, c := range r.connectors {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close source %s: %w", name, err))
		}
	}
	r.connectors = make(map[string]Connector)
	return errors.Join(errs...)
}

// classify keeps taxonomy errors (unknown references) and context errors,
// and reports everything else as a data access failure.
func classify(ruleID string, err error) error {
	var me *ir.MaterializeError
	if errors.As(err, &me) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return ir.NewDataAccessError(ruleID, err)
}

// emptyDocument is the document of sources without nested arrays.
type emptyDocument struct{}

func (emptyDocument) HasEmptyArray(string) bool { return false }

func (emptyDocument) EmptyOwners(string, []string) ([]ir.Row, error) { return nil, nil }

var (
	_ engine.DataSource     = (*Router)(nil)
	_ engine.DocumentLoader = (*Router)(nil)
)
