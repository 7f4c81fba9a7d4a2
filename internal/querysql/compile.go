package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/rmlstar/internal/queryir"
)

// SQLCompiler compiles projections to SQLite SQL.
//
// CRITICAL: every query has an ORDER BY over the record number so row order
// is source order and identical across runs.
// CRITICAL: identifiers are always double-quoted; rule references may
// contain spaces or SQL keywords.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a projection to SQL. Projections carry no literal
// values, so the statement has no parameters.
func (c *SQLCompiler) Compile(p queryir.Projection) (string, error) {
	if result := queryir.Validate(p); !result.Valid {
		return "", fmt.Errorf("invalid projection: %s", strings.Join(result.Errors, "; "))
	}

	from, err := c.compileFrom(p.From)
	if err != nil {
		return "", err
	}
	record := QuoteIdent(queryir.RecordColumn)
	numbered := fmt.Sprintf("(SELECT *, ROW_NUMBER() OVER () - 1 AS %s FROM %s)", record, from)

	cols := make([]string, len(p.Columns))
	for i, col := range p.Columns {
		cols[i] = QuoteIdent(col)
	}

	var where string
	if p.Filter != nil {
		cond, err := c.compilePredicate(p.Filter)
		if err != nil {
			return "", fmt.Errorf("compile filter: %w", err)
		}
		where = " WHERE " + cond
	}

	if p.Record {
		sel := append(cols, record)
		return fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s ASC",
			strings.Join(sel, ", "), numbered, where, record), nil
	}
	if len(cols) == 0 {
		return "", fmt.Errorf("projection selects nothing")
	}

	// GROUP BY collapses duplicates; MIN(record) keeps first-occurrence order.
	list := strings.Join(cols, ", ")
	return fmt.Sprintf("SELECT %s FROM %s%s GROUP BY %s ORDER BY MIN(%s) ASC",
		list, numbered, where, list, record), nil
}

// CompileProbe returns a query that yields the relation's column names and
// no rows.
func (c *SQLCompiler) CompileProbe(f queryir.From) (string, error) {
	from, err := c.compileFrom(f)
	if err != nil {
		return "", err
	}
	return "SELECT * FROM " + from + " LIMIT 0", nil
}

func (c *SQLCompiler) compileFrom(f queryir.From) (string, error) {
	switch from := f.(type) {
	case queryir.Table:
		return QuoteIdent(from.Name), nil
	case queryir.SubQuery:
		q := strings.TrimRight(strings.TrimSpace(from.SQL), ";")
		return "(" + q + ")", nil
	default:
		return "", fmt.Errorf("unsupported relation type: %T", f)
	}
}

func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, error) {
	switch pred := p.(type) {
	case queryir.NotNull:
		col := QuoteIdent(pred.Field)
		return fmt.Sprintf("%s IS NOT NULL AND CAST(%s AS TEXT) <> ''", col, col), nil
	case queryir.And:
		if len(pred.Predicates) == 0 {
			return "1 = 1", nil
		}
		parts := make([]string, 0, len(pred.Predicates))
		for _, sub := range pred.Predicates {
			sql, err := c.compilePredicate(sub)
			if err != nil {
				return "", err
			}
			parts = append(parts, sql)
		}
		return strings.Join(parts, " AND "), nil
	default:
		return "", fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// QuoteIdent quotes an SQLite identifier, doubling embedded quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
