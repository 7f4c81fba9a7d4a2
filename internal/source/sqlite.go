package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/rmlstar/internal/engine"
	"github.com/roach88/rmlstar/internal/ir"
	"github.com/roach88/rmlstar/internal/queryir"
	"github.com/roach88/rmlstar/internal/querysql"
)

// SQLite is a relational logical source backed by a SQLite database.
// Rules name either a table (Source.Value) or an SQL query (Source.Query).
type SQLite struct {
	db       *sql.DB
	compiler *querysql.SQLCompiler

	mu      sync.Mutex
	columns map[string]map[string]bool
}

// OpenSQLite opens the database at dsn (a path or a file: URI).
//
// The connection is configured with:
//   - a 5-second busy timeout for lock contention
//   - foreign key enforcement
//   - one open connection (SQLite serializes writers anyway)
func OpenSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return &SQLite{
		db:       db,
		compiler: querysql.NewSQLCompiler(),
		columns:  make(map[string]map[string]bool),
	}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Type implements Connector.
func (s *SQLite) Type() ir.SourceType {
	return ir.SourceRDB
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

func relation(src ir.Source) queryir.From {
	if src.Query {
		return queryir.SubQuery{SQL: src.Value}
	}
	return queryir.Table{Name: src.Value}
}

// Fetch implements Connector. Row order is source record order; duplicate
// projections keep their first occurrence.
func (s *SQLite) Fetch(ctx context.Context, rule ir.Rule, refs []string) (ir.RowSet, error) {
	from := relation(rule.Source)
	avail, err := s.relationColumns(ctx, from)
	if err != nil {
		return ir.RowSet{}, err
	}

	var cols []string
	record := false
	for _, ref := range refs {
		if ref == ir.RecordColumn {
			record = true
			continue
		}
		if !avail[ref] {
			return ir.RowSet{}, ir.NewReferenceError(rule.ID, ref)
		}
		cols = append(cols, ref)
	}

	query, err := s.compiler.Compile(queryir.Projection{
		From:    from,
		Columns: cols,
		Filter:  queryir.RequireAll(cols),
		Record:  record,
	})
	if err != nil {
		return ir.RowSet{}, err
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return ir.RowSet{}, fmt.Errorf("query %s: %w", rule.Source.Value, err)
	}
	defer rows.Close()

	outCols := cols
	if record {
		outCols = append(append([]string(nil), cols...), ir.RecordColumn)
	}
	vals := make([]sql.NullString, len(outCols))
	dest := make([]any, len(outCols))
	for i := range vals {
		dest[i] = &vals[i]
	}

	out := ir.NewRowSet(refs)
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return ir.RowSet{}, fmt.Errorf("scan %s: %w", rule.Source.Value, err)
		}
		row := make(ir.Row, len(outCols))
		for i, c := range outCols {
			row[c] = vals[i].String
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return ir.RowSet{}, fmt.Errorf("iterate %s: %w", rule.Source.Value, err)
	}
	return out, nil
}

// relationColumns returns the column names of a table or query, cached.
func (s *SQLite) relationColumns(ctx context.Context, from queryir.From) (map[string]bool, error) {
	probe, err := s.compiler.CompileProbe(from)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	cached, ok := s.columns[probe]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	rows, err := s.db.QueryContext(ctx, probe)
	if err != nil {
		return nil, fmt.Errorf("inspect relation: %w", err)
	}
	defer rows.Close()
	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("inspect relation: %w", err)
	}

	cols := make(map[string]bool, len(names))
	for _, n := range names {
		cols[n] = true
	}
	s.mu.Lock()
	s.columns[probe] = cols
	s.mu.Unlock()
	return cols, nil
}

// Load implements Connector. Relational sources have no nested arrays.
func (s *SQLite) Load(ctx context.Context, rule ir.Rule) (engine.Document, error) {
	return emptyDocument{}, nil
}

// LoadTable creates a table with TEXT columns and inserts rows in one
// transaction. Null values are stored as SQL NULL.
func (s *SQLite) LoadTable(ctx context.Context, name string, columns []string, rows []ir.Row) error {
	if len(columns) == 0 {
		return fmt.Errorf("load table %s: no columns", name)
	}
	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = querysql.QuoteIdent(c) + " TEXT"
		marks[i] = "?"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("load table %s: %w", name, err)
	}
	defer tx.Rollback()

	table := querysql.QuoteIdent(name)
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(quoted, ", "))); err != nil {
		return fmt.Errorf("load table %s: %w", name, err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", table, strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("load table %s: %w", name, err)
	}
	defer stmt.Close()

	args := make([]any, len(columns))
	for _, row := range rows {
		for i, c := range columns {
			if v := row[c]; v != "" {
				args[i] = v
			} else {
				args[i] = nil
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("load table %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("load table %s: %w", name, err)
	}

	s.mu.Lock()
	s.columns = make(map[string]map[string]bool)
	s.mu.Unlock()
	return nil
}
