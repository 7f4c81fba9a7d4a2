package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"github.com/roach88/rmlstar/internal/engine"
	"github.com/roach88/rmlstar/internal/ir"
)

// CSVFiles reads comma-separated files with a header row from a base
// directory. Source.Value is the file path; references are header names.
type CSVFiles struct {
	baseDir string

	mu     sync.Mutex
	tables map[string]*Table
}

// NewCSVFiles creates a CSV connector rooted at baseDir.
func NewCSVFiles(baseDir string) *CSVFiles {
	return &CSVFiles{baseDir: baseDir, tables: make(map[string]*Table)}
}

// Type implements Connector.
func (c *CSVFiles) Type() ir.SourceType {
	return ir.SourceCSV
}

// Close releases cached files.
func (c *CSVFiles) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables = make(map[string]*Table)
	return nil
}

// Fetch implements Connector.
func (c *CSVFiles) Fetch(ctx context.Context, rule ir.Rule, refs []string) (ir.RowSet, error) {
	t, err := c.read(rule.Source.Value)
	if err != nil {
		return ir.RowSet{}, err
	}
	return t.project(rule.ID, refs)
}

// Load implements Connector. CSV records are flat.
func (c *CSVFiles) Load(ctx context.Context, rule ir.Rule) (engine.Document, error) {
	return emptyDocument{}, nil
}

func (c *CSVFiles) read(path string) (*Table, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.baseDir, path)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tables[path]; ok {
		return t, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read csv source: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv source %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv source %s has no header row", path)
	}

	t := &Table{Columns: records[0]}
	for _, rec := range records[1:] {
		row := make(ir.Row, len(rec))
		for i, v := range rec {
			row[t.Columns[i]] = v
		}
		t.Rows = append(t.Rows, row)
	}
	c.tables[path] = t
	return t, nil
}

// Table is an in-memory relation: declared columns plus rows in record
// order.
type Table struct {
	Columns []string `yaml:"columns"`
	Rows    []ir.Row `yaml:"rows"`
}

// project selects refs from every row; ir.RecordColumn is the row index.
func (t *Table) project(ruleID string, refs []string) (ir.RowSet, error) {
	for _, ref := range refs {
		if ref != ir.RecordColumn && !slices.Contains(t.Columns, ref) {
			return ir.RowSet{}, ir.NewReferenceError(ruleID, ref)
		}
	}
	out := ir.NewRowSet(refs)
	out.Rows = make([]ir.Row, 0, len(t.Rows))
	for i, row := range t.Rows {
		r := make(ir.Row, len(refs))
		for _, ref := range refs {
			if ref == ir.RecordColumn {
				r[ref] = strconv.Itoa(i)
				continue
			}
			r[ref] = row[ref]
		}
		out.Rows = append(out.Rows, r)
	}
	return out, nil
}
