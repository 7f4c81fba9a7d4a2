package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/roach88/rmlstar/internal/engine"
	"github.com/roach88/rmlstar/internal/ir"
)

// JSONFiles reads JSON documents from a base directory. Source.Value is the
// file path, Source.Iterator the JSONPath selecting records (default "$").
// References are JSONPath expressions relative to a record.
type JSONFiles struct {
	baseDir string

	mu    sync.Mutex
	files map[string]any
	exprs map[string]jp.Expr
}

// NewJSONFiles creates a JSON connector rooted at baseDir.
func NewJSONFiles(baseDir string) *JSONFiles {
	return &JSONFiles{
		baseDir: baseDir,
		files:   make(map[string]any),
		exprs:   make(map[string]jp.Expr),
	}
}

// Type implements Connector.
func (j *JSONFiles) Type() ir.SourceType {
	return ir.SourceJSON
}

// Close releases cached documents.
func (j *JSONFiles) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.files = make(map[string]any)
	return nil
}

// Fetch implements Connector. Each record contributes the cartesian product
// of its reference values; array values contribute one row per element.
func (j *JSONFiles) Fetch(ctx context.Context, rule ir.Rule, refs []string) (ir.RowSet, error) {
	doc, err := j.document(rule)
	if err != nil {
		return ir.RowSet{}, err
	}
	return doc.rows(refs)
}

// Load implements Connector.
func (j *JSONFiles) Load(ctx context.Context, rule ir.Rule) (engine.Document, error) {
	return j.document(rule)
}

func (j *JSONFiles) document(rule ir.Rule) (*jsonDocument, error) {
	data, err := j.parse(rule.Source.Value)
	if err != nil {
		return nil, err
	}
	iter := rule.Source.Iterator
	if iter == "" {
		iter = "$"
	}
	x, err := j.expr(iter)
	if err != nil {
		return nil, ir.NewShapeError(rule.ID, fmt.Sprintf("iterator %q: %v", iter, err))
	}

	var records []any
	for _, v := range x.Get(data) {
		if arr, ok := v.([]any); ok {
			records = append(records, arr...)
			continue
		}
		records = append(records, v)
	}
	return &jsonDocument{ruleID: rule.ID, records: records, files: j}, nil
}

func (j *JSONFiles) parse(path string) (any, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(j.baseDir, path)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if data, ok := j.files[path]; ok {
		return data, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read json source: %w", err)
	}
	data, err := oj.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse json source %s: %w", path, err)
	}
	j.files[path] = data
	return data, nil
}

var simplePath = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*|\[[^\]]*\])*$`)

// expr compiles a reference or iterator. Plain dotted names are relative to
// the record; other names are treated as a single member key.
func (j *JSONFiles) expr(ref string) (jp.Expr, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if x, ok := j.exprs[ref]; ok {
		return x, nil
	}
	var x jp.Expr
	var err error
	switch {
	case strings.HasPrefix(ref, "$"), strings.HasPrefix(ref, "@"):
		x, err = jp.ParseString(ref)
	case simplePath.MatchString(ref):
		x, err = jp.ParseString("$." + ref)
	default:
		x = jp.R().C(ref)
	}
	if err != nil {
		return nil, err
	}
	j.exprs[ref] = x
	return x, nil
}

// jsonDocument is the iterated record list of one JSON logical source.
type jsonDocument struct {
	ruleID  string
	records []any
	files   *JSONFiles
}

// values returns the stringified values of ref in one record, exploding
// arrays. Nulls are skipped.
func (d *jsonDocument) values(record any, idx int, ref string) ([]string, error) {
	if ref == ir.RecordColumn {
		return []string{strconv.Itoa(idx)}, nil
	}
	x, err := d.files.expr(ref)
	if err != nil {
		return nil, ir.NewShapeError(d.ruleID, fmt.Sprintf("reference %q: %v", ref, err))
	}
	var out []string
	for _, v := range x.Get(record) {
		if arr, ok := v.([]any); ok {
			for _, e := range arr {
				if s := stringify(e); s != "" {
					out = append(out, s)
				}
			}
			continue
		}
		if s := stringify(v); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func (d *jsonDocument) rows(refs []string) (ir.RowSet, error) {
	out := ir.NewRowSet(refs)
	for idx, rec := range d.records {
		lists := make([][]string, len(refs))
		for i, ref := range refs {
			vals, err := d.values(rec, idx, ref)
			if err != nil {
				return ir.RowSet{}, err
			}
			if len(vals) == 0 {
				vals = []string{""}
			}
			lists[i] = vals
		}
		product(refs, lists, func(row ir.Row) {
			out.Rows = append(out.Rows, row)
		})
	}
	return out, nil
}

// product calls emit once per combination of values, in record order.
func product(refs []string, lists [][]string, emit func(ir.Row)) {
	idx := make([]int, len(lists))
	for {
		row := make(ir.Row, len(refs))
		for i, ref := range refs {
			row[ref] = lists[i][idx[i]]
		}
		emit(row)

		k := len(idx) - 1
		for ; k >= 0; k-- {
			idx[k]++
			if idx[k] < len(lists[k]) {
				break
			}
			idx[k] = 0
		}
		if k < 0 {
			return
		}
	}
}

// arrayRef strips a trailing wildcard so the array itself is selected.
func arrayRef(ref string) string {
	return strings.TrimSuffix(ref, "[*]")
}

func (d *jsonDocument) emptyAt(record any, ref string) bool {
	x, err := d.files.expr(arrayRef(ref))
	if err != nil {
		return false
	}
	for _, v := range x.Get(record) {
		if arr, ok := v.([]any); ok && len(arr) == 0 {
			return true
		}
	}
	return false
}

// HasEmptyArray implements engine.Document.
func (d *jsonDocument) HasEmptyArray(ref string) bool {
	for _, rec := range d.records {
		if d.emptyAt(rec, ref) {
			return true
		}
	}
	return false
}

// EmptyOwners implements engine.Document. Owners are identified by the
// first value of each owner reference, or by record number.
func (d *jsonDocument) EmptyOwners(ref string, ownerRefs []string) ([]ir.Row, error) {
	var out []ir.Row
	for idx, rec := range d.records {
		if !d.emptyAt(rec, ref) {
			continue
		}
		row := make(ir.Row, len(ownerRefs))
		for _, o := range ownerRefs {
			vals, err := d.values(rec, idx, o)
			if err != nil {
				return nil, err
			}
			if len(vals) > 0 {
				row[o] = vals[0]
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// stringify renders a JSON scalar the way it appears in the document.
// Objects are rendered as compact JSON with sorted keys.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return oj.JSON(t, &ojg.Options{Sort: true})
	}
}
