package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rmlstar/internal/ir"
)

const inlineRules = `triples_map: "http://ex.org/TM": {
  source: {name: "mem", type: "memory", value: "t"}
  subject: {template: "http://ex.org/{id}", class: "http://ex.org/C"}
}`

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rules.cue"), []byte(inlineRules), 0o644))
	path := filepath.Join(dir, "test.yaml")
	content := `
name: test_scenario
description: "Test scenario for validation"
rules: rules.cue
format: nquads
null_values: ["NULL"]
sources:
  mem:
    type: memory
    tables:
      t:
        columns: [id]
        rows: [{id: "1"}]
expect:
  count: 1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, filepath.Join(dir, "rules.cue"), scenario.Rules)
	assert.Equal(t, ir.FormatNQuads, scenario.Format)
	assert.Equal(t, []string{"NULL"}, scenario.NullValues)
	require.Contains(t, scenario.Sources, "mem")
	assert.Equal(t, []string{"id"}, scenario.Sources["mem"].Tables["t"].Columns)
	require.NotNil(t, scenario.Expect.Count)
	assert.Equal(t, 1, *scenario.Expect.Count)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "missing name",
			content: "description: d\nrules_inline: x\nexpect: {count: 0}\n",
			want:    "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nrules_inline: x\nexpect: {count: 0}\n",
			want:    "description is required",
		},
		{
			name:    "no rules",
			content: "name: n\ndescription: d\nexpect: {count: 0}\n",
			want:    "one of rules or rules_inline is required",
		},
		{
			name:    "both rules",
			content: "name: n\ndescription: d\nrules: a.cue\nrules_inline: x\nexpect: {count: 0}\n",
			want:    "mutually exclusive",
		},
		{
			name:    "rules file missing",
			content: "name: n\ndescription: d\nrules: missing.cue\nexpect: {count: 0}\n",
			want:    "rules not found",
		},
		{
			name:    "bad format",
			content: "name: n\ndescription: d\nrules_inline: x\nformat: turtle\nexpect: {count: 0}\n",
			want:    "format \"turtle\"",
		},
		{
			name:    "no expectation",
			content: "name: n\ndescription: d\nrules_inline: x\nexpect: {}\n",
			want:    "expect needs",
		},
		{
			name:    "negative count",
			content: "name: n\ndescription: d\nrules_inline: x\nexpect: {count: -1}\n",
			want:    "non-negative",
		},
		{
			name:    "unknown fixture type",
			content: "name: n\ndescription: d\nrules_inline: x\nsources: {s: {type: xml}}\nexpect: {count: 0}\n",
			want:    "unknown type \"xml\"",
		},
		{
			name:    "files on rdb",
			content: "name: n\ndescription: d\nrules_inline: x\nsources: {s: {type: rdb, files: {a.csv: x}}}\nexpect: {count: 0}\n",
			want:    "take tables, not files",
		},
		{
			name:    "tables on json",
			content: "name: n\ndescription: d\nrules_inline: x\nsources: {s: {type: json, tables: {t: {columns: [a]}}}}\nexpect: {count: 0}\n",
			want:    "take files, not tables",
		},
		{
			name:    "escaping file name",
			content: "name: n\ndescription: d\nrules_inline: x\nsources: {s: {type: csv, files: {../a.csv: x}}}\nexpect: {count: 0}\n",
			want:    "plain relative path",
		},
		{
			name:    "table without columns",
			content: "name: n\ndescription: d\nrules_inline: x\nsources: {s: {type: memory, tables: {t: {rows: []}}}}\nexpect: {count: 0}\n",
			want:    "columns are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content), t.TempDir())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseScenario_UnknownField(t *testing.T) {
	// "statement" instead of "statements"
	content := "name: n\ndescription: d\nrules_inline: x\nexpect: {statement: []}\n"
	_, err := ParseScenario([]byte(content), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Testdata(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		scenario, err := LoadScenario(f)
		require.NoError(t, err, f)
		assert.NotEmpty(t, scenario.Name)
	}
}
