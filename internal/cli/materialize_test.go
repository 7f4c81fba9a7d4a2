package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterialize_Stdout(t *testing.T) {
	dir := peopleProject(t)

	out, errOut, err := execute(t, "materialize",
		"--config", filepath.Join(dir, "rmlstar.yaml"),
		filepath.Join(dir, "rules"))
	require.NoError(t, err)

	assert.Equal(t, `<http://ex.org/person/1> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://xmlns.com/foaf/0.1/Person> .
<http://ex.org/person/1> <http://xmlns.com/foaf/0.1/name> "Alice" .
<http://ex.org/person/2> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://xmlns.com/foaf/0.1/Person> .
<http://ex.org/person/2> <http://xmlns.com/foaf/0.1/name> "Bob" .
`, out)
	assert.Contains(t, errOut, "✓ Materialized 4 statement(s) from 1 partition(s) to stdout")
	assert.Contains(t, errOut, "materialization complete")
}

func TestMaterialize_FilesJSON(t *testing.T) {
	dir := peopleProject(t)
	outDir := filepath.Join(dir, "out")

	out, _, err := execute(t, "materialize", "--format", "json",
		"--config", filepath.Join(dir, "rmlstar.yaml"),
		"--rdf-format", "nquads",
		"--out", outDir,
		filepath.Join(dir, "rules", "people.cue"))
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   MaterializeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 4, resp.Data.Statements)
	assert.Equal(t, "nquads", resp.Data.Format)
	assert.Equal(t, outDir, resp.Data.Output)

	data, err := os.ReadFile(filepath.Join(outDir, "http___ex.org_PersonMap.nq"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `<http://ex.org/person/2> <http://xmlns.com/foaf/0.1/name> "Bob" .`)
}

func TestMaterialize_ReferenceError(t *testing.T) {
	dir := peopleProject(t)
	writeFiles(t, dir, map[string]string{"bad.cue": `triples_map: TM: {
		source: {name: "files", type: "csv", value: "people.csv"}
		subject: {template: "http://ex.org/person/{id}"}
		predicate_object: [{predicate: "http://ex.org/age", object: {reference: "age"}}]
	}`})

	_, errOut, err := execute(t, "materialize",
		"--config", filepath.Join(dir, "rmlstar.yaml"),
		filepath.Join(dir, "bad.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, errOut, "Error [REFERENCE]")
}

func TestMaterialize_CommandErrors(t *testing.T) {
	dir := peopleProject(t)
	config := filepath.Join(dir, "rmlstar.yaml")
	rules := filepath.Join(dir, "rules")

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"bad rdf format", []string{"--config", config, "--rdf-format", "turtle", rules}, ErrCodeConfig},
		{"missing config", []string{"--config", filepath.Join(dir, "nope.yaml"), rules}, ErrCodeConfig},
		{"missing rules", []string{"--config", config, filepath.Join(dir, "nope")}, ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, errOut, err := execute(t, append([]string{"materialize"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out+errOut, tt.code)
		})
	}
}

func TestMaterialize_InvalidRules(t *testing.T) {
	dir := peopleProject(t)

	out, errOut, err := execute(t, "materialize",
		"--config", filepath.Join(dir, "rmlstar.yaml"),
		rulesFile(t, quotedCycleRules))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Empty(t, out, "no statements written")
	assert.Contains(t, errOut, "✗ Validation failed")
}

func TestLoadConfig_Overrides(t *testing.T) {
	opts := &MaterializeOptions{RootOptions: &RootOptions{}, RDFFormat: "nquads", Workers: 3, RunToken: "tok"}
	cfg, err := loadConfig(opts)
	require.NoError(t, err)
	assert.Equal(t, "nquads", string(cfg.Output.Format))
	assert.Equal(t, "stdout", cfg.Output.Kind)
	assert.Equal(t, 3, cfg.Engine.Workers)
	assert.Equal(t, "tok", cfg.Engine.RunToken)
}
