package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const peopleRules = `triples_map: "http://ex.org/PersonMap": {
	source: {name: "files", type: "csv", value: "people.csv"}
	subject: {template: "http://ex.org/person/{id}", class: "http://xmlns.com/foaf/0.1/Person"}
	predicate_object: [{
		predicate: "http://xmlns.com/foaf/0.1/name"
		object: {reference: "name"}
	}]
}
`

const peopleCSV = "id,name\n1,Alice\n2,Bob\n"

const peopleConfig = `sources:
  files:
    type: csv
    path: data
`

// writeFiles creates files under dir, making parent directories.
func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// peopleProject lays out rules, config and CSV data in a temp dir.
func peopleProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"rules/people.cue": peopleRules,
		"data/people.csv":  peopleCSV,
		"rmlstar.yaml":     peopleConfig,
	})
	return dir
}

// execute runs a command through the root so persistent flags apply.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}
