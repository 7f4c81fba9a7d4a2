package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMapping(t *testing.T) {
	dir := peopleProject(t)

	loaded, err := LoadMapping(filepath.Join(dir, "rules", "people.cue"))
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.FileCount)
	assert.Len(t, loaded.Table.Rules, 2)
}

func TestLoadMapping_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		path  string
		code  string
	}{
		{name: "missing", path: "nope.cue", code: ErrCodeNotFound},
		{name: "empty directory", files: map[string]string{"rules/README": "x"}, path: "rules", code: ErrCodeNoFiles},
		{name: "syntax", files: map[string]string{"bad.cue": "triples_map: {"}, path: "bad.cue", code: ErrCodeBuildFailed},
		{name: "no triples maps", files: map[string]string{"empty.cue": "x: 1"}, path: "empty.cue", code: ErrCodeTriplesMap},
		{
			name: "bad gather",
			files: map[string]string{"g.cue": `triples_map: TM: {
				source: {name: "s", type: "memory", value: "t"}
				subject: {gather: {references: []}}
			}`},
			path: "g.cue",
			code: ErrCodeGather,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFiles(t, dir, tt.files)

			_, err := LoadMapping(filepath.Join(dir, tt.path))
			require.Error(t, err)
			var loadErr *LoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Equal(t, tt.code, loadErr.Code, loadErr.Message)
		})
	}
}

func TestMapFieldToErrorCode(t *testing.T) {
	tests := map[string]string{
		"cue":                                       ErrCodeBuildFailed,
		"triples_map":                               ErrCodeTriplesMap,
		"triples_map.TM":                            ErrCodeTriplesMap,
		"triples_map.TM.source.type":                ErrCodeSourceDecl,
		"triples_map.TM.subject":                    ErrCodeTermMap,
		"triples_map.TM.predicate_object[0].object": ErrCodeTermMap,
		"triples_map.TM.subject.gather.references":  ErrCodeGather,
		"function.F.params[0].name":                 ErrCodeFunction,
		"something else":                            ErrCodeGeneric,
	}
	for field, want := range tests {
		assert.Equal(t, want, MapFieldToErrorCode(field), field)
	}
}
