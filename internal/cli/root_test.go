package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rmlstar/internal/ir"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "rmlstar", cmd.Use)
	assert.Contains(t, cmd.Long, "RDF-star")
	assert.Equal(t, ir.EngineVersion, cmd.Version)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"compile", "validate", "materialize", "test"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
}

func TestMaterializeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	sub, _, err := cmd.Find([]string{"materialize"})
	require.NoError(t, err)

	for _, name := range []string{"config", "rdf-format", "out", "workers", "run-token"} {
		assert.NotNil(t, sub.Flags().Lookup(name), name)
	}
	assert.Equal(t, "c", sub.Flags().Lookup("config").Shorthand)
}

func TestInvalidFormatRejected(t *testing.T) {
	_, _, err := execute(t, "validate", "--format", "yaml", "rules.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}
