package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rmlstar/internal/ir"
)

func TestJoin_SingleKeyKeepsChildOrder(t *testing.T) {
	child := ir.NewRowSet([]string{"id", "dept"},
		ir.Row{"id": "3", "dept": "10"},
		ir.Row{"id": "1", "dept": "20"},
		ir.Row{"id": "2", "dept": "10"},
		ir.Row{"id": "4", "dept": "99"},
	)
	parent := ir.NewRowSet([]string{"dno", "name"},
		ir.Row{"dno": "10", "name": "Sales"},
		ir.Row{"dno": "20", "name": "Ops"},
	)

	out, err := Join(child, parent, []ir.JoinCondition{{Child: "dept", Parent: "dno"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "dept", "parent_dno", "parent_name"}, out.Columns)
	assert.Equal(t, []string{"3", "1", "2"}, out.Column("id"))
	assert.Equal(t, []string{"Sales", "Ops", "Sales"}, out.Column("parent_name"))
}

func TestJoin_NullKeysNeverMatch(t *testing.T) {
	child := ir.NewRowSet([]string{"k"}, ir.Row{"k": ""}, ir.Row{"k": "a"})
	parent := ir.NewRowSet([]string{"k"}, ir.Row{"k": ""}, ir.Row{"k": "a"})

	out, err := Join(child, parent, []ir.JoinCondition{{Child: "k", Parent: "k"}})
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, "a", out.Rows[0]["parent_k"])

	multi, err := Join(
		ir.NewRowSet([]string{"a", "b"}, ir.Row{"a": "1", "b": ""}, ir.Row{"a": "1", "b": "x"}),
		ir.NewRowSet([]string{"a", "b"}, ir.Row{"a": "1", "b": ""}, ir.Row{"a": "1", "b": "x"}),
		[]ir.JoinCondition{{Child: "a", Parent: "a"}, {Child: "b", Parent: "b"}},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, multi.Len())
}

func TestJoin_MultiKeyMatchesAllPairs(t *testing.T) {
	child := ir.NewRowSet([]string{"x", "y", "c"},
		ir.Row{"x": "1", "y": "a", "c": "c1"},
		ir.Row{"x": "1", "y": "b", "c": "c2"},
		ir.Row{"x": "2", "y": "a", "c": "c3"},
		ir.Row{"x": "1", "y": "a", "c": "c4"},
	)
	parent := ir.NewRowSet([]string{"px", "py", "p"},
		ir.Row{"px": "1", "py": "a", "p": "p1"},
		ir.Row{"px": "1", "py": "a", "p": "p2"},
		ir.Row{"px": "2", "py": "b", "p": "p3"},
	)

	out, err := Join(child, parent, []ir.JoinCondition{{Child: "x", Parent: "px"}, {Child: "y", Parent: "py"}})
	require.NoError(t, err)

	var pairs []string
	for _, row := range out.Rows {
		pairs = append(pairs, row["c"]+"-"+row["parent_p"])
	}
	assert.ElementsMatch(t, []string{"c1-p1", "c1-p2", "c4-p1", "c4-p2"}, pairs)
}

func TestJoin_MultiKeyValuesContainingSeparators(t *testing.T) {
	child := ir.NewRowSet([]string{"x", "y", "c"},
		ir.Row{"x": "a\x1fb", "y": "c", "c": "c1"},
	)
	parent := ir.NewRowSet([]string{"px", "py", "p"},
		ir.Row{"px": "a", "py": "b\x1fc", "p": "p1"},
		ir.Row{"px": "a\x1fb", "py": "c", "p": "p2"},
	)

	out, err := Join(child, parent, []ir.JoinCondition{{Child: "x", Parent: "px"}, {Child: "y", Parent: "py"}})
	require.NoError(t, err)
	require.Len(t, out.Rows, 1)
	assert.Equal(t, "p2", out.Rows[0]["parent_p"])
}

func TestJoin_KeyLengthDoesNotChangeResult(t *testing.T) {
	child := ir.NewRowSet([]string{"k", "c"},
		ir.Row{"k": "1", "c": "a"},
		ir.Row{"k": "2", "c": "b"},
		ir.Row{"k": "1", "c": "c"},
	)
	parent := ir.NewRowSet([]string{"k", "p"},
		ir.Row{"k": "1", "p": "x"},
		ir.Row{"k": "3", "p": "y"},
	)

	single, err := Join(child, parent, []ir.JoinCondition{{Child: "k", Parent: "k"}})
	require.NoError(t, err)
	// The same condition twice goes through the sort-merge path.
	double, err := Join(child, parent, []ir.JoinCondition{{Child: "k", Parent: "k"}, {Child: "k", Parent: "k"}})
	require.NoError(t, err)

	assert.ElementsMatch(t, single.Rows, double.Rows)
}

func TestJoin_MissingColumn(t *testing.T) {
	child := ir.NewRowSet([]string{"a"})
	parent := ir.NewRowSet([]string{"b"})

	_, err := Join(child, parent, []ir.JoinCondition{{Child: "missing", Parent: "b"}})
	assert.True(t, ir.IsReferenceError(err))

	_, err = Join(child, parent, []ir.JoinCondition{{Child: "a", Parent: "missing"}})
	assert.True(t, ir.IsReferenceError(err))
}
