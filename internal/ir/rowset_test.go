package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() RowSet {
	return NewRowSet([]string{"id", "name"},
		Row{"id": "1", "name": "a"},
		Row{"id": "2", "name": ""},
		Row{"id": "1", "name": "a"},
	)
}

func TestRowSet_DropNulls(t *testing.T) {
	rs := sampleRows().DropNulls("name")
	require.Equal(t, 2, rs.Len())
	assert.Equal(t, []string{"1", "1"}, rs.Column("id"))
}

func TestRowSet_Distinct(t *testing.T) {
	rs := sampleRows().Distinct()
	assert.Equal(t, []string{"1", "2"}, rs.Column("id"))
}

func TestRowSet_WithColumnDoesNotMutate(t *testing.T) {
	orig := sampleRows()
	rs := orig.WithColumn("x", []string{"p", "q", "r"})

	assert.True(t, rs.HasColumn("x"))
	assert.False(t, orig.HasColumn("x"))
	_, present := orig.Rows[0]["x"]
	assert.False(t, present)
	assert.Equal(t, "q", rs.Rows[1]["x"])
}

func TestRowSet_PrefixUnprefix(t *testing.T) {
	rs := sampleRows().Prefix(ParentPrefix)
	assert.Equal(t, []string{"parent_id", "parent_name"}, rs.Columns)
	assert.Equal(t, "2", rs.Rows[1]["parent_id"])

	back := rs.Unprefix(ParentPrefix)
	assert.Equal(t, []string{"id", "name"}, back.Columns)
	assert.Equal(t, "a", back.Rows[0]["name"])
}

func TestRowSet_KeySeparatesValues(t *testing.T) {
	rs := RowSet{}
	a := rs.Key(Row{"x": "a b", "y": "c"}, []string{"x", "y"})
	b := rs.Key(Row{"x": "a", "y": "b c"}, []string{"x", "y"})
	assert.NotEqual(t, a, b)

	c := rs.Key(Row{"x": "a\x1fb", "y": "c"}, []string{"x", "y"})
	d := rs.Key(Row{"x": "a", "y": "b\x1fc"}, []string{"x", "y"})
	assert.NotEqual(t, c, d)

	e := rs.Key(Row{"x": "1:a", "y": ""}, []string{"x", "y"})
	f := rs.Key(Row{"x": "", "y": "1:a"}, []string{"x", "y"})
	assert.NotEqual(t, e, f)
}
