package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rmlstar/internal/ir"
)

func claimsSource() *memSource {
	return newMemSource(map[string]memTable{
		"claims": {
			cols: []string{"id", "name", "conf"},
			rows: []ir.Row{
				{"id": "1", "name": "Alice", "conf": "0.9"},
				{"id": "2", "name": "Bob", "conf": ""},
			},
		},
		"people": {
			cols: []string{"id", "name"},
			rows: []ir.Row{{"id": "1", "name": "Alice"}, {"id": "2", "name": "Bob"}},
		},
		"scores": {
			cols: []string{"pid", "score"},
			rows: []ir.Row{{"pid": "1", "score": "5"}, {"pid": "7", "score": "3"}},
		},
	})
}

func factRule(source string) ir.Rule {
	return ir.Rule{
		ID:        "fact",
		Source:    table(source),
		Subject:   tmpl("http://ex.org/person/{id}"),
		Predicate: iri(exName),
		Object:    ref("name"),
	}
}

func TestMaterialize_QuotedSubjectSameSource(t *testing.T) {
	rules := []ir.Rule{
		factRule("claims"),
		{
			ID:        "meta",
			Source:    table("claims"),
			Subject:   ir.TermMap{Kind: ir.KindQuoted, Value: "fact"},
			Predicate: iri("http://ex.org/confidence"),
			Object:    ref("conf"),
		},
	}

	got := materialize(t, rules, claimsSource())

	assert.ElementsMatch(t, []string{
		`<http://ex.org/person/1> <http://ex.org/name> "Alice"`,
		`<http://ex.org/person/2> <http://ex.org/name> "Bob"`,
		`<< <http://ex.org/person/1> <http://ex.org/name> "Alice" >> <http://ex.org/confidence> "0.9"`,
	}, got)
}

func TestMaterialize_QuotedSubjectWithJoin(t *testing.T) {
	rules := []ir.Rule{
		factRule("people"),
		{
			ID:          "score",
			Source:      table("scores"),
			Subject:     ir.TermMap{Kind: ir.KindQuoted, Value: "fact"},
			SubjectJoin: []ir.JoinCondition{{Child: "pid", Parent: "id"}},
			Predicate:   iri("http://ex.org/score"),
			Object:      ref("score"),
		},
	}

	got := materialize(t, rules, claimsSource())

	assert.Contains(t, got, `<< <http://ex.org/person/1> <http://ex.org/name> "Alice" >> <http://ex.org/score> "5"`)
	assert.Len(t, got, 3, "the score of the unknown person 7 joins nothing")
}

func TestMaterialize_NestedQuotedObject(t *testing.T) {
	rules := []ir.Rule{
		factRule("claims"),
		{
			ID:        "meta",
			Source:    table("claims"),
			Subject:   ir.TermMap{Kind: ir.KindQuoted, Value: "fact"},
			Predicate: iri("http://ex.org/confidence"),
			Object:    ref("conf"),
		},
		{
			ID:        "about",
			Source:    table("claims"),
			Subject:   tmpl("http://ex.org/claim/{id}"),
			Predicate: iri("http://ex.org/about"),
			Object:    ir.TermMap{Kind: ir.KindQuoted, Value: "meta"},
		},
	}

	got := materialize(t, rules, claimsSource())

	assert.Contains(t, got,
		`<http://ex.org/claim/1> <http://ex.org/about> << << <http://ex.org/person/1> <http://ex.org/name> "Alice" >> <http://ex.org/confidence> "0.9" >>`)
	assert.Len(t, got, 4, "claim 2 has no confidence, so nothing quotes it")
}

func TestMaterialize_QuotedOtherSourceWithoutJoin(t *testing.T) {
	rules := []ir.Rule{
		factRule("people"),
		{
			ID:        "meta",
			Source:    table("claims"),
			Subject:   ir.TermMap{Kind: ir.KindQuoted, Value: "fact"},
			Predicate: iri("http://ex.org/confidence"),
			Object:    ref("conf"),
		},
	}

	_, err := materializeErr(rules, claimsSource())
	require.Error(t, err)
	assert.True(t, ir.IsShapeError(err))
}

func TestMaterialize_QuotedCycle(t *testing.T) {
	quotes := func(id, inner string) ir.Rule {
		return ir.Rule{
			ID:        id,
			Source:    table("claims"),
			Subject:   ir.TermMap{Kind: ir.KindQuoted, Value: inner},
			Predicate: iri("http://ex.org/p"),
			Object:    ref("conf"),
		}
	}

	t.Run("two rules", func(t *testing.T) {
		_, err := materializeErr([]ir.Rule{quotes("a", "b"), quotes("b", "a")}, claimsSource())
		require.Error(t, err)
		assert.True(t, ir.IsCycleError(err), "got %v", err)
	})

	t.Run("self", func(t *testing.T) {
		_, err := materializeErr([]ir.Rule{quotes("a", "a")}, claimsSource())
		require.Error(t, err)
		assert.True(t, ir.IsCycleError(err), "got %v", err)
	})

	t.Run("depth bound", func(t *testing.T) {
		rules := []ir.Rule{quotes("c1", "c2"), quotes("c2", "c3"), quotes("c3", "fact"), factRule("claims")}

		_, err := materializeErr(rules, claimsSource(), WithMaxDepth(3))
		require.Error(t, err)
		assert.True(t, ir.IsCycleError(err))

		got := materialize(t, rules, claimsSource())
		assert.Contains(t, got,
			`<< << << <http://ex.org/person/1> <http://ex.org/name> "Alice" >> <http://ex.org/p> "0.9" >> <http://ex.org/p> "0.9" >> <http://ex.org/p> "0.9"`)
	})
}

func TestRecursionPath(t *testing.T) {
	root := newRecursionPath("a", 3)
	assert.Equal(t, 1, root.depth())

	b, err := root.enter("b")
	require.NoError(t, err)
	assert.Equal(t, 2, b.depth())
	assert.Equal(t, 1, root.depth(), "enter does not mutate the receiver")

	// Siblings do not see each other.
	c, err := root.enter("c")
	require.NoError(t, err)
	_, err = c.enter("b")
	require.NoError(t, err)

	_, err = b.enter("a")
	assert.True(t, ir.IsCycleError(err))

	bc, err := b.enter("c")
	require.NoError(t, err)
	_, err = bc.enter("d")
	assert.True(t, ir.IsCycleError(err), "depth 4 exceeds the bound of 3")

	unbounded := newRecursionPath("a", 0)
	for _, id := range []string{"b", "c", "d", "e"} {
		unbounded, err = unbounded.enter(id)
		require.NoError(t, err)
	}
	assert.Equal(t, 5, unbounded.depth())
}
