package term

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rmlstar/internal/ir"
)

func rows(cols []string, vals ...[]string) ir.RowSet {
	rs := ir.NewRowSet(cols)
	for _, v := range vals {
		row := ir.Row{}
		for i, c := range cols {
			row[c] = v[i]
		}
		rs.Rows = append(rs.Rows, row)
	}
	return rs
}

func TestExpand_TemplateIRI(t *testing.T) {
	g := NewGenerator(Options{}, nil)
	rs := rows([]string{"id"}, []string{"5"}, []string{"a b"})

	got, err := g.Expand(rs, Spec{Kind: ir.KindTemplate, Value: "http://ex.org/{id}", TermType: ir.TermIRI})
	require.NoError(t, err)
	assert.Equal(t, []string{"<http://ex.org/5>", "<http://ex.org/a%20b>"}, got)
}

func TestExpand_TemplateLiteralNotEncoded(t *testing.T) {
	g := NewGenerator(Options{}, nil)
	rs := rows([]string{"first", "last"}, []string{"Ada", "Love lace"})

	got, err := g.Expand(rs, Spec{Kind: ir.KindTemplate, Value: "{first} {last}", TermType: ir.TermLiteral})
	require.NoError(t, err)
	assert.Equal(t, []string{`"Ada Love lace"`}, got)
}

func TestExpand_ReferenceIRINotEncoded(t *testing.T) {
	g := NewGenerator(Options{}, nil)
	rs := rows([]string{"url"}, []string{"http://ex.org/a%2Fb"})

	got, err := g.Expand(rs, Spec{Kind: ir.KindReference, Value: "url", TermType: ir.TermIRI})
	require.NoError(t, err)
	assert.Equal(t, []string{"<http://ex.org/a%2Fb>"}, got)
}

func TestExpand_SafeChars(t *testing.T) {
	g := NewGenerator(Options{SafeChars: "/:"}, nil)
	rs := rows([]string{"path"}, []string{"a/b:c d"})

	got, err := g.Expand(rs, Spec{Kind: ir.KindTemplate, Value: "http://ex.org/{path}", TermType: ir.TermIRI})
	require.NoError(t, err)
	assert.Equal(t, []string{"<http://ex.org/a/b:c%20d>"}, got)
}

func TestExpand_ConstantAndBlankNode(t *testing.T) {
	g := NewGenerator(Options{}, nil)
	rs := rows([]string{"id"}, []string{"1"}, []string{"2"})

	got, err := g.Expand(rs, Spec{Kind: ir.KindConstant, Value: "http://ex.org/p", TermType: ir.TermIRI})
	require.NoError(t, err)
	assert.Equal(t, []string{"<http://ex.org/p>", "<http://ex.org/p>"}, got)

	got, err = g.Expand(rs, Spec{Kind: ir.KindTemplate, Value: "node{id}", TermType: ir.TermBlankNode})
	require.NoError(t, err)
	assert.Equal(t, []string{"_:node1", "_:node2"}, got)
}

func TestExpand_LiteralNaturalMappingAndEscaping(t *testing.T) {
	g := NewGenerator(Options{}, nil)
	rs := rows([]string{"n", "s"}, []string{"5.0", "say \"hi\"\n"}, []string{"x", "ok"})

	got, err := g.Expand(rs, Spec{Kind: ir.KindReference, Value: "n", TermType: ir.TermLiteral, Datatype: ir.XSDInteger})
	require.NoError(t, err)
	assert.Equal(t, []string{`"5"`, ""}, got, "unparseable integer becomes null")

	got, err = g.Expand(rs, Spec{Kind: ir.KindReference, Value: "s", TermType: ir.TermLiteral})
	require.NoError(t, err)
	assert.Equal(t, `"say \"hi\"\n"`, got[0])
}

func TestExpand_UnwrappedForLanguageMaps(t *testing.T) {
	g := NewGenerator(Options{}, nil)
	rs := rows([]string{"lang"}, []string{"en"})

	got, err := g.Expand(rs, Spec{Kind: ir.KindReference, Value: "lang"})
	require.NoError(t, err)
	assert.Equal(t, []string{"en"}, got)
}

func TestExpand_NullsPropagate(t *testing.T) {
	g := NewGenerator(Options{}, nil)
	rs := rows([]string{"id"}, []string{""})

	got, err := g.Expand(rs, Spec{Kind: ir.KindTemplate, Value: "http://ex.org/{id}", TermType: ir.TermIRI})
	require.NoError(t, err)
	assert.Equal(t, []string{""}, got)
}

func TestExpand_MissingColumn(t *testing.T) {
	g := NewGenerator(Options{}, nil)
	rs := rows([]string{"id"}, []string{"1"})

	_, err := g.Expand(rs, Spec{Kind: ir.KindTemplate, Value: "http://ex.org/{nope}", TermType: ir.TermIRI})
	assert.True(t, ir.IsReferenceError(err))

	_, err = g.Expand(rs, Spec{Kind: ir.KindReference, Value: "nope", TermType: ir.TermLiteral})
	assert.True(t, ir.IsReferenceError(err))
}

func TestExpand_InvalidIRI(t *testing.T) {
	g := NewGenerator(Options{}, nil)
	rs := rows([]string{"url"}, []string{"not an iri"})

	_, err := g.Expand(rs, Spec{Kind: ir.KindReference, Value: "url", TermType: ir.TermIRI})
	assert.True(t, ir.IsEncodingError(err))
}

func TestExpand_ValueOptions(t *testing.T) {
	g := NewGenerator(Options{OnlyPrintable: true, NormalizeNFC: true}, nil)
	rs := rows([]string{"v"}, []string{"café\x07"})

	got, err := g.Expand(rs, Spec{Kind: ir.KindReference, Value: "v", TermType: ir.TermLiteral})
	require.NoError(t, err)
	assert.Equal(t, "\"café\"", got[0])
}

type upperFunctions struct{}

func (upperFunctions) Evaluate(rs ir.RowSet, id string, expand ExpandFunc) ([]string, error) {
	vals, err := expand(rs, Spec{Kind: ir.KindReference, Value: "name"})
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		vals[i] = " http://ex.org/" + strings.ToUpper(v) + " "
	}
	return vals, nil
}

func TestExpand_FunctionIRITrimmedNotEncoded(t *testing.T) {
	g := NewGenerator(Options{}, upperFunctions{})
	rs := rows([]string{"name"}, []string{"ada"})

	got, err := g.Expand(rs, Spec{Kind: ir.KindFunction, Value: "fn1", TermType: ir.TermIRI})
	require.NoError(t, err)
	assert.Equal(t, []string{"<http://ex.org/ADA>"}, got)
}

func TestExpand_FunctionWithoutEvaluator(t *testing.T) {
	g := NewGenerator(Options{}, nil)
	_, err := g.Expand(rows([]string{"name"}, []string{"a"}), Spec{Kind: ir.KindFunction, Value: "fn1"})
	assert.True(t, ir.IsUnsupportedError(err))
}
