package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rmlstar/internal/ir"
)

func quotedRule(id, inner string) ir.Rule {
	r := plainRule(id)
	r.Subject = ir.TermMap{Kind: ir.KindQuoted, Value: inner}
	return r
}

func parentRule(id, parent string) ir.Rule {
	r := plainRule(id)
	r.Object = ir.TermMap{Kind: ir.KindParent, Value: parent}
	return r
}

func TestAnalyzeCycles_Empty(t *testing.T) {
	assert.Empty(t, AnalyzeCycles(nil))
	assert.Empty(t, AnalyzeCycles(&ir.RuleTable{}))
}

func TestAnalyzeCycles_DAG(t *testing.T) {
	table := &ir.RuleTable{Rules: []ir.Rule{
		quotedRule("A", "B"),
		quotedRule("B", "C"),
		parentRule("C", "D"),
		plainRule("D"),
	}}
	assert.Empty(t, AnalyzeCycles(table))
}

func TestAnalyzeCycles_QuotedSelfLoop(t *testing.T) {
	table := &ir.RuleTable{Rules: []ir.Rule{quotedRule("A", "A")}}
	reports := AnalyzeCycles(table)
	require.Len(t, reports, 1)
	assert.Equal(t, []string{"A", "A"}, reports[0].Path)
	assert.Equal(t, "error", reports[0].Level)
	assert.Equal(t, "quoted triples map cycle: A → A", reports[0].Message)
}

func TestAnalyzeCycles_QuotedCycle(t *testing.T) {
	table := &ir.RuleTable{Rules: []ir.Rule{
		plainRule("X"),
		quotedRule("B", "C"),
		quotedRule("C", "D"),
		quotedRule("D", "B"),
	}}
	reports := AnalyzeCycles(table)
	require.Len(t, reports, 1)
	assert.Equal(t, []string{"B", "C", "D", "B"}, reports[0].Path)
	assert.Equal(t, "error", reports[0].Level)
}

func TestAnalyzeCycles_ParentOnlyIsWarning(t *testing.T) {
	table := &ir.RuleTable{Rules: []ir.Rule{
		parentRule("Emp", "Emp"),
		parentRule("A", "B"),
		parentRule("B", "A"),
	}}
	reports := AnalyzeCycles(table)
	require.Len(t, reports, 2)
	assert.Equal(t, []string{"A", "B", "A"}, reports[0].Path)
	assert.Equal(t, []string{"Emp", "Emp"}, reports[1].Path)
	for _, r := range reports {
		assert.Equal(t, "warning", r.Level)
	}
}

func TestAnalyzeCycles_MixedIsError(t *testing.T) {
	table := &ir.RuleTable{Rules: []ir.Rule{
		parentRule("A", "B"),
		quotedRule("B", "A"),
	}}
	reports := AnalyzeCycles(table)
	require.Len(t, reports, 1)
	assert.Equal(t, "error", reports[0].Level)
}

func TestAnalyzeCycles_Deterministic(t *testing.T) {
	table := &ir.RuleTable{Rules: []ir.Rule{
		quotedRule("A", "B"),
		quotedRule("B", "A"),
		quotedRule("C", "D"),
		quotedRule("D", "C"),
	}}
	first := AnalyzeCycles(table)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, AnalyzeCycles(table))
	}
}
