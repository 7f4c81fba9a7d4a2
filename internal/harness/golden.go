package harness

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden executes a scenario and compares its output against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Expectations are still evaluated; the golden file pins the exact output
// including blank node labels, which the harness allocates deterministically.
//
// Returns error if scenario execution fails.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	AssertGolden(t, scenario.Name, result)
	return nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, Snapshot(result))
}

// Snapshot renders a result as sorted statements, one per line, each
// terminated by " .". A failed run renders as its error code.
func Snapshot(result *Result) []byte {
	var b strings.Builder
	if result.ErrorCode != "" {
		b.WriteString("error: " + string(result.ErrorCode) + "\n")
		return []byte(b.String())
	}
	for _, line := range result.Statements {
		b.WriteString(line)
		b.WriteString(" .\n")
	}
	return []byte(b.String())
}
