package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/rmlstar/internal/testutil"
)

// Evaluate checks a result against the scenario's expectations and returns
// one message per failed expectation.
//
// An expected error code short-circuits the other expectations: the run
// must have failed with exactly that code.
func Evaluate(result *Result, expect Expectation) []string {
	if expect.Error != "" {
		switch result.ErrorCode {
		case expect.Error:
			return nil
		case "":
			return []string{fmt.Sprintf("expected error %s, run succeeded with %d statements",
				expect.Error, len(result.Statements))}
		default:
			return []string{fmt.Sprintf("expected error %s, got %s", expect.Error, result.ErrorCode)}
		}
	}
	if result.ErrorCode != "" {
		return []string{fmt.Sprintf("unexpected error %s", result.ErrorCode)}
	}

	var failures []string
	if expect.Statements != nil {
		ok, err := testutil.Isomorphic(expect.Statements, result.Statements)
		switch {
		case err != nil:
			failures = append(failures, fmt.Sprintf("cannot compare statements: %v", err))
		case !ok:
			failures = append(failures, fmt.Sprintf("statements differ\nexpected:\n  %s\nactual:\n  %s",
				strings.Join(expect.Statements, "\n  "), strings.Join(result.Statements, "\n  ")))
		}
	}

	have := make(map[string]bool, len(result.Statements))
	for _, line := range result.Statements {
		have[line] = true
	}
	for _, want := range expect.Contains {
		if !have[normalize(want)] {
			failures = append(failures, fmt.Sprintf("missing statement: %s", want))
		}
	}

	if expect.Count != nil && len(result.Statements) != *expect.Count {
		failures = append(failures, fmt.Sprintf("expected %d statements, got %d",
			*expect.Count, len(result.Statements)))
	}
	return failures
}

// normalize strips surrounding whitespace and a trailing " .".
func normalize(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimSuffix(line, ".")
	return strings.TrimSpace(line)
}
