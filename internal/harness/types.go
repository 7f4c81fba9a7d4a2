package harness

import (
	"github.com/roach88/rmlstar/internal/config"
	"github.com/roach88/rmlstar/internal/ir"
	"github.com/roach88/rmlstar/internal/source"
)

// Scenario is a conformance test case.
type Scenario struct {
	// Name identifies the scenario; golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what the scenario covers.
	Description string `yaml:"description"`

	// Rules is a .cue file or a directory of .cue files, relative to the
	// scenario file.
	Rules string `yaml:"rules,omitempty"`

	// RulesInline is a CUE mapping document embedded in the scenario.
	RulesInline string `yaml:"rules_inline,omitempty"`

	// Format is the output serialization (default ntriples).
	Format ir.Format `yaml:"format,omitempty"`

	// Encoding overrides term generation options.
	Encoding config.EncodingConfig `yaml:"encoding,omitempty"`

	// NullValues are source values treated as null.
	NullValues []string `yaml:"null_values,omitempty"`

	// Sources are the fixtures, keyed by the connection name rules use.
	Sources map[string]Fixture `yaml:"sources"`

	// Expect is what the run must produce.
	Expect Expectation `yaml:"expect"`

	// baseDir resolves Rules; set by LoadScenario.
	baseDir string
}

// Fixture is the content of one logical source connection.
type Fixture struct {
	Type ir.SourceType `yaml:"type"`

	// Tables hold rdb and memory data.
	Tables map[string]source.Table `yaml:"tables,omitempty"`

	// Files hold json and csv documents by file name.
	Files map[string]string `yaml:"files,omitempty"`
}

// Expectation describes the expected outcome of a run.
type Expectation struct {
	// Statements is the exact expected set, compared up to blank node
	// renaming. Lines may end in " .".
	Statements []string `yaml:"statements,omitempty"`

	// Contains lists statements without blank nodes that must be present.
	Contains []string `yaml:"contains,omitempty"`

	// Count is the expected number of distinct statements.
	Count *int `yaml:"count,omitempty"`

	// Error is the expected materialization error code. The run must fail
	// with it and the other expectations are ignored.
	Error ir.ErrorCode `yaml:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Statements are the materialized statements in lexical order.
	Statements []string `json:"statements"`

	// Partitions lists the partition keys in materialization order.
	Partitions []string `json:"partitions"`

	// ErrorCode is the materialization error code, if the run failed.
	ErrorCode ir.ErrorCode `json:"error_code,omitempty"`

	// Errors contains failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Statements: []string{},
		Partitions: []string{},
		Errors:     []string{},
	}
}

// AddError adds an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
