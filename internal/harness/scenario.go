package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rmlstar/internal/ir"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative rules path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario decodes a scenario; baseDir resolves the rules path.
func ParseScenario(data []byte, baseDir string) (*Scenario, error) {
	// Strict field validation catches typos like "statement:" vs "statements:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	scenario.baseDir = baseDir
	if scenario.Rules != "" && !filepath.IsAbs(scenario.Rules) && baseDir != "" {
		scenario.Rules = filepath.Join(baseDir, scenario.Rules)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Rules == "" && s.RulesInline == "":
		return fmt.Errorf("one of rules or rules_inline is required")
	case s.Rules != "" && s.RulesInline != "":
		return fmt.Errorf("rules and rules_inline are mutually exclusive")
	case s.Rules != "":
		if _, err := os.Stat(s.Rules); os.IsNotExist(err) {
			return fmt.Errorf("rules not found: %s", s.Rules)
		}
	}

	if s.Format != "" && !ir.ValidFormats[s.Format] {
		return fmt.Errorf("format %q must be ntriples or nquads", s.Format)
	}

	for name, f := range s.Sources {
		if err := validateFixture(name, f); err != nil {
			return err
		}
	}

	e := s.Expect
	if e.Statements == nil && e.Contains == nil && e.Count == nil && e.Error == "" {
		return fmt.Errorf("expect needs statements, contains, count or error")
	}
	if e.Count != nil && *e.Count < 0 {
		return fmt.Errorf("expect.count must be non-negative")
	}
	return nil
}

func validateFixture(name string, f Fixture) error {
	switch f.Type {
	case ir.SourceRDB, ir.SourceMemory:
		if len(f.Files) > 0 {
			return fmt.Errorf("sources.%s: %s fixtures take tables, not files", name, f.Type)
		}
		for table, t := range f.Tables {
			if len(t.Columns) == 0 {
				return fmt.Errorf("sources.%s.tables.%s: columns are required", name, table)
			}
		}
	case ir.SourceJSON, ir.SourceCSV:
		if len(f.Tables) > 0 {
			return fmt.Errorf("sources.%s: %s fixtures take files, not tables", name, f.Type)
		}
		for file := range f.Files {
			if filepath.IsAbs(file) || file != filepath.Clean(file) || file == ".." || filepath.Dir(file) == ".." {
				return fmt.Errorf("sources.%s.files: %q must be a plain relative path", name, file)
			}
		}
	default:
		return fmt.Errorf("sources.%s: unknown type %q", name, f.Type)
	}
	return nil
}
