package ir

// Version constants for the rule table schema and engine.
const (
	// RuleTableVersion is the normalized rule table schema version.
	RuleTableVersion = "1"

	// EngineVersion is the rmlstar engine version.
	EngineVersion = "0.1.0"
)
