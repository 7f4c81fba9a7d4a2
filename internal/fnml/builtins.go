package fnml

import (
	"strings"

	"github.com/google/uuid"
)

// Function namespaces.
const (
	GREL  = "http://users.ugent.be/~bjdmeest/function/grel.ttl#"
	IDLab = "https://w3id.org/imec/idlab/function#"
)

func defaultBuiltins() map[string]Builtin {
	return map[string]Builtin{
		GREL + "toUpperCase": {
			Fn:       func(a map[string]string) (string, bool) { return strings.ToUpper(a["valueParameter"]), true },
			Required: []string{"valueParameter"},
		},
		GREL + "toLowerCase": {
			Fn:       func(a map[string]string) (string, bool) { return strings.ToLower(a["valueParameter"]), true },
			Required: []string{"valueParameter"},
		},
		GREL + "string_trim": {
			Fn:       func(a map[string]string) (string, bool) { return strings.TrimSpace(a["valueParameter"]), true },
			Required: []string{"valueParameter"},
		},
		GREL + "string_replace": {
			Fn: func(a map[string]string) (string, bool) {
				return strings.ReplaceAll(a["valueParameter"], a["param_find"], a["param_replace"]), true
			},
			Required: []string{"valueParameter", "param_find"},
		},
		IDLab + "concat": {
			Fn: func(a map[string]string) (string, bool) {
				return a["str"] + a["delimiter"] + a["otherStr"], true
			},
			Required: []string{"str", "otherStr"},
		},
		IDLab + "random": {
			Fn: func(map[string]string) (string, bool) { return uuid.NewString(), true },
		},
	}
}
