package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/rmlstar/internal/compiler"
	"github.com/roach88/rmlstar/internal/ir"
)

// LoadResult contains a compiled mapping document.
type LoadResult struct {
	Table     *ir.RuleTable
	FileCount int // Number of CUE files read
}

// LoadError represents an error that occurred while loading rules.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadMapping compiles the mapping document at path, a .cue file or a
// directory of .cue files. Every failure is a *LoadError.
func LoadMapping(path string) (*LoadResult, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("rules not found: %s", path)}
		}
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing rules: %v", err)}
	}

	table, n, err := compiler.LoadRules(path)
	if err != nil {
		return nil, convertLoadError(err)
	}
	return &LoadResult{Table: table, FileCount: n}, nil
}

// convertLoadError converts a compiler error to a LoadError with position info.
func convertLoadError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	if errors.Is(err, compiler.ErrNoCUEFiles) {
		return &LoadError{Code: ErrCodeNoFiles, Message: err.Error()}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE evaluation failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeConfig      = "E008" // Invalid configuration
	ErrCodeSource      = "E009" // Source or sink could not be opened

	// Mapping document errors
	ErrCodeTriplesMap = "E101" // Missing or malformed triples_map block
	ErrCodeTermMap    = "E102" // Malformed term map
	ErrCodeGather     = "E103" // Malformed gather
	ErrCodeFunction   = "E104" // Malformed function execution
	ErrCodeSourceDecl = "E105" // Malformed logical source

	// Static analysis errors
	ErrCodeCycle = "E120" // Quoted triples map cycle
)

// MapFieldToErrorCode maps a compiler error field to an error code.
// Fields are paths such as "triples_map.TM.subject.gather.references".
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "cue":
		return ErrCodeBuildFailed
	case field == "triples_map":
		return ErrCodeTriplesMap
	case strings.Contains(field, ".gather"):
		return ErrCodeGather
	case strings.HasPrefix(field, "function"):
		return ErrCodeFunction
	case strings.Contains(field, ".source"):
		return ErrCodeSourceDecl
	case strings.Contains(field, ".subject"), strings.Contains(field, ".predicate"),
		strings.Contains(field, ".object"), strings.Contains(field, ".graph"):
		return ErrCodeTermMap
	case strings.HasPrefix(field, "triples_map."):
		return ErrCodeTriplesMap
	default:
		return ErrCodeGeneric
	}
}
