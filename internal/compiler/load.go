package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/rmlstar/internal/ir"
)

// ErrNoCUEFiles is returned when a rules directory holds no .cue files.
var ErrNoCUEFiles = errors.New("no CUE files found")

// LoadRules compiles a mapping document from a .cue file or from every
// .cue file of a directory (one CUE package). It returns the table and
// the number of files read.
func LoadRules(path string) (*ir.RuleTable, int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, err
	}

	ctx := cuecontext.New()
	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, 0, err
		}
		table, err := CompileRules(ctx.CompileBytes(data, cue.Filename(path)))
		return table, 1, err
	}

	files, err := FindCUEFiles(path)
	if err != nil {
		return nil, 0, fmt.Errorf("scanning %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, 0, fmt.Errorf("%w in %s", ErrNoCUEFiles, path)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return nil, len(files), errors.New("no CUE instances loaded")
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, len(files), fmt.Errorf("loading CUE files: %w", inst.Err)
	}
	table, err := CompileRules(ctx.BuildInstance(inst))
	return table, len(files), err
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
