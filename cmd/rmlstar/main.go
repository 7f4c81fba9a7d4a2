// Command rmlstar materializes RDF-star statements from RML mapping
// documents.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/rmlstar/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
