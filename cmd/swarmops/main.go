// Command swarmops is the CLI entrypoint for the orchestrator.
package main

import (
	"fmt"
	"os"

	"github.com/karlmjogila/swarmops/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
