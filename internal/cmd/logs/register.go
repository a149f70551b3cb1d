// Package logs provides CLI commands for aggregating, filtering, and
// exporting a run's structured debug log.
package logs

import "github.com/spf13/cobra"

// Register adds all log commands to the given parent command.
func Register(parent *cobra.Command) {
	RegisterLogsCmd(parent)
}
