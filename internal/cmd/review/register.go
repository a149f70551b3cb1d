// Package review provides CLI commands for the review chain engine:
// starting a chain for a merged phase branch, recording a reviewer's
// decision, and recording a fixer's completion.
package review

import "github.com/spf13/cobra"

// Register adds all review chain commands to the given parent command.
func Register(parent *cobra.Command) {
	RegisterTriggerCmd(parent)
	RegisterDecideCmd(parent)
	RegisterFixCompleteCmd(parent)
}
