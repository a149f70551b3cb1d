// Package mergecmd provides CLI commands that invoke the merge engine
// directly, for operator debugging outside a full automated run: folding a
// phase's worker branches, resuming after a resolved conflict, checking
// merge-risk stats, and a one-shot advisory conflict scan.
package mergecmd

import "github.com/spf13/cobra"

// Register adds all merge commands to the given parent command.
func Register(parent *cobra.Command) {
	RegisterMergeCmd(parent)
	RegisterResumeCmd(parent)
	RegisterStatsCmd(parent)
	RegisterConflictsCmd(parent)
}
