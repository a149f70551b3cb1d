// Package run provides CLI commands for driving a phase's worker lifecycle:
// initializing a phase's expected workers, dispatching a worker, recording
// a worker's outcome, and inspecting phase status.
package run

import "github.com/spf13/cobra"

// Register adds all phase lifecycle commands to the given parent command.
func Register(parent *cobra.Command) {
	RegisterInitPhaseCmd(parent)
	RegisterDispatchWorkerCmd(parent)
	RegisterCompleteWorkerCmd(parent)
	RegisterStatusCmd(parent)
}
