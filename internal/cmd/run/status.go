package run

import (
	"fmt"

	"github.com/karlmjogila/swarmops/internal/app"
	"github.com/karlmjogila/swarmops/internal/config"
	"github.com/spf13/cobra"
)

var (
	statusRunID       string
	statusPhaseNumber int
	statusRepoDir     string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print a phase's current state",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusRunID, "run-id", "", "run ID (required)")
	statusCmd.Flags().IntVar(&statusPhaseNumber, "phase", 0, "phase number (required)")
	statusCmd.Flags().StringVar(&statusRepoDir, "repo-dir", "", "repository directory (required)")
	_ = statusCmd.MarkFlagRequired("run-id")
	_ = statusCmd.MarkFlagRequired("phase")
	_ = statusCmd.MarkFlagRequired("repo-dir")
}

// RegisterStatusCmd registers the status command with parent.
func RegisterStatusCmd(parent *cobra.Command) {
	parent.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	a, err := app.Build(cfg, nil, statusRepoDir, statusRunID)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ph, err := a.Collector.LoadPhase(statusRunID, statusPhaseNumber)
	if err != nil {
		return fmt.Errorf("load phase: %w", err)
	}

	return printJSON(ph)
}
