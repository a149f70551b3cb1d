package mergecmd

import (
	"fmt"

	"github.com/karlmjogila/swarmops/internal/app"
	"github.com/karlmjogila/swarmops/internal/config"
	"github.com/karlmjogila/swarmops/internal/merge"
	"github.com/spf13/cobra"
)

var (
	statsRunID       string
	statsPhaseNumber int
	statsRepoDir     string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print a phase's merge risk summary",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsRunID, "run-id", "", "run ID (required)")
	statsCmd.Flags().IntVar(&statsPhaseNumber, "phase", 0, "phase number (required)")
	statsCmd.Flags().StringVar(&statsRepoDir, "repo-dir", "", "repository directory (required)")
	_ = statsCmd.MarkFlagRequired("run-id")
	_ = statsCmd.MarkFlagRequired("phase")
	_ = statsCmd.MarkFlagRequired("repo-dir")
}

// RegisterStatsCmd registers the stats command with parent.
func RegisterStatsCmd(parent *cobra.Command) {
	parent.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	a, err := app.Build(cfg, nil, statsRepoDir, statsRunID)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	stats, err := a.Facade.GetPhaseMergeStats(merge.PhaseInput{
		RunID: statsRunID, PhaseNumber: statsPhaseNumber, RepoDir: statsRepoDir,
	})
	if err != nil {
		return fmt.Errorf("get phase merge stats: %w", err)
	}

	return printJSON(stats)
}
