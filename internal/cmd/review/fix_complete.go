package review

import (
	"fmt"

	"github.com/karlmjogila/swarmops/internal/app"
	"github.com/karlmjogila/swarmops/internal/config"
	"github.com/spf13/cobra"
)

var (
	fixRunID       string
	fixPhaseNumber int
	fixRepoDir     string
	fixSucceeded   bool
)

var fixCompleteCmd = &cobra.Command{
	Use:   "fix-complete",
	Short: "Record a fixer's completion, resetting the review chain to its first reviewer",
	RunE:  runFixComplete,
}

func init() {
	fixCompleteCmd.Flags().StringVar(&fixRunID, "run-id", "", "run ID (required)")
	fixCompleteCmd.Flags().IntVar(&fixPhaseNumber, "phase", 0, "phase number (required)")
	fixCompleteCmd.Flags().StringVar(&fixRepoDir, "repo-dir", "", "repository directory (required)")
	fixCompleteCmd.Flags().BoolVar(&fixSucceeded, "succeeded", true, "whether the fixer's changes applied successfully")
	_ = fixCompleteCmd.MarkFlagRequired("run-id")
	_ = fixCompleteCmd.MarkFlagRequired("phase")
	_ = fixCompleteCmd.MarkFlagRequired("repo-dir")
}

// RegisterFixCompleteCmd registers the fix-complete command with parent.
func RegisterFixCompleteCmd(parent *cobra.Command) {
	parent.AddCommand(fixCompleteCmd)
}

func runFixComplete(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	a, err := app.Build(cfg, nil, fixRepoDir, fixRunID)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	log := a.Logger.WithPhase(fixPhaseNumber)
	log.Info("recording fix completion", "succeeded", fixSucceeded)

	sessionKey, err := a.Review.OnFixComplete(fixRunID, fixPhaseNumber, fixSucceeded)
	if err != nil {
		log.Error("fix completion recording failed", "error", err.Error())
		return fmt.Errorf("record fix completion: %w", err)
	}
	log.Info("fix completion recorded", "sessionKey", sessionKey)

	return printJSON(map[string]any{"sessionKey": sessionKey})
}
