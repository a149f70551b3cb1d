package review

import (
	"encoding/json"
	"fmt"

	"github.com/karlmjogila/swarmops/internal/app"
	"github.com/karlmjogila/swarmops/internal/config"
	"github.com/spf13/cobra"
)

var (
	triggerRunID       string
	triggerPhaseNumber int
	triggerRepoDir     string
	triggerPhaseBranch string
)

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Start the review chain for a phase branch",
	RunE:  runTrigger,
}

func init() {
	triggerCmd.Flags().StringVar(&triggerRunID, "run-id", "", "run ID (required)")
	triggerCmd.Flags().IntVar(&triggerPhaseNumber, "phase", 0, "phase number (required)")
	triggerCmd.Flags().StringVar(&triggerRepoDir, "repo-dir", "", "repository directory (required)")
	triggerCmd.Flags().StringVar(&triggerPhaseBranch, "phase-branch", "", "phase branch to review (required)")
	_ = triggerCmd.MarkFlagRequired("run-id")
	_ = triggerCmd.MarkFlagRequired("phase")
	_ = triggerCmd.MarkFlagRequired("repo-dir")
	_ = triggerCmd.MarkFlagRequired("phase-branch")
}

// RegisterTriggerCmd registers the trigger command with parent.
func RegisterTriggerCmd(parent *cobra.Command) {
	parent.AddCommand(triggerCmd)
}

func runTrigger(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	a, err := app.Build(cfg, nil, triggerRepoDir, triggerRunID)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	log := a.Logger.WithPhase(triggerPhaseNumber)
	log.Info("triggering phase review", "phase_branch", triggerPhaseBranch)

	sessionKey, err := a.Facade.TriggerPhaseReview(triggerRunID, triggerPhaseNumber, triggerRepoDir, triggerPhaseBranch)
	if err != nil {
		log.Error("phase review trigger failed", "error", err.Error())
		return fmt.Errorf("trigger phase review: %w", err)
	}
	log.Info("phase review triggered", "sessionKey", sessionKey)

	return printJSON(map[string]any{"sessionKey": sessionKey})
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
