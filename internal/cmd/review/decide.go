package review

import (
	"fmt"

	"github.com/karlmjogila/swarmops/internal/app"
	"github.com/karlmjogila/swarmops/internal/config"
	swreview "github.com/karlmjogila/swarmops/internal/review"
	"github.com/spf13/cobra"
)

var (
	decideRunID            string
	decidePhaseNumber      int
	decideRepoDir          string
	decideDecision         string
	decideComments         string
	decideFixInstructions  string
	decideEscalationReason string
)

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Record a reviewer's decision for a phase's in-progress review chain",
	RunE:  runDecide,
}

func init() {
	decideCmd.Flags().StringVar(&decideRunID, "run-id", "", "run ID (required)")
	decideCmd.Flags().IntVar(&decidePhaseNumber, "phase", 0, "phase number (required)")
	decideCmd.Flags().StringVar(&decideRepoDir, "repo-dir", "", "repository directory (required)")
	decideCmd.Flags().StringVar(&decideDecision, "decision", "", "approve|fix|escalate (required)")
	decideCmd.Flags().StringVar(&decideComments, "comments", "", "reviewer comments")
	decideCmd.Flags().StringVar(&decideFixInstructions, "fix-instructions", "", "instructions for the fixer, if decision=fix")
	decideCmd.Flags().StringVar(&decideEscalationReason, "escalation-reason", "", "reason, if decision=escalate")
	_ = decideCmd.MarkFlagRequired("run-id")
	_ = decideCmd.MarkFlagRequired("phase")
	_ = decideCmd.MarkFlagRequired("repo-dir")
	_ = decideCmd.MarkFlagRequired("decision")
}

// RegisterDecideCmd registers the decide command with parent.
func RegisterDecideCmd(parent *cobra.Command) {
	parent.AddCommand(decideCmd)
}

func runDecide(cmd *cobra.Command, args []string) error {
	decision := swreview.Decision(decideDecision)
	switch decision {
	case swreview.DecisionApprove, swreview.DecisionFix, swreview.DecisionEscalate:
	default:
		return fmt.Errorf("--decision must be approve, fix, or escalate, got %q", decideDecision)
	}

	cfg := config.Get()
	a, err := app.Build(cfg, nil, decideRepoDir, decideRunID)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	log := a.Logger.WithPhase(decidePhaseNumber)
	log.Info("recording review decision", "decision", decision)

	result, err := a.Review.OnDecision(decideRunID, decidePhaseNumber, swreview.DecisionRequest{
		Decision:         decision,
		Comments:         decideComments,
		FixInstructions:  decideFixInstructions,
		EscalationReason: decideEscalationReason,
	})
	if err != nil {
		log.Error("review decision recording failed", "error", err.Error())
		return fmt.Errorf("record review decision: %w", err)
	}
	log.Info("review decision recorded", "complete", result.Complete, "escalated", result.Escalated)

	return printJSON(result)
}
