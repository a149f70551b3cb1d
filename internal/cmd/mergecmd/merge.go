package mergecmd

import (
	"encoding/json"
	"fmt"

	"github.com/karlmjogila/swarmops/internal/app"
	"github.com/karlmjogila/swarmops/internal/config"
	"github.com/karlmjogila/swarmops/internal/merge"
	"github.com/spf13/cobra"
)

var (
	mergeRunID       string
	mergePhaseNumber int
	mergeRepoDir     string
	mergeWithReview  bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Fold a phase's collected worker branches into its phase branch",
	RunE:  runMerge,
}

func init() {
	mergeCmd.Flags().StringVar(&mergeRunID, "run-id", "", "run ID (required)")
	mergeCmd.Flags().IntVar(&mergePhaseNumber, "phase", 0, "phase number (required)")
	mergeCmd.Flags().StringVar(&mergeRepoDir, "repo-dir", "", "repository directory (required)")
	mergeCmd.Flags().BoolVar(&mergeWithReview, "with-review", false, "start the review chain on completed or no-changes")
	_ = mergeCmd.MarkFlagRequired("run-id")
	_ = mergeCmd.MarkFlagRequired("phase")
	_ = mergeCmd.MarkFlagRequired("repo-dir")
}

// RegisterMergeCmd registers the merge command with parent.
func RegisterMergeCmd(parent *cobra.Command) {
	parent.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	a, err := app.Build(cfg, nil, mergeRepoDir, mergeRunID)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	log := a.Logger.WithPhase(mergePhaseNumber)
	log.Info("merging phase", "with_review", mergeWithReview)

	input := merge.PhaseInput{RunID: mergeRunID, PhaseNumber: mergePhaseNumber, RepoDir: mergeRepoDir}

	var result *merge.Result
	if mergeWithReview {
		result, err = a.Facade.MergePhaseWithReview(input)
	} else {
		result, err = a.Facade.MergePhase(input)
	}
	if err != nil {
		log.Error("phase merge failed", "error", err.Error())
		return fmt.Errorf("merge phase: %w", err)
	}
	log.Info("phase merge finished", "status", result.Status)

	return printJSON(result)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
