package mergecmd

import (
	"fmt"
	"strings"

	"github.com/karlmjogila/swarmops/internal/app"
	"github.com/karlmjogila/swarmops/internal/config"
	"github.com/karlmjogila/swarmops/internal/merge"
	"github.com/spf13/cobra"
)

var (
	resumeRunID           string
	resumePhaseNumber     int
	resumeRepoDir         string
	resumeRemainingBranch string
	resumeWithReview      bool
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Continue a merge previously stopped on conflict",
	RunE:  runResume,
}

func init() {
	resumeCmd.Flags().StringVar(&resumeRunID, "run-id", "", "run ID (required)")
	resumeCmd.Flags().IntVar(&resumePhaseNumber, "phase", 0, "phase number (required)")
	resumeCmd.Flags().StringVar(&resumeRepoDir, "repo-dir", "", "repository directory (required)")
	resumeCmd.Flags().StringVar(&resumeRemainingBranch, "remaining", "", "comma-separated branches still to merge, in order")
	resumeCmd.Flags().BoolVar(&resumeWithReview, "with-review", false, "start the review chain on completed or no-changes")
	_ = resumeCmd.MarkFlagRequired("run-id")
	_ = resumeCmd.MarkFlagRequired("phase")
	_ = resumeCmd.MarkFlagRequired("repo-dir")
}

// RegisterResumeCmd registers the resume command with parent.
func RegisterResumeCmd(parent *cobra.Command) {
	parent.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	var remaining []string
	if strings.TrimSpace(resumeRemainingBranch) != "" {
		for _, b := range strings.Split(resumeRemainingBranch, ",") {
			if b = strings.TrimSpace(b); b != "" {
				remaining = append(remaining, b)
			}
		}
	}

	cfg := config.Get()
	a, err := app.Build(cfg, nil, resumeRepoDir, resumeRunID)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	log := a.Logger.WithPhase(resumePhaseNumber)
	log.Info("resuming merge", "remaining", remaining, "with_review", resumeWithReview)

	input := merge.PhaseInput{RunID: resumeRunID, PhaseNumber: resumePhaseNumber, RepoDir: resumeRepoDir}

	var result *merge.Result
	if resumeWithReview {
		result, err = a.Facade.ResumeMergeWithReview(input, remaining)
	} else {
		result, err = a.Facade.ResumeMerge(input, remaining)
	}
	if err != nil {
		log.Error("merge resume failed", "error", err.Error())
		return fmt.Errorf("resume merge: %w", err)
	}
	log.Info("merge resume finished", "status", result.Status)

	return printJSON(result)
}
