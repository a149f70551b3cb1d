package mergecmd

import (
	"fmt"
	"strings"

	"github.com/karlmjogila/swarmops/internal/app"
	"github.com/karlmjogila/swarmops/internal/config"
	"github.com/spf13/cobra"
)

var (
	conflictsRepoDir    string
	conflictsBranches   string
	conflictsBaseBranch string
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Report files touched by more than one branch relative to a base branch",
	Long: `An advisory pre-merge query: lists files that would be touched by more than
one of the given branches relative to --base-branch. This does not gate a
merge attempt, it only flags where a fold is likely to conflict.`,
	RunE: runConflicts,
}

func init() {
	conflictsCmd.Flags().StringVar(&conflictsRepoDir, "repo-dir", "", "repository directory (required)")
	conflictsCmd.Flags().StringVar(&conflictsBranches, "branches", "", "comma-separated branch names (required)")
	conflictsCmd.Flags().StringVar(&conflictsBaseBranch, "base-branch", "main", "branch to diff each candidate branch against")
	_ = conflictsCmd.MarkFlagRequired("repo-dir")
	_ = conflictsCmd.MarkFlagRequired("branches")
}

// RegisterConflictsCmd registers the conflicts command with parent.
func RegisterConflictsCmd(parent *cobra.Command) {
	parent.AddCommand(conflictsCmd)
}

func runConflicts(cmd *cobra.Command, args []string) error {
	var branches []string
	for _, b := range strings.Split(conflictsBranches, ",") {
		if b = strings.TrimSpace(b); b != "" {
			branches = append(branches, b)
		}
	}
	if len(branches) == 0 {
		return fmt.Errorf("--branches must list at least one branch")
	}

	cfg := config.Get()
	a, err := app.Build(cfg, nil, conflictsRepoDir, "")
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	files, err := a.Facade.DetectPotentialConflicts(conflictsRepoDir, branches, conflictsBaseBranch)
	if err != nil {
		return fmt.Errorf("detect potential conflicts: %w", err)
	}

	return printJSON(map[string]any{"files": files})
}
