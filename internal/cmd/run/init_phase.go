package run

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/karlmjogila/swarmops/internal/app"
	"github.com/karlmjogila/swarmops/internal/config"
	"github.com/karlmjogila/swarmops/internal/phase"
	"github.com/spf13/cobra"
)

var (
	initRunID       string
	initPhaseNumber int
	initRepoDir     string
	initBaseBranch  string
	initProjectPath string
	initProjectName string
	initWorkers     string
	initTasks       string
)

var initPhaseCmd = &cobra.Command{
	Use:   "init-phase",
	Short: "Record a phase's expected workers before dispatch",
	RunE:  runInitPhase,
}

func init() {
	initPhaseCmd.Flags().StringVar(&initRunID, "run-id", "", "run ID (required)")
	initPhaseCmd.Flags().IntVar(&initPhaseNumber, "phase", 0, "phase number (required)")
	initPhaseCmd.Flags().StringVar(&initRepoDir, "repo-dir", "", "repository directory (required)")
	initPhaseCmd.Flags().StringVar(&initBaseBranch, "base-branch", "main", "branch the phase is built on top of")
	initPhaseCmd.Flags().StringVar(&initProjectPath, "project-path", "", "path to the project's task list")
	initPhaseCmd.Flags().StringVar(&initProjectName, "project-name", "", "project name, for dashboard labeling")
	initPhaseCmd.Flags().StringVar(&initWorkers, "workers", "", "comma-separated worker IDs (required)")
	initPhaseCmd.Flags().StringVar(&initTasks, "tasks", "", "comma-separated task IDs, one per worker (required)")
	_ = initPhaseCmd.MarkFlagRequired("run-id")
	_ = initPhaseCmd.MarkFlagRequired("phase")
	_ = initPhaseCmd.MarkFlagRequired("repo-dir")
	_ = initPhaseCmd.MarkFlagRequired("workers")
	_ = initPhaseCmd.MarkFlagRequired("tasks")
}

// RegisterInitPhaseCmd registers the init-phase command with parent.
func RegisterInitPhaseCmd(parent *cobra.Command) {
	parent.AddCommand(initPhaseCmd)
}

func runInitPhase(cmd *cobra.Command, args []string) error {
	workerIDs := splitCSV(initWorkers)
	taskIDs := splitCSV(initTasks)
	if len(workerIDs) != len(taskIDs) {
		return fmt.Errorf("--workers and --tasks must list the same number of entries (%d vs %d)", len(workerIDs), len(taskIDs))
	}

	cfg := config.Get()
	a, err := app.Build(cfg, nil, initRepoDir, initRunID)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	log := a.Logger.WithPhase(initPhaseNumber)
	log.Info("initializing phase", "workers", workerIDs, "base_branch", initBaseBranch)

	ph, err := a.Collector.InitPhase(phase.InitPhaseParams{
		RunID:       initRunID,
		PhaseNumber: initPhaseNumber,
		RepoDir:     initRepoDir,
		BaseBranch:  initBaseBranch,
		WorkerIDs:   workerIDs,
		TaskIDs:     taskIDs,
		ProjectPath: initProjectPath,
		ProjectName: initProjectName,
	})
	if err != nil {
		return fmt.Errorf("init phase: %w", err)
	}

	return printJSON(ph)
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
