package run

import (
	"context"
	"fmt"

	"github.com/karlmjogila/swarmops/internal/app"
	"github.com/karlmjogila/swarmops/internal/config"
	"github.com/karlmjogila/swarmops/internal/dispatch"
	"github.com/karlmjogila/swarmops/internal/orchestrator"
	"github.com/spf13/cobra"
)

var (
	dispatchRunID      string
	dispatchRepoDir    string
	dispatchBaseBranch string
	dispatchWorkerID   string
	dispatchTask       string
	dispatchModel      string
)

var dispatchWorkerCmd = &cobra.Command{
	Use:   "dispatch-worker",
	Short: "Create a worker's worktree and spawn its agent",
	Long: `Creates a dedicated worktree and branch for the worker (swarmops/<runId>/worker-<workerId>,
branched off --base-branch) and dispatches the worker's task to it through the
agent gateway.`,
	RunE: runDispatchWorker,
}

func init() {
	dispatchWorkerCmd.Flags().StringVar(&dispatchRunID, "run-id", "", "run ID (required)")
	dispatchWorkerCmd.Flags().StringVar(&dispatchRepoDir, "repo-dir", "", "repository directory (required)")
	dispatchWorkerCmd.Flags().StringVar(&dispatchBaseBranch, "base-branch", "main", "branch the worker's worktree is created from")
	dispatchWorkerCmd.Flags().StringVar(&dispatchWorkerID, "worker", "", "worker ID (required)")
	dispatchWorkerCmd.Flags().StringVar(&dispatchTask, "task", "", "task prompt to dispatch (required)")
	dispatchWorkerCmd.Flags().StringVar(&dispatchModel, "model", "", "model override for this spawn")
	_ = dispatchWorkerCmd.MarkFlagRequired("run-id")
	_ = dispatchWorkerCmd.MarkFlagRequired("repo-dir")
	_ = dispatchWorkerCmd.MarkFlagRequired("worker")
	_ = dispatchWorkerCmd.MarkFlagRequired("task")
}

// RegisterDispatchWorkerCmd registers the dispatch-worker command with parent.
func RegisterDispatchWorkerCmd(parent *cobra.Command) {
	parent.AddCommand(dispatchWorkerCmd)
}

func runDispatchWorker(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	a, err := app.Build(cfg, nil, dispatchRepoDir, dispatchRunID)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	log := a.Logger.WithWorker(dispatchWorkerID)

	descriptor, err := a.Worktree.Create(dispatchRunID, dispatchWorkerID, dispatchBaseBranch)
	if err != nil {
		return fmt.Errorf("create worktree: %w", err)
	}

	label := fmt.Sprintf("%s:worker-%s", dispatchRunID, dispatchWorkerID)
	log.Info("dispatching worker", "label", label, "model", dispatchModel)
	outcomes := a.Facade.DispatchWorkers(context.Background(), []orchestrator.WorkerSpawnRequest{
		{
			WorkerID: dispatchWorkerID,
			Params: dispatch.SpawnParams{
				Task:  dispatchTask,
				Label: label,
				Model: dispatchModel,
			},
		},
	})

	outcome := outcomes[0]
	if outcome.Err != nil {
		log.Error("worker dispatch failed", "error", outcome.Err.Error())
		return fmt.Errorf("dispatch worker %s: %w", dispatchWorkerID, outcome.Err)
	}
	log.Info("worker dispatched", "sessionKey", outcome.SessionKey)

	return printJSON(map[string]any{
		"worktreePath": descriptor.Path,
		"branch":       descriptor.Branch,
		"sessionKey":   outcome.SessionKey,
	})
}
