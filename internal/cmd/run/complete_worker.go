package run

import (
	"fmt"

	"github.com/karlmjogila/swarmops/internal/app"
	"github.com/karlmjogila/swarmops/internal/config"
	"github.com/karlmjogila/swarmops/internal/phase"
	"github.com/spf13/cobra"
)

var (
	completeRunID       string
	completePhaseNumber int
	completeRepoDir     string
	completeWorkerID    string
	completeStatus      string
	completeOutput      string
	completeError       string
)

var completeWorkerCmd = &cobra.Command{
	Use:   "complete-worker",
	Short: "Record a worker's terminal outcome within a phase",
	RunE:  runCompleteWorker,
}

func init() {
	completeWorkerCmd.Flags().StringVar(&completeRunID, "run-id", "", "run ID (required)")
	completeWorkerCmd.Flags().IntVar(&completePhaseNumber, "phase", 0, "phase number (required)")
	completeWorkerCmd.Flags().StringVar(&completeRepoDir, "repo-dir", "", "repository directory (required)")
	completeWorkerCmd.Flags().StringVar(&completeWorkerID, "worker", "", "worker ID (required)")
	completeWorkerCmd.Flags().StringVar(&completeStatus, "status", "completed", "completed|failed")
	completeWorkerCmd.Flags().StringVar(&completeOutput, "output", "", "worker output summary")
	completeWorkerCmd.Flags().StringVar(&completeError, "error", "", "failure detail, if status=failed")
	_ = completeWorkerCmd.MarkFlagRequired("run-id")
	_ = completeWorkerCmd.MarkFlagRequired("phase")
	_ = completeWorkerCmd.MarkFlagRequired("repo-dir")
	_ = completeWorkerCmd.MarkFlagRequired("worker")
}

// RegisterCompleteWorkerCmd registers the complete-worker command with parent.
func RegisterCompleteWorkerCmd(parent *cobra.Command) {
	parent.AddCommand(completeWorkerCmd)
}

func runCompleteWorker(cmd *cobra.Command, args []string) error {
	var status phase.WorkerStatus
	switch completeStatus {
	case "completed":
		status = phase.WorkerCompleted
	case "failed":
		status = phase.WorkerFailed
	default:
		return fmt.Errorf("--status must be completed or failed, got %q", completeStatus)
	}

	cfg := config.Get()
	a, err := app.Build(cfg, nil, completeRepoDir, completeRunID)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	log := a.Logger.WithPhase(completePhaseNumber).WithWorker(completeWorkerID)
	log.Info("recording worker completion", "status", completeStatus)

	phaseComplete, allSucceeded, err := a.Collector.OnWorkerComplete(phase.WorkerCompleteParams{
		RunID:       completeRunID,
		PhaseNumber: completePhaseNumber,
		WorkerID:    completeWorkerID,
		Status:      status,
		Output:      completeOutput,
		Error:       completeError,
	})
	if err != nil {
		log.Error("worker completion recording failed", "error", err.Error())
		return fmt.Errorf("complete worker: %w", err)
	}
	log.Info("worker completion recorded", "phaseComplete", phaseComplete, "allSucceeded", allSucceeded)

	return printJSON(map[string]any{
		"phaseComplete": phaseComplete,
		"allSucceeded":  allSucceeded,
	})
}
