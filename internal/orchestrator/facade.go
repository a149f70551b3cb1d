package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/karlmjogila/swarmops/internal/config"
	"github.com/karlmjogila/swarmops/internal/dispatch"
	"github.com/karlmjogila/swarmops/internal/logging"
	"github.com/karlmjogila/swarmops/internal/merge"
	"github.com/karlmjogila/swarmops/internal/phase"
	"github.com/karlmjogila/swarmops/internal/review"
	"github.com/karlmjogila/swarmops/internal/vcs"
)

// Facade binds the merge engine, conflict resolver, review chain, and
// agent dispatcher into the orchestrator's public operations. The merge
// engine it holds is always wired with a conflict resolver but never with
// a reviewer: review-starting is a façade-level composition so the plain
// merge/resume operations can be used without triggering one.
type Facade struct {
	engine    *merge.Engine
	collector *phase.Collector
	reviewer  *review.Engine
	git       *vcs.Git
	dispatch  *dispatch.Client
	cfg       config.DispatchConfig
	logger    *logging.Logger
}

// New creates a Facade. reviewer may be nil if review-starting operations
// will not be used.
func New(engine *merge.Engine, collector *phase.Collector, reviewer *review.Engine, git *vcs.Git, dispatcher *dispatch.Client, cfg config.DispatchConfig, logger *logging.Logger) *Facade {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Facade{engine: engine, collector: collector, reviewer: reviewer, git: git, dispatch: dispatcher, cfg: cfg, logger: logger}
}

// MergePhase folds a phase's collected worker branches into its phase
// branch. It never starts a review chain.
func (f *Facade) MergePhase(input merge.PhaseInput) (*merge.Result, error) {
	return f.engine.Merge(input)
}

// ResumeMerge continues a merge previously stopped on conflict. It never
// starts a review chain.
func (f *Facade) ResumeMerge(input merge.PhaseInput, remainingBranches []string) (*merge.Result, error) {
	return f.engine.Resume(input, remainingBranches)
}

// MergePhaseWithReview merges the phase and, on completed or no-changes,
// starts the review chain, setting ReviewerSession on the result.
func (f *Facade) MergePhaseWithReview(input merge.PhaseInput) (*merge.Result, error) {
	result, err := f.engine.Merge(input)
	if err != nil {
		return result, err
	}
	f.maybeStartReview(input, result)
	return result, nil
}

// ResumeMergeWithReview resumes a merge and, on completed or no-changes,
// starts the review chain, setting ReviewerSession on the result.
func (f *Facade) ResumeMergeWithReview(input merge.PhaseInput, remainingBranches []string) (*merge.Result, error) {
	result, err := f.engine.Resume(input, remainingBranches)
	if err != nil {
		return result, err
	}
	f.maybeStartReview(input, result)
	return result, nil
}

func (f *Facade) maybeStartReview(input merge.PhaseInput, result *merge.Result) {
	if f.reviewer == nil {
		return
	}
	if result.Status != merge.StatusCompleted && result.Status != merge.StatusNoChanges {
		return
	}
	ph, err := f.collector.LoadPhase(input.RunID, input.PhaseNumber)
	if err != nil {
		f.logger.Warn("could not load phase for review start",
			"run_id", input.RunID, "phase", input.PhaseNumber, "error", err.Error())
		return
	}
	session, err := f.reviewer.StartChain(input.RunID, input.PhaseNumber, input.RepoDir, ph.PhaseBranch)
	if err != nil {
		f.logger.Warn("review chain start failed",
			"run_id", input.RunID, "phase", input.PhaseNumber, "error", err.Error())
		return
	}
	result.ReviewerSession = session
}

// TriggerPhaseReview starts the review chain for a phase branch directly,
// independent of a merge call.
func (f *Facade) TriggerPhaseReview(runID string, phaseNumber int, repoDir, phaseBranch string) (string, error) {
	if f.reviewer == nil {
		return "", fmt.Errorf("no review engine configured")
	}
	return f.reviewer.StartChain(runID, phaseNumber, repoDir, phaseBranch)
}

// DetectPotentialConflicts reports files touched by more than one branch
// relative to baseBranch, an advisory pre-merge query.
func (f *Facade) DetectPotentialConflicts(repoDir string, branches []string, baseBranch string) ([]string, error) {
	return merge.PotentialConflicts(f.git, repoDir, branches, baseBranch)
}

// GetPhaseMergeStats returns the phase's merge risk summary.
func (f *Facade) GetPhaseMergeStats(input merge.PhaseInput) (*merge.Stats, error) {
	return f.engine.MergeStats(input)
}

// WorkerSpawnRequest is one worker's dispatch request within a phase fan-out.
type WorkerSpawnRequest struct {
	WorkerID string
	Params   dispatch.SpawnParams
}

// WorkerSpawnOutcome pairs a worker ID with its dispatch result.
type WorkerSpawnOutcome struct {
	WorkerID   string
	SessionKey string
	Err        error
}

// DispatchWorkers fans a phase's worker spawns out concurrently, bounded
// by DispatchConfig.MaxConcurrentSpawns in-flight goroutines. A per-worker
// spawn failure does not abort the others; it is captured on that
// worker's outcome.
func (f *Facade) DispatchWorkers(ctx context.Context, requests []WorkerSpawnRequest) []WorkerSpawnOutcome {
	limit := f.cfg.MaxConcurrentSpawns
	if limit <= 0 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	outcomes := make([]WorkerSpawnOutcome, len(requests))
	var mu sync.Mutex

	for i, req := range requests {
		i, req := i, req
		g.Go(func() error {
			result, err := f.dispatch.Spawn(gctx, req.Params)

			mu.Lock()
			if err != nil {
				outcomes[i] = WorkerSpawnOutcome{WorkerID: req.WorkerID, Err: err}
			} else {
				outcomes[i] = WorkerSpawnOutcome{WorkerID: req.WorkerID, SessionKey: result.SessionKey}
			}
			mu.Unlock()

			// Per-worker spawn failures must not abort the remaining fan-out.
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}
