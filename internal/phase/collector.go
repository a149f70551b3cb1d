package phase

import (
	"fmt"
	"sync"
	"time"

	"github.com/karlmjogila/swarmops/internal/errors"
	"github.com/karlmjogila/swarmops/internal/event"
	"github.com/karlmjogila/swarmops/internal/vcs"
	"github.com/karlmjogila/swarmops/internal/worktree"
)

// Collector drives a Phase through its lifecycle: initialization, worker
// completion, branch collection, and terminal transitions. All mutations to
// a given (runId, phaseNumber) go through a single per-key lock, so two
// concurrent onWorkerComplete calls for distinct workers of the same phase
// serialize cleanly instead of racing on a read-modify-write of the store.
type Collector struct {
	store *Store
	git   *vcs.Git
	bus   *event.Bus

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewCollector creates a Collector backed by store and git, publishing
// lifecycle events to bus.
func NewCollector(store *Store, git *vcs.Git, bus *event.Bus) *Collector {
	return &Collector{
		store: store,
		git:   git,
		bus:   bus,
		locks: make(map[string]*sync.Mutex),
	}
}

func phaseKey(runID string, phaseNumber int) string {
	return fmt.Sprintf("%s:%d", runID, phaseNumber)
}

func (c *Collector) lockFor(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[key]
	if !ok {
		l = &sync.Mutex{}
		c.locks[key] = l
	}
	return l
}

// InitPhaseParams are the inputs to InitPhase.
type InitPhaseParams struct {
	RunID       string
	PhaseNumber int
	RepoDir     string
	BaseBranch  string
	WorkerIDs   []string
	TaskIDs     []string
	ProjectPath string
	ProjectName string
}

// InitPhase creates a new Phase record with one Worker per WorkerIDs entry
// in the pending state, and persists it atomically.
func (c *Collector) InitPhase(p InitPhaseParams) (*Phase, error) {
	key := phaseKey(p.RunID, p.PhaseNumber)
	lock := c.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	workers := make([]*Worker, len(p.WorkerIDs))
	for i, id := range p.WorkerIDs {
		taskID := ""
		if i < len(p.TaskIDs) {
			taskID = p.TaskIDs[i]
		}
		workers[i] = &Worker{ID: id, TaskID: taskID, Status: WorkerPending}
	}

	phase := &Phase{
		RunID:       p.RunID,
		PhaseNumber: p.PhaseNumber,
		RepoDir:     p.RepoDir,
		BaseBranch:  p.BaseBranch,
		ProjectPath: p.ProjectPath,
		ProjectName: p.ProjectName,
		Workers:     workers,
		Status:      StatusRunning,
		CreatedAt:   time.Now(),
	}

	if err := c.store.Save(phase); err != nil {
		return nil, fmt.Errorf("save phase: %w", err)
	}

	if c.bus != nil {
		c.bus.Publish(event.NewPhaseInitializedEvent(p.RunID, p.PhaseNumber, p.TaskIDs))
	}
	return phase, nil
}

// WorkerCompleteParams are the inputs to OnWorkerComplete.
type WorkerCompleteParams struct {
	RunID       string
	PhaseNumber int
	WorkerID    string
	Status      WorkerStatus
	Output      string
	Error       string
}

// OnWorkerComplete transitions a worker to a terminal state. If the worker
// is already terminal, this is a no-op. Returns whether the phase as a
// whole is now complete (every worker terminal) and whether every worker
// succeeded.
func (c *Collector) OnWorkerComplete(p WorkerCompleteParams) (phaseComplete, allSucceeded bool, err error) {
	key := phaseKey(p.RunID, p.PhaseNumber)
	lock := c.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	ph, err := c.store.Load(p.RunID, p.PhaseNumber)
	if err != nil {
		return false, false, errors.NewPhaseError("load phase", err).WithRunID(p.RunID).WithPhaseNumber(p.PhaseNumber)
	}

	w := ph.WorkerByID(p.WorkerID)
	if w == nil {
		return false, false, errors.NewPhaseError("worker not found in phase", errors.ErrWorkerNotFound).
			WithRunID(p.RunID).WithPhaseNumber(p.PhaseNumber).WithTaskID(p.WorkerID)
	}

	if !w.Status.IsTerminal() {
		now := time.Now()
		w.Status = p.Status
		w.Output = p.Output
		w.Error = p.Error
		w.CompletedAt = &now

		if err := c.store.Save(ph); err != nil {
			return false, false, fmt.Errorf("save phase: %w", err)
		}
	}

	return ph.AllTerminal(), ph.AllSucceeded(), nil
}

// LoadPhase reads a phase record without acquiring its per-key lock. Callers
// that need a consistent read-modify-write should go through a method that
// locks, such as OnWorkerComplete or CollectPhaseBranches.
func (c *Collector) LoadPhase(runID string, phaseNumber int) (*Phase, error) {
	ph, err := c.store.Load(runID, phaseNumber)
	if err != nil {
		return nil, errors.NewPhaseError("load phase", err).WithRunID(runID).WithPhaseNumber(phaseNumber)
	}
	return ph, nil
}

// IsPhaseReadyForCollection reports whether every worker in the phase is
// terminal and none of them failed.
func IsPhaseReadyForCollection(ph *Phase) bool {
	return ph.AllTerminal() && !ph.HasFailure()
}

// CollectResult is the outcome of CollectPhaseBranches.
type CollectResult struct {
	WorkerBranches []string
	PhaseBranch    string
}

// CollectPhaseBranches computes the set of worker branches with real
// changes, and ensures a phase branch exists off the phase's base branch
// for the sequential merge engine to merge them into.
func (c *Collector) CollectPhaseBranches(runID string, phaseNumber int) (*CollectResult, error) {
	key := phaseKey(runID, phaseNumber)
	lock := c.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	ph, err := c.store.Load(runID, phaseNumber)
	if err != nil {
		return nil, errors.NewPhaseError("load phase", err).WithRunID(runID).WithPhaseNumber(phaseNumber)
	}

	if !ph.AllTerminal() {
		return nil, errors.NewPhaseError("phase has non-terminal workers", errors.ErrPhaseNotReady).
			WithRunID(runID).WithPhaseNumber(phaseNumber)
	}
	if ph.HasFailure() {
		var failed []string
		for _, w := range ph.Workers {
			if w.Status == WorkerFailed {
				failed = append(failed, w.ID)
			}
		}
		return nil, errors.NewPhaseError(fmt.Sprintf("phase has failed workers: %v", failed), errors.ErrPhaseNotReady).
			WithRunID(runID).WithPhaseNumber(phaseNumber)
	}

	var branches []string
	for _, w := range ph.Workers {
		branch := worktree.BranchName(runID, w.ID)
		if !c.git.BranchExists(branch) {
			continue
		}
		ahead, err := c.git.AheadCount(ph.BaseBranch, branch)
		if err != nil {
			return nil, fmt.Errorf("count commits ahead for %s: %w", branch, err)
		}
		if ahead > 0 {
			branches = append(branches, branch)
		}
	}

	phaseBranch := worktree.PhaseBranchName(runID, phaseNumber)
	if !c.git.BranchExists(phaseBranch) {
		if ok, detail, err := c.git.BranchCreate(phaseBranch, ph.BaseBranch); err != nil || !ok {
			return nil, fmt.Errorf("create phase branch %s: %w (%s)", phaseBranch, err, detail)
		}
	}

	ph.PhaseBranch = phaseBranch
	if err := c.store.Save(ph); err != nil {
		return nil, fmt.Errorf("save phase: %w", err)
	}

	if branches == nil {
		branches = []string{}
	}
	return &CollectResult{WorkerBranches: branches, PhaseBranch: phaseBranch}, nil
}

// CompletePhase marks a phase as completed and writes completedAt.
func (c *Collector) CompletePhase(runID string, phaseNumber int) error {
	key := phaseKey(runID, phaseNumber)
	lock := c.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	ph, err := c.store.Load(runID, phaseNumber)
	if err != nil {
		return errors.NewPhaseError("load phase", err).WithRunID(runID).WithPhaseNumber(phaseNumber)
	}

	now := time.Now()
	ph.Status = StatusCompleted
	ph.CompletedAt = &now
	if err := c.store.Save(ph); err != nil {
		return fmt.Errorf("save phase: %w", err)
	}

	if c.bus != nil {
		successCount := 0
		for _, w := range ph.Workers {
			if w.Status == WorkerCompleted {
				successCount++
			}
		}
		c.bus.Publish(event.NewPhaseCompletedEvent(runID, phaseNumber, len(ph.Workers), successCount))
	}
	return nil
}

// FailPhase marks a phase as failed with the given reason and writes
// completedAt.
func (c *Collector) FailPhase(runID string, phaseNumber int, reason string) error {
	key := phaseKey(runID, phaseNumber)
	lock := c.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	ph, err := c.store.Load(runID, phaseNumber)
	if err != nil {
		return errors.NewPhaseError("load phase", err).WithRunID(runID).WithPhaseNumber(phaseNumber)
	}

	now := time.Now()
	ph.Status = StatusFailed
	ph.CompletedAt = &now
	if err := c.store.Save(ph); err != nil {
		return fmt.Errorf("save phase: %w", err)
	}

	if c.bus != nil {
		c.bus.Publish(event.NewPhaseFailedEvent(runID, phaseNumber, reason))
	}
	return nil
}

// GetWorkerTaskContexts builds a WorkerTaskContext for every branch in
// branches, used by the conflict resolver to build its prompt.
func (c *Collector) GetWorkerTaskContexts(ph *Phase, branches []string) ([]WorkerTaskContext, error) {
	wanted := make(map[string]bool, len(branches))
	for _, b := range branches {
		wanted[b] = true
	}

	var contexts []WorkerTaskContext
	for _, w := range ph.Workers {
		branch := worktree.BranchName(ph.RunID, w.ID)
		if !wanted[branch] {
			continue
		}

		commitLog, err := c.git.CommitLog(ph.RepoDir, ph.BaseBranch, branch)
		if err != nil {
			return nil, fmt.Errorf("commit log for %s: %w", branch, err)
		}
		changedFiles, err := c.git.DiffNames(ph.RepoDir, ph.BaseBranch, branch)
		if err != nil {
			return nil, fmt.Errorf("diff names for %s: %w", branch, err)
		}

		contexts = append(contexts, WorkerTaskContext{
			WorkerID:     w.ID,
			TaskID:       w.TaskID,
			Branch:       branch,
			CommitLog:    commitLog,
			ChangedFiles: changedFiles,
		})
	}
	return contexts, nil
}
