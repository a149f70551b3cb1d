package merge

import (
	"fmt"
	"sort"

	"github.com/karlmjogila/swarmops/internal/phase"
	"github.com/karlmjogila/swarmops/internal/vcs"
	"github.com/karlmjogila/swarmops/internal/worktree"
)

// Engine drives worker branches into a phase branch one merge at a time.
// The reviewer and resolver collaborators are optional: a nil value simply
// skips the corresponding spawn step. Test code relies on this, and
// app.Build passes a nil reviewer so that starting a review stays a
// façade-level step.
type Engine struct {
	git       *vcs.Git
	collector *phase.Collector
	reviewer  ReviewStarter
	resolver  ConflictDispatcher
}

// NewEngine creates a merge Engine. reviewer and resolver may be nil.
func NewEngine(git *vcs.Git, collector *phase.Collector, reviewer ReviewStarter, resolver ConflictDispatcher) *Engine {
	return &Engine{git: git, collector: collector, reviewer: reviewer, resolver: resolver}
}

// Merge validates the phase, collects its worker branches, and folds them
// into the phase branch in order, stopping at the first conflict or fatal
// error.
func (e *Engine) Merge(input PhaseInput) (*Result, error) {
	ph, err := e.collector.LoadPhase(input.RunID, input.PhaseNumber)
	if err != nil {
		return nil, err
	}
	if !ph.AllTerminal() {
		return &Result{Status: StatusFailed, Error: "phase has running workers"}, nil
	}
	if ph.HasFailure() {
		return &Result{Status: StatusFailed, Error: "phase has failed workers"}, nil
	}

	collected, err := e.collector.CollectPhaseBranches(input.RunID, input.PhaseNumber)
	if err != nil {
		return &Result{Status: StatusFailed, Error: err.Error()}, nil
	}
	if len(collected.WorkerBranches) == 0 {
		if err := e.collector.CompletePhase(input.RunID, input.PhaseNumber); err != nil {
			return nil, err
		}
		return &Result{Status: StatusNoChanges}, nil
	}

	originalBranch, err := e.git.CurrentBranch(input.RepoDir)
	if err != nil {
		return &Result{Status: StatusFailed, Error: fmt.Sprintf("determine current branch: %v", err)}, nil
	}
	if ok, detail, err := e.git.Checkout(input.RepoDir, collected.PhaseBranch); err != nil || !ok {
		return &Result{Status: StatusFailed, Error: fmt.Sprintf("checkout phase branch: %v (%s)", err, detail)}, nil
	}

	result := e.mergeBranches(input, collected.PhaseBranch, originalBranch, collected.WorkerBranches, nil)
	e.finalize(input, collected.PhaseBranch, result)
	return result, nil
}

// Resume continues a merge that previously stopped on a conflict, starting
// from remainingBranches on the phase branch already recorded for the run.
// An empty remainingBranches means the prior resolution was the last step
// and the phase is trivially complete.
func (e *Engine) Resume(input PhaseInput, remainingBranches []string) (*Result, error) {
	ph, err := e.collector.LoadPhase(input.RunID, input.PhaseNumber)
	if err != nil {
		return nil, err
	}
	if ph.PhaseBranch == "" {
		return &Result{Status: StatusFailed, Error: "phase has no collected phase branch to resume on"}, nil
	}

	if len(remainingBranches) == 0 {
		result := &Result{Status: StatusCompleted}
		e.finalize(input, ph.PhaseBranch, result)
		return result, nil
	}

	originalBranch, err := e.git.CurrentBranch(input.RepoDir)
	if err != nil {
		return &Result{Status: StatusFailed, Error: fmt.Sprintf("determine current branch: %v", err)}, nil
	}
	if ok, detail, err := e.git.Checkout(input.RepoDir, ph.PhaseBranch); err != nil || !ok {
		return &Result{Status: StatusFailed, Error: fmt.Sprintf("checkout phase branch: %v (%s)", err, detail)}, nil
	}

	result := e.mergeBranches(input, ph.PhaseBranch, originalBranch, remainingBranches, nil)
	e.finalize(input, ph.PhaseBranch, result)
	return result, nil
}

// mergeBranches folds branches into the already-checked-out phase branch in
// order, returning the result of the first conflict or fatal merge, or a
// completed Result if every branch merges cleanly.
func (e *Engine) mergeBranches(input PhaseInput, phaseBranch, originalBranch string, branches, alreadyMerged []string) *Result {
	merged := append([]string{}, alreadyMerged...)

	for i, branch := range branches {
		if !e.git.BranchExists(branch) {
			continue
		}

		message := fmt.Sprintf("Merge worker branch %s", branch)
		outcome, detail, err := e.git.Merge(input.RepoDir, branch, vcs.MergeOptions{Message: message})

		switch outcome {
		case vcs.ResultSuccess:
			merged = append(merged, branch)

		case vcs.ResultConflict:
			conflictFiles, cfErr := e.git.ConflictedFiles(input.RepoDir)
			if cfErr != nil {
				conflictFiles = nil
			}
			mergeBase, mbErr := e.git.MergeBase(phaseBranch, branch)
			if mbErr != nil {
				mergeBase = ""
			}
			remaining := append([]string{}, branches[i+1:]...)
			return &Result{
				Status:         StatusConflict,
				MergedBranches: merged,
				ConflictInfo: &ConflictInfo{
					PhaseBranch:       phaseBranch,
					MergeBase:         mergeBase,
					FailedBranch:      branch,
					ConflictFiles:     conflictFiles,
					RemainingBranches: remaining,
				},
			}

		default: // vcs.ResultFatal
			_, _, _ = e.git.MergeAbort(input.RepoDir)
			if originalBranch != "" {
				_, _, _ = e.git.Checkout(input.RepoDir, originalBranch)
			}
			return &Result{
				Status:         StatusFailed,
				MergedBranches: merged,
				Error:          fmt.Sprintf("merge of %s failed: %v (%s)", branch, err, detail),
			}
		}
	}

	return &Result{Status: StatusCompleted, MergedBranches: merged}
}

// finalize applies the terminal-state transition and collaborator spawn
// appropriate to result.Status. Resolver dispatch failures are recorded on
// the result only as an absent ResolverSession; they never change Status.
func (e *Engine) finalize(input PhaseInput, phaseBranch string, result *Result) {
	switch result.Status {
	case StatusCompleted:
		if err := e.collector.CompletePhase(input.RunID, input.PhaseNumber); err != nil {
			result.Error = fmt.Sprintf("phase completed but failed to persist: %v", err)
		}
		if e.reviewer != nil {
			if session, err := e.reviewer.StartChain(input.RunID, input.PhaseNumber, input.RepoDir, phaseBranch); err == nil {
				result.ReviewerSession = session
			}
		}

	case StatusFailed:
		_ = e.collector.FailPhase(input.RunID, input.PhaseNumber, result.Error)

	case StatusConflict:
		if e.resolver == nil {
			return
		}
		ph, err := e.collector.LoadPhase(input.RunID, input.PhaseNumber)
		if err != nil {
			return
		}
		wanted := append([]string{result.ConflictInfo.FailedBranch}, result.MergedBranches...)
		contexts, err := e.collector.GetWorkerTaskContexts(ph, wanted)
		if err != nil {
			return
		}
		session, err := e.resolver.Dispatch(ConflictDispatchParams{
			RunID:         input.RunID,
			PhaseNumber:   input.PhaseNumber,
			RepoDir:       input.RepoDir,
			PhaseBranch:   phaseBranch,
			FailedBranch:  result.ConflictInfo.FailedBranch,
			TargetBranch:  phaseBranch,
			ConflictFiles: result.ConflictInfo.ConflictFiles,
			TaskContexts:  contexts,
		})
		if err == nil {
			result.ResolverSession = session
		}
	}
}

// PotentialConflicts returns the files touched by more than one of branches
// relative to baseBranch. It is an advisory pre-merge query, not a
// correctness gate: the sequential merge loop is what actually detects
// conflicts.
func PotentialConflicts(git *vcs.Git, repoDir string, branches []string, baseBranch string) ([]string, error) {
	touchCount := make(map[string]int)
	for _, branch := range branches {
		files, err := git.DiffNames(repoDir, baseBranch, branch)
		if err != nil {
			return nil, fmt.Errorf("diff names for %s: %w", branch, err)
		}
		seen := make(map[string]bool, len(files))
		for _, f := range files {
			if seen[f] {
				continue
			}
			seen[f] = true
			touchCount[f]++
		}
	}

	var conflicts []string
	for f, count := range touchCount {
		if count > 1 {
			conflicts = append(conflicts, f)
		}
	}
	sort.Strings(conflicts)
	return conflicts, nil
}

// MergeStats summarizes a phase's merge risk from its current worker branch
// state, without merging anything.
func (e *Engine) MergeStats(input PhaseInput) (*Stats, error) {
	ph, err := e.collector.LoadPhase(input.RunID, input.PhaseNumber)
	if err != nil {
		return nil, err
	}

	withChanges := 0
	for _, w := range ph.Workers {
		branch := worktree.BranchName(input.RunID, w.ID)
		if !e.git.BranchExists(branch) {
			continue
		}
		ahead, err := e.git.AheadCount(ph.BaseBranch, branch)
		if err != nil {
			return nil, fmt.Errorf("count commits ahead for %s: %w", branch, err)
		}
		if ahead > 0 {
			withChanges++
		}
	}

	risk := "high"
	switch {
	case withChanges <= 2:
		risk = "low"
	case withChanges <= 5:
		risk = "medium"
	}

	return &Stats{
		TotalBranches:         len(ph.Workers),
		BranchesWithChanges:   withChanges,
		EstimatedConflictRisk: risk,
	}, nil
}
