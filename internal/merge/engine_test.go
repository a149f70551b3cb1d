package merge

import (
	"errors"
	"testing"

	"github.com/karlmjogila/swarmops/internal/event"
	"github.com/karlmjogila/swarmops/internal/phase"
	"github.com/karlmjogila/swarmops/internal/vcs"
)

// scriptedRunner is a minimal vcs.CommandRunner double covering the git
// subcommands the merge engine issues: rev-parse, checkout, merge,
// merge --abort, diff (both conflicted-files and name-only-between-refs
// forms), rev-list, and branch.
type scriptedRunner struct {
	existingBranches map[string]bool
	aheadCounts      map[string]string
	diffNames        map[string]string
	mergeOutcome     map[string]string // branch -> "success" | "conflict" | "fatal"
	conflictedFiles  string

	currentBranch    string
	checkoutHistory  []string
	mergeAbortCalled bool
}

func newScriptedRunner() *scriptedRunner {
	return &scriptedRunner{
		existingBranches: make(map[string]bool),
		aheadCounts:      make(map[string]string),
		diffNames:        make(map[string]string),
		mergeOutcome:     make(map[string]string),
		currentBranch:    "main",
	}
}

func (r *scriptedRunner) Run(dir, name string, args ...string) ([]byte, error) {
	if len(args) == 0 {
		return nil, nil
	}
	switch args[0] {
	case "rev-parse":
		if len(args) >= 3 && args[1] == "--verify" {
			branch := args[2]
			branch = branch[len("refs/heads/"):]
			if r.existingBranches[branch] {
				return []byte(""), nil
			}
			return []byte(""), errors.New("unknown revision")
		}
		if len(args) >= 2 && args[1] == "--abbrev-ref" {
			return []byte(r.currentBranch), nil
		}
		return []byte(""), nil

	case "checkout":
		branch := args[len(args)-1]
		r.currentBranch = branch
		r.checkoutHistory = append(r.checkoutHistory, branch)
		return []byte(""), nil

	case "merge":
		if len(args) >= 2 && args[1] == "--abort" {
			r.mergeAbortCalled = true
			return []byte(""), nil
		}
		branch := args[1]
		switch r.mergeOutcome[branch] {
		case "conflict":
			return []byte("CONFLICT (content): Merge conflict in file.txt\nAutomatic merge failed; fix conflicts and then commit the result."),
				errors.New("exit status 1")
		case "fatal":
			return []byte("fatal: not something we can merge"), errors.New("exit status 128")
		default:
			return []byte("Merge made by the 'ort' strategy."), nil
		}

	case "diff":
		if len(args) >= 3 && args[2] == "--diff-filter=U" {
			return []byte(r.conflictedFiles), nil
		}
		if len(args) >= 3 {
			return []byte(r.diffNames[args[2]]), nil
		}
		return []byte(""), nil

	case "rev-list":
		spec := args[len(args)-1]
		if count, ok := r.aheadCounts[spec]; ok {
			return []byte(count), nil
		}
		return []byte("0"), nil

	case "branch":
		if len(args) >= 2 {
			r.existingBranches[args[1]] = true
		}
		return []byte(""), nil
	}
	return []byte(""), nil
}

type stubReviewer struct {
	session string
	err     error
	calls   int
}

func (s *stubReviewer) StartChain(runID string, phaseNumber int, repoDir, phaseBranch string) (string, error) {
	s.calls++
	return s.session, s.err
}

type stubResolver struct {
	session string
	err     error
	params  ConflictDispatchParams
	calls   int
}

func (s *stubResolver) Dispatch(params ConflictDispatchParams) (string, error) {
	s.calls++
	s.params = params
	return s.session, s.err
}

func newTestEngine(t *testing.T, runner *scriptedRunner, reviewer ReviewStarter, resolver ConflictDispatcher) (*Engine, *phase.Collector) {
	t.Helper()
	store, err := phase.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	git := vcs.NewWithRunner("/repo", runner)
	collector := phase.NewCollector(store, git, event.NewBus())
	return NewEngine(git, collector, reviewer, resolver), collector
}

func initCompletedPhase(t *testing.T, collector *phase.Collector, runner *scriptedRunner, workerIDs []string) {
	t.Helper()
	taskIDs := make([]string, len(workerIDs))
	for i, id := range workerIDs {
		taskIDs[i] = "task-" + id
	}
	if _, err := collector.InitPhase(phase.InitPhaseParams{
		RunID: "run-1", PhaseNumber: 1, RepoDir: "/repo", BaseBranch: "main",
		WorkerIDs: workerIDs, TaskIDs: taskIDs,
	}); err != nil {
		t.Fatalf("InitPhase() error = %v", err)
	}
	for _, id := range workerIDs {
		branch := "swarmops/run-1/worker-" + id
		runner.existingBranches[branch] = true
		runner.aheadCounts["main.."+branch] = "1"
		if _, _, err := collector.OnWorkerComplete(phase.WorkerCompleteParams{
			RunID: "run-1", PhaseNumber: 1, WorkerID: id, Status: phase.WorkerCompleted,
		}); err != nil {
			t.Fatalf("OnWorkerComplete(%s) error = %v", id, err)
		}
	}
}

func TestMerge_RefusesNonTerminalPhase(t *testing.T) {
	runner := newScriptedRunner()
	engine, collector := newTestEngine(t, runner, nil, nil)
	if _, err := collector.InitPhase(phase.InitPhaseParams{
		RunID: "run-1", PhaseNumber: 1, RepoDir: "/repo", BaseBranch: "main",
		WorkerIDs: []string{"w1"}, TaskIDs: []string{"t1"},
	}); err != nil {
		t.Fatalf("InitPhase() error = %v", err)
	}

	result, err := engine.Merge(PhaseInput{RunID: "run-1", PhaseNumber: 1, RepoDir: "/repo"})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if result.Status != StatusFailed {
		t.Errorf("Status = %q, want failed", result.Status)
	}
}

func TestMerge_RefusesFailedWorkers(t *testing.T) {
	runner := newScriptedRunner()
	engine, collector := newTestEngine(t, runner, nil, nil)
	if _, err := collector.InitPhase(phase.InitPhaseParams{
		RunID: "run-1", PhaseNumber: 1, RepoDir: "/repo", BaseBranch: "main",
		WorkerIDs: []string{"w1"}, TaskIDs: []string{"t1"},
	}); err != nil {
		t.Fatalf("InitPhase() error = %v", err)
	}
	if _, _, err := collector.OnWorkerComplete(phase.WorkerCompleteParams{
		RunID: "run-1", PhaseNumber: 1, WorkerID: "w1", Status: phase.WorkerFailed,
	}); err != nil {
		t.Fatalf("OnWorkerComplete() error = %v", err)
	}

	result, err := engine.Merge(PhaseInput{RunID: "run-1", PhaseNumber: 1, RepoDir: "/repo"})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if result.Status != StatusFailed {
		t.Errorf("Status = %q, want failed", result.Status)
	}
}

func TestMerge_NoChanges(t *testing.T) {
	runner := newScriptedRunner()
	engine, collector := newTestEngine(t, runner, nil, nil)
	if _, err := collector.InitPhase(phase.InitPhaseParams{
		RunID: "run-1", PhaseNumber: 1, RepoDir: "/repo", BaseBranch: "main",
		WorkerIDs: []string{"w1"}, TaskIDs: []string{"t1"},
	}); err != nil {
		t.Fatalf("InitPhase() error = %v", err)
	}
	if _, _, err := collector.OnWorkerComplete(phase.WorkerCompleteParams{
		RunID: "run-1", PhaseNumber: 1, WorkerID: "w1", Status: phase.WorkerCompleted,
	}); err != nil {
		t.Fatalf("OnWorkerComplete() error = %v", err)
	}

	result, err := engine.Merge(PhaseInput{RunID: "run-1", PhaseNumber: 1, RepoDir: "/repo"})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if result.Status != StatusNoChanges {
		t.Errorf("Status = %q, want no-changes", result.Status)
	}
}

func TestMerge_CompletedSpawnsReviewer(t *testing.T) {
	runner := newScriptedRunner()
	reviewer := &stubReviewer{session: "review-session-1"}
	engine, collector := newTestEngine(t, runner, reviewer, nil)
	initCompletedPhase(t, collector, runner, []string{"w1", "w2"})

	result, err := engine.Merge(PhaseInput{RunID: "run-1", PhaseNumber: 1, RepoDir: "/repo"})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if result.Status != StatusCompleted {
		t.Fatalf("Status = %q, want completed", result.Status)
	}
	want := []string{"swarmops/run-1/worker-w1", "swarmops/run-1/worker-w2"}
	if len(result.MergedBranches) != len(want) {
		t.Fatalf("MergedBranches = %v, want %v", result.MergedBranches, want)
	}
	for i, b := range want {
		if result.MergedBranches[i] != b {
			t.Errorf("MergedBranches[%d] = %q, want %q", i, result.MergedBranches[i], b)
		}
	}
	if result.ReviewerSession != "review-session-1" {
		t.Errorf("ReviewerSession = %q, want review-session-1", result.ReviewerSession)
	}
	if reviewer.calls != 1 {
		t.Errorf("reviewer.calls = %d, want 1", reviewer.calls)
	}

	ph, err := collector.LoadPhase("run-1", 1)
	if err != nil {
		t.Fatalf("LoadPhase() error = %v", err)
	}
	if ph.Status != phase.StatusCompleted {
		t.Errorf("phase status = %v, want completed", ph.Status)
	}
}

func TestMerge_ConflictStopsAndDispatchesResolver(t *testing.T) {
	runner := newScriptedRunner()
	runner.mergeOutcome["swarmops/run-1/worker-w2"] = "conflict"
	runner.conflictedFiles = "shared.go"
	resolver := &stubResolver{session: "resolver-session-1"}
	engine, collector := newTestEngine(t, runner, nil, resolver)
	initCompletedPhase(t, collector, runner, []string{"w1", "w2", "w3"})

	result, err := engine.Merge(PhaseInput{RunID: "run-1", PhaseNumber: 1, RepoDir: "/repo"})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if result.Status != StatusConflict {
		t.Fatalf("Status = %q, want conflict", result.Status)
	}
	if len(result.MergedBranches) != 1 || result.MergedBranches[0] != "swarmops/run-1/worker-w1" {
		t.Errorf("MergedBranches = %v, want only w1's branch merged before the conflict", result.MergedBranches)
	}
	if result.ConflictInfo == nil {
		t.Fatal("ConflictInfo is nil")
	}
	if result.ConflictInfo.FailedBranch != "swarmops/run-1/worker-w2" {
		t.Errorf("FailedBranch = %q", result.ConflictInfo.FailedBranch)
	}
	if result.ConflictInfo.PhaseBranch == "" {
		t.Error("PhaseBranch = \"\", want the collected phase branch")
	}
	if len(result.ConflictInfo.ConflictFiles) != 1 || result.ConflictInfo.ConflictFiles[0] != "shared.go" {
		t.Errorf("ConflictFiles = %v, want [shared.go]", result.ConflictInfo.ConflictFiles)
	}
	want := []string{"swarmops/run-1/worker-w3"}
	if len(result.ConflictInfo.RemainingBranches) != len(want) || result.ConflictInfo.RemainingBranches[0] != want[0] {
		t.Errorf("RemainingBranches = %v, want %v", result.ConflictInfo.RemainingBranches, want)
	}
	if result.ResolverSession != "resolver-session-1" {
		t.Errorf("ResolverSession = %q, want resolver-session-1", result.ResolverSession)
	}
	if resolver.params.FailedBranch != "swarmops/run-1/worker-w2" {
		t.Errorf("dispatch params FailedBranch = %q", resolver.params.FailedBranch)
	}

	// The conflicted merge must not be aborted: it is left for the resolver.
	if runner.mergeAbortCalled {
		t.Error("merge --abort should not be called on a conflict")
	}

	ph, err := collector.LoadPhase("run-1", 1)
	if err != nil {
		t.Fatalf("LoadPhase() error = %v", err)
	}
	if ph.Status != phase.StatusRunning {
		t.Errorf("phase status = %v, want unchanged (still running) after a conflict", ph.Status)
	}
}

func TestMerge_FatalErrorAbortsAndRestoresBranch(t *testing.T) {
	runner := newScriptedRunner()
	runner.mergeOutcome["swarmops/run-1/worker-w1"] = "fatal"
	engine, collector := newTestEngine(t, runner, nil, nil)
	initCompletedPhase(t, collector, runner, []string{"w1"})

	result, err := engine.Merge(PhaseInput{RunID: "run-1", PhaseNumber: 1, RepoDir: "/repo"})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if result.Status != StatusFailed {
		t.Fatalf("Status = %q, want failed", result.Status)
	}
	if result.Error == "" {
		t.Error("Error should describe the fatal merge failure")
	}
	if !runner.mergeAbortCalled {
		t.Error("merge --abort should be called on a fatal error")
	}
	if got := runner.checkoutHistory; len(got) == 0 || got[len(got)-1] != "main" {
		t.Errorf("checkoutHistory = %v, want the original branch restored last", got)
	}

	ph, err := collector.LoadPhase("run-1", 1)
	if err != nil {
		t.Fatalf("LoadPhase() error = %v", err)
	}
	if ph.Status != phase.StatusFailed {
		t.Errorf("phase status = %v, want failed", ph.Status)
	}
}

func TestResume_EmptyRemainingIsTriviallyComplete(t *testing.T) {
	runner := newScriptedRunner()
	reviewer := &stubReviewer{session: "review-session-2"}
	engine, collector := newTestEngine(t, runner, reviewer, nil)
	initCompletedPhase(t, collector, runner, []string{"w1"})
	if _, err := collector.CollectPhaseBranches("run-1", 1); err != nil {
		t.Fatalf("CollectPhaseBranches() error = %v", err)
	}

	result, err := engine.Resume(PhaseInput{RunID: "run-1", PhaseNumber: 1, RepoDir: "/repo"}, nil)
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if result.Status != StatusCompleted {
		t.Errorf("Status = %q, want completed", result.Status)
	}
	if reviewer.calls != 1 {
		t.Errorf("reviewer.calls = %d, want 1", reviewer.calls)
	}
}

func TestResume_MergesRemainingBranches(t *testing.T) {
	runner := newScriptedRunner()
	engine, collector := newTestEngine(t, runner, nil, nil)
	initCompletedPhase(t, collector, runner, []string{"w1", "w2"})
	if _, err := collector.CollectPhaseBranches("run-1", 1); err != nil {
		t.Fatalf("CollectPhaseBranches() error = %v", err)
	}

	result, err := engine.Resume(PhaseInput{RunID: "run-1", PhaseNumber: 1, RepoDir: "/repo"},
		[]string{"swarmops/run-1/worker-w2"})
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if result.Status != StatusCompleted {
		t.Fatalf("Status = %q, want completed", result.Status)
	}
	if len(result.MergedBranches) != 1 || result.MergedBranches[0] != "swarmops/run-1/worker-w2" {
		t.Errorf("MergedBranches = %v, want only w2's branch", result.MergedBranches)
	}
}

func TestPotentialConflicts(t *testing.T) {
	runner := newScriptedRunner()
	runner.diffNames["main...branch-a"] = "shared.go\nonly-a.go"
	runner.diffNames["main...branch-b"] = "shared.go\nonly-b.go"
	git := vcs.NewWithRunner("/repo", runner)

	got, err := PotentialConflicts(git, "/repo", []string{"branch-a", "branch-b"}, "main")
	if err != nil {
		t.Fatalf("PotentialConflicts() error = %v", err)
	}
	if len(got) != 1 || got[0] != "shared.go" {
		t.Errorf("PotentialConflicts() = %v, want [shared.go]", got)
	}
}

func TestMergeStats_RiskThresholds(t *testing.T) {
	runner := newScriptedRunner()
	engine, collector := newTestEngine(t, runner, nil, nil)
	workerIDs := []string{"w1", "w2", "w3"}
	initCompletedPhase(t, collector, runner, workerIDs)

	stats, err := engine.MergeStats(PhaseInput{RunID: "run-1", PhaseNumber: 1, RepoDir: "/repo"})
	if err != nil {
		t.Fatalf("MergeStats() error = %v", err)
	}
	if stats.TotalBranches != 3 {
		t.Errorf("TotalBranches = %d, want 3", stats.TotalBranches)
	}
	if stats.BranchesWithChanges != 3 {
		t.Errorf("BranchesWithChanges = %d, want 3", stats.BranchesWithChanges)
	}
	if stats.EstimatedConflictRisk != "medium" {
		t.Errorf("EstimatedConflictRisk = %q, want medium", stats.EstimatedConflictRisk)
	}
}
