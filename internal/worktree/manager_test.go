package worktree

import (
	"path/filepath"
	"testing"
)

func TestBranchName(t *testing.T) {
	got := BranchName("run-1", "worker-3")
	want := "swarmops/run-1/worker-worker-3"
	if got != want {
		t.Errorf("BranchName() = %q, want %q", got, want)
	}
}

func TestPhaseBranchName(t *testing.T) {
	got := PhaseBranchName("run-1", 2)
	want := "swarmops/run-1/phase-2"
	if got != want {
		t.Errorf("PhaseBranchName() = %q, want %q", got, want)
	}
}

func TestRunPrefix(t *testing.T) {
	got := RunPrefix("run-1")
	want := "swarmops/run-1/"
	if got != want {
		t.Errorf("RunPrefix() = %q, want %q", got, want)
	}
}

func TestManager_WorktreePath(t *testing.T) {
	m := &Manager{worktreeRoot: "/var/swarmops/worktrees"}
	got := m.WorktreePath("run-1", "worker-2")
	want := filepath.Join("/var/swarmops/worktrees", "run-1", "worker-2")
	if got != want {
		t.Errorf("WorktreePath() = %q, want %q", got, want)
	}
}

func TestFindGitRoot_NotARepository(t *testing.T) {
	if _, err := FindGitRoot(t.TempDir()); err == nil {
		t.Error("FindGitRoot() should error on a non-repository directory")
	}
}
