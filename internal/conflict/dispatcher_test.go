package conflict

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/karlmjogila/swarmops/internal/config"
	"github.com/karlmjogila/swarmops/internal/dispatch"
	"github.com/karlmjogila/swarmops/internal/event"
	"github.com/karlmjogila/swarmops/internal/merge"
	"github.com/karlmjogila/swarmops/internal/phase"
	"github.com/karlmjogila/swarmops/internal/vcs"
)

// showRunner answers "git show <ref>:<path>" for a fixed table and
// everything else with an error, simulating a file missing at a ref.
type showRunner struct {
	content map[string]string // "ref:path" -> content
}

func (r *showRunner) Run(dir, name string, args ...string) ([]byte, error) {
	if len(args) == 2 && args[0] == "show" {
		if content, ok := r.content[args[1]]; ok {
			return []byte(content), nil
		}
		return nil, os.ErrNotExist
	}
	return []byte(""), nil
}

type fakeSpawnTransport struct{}

func (f *fakeSpawnTransport) Spawn(ctx context.Context, req dispatch.SpawnRequest) (*dispatch.SpawnResponse, int, error) {
	return &dispatch.SpawnResponse{Status: "ok", ChildSessionKey: req.Label}, 200, nil
}

func (f *fakeSpawnTransport) ListSessions(ctx context.Context) ([]dispatch.SessionInfo, error) {
	return nil, nil
}

func newTestDispatcher(t *testing.T, runner vcs.CommandRunner, bus *event.Bus) *Dispatcher {
	t.Helper()
	git := vcs.NewWithRunner("/repo", runner)
	cfg := config.DispatchConfig{SkipVerify: true, MaxConcurrentSpawns: 100, SpawnWindowMs: 1000}
	client := dispatch.NewClient(&fakeSpawnTransport{}, cfg, nil, nil)
	return New(git, client, bus, nil)
}

func TestDispatch_BuildsPromptAndSpawns(t *testing.T) {
	repoDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(repoDir, "main.go"), []byte("<<<<<<< HEAD\nconflict\n======="), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	runner := &showRunner{content: map[string]string{
		"worker-branch:main.go": "source version",
		"phase-branch:main.go":  "target version",
	}}
	d := newTestDispatcher(t, runner, event.NewBus())

	sessionKey, err := d.Dispatch(merge.ConflictDispatchParams{
		RunID:         "run-1",
		PhaseNumber:   1,
		RepoDir:       repoDir,
		PhaseBranch:   "phase-branch",
		FailedBranch:  "worker-branch",
		TargetBranch:  "phase-branch",
		ConflictFiles: []string{"main.go"},
		TaskContexts: []phase.WorkerTaskContext{
			{WorkerID: "w-1", TaskID: "t-1", Branch: "worker-branch", CommitLog: "did the thing", ChangedFiles: []string{"main.go"}},
		},
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if sessionKey == "" {
		t.Error("expected a non-empty session key")
	}
}

func TestDispatch_MissingFileAtRefIsPermitted(t *testing.T) {
	repoDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(repoDir, "new_file.go"), []byte("<<<<<<< HEAD\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	runner := &showRunner{content: map[string]string{}}
	d := newTestDispatcher(t, runner, nil)

	sessionKey, err := d.Dispatch(merge.ConflictDispatchParams{
		RunID:         "run-1",
		PhaseNumber:   1,
		RepoDir:       repoDir,
		PhaseBranch:   "phase-branch",
		FailedBranch:  "worker-branch",
		TargetBranch:  "phase-branch",
		ConflictFiles: []string{"new_file.go"},
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if sessionKey == "" {
		t.Error("expected a non-empty session key even when versions are missing at both refs")
	}
}

func TestDispatch_PublishesConflictResolutionEvent(t *testing.T) {
	repoDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(repoDir, "main.go"), []byte("conflict"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	bus := event.NewBus()
	received := make(chan event.ConflictResolutionEvent, 1)
	bus.Subscribe("conflict.resolution", func(e event.Event) {
		received <- e.(event.ConflictResolutionEvent)
	})

	d := newTestDispatcher(t, &showRunner{content: map[string]string{}}, bus)
	if _, err := d.Dispatch(merge.ConflictDispatchParams{
		RunID:         "run-1",
		PhaseNumber:   2,
		RepoDir:       repoDir,
		FailedBranch:  "worker-branch",
		TargetBranch:  "phase-branch",
		ConflictFiles: []string{"main.go"},
	}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	select {
	case e := <-received:
		if e.Resolved {
			t.Error("expected Resolved=false at dispatch time")
		}
		if e.RunID != "run-1" || e.PhaseNumber != 2 {
			t.Errorf("event = %+v, want RunID=run-1 PhaseNumber=2", e)
		}
	default:
		t.Error("expected a conflict.resolution event to be published")
	}
}
