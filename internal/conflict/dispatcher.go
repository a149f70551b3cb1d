package conflict

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/karlmjogila/swarmops/internal/dispatch"
	"github.com/karlmjogila/swarmops/internal/event"
	"github.com/karlmjogila/swarmops/internal/logging"
	"github.com/karlmjogila/swarmops/internal/merge"
	"github.com/karlmjogila/swarmops/internal/vcs"
)

// Dispatcher builds a conflict-resolution prompt from phase state and
// branch diffs, and spawns an agent to resolve the conflict in the
// working tree. Satisfies internal/merge.ConflictDispatcher.
type Dispatcher struct {
	git        *vcs.Git
	dispatcher *dispatch.Client
	bus        *event.Bus
	logger     *logging.Logger

	// ProjectGoal, when set, is included in every resolver prompt. New
	// leaves it empty, and app.Build does not set it.
	ProjectGoal string
}

// New creates a Dispatcher.
func New(git *vcs.Git, dispatcher *dispatch.Client, bus *event.Bus, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Dispatcher{git: git, dispatcher: dispatcher, bus: bus, logger: logger}
}

// Dispatch implements internal/merge.ConflictDispatcher.
func (d *Dispatcher) Dispatch(params merge.ConflictDispatchParams) (string, error) {
	versions, err := d.loadVersions(params.RepoDir, params.ConflictFiles, params.FailedBranch, params.TargetBranch)
	if err != nil {
		return "", fmt.Errorf("load conflicting file versions: %w", err)
	}

	prompt := buildPrompt(d.ProjectGoal, params.FailedBranch, params.TargetBranch, params.TaskContexts, versions)
	label := fmt.Sprintf("conflict:%s:phase-%d", params.RunID, params.PhaseNumber)

	result, err := d.dispatcher.Spawn(context.Background(), dispatch.SpawnParams{
		Task:    prompt,
		Label:   label,
		Cleanup: dispatch.CleanupKeep,
	})
	if err != nil {
		d.logger.Warn("conflict resolver spawn failed",
			"run_id", params.RunID, "phase", params.PhaseNumber, "error", err.Error())
		return "", err
	}

	d.record(params)
	return result.SessionKey, nil
}

// loadVersions fetches the working-tree content (still carrying conflict
// markers) and the two ref versions for each conflicting file. A file
// missing at a ref is permitted and rendered as such.
func (d *Dispatcher) loadVersions(repoDir string, files []string, sourceBranch, targetBranch string) ([]fileVersions, error) {
	out := make([]fileVersions, 0, len(files))
	for _, f := range files {
		working, err := os.ReadFile(filepath.Join(repoDir, f))
		if err != nil {
			return nil, fmt.Errorf("read working tree file %s: %w", f, err)
		}

		v := fileVersions{Path: f, WorkingTree: string(working)}
		if content, err := d.git.FileAtRef(repoDir, f, sourceBranch); err == nil {
			v.AtSource, v.AtSourceOK = content, true
		}
		if content, err := d.git.FileAtRef(repoDir, f, targetBranch); err == nil {
			v.AtTarget, v.AtTargetOK = content, true
		}
		out = append(out, v)
	}
	return out, nil
}

// record appends a "started" conflict-resolution ledger entry via the
// shared event bus, matching the worker-spawned/phase-* entries other
// components publish the same way.
func (d *Dispatcher) record(params merge.ConflictDispatchParams) {
	if d.bus == nil {
		return
	}
	taskID := ""
	for _, ctx := range params.TaskContexts {
		if ctx.Branch == params.FailedBranch {
			taskID = ctx.TaskID
			break
		}
	}
	d.bus.Publish(event.NewConflictResolutionEvent(
		params.RunID, params.PhaseNumber, taskID, params.FailedBranch, params.TargetBranch,
		params.ConflictFiles, false,
	))
}
