// Package worktree implements deterministic, idempotent creation and
// teardown of per-worker git worktrees, keyed by (runId, workerId).
package worktree

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/karlmjogila/swarmops/internal/logging"
	"github.com/karlmjogila/swarmops/internal/vcs"
)

// Descriptor identifies a worker's worktree and the branch checked out in it.
type Descriptor struct {
	RunID    string
	WorkerID string
	Path     string
	Branch   string
}

// Manager creates and tears down per-worker worktrees under a configured
// root directory.
type Manager struct {
	repoDir            string
	worktreeRoot       string
	git                *vcs.Git
	logger             *logging.Logger
	sparseCheckoutDirs []string
	coneMode           bool
	copyLocalFiles     []string
}

// New creates a Manager for repoDir, placing new worktrees under worktreeRoot.
func New(repoDir, worktreeRoot string) (*Manager, error) {
	gitRoot, err := FindGitRoot(repoDir)
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %s", repoDir)
	}

	return &Manager{
		repoDir:      gitRoot,
		worktreeRoot: worktreeRoot,
		git:          vcs.New(gitRoot),
	}, nil
}

// SetLogger sets the logger for the worktree manager.
func (m *Manager) SetLogger(logger *logging.Logger) {
	m.logger = logger
}

// SetSparseCheckoutConfig configures sparse checkout for new worktrees.
// Pass nil or empty directories to disable.
func (m *Manager) SetSparseCheckoutConfig(directories []string, coneMode bool) {
	m.sparseCheckoutDirs = directories
	m.coneMode = coneMode
}

// SetCopyLocalFiles configures the gitignored files propagated into every
// new worktree (operator-configured allowlist, e.g. local agent instruction
// files), relative to the repository root.
func (m *Manager) SetCopyLocalFiles(files []string) {
	m.copyLocalFiles = files
}

// WorktreePath computes the deterministic path for a worker's worktree.
func (m *Manager) WorktreePath(runID, workerID string) string {
	return filepath.Join(m.worktreeRoot, runID, workerID)
}

// BranchName computes the deterministic branch name for a worker.
func BranchName(runID, workerID string) string {
	return fmt.Sprintf("swarmops/%s/worker-%s", runID, workerID)
}

// PhaseBranchName computes the deterministic branch name for a phase's
// consolidated merge target.
func PhaseBranchName(runID string, phaseNumber int) string {
	return fmt.Sprintf("swarmops/%s/phase-%d", runID, phaseNumber)
}

// RunPrefix returns the branch-name prefix shared by every branch belonging
// to runID, for cleanup matching.
func RunPrefix(runID string) string {
	return fmt.Sprintf("swarmops/%s/", runID)
}

// Create creates a worker's worktree, branched from baseBranch. If a
// worktree or branch from a prior attempt already occupies the same path or
// name, they are removed first so the create is idempotent.
func (m *Manager) Create(runID, workerID, baseBranch string) (*Descriptor, error) {
	path := m.WorktreePath(runID, workerID)
	branch := BranchName(runID, workerID)

	// Idempotent recreate: tear down any leftovers from a prior attempt.
	if _, err := os.Stat(path); err == nil {
		if ok, _, rmErr := m.git.WorktreeRemove(path, true); !ok {
			m.logWarn("stale worktree remove failed, removing directory manually", "path", path, "error", rmErr)
			_ = os.RemoveAll(path)
		}
	}
	if m.git.BranchExists(branch) {
		if ok, _, delErr := m.git.BranchDelete(branch); !ok {
			m.logWarn("stale branch delete failed", "branch", branch, "error", delErr)
		}
	}
	_, _, _ = m.git.WorktreePrune()

	if !m.git.IsWorkingCopy() {
		return nil, fmt.Errorf("repository is not a working copy: %s", m.repoDir)
	}
	m.git.FetchBestEffort(m.repoDir, baseBranch)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create worktree parent directory: %w", err)
	}

	ok, detail, err := m.git.WorktreeAdd(path, branch, baseBranch)
	if !ok {
		return nil, fmt.Errorf("failed to create worktree for worker %s: %w\n%s", workerID, err, detail)
	}

	m.scopedLogger(runID, workerID).Info("worktree created", "path", path, "branch", branch)

	if err := m.InitSubmodules(path); err != nil {
		m.logWarn("failed to initialize submodules in worktree", "path", path, "error", err)
	}

	m.applySparseCheckout(path)
	if err := m.copyLocalFilesInto(path); err != nil {
		m.logWarn("failed to copy local files into worktree", "path", path, "error", err)
	}

	return &Descriptor{RunID: runID, WorkerID: workerID, Path: path, Branch: branch}, nil
}

// Commit stages all changes in the worktree and commits them. If there are
// no changes, it succeeds with an empty commit hash.
func (m *Manager) Commit(worktreePath, message string) (commitHash string, err error) {
	if ok, detail, err := m.git.StageAll(worktreePath); !ok {
		return "", fmt.Errorf("failed to stage changes: %w\n%s", err, detail)
	}
	return m.git.Commit(worktreePath, message)
}

// Push best-effort pushes the worker branch to remote.
func (m *Manager) Push(worktreePath, remote string) error {
	g := vcs.New(worktreePath)
	if ok, detail, err := g.Push(remote, false); !ok {
		return fmt.Errorf("failed to push: %w\n%s", err, detail)
	}
	return nil
}

// Cleanup removes a worker's worktree and, if deleteBranch is true, its branch.
func (m *Manager) Cleanup(runID, workerID string, deleteBranch bool) error {
	path := m.WorktreePath(runID, workerID)
	branch := BranchName(runID, workerID)

	if ok, detail, err := m.git.WorktreeRemove(path, true); !ok {
		m.logWarn("worktree remove failed, cleaning up manually", "path", path, "error", err, "detail", detail)
		_ = os.RemoveAll(path)
		_, _, _ = m.git.WorktreePrune()
	}

	if deleteBranch {
		if ok, _, err := m.git.BranchDelete(branch); !ok {
			m.logWarn("branch delete failed during cleanup", "branch", branch, "error", err)
		}
	}

	return nil
}

// CleanupRun removes every worktree belonging to runID and, if
// deleteBranches is true, every branch matching the run's prefix.
func (m *Manager) CleanupRun(runID string, deleteBranches bool) error {
	paths, err := m.ListRun(runID)
	if err != nil {
		return err
	}

	for _, path := range paths {
		if ok, detail, err := m.git.WorktreeRemove(path, true); !ok {
			m.logWarn("worktree remove failed during run cleanup", "path", path, "error", err, "detail", detail)
			_ = os.RemoveAll(path)
		}
	}
	_, _, _ = m.git.WorktreePrune()

	if deleteBranches {
		branches, err := m.git.BranchesWithPrefix(RunPrefix(runID))
		if err != nil {
			return err
		}
		for _, branch := range branches {
			if ok, _, err := m.git.BranchDelete(branch); !ok {
				m.logWarn("branch delete failed during run cleanup", "branch", branch, "error", err)
			}
		}
	}

	return nil
}

// ListRun enumerates worktree paths owned by runID.
func (m *Manager) ListRun(runID string) ([]string, error) {
	all, err := m.git.WorktreeList()
	if err != nil {
		return nil, err
	}

	prefix := filepath.Join(m.worktreeRoot, runID) + string(filepath.Separator)
	var owned []string
	for _, path := range all {
		if strings.HasPrefix(path+string(filepath.Separator), prefix) || path == filepath.Join(m.worktreeRoot, runID) {
			owned = append(owned, path)
		}
	}
	return owned, nil
}

// FindGitRoot finds the root of the git repository by traversing up from startDir.
func FindGitRoot(startDir string) (string, error) {
	dir := startDir
	for {
		gitPath := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitPath); err == nil {
			if info.IsDir() || info.Mode().IsRegular() {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not a git repository (or any parent up to mount point)")
		}
		dir = parent
	}
}

func (m *Manager) applySparseCheckout(path string) {
	if len(m.sparseCheckoutDirs) == 0 {
		return
	}
	if err := m.EnableSparseCheckout(path, m.sparseCheckoutDirs, m.coneMode); err != nil {
		m.logWarn("sparse checkout failed - worktree created with full checkout instead",
			"path", path, "configured_directories", m.sparseCheckoutDirs, "error", err)
	}
}

func (m *Manager) copyLocalFilesInto(worktreePath string) error {
	var lastErr error
	for _, filename := range m.copyLocalFiles {
		srcPath := filepath.Join(m.repoDir, filename)
		dstPath := filepath.Join(worktreePath, filename)

		if err := copyFile(srcPath, dstPath); err != nil {
			if !os.IsNotExist(err) {
				lastErr = err
			}
			continue
		}
		m.logDebug("copied local file to worktree", "file", filename, "worktree", worktreePath)
	}
	return lastErr
}

func (m *Manager) logInfo(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Info(msg, args...)
	}
}

func (m *Manager) logWarn(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Warn(msg, args...)
	}
}

func (m *Manager) logDebug(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}

// scopedLogger returns a logger carrying runID and workerID as persistent
// attributes, falling back to a no-op base when the manager has none set.
func (m *Manager) scopedLogger(runID, workerID string) *logging.Logger {
	base := m.logger
	if base == nil {
		base = logging.NopLogger()
	}
	return base.WithRun(runID).WithWorker(workerID)
}

// copyFile copies a file from src to dst, preserving permissions. Returns
// os.ErrNotExist if the source file doesn't exist. If copying fails partway
// through, the incomplete destination file is removed.
func copyFile(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = srcFile.Close() }()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}

	success := false
	defer func() {
		_ = dstFile.Close()
		if !success {
			_ = os.Remove(dst)
		}
	}()

	if _, err := dstFile.ReadFrom(srcFile); err != nil {
		return err
	}
	if err := os.Chmod(dst, srcInfo.Mode()); err != nil {
		return err
	}

	success = true
	return nil
}
