// Package vcs provides a low-level façade over the git CLI.
//
// Every operation invokes git with an argument array, never through a
// shell, so caller-provided strings (branch names, commit messages, paths)
// are never interpolated into a command line.
package vcs

import (
	"os/exec"
	"strconv"
	"strings"

	"github.com/karlmjogila/swarmops/internal/errors"
)

// Result classifies the outcome of an operation that can partially fail,
// such as a merge.
type Result string

const (
	ResultSuccess  Result = "success"
	ResultConflict Result = "conflict"
	ResultFatal    Result = "fatal"
)

// CommandRunner abstracts process execution so tests can substitute a fake
// git binary without touching the filesystem.
type CommandRunner interface {
	Run(dir string, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct{}

// Run executes name with args in dir and returns combined stdout+stderr.
func (ExecRunner) Run(dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Git wraps a repository directory and executes git subcommands against it.
type Git struct {
	repoDir string
	runner  CommandRunner
}

// New creates a Git adapter bound to repoDir using the real git binary.
func New(repoDir string) *Git {
	return &Git{repoDir: repoDir, runner: ExecRunner{}}
}

// NewWithRunner creates a Git adapter with a custom CommandRunner, for tests.
func NewWithRunner(repoDir string, runner CommandRunner) *Git {
	return &Git{repoDir: repoDir, runner: runner}
}

func (g *Git) run(args ...string) (string, error) {
	out, err := g.runner.Run(g.repoDir, "git", args...)
	return string(out), err
}

func (g *Git) runIn(dir string, args ...string) (string, error) {
	out, err := g.runner.Run(dir, "git", args...)
	return string(out), err
}

// WorktreeAdd creates a new worktree at path on a new branch, optionally
// based off fromBase. If fromBase is empty, the new branch starts at HEAD.
func (g *Git) WorktreeAdd(path, branch, fromBase string) (ok bool, detail string, err error) {
	args := []string{"worktree", "add", "-b", branch, path}
	if fromBase != "" {
		args = append(args, fromBase)
	}
	out, runErr := g.run(args...)
	if runErr != nil {
		return false, out, errors.NewGitError("failed to add worktree", runErr).
			WithRepository(g.repoDir).
			WithWorktree(path).
			WithBranch(branch).
			WithGitOutput(out)
	}
	return true, out, nil
}

// WorktreeRemove removes the worktree at path. If force is true, uncommitted
// changes in the worktree are discarded.
func (g *Git) WorktreeRemove(path string, force bool) (ok bool, detail string, err error) {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, path)

	out, runErr := g.run(args...)
	if runErr != nil {
		return false, out, errors.NewGitError("failed to remove worktree", runErr).
			WithRepository(g.repoDir).
			WithWorktree(path).
			WithGitOutput(out)
	}
	return true, out, nil
}

// WorktreePrune removes stale worktree administrative files left behind by
// worktrees whose directories were deleted out of band.
func (g *Git) WorktreePrune() (ok bool, detail string, err error) {
	out, runErr := g.run("worktree", "prune")
	if runErr != nil {
		return false, out, errors.NewGitError("failed to prune worktrees", runErr).
			WithRepository(g.repoDir).
			WithGitOutput(out)
	}
	return true, out, nil
}

// WorktreeList returns the paths of all worktrees registered to the
// repository, including the main working copy.
func (g *Git) WorktreeList() ([]string, error) {
	out, err := g.run("worktree", "list", "--porcelain")
	if err != nil {
		return nil, errors.NewGitError("failed to list worktrees", err).
			WithRepository(g.repoDir).
			WithGitOutput(out)
	}

	var paths []string
	for _, line := range strings.Split(out, "\n") {
		if path, ok := strings.CutPrefix(line, "worktree "); ok {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

// BranchCreate creates branchName from baseBranch without checking it out.
func (g *Git) BranchCreate(branchName, baseBranch string) (ok bool, detail string, err error) {
	out, runErr := g.run("branch", branchName, baseBranch)
	if runErr != nil {
		if strings.Contains(out, "already exists") {
			return false, out, errors.NewGitError("branch already exists", errors.ErrBranchExists).
				WithRepository(g.repoDir).
				WithBranch(branchName).
				WithGitOutput(out)
		}
		return false, out, errors.NewGitError("failed to create branch", runErr).
			WithRepository(g.repoDir).
			WithBranch(branchName).
			WithGitOutput(out)
	}
	return true, out, nil
}

// BranchDelete force-deletes branchName.
func (g *Git) BranchDelete(branchName string) (ok bool, detail string, err error) {
	out, runErr := g.run("branch", "-D", branchName)
	if runErr != nil {
		if strings.Contains(out, "not found") {
			return false, out, errors.NewGitError("branch not found", errors.ErrBranchNotFound).
				WithRepository(g.repoDir).
				WithBranch(branchName).
				WithGitOutput(out)
		}
		return false, out, errors.NewGitError("failed to delete branch", runErr).
			WithRepository(g.repoDir).
			WithBranch(branchName).
			WithGitOutput(out)
	}
	return true, out, nil
}

// BranchExists reports whether branchName exists in the repository.
func (g *Git) BranchExists(branchName string) bool {
	_, err := g.run("rev-parse", "--verify", "refs/heads/"+branchName)
	return err == nil
}

// BranchesWithPrefix returns every local branch whose name starts with prefix.
func (g *Git) BranchesWithPrefix(prefix string) ([]string, error) {
	out, err := g.run("for-each-ref", "--format=%(refname:short)", "refs/heads/"+prefix+"*")
	if err != nil {
		return nil, errors.NewGitError("failed to list branches by prefix", err).
			WithRepository(g.repoDir).
			WithGitOutput(out)
	}
	return splitNonEmpty(out), nil
}

// Push pushes the current branch at g's repository to remote. If force is
// true, uses --force-with-lease for a safe force push.
func (g *Git) Push(remote string, force bool) (ok bool, detail string, err error) {
	args := []string{"push", "-u", remote, "HEAD"}
	if force {
		args = append(args, "--force-with-lease")
	}
	out, runErr := g.run(args...)
	if runErr != nil {
		return false, out, errors.NewGitError("failed to push", runErr).
			WithRepository(g.repoDir).
			WithGitOutput(out)
	}
	return true, out, nil
}

// CurrentBranch returns the checked-out branch name for worktreePath.
func (g *Git) CurrentBranch(worktreePath string) (string, error) {
	out, err := g.runIn(worktreePath, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", errors.NewGitError("failed to get current branch", err).
			WithRepository(worktreePath).
			WithGitOutput(out)
	}
	return strings.TrimSpace(out), nil
}

// Checkout switches worktreePath to branchName.
func (g *Git) Checkout(worktreePath, branchName string) (ok bool, detail string, err error) {
	out, runErr := g.runIn(worktreePath, "checkout", branchName)
	if runErr != nil {
		return false, out, errors.NewGitError("failed to checkout branch", runErr).
			WithRepository(worktreePath).
			WithBranch(branchName).
			WithGitOutput(out)
	}
	return true, out, nil
}

// MergeOptions configures Merge.
type MergeOptions struct {
	Message  string
	NoCommit bool
}

// Merge merges source into the branch currently checked out at repoPath and
// classifies the outcome as success, conflict, or fatal by scanning git's
// output for the conflict signal.
func (g *Git) Merge(repoPath, source string, opts MergeOptions) (result Result, detail string, err error) {
	args := []string{"merge", source}
	if opts.NoCommit {
		args = append(args, "--no-commit", "--no-ff")
	}
	if opts.Message != "" {
		args = append(args, "-m", opts.Message)
	}

	out, runErr := g.runIn(repoPath, args...)
	if runErr == nil {
		return ResultSuccess, out, nil
	}

	if strings.Contains(out, "CONFLICT") || strings.Contains(out, "Automatic merge failed") {
		return ResultConflict, out, nil
	}

	return ResultFatal, out, errors.NewGitError("merge failed", runErr).
		WithRepository(repoPath).
		WithBranch(source).
		WithGitOutput(out)
}

// MergeAbort aborts an in-progress merge at repoPath.
func (g *Git) MergeAbort(repoPath string) (ok bool, detail string, err error) {
	out, runErr := g.runIn(repoPath, "merge", "--abort")
	if runErr != nil {
		return false, out, errors.NewGitError("failed to abort merge", runErr).
			WithRepository(repoPath).
			WithGitOutput(out)
	}
	return true, out, nil
}

// ConflictedFiles returns the paths with unresolved conflict markers at repoPath.
func (g *Git) ConflictedFiles(repoPath string) ([]string, error) {
	out, err := g.runIn(repoPath, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, errors.NewGitError("failed to list conflicted files", err).
			WithRepository(repoPath).
			WithGitOutput(out)
	}
	return splitNonEmpty(out), nil
}

// Stage adds a single path to the index at repoPath.
func (g *Git) Stage(repoPath, path string) (ok bool, detail string, err error) {
	out, runErr := g.runIn(repoPath, "add", "--", path)
	if runErr != nil {
		return false, out, errors.NewGitError("failed to stage file", runErr).
			WithRepository(repoPath).
			WithGitOutput(out)
	}
	return true, out, nil
}

// StageAll adds every changed path to the index at repoPath.
func (g *Git) StageAll(repoPath string) (ok bool, detail string, err error) {
	out, runErr := g.runIn(repoPath, "add", "-A")
	if runErr != nil {
		return false, out, errors.NewGitError("failed to stage changes", runErr).
			WithRepository(repoPath).
			WithGitOutput(out)
	}
	return true, out, nil
}

// Commit commits the staged index at repoPath with message. If there is
// nothing staged, it succeeds with an empty commit hash.
func (g *Git) Commit(repoPath, message string) (commitHash string, err error) {
	out, runErr := g.runIn(repoPath, "commit", "-m", message)
	if runErr != nil {
		if strings.Contains(out, "nothing to commit") {
			return "", nil
		}
		return "", errors.NewGitError("failed to commit", runErr).
			WithRepository(repoPath).
			WithGitOutput(out)
	}

	rev, revErr := g.runIn(repoPath, "rev-parse", "HEAD")
	if revErr != nil {
		return "", errors.NewGitError("failed to resolve commit hash", revErr).
			WithRepository(repoPath)
	}
	return strings.TrimSpace(rev), nil
}

// DiffNames returns the paths that differ between base and ref at repoPath.
func (g *Git) DiffNames(repoPath, base, ref string) ([]string, error) {
	out, err := g.runIn(repoPath, "diff", "--name-only", base+"..."+ref)
	if err != nil {
		return nil, errors.NewGitError("failed to diff branches", err).
			WithRepository(repoPath).
			WithBranch(base+"..."+ref).
			WithGitOutput(out)
	}
	return splitNonEmpty(out), nil
}

// FileAtRef returns the contents of path as it exists at ref.
func (g *Git) FileAtRef(repoPath, path, ref string) (string, error) {
	out, err := g.runIn(repoPath, "show", ref+":"+path)
	if err != nil {
		return "", errors.NewGitError("failed to read file at ref", err).
			WithRepository(repoPath).
			WithBranch(ref).
			WithGitOutput(out)
	}
	return out, nil
}

// BehindCount returns how many commits worktreePath's HEAD is behind
// origin/baseBranch.
func (g *Git) BehindCount(worktreePath, baseBranch string) (int, error) {
	_, _ = g.runIn(worktreePath, "fetch", "origin", baseBranch)

	out, err := g.runIn(worktreePath, "rev-list", "--count", "HEAD..origin/"+baseBranch)
	if err != nil {
		return 0, errors.NewGitError("failed to count commits behind", err).
			WithRepository(worktreePath).
			WithBranch(baseBranch).
			WithGitOutput(out)
	}

	count, convErr := strconv.Atoi(strings.TrimSpace(out))
	if convErr != nil {
		return 0, errors.NewGitError("failed to parse behind count", convErr).
			WithRepository(worktreePath)
	}
	return count, nil
}

// WouldRebaseConflict reports whether rebasing worktreePath's HEAD onto
// origin/baseBranch would produce conflicts, without mutating any branch.
func (g *Git) WouldRebaseConflict(worktreePath, baseBranch string) (bool, error) {
	_, _ = g.runIn(worktreePath, "fetch", "origin", baseBranch)

	mergeBaseOut, err := g.runIn(worktreePath, "merge-base", "HEAD", "origin/"+baseBranch)
	if err != nil {
		return false, errors.NewGitError("failed to find merge base", err).
			WithRepository(worktreePath).
			WithGitOutput(mergeBaseOut)
	}
	mergeBase := strings.TrimSpace(mergeBaseOut)

	treeOut, err := g.runIn(worktreePath, "merge-tree", mergeBase, "HEAD", "origin/"+baseBranch)
	if err != nil {
		return false, errors.NewGitError("failed to run merge-tree", err).
			WithRepository(worktreePath).
			WithGitOutput(treeOut)
	}

	return strings.Contains(treeOut, "<<<<<<<") || strings.Contains(treeOut, ">>>>>>>"), nil
}

// IsWorkingCopy reports whether repoDir is a valid git working directory.
func (g *Git) IsWorkingCopy() bool {
	_, err := g.run("rev-parse", "--is-inside-work-tree")
	return err == nil
}

// CommitLog returns the subject and body of every commit reachable from head
// but not from base, oldest first, separated by "---".
func (g *Git) CommitLog(repoPath, base, head string) (string, error) {
	out, err := g.runIn(repoPath, "log", "--reverse", base+".."+head, "--pretty=format:%s%n%b---")
	if err != nil {
		return "", errors.NewGitError("failed to get commit log", err).
			WithRepository(repoPath).
			WithGitOutput(out)
	}
	return out, nil
}

// MainBranch returns "main" if it exists in the repository, otherwise
// "master".
func (g *Git) MainBranch() string {
	if g.BranchExists("main") {
		return "main"
	}
	return "master"
}

// AheadCount returns how many commits branch has beyond its merge-base with
// baseBranch, in the shared repository (no worktree path required).
func (g *Git) AheadCount(baseBranch, branch string) (int, error) {
	out, err := g.run("rev-list", "--count", baseBranch+".."+branch)
	if err != nil {
		return 0, errors.NewGitError("failed to count commits ahead", err).
			WithBranch(branch).
			WithGitOutput(out)
	}
	count, convErr := strconv.Atoi(strings.TrimSpace(out))
	if convErr != nil {
		return 0, errors.NewGitError("failed to parse ahead count", convErr).
			WithBranch(branch)
	}
	return count, nil
}

// FetchBestEffort fetches origin/baseBranch into repoPath, ignoring errors.
// Used ahead of operations that branch from baseBranch so a stale local
// clone doesn't silently fork from an out-of-date base; a remote-less or
// offline repository just falls through to whatever ref is already local.
func (g *Git) FetchBestEffort(repoPath, baseBranch string) {
	_, _ = g.runIn(repoPath, "fetch", "origin", baseBranch)
}

// MergeBase returns the commit hash where branch diverged from baseBranch,
// in the shared repository (no worktree path required).
func (g *Git) MergeBase(baseBranch, branch string) (string, error) {
	out, err := g.run("merge-base", baseBranch, branch)
	if err != nil {
		return "", errors.NewGitError("failed to find merge base", err).
			WithBranch(branch).
			WithGitOutput(out)
	}
	return strings.TrimSpace(out), nil
}

func splitNonEmpty(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{}
	}
	return strings.Split(s, "\n")
}
