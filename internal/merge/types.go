package merge

import "github.com/karlmjogila/swarmops/internal/phase"

// Status is the outcome of a Merge or Resume call.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusNoChanges Status = "no-changes"
	StatusConflict  Status = "conflict"
	StatusFailed    Status = "failed"
)

// ConflictInfo describes the first worker branch whose merge produced
// unresolved conflicts.
type ConflictInfo struct {
	PhaseBranch       string   `json:"phaseBranch"`
	MergeBase         string   `json:"mergeBase,omitempty"`
	FailedBranch      string   `json:"failedBranch"`
	ConflictFiles     []string `json:"conflictFiles"`
	RemainingBranches []string `json:"remainingBranches"`
}

// Result is the outcome of a Merge or Resume call.
type Result struct {
	Status          Status        `json:"status"`
	MergedBranches  []string      `json:"mergedBranches"`
	ConflictInfo    *ConflictInfo `json:"conflictInfo,omitempty"`
	Error           string        `json:"error,omitempty"`
	ReviewerSession string        `json:"reviewerSession,omitempty"`
	ResolverSession string        `json:"resolverSession,omitempty"`
}

// Stats summarizes a phase's merge risk ahead of actually merging it.
type Stats struct {
	TotalBranches         int    `json:"totalBranches"`
	BranchesWithChanges   int    `json:"branchesWithChanges"`
	EstimatedConflictRisk string `json:"estimatedConflictRisk"`
}

// PhaseInput identifies the phase a merge operation acts on.
type PhaseInput struct {
	RunID       string
	PhaseNumber int
	RepoDir     string
}

// ReviewStarter begins the sequential review chain against a merged phase
// branch and returns the session key of the first reviewer spawned.
type ReviewStarter interface {
	StartChain(runID string, phaseNumber int, repoDir, phaseBranch string) (sessionKey string, err error)
}

// ConflictDispatchParams is the context handed to a ConflictDispatcher when a
// merge step conflicts.
type ConflictDispatchParams struct {
	RunID         string
	PhaseNumber   int
	RepoDir       string
	PhaseBranch   string
	FailedBranch  string
	ConflictFiles []string
	TaskContexts  []phase.WorkerTaskContext
	TargetBranch  string
}

// ConflictDispatcher spawns a conflict-resolution agent for a failed merge
// step and returns the session key of the resolver.
type ConflictDispatcher interface {
	Dispatch(params ConflictDispatchParams) (sessionKey string, err error)
}
