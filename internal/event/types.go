// Package event defines event types for decoupling components in swarmops.
// These events let the phase collector, dispatcher, and review chain
// communicate without direct dependencies, and give the event ledger a
// single place to subscribe for durable recording.
package event

import "time"

// Event is the interface that all events must implement.
// It provides a common way to identify and timestamp events.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "worker.spawned", "phase.completed")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Worker Lifecycle Events
// -----------------------------------------------------------------------------

// WorkerSpawnedEvent is emitted when a worker has been successfully dispatched
// to a gateway and its session verified.
type WorkerSpawnedEvent struct {
	baseEvent
	RunID        string
	PhaseNumber  int
	TaskID       string
	WorkerID     string
	Label        string
	WorktreePath string
	Branch       string
}

// NewWorkerSpawnedEvent creates a WorkerSpawnedEvent.
func NewWorkerSpawnedEvent(runID string, phaseNumber int, taskID, workerID, label, worktreePath, branch string) WorkerSpawnedEvent {
	return WorkerSpawnedEvent{
		baseEvent:    newBaseEvent("worker.spawned"),
		RunID:        runID,
		PhaseNumber:  phaseNumber,
		TaskID:       taskID,
		WorkerID:     workerID,
		Label:        label,
		WorktreePath: worktreePath,
		Branch:       branch,
	}
}

// WorkerCompletedEvent is emitted when a worker finishes its task successfully.
type WorkerCompletedEvent struct {
	baseEvent
	RunID       string
	PhaseNumber int
	TaskID      string
	WorkerID    string
	CommitSHA   string
}

// NewWorkerCompletedEvent creates a WorkerCompletedEvent.
func NewWorkerCompletedEvent(runID string, phaseNumber int, taskID, workerID, commitSHA string) WorkerCompletedEvent {
	return WorkerCompletedEvent{
		baseEvent:   newBaseEvent("worker.completed"),
		RunID:       runID,
		PhaseNumber: phaseNumber,
		TaskID:      taskID,
		WorkerID:    workerID,
		CommitSHA:   commitSHA,
	}
}

// WorkerFailedEvent is emitted when a worker fails, times out, or its spawn
// is rejected by the dispatch guard.
type WorkerFailedEvent struct {
	baseEvent
	RunID       string
	PhaseNumber int
	TaskID      string
	WorkerID    string
	Reason      string // classification, e.g. GUARD_BLOCKED, SPAWN_ERROR, HTTP_503
	Detail      string
}

// NewWorkerFailedEvent creates a WorkerFailedEvent.
func NewWorkerFailedEvent(runID string, phaseNumber int, taskID, workerID, reason, detail string) WorkerFailedEvent {
	return WorkerFailedEvent{
		baseEvent:   newBaseEvent("worker.failed"),
		RunID:       runID,
		PhaseNumber: phaseNumber,
		TaskID:      taskID,
		WorkerID:    workerID,
		Reason:      reason,
		Detail:      detail,
	}
}

// -----------------------------------------------------------------------------
// Phase Events
// -----------------------------------------------------------------------------

// PhaseInitializedEvent is emitted when a new phase record is created for a run.
type PhaseInitializedEvent struct {
	baseEvent
	RunID       string
	PhaseNumber int
	TaskIDs     []string
}

// NewPhaseInitializedEvent creates a PhaseInitializedEvent.
func NewPhaseInitializedEvent(runID string, phaseNumber int, taskIDs []string) PhaseInitializedEvent {
	return PhaseInitializedEvent{
		baseEvent:   newBaseEvent("phase.initialized"),
		RunID:       runID,
		PhaseNumber: phaseNumber,
		TaskIDs:     taskIDs,
	}
}

// PhaseCompletedEvent is emitted when every worker in a phase has reported
// completion and the phase's branches have been collected for merge.
type PhaseCompletedEvent struct {
	baseEvent
	RunID        string
	PhaseNumber  int
	WorkerCount  int
	SuccessCount int
}

// NewPhaseCompletedEvent creates a PhaseCompletedEvent.
func NewPhaseCompletedEvent(runID string, phaseNumber, workerCount, successCount int) PhaseCompletedEvent {
	return PhaseCompletedEvent{
		baseEvent:    newBaseEvent("phase.completed"),
		RunID:        runID,
		PhaseNumber:  phaseNumber,
		WorkerCount:  workerCount,
		SuccessCount: successCount,
	}
}

// PhaseFailedEvent is emitted when a phase cannot proceed (unrecoverable
// worker failure, or merge failure after a bounded number of resume attempts).
type PhaseFailedEvent struct {
	baseEvent
	RunID       string
	PhaseNumber int
	Reason      string
}

// NewPhaseFailedEvent creates a PhaseFailedEvent.
func NewPhaseFailedEvent(runID string, phaseNumber int, reason string) PhaseFailedEvent {
	return PhaseFailedEvent{
		baseEvent:   newBaseEvent("phase.failed"),
		RunID:       runID,
		PhaseNumber: phaseNumber,
		Reason:      reason,
	}
}

// -----------------------------------------------------------------------------
// Conflict Resolution Events
// -----------------------------------------------------------------------------

// ConflictResolutionEvent is emitted when the sequential merge engine hands a
// conflicted file set to the conflict resolver dispatcher.
type ConflictResolutionEvent struct {
	baseEvent
	RunID         string
	PhaseNumber   int
	TaskID        string
	SourceBranch  string
	TargetBranch  string
	ConflictFiles []string
	Resolved      bool
}

// NewConflictResolutionEvent creates a ConflictResolutionEvent.
func NewConflictResolutionEvent(runID string, phaseNumber int, taskID, sourceBranch, targetBranch string, conflictFiles []string, resolved bool) ConflictResolutionEvent {
	return ConflictResolutionEvent{
		baseEvent:     newBaseEvent("conflict.resolution"),
		RunID:         runID,
		PhaseNumber:   phaseNumber,
		TaskID:        taskID,
		SourceBranch:  sourceBranch,
		TargetBranch:  targetBranch,
		ConflictFiles: conflictFiles,
		Resolved:      resolved,
	}
}

// -----------------------------------------------------------------------------
// Review Chain Events
// -----------------------------------------------------------------------------

// ReviewDecisionEvent is emitted when a reviewer in the sequential chain
// renders a decision (approve, fix, or escalate).
type ReviewDecisionEvent struct {
	baseEvent
	RunID       string
	PhaseNumber int
	Role        string
	Decision    string // "approve", "fix", "escalate"
}

// NewReviewDecisionEvent creates a ReviewDecisionEvent.
func NewReviewDecisionEvent(runID string, phaseNumber int, role, decision string) ReviewDecisionEvent {
	return ReviewDecisionEvent{
		baseEvent:   newBaseEvent("review.decision"),
		RunID:       runID,
		PhaseNumber: phaseNumber,
		Role:        role,
		Decision:    decision,
	}
}
