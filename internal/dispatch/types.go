package dispatch

import (
	"context"
	"time"
)

// Cleanup controls what the gateway does with a spawned session's worktree
// once it finishes.
type Cleanup string

const (
	CleanupDelete Cleanup = "delete"
	CleanupKeep   Cleanup = "keep"
)

// SpawnParams are the caller-facing inputs to Client.Spawn.
type SpawnParams struct {
	Task              string
	Label             string
	Model             string
	Thinking          string
	Cleanup           Cleanup
	RunTimeoutSeconds int
	ProjectName       string

	// SkipGuard bypasses the circuit breaker and rate limiter for this call.
	SkipGuard bool
	// SkipVerify bypasses post-spawn session verification for this call.
	SkipVerify bool
}

// SpawnResult is the outcome of a Spawn call.
type SpawnResult struct {
	Success    bool
	SessionKey string
	Label      string
	Reason     string
	Error      string
}

// SpawnRequest is the wire body POSTed to the gateway's spawn endpoint.
// Optional fields the caller left unset are omitted rather than sent as zero
// values; task and label are always sent.
type SpawnRequest struct {
	Task              string `json:"task"`
	Label             string `json:"label"`
	Model             string `json:"model,omitempty"`
	Thinking          string `json:"thinking,omitempty"`
	Cleanup           string `json:"cleanup,omitempty"`
	RunTimeoutSeconds int    `json:"runTimeoutSeconds,omitempty"`
}

// SpawnResponse is the wire body returned by the gateway's spawn endpoint.
// The child session key may be nested under Details (observed from one
// gateway revision) or top-level (observed from another); callers check
// both.
type SpawnResponse struct {
	Status          string               `json:"status"`
	ChildSessionKey string               `json:"childSessionKey,omitempty"`
	Details         *SpawnResponseDetail `json:"details,omitempty"`
}

// SpawnResponseDetail is the nested form of the spawn response.
type SpawnResponseDetail struct {
	ChildSessionKey string `json:"childSessionKey,omitempty"`
	Status          string `json:"status,omitempty"`
}

// SessionInfo is one entry from the gateway's session-list tool.
type SessionInfo struct {
	Key      string           `json:"key"`
	Tokens   int              `json:"tokens"`
	Model    string           `json:"model"`
	Messages []SessionMessage `json:"messages"`
}

// SessionMessage is the last message of a tracked session, enough to tell
// whether the session has stopped running.
type SessionMessage struct {
	StopReason string `json:"stopReason,omitempty"`
}

// Transport reaches the external agent gateway. HTTPTransport is the real
// implementation; tests substitute a fake.
type Transport interface {
	Spawn(ctx context.Context, req SpawnRequest) (*SpawnResponse, int, error)
	ListSessions(ctx context.Context) ([]SessionInfo, error)
}

// Tracker registers a freshly verified session for polling-based completion
// detection. internal/tracker.Tracker satisfies this.
type Tracker interface {
	Track(sessionKey, label, projectName string)
}

// CircuitState is a snapshot of the guard's process-wide state.
type CircuitState struct {
	Failures    int
	OpenUntil   time.Time
	LastSuccess time.Time
}
