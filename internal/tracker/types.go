package tracker

import (
	"context"
	"time"
)

// SessionInfo mirrors the shape of one entry from the gateway's session
// list, independent of internal/dispatch's identical type: the tracker and
// the dispatcher are wired to the same underlying transport by the
// orchestrator, but neither package imports the other.
type SessionInfo struct {
	Key      string
	Tokens   int
	Model    string
	Messages []SessionMessage
}

// SessionMessage is the last message of a tracked session.
type SessionMessage struct {
	StopReason string
}

// SessionLister polls the gateway for its current session list.
type SessionLister interface {
	ListSessions(ctx context.Context) ([]SessionInfo, error)
}

// entry is one tracked session's bookkeeping.
type entry struct {
	sessionKey  string
	label       string
	projectName string
	startedAt   time.Time
}

// Resolution describes why a tracked session stopped being tracked.
type Resolution string

const (
	// ResolutionCompleted means the session was observed to have stopped
	// (absent from the listing, or its last message carries a terminal
	// stop reason).
	ResolutionCompleted Resolution = "completed"
	// ResolutionDropped means the session exceeded its tracking ceiling
	// and was abandoned without a terminal observation.
	ResolutionDropped Resolution = "dropped"
)

// isTerminal reports whether a stop reason indicates the session is done.
// Any non-empty stop reason is terminal: a running session's last message
// has none yet.
func isTerminal(stopReason string) bool {
	return stopReason != ""
}
