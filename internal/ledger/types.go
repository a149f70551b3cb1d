package ledger

import (
	"encoding/json"
	"path/filepath"
	"time"
)

// Entry is one append-only ledger record. Payload holds the
// event-type-specific fields, marshaled straight from the event that
// produced it.
type Entry struct {
	Timestamp time.Time       `json:"timestamp"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
}

// recordedEvent is the minimal shape every internal/event.Event and
// internal/tracker.SessionResolvedEvent satisfies.
type recordedEvent interface {
	EventType() string
	Timestamp() time.Time
}

// newEntry builds an Entry from an event, marshaling the event's own
// exported fields as the payload.
func newEntry(e recordedEvent) (Entry, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Timestamp: e.Timestamp(), Type: e.EventType(), Payload: payload}, nil
}

// Path computes the deterministic ledger file path for a run, under
// dataDir/project-runs/<runId>/ledger.jsonl.
func Path(dataDir, runID string) string {
	return filepath.Join(dataDir, "project-runs", runID, "ledger.jsonl")
}
