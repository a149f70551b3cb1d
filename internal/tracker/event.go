package tracker

import "time"

// SessionResolvedEvent is published when a tracked session is observed
// complete, or dropped after exceeding its tracking ceiling. The event
// ledger subscribes to these to record worker-completed entries.
type SessionResolvedEvent struct {
	timestamp   time.Time
	SessionKey  string
	Label       string
	ProjectName string
	Elapsed     time.Duration
	Resolution  Resolution
}

func (e SessionResolvedEvent) EventType() string    { return "worker.completed" }
func (e SessionResolvedEvent) Timestamp() time.Time { return e.timestamp }

func newSessionResolvedEvent(en entry, resolution Resolution, now time.Time) SessionResolvedEvent {
	return SessionResolvedEvent{
		timestamp:   now,
		SessionKey:  en.sessionKey,
		Label:       en.label,
		ProjectName: en.projectName,
		Elapsed:     now.Sub(en.startedAt),
		Resolution:  resolution,
	}
}
