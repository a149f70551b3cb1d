package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/karlmjogila/swarmops/internal/config"
	"github.com/karlmjogila/swarmops/internal/event"
	"github.com/karlmjogila/swarmops/internal/logging"
)

// Tracker is the process-wide singleton that polls the gateway for
// liveness of outstanding worker sessions and emits completion events once
// they stop. Track starts the polling loop lazily on first use and it
// self-terminates when the tracked set drains to empty, restarting on the
// next Track call.
type Tracker struct {
	lister SessionLister
	bus    *event.Bus
	cfg    config.TrackerConfig
	logger *logging.Logger

	mu      sync.Mutex
	entries map[string]entry
	running bool

	sleepFn func(time.Duration)
	nowFn   func() time.Time
}

// New creates a Tracker. bus may be nil, in which case resolutions are
// logged but not published.
func New(lister SessionLister, cfg config.TrackerConfig, bus *event.Bus, logger *logging.Logger) *Tracker {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Tracker{
		lister:  lister,
		bus:     bus,
		cfg:     cfg,
		logger:  logger,
		entries: make(map[string]entry),
		sleepFn: time.Sleep,
		nowFn:   time.Now,
	}
}

// Track registers sessionKey for polling-based completion detection and
// ensures the polling loop is running. Satisfies internal/dispatch.Tracker.
func (t *Tracker) Track(sessionKey, label, projectName string) {
	t.mu.Lock()
	t.entries[sessionKey] = entry{
		sessionKey:  sessionKey,
		label:       label,
		projectName: projectName,
		startedAt:   t.nowFn(),
	}
	needsLoop := !t.running
	if needsLoop {
		t.running = true
	}
	t.mu.Unlock()

	t.logger.Info("tracking session", "session_key", sessionKey, "label", label)

	if needsLoop {
		go t.loop()
	}
}

// MarkCompleted manually finalizes a tracked session, for callers that
// learn of completion out of band (e.g. an inbound HTTP callback) rather
// than through polling.
func (t *Tracker) MarkCompleted(sessionKey string) {
	t.mu.Lock()
	en, ok := t.entries[sessionKey]
	if ok {
		delete(t.entries, sessionKey)
	}
	t.mu.Unlock()

	if !ok {
		return
	}
	t.publish(en, ResolutionCompleted)
}

// SnapshotEntry is one observable row of the tracker's current state.
type SnapshotEntry struct {
	SessionKey  string
	Label       string
	ProjectName string
	ElapsedMs   int64
}

// Snapshot returns the tracker's currently observable state.
func (t *Tracker) Snapshot() []SnapshotEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.nowFn()
	out := make([]SnapshotEntry, 0, len(t.entries))
	for _, en := range t.entries {
		out = append(out, SnapshotEntry{
			SessionKey:  en.sessionKey,
			Label:       en.label,
			ProjectName: en.projectName,
			ElapsedMs:   now.Sub(en.startedAt).Milliseconds(),
		})
	}
	return out
}

// loop sweeps the tracked set every PollInterval, dropping sessions that
// exceed MaxTrackTime and resolving sessions the gateway reports as
// terminal or absent. It self-terminates once the tracked set is empty.
func (t *Tracker) loop() {
	for {
		t.sleepFn(t.cfg.PollInterval())

		if t.sweep() {
			t.mu.Lock()
			empty := len(t.entries) == 0
			if empty {
				t.running = false
			}
			t.mu.Unlock()
			if empty {
				return
			}
		}
	}
}

// sweep runs one poll cycle and reports whether it completed (false means
// the gateway call failed and the loop should just retry next interval).
func (t *Tracker) sweep() bool {
	t.mu.Lock()
	pending := make([]entry, 0, len(t.entries))
	now := t.nowFn()
	maxTrack := t.cfg.MaxTrackTime()
	for key, en := range t.entries {
		if now.Sub(en.startedAt) >= maxTrack {
			delete(t.entries, key)
			t.logger.Warn("dropping session that exceeded tracking ceiling",
				"session_key", key, "label", en.label)
			t.publish(en, ResolutionDropped)
			continue
		}
		pending = append(pending, en)
	}
	t.mu.Unlock()

	if len(pending) == 0 {
		return true
	}

	sessions, err := t.lister.ListSessions(context.Background())
	if err != nil {
		t.logger.Warn("session list poll failed, will retry next interval", "error", err.Error())
		return false
	}

	byKey := make(map[string]SessionInfo, len(sessions))
	for _, s := range sessions {
		byKey[s.Key] = s
	}

	for _, en := range pending {
		s, found := byKey[en.sessionKey]
		terminal := !found
		if found && len(s.Messages) > 0 {
			terminal = isTerminal(s.Messages[len(s.Messages)-1].StopReason)
		}
		if !terminal {
			continue
		}

		t.mu.Lock()
		delete(t.entries, en.sessionKey)
		t.mu.Unlock()
		t.publish(en, ResolutionCompleted)
	}
	return true
}

func (t *Tracker) publish(en entry, resolution Resolution) {
	evt := newSessionResolvedEvent(en, resolution, t.nowFn())
	t.logger.Info("session resolved", "session_key", en.sessionKey, "resolution", string(resolution),
		"elapsed_ms", evt.Elapsed.Milliseconds())
	if t.bus != nil {
		t.bus.Publish(evt)
	}
}
