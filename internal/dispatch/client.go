package dispatch

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/karlmjogila/swarmops/internal/config"
	"github.com/karlmjogila/swarmops/internal/errors"
	"github.com/karlmjogila/swarmops/internal/logging"
)

const (
	// verifyMaxPolls bounds how many times Spawn polls the gateway's
	// session list before giving up on a single spawn attempt.
	verifyMaxPolls = 5
	// verifyPollDelay is the wait between verification polls.
	verifyPollDelay = 2 * time.Second

	base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	maxLabelLength = 64
)

// Client is the guarded gateway client: a stateful wrapper around Transport
// that enforces a circuit breaker, a sliding-window rate limiter, unique
// labels, backoff, and verification around every spawn.
type Client struct {
	transport Transport
	cfg       config.DispatchConfig
	tracker   Tracker
	logger    *logging.Logger

	mu             sync.Mutex
	failures       int
	openUntil      time.Time
	lastSuccess    time.Time
	recentAttempts []time.Time

	sleepFn func(time.Duration)
	nowFn   func() time.Time
	randFn  func() string
}

// NewClient creates a Client. tracker may be nil if the caller does not
// want spawned sessions registered for polling (e.g. reviewer/resolver
// spawns that are tracked by the review chain instead).
func NewClient(transport Transport, cfg config.DispatchConfig, tracker Tracker, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Client{
		transport: transport,
		cfg:       cfg,
		tracker:   tracker,
		logger:    logger,
		sleepFn:   time.Sleep,
		nowFn:     time.Now,
		randFn:    randomBase36,
	}
}

func randomBase36() string {
	b := make([]byte, 4)
	for i := range b {
		b[i] = base36Alphabet[rand.Intn(len(base36Alphabet))]
	}
	return string(b)
}

// CircuitState returns a snapshot of the guard's process-wide state.
func (c *Client) CircuitState() CircuitState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CircuitState{Failures: c.failures, OpenUntil: c.openUntil, LastSuccess: c.lastSuccess}
}

// Spawn dispatches a new agent session via the gateway, guarded by the
// circuit breaker and rate limiter, retrying with a fresh label on zombie
// verification up to DispatchConfig.SpawnMaxRetries times.
func (c *Client) Spawn(ctx context.Context, params SpawnParams) (*SpawnResult, error) {
	return c.spawnAttempt(ctx, params, 0)
}

func (c *Client) spawnAttempt(ctx context.Context, params SpawnParams, retry int) (*SpawnResult, error) {
	if !params.SkipGuard {
		blocked, reason, failures := c.checkGuard()
		if blocked {
			err := errors.NewDispatchError("spawn blocked by guard", errors.ErrGuardBlocked).WithReason("GUARD_BLOCKED")
			return &SpawnResult{Success: false, Reason: "GUARD_BLOCKED", Error: reason}, err
		}
		if failures > 0 {
			c.sleepFn(c.cfg.BackoffDelay(failures))
		}
	}

	label := c.uniqueLabel(params.Label)

	req := SpawnRequest{
		Task:              params.Task,
		Label:             label,
		Model:             params.Model,
		Thinking:          params.Thinking,
		Cleanup:           string(params.Cleanup),
		RunTimeoutSeconds: params.RunTimeoutSeconds,
	}

	resp, status, err := c.transport.Spawn(ctx, req)
	if err != nil {
		c.recordOutcome(false)
		derr := errors.NewDispatchError("spawn request failed", err).WithLabel(label).WithReason("SPAWN_ERROR")
		return &SpawnResult{Success: false, Label: label, Reason: "SPAWN_ERROR", Error: err.Error()}, derr
	}
	if status < 200 || status >= 300 {
		c.recordOutcome(false)
		reason := fmt.Sprintf("HTTP_%d", status)
		derr := errors.NewDispatchError("gateway returned non-2xx", errors.ErrSpawnFailed).
			WithLabel(label).WithReason(reason).WithStatusCode(status)
		return &SpawnResult{Success: false, Label: label, Reason: reason, Error: fmt.Sprintf("gateway status %d", status)}, derr
	}
	if resp.Status == "error" {
		c.recordOutcome(false)
		derr := errors.NewDispatchError("gateway reported spawn error", errors.ErrSpawnFailed).
			WithLabel(label).WithReason("SPAWN_ERROR")
		return &SpawnResult{Success: false, Label: label, Reason: "SPAWN_ERROR", Error: "gateway returned status: error"}, derr
	}

	sessionKey := resp.ChildSessionKey
	if sessionKey == "" && resp.Details != nil {
		sessionKey = resp.Details.ChildSessionKey
	}
	if sessionKey == "" {
		c.recordOutcome(false)
		derr := errors.NewDispatchError("gateway response missing session key", errors.ErrSpawnFailed).WithLabel(label)
		return &SpawnResult{Success: false, Label: label, Reason: "SPAWN_ERROR", Error: "missing child session key"}, derr
	}

	if params.SkipVerify || c.cfg.SkipVerify {
		c.acceptSpawn(sessionKey, label, params.ProjectName)
		return &SpawnResult{Success: true, SessionKey: sessionKey, Label: label}, nil
	}

	if c.verifyRunning(ctx, sessionKey) {
		c.acceptSpawn(sessionKey, label, params.ProjectName)
		return &SpawnResult{Success: true, SessionKey: sessionKey, Label: label}, nil
	}

	c.recordOutcome(false)
	if retry < c.cfg.SpawnMaxRetries {
		c.logger.Warn("spawn verification timed out, retrying with a fresh label",
			"label", label, "session_key", sessionKey, "retry", retry+1)
		return c.spawnAttempt(ctx, params, retry+1)
	}

	derr := errors.NewDispatchError("spawn verification failed", errors.ErrSpawnVerificationFailed).
		WithLabel(label).WithReason("SPAWN_VERIFICATION_FAILED")
	return &SpawnResult{Success: false, Label: label, SessionKey: sessionKey, Reason: "SPAWN_VERIFICATION_FAILED",
		Error: "spawned session never verified as running"}, derr
}

func (c *Client) acceptSpawn(sessionKey, label, projectName string) {
	c.recordOutcome(true)
	if c.tracker != nil {
		c.tracker.Track(sessionKey, label, projectName)
	}
}

// checkGuard reports whether a spawn should be blocked, the reason if so,
// and the current failure count (used to compute backoff) if not.
func (c *Client) checkGuard() (blocked bool, reason string, failures int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFn()
	if now.Before(c.openUntil) {
		return true, fmt.Sprintf("circuit open for %s", c.openUntil.Sub(now).Round(time.Millisecond)), 0
	}

	window := c.cfg.SpawnWindow()
	cutoff := now.Add(-window)
	active := c.recentAttempts[:0]
	for _, t := range c.recentAttempts {
		if t.After(cutoff) {
			active = append(active, t)
		}
	}
	c.recentAttempts = active

	if len(active) >= c.cfg.MaxConcurrentSpawns {
		wait := active[0].Add(window).Sub(now)
		return true, fmt.Sprintf("rate limit window full, retry in %s", wait.Round(time.Millisecond)), 0
	}

	c.recentAttempts = append(c.recentAttempts, now)
	if len(c.recentAttempts) > 100 {
		c.recentAttempts = c.recentAttempts[len(c.recentAttempts)-100:]
	}
	return false, "", c.failures
}

func (c *Client) recordOutcome(success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFn()
	if success {
		c.failures = 0
		c.lastSuccess = now
		return
	}

	c.failures++
	if c.failures >= c.cfg.MaxConsecutiveFailures {
		c.openUntil = now.Add(c.cfg.CircuitOpenDuration())
	}
}

func (c *Client) verifyRunning(ctx context.Context, sessionKey string) bool {
	for i := 0; i < verifyMaxPolls; i++ {
		c.sleepFn(verifyPollDelay)
		sessions, err := c.transport.ListSessions(ctx)
		if err != nil {
			continue
		}
		for _, s := range sessions {
			if s.Key != sessionKey {
				continue
			}
			if s.Tokens > 0 || s.Model != "" || len(s.Messages) > 0 {
				return true
			}
		}
	}
	return false
}

func (c *Client) uniqueLabel(base string) string {
	suffix := fmt.Sprintf("%d-%s", c.nowFn().UnixMilli(), c.randFn())
	maxBaseLen := maxLabelLength - len(suffix) - 1
	if maxBaseLen < 0 {
		maxBaseLen = 0
	}
	if len(base) > maxBaseLen {
		base = base[:maxBaseLen]
	}
	return base + "-" + suffix
}
