package review

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/karlmjogila/swarmops/internal/config"
	"github.com/karlmjogila/swarmops/internal/dispatch"
	"github.com/karlmjogila/swarmops/internal/escalation"
	"github.com/karlmjogila/swarmops/internal/event"
	"github.com/karlmjogila/swarmops/internal/logging"
	"github.com/karlmjogila/swarmops/internal/phase"
	"github.com/karlmjogila/swarmops/internal/vcs"
)

// Engine is the sequential review chain engine.
type Engine struct {
	store       *Store
	collector   *phase.Collector
	git         *vcs.Git
	dispatcher  *dispatch.Client
	escalations *escalation.Store
	bus         *event.Bus
	cfg         config.ReviewConfig
	logger      *logging.Logger

	nowFn func() time.Time
}

// New creates an Engine. bus and escalations may be nil in tests.
func New(store *Store, collector *phase.Collector, git *vcs.Git, dispatcher *dispatch.Client,
	escalations *escalation.Store, bus *event.Bus, cfg config.ReviewConfig, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Engine{
		store:       store,
		collector:   collector,
		git:         git,
		dispatcher:  dispatcher,
		escalations: escalations,
		bus:         bus,
		cfg:         cfg,
		logger:      logger,
		nowFn:       time.Now,
	}
}

// StartChain builds the reviewer chain for a phase and spawns the first
// reviewer. Satisfies internal/merge.ReviewStarter.
func (e *Engine) StartChain(runID string, phaseNumber int, repoDir, phaseBranch string) (string, error) {
	ph, err := e.collector.LoadPhase(runID, phaseNumber)
	if err != nil {
		return "", fmt.Errorf("load phase for review chain: %w", err)
	}

	chain := e.buildChain(repoDir, ph.BaseBranch, phaseBranch)

	now := e.nowFn()
	state := &ChainState{
		RunID:        runID,
		PhaseNumber:  phaseNumber,
		RepoDir:      repoDir,
		PhaseBranch:  phaseBranch,
		Chain:        chain,
		CurrentIndex: 0,
		Approvals:    []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.store.Save(state); err != nil {
		return "", fmt.Errorf("save review chain state: %w", err)
	}
	return e.spawnReviewer(state)
}

// buildChain appends "designer" to the base chain when the phase's changed
// files include anything matching the frontend-file detection rules.
func (e *Engine) buildChain(repoDir, baseBranch, phaseBranch string) []string {
	chain := append([]string{}, e.cfg.BaseChain...)

	changed, err := e.git.DiffNames(repoDir, baseBranch, phaseBranch)
	if err != nil {
		e.logger.Warn("diff for frontend detection failed, skipping designer reviewer", "error", err.Error())
		return chain
	}
	if isFrontendChange(changed, e.cfg) {
		chain = append(chain, "designer")
	}
	return chain
}

func isFrontendChange(files []string, cfg config.ReviewConfig) bool {
	for _, f := range files {
		for _, ext := range cfg.FrontendExtensions {
			if strings.HasSuffix(f, ext) {
				return true
			}
		}
		for _, marker := range cfg.FrontendPathMarkers {
			if strings.Contains(filepath.ToSlash(f), marker) {
				return true
			}
		}
	}
	return false
}

func (e *Engine) spawnReviewer(state *ChainState) (string, error) {
	role := state.CurrentRole()
	if role == "" {
		return "", fmt.Errorf("review chain has no current reviewer to spawn")
	}

	result, err := e.dispatcher.Spawn(context.Background(), dispatch.SpawnParams{
		Task:    buildReviewerPrompt(state, e.cfg),
		Label:   reviewLabel(role, state.RunID, state.PhaseNumber),
		Cleanup: dispatch.CleanupKeep,
	})
	if err != nil {
		return "", fmt.Errorf("spawn reviewer %s: %w", role, err)
	}
	return result.SessionKey, nil
}

// DecisionResult reports the outcome of handling a reviewer's decision.
type DecisionResult struct {
	// Complete is true once every role in the chain has approved; the
	// caller should proceed with final phase promotion.
	Complete bool
	// NextSessionKey is the session spawned for the next reviewer, set
	// when the chain is not yet complete after an approval.
	NextSessionKey string
	// FixerSessionKey is set when the decision was "fix" and a fixer
	// agent was spawned.
	FixerSessionKey string
	// Escalated is true when the decision was "escalate".
	Escalated    bool
	EscalationID string
}

// OnDecision handles a reviewer's rendered decision. The orchestrator's
// inbound HTTP layer routes review-result callbacks here, identified by
// (runId, phaseNumber) per the callback's own body rather than by session
// key.
func (e *Engine) OnDecision(runID string, phaseNumber int, req DecisionRequest) (*DecisionResult, error) {
	state, err := e.store.Load(runID, phaseNumber)
	if err != nil {
		return nil, fmt.Errorf("load review chain state: %w", err)
	}

	role := state.CurrentRole()
	e.publishDecision(runID, phaseNumber, role, string(req.Decision))

	switch req.Decision {
	case DecisionApprove:
		return e.advance(state)
	case DecisionFix:
		return e.spawnFixer(state, req.FixInstructions)
	case DecisionEscalate:
		return e.escalate(state, req.EscalationReason)
	default:
		return nil, fmt.Errorf("unrecognized review decision %q", req.Decision)
	}
}

// advance appends the current role to approvals and moves to the next
// reviewer, or reports the chain complete.
func (e *Engine) advance(state *ChainState) (*DecisionResult, error) {
	state.Approvals = append(state.Approvals, state.CurrentRole())
	state.CurrentIndex++
	state.UpdatedAt = e.nowFn()

	if err := e.store.Save(state); err != nil {
		return nil, fmt.Errorf("save review chain state: %w", err)
	}

	if state.Complete() {
		return &DecisionResult{Complete: true}, nil
	}

	sessionKey, err := e.spawnReviewer(state)
	if err != nil {
		return nil, err
	}
	return &DecisionResult{NextSessionKey: sessionKey}, nil
}

// spawnFixer dispatches a fixer agent and records its session on the
// chain state; the chain itself does not reset until OnFixComplete fires.
func (e *Engine) spawnFixer(state *ChainState, fixInstructions string) (*DecisionResult, error) {
	result, err := e.dispatcher.Spawn(context.Background(), dispatch.SpawnParams{
		Task:    buildFixerPrompt(state, fixInstructions, e.cfg),
		Label:   fixerLabel(state.RunID, state.PhaseNumber),
		Cleanup: dispatch.CleanupKeep,
	})
	if err != nil {
		return nil, fmt.Errorf("spawn fixer: %w", err)
	}

	state.UpdatedAt = e.nowFn()
	if err := e.store.Save(state); err != nil {
		return nil, fmt.Errorf("save review chain state: %w", err)
	}
	return &DecisionResult{FixerSessionKey: result.SessionKey}, nil
}

// OnFixComplete resets the chain to its first reviewer once a fixer agent
// finishes, per the inbound fix-complete callback.
func (e *Engine) OnFixComplete(runID string, phaseNumber int, succeeded bool) (string, error) {
	state, err := e.store.Load(runID, phaseNumber)
	if err != nil {
		return "", fmt.Errorf("load review chain state: %w", err)
	}
	if !succeeded {
		return "", fmt.Errorf("fixer did not complete successfully, chain left unresolved")
	}

	state.CurrentIndex = 0
	state.Approvals = nil
	state.UpdatedAt = e.nowFn()
	if err := e.store.Save(state); err != nil {
		return "", fmt.Errorf("save review chain state: %w", err)
	}
	return e.spawnReviewer(state)
}

func (e *Engine) escalate(state *ChainState, reason string) (*DecisionResult, error) {
	if e.escalations == nil {
		return &DecisionResult{Escalated: true}, nil
	}
	esc, err := e.escalations.Raise(state.RunID, state.PhaseNumber, reason)
	if err != nil {
		return nil, fmt.Errorf("raise escalation: %w", err)
	}
	return &DecisionResult{Escalated: true, EscalationID: esc.ID}, nil
}

func (e *Engine) publishDecision(runID string, phaseNumber int, role, decision string) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(event.NewReviewDecisionEvent(runID, phaseNumber, role, decision))
}
