// Package app wires the orchestrator's components into the bundles the CLI
// subcommands need, from a loaded Config and a target repository directory.
// It exists so internal/cmd/run, internal/cmd/mergecmd, and
// internal/cmd/review can each build exactly what they call into without
// duplicating the wiring or creating an import cycle back through
// internal/cmd itself.
package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/karlmjogila/swarmops/internal/config"
	"github.com/karlmjogila/swarmops/internal/conflict"
	"github.com/karlmjogila/swarmops/internal/dispatch"
	"github.com/karlmjogila/swarmops/internal/escalation"
	"github.com/karlmjogila/swarmops/internal/event"
	"github.com/karlmjogila/swarmops/internal/ledger"
	"github.com/karlmjogila/swarmops/internal/logging"
	"github.com/karlmjogila/swarmops/internal/merge"
	"github.com/karlmjogila/swarmops/internal/orchestrator"
	"github.com/karlmjogila/swarmops/internal/phase"
	"github.com/karlmjogila/swarmops/internal/review"
	"github.com/karlmjogila/swarmops/internal/tracker"
	"github.com/karlmjogila/swarmops/internal/vcs"
	"github.com/karlmjogila/swarmops/internal/worktree"
)

// sessionListerAdapter bridges internal/dispatch's HTTPTransport to
// internal/tracker.SessionLister. The two packages deliberately keep
// independent SessionInfo types (see tracker/types.go), so this is the one
// place that translates between them.
type sessionListerAdapter struct {
	transport *dispatch.HTTPTransport
}

func (a sessionListerAdapter) ListSessions(ctx context.Context) ([]tracker.SessionInfo, error) {
	sessions, err := a.transport.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]tracker.SessionInfo, len(sessions))
	for i, s := range sessions {
		messages := make([]tracker.SessionMessage, len(s.Messages))
		for j, m := range s.Messages {
			messages[j] = tracker.SessionMessage{StopReason: m.StopReason}
		}
		out[i] = tracker.SessionInfo{Key: s.Key, Tokens: s.Tokens, Model: s.Model, Messages: messages}
	}
	return out, nil
}

// App bundles the long-lived components a CLI invocation needs, all bound
// to a single repository directory and data directory.
type App struct {
	Config    *config.Config
	Logger    *logging.Logger
	Git       *vcs.Git
	Bus       *event.Bus
	Tracker   *tracker.Tracker
	Dispatch  *dispatch.Client
	Collector *phase.Collector
	Review    *review.Engine
	Facade    *orchestrator.Facade
	Worktree  *worktree.Manager

	ledgerWriter *ledger.Writer
}

// RunLogDir returns the directory a run's debug.log (and its rotated
// backups) live under: cfg.DataDir/project-runs/<runID>. Returns "" for an
// empty runID, matching NewLogger's stderr fallback in that case.
func RunLogDir(cfg *config.Config, runID string) string {
	if runID == "" {
		return ""
	}
	return filepath.Join(cfg.DataDir, "project-runs", runID)
}

// NewLogger builds the orchestrator's run-scoped logger from cfg.Logging:
// JSON-formatted, size/backup/compress-rotated per cfg.Logging.MaxSizeMB,
// cfg.Logging.MaxBackups, and cfg.Logging.Compress, written under
// RunLogDir(cfg, runID)/debug.log. A bare runID of "" (operator queries
// with no run in scope, e.g. the conflicts command) falls back to stderr
// with rotation disabled. The returned logger already carries runID via
// WithRun so every component Build wires it into logs it for free.
func NewLogger(cfg *config.Config, runID string) (*logging.Logger, error) {
	runDir := RunLogDir(cfg, runID)

	logger, err := logging.NewLoggerWithRotation(runDir, cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	if runID != "" {
		logger = logger.WithRun(runID)
	}
	return logger, nil
}

// Build constructs an App for repoDir using cfg. The event bus, worker
// tracker, phase store, escalation store, review chain, conflict resolver,
// and orchestrator façade are all wired together; ledger entries for runID
// are appended to cfg.DataDir/project-runs/<runID>/ledger.jsonl if runID is
// non-empty. If logger is nil, Build constructs one from cfg via NewLogger
// rather than discarding output: the CLI commands all pass nil and rely on
// this to get working structured logs without repeating the construction
// at every call site.
func Build(cfg *config.Config, logger *logging.Logger, repoDir, runID string) (*App, error) {
	if logger == nil {
		var err error
		logger, err = NewLogger(cfg, runID)
		if err != nil {
			return nil, err
		}
	}

	git := vcs.New(repoDir)
	bus := event.NewBus()

	phaseStore, err := phase.NewStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open phase store: %w", err)
	}
	collector := phase.NewCollector(phaseStore, git, bus)

	escalations, err := escalation.NewStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open escalation store: %w", err)
	}

	reviewStore, err := review.NewStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open review store: %w", err)
	}

	transport := dispatch.NewHTTPTransport(cfg.Gateway)
	workerTracker := tracker.New(sessionListerAdapter{transport: transport}, cfg.Tracker, bus, logger)
	dispatchClient := dispatch.NewClient(transport, cfg.Dispatch, workerTracker, logger)

	reviewEngine := review.New(reviewStore, collector, git, dispatchClient, escalations, bus, cfg.Review, logger)
	conflictResolver := conflict.New(git, dispatchClient, bus, logger)

	// The engine inside the façade is never handed a reviewer: review
	// starting on mergePhase/resumeMerge must stay opt-in, so it is a
	// façade-level composition instead (see orchestrator.Facade.maybeStartReview).
	engine := merge.NewEngine(git, collector, nil, conflictResolver)
	facade := orchestrator.New(engine, collector, reviewEngine, git, dispatchClient, cfg.Dispatch, logger)

	wtMgr, err := worktree.New(repoDir, cfg.Worktree.Root)
	if err != nil {
		return nil, fmt.Errorf("create worktree manager: %w", err)
	}
	wtMgr.SetLogger(logger)
	wtMgr.SetCopyLocalFiles(cfg.Worktree.CopyLocalFiles)
	if cfg.Worktree.SparseCheckout.Enabled {
		wtMgr.SetSparseCheckoutConfig(cfg.Worktree.SparseCheckout.Directories, cfg.Worktree.SparseCheckout.ConeMode)
	}

	a := &App{
		Config:    cfg,
		Logger:    logger,
		Git:       git,
		Bus:       bus,
		Tracker:   workerTracker,
		Dispatch:  dispatchClient,
		Collector: collector,
		Review:    reviewEngine,
		Facade:    facade,
		Worktree:  wtMgr,
	}

	if runID != "" {
		w, err := ledger.Open(ledger.Path(cfg.DataDir, runID))
		if err != nil {
			return nil, fmt.Errorf("open ledger: %w", err)
		}
		w.Subscribe(bus)
		a.ledgerWriter = w
	}

	return a, nil
}

// Close releases resources held by the App: the ledger file, if one was
// opened, and the logger's underlying log file or rotating writer.
func (a *App) Close() error {
	var ledgerErr, loggerErr error
	if a.ledgerWriter != nil {
		ledgerErr = a.ledgerWriter.Close()
	}
	if a.Logger != nil {
		loggerErr = a.Logger.Close()
	}
	if ledgerErr != nil {
		return ledgerErr
	}
	return loggerErr
}
