package cli

import (
	"context"
	"fmt"
	"time"

	"cvcoach/internal/ai"
	"cvcoach/internal/ats"
	"cvcoach/internal/config"
	"cvcoach/internal/errors"
	"cvcoach/internal/observability"
	"cvcoach/internal/phase"
	"cvcoach/internal/server"
	"cvcoach/internal/session"
	"cvcoach/internal/storage"
	"cvcoach/internal/telemetry"
)

// app holds everything an LLM-backed command needs
type app struct {
	cfg     *config.Config
	logger  *errors.Logger
	prompts *config.PromptStore
	watcher *config.PromptWatcher
	chat    *ai.Client
	scoring *ai.Client
	audit   *storage.Store
	om      *observability.ObservabilityManager
	router  *phase.Router
}

type appOptions struct {
	// observe initializes tracing and metrics exporters
	observe bool
}

// newApp builds the router and its collaborators from cfg. Close must be
// called when the command ends.
func newApp(cfg *config.Config, logger *errors.Logger, opts appOptions) (*app, error) {
	if err := cfg.ValidateAI(); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey, err.Error(), nil)
	}

	a := &app{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	prompts, err := config.NewPromptStore(cfg.Prompts.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt overrides: %w", err)
	}
	a.prompts = prompts
	if cfg.Prompts.Watch && cfg.Prompts.Dir != "" {
		watcher, err := config.NewPromptWatcher(prompts, cfg.Prompts.DebounceDelay, logger)
		if err != nil {
			return nil, err
		}
		if err := watcher.Start(); err != nil {
			return nil, fmt.Errorf("failed to watch prompt directory: %w", err)
		}
		a.watcher = watcher
	}

	if a.chat, err = ai.NewClientFromConfig(cfg.GetChatConfig(), "chat", logger); err != nil {
		return nil, err
	}
	if a.scoring, err = ai.NewClientFromConfig(cfg.GetScoringConfig(), "scoring", logger); err != nil {
		return nil, err
	}

	obsConfig := observability.ObservabilityConfig{}
	if opts.observe {
		obsConfig = observability.GetObservabilityConfig(cfg, Version)
	}
	if a.om, err = observability.NewObservabilityManager(obsConfig, cfg); err != nil {
		return nil, err
	}
	metrics := a.om.GetMetrics()

	recorders := telemetry.Recorders{metrics}
	if cfg.Storage.Enabled {
		if a.audit, err = storage.Open(cfg.Storage.Path); err != nil {
			return nil, err
		}
		recorders = append(recorders, a.audit)
		logger.Info("LLM call audit log enabled", "path", cfg.Storage.Path)
	}

	a.router = phase.NewRouter(phase.Deps{
		Store:    session.NewStore(cfg.Session.IdleTTL, cfg.Session.CleanupInterval, logger),
		Client:   a.chat,
		Scorer:   ats.NewScorer(prompts, logger, cfg.Session.ScoreCacheSize).UseClient(a.scoring),
		Prompts:  prompts,
		Session:  cfg.Session,
		Recorder: recorders,
		Events:   metrics,
		Logger:   logger,
	})

	ok = true
	return a, nil
}

// models lists the clients probed by the health endpoint
func (a *app) models() map[string]server.ModelHealth {
	return map[string]server.ModelHealth{"chat": a.chat, "scoring": a.scoring}
}

// Close stops the watcher, flushes telemetry and closes the audit log
func (a *app) Close() {
	if a.router != nil {
		a.router.Store().Close()
	}
	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			a.logger.LogError(err, "Failed to stop prompt watcher")
		}
	}
	if a.om != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.om.Shutdown(shutdownCtx); err != nil {
			a.logger.LogError(err, "Failed to shutdown observability")
		}
	}
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			a.logger.LogError(err, "Failed to close audit log")
		}
	}
}
