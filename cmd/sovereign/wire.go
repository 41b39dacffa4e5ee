package main

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/sovereign/internal/agents"
	"github.com/fyrsmithlabs/sovereign/internal/config"
	"github.com/fyrsmithlabs/sovereign/internal/deps"
	"github.com/fyrsmithlabs/sovereign/internal/events"
	"github.com/fyrsmithlabs/sovereign/internal/gitops"
	"github.com/fyrsmithlabs/sovereign/internal/llm"
	"github.com/fyrsmithlabs/sovereign/internal/logging"
	"github.com/fyrsmithlabs/sovereign/internal/memory"
	"github.com/fyrsmithlabs/sovereign/internal/orchestrator"
	"github.com/fyrsmithlabs/sovereign/internal/secrets"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	logCfg, err := logging.ConfigFrom(cfg.Log)
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// app holds the wired orchestrator and the resources it shares with the
// HTTP surface.
type app struct {
	orch  *orchestrator.Orchestrator
	store memory.Store
	// cleanup releases the memory store and the NATS connection.
	cleanup func()
}

// buildApp wires every provider from cfg.
func buildApp(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*app, error) {
	scrubber, err := secrets.NewScrubber(cfg.Secrets.Allowlist)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secret scrubber: %w", err)
	}

	client, err := llm.NewClient(cfg.LLM, logger.Named("llm"), llm.WithScrubber(scrubber))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize llm: %w", err)
	}

	store, err := memory.NewStore(cfg.Memory, logger.Named("memory"), memory.WithScrubber(scrubber))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory store: %w", err)
	}
	closers := []func() error{store.Close}

	opts := []orchestrator.Option{orchestrator.WithLogger(logger.Named("orchestrator"))}
	if cfg.Orchestrator.ConcurrentProviders {
		opts = append(opts, orchestrator.WithConcurrentProviders())
	}

	if cfg.NATS.URL != "" {
		nc, err := events.Connect(cfg.NATS.URL)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		closers = append(closers, nc.Drain)
		opts = append(opts, orchestrator.WithPublisher(events.NewNATSPublisher(nc, cfg.NATS.SubjectPrefix)))
		logger.Info(ctx, "publishing session events", zap.String("url", cfg.NATS.URL))
	}

	providers := orchestrator.Providers{
		Planner:   agents.NewPlannerAgent(client),
		Memory:    store,
		Replanner: agents.NewDebugAgent(client),
		LLM:       agents.NewLLMAgent(client),
		Git:       gitops.NewActor(cfg.Git, gitops.WithLogger(logger.Named("git"))),
		Installer: deps.NewInstaller(cfg.Deps, logger.Named("deps")),
	}

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn(ctx, "cleanup failed", zap.Error(err))
			}
		}
	}
	return &app{
		orch:    orchestrator.New(providers, opts...),
		store:   store,
		cleanup: cleanup,
	}, nil
}
