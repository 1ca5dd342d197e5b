package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jonathan/application-assistant/internal/config"
	"github.com/jonathan/application-assistant/internal/db"
	"github.com/jonathan/application-assistant/internal/generation"
	"github.com/jonathan/application-assistant/internal/llm"
	"github.com/jonathan/application-assistant/internal/logging"
	"github.com/jonathan/application-assistant/internal/usage"
	"github.com/sirupsen/logrus"
)

// storage is the store selected by configuration: PostgreSQL when a
// database URL is set, otherwise process memory.
type storage interface {
	db.RecordStore
	usage.Store
}

// app holds the components shared by every command.
type app struct {
	cfg     *config.Config
	logger  *logrus.Logger
	store   storage
	closers []func()
}

// newApp loads configuration and the logger. Storage is opened on demand.
func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger}, nil
}

// openStorage connects to PostgreSQL and applies pending migrations, or
// falls back to memory when no database is configured.
func (a *app) openStorage(ctx context.Context) (storage, error) {
	if a.store != nil {
		return a.store, nil
	}

	if a.cfg.DatabaseURL == "" {
		a.logger.Warn("DATABASE_URL not set; applications and usage are kept in memory")
		a.store = db.NewMemoryStore()
		return a.store, nil
	}

	database, err := db.Connect(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, database.Close)

	applied, err := database.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	for _, version := range applied {
		a.logger.WithField("version", version).Info("Applied migration")
	}

	a.store = database
	return a.store, nil
}

// newOrchestrator builds the LLM client for the configured provider.
func (a *app) newOrchestrator(ctx context.Context, opts ...generation.Option) (*generation.Orchestrator, error) {
	llmCfg, err := llm.ConfigFor(a.cfg.LLMProvider)
	if err != nil {
		return nil, err
	}
	if a.cfg.LLMModel != "" {
		llmCfg = llmCfg.WithModel(a.cfg.LLMModel)
	}
	llmCfg = llmCfg.WithTimeout(time.Duration(a.cfg.LLMTimeoutSeconds) * time.Second)

	client, err := llm.NewClient(ctx, llmCfg, a.cfg.APIKey(), a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	a.closers = append(a.closers, func() {
		if err := client.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close LLM client")
		}
	})

	opts = append([]generation.Option{
		generation.WithLogger(a.logger),
		generation.WithConcurrency(a.cfg.GenerationConcurrency),
	}, opts...)
	return generation.New(client, opts...), nil
}

// Close releases everything opened by the app, newest first.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
