package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/application-assistant/internal/config"
	"github.com/jonathan/application-assistant/internal/export"
	"github.com/jonathan/application-assistant/internal/pipeline"
	"github.com/jonathan/application-assistant/internal/rendering"
	"github.com/jonathan/application-assistant/internal/server"
	"github.com/jonathan/application-assistant/internal/server/ratelimit"
	"github.com/jonathan/application-assistant/internal/usage"
	"github.com/spf13/cobra"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the generation, application tracking, export and payment webhook endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (defaults to PORT or 8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if cmd.Flags().Changed("port") {
		a.cfg.Port = servePort
	}

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return fmt.Errorf("failed to create JWT config: %w", err)
	}

	store, err := a.openStorage(ctx)
	if err != nil {
		return err
	}

	orchestrator, err := a.newOrchestrator(ctx)
	if err != nil {
		return err
	}

	rlConfig := ratelimit.LoadConfig()
	if rlConfig.RedisAddr == "" {
		rlConfig.RedisAddr = a.cfg.RedisAddr
	}
	limiter, err := ratelimit.New(rlConfig, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create rate limiter: %w", err)
	}

	gate := usage.NewGate(store, usage.WithLogger(a.logger))
	runner := pipeline.NewRunner(gate, orchestrator, store, pipeline.WithLogger(a.logger))
	exporter := export.NewExporter(rendering.NewChromedpRenderer(a.cfg.ChromePath), export.WithLogger(a.logger))

	srv, err := server.New(server.Config{
		Port:          a.cfg.Port,
		WebhookSecret: a.cfg.WebhookSecret,
		LLMTimeout:    time.Duration(a.cfg.LLMTimeoutSeconds) * time.Second,
	}, server.Deps{
		Generator:   orchestrator,
		Runner:      runner,
		Gate:        gate,
		Records:     store,
		Exporter:    exporter,
		RateLimiter: limiter,
		JWT:         server.NewJWTService(jwtConfig),
		Logger:      a.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
