package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TOOL2U/Sia-Moon---Property-Management--sub005/internal/api"
	"github.com/TOOL2U/Sia-Moon---Property-Management--sub005/internal/audit"
	"github.com/TOOL2U/Sia-Moon---Property-Management--sub005/internal/command"
	"github.com/TOOL2U/Sia-Moon---Property-Management--sub005/internal/config"
	"github.com/TOOL2U/Sia-Moon---Property-Management--sub005/internal/events"
	"github.com/TOOL2U/Sia-Moon---Property-Management--sub005/internal/llm"
	"github.com/TOOL2U/Sia-Moon---Property-Management--sub005/internal/pipeline"
	"github.com/TOOL2U/Sia-Moon---Property-Management--sub005/internal/staffing"
	"github.com/TOOL2U/Sia-Moon---Property-Management--sub005/internal/store"
	"github.com/TOOL2U/Sia-Moon---Property-Management--sub005/internal/usage"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("siamoon-ai starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		slog.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}
	slog.Info("database connected")

	// Model providers and router
	anthropic := llm.NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	openai := llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	if !anthropic.Configured() && !openai.Configured() {
		slog.Warn("no model provider configured — conversational requests will fail")
	}
	router := llm.NewRouter(slog.Default(), anthropic, openai)

	// NATS
	natsClient, err := events.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	// Pipeline stages
	auditor := audit.NewLogger(db, slog.Default())
	usageLog := usage.NewLogger(db, slog.Default())
	loader := staffing.NewLoader(db)
	extractor := command.NewExtractor(slog.Default())
	validator := command.NewValidator(db, auditor, command.Rules{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		MaxConcurrentJobs:  cfg.MaxConcurrentJobs,
		BlackoutWeekday:    cfg.BlackoutWeekday,
	})
	executor := command.NewExecutor(db, loader, natsClient, slog.Default())

	pipe := pipeline.New(extractor, validator, executor, auditor, router, usageLog, natsClient, slog.Default())

	// Observe degraded audit mode
	go func() {
		for err := range auditor.Errors() {
			slog.Warn("audit trail degraded", "error", err)
		}
	}()

	// Inbound command events
	if err := natsClient.Subscribe(events.SubjectCommandRequest, pipe.HandleCommandEvent); err != nil {
		slog.Error("failed to subscribe to command events", "error", err)
		os.Exit(1)
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.APIToken, pipe, loader, auditor, db, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	// Announce registration
	if err := natsClient.Publish("siamoon.service.ai.registered", map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"port":      cfg.Port,
	}); err != nil {
		slog.Warn("failed to publish registration", "error", err)
	}

	slog.Info("siamoon-ai ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("siamoon-ai stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
