package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fathom-agency/recap/internal/analyzer"
	"github.com/fathom-agency/recap/internal/anthropic"
	"github.com/fathom-agency/recap/internal/api"
	"github.com/fathom-agency/recap/internal/config"
	"github.com/fathom-agency/recap/internal/events"
	"github.com/fathom-agency/recap/internal/llm"
	"github.com/fathom-agency/recap/internal/openai"
	"github.com/fathom-agency/recap/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("recap starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
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

	// Backend credentials from the environment; requests may override per
	// call via the x-api-key header.
	defaultKeys := map[string]string{}
	if cfg.AnthropicAPIKey != "" {
		defaultKeys[llm.ProviderClaude] = cfg.AnthropicAPIKey
	}
	if cfg.OpenAIAPIKey != "" {
		defaultKeys[llm.ProviderOpenAI] = cfg.OpenAIAPIKey
	}
	if len(defaultKeys) == 0 {
		slog.Warn("no backend API keys configured, analysis requires per-request keys")
	}

	backends := func(provider, apiKey string) (llm.Client, error) {
		switch provider {
		case llm.ProviderClaude:
			return anthropic.NewClient(apiKey, cfg.ClaudeModel), nil
		case llm.ProviderOpenAI:
			return openai.NewClient(apiKey, cfg.OpenAIModel), nil
		}
		return nil, fmt.Errorf("unknown provider %q", provider)
	}

	// NATS (optional, recap works without it, just no lifecycle events)
	var eventsClient *events.Client
	if cfg.NatsURL != "" {
		eventsClient, err = events.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer eventsClient.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured, running without lifecycle events")
	}

	srv := api.NewServer(api.Options{
		Port:        cfg.Port,
		DB:          db,
		Analyzer:    analyzer.New(slog.Default()),
		Backends:    backends,
		DefaultKeys: defaultKeys,
		Events:      eventsClient,
		Logger:      slog.Default(),
	})

	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("recap ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("recap stopped")
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
