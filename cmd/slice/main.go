package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/slice/internal/agent"
	"github.com/MikeSquared-Agency/slice/internal/anthropic"
	"github.com/MikeSquared-Agency/slice/internal/api"
	"github.com/MikeSquared-Agency/slice/internal/config"
	"github.com/MikeSquared-Agency/slice/internal/enrich"
	"github.com/MikeSquared-Agency/slice/internal/extractor"
	"github.com/MikeSquared-Agency/slice/internal/finalizer"
	"github.com/MikeSquared-Agency/slice/internal/hermes"
	"github.com/MikeSquared-Agency/slice/internal/processor"
	"github.com/MikeSquared-Agency/slice/internal/slack"
	"github.com/MikeSquared-Agency/slice/internal/store"
	"github.com/MikeSquared-Agency/slice/internal/tools"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("slice starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Conversation store
	conversations, locker, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open conversation store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// Tools
	registry := tools.NewRegistry(tools.NewTimeCalculator(tools.Timing{
		DeadlineOffset:   cfg.BettingDeadlineOffset,
		ResolutionWindow: cfg.ResolutionWindow,
		DefaultTime:      cfg.DefaultEventTime,
	}, time.Now))
	if cfg.PerplexityToken != "" {
		registry.Register(tools.NewPerplexitySearch(cfg.PerplexityToken, cfg.PerplexityModel, slog.Default()))
		slog.Info("perplexity search ready", "model", cfg.PerplexityModel)
	} else {
		slog.Warn("PERPLEXITY_API_TOKEN not set, event lookup limited to timing")
	}
	slog.Info("tools registered", "tools", registry.Names())

	// Conversation machine
	ext := extractor.New(cfg.DefaultToken)
	deps := agent.Deps{
		Extractor: ext,
		Enricher:  enrich.New(registry, slog.Default()),
		Finalizer: finalizer.New(cfg.WagerTTL, time.Now),
	}
	mode := "keyword"
	if cfg.AnthropicAPIKey != "" {
		llm := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		deps.Classifier = agent.NewLLMClassifier(llm)
		deps.Generator = agent.NewLLMGenerator(llm)
		mode = "llm"
		slog.Info("anthropic client ready", "model", cfg.AnthropicModel)
	} else {
		deps.Classifier = agent.NewKeywordClassifier(ext)
		slog.Warn("ANTHROPIC_API_KEY not set, using keyword classifier and static replies")
	}
	machine := agent.New(deps, agent.Timeouts{
		Classify: cfg.ClassifyTimeout,
		Generate: cfg.GenerateTimeout,
		Enrich:   cfg.EnrichTimeout,
	}, slog.Default())

	opts := processor.Options{Locker: locker}

	// NATS/Hermes (optional, HTTP works without it)
	var hermesClient *hermes.Client
	if cfg.NatsURL != "" {
		hermesClient, err = hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer hermesClient.Close()
		opts.Publisher = hermesClient
		slog.Info("NATS connected", "url", cfg.NatsURL)
	}

	// Slack poster (optional)
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		opts.Announcer = slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, slog.Default())
		slog.Info("slack poster ready", "channel", cfg.SlackChannel)
	} else {
		slog.Warn("slack not configured, wagers will not be announced")
	}

	proc := processor.New(conversations, machine, opts, slog.Default())

	apiCfg := api.Config{
		Port:        cfg.Port,
		APIToken:    cfg.APIToken,
		CORSOrigins: cfg.CORSOrigins,
		Mode:        mode,
	}
	if hermesClient != nil {
		if err := hermesClient.Subscribe(hermes.SubjectUtterance, proc.HandleUtterance); err != nil {
			slog.Error("failed to subscribe to utterances", "error", err)
			os.Exit(1)
		}
		apiCfg.Broker = hermesClient
	}

	// HTTP API
	srv := api.NewServer(apiCfg, proc, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("slice ready", "port", cfg.Port, "mode", mode)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown error", "error", err)
	}
	cancel()
	slog.Info("slice stopped")
}

// openStore picks the conversation store from the configured backends: Redis
// in front of Postgres when both are set, either alone, or process memory.
// With Redis configured, turn locks are taken in Redis so replicas agree.
func openStore(ctx context.Context, cfg config.Config) (store.Conversations, processor.Locker, func(), error) {
	var (
		durable store.Conversations
		cache   *store.Redis
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		closers = append(closers, pg.Close)
		if err := pg.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, nil, nil, err
		}
		durable = pg
		slog.Info("database connected")
	}

	if cfg.RedisURL != "" {
		r, err := store.NewRedis(ctx, cfg.RedisURL, cfg.ConversationTTL)
		if err != nil {
			closeAll()
			return nil, nil, nil, err
		}
		closers = append(closers, func() { _ = r.Close() })
		cache = r
		slog.Info("redis connected", "ttl", cfg.ConversationTTL)
	}

	var locker processor.Locker
	if cache != nil {
		locker = processor.Distributed(cache, cfg.EnrichTimeout+cfg.GenerateTimeout+cfg.ClassifyTimeout+30*time.Second)
	}

	switch {
	case cache != nil && durable != nil:
		return store.NewTiered(cache, durable), locker, closeAll, nil
	case durable != nil:
		return durable, nil, closeAll, nil
	case cache != nil:
		return cache, locker, closeAll, nil
	default:
		slog.Warn("no DATABASE_URL or REDIS_URL, conversations are kept in memory")
		return store.NewMemory(), nil, closeAll, nil
	}
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
