package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trainplan/pkg/archive"
	"trainplan/pkg/config"
	"trainplan/pkg/generator"
	"trainplan/pkg/llm"
	"trainplan/pkg/llm/anthropic"
	"trainplan/pkg/llm/google"
	"trainplan/pkg/llm/ollama"
	"trainplan/pkg/llm/openai"
	"trainplan/pkg/logx"
	"trainplan/pkg/mail"
	"trainplan/pkg/metrics"
	"trainplan/pkg/orchestrator"
	"trainplan/pkg/store"
	"trainplan/pkg/webapi"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	flag.Parse()

	logger := logx.NewLogger("trainplan")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config: %v", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logx.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Warn("store close: %v", closeErr)
		}
	}()

	client, err := buildLLMClient(cfg)
	if err != nil {
		return err
	}
	logger.Info("text-generation backend: %s (%s)", cfg.Provider, client.GetModelName())

	recorder := metrics.NewPrometheusRecorder()
	gen := generator.New(client, cfg.GenerationTimeout(), recorder)

	opts := []orchestrator.Option{orchestrator.WithRecorder(recorder)}

	if cfg.EmailEnabled() {
		opts = append(opts, orchestrator.WithSender(mail.NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom)))
		logger.Info("completion emails enabled from %s", cfg.EmailFrom)
	} else {
		logger.Warn("completion emails disabled (email_from or RESEND_API_KEY unset)")
	}

	if cfg.ArchivePath != "" {
		arch, archErr := archive.Open(cfg.ArchivePath)
		if archErr != nil {
			return fmt.Errorf("failed to open plan archive: %w", archErr)
		}
		defer func() {
			if closeErr := arch.Close(); closeErr != nil {
				logger.Warn("archive close: %v", closeErr)
			}
		}()
		opts = append(opts, orchestrator.WithArchive(arch))
		logger.Info("plan archive enabled at %s", cfg.ArchivePath)
	}

	orch := orchestrator.New(st, gen, opts...)

	var serverOpts []webapi.Option
	if cfg.PrometheusURL != "" {
		qs, qsErr := metrics.NewQueryService(cfg.PrometheusURL)
		if qsErr != nil {
			return fmt.Errorf("failed to create metrics query service: %w", qsErr)
		}
		serverOpts = append(serverOpts, webapi.WithStats(qs))
	}

	server := webapi.NewServer(orch, serverOpts...)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

func buildStore(ctx context.Context, cfg *config.Config, logger *logx.Logger) (store.Store, error) {
	if cfg.RedisAddr == "" {
		logger.Warn("no redis_addr configured, using in-memory store (state is lost on restart)")
		return store.NewMemoryStore(), nil
	}

	st, err := store.NewRedisStore(ctx, store.RedisOptions{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info("connected to redis at %s", cfg.RedisAddr)
	return st, nil
}

func buildLLMClient(cfg *config.Config) (llm.Client, error) {
	switch cfg.Provider {
	case config.ProviderAnthropic:
		return anthropic.NewClient(cfg.AnthropicAPIKey, cfg.Model), nil
	case config.ProviderOpenAI:
		return openai.NewClient(cfg.OpenAIAPIKey, cfg.Model), nil
	case config.ProviderGoogle:
		return google.NewClient(cfg.GeminiAPIKey, cfg.Model), nil
	case config.ProviderOllama:
		return ollama.NewClient(cfg.OllamaHost, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
