package app

import (
	"context"
	"fmt"
	"log/slog"

	"EthNews/internal/api"
	"EthNews/internal/config"
	"EthNews/internal/domain"
	"EthNews/internal/filter"
	"EthNews/internal/infrastructure/llm"
	"EthNews/internal/infrastructure/parser"
	"EthNews/internal/infrastructure/scheduler"
	"EthNews/internal/infrastructure/storage"
	"EthNews/internal/infrastructure/telegram"
	"EthNews/internal/logging"
	"EthNews/internal/ports"
	"EthNews/internal/scanner"
	"EthNews/internal/server"
	"EthNews/internal/summarizer"
	"EthNews/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	log      *slog.Logger
	store    *storage.SQLStore
	pipeline *usecase.Pipeline
	catalog  *usecase.Catalog
	sources  []domain.Source
}

// New opens the store and builds every adapter named in cfg.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	store, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	registry := scanner.NewRegistry(parser.NewGofeedParser(), parser.NewLiteParser())
	reader := parser.NewHTTPReader(registry, parser.ReaderOptions{
		Timeout:      cfg.Fetch.Timeout,
		UserAgent:    cfg.Fetch.UserAgent,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
	}, baseLogger.With("component", "reader"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Reader:      reader,
		Normalizer:  filter.NewNormalizer(cfg.Filter.Keywords),
		Repository:  store,
		Summarizer:  newSummarizer(cfg, baseLogger),
		Notifier:    newNotifier(cfg),
		Logger:      baseLogger,
		Concurrency: cfg.Fetch.Concurrency,
		MaxArticles: cfg.Retention.Ceiling(),
	})

	return &Application{
		cfg:      cfg,
		log:      baseLogger,
		store:    store,
		pipeline: pipeline,
		catalog:  usecase.NewCatalog(store),
		sources:  cfg.DomainSources(),
	}, nil
}

func newSummarizer(cfg config.Config, log *slog.Logger) ports.Summarizer {
	if cfg.Summarizer.Disabled {
		return nil
	}

	extractive := summarizer.NewExtractive(cfg.Filter.Keywords, summarizer.ExtractiveOptions{})

	var gen ports.TextGenerator
	switch cfg.Summarizer.Provider {
	case config.ProviderChatGPT:
		if cfg.ChatGPT.APIKey == "" {
			log.Warn("chatgpt summarizer selected without api key, using extractive summaries")
			return extractive
		}
		gen = llm.NewChatGPTClient(cfg.ChatGPT)
	case config.ProviderOllama:
		gen = llm.NewOllamaClient(cfg.Ollama)
	default:
		return extractive
	}

	return summarizer.NewGenerative(gen, extractive, summarizer.GenerativeOptions{
		Timeout:           cfg.Summarizer.Timeout,
		MaxInputChars:     cfg.Summarizer.MaxInputChars,
		Language:          cfg.Summarizer.Language,
		RequestsPerMinute: cfg.Summarizer.RequestsPerMinute,
	}, log)
}

func newNotifier(cfg config.Config) ports.Notifier {
	n := telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	if !n.Configured() {
		return nil
	}
	return n
}

// Ingest runs one cycle over the configured sources.
func (a *Application) Ingest(ctx context.Context) (domain.IngestResult, error) {
	return a.pipeline.Ingest(ctx, a.sources)
}

// Query lists stored articles newest first.
func (a *Application) Query(ctx context.Context, params domain.QueryParams) (domain.Page, error) {
	return a.catalog.Query(ctx, params)
}

// Serve starts the interval scheduler and the HTTP API and blocks until ctx
// is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	driver := scheduler.NewIntervalScheduler(
		a.cfg.Scheduler.Interval,
		a.cfg.Scheduler.ShouldRunOnStart(),
		a.cfg.Scheduler.Location(),
	)
	sched := usecase.NewScheduler(driver, a.pipeline, a.sources, a.log)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.log.Info("scheduler started", "interval", a.cfg.Scheduler.Interval, "sources", len(a.sources))

	srv := server.New(server.Config{Port: a.cfg.Server.Port, CorsOrigins: a.cfg.Server.CorsOrigins}, a.log)
	api.NewRouter(srv.Echo, a.catalog, api.IngestFunc(a.Ingest), a.store, a.log).Bind()

	serveErr := srv.Run(ctx)

	stopCtx, cancel := context.WithTimeout(context.Background(), server.GracefulShutdownTimeout)
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		a.log.Warn("scheduler stop", "error", err)
	}
	return serveErr
}

// Close releases the store.
func (a *Application) Close() error {
	return a.store.Close()
}
