package app

import (
	"context"
	"fmt"
	"log/slog"

	"content-review-orchestrator/internal/autoreview"
	"content-review-orchestrator/internal/config"
	"content-review-orchestrator/internal/openai"
	"content-review-orchestrator/internal/review"
	"content-review-orchestrator/internal/storage"
)

// Engine is the review engine assembled from configuration.
type Engine struct {
	Store       storage.Store
	Coordinator *review.Coordinator
	Creator     *review.JobCreator
	Runner      *autoreview.Runner
}

type Options struct {
	Content review.ContentProvider
	// Dispatcher starts automated review for new jobs. Nil runs it inline.
	Dispatcher review.AutoReviewDispatcher
	Logger     *slog.Logger
}

// OpenStore connects the configured store and applies pending migrations.
func OpenStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	var (
		store *storage.SQLStore
		err   error
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		return storage.NewMemoryStore(), nil
	case config.StoreDriverSQLite:
		store, err = storage.NewSQLiteStore(cfg.SQLitePath)
	default:
		store, err = storage.NewPostgresStore(cfg.PostgresDSN)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("%s ping: %w", cfg.StoreDriver, err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// OpenContent returns the content provider. The in-memory store serves its
// own content unless MinIO credentials are configured.
func OpenContent(ctx context.Context, cfg config.Config, store storage.Store) (review.ContentProvider, error) {
	if mem, ok := store.(*storage.MemoryStore); ok && cfg.MinioAccessKey == "" {
		return mem, nil
	}
	content, err := storage.NewMinioContentStore(ctx, cfg.Minio())
	if err != nil {
		return nil, fmt.Errorf("connect minio: %w", err)
	}
	return content, nil
}

func NewOrchestrator(cfg config.Config, logger *slog.Logger) (*autoreview.Orchestrator, error) {
	rules := autoreview.DefaultRules()
	if cfg.AutoReviewRules != "" {
		loaded, err := autoreview.LoadRules(cfg.AutoReviewRules)
		if err != nil {
			return nil, err
		}
		rules = loaded
	}

	var moderator autoreview.Moderator
	if cfg.OpenAIAPIKey != "" {
		moderator = &openai.Moderator{
			LLM:       openai.NewHTTPClient(openai.Config{APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel}),
			Model:     cfg.OpenAIModel,
			Timeout:   cfg.OpenAITimeout(),
			MaxRepair: 1,
		}
	}
	reviewers, err := rules.Build(moderator)
	if err != nil {
		return nil, err
	}

	return autoreview.NewOrchestrator(reviewers, autoreview.Options{
		Timeout: cfg.AutoReviewTimeout,
		Workers: cfg.AutoReviewWorkers,
	}, logger), nil
}

func NewEngine(cfg config.Config, store storage.Store, opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ids, err := review.NewIDGenerator(cfg.IDScheme)
	if err != nil {
		return nil, err
	}
	orchestrator, err := NewOrchestrator(cfg, logger)
	if err != nil {
		return nil, err
	}

	listeners := review.Listeners{review.LoggingListener(logger), store}
	coordinator := review.NewCoordinator(store, store, ids, listeners, logger)
	runner := autoreview.NewRunner(orchestrator, opts.Content, coordinator, logger)

	var dispatcher review.AutoReviewDispatcher = runner
	if opts.Dispatcher != nil {
		dispatcher = opts.Dispatcher
	}
	creator := review.NewJobCreator(coordinator, store, review.NewStaticPool(cfg.ReviewerPool), dispatcher, ids,
		review.JobCreatorConfig{HumanReviewers: cfg.HumanReviewersPerJob}, logger)

	return &Engine{Store: store, Coordinator: coordinator, Creator: creator, Runner: runner}, nil
}
