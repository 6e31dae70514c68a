package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"content-review-orchestrator/internal/app"
	"content-review-orchestrator/internal/config"
	"content-review-orchestrator/internal/domain"
	"content-review-orchestrator/internal/events"
	"content-review-orchestrator/internal/logging"
	"content-review-orchestrator/internal/review"
	"content-review-orchestrator/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	store, err := app.OpenStore(openCtx, cfg)
	if err != nil {
		logger.Error("open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	content, err := storage.NewMinioContentStore(openCtx, cfg.Minio())
	if err != nil {
		logger.Error("connect minio", "error", err)
		os.Exit(1)
	}

	var dispatcher review.AutoReviewDispatcher
	if cfg.AutoReviewDispatch == config.DispatchTemporal {
		temporalClient, err := app.DialTemporal(cfg, logger)
		if err != nil {
			logger.Error("dial temporal", "error", err)
			os.Exit(1)
		}
		defer temporalClient.Close()
		dispatcher = app.NewTemporalDispatcher(cfg, temporalClient, logger)
	}

	engine, err := app.NewEngine(cfg, store, app.Options{Content: content, Dispatcher: dispatcher, Logger: logger})
	if err != nil {
		logger.Error("build engine", "error", err)
		os.Exit(1)
	}

	source := events.NewMinioContentEventSource(content.Client(), content.Bucket())
	logger.Info("event-handler listening for published content", "bucket", content.Bucket(), "prefix", storage.ContentPrefix)
	if err := source.Run(ctx, events.CreateJobHandler(engine.Creator, domain.ReviewMarkNormal, 30*time.Second, logger)); err != nil {
		logger.Error("event-handler stopped with error", "error", err)
		os.Exit(1)
	}
}
