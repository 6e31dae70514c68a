package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"content-review-orchestrator/internal/api"
	"content-review-orchestrator/internal/app"
	"content-review-orchestrator/internal/config"
	"content-review-orchestrator/internal/logging"
	"content-review-orchestrator/internal/review"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		logger.Error("open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	content, err := app.OpenContent(ctx, cfg, store)
	if err != nil {
		logger.Error("open content", "error", err)
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

	h := api.NewHandler(engine.Coordinator, engine.Creator, engine.Store, logger)
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.NewRouter(h),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("api listening", "port", cfg.HTTPPort, "store", cfg.StoreDriver, "dispatch", cfg.AutoReviewDispatch)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
