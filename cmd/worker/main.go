package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"content-review-orchestrator/internal/app"
	"content-review-orchestrator/internal/config"
	"content-review-orchestrator/internal/logging"
	appTemporal "content-review-orchestrator/internal/temporal"
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

	temporalClient, err := app.DialTemporal(cfg, logger)
	if err != nil {
		logger.Error("dial temporal", "error", err)
		os.Exit(1)
	}
	defer temporalClient.Close()

	// Retriggers from the worker go back through Temporal.
	engine, err := app.NewEngine(cfg, store, app.Options{
		Content:    content,
		Dispatcher: app.NewTemporalDispatcher(cfg, temporalClient, logger),
		Logger:     logger,
	})
	if err != nil {
		logger.Error("build engine", "error", err)
		os.Exit(1)
	}

	activities := &appTemporal.Activities{Jobs: engine.Coordinator, Runner: engine.Runner}

	w := worker.New(temporalClient, cfg.TemporalTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(appTemporal.AutoReviewWorkflow, workflow.RegisterOptions{Name: appTemporal.AutoReviewWorkflowName})
	w.RegisterActivity(activities.EvaluateAutoReviewActivity)
	w.RegisterActivity(activities.RecordAutoReviewActivity)

	logger.Info("worker running", "task_queue", cfg.TemporalTaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("worker stopped with error", "error", err)
		os.Exit(1)
	}
}
