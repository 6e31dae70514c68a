package app

import (
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"

	"content-review-orchestrator/internal/config"
	appTemporal "content-review-orchestrator/internal/temporal"
)

func DialTemporal(cfg config.Config, logger *slog.Logger) (client.Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    tlog.NewStructuredLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("connect temporal: %w", err)
	}
	return c, nil
}

func NewTemporalDispatcher(cfg config.Config, c client.Client, logger *slog.Logger) *appTemporal.Dispatcher {
	return appTemporal.NewDispatcher(c, cfg.TemporalTaskQueue, cfg.WorkflowIDPrefix, logger)
}
