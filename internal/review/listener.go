package review

import (
	"context"
	"errors"
	"log/slog"

	"content-review-orchestrator/internal/domain"
)

// StateChangeListener receives a signal each time a job's stored status
// changes. Delivery is best-effort: a returned error is logged by the engine
// and never rolls back the status change.
type StateChangeListener interface {
	OnJobStateChange(ctx context.Context, change domain.JobStateChange) error
}

type ListenerFunc func(ctx context.Context, change domain.JobStateChange) error

func (f ListenerFunc) OnJobStateChange(ctx context.Context, change domain.JobStateChange) error {
	return f(ctx, change)
}

// Listeners fans a signal out to every listener, even when an earlier one fails.
type Listeners []StateChangeListener

func (ls Listeners) OnJobStateChange(ctx context.Context, change domain.JobStateChange) error {
	var errs []error
	for _, l := range ls {
		if l == nil {
			continue
		}
		if err := l.OnJobStateChange(ctx, change); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func LoggingListener(logger *slog.Logger) StateChangeListener {
	if logger == nil {
		logger = slog.Default()
	}
	return ListenerFunc(func(ctx context.Context, change domain.JobStateChange) error {
		logger.InfoContext(ctx, "review job status changed",
			"job_id", change.Job.ID,
			"content", change.Job.Content.String(),
			"previous", change.Previous,
			"next", change.Next,
		)
		return nil
	})
}
