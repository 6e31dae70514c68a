package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"content-review-orchestrator/internal/domain"
	"content-review-orchestrator/internal/review"
)

type JobCreator interface {
	CreateJob(ctx context.Context, content domain.ContentRef, mark domain.ReviewMark) (review.CreatedJob, error)
}

// CreateJobHandler turns each published content item into a review job.
// Republishing content that already has a PENDING job is not an error.
func CreateJobHandler(creator JobCreator, mark domain.ReviewMark, timeout time.Duration, logger *slog.Logger) func(context.Context, ContentEvent) error {
	if logger == nil {
		logger = slog.Default()
	}
	return func(parent context.Context, event ContentEvent) error {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()

		created, err := creator.CreateJob(ctx, event.Content, mark)
		if errors.Is(err, domain.ErrJobAlreadyPending) {
			logger.InfoContext(ctx, "content already under review", "content", event.Content.String(), "object", event.ObjectKey)
			return nil
		}
		if errors.Is(err, domain.ErrPrecondition) {
			logger.WarnContext(ctx, "content event ignored", "object", event.ObjectKey, "error", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("create review job for %s: %w", event.ObjectKey, err)
		}

		logger.InfoContext(ctx, "review job created",
			"job_id", created.Job.ID,
			"content", event.Content.String(),
			"status", created.Job.Status,
			"tasks", len(created.Tasks),
		)
		return nil
	}
}
