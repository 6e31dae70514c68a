package review

import (
	"context"

	"content-review-orchestrator/internal/domain"
)

// TaskStore persists review tasks. Saving a task with Version 0 inserts it;
// otherwise the save must fail with domain.ErrStaleWrite when the stored
// version differs. Lookups of unknown ids return a domain.ErrNotFound error.
type TaskStore interface {
	SaveTask(ctx context.Context, task domain.ReviewTask) (domain.ReviewTask, error)
	FindTask(ctx context.Context, id string) (domain.ReviewTask, error)
	FindTasksByJob(ctx context.Context, jobID string) ([]domain.ReviewTask, error)
	FindTasksByReviewer(ctx context.Context, reviewerID string) ([]domain.ReviewTask, error)
}

// JobStore persists review jobs with the same versioning contract as TaskStore.
// Stores that enforce one PENDING job per content item report a violation as
// domain.ErrJobAlreadyPending.
type JobStore interface {
	SaveJob(ctx context.Context, job domain.ReviewJob) (domain.ReviewJob, error)
	FindJob(ctx context.Context, id string) (domain.ReviewJob, error)
	FindJobsByContent(ctx context.Context, content domain.ContentRef) ([]domain.ReviewJob, error)
}

// ReviewerAllocator picks a human reviewer for a content item. Returning
// domain.AutoReviewerID means no human reviewer is available.
type ReviewerAllocator interface {
	AllocateReviewer(ctx context.Context, content domain.ContentRef, reassignment bool) (string, error)
}

// AutoReviewDispatcher starts automated review of a job. Implementations
// may run it inline, in the background, or on a workflow engine.
type AutoReviewDispatcher interface {
	DispatchAutoReview(ctx context.Context, job domain.ReviewJob) error
}

type ContentProvider interface {
	ContentDetail(ctx context.Context, ref domain.ContentRef) (domain.ContentDetail, error)
}
