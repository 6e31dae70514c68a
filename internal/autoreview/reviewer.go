package autoreview

import (
	"context"

	"content-review-orchestrator/internal/domain"
)

// Reviewer is one automated inspection. Review records its findings on rc
// (Reject, AddFeedbackEntry) and should call rc.MarkReviewerCompleted when
// done. Implementations must not keep state between calls: many jobs and
// many reviewers share one Context concurrently.
type Reviewer interface {
	Name() string
	Review(ctx context.Context, job domain.ReviewJob, rc *Context) error
}

// ReviewerFunc adapts a function into a Reviewer.
type ReviewerFunc struct {
	ReviewerName string
	Fn           func(ctx context.Context, job domain.ReviewJob, rc *Context) error
}

func (f ReviewerFunc) Name() string {
	return f.ReviewerName
}

func (f ReviewerFunc) Review(ctx context.Context, job domain.ReviewJob, rc *Context) error {
	return f.Fn(ctx, job, rc)
}
