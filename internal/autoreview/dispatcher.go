package autoreview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"content-review-orchestrator/internal/domain"
	"content-review-orchestrator/internal/review"
)

// VerdictSink accepts the job-level verdict; *review.Coordinator satisfies it.
type VerdictSink interface {
	MakeReview(ctx context.Context, jobID, reviewerID string, accepted bool, reason string, entries ...domain.FeedbackEntry) (domain.ReviewTask, error)
}

// Runner evaluates a job with the orchestrator and feeds the decision back
// as the automated reviewer's verdict.
type Runner struct {
	orchestrator *Orchestrator
	content      review.ContentProvider
	sink         VerdictSink
	logger       *slog.Logger
}

func NewRunner(orchestrator *Orchestrator, content review.ContentProvider, sink VerdictSink, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{orchestrator: orchestrator, content: content, sink: sink, logger: logger}
}

// Evaluate loads the content snapshot and runs every reviewer. A content
// lookup failure is returned so the caller can retry; it is not a verdict.
func (r *Runner) Evaluate(ctx context.Context, job domain.ReviewJob) (Decision, error) {
	detail, err := r.content.ContentDetail(ctx, job.Content)
	if err != nil {
		return Decision{}, fmt.Errorf("load content %s for job %s: %w", job.Content, job.ID, err)
	}
	return r.orchestrator.Run(ctx, job, detail), nil
}

// Apply records the decision. A job that already reached a terminal status
// (for example a human rejected it first) is not an error.
func (r *Runner) Apply(ctx context.Context, jobID string, decision Decision) error {
	_, err := r.sink.MakeReview(ctx, jobID, domain.AutoReviewerID, decision.Approved, decision.Reason, decision.Entries...)
	if errors.Is(err, domain.ErrJobTerminal) {
		r.logger.InfoContext(ctx, "automated verdict arrived after job closed", "job_id", jobID, "approved", decision.Approved)
		return nil
	}
	if err != nil {
		return fmt.Errorf("record automated verdict for job %s: %w", jobID, err)
	}
	return nil
}

// DispatchAutoReview runs the review synchronously in the caller's goroutine.
func (r *Runner) DispatchAutoReview(ctx context.Context, job domain.ReviewJob) error {
	decision, err := r.Evaluate(ctx, job)
	if err != nil {
		return err
	}
	return r.Apply(ctx, job.ID, decision)
}
