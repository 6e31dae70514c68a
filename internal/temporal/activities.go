package temporal

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"content-review-orchestrator/internal/autoreview"
	"content-review-orchestrator/internal/domain"
)

// Missing jobs or content are not retried; the job stays PENDING until an
// operator re-dispatches it.
const (
	errTypeJobMissing     = "JobMissing"
	errTypeContentMissing = "ContentMissing"
)

type JobReader interface {
	GetJob(ctx context.Context, jobID string) (domain.ReviewJob, error)
}

// AutoReviewRunner is satisfied by *autoreview.Runner.
type AutoReviewRunner interface {
	Evaluate(ctx context.Context, job domain.ReviewJob) (autoreview.Decision, error)
	Apply(ctx context.Context, jobID string, decision autoreview.Decision) error
}

type Activities struct {
	Jobs   JobReader
	Runner AutoReviewRunner
}

type EvaluateInput struct {
	JobID string
}

type EvaluateOutput struct {
	// Skipped is set when the job was already terminal; Decision is empty then.
	Skipped   bool
	JobStatus domain.JobStatus
	Decision  autoreview.Decision
}

type RecordInput struct {
	JobID    string
	Decision autoreview.Decision
}

type RecordOutput struct {
	JobStatus domain.JobStatus
}

func (a *Activities) EvaluateAutoReviewActivity(ctx context.Context, input EvaluateInput) (EvaluateOutput, error) {
	job, err := a.Jobs.GetJob(ctx, input.JobID)
	if errors.Is(err, domain.ErrNotFound) {
		return EvaluateOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), errTypeJobMissing, err)
	}
	if err != nil {
		return EvaluateOutput{}, err
	}
	if job.Status.Terminal() {
		return EvaluateOutput{Skipped: true, JobStatus: job.Status}, nil
	}

	decision, err := a.Runner.Evaluate(ctx, job)
	if errors.Is(err, domain.ErrNotFound) {
		return EvaluateOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), errTypeContentMissing, err)
	}
	if err != nil {
		return EvaluateOutput{}, err
	}

	activity.GetLogger(ctx).Info("automated review evaluated",
		"job_id", job.ID,
		"approved", decision.Approved,
		"reviewers", len(decision.Outcomes),
	)
	return EvaluateOutput{JobStatus: job.Status, Decision: decision}, nil
}

func (a *Activities) RecordAutoReviewActivity(ctx context.Context, input RecordInput) (RecordOutput, error) {
	if err := a.Runner.Apply(ctx, input.JobID, input.Decision); err != nil {
		return RecordOutput{}, err
	}
	job, err := a.Jobs.GetJob(ctx, input.JobID)
	if err != nil {
		return RecordOutput{}, fmt.Errorf("reload job %s: %w", input.JobID, err)
	}
	return RecordOutput{JobStatus: job.Status}, nil
}
