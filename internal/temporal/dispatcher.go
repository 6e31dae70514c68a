package temporal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"content-review-orchestrator/internal/domain"
	"content-review-orchestrator/internal/review"
)

var _ review.AutoReviewDispatcher = (*Dispatcher)(nil)

// Dispatcher starts AutoReviewWorkflow for a job. The workflow id is derived
// from the job id, so a second dispatch while a run is in flight is a no-op.
type Dispatcher struct {
	client    client.Client
	taskQueue string
	idPrefix  string
	logger    *slog.Logger
}

func NewDispatcher(c client.Client, taskQueue, idPrefix string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{client: c, taskQueue: taskQueue, idPrefix: idPrefix, logger: logger}
}

func (d *Dispatcher) WorkflowID(jobID string) string {
	return fmt.Sprintf("%s-%s", d.idPrefix, jobID)
}

func (d *Dispatcher) DispatchAutoReview(ctx context.Context, job domain.ReviewJob) error {
	workflowID := d.WorkflowID(job.ID)
	run, err := d.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                                       workflowID,
		TaskQueue:                                d.taskQueue,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, AutoReviewWorkflowName, AutoReviewInput{JobID: job.ID})

	var started *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &started) {
		d.logger.InfoContext(ctx, "automated review already running", "job_id", job.ID, "workflow_id", workflowID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("start %s for job %s: %w", AutoReviewWorkflowName, job.ID, err)
	}

	d.logger.InfoContext(ctx, "automated review started", "job_id", job.ID, "workflow_id", workflowID, "run_id", run.GetRunID())
	return nil
}
