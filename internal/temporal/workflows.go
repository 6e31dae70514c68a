package temporal

import (
	"go.temporal.io/sdk/workflow"

	"content-review-orchestrator/internal/domain"
)

const AutoReviewWorkflowName = "AutoReviewWorkflow"

type AutoReviewInput struct {
	JobID string
}

type AutoReviewResult struct {
	JobID     string
	Skipped   bool
	Approved  bool
	Reason    string
	JobStatus domain.JobStatus
}

// AutoReviewWorkflow evaluates a job with every automated reviewer and
// records the decision as the automated reviewer's verdict. Evaluation and
// recording are separate activities so a failed write retries without
// re-running the reviewers.
func AutoReviewWorkflow(ctx workflow.Context, input AutoReviewInput) (AutoReviewResult, error) {
	logger := workflow.GetLogger(ctx)

	var evaluated EvaluateOutput
	if err := workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicyEvaluateAutoReview), (*Activities).EvaluateAutoReviewActivity, EvaluateInput{
		JobID: input.JobID,
	}).Get(ctx, &evaluated); err != nil {
		return AutoReviewResult{}, err
	}
	if evaluated.Skipped {
		logger.Info("job already closed; automated review skipped", "job_id", input.JobID, "status", evaluated.JobStatus)
		return AutoReviewResult{JobID: input.JobID, Skipped: true, JobStatus: evaluated.JobStatus}, nil
	}

	var recorded RecordOutput
	if err := workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicyRecordAutoReview), (*Activities).RecordAutoReviewActivity, RecordInput{
		JobID:    input.JobID,
		Decision: evaluated.Decision,
	}).Get(ctx, &recorded); err != nil {
		return AutoReviewResult{}, err
	}

	return AutoReviewResult{
		JobID:     input.JobID,
		Approved:  evaluated.Decision.Approved,
		Reason:    evaluated.Decision.Reason,
		JobStatus: recorded.JobStatus,
	}, nil
}
