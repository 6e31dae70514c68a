package temporal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"

	"content-review-orchestrator/internal/domain"
)

func TestDispatcher_StartsWorkflowPerJob(t *testing.T) {
	c := &mocks.Client{}
	run := &mocks.WorkflowRun{}
	run.On("GetRunID").Return("run-1")

	c.On("ExecuteWorkflow", mock.Anything, mock.MatchedBy(func(opts client.StartWorkflowOptions) bool {
		return opts.ID == "auto-review-job-1" && opts.TaskQueue == "review" && opts.WorkflowExecutionErrorWhenAlreadyStarted
	}), AutoReviewWorkflowName, AutoReviewInput{JobID: "job-1"}).Return(run, nil).Once()

	d := NewDispatcher(c, "review", "auto-review", nil)
	require.NoError(t, d.DispatchAutoReview(context.Background(), domain.ReviewJob{ID: "job-1"}))
	c.AssertExpectations(t)
}

func TestDispatcher_AlreadyRunningIsNotAnError(t *testing.T) {
	c := &mocks.Client{}
	c.On("ExecuteWorkflow", mock.Anything, mock.Anything, AutoReviewWorkflowName, mock.Anything).
		Return(nil, serviceerror.NewWorkflowExecutionAlreadyStarted("already started", "", "run-0"))

	d := NewDispatcher(c, "review", "auto-review", nil)
	require.NoError(t, d.DispatchAutoReview(context.Background(), domain.ReviewJob{ID: "job-1"}))
}

func TestDispatcher_StartFailure(t *testing.T) {
	c := &mocks.Client{}
	c.On("ExecuteWorkflow", mock.Anything, mock.Anything, AutoReviewWorkflowName, mock.Anything).
		Return(nil, errors.New("frontend unavailable"))

	d := NewDispatcher(c, "review", "auto-review", nil)
	err := d.DispatchAutoReview(context.Background(), domain.ReviewJob{ID: "job-1"})
	require.ErrorContains(t, err, "job-1")
	require.ErrorContains(t, err, "frontend unavailable")
}
