package temporal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"content-review-orchestrator/internal/autoreview"
	"content-review-orchestrator/internal/domain"
	"content-review-orchestrator/internal/review"
	"content-review-orchestrator/internal/storage"
)

var testContent = domain.ContentDetail{
	Ref:   domain.ContentRef{ID: "post-1", Type: "article"},
	Title: "Weekly notes",
	Body:  "<p>Release notes for the week.</p>",
}

// harness wires the real engine over an in-memory store. Jobs are created
// without a dispatcher so each test drives the workflow itself.
type harness struct {
	store       *storage.MemoryStore
	coordinator *review.Coordinator
	creator     *review.JobCreator
	activities  *Activities
}

func newHarness(reviewers ...autoreview.Reviewer) *harness {
	store := storage.NewMemoryStore()
	store.PutContent(testContent)
	coordinator := review.NewCoordinator(store, store, review.UUIDGenerator{}, nil, nil)
	creator := review.NewJobCreator(coordinator, store, review.NewStaticPool(nil), nil, review.UUIDGenerator{},
		review.JobCreatorConfig{HumanReviewers: 1}, nil)
	runner := autoreview.NewRunner(autoreview.NewOrchestrator(reviewers, autoreview.Options{}, nil), store, coordinator, nil)
	return &harness{
		store:       store,
		coordinator: coordinator,
		creator:     creator,
		activities:  &Activities{Jobs: coordinator, Runner: runner},
	}
}

func (h *harness) createJob(ctx context.Context, ref domain.ContentRef) (domain.ReviewJob, error) {
	created, err := h.creator.CreateJob(ctx, ref, domain.ReviewMarkNormal)
	return created.Job, err
}

func (h *harness) env(suite *testsuite.WorkflowTestSuite) *testsuite.TestWorkflowEnvironment {
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(AutoReviewWorkflow)
	env.RegisterActivity(h.activities)
	return env
}

func approving(name string) autoreview.Reviewer {
	return autoreview.ReviewerFunc{ReviewerName: name, Fn: func(_ context.Context, _ domain.ReviewJob, rc *autoreview.Context) error {
		rc.Approve(name, "")
		return nil
	}}
}

func rejecting(name, reason string) autoreview.Reviewer {
	return autoreview.ReviewerFunc{ReviewerName: name, Fn: func(_ context.Context, _ domain.ReviewJob, rc *autoreview.Context) error {
		rc.Reject(name, reason)
		return nil
	}}
}

func mustCreateJob(t *testing.T, h *harness) domain.ReviewJob {
	t.Helper()
	job, err := h.createJob(context.Background(), testContent.Ref)
	require.NoError(t, err)
	require.Equal(t, domain.JobStatusPending, job.Status)
	return job
}
