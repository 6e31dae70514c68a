package temporal

import (
	"context"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/testsuite"

	"content-review-orchestrator/internal/domain"
	"content-review-orchestrator/internal/review"
)

type activityTrace struct {
	mu sync.Mutex

	startedOrder   []string
	completedOrder []string
	evaluateOut    *EvaluateOutput
}

func (t *activityTrace) recordStarted(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startedOrder = append(t.startedOrder, name)
}

func (t *activityTrace) recordCompleted(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completedOrder = append(t.completedOrder, name)
}

var _ = Describe("AutoReviewWorkflow blackbox", func() {
	var (
		ctx   context.Context
		suite testsuite.WorkflowTestSuite
		trace *activityTrace
	)

	BeforeEach(func() {
		ctx = context.Background()
		trace = &activityTrace{}
	})

	traced := func(h *harness) *testsuite.TestWorkflowEnvironment {
		env := h.env(&suite)
		env.SetOnActivityStartedListener(func(info *activity.Info, _ context.Context, _ converter.EncodedValues) {
			trace.recordStarted(info.ActivityType.Name)
		})
		env.SetOnActivityCompletedListener(func(info *activity.Info, result converter.EncodedValue, err error) {
			trace.recordCompleted(info.ActivityType.Name)
			if info.ActivityType.Name == "EvaluateAutoReviewActivity" && err == nil {
				var out EvaluateOutput
				Expect(result.Get(&out)).To(Succeed())
				trace.mu.Lock()
				trace.evaluateOut = &out
				trace.mu.Unlock()
			}
		})
		return env
	}

	It("evaluates then records, and the human reviewer still decides the job", func() {
		h := newHarness(approving("keyword"), approving("links"))
		h.creator = review.NewJobCreator(h.coordinator, h.store, review.NewStaticPool([]string{"alice"}), nil,
			review.UUIDGenerator{}, review.JobCreatorConfig{HumanReviewers: 1}, nil)
		job, err := h.createJob(ctx, testContent.Ref)
		Expect(err).ToNot(HaveOccurred())

		env := traced(h)
		env.ExecuteWorkflow(AutoReviewWorkflow, AutoReviewInput{JobID: job.ID})
		Expect(env.IsWorkflowCompleted()).To(BeTrue())
		Expect(env.GetWorkflowError()).ToNot(HaveOccurred())

		Expect(trace.startedOrder).To(Equal([]string{"EvaluateAutoReviewActivity", "RecordAutoReviewActivity"}))
		Expect(trace.completedOrder).To(Equal(trace.startedOrder))
		Expect(trace.evaluateOut).ToNot(BeNil())
		Expect(trace.evaluateOut.Decision.Outcomes).To(HaveLen(2))

		var result AutoReviewResult
		Expect(env.GetWorkflowResult(&result)).To(Succeed())
		Expect(result.Approved).To(BeTrue())
		Expect(result.JobStatus).To(Equal(domain.JobStatusPending))

		tasks, err := h.coordinator.TasksForReviewer(ctx, "alice")
		Expect(err).ToNot(HaveOccurred())
		Expect(tasks).To(HaveLen(1))
		_, err = h.coordinator.SubmitFeedback(ctx, tasks[0].ID, "alice", domain.ReviewFeedback{Verdict: domain.VerdictApproved, Summary: "fine"})
		Expect(err).ToNot(HaveOccurred())

		stored, err := h.coordinator.GetJob(ctx, job.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(stored.Status).To(Equal(domain.JobStatusApproved))
	})

	It("does not record a verdict once a human has rejected the job", func() {
		h := newHarness(approving("keyword"))
		h.creator = review.NewJobCreator(h.coordinator, h.store, review.NewStaticPool([]string{"bob"}), nil,
			review.UUIDGenerator{}, review.JobCreatorConfig{HumanReviewers: 1}, nil)
		job, err := h.createJob(ctx, testContent.Ref)
		Expect(err).ToNot(HaveOccurred())

		tasks, err := h.coordinator.TasksForReviewer(ctx, "bob")
		Expect(err).ToNot(HaveOccurred())
		_, err = h.coordinator.SubmitFeedback(ctx, tasks[0].ID, "bob", domain.ReviewFeedback{Verdict: domain.VerdictRejected, Summary: "off topic"})
		Expect(err).ToNot(HaveOccurred())

		env := traced(h)
		env.ExecuteWorkflow(AutoReviewWorkflow, AutoReviewInput{JobID: job.ID})
		Expect(env.GetWorkflowError()).ToNot(HaveOccurred())
		Expect(trace.startedOrder).To(Equal([]string{"EvaluateAutoReviewActivity"}))

		var result AutoReviewResult
		Expect(env.GetWorkflowResult(&result)).To(Succeed())
		Expect(result.Skipped).To(BeTrue())
		Expect(result.JobStatus).To(Equal(domain.JobStatusRejected))
	})
})
