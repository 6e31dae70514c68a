package autoreview_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"content-review-orchestrator/internal/autoreview"
	"content-review-orchestrator/internal/domain"
	"content-review-orchestrator/internal/review"
	"content-review-orchestrator/internal/storage"
)

var _ = Describe("Automated review end to end", func() {
	var (
		ctx         context.Context
		store       *storage.MemoryStore
		coordinator *review.Coordinator
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = storage.NewMemoryStore()
		store.PutContent(scenarioContent)
		coordinator = review.NewCoordinator(store, store, review.UUIDGenerator{}, nil, nil)
	})

	createJob := func(orch *autoreview.Orchestrator, humans ...string) review.CreatedJob {
		runner := autoreview.NewRunner(orch, store, coordinator, nil)
		allocator := review.NewStaticPool(humans)
		creator := review.NewJobCreator(coordinator, store, allocator, runner, review.UUIDGenerator{},
			review.JobCreatorConfig{HumanReviewers: len(humans)}, nil)
		created, err := creator.CreateJob(ctx, scenarioContent.Ref, domain.ReviewMarkNormal)
		Expect(err).ToNot(HaveOccurred())
		return created
	}

	It("rejects the job when one reviewer approves and another fails", func() {
		r1 := scenarioReviewer("R1", func(_ context.Context, rc *autoreview.Context) error {
			time.Sleep(10 * time.Millisecond)
			rc.Approve("R1", "")
			return nil
		})
		r2 := scenarioReviewer("R2", func(context.Context, *autoreview.Context) error {
			return errors.New("classifier unavailable")
		})

		created := createJob(autoreview.NewOrchestrator([]autoreview.Reviewer{r1, r2}, autoreview.Options{}, nil))
		Expect(created.Job.Status).To(Equal(domain.JobStatusRejected))

		tasks, err := coordinator.TasksForJob(ctx, created.Job.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(tasks).To(HaveLen(1))
		Expect(tasks[0].ReviewerID).To(Equal(domain.AutoReviewerID))
		Expect(tasks[0].Status).To(Equal(domain.TaskStatusRejected))
		Expect(tasks[0].Feedback.Summary).To(ContainSubstring("R2"))
		Expect(tasks[0].Feedback.Summary).ToNot(ContainSubstring("R1"))
	})

	It("rejects the job when one reviewer times out and the rest approve", func() {
		release := make(chan struct{})
		DeferCleanup(func() { close(release) })

		quick := scenarioReviewer("quick", func(context.Context, *autoreview.Context) error { return nil })
		slow := scenarioReviewer("slow", func(context.Context, *autoreview.Context) error {
			<-release
			return nil
		})

		created := createJob(autoreview.NewOrchestrator([]autoreview.Reviewer{quick, slow}, autoreview.Options{Timeout: 30 * time.Millisecond}, nil))
		Expect(created.Job.Status).To(Equal(domain.JobStatusRejected))

		job, err := coordinator.GetJob(ctx, created.Job.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(job.Status).To(Equal(domain.JobStatusRejected))
	})

	It("keeps the job open for human reviewers after automated approval", func() {
		created := createJob(autoreview.NewOrchestrator([]autoreview.Reviewer{autoreview.LengthReviewer{RequireTitle: true, MinBody: 1}}, autoreview.Options{}, nil), "alice")
		Expect(created.Job.Status).To(Equal(domain.JobStatusPending))
		Expect(created.Tasks).To(HaveLen(2))

		var human domain.ReviewTask
		for _, t := range created.Tasks {
			if t.ReviewerID == "alice" {
				human = t
			}
		}
		_, err := coordinator.SubmitFeedback(ctx, human.ID, "alice", domain.ReviewFeedback{Verdict: domain.VerdictApproved})
		Expect(err).ToNot(HaveOccurred())

		job, err := coordinator.GetJob(ctx, created.Job.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(job.Status).To(Equal(domain.JobStatusApproved))
	})
})

var scenarioContent = domain.ContentDetail{
	Ref:   domain.ContentRef{ID: "post-7", Type: "article"},
	Title: "Weekly digest",
	Body:  "<p>Highlights from the week.</p>",
}

func scenarioReviewer(name string, fn func(ctx context.Context, rc *autoreview.Context) error) autoreview.Reviewer {
	return autoreview.ReviewerFunc{ReviewerName: name, Fn: func(ctx context.Context, _ domain.ReviewJob, rc *autoreview.Context) error {
		return fn(ctx, rc)
	}}
}
