package review

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"content-review-orchestrator/internal/domain"
)

var _ = Describe("Review task coordinator", func() {
	var (
		ctx         context.Context
		store       *fakeStore
		listener    *recordingListener
		coordinator *Coordinator
		tasks       []domain.ReviewTask
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = newFakeStore()
		listener = &recordingListener{}
		coordinator = newTestCoordinator(store, listener)
		seedJob(store, "job-1")

		var err error
		tasks, err = coordinator.CreateTasksForReviewers(ctx, "job-1", []string{"alice", "bob"})
		Expect(err).ToNot(HaveOccurred())
		Expect(tasks).To(HaveLen(2))
	})

	jobStatus := func() domain.JobStatus {
		job, err := coordinator.GetJob(ctx, "job-1")
		Expect(err).ToNot(HaveOccurred())
		return job.Status
	}

	It("approves the job once every reviewer approves and signals exactly once", func() {
		By("the first approval leaving the job pending")
		_, err := coordinator.SubmitFeedback(ctx, tasks[0].ID, "alice", approve("clean"))
		Expect(err).ToNot(HaveOccurred())
		Expect(jobStatus()).To(Equal(domain.JobStatusPending))
		Expect(listener.recorded()).To(BeEmpty())

		By("the second approval converging the job")
		_, err = coordinator.SubmitFeedback(ctx, tasks[1].ID, "bob", approve("clean"))
		Expect(err).ToNot(HaveOccurred())
		Expect(jobStatus()).To(Equal(domain.JobStatusApproved))

		changes := listener.recorded()
		Expect(changes).To(HaveLen(1))
		Expect(changes[0].Previous).To(Equal(domain.JobStatusPending))
		Expect(changes[0].Next).To(Equal(domain.JobStatusApproved))
		Expect(changes[0].Job.ID).To(Equal("job-1"))

		By("re-running aggregation without emitting a second signal")
		_, err = coordinator.RecomputeJobStatus(ctx, "job-1")
		Expect(err).ToNot(HaveOccurred())
		Expect(listener.recorded()).To(HaveLen(1))
	})

	It("rejects the job on the first rejection without waiting for other reviewers", func() {
		_, err := coordinator.SubmitFeedback(ctx, tasks[0].ID, "alice", reject("hate speech in paragraph 2"))
		Expect(err).ToNot(HaveOccurred())
		Expect(jobStatus()).To(Equal(domain.JobStatusRejected))

		pending, err := coordinator.GetTask(ctx, tasks[1].ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(pending.Status).To(Equal(domain.TaskStatusPending))
	})

	It("treats NEEDS_REVISION as a rejection", func() {
		_, err := coordinator.SubmitFeedback(ctx, tasks[1].ID, "bob", domain.ReviewFeedback{
			Verdict: domain.VerdictNeedsRevision,
			Entries: []domain.FeedbackEntry{{Category: "style", Severity: domain.SeverityWarning, Message: "title is all caps"}},
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(jobStatus()).To(Equal(domain.JobStatusRejected))
	})

	It("refuses to claim a task that already has a reviewer", func() {
		_, err := coordinator.ClaimTask(ctx, tasks[0].ID, "carol")
		Expect(err).To(MatchError(domain.ErrPrecondition))
		Expect(err.Error()).To(ContainSubstring(tasks[0].ID))

		task, err := coordinator.GetTask(ctx, tasks[0].ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(task.ReviewerID).To(Equal("alice"))
	})

	It("refuses feedback on a job that is already approved and leaves the task unchanged", func() {
		store.setJobStatus("job-1", domain.JobStatusApproved)
		before, err := coordinator.GetTask(ctx, tasks[0].ID)
		Expect(err).ToNot(HaveOccurred())

		_, err = coordinator.SubmitFeedback(ctx, tasks[0].ID, "alice", reject("too late"))
		Expect(err).To(MatchError(domain.ErrJobTerminal))
		Expect(err.Error()).To(ContainSubstring("job-1"))

		after, err := coordinator.GetTask(ctx, tasks[0].ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(after).To(Equal(before))
	})

	It("accepts no new work once the job is terminal", func() {
		_, err := coordinator.SubmitFeedback(ctx, tasks[0].ID, "alice", reject("spam"))
		Expect(err).ToNot(HaveOccurred())

		_, err = coordinator.CreateTask(ctx, "job-1", "carol")
		Expect(err).To(MatchError(domain.ErrJobTerminal))
		_, err = coordinator.SubmitFeedback(ctx, tasks[1].ID, "bob", approve("fine"))
		Expect(err).To(MatchError(domain.ErrJobTerminal))
	})

	It("approves a single-reviewer job iff the verdict is approved", func() {
		seedJob(store, "job-2")
		single, err := coordinator.CreateTask(ctx, "job-2", "dave")
		Expect(err).ToNot(HaveOccurred())

		_, err = coordinator.SubmitFeedback(ctx, single.ID, "dave", approve("ok"))
		Expect(err).ToNot(HaveOccurred())
		job, err := coordinator.GetJob(ctx, "job-2")
		Expect(err).ToNot(HaveOccurred())
		Expect(job.Status).To(Equal(domain.JobStatusApproved))
	})
})
