package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"content-review-orchestrator/internal/domain"
)

// CreatedJob is what the creator hands back to the publishing flow.
type CreatedJob struct {
	Job   domain.ReviewJob    `json:"job"`
	Tasks []domain.ReviewTask `json:"tasks"`
}

// JobCreator is the entry point the publishing flow calls for new content.
type JobCreator struct {
	coordinator    *Coordinator
	jobs           JobStore
	allocator      ReviewerAllocator
	dispatcher     AutoReviewDispatcher
	ids            IDGenerator
	humanReviewers int
	logger         *slog.Logger
	now            func() time.Time
}

type JobCreatorConfig struct {
	// HumanReviewers is how many human tasks to open per job when the
	// allocator can supply them.
	HumanReviewers int
}

func NewJobCreator(coordinator *Coordinator, jobs JobStore, allocator ReviewerAllocator, dispatcher AutoReviewDispatcher, ids IDGenerator, cfg JobCreatorConfig, logger *slog.Logger) *JobCreator {
	if logger == nil {
		logger = slog.Default()
	}
	if ids == nil {
		ids = UUIDGenerator{}
	}
	if cfg.HumanReviewers < 0 {
		cfg.HumanReviewers = 0
	}
	return &JobCreator{
		coordinator:    coordinator,
		jobs:           jobs,
		allocator:      allocator,
		dispatcher:     dispatcher,
		ids:            ids,
		humanReviewers: cfg.HumanReviewers,
		logger:         logger,
		now:            time.Now,
	}
}

// CreateJob opens a PENDING review job for content, fans it out to the
// allocated human reviewers plus the automated reviewer, and dispatches
// automated review. Allocation and dispatch failures are logged; the job is
// still returned.
func (c *JobCreator) CreateJob(ctx context.Context, content domain.ContentRef, mark domain.ReviewMark) (CreatedJob, error) {
	content.ID = strings.TrimSpace(content.ID)
	content.Type = strings.TrimSpace(content.Type)
	if content.ID == "" || content.Type == "" {
		return CreatedJob{}, &domain.PreconditionError{Op: "create job", Reason: "content id and content type are required"}
	}
	if mark == "" {
		mark = domain.ReviewMarkNormal
	}

	existing, err := c.jobs.FindJobsByContent(ctx, content)
	if err != nil {
		return CreatedJob{}, fmt.Errorf("find jobs for %s: %w", content, err)
	}
	for _, job := range existing {
		if job.Status == domain.JobStatusPending {
			return CreatedJob{}, fmt.Errorf("%w: %s has pending job %s", domain.ErrJobAlreadyPending, content, job.ID)
		}
	}

	now := c.now()
	job, err := c.jobs.SaveJob(ctx, domain.ReviewJob{
		ID:         c.ids.NewID(),
		Content:    content,
		Status:     domain.JobStatusPending,
		Mark:       mark,
		CreateTime: now,
		UpdateTime: now,
	})
	if err != nil {
		return CreatedJob{}, fmt.Errorf("save job for %s: %w", content, err)
	}
	c.logger.InfoContext(ctx, "review job created", "job_id", job.ID, "content", content.String(), "mark", mark)

	reviewers := append(c.allocateHumans(ctx, job), domain.AutoReviewerID)
	tasks, err := c.coordinator.CreateTasksForReviewers(ctx, job.ID, reviewers)
	if err != nil {
		return CreatedJob{Job: job, Tasks: tasks}, fmt.Errorf("fan out job %s: %w", job.ID, err)
	}

	c.dispatch(ctx, job)

	// Inline dispatch may already have moved the job.
	if fresh, err := c.jobs.FindJob(ctx, job.ID); err == nil {
		job = fresh
	}
	return CreatedJob{Job: job, Tasks: tasks}, nil
}

// RetriggerAutoReview dispatches automated review again for a PENDING job.
// Unlike CreateJob, a dispatch failure is returned.
func (c *JobCreator) RetriggerAutoReview(ctx context.Context, jobID string) error {
	job, err := c.jobs.FindJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return domain.JobTerminal("retrigger auto review", job)
	}
	if c.dispatcher == nil {
		return &domain.PreconditionError{Op: "retrigger auto review", JobID: jobID, Reason: "no auto review dispatcher configured"}
	}
	if err := c.dispatcher.DispatchAutoReview(ctx, job); err != nil {
		return fmt.Errorf("dispatch auto review for job %s: %w", jobID, err)
	}
	return nil
}

// ReallocateReviewer asks the allocator for a replacement human reviewer and
// opens a task for them, e.g. after a task was returned.
func (c *JobCreator) ReallocateReviewer(ctx context.Context, jobID string) (domain.ReviewTask, error) {
	job, err := c.jobs.FindJob(ctx, jobID)
	if err != nil {
		return domain.ReviewTask{}, err
	}
	if job.Status.Terminal() {
		return domain.ReviewTask{}, domain.JobTerminal("reallocate reviewer", job)
	}
	if c.allocator == nil {
		return domain.ReviewTask{}, &domain.PreconditionError{Op: "reallocate reviewer", JobID: jobID, Reason: "no reviewer allocator configured"}
	}
	reviewerID, err := c.allocator.AllocateReviewer(ctx, job.Content, true)
	if err != nil {
		return domain.ReviewTask{}, fmt.Errorf("allocate reviewer for job %s: %w", jobID, err)
	}
	if reviewerID == "" || reviewerID == domain.AutoReviewerID {
		return domain.ReviewTask{}, &domain.PreconditionError{Op: "reallocate reviewer", JobID: jobID, Reason: "no human reviewer available"}
	}
	return c.coordinator.CreateTask(ctx, jobID, reviewerID)
}

func (c *JobCreator) allocateHumans(ctx context.Context, job domain.ReviewJob) []string {
	if c.allocator == nil {
		return nil
	}
	var reviewers []string
	for i := 0; i < c.humanReviewers; i++ {
		reviewerID, err := c.allocator.AllocateReviewer(ctx, job.Content, false)
		if err != nil {
			c.logger.WarnContext(ctx, "reviewer allocation failed; continuing with automated review",
				"job_id", job.ID, "content", job.Content.String(), "allocated", len(reviewers), "error", err)
			break
		}
		if reviewerID == "" || reviewerID == domain.AutoReviewerID {
			c.logger.InfoContext(ctx, "no human reviewer available", "job_id", job.ID, "allocated", len(reviewers))
			break
		}
		reviewers = append(reviewers, reviewerID)
	}
	return reviewers
}

func (c *JobCreator) dispatch(ctx context.Context, job domain.ReviewJob) {
	if c.dispatcher == nil {
		c.logger.WarnContext(ctx, "no auto review dispatcher configured", "job_id", job.ID)
		return
	}
	if err := c.dispatcher.DispatchAutoReview(ctx, job); err != nil {
		c.logger.ErrorContext(ctx, "auto review dispatch failed", "job_id", job.ID, "error", err)
	}
}
