package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"content-review-orchestrator/internal/domain"
)

// Coordinator is the façade every actor goes through: human reviewers,
// transports, and the automated review path. Each mutating call loads the
// task, checks the lifecycle precondition, persists, and (for verdicts)
// recomputes the job status.
type Coordinator struct {
	tasks      TaskStore
	jobs       JobStore
	ids        IDGenerator
	aggregator *Aggregator
	logger     *slog.Logger
	locks      *keyedMutex
	now        func() time.Time
}

func NewCoordinator(tasks TaskStore, jobs JobStore, ids IDGenerator, listener StateChangeListener, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if ids == nil {
		ids = UUIDGenerator{}
	}
	return &Coordinator{
		tasks:      tasks,
		jobs:       jobs,
		ids:        ids,
		aggregator: NewAggregator(tasks, jobs, listener, logger),
		logger:     logger,
		locks:      newKeyedMutex(),
		now:        time.Now,
	}
}

// setClock is used by tests to pin timestamps.
func (c *Coordinator) setClock(now func() time.Time) {
	c.now = now
	c.aggregator.now = now
}

func (c *Coordinator) GetJob(ctx context.Context, jobID string) (domain.ReviewJob, error) {
	return c.jobs.FindJob(ctx, jobID)
}

func (c *Coordinator) GetTask(ctx context.Context, taskID string) (domain.ReviewTask, error) {
	return c.tasks.FindTask(ctx, taskID)
}

func (c *Coordinator) TasksForJob(ctx context.Context, jobID string) ([]domain.ReviewTask, error) {
	if _, err := c.jobs.FindJob(ctx, jobID); err != nil {
		return nil, err
	}
	return c.tasks.FindTasksByJob(ctx, jobID)
}

func (c *Coordinator) TasksForReviewer(ctx context.Context, reviewerID string) ([]domain.ReviewTask, error) {
	return c.tasks.FindTasksByReviewer(ctx, reviewerID)
}

func (c *Coordinator) JobsForContent(ctx context.Context, content domain.ContentRef) ([]domain.ReviewJob, error) {
	return c.jobs.FindJobsByContent(ctx, content)
}

// CreateTask opens a PENDING task on a non-terminal job. An empty reviewerID
// leaves the task claimable.
func (c *Coordinator) CreateTask(ctx context.Context, jobID, reviewerID string) (domain.ReviewTask, error) {
	tasks, err := c.CreateTasksForReviewers(ctx, jobID, []string{reviewerID})
	if err != nil {
		return domain.ReviewTask{}, err
	}
	return tasks[0], nil
}

// CreateTasksForReviewers fans a job out to reviewers, one task each.
// A repeated reviewer id gets a single task. Each empty id opens its own
// unassigned task for a reviewer to claim.
func (c *Coordinator) CreateTasksForReviewers(ctx context.Context, jobID string, reviewerIDs []string) ([]domain.ReviewTask, error) {
	job, err := c.jobs.FindJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return nil, domain.JobTerminal("create task", job)
	}

	seen := make(map[string]struct{}, len(reviewerIDs))
	created := make([]domain.ReviewTask, 0, len(reviewerIDs))
	for _, reviewerID := range reviewerIDs {
		reviewerID = strings.TrimSpace(reviewerID)
		if _, dup := seen[reviewerID]; dup && reviewerID != "" {
			continue
		}
		seen[reviewerID] = struct{}{}

		task, err := c.tasks.SaveTask(ctx, NewTask(c.ids.NewID(), jobID, reviewerID, c.now()))
		if err != nil {
			return created, fmt.Errorf("create task for job %s reviewer %q: %w", jobID, reviewerID, err)
		}
		created = append(created, task)
	}
	return created, nil
}

func (c *Coordinator) ClaimTask(ctx context.Context, taskID, reviewerID string) (domain.ReviewTask, error) {
	unlock := c.locks.Lock(taskID)
	defer unlock()

	task, err := c.tasks.FindTask(ctx, taskID)
	if err != nil {
		return domain.ReviewTask{}, err
	}
	if err := rejectReserved(domain.TaskActionClaim, task, reviewerID); err != nil {
		return domain.ReviewTask{}, err
	}
	next, err := Claim(task, reviewerID, c.now())
	if err != nil {
		return domain.ReviewTask{}, err
	}
	return c.saveTransition(ctx, domain.TaskActionClaim, next)
}

// ReassignTask cancels the current task and returns its replacement.
func (c *Coordinator) ReassignTask(ctx context.Context, taskID, currentReviewerID, newReviewerID, reason string) (domain.ReviewTask, error) {
	unlock := c.locks.Lock(taskID)
	defer unlock()

	task, err := c.tasks.FindTask(ctx, taskID)
	if err != nil {
		return domain.ReviewTask{}, err
	}
	if err := rejectReserved(domain.TaskActionReassign, task, currentReviewerID, newReviewerID); err != nil {
		return domain.ReviewTask{}, err
	}
	canceled, created, err := Reassign(task, currentReviewerID, newReviewerID, reason, c.ids.NewID(), c.now())
	if err != nil {
		return domain.ReviewTask{}, err
	}
	if err := c.requireOpenJob(ctx, domain.TaskActionReassign, task); err != nil {
		return domain.ReviewTask{}, err
	}

	// Replacement first, then cancel: the slot never goes without a PENDING
	// task.
	saved, err := c.tasks.SaveTask(ctx, created)
	if err != nil {
		return domain.ReviewTask{}, fmt.Errorf("create replacement for task %s: %w", taskID, err)
	}
	if _, err := c.saveTransition(ctx, domain.TaskActionReassign, canceled); err != nil {
		withdrawn := cancelTask(saved, fmt.Sprintf("reassignment of task %s aborted", taskID), c.now())
		if _, undoErr := c.tasks.SaveTask(ctx, withdrawn); undoErr != nil {
			c.logger.ErrorContext(ctx, "replacement task left open after failed reassignment",
				"task_id", taskID, "replacement_id", saved.ID, "job_id", task.ReviewJobID, "error", undoErr)
		}
		return domain.ReviewTask{}, err
	}
	return saved, nil
}

func (c *Coordinator) ReturnTask(ctx context.Context, taskID, reviewerID, reason string) (domain.ReviewTask, error) {
	unlock := c.locks.Lock(taskID)
	defer unlock()

	task, err := c.tasks.FindTask(ctx, taskID)
	if err != nil {
		return domain.ReviewTask{}, err
	}
	if err := rejectReserved(domain.TaskActionReturn, task, reviewerID); err != nil {
		return domain.ReviewTask{}, err
	}
	next, err := Return(task, reviewerID, reason, c.now())
	if err != nil {
		return domain.ReviewTask{}, err
	}
	return c.saveTransition(ctx, domain.TaskActionReturn, next)
}

// SubmitFeedback applies a reviewer's verdict and recomputes the job status.
// A job that is already terminal rejects new verdicts; appeals need a new job.
// The automated reviewer's verdict enters through MakeReview only.
func (c *Coordinator) SubmitFeedback(ctx context.Context, taskID, reviewerID string, feedback domain.ReviewFeedback) (domain.ReviewTask, error) {
	return c.submitAndRecompute(ctx, taskID, reviewerID, feedback, false)
}

func (c *Coordinator) submitAndRecompute(ctx context.Context, taskID, reviewerID string, feedback domain.ReviewFeedback, automated bool) (domain.ReviewTask, error) {
	saved, err := c.submit(ctx, taskID, reviewerID, feedback, automated)
	if err != nil {
		return domain.ReviewTask{}, err
	}
	if _, _, err := c.aggregator.Recompute(ctx, saved.ReviewJobID); err != nil {
		return saved, fmt.Errorf("recompute job %s after task %s: %w", saved.ReviewJobID, taskID, err)
	}
	return saved, nil
}

func (c *Coordinator) submit(ctx context.Context, taskID, reviewerID string, feedback domain.ReviewFeedback, automated bool) (domain.ReviewTask, error) {
	unlock := c.locks.Lock(taskID)
	defer unlock()

	task, err := c.tasks.FindTask(ctx, taskID)
	if err != nil {
		return domain.ReviewTask{}, err
	}
	if !automated {
		if err := rejectReserved(domain.TaskActionSubmit, task, reviewerID); err != nil {
			return domain.ReviewTask{}, err
		}
	}
	if err := CheckAction(task, reviewerID, domain.TaskActionSubmit); err != nil {
		return domain.ReviewTask{}, err
	}
	if err := c.requireOpenJob(ctx, domain.TaskActionSubmit, task); err != nil {
		return domain.ReviewTask{}, err
	}
	next, err := SubmitFeedback(task, reviewerID, feedback, c.now())
	if err != nil {
		return domain.ReviewTask{}, err
	}
	return c.saveTransition(ctx, domain.TaskActionSubmit, next)
}

// MakeReview records a job-level verdict from reviewerID, typically the
// automated reviewer. It submits on the reviewer's open task, opening one
// first if the job has none for that reviewer.
func (c *Coordinator) MakeReview(ctx context.Context, jobID, reviewerID string, accepted bool, reason string, entries ...domain.FeedbackEntry) (domain.ReviewTask, error) {
	job, err := c.jobs.FindJob(ctx, jobID)
	if err != nil {
		return domain.ReviewTask{}, err
	}
	if job.Status.Terminal() {
		return domain.ReviewTask{}, domain.JobTerminal("make review", job)
	}

	tasks, err := c.tasks.FindTasksByJob(ctx, jobID)
	if err != nil {
		return domain.ReviewTask{}, fmt.Errorf("load tasks for job %s: %w", jobID, err)
	}
	var target *domain.ReviewTask
	for i := range tasks {
		if tasks[i].ReviewerID == reviewerID && tasks[i].Status == domain.TaskStatusPending {
			target = &tasks[i]
			break
		}
	}
	if target == nil {
		created, err := c.CreateTask(ctx, jobID, reviewerID)
		if err != nil {
			return domain.ReviewTask{}, err
		}
		target = &created
	}

	feedback := domain.ReviewFeedback{Verdict: domain.VerdictApproved, Summary: domain.TruncateSummary(reason), Entries: entries}
	if !accepted {
		feedback.Verdict = domain.VerdictRejected
		if strings.TrimSpace(reason) == "" {
			feedback.Summary = "rejected by " + reviewerID
		}
	}
	return c.submitAndRecompute(ctx, target.ID, reviewerID, feedback, true)
}

// CheckAction is the read-only pre-flight for a reviewer action. It returns
// nil when the action would pass every precondition at this moment.
func (c *Coordinator) CheckAction(ctx context.Context, taskID, reviewerID string, action domain.TaskAction) error {
	task, err := c.tasks.FindTask(ctx, taskID)
	if err != nil {
		return err
	}
	if err := rejectReserved(action, task, reviewerID); err != nil {
		return err
	}
	if err := CheckAction(task, reviewerID, action); err != nil {
		return err
	}
	if action == domain.TaskActionSubmit || action == domain.TaskActionReassign {
		return c.requireOpenJob(ctx, action, task)
	}
	return nil
}

func (c *Coordinator) CanPerformAction(ctx context.Context, taskID, reviewerID string, action domain.TaskAction) (bool, error) {
	err := c.CheckAction(ctx, taskID, reviewerID, action)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrPrecondition):
		return false, nil
	default:
		return false, err
	}
}

// CancelJob withdraws a job: open tasks are canceled and the job becomes
// CANCELED.
func (c *Coordinator) CancelJob(ctx context.Context, jobID, reason string) (domain.ReviewJob, error) {
	job, err := c.jobs.FindJob(ctx, jobID)
	if err != nil {
		return domain.ReviewJob{}, err
	}
	if job.Status.Terminal() {
		return domain.ReviewJob{}, domain.JobTerminal("cancel", job)
	}

	tasks, err := c.tasks.FindTasksByJob(ctx, jobID)
	if err != nil {
		return domain.ReviewJob{}, fmt.Errorf("load tasks for job %s: %w", jobID, err)
	}
	summary := "job canceled"
	if reason = strings.TrimSpace(reason); reason != "" {
		summary += ": " + reason
	}
	for _, t := range tasks {
		if t.Status != domain.TaskStatusPending {
			continue
		}
		if err := c.cancelOpenTask(ctx, t.ID, summary); err != nil {
			return domain.ReviewJob{}, err
		}
	}
	return c.aggregator.Cancel(ctx, jobID)
}

// RecomputeJobStatus re-runs aggregation for a job. It is safe to call any
// number of times.
func (c *Coordinator) RecomputeJobStatus(ctx context.Context, jobID string) (domain.ReviewJob, error) {
	job, _, err := c.aggregator.Recompute(ctx, jobID)
	return job, err
}

func (c *Coordinator) cancelOpenTask(ctx context.Context, taskID, summary string) error {
	unlock := c.locks.Lock(taskID)
	defer unlock()

	task, err := c.tasks.FindTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.Status != domain.TaskStatusPending {
		return nil
	}
	_, err = c.saveTransition(ctx, "cancel", cancelTask(task, summary, c.now()))
	return err
}

func (c *Coordinator) requireOpenJob(ctx context.Context, action domain.TaskAction, task domain.ReviewTask) error {
	job, err := c.jobs.FindJob(ctx, task.ReviewJobID)
	if err != nil {
		return fmt.Errorf("load job for task %s: %w", task.ID, err)
	}
	if job.Status.Terminal() {
		return &domain.PreconditionError{
			Op:       string(action),
			TaskID:   task.ID,
			JobID:    job.ID,
			Reason:   fmt.Sprintf("job already %s; open a new job to appeal", job.Status),
			Terminal: true,
		}
	}
	return nil
}

func (c *Coordinator) saveTransition(ctx context.Context, action domain.TaskAction, task domain.ReviewTask) (domain.ReviewTask, error) {
	saved, err := c.tasks.SaveTask(ctx, task)
	if errors.Is(err, domain.ErrStaleWrite) {
		return domain.ReviewTask{}, &domain.PreconditionError{
			Op:     string(action),
			TaskID: task.ID,
			JobID:  task.ReviewJobID,
			Reason: "task was modified concurrently; re-fetch and retry",
		}
	}
	if err != nil {
		return domain.ReviewTask{}, fmt.Errorf("%s task %s: %w", action, task.ID, err)
	}
	return saved, nil
}

// rejectReserved keeps the automated reviewer identity out of reviewer-facing
// actions; the automated task closes only through MakeReview.
func rejectReserved(action domain.TaskAction, task domain.ReviewTask, reviewerIDs ...string) error {
	for _, id := range reviewerIDs {
		if strings.TrimSpace(id) == domain.AutoReviewerID {
			return precondition(action, task, domain.AutoReviewerID+" is reserved for automated review")
		}
	}
	return nil
}
