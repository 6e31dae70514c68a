package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"content-review-orchestrator/internal/domain"
)

const maxRecomputeAttempts = 3

// DeriveJobStatus applies the convergence rule to a job's current tasks:
// no active task means CANCELED, any rejection means REJECTED, any open task
// keeps the job PENDING, otherwise every reviewer approved.
func DeriveJobStatus(tasks []domain.ReviewTask) domain.JobStatus {
	active := 0
	pending := false
	for _, t := range tasks {
		if t.Status == domain.TaskStatusCanceled {
			continue
		}
		active++
		if t.Rejected() {
			return domain.JobStatusRejected
		}
		if t.Status == domain.TaskStatusPending {
			pending = true
		}
	}
	switch {
	case active == 0:
		return domain.JobStatusCanceled
	case pending:
		return domain.JobStatusPending
	default:
		return domain.JobStatusApproved
	}
}

// Aggregator recomputes a job's stored status from the full current task
// list. Running it again on an unchanged task set writes nothing and emits
// no signal.
type Aggregator struct {
	tasks    TaskStore
	jobs     JobStore
	listener StateChangeListener
	logger   *slog.Logger
	locks    *keyedMutex
	now      func() time.Time
}

func NewAggregator(tasks TaskStore, jobs JobStore, listener StateChangeListener, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		tasks:    tasks,
		jobs:     jobs,
		listener: listener,
		logger:   logger,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

// Recompute returns the job after aggregation and whether its status changed.
func (a *Aggregator) Recompute(ctx context.Context, jobID string) (domain.ReviewJob, bool, error) {
	unlock := a.locks.Lock(jobID)
	defer unlock()

	var lastErr error
	for attempt := 1; attempt <= maxRecomputeAttempts; attempt++ {
		job, changed, err := a.recomputeOnce(ctx, jobID)
		if err == nil {
			return job, changed, nil
		}
		if !errors.Is(err, domain.ErrStaleWrite) {
			return domain.ReviewJob{}, false, err
		}
		// Another writer moved the job; re-derive from fresh state.
		lastErr = err
	}
	return domain.ReviewJob{}, false, fmt.Errorf("recompute job %s: %w", jobID, lastErr)
}

func (a *Aggregator) recomputeOnce(ctx context.Context, jobID string) (domain.ReviewJob, bool, error) {
	job, err := a.jobs.FindJob(ctx, jobID)
	if err != nil {
		return domain.ReviewJob{}, false, err
	}
	if job.Status.Terminal() {
		return job, false, nil
	}

	tasks, err := a.tasks.FindTasksByJob(ctx, jobID)
	if err != nil {
		return domain.ReviewJob{}, false, fmt.Errorf("load tasks for job %s: %w", jobID, err)
	}

	next := DeriveJobStatus(tasks)
	if next == job.Status {
		return job, false, nil
	}

	previous := job.Status
	job.Status = next
	job.UpdateTime = a.now()
	saved, err := a.jobs.SaveJob(ctx, job)
	if err != nil {
		return domain.ReviewJob{}, false, fmt.Errorf("save job %s status %s: %w", jobID, next, err)
	}

	a.publish(ctx, domain.JobStateChange{Job: saved, Previous: previous, Next: next})
	return saved, true, nil
}

func (a *Aggregator) publish(ctx context.Context, change domain.JobStateChange) {
	a.logger.InfoContext(ctx, "job status derived", "job_id", change.Job.ID, "previous", change.Previous, "next", change.Next)
	if a.listener == nil {
		return
	}
	if err := a.listener.OnJobStateChange(ctx, change); err != nil {
		a.logger.ErrorContext(ctx, "job state change delivery failed",
			"job_id", change.Job.ID,
			"next", change.Next,
			"error", err,
		)
	}
}

// Cancel moves a PENDING job to CANCELED regardless of its tasks.
func (a *Aggregator) Cancel(ctx context.Context, jobID string) (domain.ReviewJob, error) {
	unlock := a.locks.Lock(jobID)
	defer unlock()

	job, err := a.jobs.FindJob(ctx, jobID)
	if err != nil {
		return domain.ReviewJob{}, err
	}
	if job.Status.Terminal() {
		return domain.ReviewJob{}, domain.JobTerminal("cancel", job)
	}

	previous := job.Status
	job.Status = domain.JobStatusCanceled
	job.UpdateTime = a.now()
	saved, err := a.jobs.SaveJob(ctx, job)
	if errors.Is(err, domain.ErrStaleWrite) {
		return domain.ReviewJob{}, &domain.PreconditionError{Op: "cancel", JobID: jobID, Reason: "job was modified concurrently; re-fetch and retry"}
	}
	if err != nil {
		return domain.ReviewJob{}, fmt.Errorf("cancel job %s: %w", jobID, err)
	}
	a.publish(ctx, domain.JobStateChange{Job: saved, Previous: previous, Next: domain.JobStatusCanceled})
	return saved, nil
}
