package review

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"content-review-orchestrator/internal/domain"
)

type fakeStore struct {
	mu        sync.Mutex
	tasks     map[string]domain.ReviewTask
	taskOrder []string
	jobs      map[string]domain.ReviewJob
	jobOrder  []string

	saveTaskErr error
	// staleTaskID makes updates (not inserts) of that task fail as stale.
	staleTaskID string
	taskSaves   int
	jobSaves    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tasks: make(map[string]domain.ReviewTask),
		jobs:  make(map[string]domain.ReviewJob),
	}
}

func (f *fakeStore) SaveTask(_ context.Context, task domain.ReviewTask) (domain.ReviewTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveTaskErr != nil {
		return domain.ReviewTask{}, f.saveTaskErr
	}
	existing, ok := f.tasks[task.ID]
	switch {
	case task.Version != 0 && task.ID == f.staleTaskID:
		return domain.ReviewTask{}, domain.ErrStaleWrite
	case task.Version == 0 && ok:
		return domain.ReviewTask{}, errors.New("duplicate task id " + task.ID)
	case task.Version == 0:
		f.taskOrder = append(f.taskOrder, task.ID)
	case !ok || existing.Version != task.Version:
		return domain.ReviewTask{}, domain.ErrStaleWrite
	}
	task = task.Clone()
	task.Version++
	f.tasks[task.ID] = task
	f.taskSaves++
	return task.Clone(), nil
}

func (f *fakeStore) FindTask(_ context.Context, id string) (domain.ReviewTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok {
		return domain.ReviewTask{}, domain.TaskNotFound(id)
	}
	return task.Clone(), nil
}

func (f *fakeStore) FindTasksByJob(_ context.Context, jobID string) ([]domain.ReviewTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ReviewTask
	for _, id := range f.taskOrder {
		if t := f.tasks[id]; t.ReviewJobID == jobID {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

func (f *fakeStore) FindTasksByReviewer(_ context.Context, reviewerID string) ([]domain.ReviewTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ReviewTask
	for _, id := range f.taskOrder {
		if t := f.tasks[id]; t.ReviewerID == reviewerID {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

func (f *fakeStore) SaveJob(_ context.Context, job domain.ReviewJob) (domain.ReviewJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.jobs[job.ID]
	switch {
	case job.Version == 0 && ok:
		return domain.ReviewJob{}, errors.New("duplicate job id " + job.ID)
	case job.Version == 0:
		for _, other := range f.jobs {
			if other.Content == job.Content && other.Status == domain.JobStatusPending && job.Status == domain.JobStatusPending {
				return domain.ReviewJob{}, domain.ErrJobAlreadyPending
			}
		}
		f.jobOrder = append(f.jobOrder, job.ID)
	case !ok || existing.Version != job.Version:
		return domain.ReviewJob{}, domain.ErrStaleWrite
	}
	job.Version++
	f.jobs[job.ID] = job
	f.jobSaves++
	return job, nil
}

func (f *fakeStore) FindJob(_ context.Context, id string) (domain.ReviewJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return domain.ReviewJob{}, domain.JobNotFound(id)
	}
	return job, nil
}

func (f *fakeStore) FindJobsByContent(_ context.Context, content domain.ContentRef) ([]domain.ReviewJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ReviewJob
	for _, id := range f.jobOrder {
		if j := f.jobs[id]; j.Content == content {
			out = append(out, j)
		}
	}
	return out, nil
}

// putJob seeds a job directly, bypassing the coordinator.
func (f *fakeStore) putJob(job domain.ReviewJob) domain.ReviewJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job.Version == 0 {
		job.Version = 1
		f.jobOrder = append(f.jobOrder, job.ID)
	}
	f.jobs[job.ID] = job
	return job
}

func (f *fakeStore) setJobStatus(id string, status domain.JobStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.jobs[id]
	job.Status = status
	job.Version++
	f.jobs[id] = job
}

func (f *fakeStore) saves() (tasks, jobs int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.taskSaves, f.jobSaves
}

type recordingListener struct {
	mu      sync.Mutex
	changes []domain.JobStateChange
	err     error
}

func (l *recordingListener) OnJobStateChange(_ context.Context, change domain.JobStateChange) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.changes = append(l.changes, change)
	return l.err
}

func (l *recordingListener) recorded() []domain.JobStateChange {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.JobStateChange(nil), l.changes...)
}

type sequenceIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

func (s *sequenceIDs) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s%02d", s.prefix, s.n)
}

type stubAllocator struct {
	mu        sync.Mutex
	reviewers []string
	err       error
	calls     int
	reassigns int
}

func (a *stubAllocator) AllocateReviewer(_ context.Context, _ domain.ContentRef, reassignment bool) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if reassignment {
		a.reassigns++
	}
	if a.err != nil {
		return "", a.err
	}
	if len(a.reviewers) == 0 {
		return domain.AutoReviewerID, nil
	}
	next := a.reviewers[0]
	a.reviewers = a.reviewers[1:]
	return next, nil
}

type stubDispatcher struct {
	mu   sync.Mutex
	jobs []string
	err  error
	fn   func(ctx context.Context, job domain.ReviewJob) error
}

func (d *stubDispatcher) DispatchAutoReview(ctx context.Context, job domain.ReviewJob) error {
	d.mu.Lock()
	d.jobs = append(d.jobs, job.ID)
	fn, err := d.fn, d.err
	d.mu.Unlock()
	if fn != nil {
		return fn(ctx, job)
	}
	return err
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestCoordinator(store *fakeStore, listener StateChangeListener) *Coordinator {
	c := NewCoordinator(store, store, &sequenceIDs{prefix: "task-"}, listener, nil)
	c.setClock(func() time.Time { return fixedNow })
	return c
}

func seedJob(store *fakeStore, id string) domain.ReviewJob {
	return store.putJob(domain.ReviewJob{
		ID:         id,
		Content:    domain.ContentRef{ID: "content-" + id, Type: "article"},
		Status:     domain.JobStatusPending,
		Mark:       domain.ReviewMarkNormal,
		CreateTime: fixedNow,
		UpdateTime: fixedNow,
	})
}

func approve(summary string) domain.ReviewFeedback {
	return domain.ReviewFeedback{Verdict: domain.VerdictApproved, Summary: summary}
}

func reject(summary string) domain.ReviewFeedback {
	return domain.ReviewFeedback{Verdict: domain.VerdictRejected, Summary: summary}
}
