package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"content-review-orchestrator/internal/domain"
	"content-review-orchestrator/internal/review"
)

var (
	_ review.TaskStore           = (*MemoryStore)(nil)
	_ review.JobStore            = (*MemoryStore)(nil)
	_ review.ContentProvider     = (*MemoryStore)(nil)
	_ review.StateChangeListener = (*MemoryStore)(nil)
)

// MemoryStore keeps everything in process memory. It honors the same
// versioning and one-pending-job rules as SQLStore and is used for local
// runs and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	jobs      map[string]jobRecord
	jobOrder  []string
	tasks     map[string]taskRecord
	taskOrder []string
	content   map[domain.ContentRef]domain.ContentDetail
	audit     []AuditEntry
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:    make(map[string]jobRecord),
		tasks:   make(map[string]taskRecord),
		content: make(map[domain.ContentRef]domain.ContentDetail),
		now:     time.Now,
	}
}

func (m *MemoryStore) SaveJob(_ context.Context, job domain.ReviewJob) (domain.ReviewJob, error) {
	rec := jobRecordFrom(job)

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.jobs[rec.ID]
	if rec.Version == 0 {
		if ok {
			return domain.ReviewJob{}, fmt.Errorf("save job %s: duplicate id", rec.ID)
		}
	} else {
		if !ok {
			return domain.ReviewJob{}, domain.JobNotFound(rec.ID)
		}
		if existing.Version != rec.Version {
			return domain.ReviewJob{}, fmt.Errorf("review_jobs %s: %w", rec.ID, domain.ErrStaleWrite)
		}
		rec.ContentID, rec.ContentType, rec.CreateTime = existing.ContentID, existing.ContentType, existing.CreateTime
	}
	if rec.Status == string(domain.JobStatusPending) && m.pendingConflictLocked(rec) {
		return domain.ReviewJob{}, fmt.Errorf("%w: %s/%s", domain.ErrJobAlreadyPending, rec.ContentType, rec.ContentID)
	}

	if rec.Version == 0 {
		m.jobOrder = append(m.jobOrder, rec.ID)
	}
	rec.Version++
	m.jobs[rec.ID] = rec
	return rec.toJob(), nil
}

func (m *MemoryStore) pendingConflictLocked(rec jobRecord) bool {
	for id, other := range m.jobs {
		if id != rec.ID && other.Status == string(domain.JobStatusPending) &&
			other.ContentID == rec.ContentID && other.ContentType == rec.ContentType {
			return true
		}
	}
	return false
}

func (m *MemoryStore) FindJob(_ context.Context, id string) (domain.ReviewJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.jobs[id]
	if !ok {
		return domain.ReviewJob{}, domain.JobNotFound(id)
	}
	return rec.toJob(), nil
}

func (m *MemoryStore) FindJobsByContent(_ context.Context, content domain.ContentRef) ([]domain.ReviewJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.ReviewJob
	for _, id := range m.jobOrder {
		rec := m.jobs[id]
		if rec.ContentID == content.ID && rec.ContentType == content.Type {
			out = append(out, rec.toJob())
		}
	}
	return out, nil
}

func (m *MemoryStore) SaveTask(_ context.Context, task domain.ReviewTask) (domain.ReviewTask, error) {
	rec, err := taskRecordFrom(task)
	if err != nil {
		return domain.ReviewTask{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.tasks[rec.ID]
	switch {
	case rec.Version == 0 && ok:
		return domain.ReviewTask{}, fmt.Errorf("insert task %s: duplicate id", rec.ID)
	case rec.Version == 0:
		if _, ok := m.jobs[rec.ReviewJobID]; !ok {
			return domain.ReviewTask{}, fmt.Errorf("insert task %s: %w", rec.ID, domain.JobNotFound(rec.ReviewJobID))
		}
		m.taskOrder = append(m.taskOrder, rec.ID)
	case !ok:
		return domain.ReviewTask{}, domain.TaskNotFound(rec.ID)
	case existing.Version != rec.Version:
		return domain.ReviewTask{}, fmt.Errorf("review_tasks %s: %w", rec.ID, domain.ErrStaleWrite)
	}

	rec.Version++
	m.tasks[rec.ID] = rec
	return rec.toTask()
}

func (m *MemoryStore) FindTask(_ context.Context, id string) (domain.ReviewTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.tasks[id]
	if !ok {
		return domain.ReviewTask{}, domain.TaskNotFound(id)
	}
	return rec.toTask()
}

func (m *MemoryStore) FindTasksByJob(_ context.Context, jobID string) ([]domain.ReviewTask, error) {
	return m.findTasks(func(rec taskRecord) bool { return rec.ReviewJobID == jobID })
}

func (m *MemoryStore) FindTasksByReviewer(_ context.Context, reviewerID string) ([]domain.ReviewTask, error) {
	return m.findTasks(func(rec taskRecord) bool { return rec.ReviewerID == reviewerID })
}

func (m *MemoryStore) findTasks(match func(taskRecord) bool) ([]domain.ReviewTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.ReviewTask
	for _, id := range m.taskOrder {
		rec := m.tasks[id]
		if !match(rec) {
			continue
		}
		task, err := rec.toTask()
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	return out, nil
}

// PutContent registers a content snapshot served by ContentDetail.
func (m *MemoryStore) PutContent(detail domain.ContentDetail) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content[detail.Ref] = detail
}

func (m *MemoryStore) ContentDetail(_ context.Context, ref domain.ContentRef) (domain.ContentDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	detail, ok := m.content[ref]
	if !ok {
		return domain.ContentDetail{}, &domain.NotFoundError{Kind: "content", ID: ref.String()}
	}
	return detail, nil
}

func (m *MemoryStore) OnJobStateChange(_ context.Context, change domain.JobStateChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, AuditEntry{
		JobID:    change.Job.ID,
		Content:  change.Job.Content,
		Previous: change.Previous,
		Next:     change.Next,
		At:       storedTime(m.now()),
	})
	return nil
}

func (m *MemoryStore) AuditTrail(_ context.Context, jobID string) ([]AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []AuditEntry
	for _, e := range m.audit {
		if e.JobID == jobID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
