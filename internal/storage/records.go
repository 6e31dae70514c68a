package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"content-review-orchestrator/internal/domain"
)

// jobRecord and taskRecord are the mutable row shapes. They never leave this
// package: business logic only sees the domain values produced by toJob and
// toTask.
type jobRecord struct {
	ID          string
	ContentID   string
	ContentType string
	Status      string
	Mark        string
	CreateTime  time.Time
	UpdateTime  time.Time
	Version     int64
}

type taskRecord struct {
	ID          string
	ReviewJobID string
	Status      string
	ReviewerID  string
	Feedback    sql.NullString
	CreateTime  time.Time
	UpdateTime  time.Time
	Version     int64
}

// Postgres keeps microseconds; truncating here keeps saved and loaded values equal.
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func jobRecordFrom(job domain.ReviewJob) jobRecord {
	return jobRecord{
		ID:          job.ID,
		ContentID:   job.Content.ID,
		ContentType: job.Content.Type,
		Status:      string(job.Status),
		Mark:        string(job.Mark),
		CreateTime:  storedTime(job.CreateTime),
		UpdateTime:  storedTime(job.UpdateTime),
		Version:     job.Version,
	}
}

func (r jobRecord) toJob() domain.ReviewJob {
	return domain.ReviewJob{
		ID:         r.ID,
		Content:    domain.ContentRef{ID: r.ContentID, Type: r.ContentType},
		Status:     domain.JobStatus(r.Status),
		Mark:       domain.ReviewMark(r.Mark),
		CreateTime: r.CreateTime.UTC(),
		UpdateTime: r.UpdateTime.UTC(),
		Version:    r.Version,
	}
}

func taskRecordFrom(task domain.ReviewTask) (taskRecord, error) {
	rec := taskRecord{
		ID:          task.ID,
		ReviewJobID: task.ReviewJobID,
		Status:      string(task.Status),
		ReviewerID:  task.ReviewerID,
		CreateTime:  storedTime(task.CreateTime),
		UpdateTime:  storedTime(task.UpdateTime),
		Version:     task.Version,
	}
	if task.Feedback != nil {
		raw, err := json.Marshal(task.Feedback)
		if err != nil {
			return taskRecord{}, fmt.Errorf("encode feedback for task %s: %w", task.ID, err)
		}
		rec.Feedback = sql.NullString{String: string(raw), Valid: true}
	}
	return rec, nil
}

func (r taskRecord) toTask() (domain.ReviewTask, error) {
	task := domain.ReviewTask{
		ID:          r.ID,
		ReviewJobID: r.ReviewJobID,
		Status:      domain.TaskStatus(r.Status),
		ReviewerID:  r.ReviewerID,
		CreateTime:  r.CreateTime.UTC(),
		UpdateTime:  r.UpdateTime.UTC(),
		Version:     r.Version,
	}
	if r.Feedback.Valid && r.Feedback.String != "" {
		var fb domain.ReviewFeedback
		if err := json.Unmarshal([]byte(r.Feedback.String), &fb); err != nil {
			return domain.ReviewTask{}, fmt.Errorf("decode feedback for task %s: %w", r.ID, err)
		}
		task.Feedback = &fb
	}
	return task, nil
}

// AuditEntry is one persisted job status change.
type AuditEntry struct {
	JobID    string            `json:"job_id"`
	Content  domain.ContentRef `json:"content"`
	Previous domain.JobStatus  `json:"previous"`
	Next     domain.JobStatus  `json:"next"`
	At       time.Time         `json:"at"`
}
