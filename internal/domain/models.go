package domain

import (
	"slices"
	"time"
)

type ContentRef struct {
	ID   string `json:"content_id"`
	Type string `json:"content_type"`
}

func (c ContentRef) String() string {
	return c.Type + "/" + c.ID
}

// ContentDetail is the reviewable snapshot of a content item.
// Body holds the rendered rich text (HTML).
type ContentDetail struct {
	Ref   ContentRef `json:"ref"`
	Title string     `json:"title"`
	Body  string     `json:"body"`
}

type ReviewJob struct {
	ID         string     `json:"id"`
	Content    ContentRef `json:"content"`
	Status     JobStatus  `json:"status"`
	Mark       ReviewMark `json:"review_mark"`
	CreateTime time.Time  `json:"create_time"`
	UpdateTime time.Time  `json:"update_time"`
	// Version is zero for a job that has never been saved.
	Version    int64      `json:"version"`
}

type FeedbackEntry struct {
	Category     string   `json:"category"`
	Severity     Severity `json:"severity"`
	Message      string   `json:"message"`
	Location     string   `json:"location,omitempty"`
	Suggestion   string   `json:"suggestion,omitempty"`
	AutoDetected bool     `json:"auto_detected"`
}

type ReviewFeedback struct {
	Verdict Verdict         `json:"verdict"`
	Summary string          `json:"summary"`
	Entries []FeedbackEntry `json:"entries,omitempty"`
}

func (f ReviewFeedback) Clone() ReviewFeedback {
	f.Entries = slices.Clone(f.Entries)
	return f
}

type ReviewTask struct {
	ID          string          `json:"id"`
	ReviewJobID string          `json:"review_job_id"`
	Status      TaskStatus      `json:"status"`
	ReviewerID  string          `json:"reviewer_id,omitempty"`
	Feedback    *ReviewFeedback `json:"feedback,omitempty"`
	CreateTime  time.Time       `json:"create_time"`
	UpdateTime  time.Time       `json:"update_time"`
	Version     int64           `json:"version"`
}

// Clone returns a copy that shares no mutable state with t.
func (t ReviewTask) Clone() ReviewTask {
	if t.Feedback != nil {
		fb := t.Feedback.Clone()
		t.Feedback = &fb
	}
	return t
}

func (t ReviewTask) Assigned() bool {
	return t.ReviewerID != ""
}

func (t ReviewTask) Automated() bool {
	return t.ReviewerID == AutoReviewerID
}

// Rejected reports a rejection either by status or by the embedded verdict.
func (t ReviewTask) Rejected() bool {
	if t.Status == TaskStatusRejected {
		return true
	}
	if t.Feedback == nil {
		return false
	}
	return t.Feedback.Verdict == VerdictRejected || t.Feedback.Verdict == VerdictNeedsRevision
}

// JobStateChange is the signal emitted when a job's stored status changes.
type JobStateChange struct {
	Job      ReviewJob `json:"job"`
	Previous JobStatus `json:"previous"`
	Next     JobStatus `json:"next"`
}
