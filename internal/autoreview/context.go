package autoreview

import (
	"strings"
	"sync"
	"time"

	"content-review-orchestrator/internal/domain"
)

type OutcomeKind string

const (
	OutcomeApprove OutcomeKind = "APPROVE"
	OutcomeReject  OutcomeKind = "REJECT"
	OutcomeFailed  OutcomeKind = "FAILED"
	OutcomeTimeout OutcomeKind = "TIMEOUT"
)

type Outcome struct {
	Reviewer string        `json:"reviewer"`
	Kind     OutcomeKind   `json:"kind"`
	Reason   string        `json:"reason,omitempty"`
	Duration time.Duration `json:"duration"`
	// Implicit marks an approval injected because the reviewer finished
	// without recording anything.
	Implicit bool `json:"implicit,omitempty"`
}

// Context is shared by every reviewer in one orchestration run. Reviewers
// run concurrently against the same instance; all methods are safe for
// concurrent use. Writes from a reviewer that already timed out are dropped.
type Context struct {
	job     domain.ReviewJob
	content domain.ContentDetail
	started time.Time
	now     func() time.Time

	mu       sync.Mutex
	outcomes []Outcome
	entries  []domain.FeedbackEntry
	recorded map[string]bool
	sealed   map[string]bool
}

func NewContext(job domain.ReviewJob, content domain.ContentDetail) *Context {
	return newContext(job, content, time.Now)
}

func newContext(job domain.ReviewJob, content domain.ContentDetail, now func() time.Time) *Context {
	return &Context{
		job:      job,
		content:  content,
		started:  now(),
		now:      now,
		recorded: make(map[string]bool),
		sealed:   make(map[string]bool),
	}
}

func (c *Context) Job() domain.ReviewJob {
	return c.job
}

func (c *Context) Content() domain.ContentDetail {
	return c.content
}

// AddFeedbackEntry attaches a finding. Entries are always flagged as
// auto-detected; a missing severity defaults to WARNING.
func (c *Context) AddFeedbackEntry(reviewer string, entry domain.FeedbackEntry) {
	if strings.TrimSpace(entry.Message) == "" {
		return
	}
	if !entry.Severity.Valid() {
		entry.Severity = domain.SeverityWarning
	}
	if entry.Category == "" {
		entry.Category = reviewer
	}
	entry.AutoDetected = true

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sealed[reviewer] {
		return
	}
	c.entries = append(c.entries, entry)
}

func (c *Context) Approve(reviewer, reason string) {
	c.record(reviewer, OutcomeApprove, reason)
}

func (c *Context) Reject(reviewer, reason string) {
	c.record(reviewer, OutcomeReject, reason)
}

// MarkReviewerCompleted records an approval for reviewer unless it already
// recorded an outcome.
func (c *Context) MarkReviewerCompleted(reviewer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.recorded[reviewer] || c.sealed[reviewer] {
		return
	}
	c.appendLocked(Outcome{Reviewer: reviewer, Kind: OutcomeApprove})
}

func (c *Context) Outcomes() []Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Outcome(nil), c.outcomes...)
}

func (c *Context) Entries() []domain.FeedbackEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.FeedbackEntry(nil), c.entries...)
}

func (c *Context) record(reviewer string, kind OutcomeKind, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sealed[reviewer] {
		return
	}
	c.appendLocked(Outcome{Reviewer: reviewer, Kind: kind, Reason: reason})
}

func (c *Context) appendLocked(o Outcome) {
	if o.Duration == 0 {
		o.Duration = c.now().Sub(c.started)
	}
	c.outcomes = append(c.outcomes, o)
	c.recorded[o.Reviewer] = true
}

// finish records the orchestrator's own view of how a reviewer ended.
// An implicit approval is only added when the reviewer recorded nothing.
func (c *Context) finish(o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sealed[o.Reviewer] {
		return
	}
	if o.Implicit && c.recorded[o.Reviewer] {
		return
	}
	c.appendLocked(o)
}

// seal records a terminal outcome for reviewer and drops its later writes.
func (c *Context) seal(o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sealed[o.Reviewer] {
		return
	}
	c.appendLocked(o)
	c.sealed[o.Reviewer] = true
}
