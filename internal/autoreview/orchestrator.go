package autoreview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"content-review-orchestrator/internal/domain"
)

const (
	DefaultTimeout = 5 * time.Second
	DefaultWorkers = 8
)

type Options struct {
	// Timeout bounds each reviewer, including time spent waiting for a worker.
	Timeout time.Duration
	// Workers is the size of the pool shared by every run of the orchestrator.
	Workers int64
}

// Decision is the reduction of one run's outcomes.
type Decision struct {
	Approved bool                   `json:"approved"`
	Reason   string                 `json:"reason,omitempty"`
	Outcomes []Outcome              `json:"outcomes"`
	Entries  []domain.FeedbackEntry `json:"entries,omitempty"`
}

// Orchestrator runs every registered reviewer against a job concurrently
// and reduces their outcomes fail-closed.
type Orchestrator struct {
	reviewers []Reviewer
	timeout   time.Duration
	pool      *semaphore.Weighted
	logger    *slog.Logger
	now       func() time.Time
}

func NewOrchestrator(reviewers []Reviewer, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		reviewers: slices.Clone(reviewers),
		timeout:   opts.Timeout,
		pool:      semaphore.NewWeighted(opts.Workers),
		logger:    logger,
		now:       time.Now,
	}
}

func (o *Orchestrator) Reviewers() []string {
	names := make([]string, 0, len(o.reviewers))
	for _, r := range o.reviewers {
		names = append(names, r.Name())
	}
	return names
}

// Run never returns an error: reviewer failures, panics and timeouts are
// outcomes. It returns only after every reviewer has resolved.
func (o *Orchestrator) Run(ctx context.Context, job domain.ReviewJob, content domain.ContentDetail) Decision {
	if len(o.reviewers) == 0 {
		return Decision{Approved: true}
	}

	rc := newContext(job, content, o.now)
	var g errgroup.Group
	for _, r := range o.reviewers {
		g.Go(func() error {
			o.runOne(ctx, job, rc, r)
			return nil
		})
	}
	_ = g.Wait()

	decision := Decide(rc.Outcomes())
	decision.Entries = rc.Entries()
	o.logger.InfoContext(ctx, "automated review decided",
		"job_id", job.ID,
		"approved", decision.Approved,
		"outcomes", len(decision.Outcomes),
	)
	return decision
}

func (o *Orchestrator) runOne(ctx context.Context, job domain.ReviewJob, rc *Context, r Reviewer) {
	name := r.Name()
	start := o.now()
	rctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	if err := o.pool.Acquire(rctx, 1); err != nil {
		o.resolveAbandoned(ctx, rc, name, rctx.Err(), start, "waiting for a worker")
		return
	}

	done := make(chan error, 1)
	go func() {
		defer o.pool.Release(1)
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("panic: %v", p)
			}
		}()
		done <- r.Review(rctx, job, rc)
	}()

	select {
	case err := <-done:
		elapsed := o.now().Sub(start)
		if err != nil {
			o.logger.WarnContext(ctx, "automated reviewer failed", "job_id", job.ID, "reviewer", name, "error", err)
			rc.finish(Outcome{Reviewer: name, Kind: OutcomeFailed, Reason: err.Error(), Duration: elapsed})
			return
		}
		rc.finish(Outcome{Reviewer: name, Kind: OutcomeApprove, Duration: elapsed, Implicit: true})
	case <-rctx.Done():
		o.resolveAbandoned(ctx, rc, name, rctx.Err(), start, "running")
	}
}

func (o *Orchestrator) resolveAbandoned(ctx context.Context, rc *Context, name string, cause error, start time.Time, phase string) {
	elapsed := o.now().Sub(start)
	outcome := Outcome{Reviewer: name, Kind: OutcomeTimeout, Duration: elapsed,
		Reason: fmt.Sprintf("timed out after %s while %s", o.timeout, phase)}
	if !errors.Is(cause, context.DeadlineExceeded) {
		outcome.Kind = OutcomeFailed
		outcome.Reason = fmt.Sprintf("canceled while %s: %v", phase, cause)
	}
	o.logger.WarnContext(ctx, "automated reviewer abandoned", "job_id", rc.Job().ID, "reviewer", name, "kind", outcome.Kind, "elapsed", elapsed)
	rc.seal(outcome)
}

// Decide approves only when no outcome is REJECT, FAILED or TIMEOUT. The
// reason lists every non-approving outcome as "reviewer: reason", ordered by
// reviewer name so the text is stable across runs.
func Decide(outcomes []Outcome) Decision {
	sorted := slices.Clone(outcomes)
	slices.SortStableFunc(sorted, func(a, b Outcome) int {
		return strings.Compare(a.Reviewer, b.Reviewer)
	})

	var reasons []string
	for _, o := range sorted {
		if o.Kind == OutcomeApprove {
			continue
		}
		reason := strings.TrimSpace(o.Reason)
		if reason == "" {
			reason = strings.ToLower(string(o.Kind))
		}
		reasons = append(reasons, o.Reviewer+": "+reason)
	}
	return Decision{
		Approved: len(reasons) == 0,
		Reason:   strings.Join(reasons, "; "),
		Outcomes: sorted,
	}
}
