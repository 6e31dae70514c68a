package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-review-orchestrator/internal/domain"
	"content-review-orchestrator/internal/review"
)

type reviewStore interface {
	review.TaskStore
	review.JobStore
	review.StateChangeListener
	AuditTrail(ctx context.Context, jobID string) ([]AuditEntry, error)
}

var contractNow = time.Date(2026, 4, 2, 9, 30, 0, 123456000, time.UTC)

func newJob(id string, content domain.ContentRef) domain.ReviewJob {
	return domain.ReviewJob{
		ID:         id,
		Content:    content,
		Status:     domain.JobStatusPending,
		Mark:       domain.ReviewMarkNormal,
		CreateTime: contractNow,
		UpdateTime: contractNow,
	}
}

// runStoreContract exercises the behavior every Task/Job store must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) reviewStore) {
	t.Run("job round trip and versioning", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		content := domain.ContentRef{ID: "post-1", Type: "article"}

		saved, err := s.SaveJob(ctx, newJob("job-1", content))
		require.NoError(t, err)
		assert.Equal(t, int64(1), saved.Version)

		got, err := s.FindJob(ctx, "job-1")
		require.NoError(t, err)
		assert.Equal(t, content, got.Content)
		assert.Equal(t, domain.JobStatusPending, got.Status)
		assert.True(t, got.CreateTime.Equal(contractNow))

		got.Status = domain.JobStatusApproved
		updated, err := s.SaveJob(ctx, got)
		require.NoError(t, err)
		assert.Equal(t, int64(2), updated.Version)

		got.Status = domain.JobStatusRejected
		_, err = s.SaveJob(ctx, got)
		require.ErrorIs(t, err, domain.ErrStaleWrite)

		_, err = s.FindJob(ctx, "missing")
		require.ErrorIs(t, err, domain.ErrNotFound)

		ghost := newJob("ghost", content)
		ghost.Version = 3
		_, err = s.SaveJob(ctx, ghost)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("one pending job per content", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		content := domain.ContentRef{ID: "post-2", Type: "article"}

		first, err := s.SaveJob(ctx, newJob("job-a", content))
		require.NoError(t, err)
		_, err = s.SaveJob(ctx, newJob("job-b", content))
		require.ErrorIs(t, err, domain.ErrJobAlreadyPending)

		_, err = s.SaveJob(ctx, newJob("job-c", domain.ContentRef{ID: "post-2", Type: "video"}))
		require.NoError(t, err)

		first.Status = domain.JobStatusRejected
		_, err = s.SaveJob(ctx, first)
		require.NoError(t, err)
		_, err = s.SaveJob(ctx, newJob("job-b", content))
		require.NoError(t, err)

		jobs, err := s.FindJobsByContent(ctx, content)
		require.NoError(t, err)
		require.Len(t, jobs, 2)
		assert.Equal(t, "job-a", jobs[0].ID)
		assert.Equal(t, "job-b", jobs[1].ID)
	})

	t.Run("task round trip with feedback", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.SaveJob(ctx, newJob("job-1", domain.ContentRef{ID: "post-3", Type: "article"}))
		require.NoError(t, err)

		task := review.NewTask("task-1", "job-1", "alice", contractNow)
		saved, err := s.SaveTask(ctx, task)
		require.NoError(t, err)
		assert.Equal(t, int64(1), saved.Version)
		assert.Nil(t, saved.Feedback)

		saved.Status = domain.TaskStatusRejected
		saved.Feedback = &domain.ReviewFeedback{
			Verdict: domain.VerdictRejected,
			Summary: "blocked link",
			Entries: []domain.FeedbackEntry{{
				Category: "links", Severity: domain.SeverityError, Message: "spam.example", Location: "a[0]", AutoDetected: true,
			}},
		}
		_, err = s.SaveTask(ctx, saved)
		require.NoError(t, err)

		got, err := s.FindTask(ctx, "task-1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Version)
		require.NotNil(t, got.Feedback)
		assert.Equal(t, *saved.Feedback, *got.Feedback)

		_, err = s.SaveTask(ctx, saved)
		require.ErrorIs(t, err, domain.ErrStaleWrite)

		_, err = s.FindTask(ctx, "nope")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("task queries keep creation order", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.SaveJob(ctx, newJob("job-1", domain.ContentRef{ID: "post-4", Type: "article"}))
		require.NoError(t, err)
		_, err = s.SaveJob(ctx, newJob("job-2", domain.ContentRef{ID: "post-5", Type: "article"}))
		require.NoError(t, err)

		for _, tc := range []struct{ id, job, reviewer string }{
			{"t-c", "job-1", "alice"},
			{"t-a", "job-1", "bob"},
			{"t-b", "job-2", "alice"},
		} {
			_, err := s.SaveTask(ctx, review.NewTask(tc.id, tc.job, tc.reviewer, contractNow))
			require.NoError(t, err)
		}

		byJob, err := s.FindTasksByJob(ctx, "job-1")
		require.NoError(t, err)
		require.Len(t, byJob, 2)
		assert.Equal(t, "t-c", byJob[0].ID)
		assert.Equal(t, "t-a", byJob[1].ID)

		byReviewer, err := s.FindTasksByReviewer(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, byReviewer, 2)

		none, err := s.FindTasksByJob(ctx, "job-404")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("concurrent saves of one version have one winner", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.SaveJob(ctx, newJob("job-1", domain.ContentRef{ID: "post-6", Type: "article"}))
		require.NoError(t, err)
		base, err := s.SaveTask(ctx, review.NewTask("task-1", "job-1", "", contractNow))
		require.NoError(t, err)

		const writers = 8
		var wg sync.WaitGroup
		errs := make([]error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				claimed := base.Clone()
				claimed.ReviewerID = string(rune('a' + i))
				_, errs[i] = s.SaveTask(ctx, claimed)
			}(i)
		}
		wg.Wait()

		wins := 0
		for _, err := range errs {
			if err == nil {
				wins++
				continue
			}
			require.ErrorIs(t, err, domain.ErrStaleWrite)
		}
		assert.Equal(t, 1, wins)
	})

	t.Run("audit trail", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		job, err := s.SaveJob(ctx, newJob("job-1", domain.ContentRef{ID: "post-7", Type: "article"}))
		require.NoError(t, err)

		require.NoError(t, s.OnJobStateChange(ctx, domain.JobStateChange{Job: job, Previous: domain.JobStatusPending, Next: domain.JobStatusRejected}))
		trail, err := s.AuditTrail(ctx, "job-1")
		require.NoError(t, err)
		require.Len(t, trail, 1)
		assert.Equal(t, domain.JobStatusRejected, trail[0].Next)
		assert.Equal(t, job.Content, trail[0].Content)
		assert.False(t, trail[0].At.IsZero())
	})
}
