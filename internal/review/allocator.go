package review

import (
	"context"
	"strings"
	"sync/atomic"

	"content-review-orchestrator/internal/domain"
)

// StaticPool hands out reviewers from a fixed list in round-robin order.
// An empty pool always answers with the automated reviewer.
type StaticPool struct {
	reviewers []string
	next      atomic.Uint64
}

func NewStaticPool(reviewers []string) *StaticPool {
	pool := make([]string, 0, len(reviewers))
	for _, r := range reviewers {
		if r = strings.TrimSpace(r); r != "" && r != domain.AutoReviewerID {
			pool = append(pool, r)
		}
	}
	return &StaticPool{reviewers: pool}
}

func (p *StaticPool) AllocateReviewer(_ context.Context, _ domain.ContentRef, _ bool) (string, error) {
	if len(p.reviewers) == 0 {
		return domain.AutoReviewerID, nil
	}
	i := p.next.Add(1) - 1
	return p.reviewers[i%uint64(len(p.reviewers))], nil
}

func (p *StaticPool) Size() int {
	return len(p.reviewers)
}
