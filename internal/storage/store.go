package storage

import (
	"context"

	"content-review-orchestrator/internal/review"
)

var (
	_ Store = (*SQLStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

// Store is everything the engine and its transports need from persistence.
type Store interface {
	review.TaskStore
	review.JobStore
	review.StateChangeListener
	AuditTrail(ctx context.Context, jobID string) ([]AuditEntry, error)
	Ping(ctx context.Context) error
	Close() error
}
