package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrPrecondition      = errors.New("precondition violated")
	ErrJobTerminal       = errors.New("review job is terminal")
	ErrJobAlreadyPending = errors.New("a pending review job already exists for content")
	ErrInvalidFeedback   = errors.New("invalid feedback")
	// ErrStaleWrite is returned by stores when a save carries a version that
	// no longer matches the stored row.
	ErrStaleWrite = errors.New("stale write")
)

type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func TaskNotFound(id string) error {
	return &NotFoundError{Kind: "review task", ID: id}
}

func JobNotFound(id string) error {
	return &NotFoundError{Kind: "review job", ID: id}
}

// PreconditionError reports a rejected state transition. It names the
// operation, the entity ids involved and the condition that failed.
type PreconditionError struct {
	Op       string
	TaskID   string
	JobID    string
	Reason   string
	Terminal bool
}

func (e *PreconditionError) Error() string {
	switch {
	case e.TaskID != "" && e.JobID != "":
		return fmt.Sprintf("%s task %s (job %s): %s", e.Op, e.TaskID, e.JobID, e.Reason)
	case e.TaskID != "":
		return fmt.Sprintf("%s task %s: %s", e.Op, e.TaskID, e.Reason)
	default:
		return fmt.Sprintf("%s job %s: %s", e.Op, e.JobID, e.Reason)
	}
}

func (e *PreconditionError) Is(target error) bool {
	if target == ErrPrecondition {
		return true
	}
	return e.Terminal && target == ErrJobTerminal
}

func JobTerminal(op string, job ReviewJob) error {
	return &PreconditionError{
		Op:       op,
		JobID:    job.ID,
		Reason:   fmt.Sprintf("job already %s; open a new job to appeal", job.Status),
		Terminal: true,
	}
}
