package review

import (
	"fmt"
	"strings"
	"time"

	"content-review-orchestrator/internal/domain"
)

// The functions in this file are the task lifecycle authority. They never
// touch a store: each takes a task snapshot and returns the records that
// should be persisted, or a *domain.PreconditionError.
//
// Claim semantics are strict: only a PENDING task with no reviewer can be
// claimed. An assigned task changes hands through Reassign instead.

// CheckAction reports whether reviewerID may perform action on task, judged
// on the task alone. Job-level conditions are checked by the Coordinator.
func CheckAction(task domain.ReviewTask, reviewerID string, action domain.TaskAction) error {
	if !action.Valid() {
		return precondition(action, task, fmt.Sprintf("unknown action %q", action))
	}
	if strings.TrimSpace(reviewerID) == "" {
		return precondition(action, task, "reviewer id is required")
	}
	if task.Status != domain.TaskStatusPending {
		return precondition(action, task, fmt.Sprintf("task is %s; only PENDING tasks accept %s", task.Status, action))
	}

	if action == domain.TaskActionClaim {
		if task.Assigned() {
			return precondition(action, task, fmt.Sprintf("task is already assigned to %s", task.ReviewerID))
		}
		return nil
	}

	if !task.Assigned() {
		return precondition(action, task, "task is unassigned; claim it first")
	}
	if task.ReviewerID != reviewerID {
		return precondition(action, task, fmt.Sprintf("task is assigned to %s, not %s", task.ReviewerID, reviewerID))
	}
	return nil
}

func Claim(task domain.ReviewTask, reviewerID string, now time.Time) (domain.ReviewTask, error) {
	if err := CheckAction(task, reviewerID, domain.TaskActionClaim); err != nil {
		return domain.ReviewTask{}, err
	}
	next := task.Clone()
	next.ReviewerID = reviewerID
	next.UpdateTime = now
	return next, nil
}

// Reassign cancels task and returns the replacement owned by newReviewerID.
// The replacement is a new record so every task keeps a single owner.
func Reassign(task domain.ReviewTask, currentReviewerID, newReviewerID, reason, newTaskID string, now time.Time) (canceled domain.ReviewTask, created domain.ReviewTask, err error) {
	if err := CheckAction(task, currentReviewerID, domain.TaskActionReassign); err != nil {
		return domain.ReviewTask{}, domain.ReviewTask{}, err
	}
	if strings.TrimSpace(newReviewerID) == "" {
		return domain.ReviewTask{}, domain.ReviewTask{}, precondition(domain.TaskActionReassign, task, "new reviewer id is required")
	}
	if newReviewerID == currentReviewerID {
		return domain.ReviewTask{}, domain.ReviewTask{}, precondition(domain.TaskActionReassign, task, "new reviewer must differ from the current reviewer")
	}

	summary := fmt.Sprintf("reassigned from %s to %s", currentReviewerID, newReviewerID)
	if reason = strings.TrimSpace(reason); reason != "" {
		summary += ": " + reason
	}
	canceled = cancelTask(task, summary, now)
	created = NewTask(newTaskID, task.ReviewJobID, newReviewerID, now)
	return canceled, created, nil
}

// Return hands a task back. No replacement is created.
func Return(task domain.ReviewTask, reviewerID, reason string, now time.Time) (domain.ReviewTask, error) {
	if err := CheckAction(task, reviewerID, domain.TaskActionReturn); err != nil {
		return domain.ReviewTask{}, err
	}
	summary := "returned by " + reviewerID
	if reason = strings.TrimSpace(reason); reason != "" {
		summary += ": " + reason
	}
	return cancelTask(task, summary, now), nil
}

// SubmitFeedback records a verdict on task. A PENDING verdict stores the
// feedback as a draft and leaves the task open.
func SubmitFeedback(task domain.ReviewTask, reviewerID string, feedback domain.ReviewFeedback, now time.Time) (domain.ReviewTask, error) {
	if err := CheckAction(task, reviewerID, domain.TaskActionSubmit); err != nil {
		return domain.ReviewTask{}, err
	}
	if err := domain.CheckFeedback(feedback); err != nil {
		return domain.ReviewTask{}, fmt.Errorf("submit feedback task %s: %w", task.ID, err)
	}
	next := task.Clone()
	fb := feedback.Clone()
	next.Status = feedback.Verdict.TaskStatus()
	next.Feedback = &fb
	next.UpdateTime = now
	return next, nil
}

func NewTask(id, jobID, reviewerID string, now time.Time) domain.ReviewTask {
	return domain.ReviewTask{
		ID:          id,
		ReviewJobID: jobID,
		Status:      domain.TaskStatusPending,
		ReviewerID:  reviewerID,
		CreateTime:  now,
		UpdateTime:  now,
	}
}

// cancelTask attaches narration-only feedback; its verdict is not a decision.
func cancelTask(task domain.ReviewTask, summary string, now time.Time) domain.ReviewTask {
	next := task.Clone()
	next.Status = domain.TaskStatusCanceled
	next.Feedback = &domain.ReviewFeedback{Verdict: domain.VerdictPending, Summary: summary}
	next.UpdateTime = now
	return next
}

func precondition(action domain.TaskAction, task domain.ReviewTask, reason string) error {
	return &domain.PreconditionError{
		Op:     string(action),
		TaskID: task.ID,
		JobID:  task.ReviewJobID,
		Reason: reason,
	}
}
