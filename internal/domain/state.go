package domain

type JobStatus string

const (
	JobStatusPending  JobStatus = "PENDING"
	JobStatusApproved JobStatus = "APPROVED"
	JobStatusRejected JobStatus = "REJECTED"
	JobStatusCanceled JobStatus = "CANCELED"
)

// Terminal reports whether no further transition is permitted out of s.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusApproved, JobStatusRejected, JobStatusCanceled:
		return true
	default:
		return false
	}
}

func (s JobStatus) Valid() bool {
	return s == JobStatusPending || s.Terminal()
}

type TaskStatus string

const (
	TaskStatusPending  TaskStatus = "PENDING"
	TaskStatusApproved TaskStatus = "APPROVED"
	TaskStatusRejected TaskStatus = "REJECTED"
	TaskStatusCanceled TaskStatus = "CANCELED"
)

func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusApproved, TaskStatusRejected, TaskStatusCanceled:
		return true
	default:
		return false
	}
}

func (s TaskStatus) Valid() bool {
	return s == TaskStatusPending || s.Terminal()
}

type Verdict string

const (
	VerdictApproved      Verdict = "APPROVED"
	VerdictRejected      Verdict = "REJECTED"
	VerdictNeedsRevision Verdict = "NEEDS_REVISION"
	VerdictPending       Verdict = "PENDING"
)

func (v Verdict) Valid() bool {
	switch v {
	case VerdictApproved, VerdictRejected, VerdictNeedsRevision, VerdictPending:
		return true
	default:
		return false
	}
}

// TaskStatus maps a reviewer verdict onto the task state machine.
// NEEDS_REVISION is a rejection for the purposes of this review round.
func (v Verdict) TaskStatus() TaskStatus {
	switch v {
	case VerdictApproved:
		return TaskStatusApproved
	case VerdictRejected, VerdictNeedsRevision:
		return TaskStatusRejected
	default:
		return TaskStatusPending
	}
}

type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return true
	default:
		return false
	}
}

// ReviewMark is the priority/classification tag attached to a job.
type ReviewMark string

const (
	ReviewMarkNormal    ReviewMark = "NORMAL"
	ReviewMarkPriority  ReviewMark = "PRIORITY"
	ReviewMarkSensitive ReviewMark = "SENSITIVE"
	ReviewMarkAppeal    ReviewMark = "APPEAL"
)

type TaskAction string

const (
	TaskActionClaim    TaskAction = "claim"
	TaskActionReassign TaskAction = "reassign"
	TaskActionReturn   TaskAction = "return"
	TaskActionSubmit   TaskAction = "submit"
)

func (a TaskAction) Valid() bool {
	switch a {
	case TaskActionClaim, TaskActionReassign, TaskActionReturn, TaskActionSubmit:
		return true
	default:
		return false
	}
}

// AutoReviewerID is the reserved reviewer identity of the automated reviewer.
// An allocator returning it means "no human reviewer available".
const AutoReviewerID = "AUTO_REVIEWER"
