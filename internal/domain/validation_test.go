package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateFeedbackRules(t *testing.T) {
	valid := ReviewFeedback{
		Verdict: VerdictRejected,
		Summary: "contains a blocked link",
		Entries: []FeedbackEntry{{
			Category: "links",
			Severity: SeverityError,
			Message:  "link to blocked host",
		}},
	}
	if failed := ValidateFeedback(valid); len(failed) != 0 {
		t.Fatalf("expected no failed rules, got %v", failed)
	}

	invalid := valid
	invalid.Verdict = "MAYBE"
	invalid.Entries = []FeedbackEntry{{Severity: "LOUD"}}
	failed := ValidateFeedback(invalid)
	if len(failed) != 3 {
		t.Fatalf("expected three failed rules, got %v", failed)
	}
}

func TestValidateFeedbackRequiresRejectionReason(t *testing.T) {
	failed := ValidateFeedback(ReviewFeedback{Verdict: VerdictNeedsRevision})
	if len(failed) != 1 || failed[0] != "feedback.rejection_explained" {
		t.Fatalf("unexpected failed rules: %v", failed)
	}

	if failed := ValidateFeedback(ReviewFeedback{Verdict: VerdictApproved}); len(failed) != 0 {
		t.Fatalf("approval without summary should pass, got %v", failed)
	}
}

func TestCheckFeedbackWrapsSentinel(t *testing.T) {
	err := CheckFeedback(ReviewFeedback{Verdict: VerdictApproved, Summary: strings.Repeat("x", maxSummaryLength+1)})
	if !errors.Is(err, ErrInvalidFeedback) {
		t.Fatalf("expected ErrInvalidFeedback, got %v", err)
	}
}

func TestTruncateSummary(t *testing.T) {
	short := "short reason"
	if got := TruncateSummary(short); got != short {
		t.Fatalf("expected untouched summary, got %q", got)
	}

	long := strings.Repeat("é", maxSummaryLength)
	got := TruncateSummary(long)
	if len(got) > maxSummaryLength {
		t.Fatalf("expected at most %d bytes, got %d", maxSummaryLength, len(got))
	}
	if failed := ValidateFeedback(ReviewFeedback{Verdict: VerdictRejected, Summary: got}); len(failed) != 0 {
		t.Fatalf("truncated summary should validate, got %v", failed)
	}
	if !strings.HasSuffix(got, " ...") {
		t.Fatalf("expected truncation marker, got suffix %q", got[len(got)-8:])
	}
}
