package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxSummaryLength = 4000

// ValidateFeedback returns the list of failed rules for a submitted feedback
// value. An empty result means the feedback may be applied.
func ValidateFeedback(f ReviewFeedback) []string {
	failed := make([]string, 0)

	if !f.Verdict.Valid() {
		failed = append(failed, "feedback.verdict_known")
	}
	if len(f.Summary) > maxSummaryLength {
		failed = append(failed, "feedback.summary_length")
	}
	if (f.Verdict == VerdictRejected || f.Verdict == VerdictNeedsRevision) && strings.TrimSpace(f.Summary) == "" && len(f.Entries) == 0 {
		failed = append(failed, "feedback.rejection_explained")
	}
	for i, e := range f.Entries {
		if !e.Severity.Valid() {
			failed = append(failed, fmt.Sprintf("feedback.entries[%d].severity_known", i))
		}
		if strings.TrimSpace(e.Message) == "" {
			failed = append(failed, fmt.Sprintf("feedback.entries[%d].message_present", i))
		}
	}

	return failed
}

// TruncateSummary clips s so it passes the summary length rule.
func TruncateSummary(s string) string {
	if len(s) <= maxSummaryLength {
		return s
	}
	const marker = " ..."
	cut := maxSummaryLength - len(marker)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + marker
}

func CheckFeedback(f ReviewFeedback) error {
	if failed := ValidateFeedback(f); len(failed) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidFeedback, strings.Join(failed, ", "))
	}
	return nil
}
