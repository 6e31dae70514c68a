package autoreview

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"content-review-orchestrator/internal/domain"
	"content-review-orchestrator/internal/openai"
)

// KeywordReviewer rejects content whose visible text contains a banned term.
type KeywordReviewer struct {
	Terms []string
}

func (KeywordReviewer) Name() string { return "keyword" }

func (k KeywordReviewer) Review(_ context.Context, _ domain.ReviewJob, rc *Context) error {
	content := rc.Content()
	text := strings.ToLower(content.Title + " " + PlainText(content.Body))

	var hits []string
	for _, term := range k.Terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" || !strings.Contains(text, term) {
			continue
		}
		hits = append(hits, term)
		rc.AddFeedbackEntry(k.Name(), domain.FeedbackEntry{
			Category: "banned-term",
			Severity: domain.SeverityError,
			Message:  fmt.Sprintf("contains banned term %q", term),
		})
	}
	if len(hits) > 0 {
		rc.Reject(k.Name(), "banned terms: "+strings.Join(hits, ", "))
		return nil
	}
	rc.MarkReviewerCompleted(k.Name())
	return nil
}

// LinkReviewer rejects anchors pointing at blocked hosts or their subdomains.
type LinkReviewer struct {
	BlockedHosts []string
}

func (LinkReviewer) Name() string { return "links" }

func (l LinkReviewer) Review(_ context.Context, _ domain.ReviewJob, rc *Context) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rc.Content().Body))
	if err != nil {
		return fmt.Errorf("parse body: %w", err)
	}

	blocked := 0
	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		u, err := url.Parse(strings.TrimSpace(href))
		if err != nil || u.Hostname() == "" {
			return
		}
		host := strings.ToLower(u.Hostname())
		if !l.blocked(host) {
			return
		}
		blocked++
		rc.AddFeedbackEntry(l.Name(), domain.FeedbackEntry{
			Category:   "blocked-link",
			Severity:   domain.SeverityError,
			Message:    fmt.Sprintf("link to blocked host %s", host),
			Location:   fmt.Sprintf("a[%d] %s", i, href),
			Suggestion: "remove the link or point it at an allowed source",
		})
	})
	if blocked > 0 {
		rc.Reject(l.Name(), fmt.Sprintf("%d link(s) to blocked hosts", blocked))
		return nil
	}
	rc.MarkReviewerCompleted(l.Name())
	return nil
}

func (l LinkReviewer) blocked(host string) bool {
	for _, b := range l.BlockedHosts {
		b = strings.ToLower(strings.TrimSpace(b))
		if b != "" && (host == b || strings.HasSuffix(host, "."+b)) {
			return true
		}
	}
	return false
}

// LengthReviewer bounds title presence and body length in characters of
// visible text. A zero MaxBody means unbounded.
type LengthReviewer struct {
	RequireTitle bool
	MinBody      int
	MaxBody      int
}

func (LengthReviewer) Name() string { return "length" }

func (l LengthReviewer) Review(_ context.Context, _ domain.ReviewJob, rc *Context) error {
	content := rc.Content()
	var problems []string

	if l.RequireTitle && strings.TrimSpace(content.Title) == "" {
		problems = append(problems, "title is empty")
	}
	n := utf8.RuneCountInString(PlainText(content.Body))
	if n < l.MinBody {
		problems = append(problems, fmt.Sprintf("body has %d characters, minimum is %d", n, l.MinBody))
	}
	if l.MaxBody > 0 && n > l.MaxBody {
		problems = append(problems, fmt.Sprintf("body has %d characters, maximum is %d", n, l.MaxBody))
	}

	for _, p := range problems {
		rc.AddFeedbackEntry(l.Name(), domain.FeedbackEntry{Category: "length", Severity: domain.SeverityError, Message: p})
	}
	if len(problems) > 0 {
		rc.Reject(l.Name(), strings.Join(problems, ", "))
		return nil
	}
	rc.MarkReviewerCompleted(l.Name())
	return nil
}

type Moderator interface {
	Moderate(ctx context.Context, contentType, title, text string) (openai.ModerationVerdict, error)
}

// ModerationReviewer delegates the verdict to an LLM. A reply below
// MinConfidence is treated as a rejection.
type ModerationReviewer struct {
	Moderator     Moderator
	MinConfidence float64
}

func (ModerationReviewer) Name() string { return "moderation" }

func (m ModerationReviewer) Review(ctx context.Context, _ domain.ReviewJob, rc *Context) error {
	content := rc.Content()
	verdict, err := m.Moderator.Moderate(ctx, content.Ref.Type, content.Title, PlainText(content.Body))
	if err != nil {
		return err
	}

	if !verdict.Approved() {
		for _, category := range verdict.Categories {
			rc.AddFeedbackEntry(m.Name(), domain.FeedbackEntry{
				Category: category,
				Severity: domain.SeverityCritical,
				Message:  verdict.Reason,
			})
		}
		rc.Reject(m.Name(), verdict.Reason)
		return nil
	}
	if verdict.Confidence < m.MinConfidence {
		rc.Reject(m.Name(), fmt.Sprintf("approval confidence %.2f below %.2f", verdict.Confidence, m.MinConfidence))
		return nil
	}
	rc.MarkReviewerCompleted(m.Name())
	return nil
}
