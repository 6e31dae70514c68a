package autoreview

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-review-orchestrator/internal/domain"
	"content-review-orchestrator/internal/openai"
)

func runSingle(t *testing.T, r Reviewer, content domain.ContentDetail) Decision {
	t.Helper()
	return NewOrchestrator([]Reviewer{r}, Options{}, nil).Run(context.Background(), testJob, content)
}

func TestPlainText(t *testing.T) {
	got := PlainText(`<h1>Title</h1>
<script>alert("x")</script>
<p>Hello   <b>world</b></p>`)
	require.Equal(t, "Title Hello world", got)
}

func TestKeywordReviewer(t *testing.T) {
	r := KeywordReviewer{Terms: []string{"Casino", "  ", "miracle cure"}}

	d := runSingle(t, r, domain.ContentDetail{Title: "Best CASINO bonuses", Body: "<p>Try our <i>miracle cure</i></p>"})
	require.False(t, d.Approved)
	assert.Equal(t, "keyword: banned terms: casino, miracle cure", d.Reason)
	require.Len(t, d.Entries, 2)
	assert.Equal(t, "banned-term", d.Entries[0].Category)

	d = runSingle(t, r, testContent)
	require.True(t, d.Approved)
}

func TestKeywordReviewerIgnoresMarkup(t *testing.T) {
	r := KeywordReviewer{Terms: []string{"casino"}}
	d := runSingle(t, r, domain.ContentDetail{Title: "t", Body: `<a class="casino" href="/x">docs</a>`})
	require.True(t, d.Approved)
}

func TestLinkReviewer(t *testing.T) {
	r := LinkReviewer{BlockedHosts: []string{"spam.example"}}
	body := `<p><a href="https://spam.example/buy">one</a>
		<a href="http://cdn.SPAM.example/x">two</a>
		<a href="https://notspam.example/">three</a>
		<a href="/relative">four</a></p>`

	d := runSingle(t, r, domain.ContentDetail{Title: "t", Body: body})
	require.False(t, d.Approved)
	assert.Equal(t, "links: 2 link(s) to blocked hosts", d.Reason)
	require.Len(t, d.Entries, 2)
	assert.Contains(t, d.Entries[1].Message, "cdn.spam.example")
	assert.NotEmpty(t, d.Entries[0].Location)

	d = runSingle(t, r, testContent)
	require.True(t, d.Approved)
}

func TestLengthReviewer(t *testing.T) {
	r := LengthReviewer{RequireTitle: true, MinBody: 5, MaxBody: 20}

	d := runSingle(t, r, domain.ContentDetail{Title: " ", Body: "<p>hi</p>"})
	require.False(t, d.Approved)
	assert.Contains(t, d.Reason, "title is empty")
	assert.Contains(t, d.Reason, "minimum is 5")

	d = runSingle(t, r, domain.ContentDetail{Title: "ok", Body: "<p>just right</p>"})
	require.True(t, d.Approved)

	d = runSingle(t, r, domain.ContentDetail{Title: "ok", Body: "<p>this body is far too long for the bound</p>"})
	require.False(t, d.Approved)
	assert.Contains(t, d.Reason, "maximum is 20")
}

type stubModerator struct {
	verdict openai.ModerationVerdict
	err     error
	calls   int
}

func (s *stubModerator) Moderate(context.Context, string, string, string) (openai.ModerationVerdict, error) {
	s.calls++
	return s.verdict, s.err
}

func TestModerationReviewer(t *testing.T) {
	m := &stubModerator{verdict: openai.ModerationVerdict{Verdict: "reject", Reason: "harassment", Categories: []string{"harassment"}, Confidence: 0.9}}
	d := runSingle(t, ModerationReviewer{Moderator: m}, testContent)
	require.False(t, d.Approved)
	assert.Equal(t, "moderation: harassment", d.Reason)
	require.Len(t, d.Entries, 1)
	assert.Equal(t, domain.SeverityCritical, d.Entries[0].Severity)

	m = &stubModerator{verdict: openai.ModerationVerdict{Verdict: "approve", Confidence: 0.4}}
	d = runSingle(t, ModerationReviewer{Moderator: m, MinConfidence: 0.6}, testContent)
	require.False(t, d.Approved)
	assert.Contains(t, d.Reason, "confidence 0.40")

	m = &stubModerator{verdict: openai.ModerationVerdict{Verdict: "approve", Confidence: 0.95}}
	d = runSingle(t, ModerationReviewer{Moderator: m, MinConfidence: 0.6}, testContent)
	require.True(t, d.Approved)

	m = &stubModerator{err: errors.New("openai request failed with status 500")}
	d = runSingle(t, ModerationReviewer{Moderator: m}, testContent)
	require.False(t, d.Approved)
	assert.Equal(t, OutcomeFailed, d.Outcomes[0].Kind)
}
