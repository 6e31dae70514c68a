package autoreview

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleRules = `
keyword:
  enabled: true
  terms: [casino, "miracle cure"]
links:
  enabled: true
  blocked_hosts:
    - spam.example
length:
  enabled: true
  require_title: true
  min_body: 10
  max_body: 50000
moderation:
  enabled: true
  min_confidence: 0.7
`

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleRules), 0o600))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.Equal(t, []string{"casino", "miracle cure"}, rules.Keyword.Terms)
	require.Equal(t, 10, rules.Length.MinBody)
	require.InDelta(t, 0.7, rules.Moderation.MinConfidence, 1e-9)

	reviewers, err := rules.Build(&stubModerator{})
	require.NoError(t, err)
	names := NewOrchestrator(reviewers, Options{}, nil).Reviewers()
	require.Equal(t, []string{"keyword", "links", "length", "moderation"}, names)

	_, err = rules.Build(nil)
	require.ErrorContains(t, err, "no LLM client")
}

func TestLoadRulesDefaults(t *testing.T) {
	rules, err := LoadRules("")
	require.NoError(t, err)
	reviewers, err := rules.Build(nil)
	require.NoError(t, err)
	require.Len(t, reviewers, 1)
	require.Equal(t, "length", reviewers[0].Name())
}

func TestParseRulesRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown field":   "keyword:\n  enabled: true\n  words: [x]\n",
		"inverted bounds": "length:\n  enabled: true\n  min_body: 10\n  max_body: 5\n",
		"empty keywords":  "keyword:\n  enabled: true\n",
		"confidence":      "moderation:\n  min_confidence: 2\n",
		"not yaml":        "keyword: [",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRules([]byte(raw))
			require.Error(t, err)
		})
	}

	rules, err := ParseRules(nil)
	require.NoError(t, err)
	reviewers, err := rules.Build(nil)
	require.NoError(t, err)
	require.Empty(t, reviewers)
}

func TestLoadRulesMissingFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorContains(t, err, "read rules")
}
