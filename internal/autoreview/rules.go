package autoreview

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules configures the built-in reviewers. A section that is absent or has
// enabled: false registers no reviewer.
type Rules struct {
	Keyword struct {
		Enabled bool     `yaml:"enabled"`
		Terms   []string `yaml:"terms"`
	} `yaml:"keyword"`
	Links struct {
		Enabled      bool     `yaml:"enabled"`
		BlockedHosts []string `yaml:"blocked_hosts"`
	} `yaml:"links"`
	Length struct {
		Enabled      bool `yaml:"enabled"`
		RequireTitle bool `yaml:"require_title"`
		MinBody      int  `yaml:"min_body"`
		MaxBody      int  `yaml:"max_body"`
	} `yaml:"length"`
	Moderation struct {
		Enabled       bool    `yaml:"enabled"`
		MinConfidence float64 `yaml:"min_confidence"`
	} `yaml:"moderation"`
}

// DefaultRules is used when no rules file is configured.
func DefaultRules() Rules {
	var r Rules
	r.Length.Enabled = true
	r.Length.RequireTitle = true
	r.Length.MinBody = 1
	return r
}

func LoadRules(path string) (Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules %s: %w", path, err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return Rules{}, fmt.Errorf("rules %s: %w", path, err)
	}
	return rules, nil
}

func ParseRules(data []byte) (Rules, error) {
	var r Rules
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil && !errors.Is(err, io.EOF) {
		return Rules{}, fmt.Errorf("parse rules: %w", err)
	}
	if err := r.validate(); err != nil {
		return Rules{}, err
	}
	return r, nil
}

func (r Rules) validate() error {
	if r.Length.MinBody < 0 || r.Length.MaxBody < 0 {
		return fmt.Errorf("length bounds must not be negative")
	}
	if r.Length.MaxBody > 0 && r.Length.MinBody > r.Length.MaxBody {
		return fmt.Errorf("length.min_body %d exceeds length.max_body %d", r.Length.MinBody, r.Length.MaxBody)
	}
	if r.Moderation.MinConfidence < 0 || r.Moderation.MinConfidence > 1 {
		return fmt.Errorf("moderation.min_confidence must be within [0,1]")
	}
	if r.Keyword.Enabled && len(r.Keyword.Terms) == 0 {
		return fmt.Errorf("keyword reviewer enabled without terms")
	}
	if r.Links.Enabled && len(r.Links.BlockedHosts) == 0 {
		return fmt.Errorf("links reviewer enabled without blocked_hosts")
	}
	return nil
}

// Build returns the enabled reviewers in a fixed order. moderator may be nil
// only when moderation is disabled.
func (r Rules) Build(moderator Moderator) ([]Reviewer, error) {
	var reviewers []Reviewer
	if r.Keyword.Enabled {
		reviewers = append(reviewers, KeywordReviewer{Terms: r.Keyword.Terms})
	}
	if r.Links.Enabled {
		reviewers = append(reviewers, LinkReviewer{BlockedHosts: r.Links.BlockedHosts})
	}
	if r.Length.Enabled {
		reviewers = append(reviewers, LengthReviewer{
			RequireTitle: r.Length.RequireTitle,
			MinBody:      r.Length.MinBody,
			MaxBody:      r.Length.MaxBody,
		})
	}
	if r.Moderation.Enabled {
		if moderator == nil {
			return nil, fmt.Errorf("moderation reviewer enabled but no LLM client configured")
		}
		reviewers = append(reviewers, ModerationReviewer{Moderator: moderator, MinConfidence: r.Moderation.MinConfidence})
	}
	return reviewers, nil
}
