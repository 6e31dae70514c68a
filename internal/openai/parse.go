package openai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

type ModerationVerdict struct {
	Verdict    string   `json:"verdict"`
	Reason     string   `json:"reason"`
	Categories []string `json:"categories"`
	Confidence float64  `json:"confidence"`
}

func (v ModerationVerdict) Approved() bool {
	return v.Verdict == "approve"
}

var moderationAllowedKeys = map[string]struct{}{
	"verdict":    {},
	"reason":     {},
	"categories": {},
	"confidence": {},
}

// ParseModerationVerdict strictly decodes a model reply. Unknown keys,
// missing keys, trailing data and out-of-range values are all errors.
func ParseModerationVerdict(raw string) (ModerationVerdict, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ModerationVerdict{}, fmt.Errorf("empty model output")
	}
	if err := validateKeys(trimmed, moderationAllowedKeys, []string{"verdict", "reason", "confidence"}); err != nil {
		return ModerationVerdict{}, err
	}

	var v ModerationVerdict
	if err := strictDecode([]byte(trimmed), &v); err != nil {
		return ModerationVerdict{}, err
	}
	v.Verdict = strings.ToLower(strings.TrimSpace(v.Verdict))
	switch v.Verdict {
	case "approve":
	case "reject":
		if strings.TrimSpace(v.Reason) == "" {
			return ModerationVerdict{}, fmt.Errorf("reject verdict without reason")
		}
	default:
		return ModerationVerdict{}, fmt.Errorf("unknown verdict %q", v.Verdict)
	}
	if v.Confidence < 0 || v.Confidence > 1 {
		return ModerationVerdict{}, fmt.Errorf("confidence %v out of range [0,1]", v.Confidence)
	}
	return v, nil
}

func strictDecode(data []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("unexpected trailing data")
	}
	return nil
}

func validateKeys(raw string, allowed map[string]struct{}, required []string) error {
	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &rawMap); err != nil {
		return err
	}
	for k := range rawMap {
		if _, ok := allowed[k]; !ok {
			return fmt.Errorf("unknown key %q, allowed: %v", k, sortedKeys(allowed))
		}
	}
	for _, req := range required {
		if _, ok := rawMap[req]; !ok {
			return fmt.Errorf("missing required key %q", req)
		}
	}
	return nil
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
