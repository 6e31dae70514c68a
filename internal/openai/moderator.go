package openai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Moderator asks the model for a publish verdict on one piece of content.
// A reply that fails strict parsing gets one repair round trip.
type Moderator struct {
	LLM     Client
	Model   string
	Timeout time.Duration
	// MaxRepair bounds repair attempts after an unparsable reply.
	MaxRepair int
}

func (m *Moderator) Moderate(ctx context.Context, contentType, title, text string) (ModerationVerdict, error) {
	req := CompletionRequest{
		Model:        m.Model,
		SystemPrompt: MODERATION_SYSTEM,
		UserPrompt:   BuildModerationUserPrompt(contentType, title, text),
		Timeout:      m.Timeout,
	}
	raw, err := m.LLM.CompleteJSON(ctx, req)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Retryable() && ctx.Err() == nil {
		// One immediate retry; the caller's deadline bounds the total.
		raw, err = m.LLM.CompleteJSON(ctx, req)
	}
	if err != nil {
		return ModerationVerdict{}, fmt.Errorf("moderation request: %w", err)
	}

	verdict, parseErr := ParseModerationVerdict(raw)
	for attempt := 0; parseErr != nil && attempt < m.MaxRepair; attempt++ {
		raw, err = m.LLM.CompleteJSON(ctx, CompletionRequest{
			Model:        m.Model,
			SystemPrompt: REPAIR_SYSTEM,
			UserPrompt:   BuildRepairUserPrompt(raw, parseErr),
			Timeout:      m.Timeout,
		})
		if err != nil {
			return ModerationVerdict{}, fmt.Errorf("moderation repair request: %w", err)
		}
		verdict, parseErr = ParseModerationVerdict(raw)
	}
	if parseErr != nil {
		return ModerationVerdict{}, fmt.Errorf("parse moderation verdict: %w", parseErr)
	}
	return verdict, nil
}
