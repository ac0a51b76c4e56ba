// Package llm wires concrete LLM backends into the ensemble through
// langchain abstractions. Three backends are supported: Gemini (Google AI),
// Mistral, and Groq via its OpenAI-compatible endpoint.
package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"golang.org/x/time/rate"

	"github.com/boveda/internal/ensemble"
)

// backend adapts an llms.Model to the ensemble Provider interface.
type backend struct {
	name     string
	priority int
	model    string
	llm      llms.Model
	limiter  *rate.Limiter
}

func (b *backend) Name() string    { return b.name }
func (b *backend) Priority() int   { return b.priority }
func (b *backend) Available() bool { return b.llm != nil }

// Generate performs one invocation against the backend. The limiter paces
// outbound requests so a burst of ensemble queries cannot trip the
// upstream quota.
func (b *backend) Generate(ctx context.Context, req ensemble.Request) (string, error) {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	var messages []llms.MessageContent
	if req.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt))

	opts := []llms.CallOption{llms.WithModel(b.model)}
	if req.JSONMode {
		opts = append(opts, llms.WithJSONMode())
	}

	resp, err := b.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("%s: %w", b.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: response contained no choices", b.name)
	}

	text := resp.Choices[0].Content
	log.Debug().
		Str("provider", b.name).
		Str("model", b.model).
		Int("response_chars", len(text)).
		Msg("backend generated response")
	return text, nil
}
