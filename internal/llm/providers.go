package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/mistral"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"github.com/boveda/internal/config"
	"github.com/boveda/internal/ensemble"
)

// groqBaseURL is Groq's OpenAI-compatible endpoint.
const groqBaseURL = "https://api.groq.com/openai/v1"

// FromConfig constructs the enabled provider chain. Providers without a
// credential are omitted entirely; the ensemble never probes the
// environment at query time. Construction fails only when an enabled
// backend cannot be initialized.
func FromConfig(ctx context.Context, cfg *config.Config) ([]ensemble.Provider, error) {
	limit := rate.Limit(float64(cfg.Ensemble.RequestsPerMinute) / 60.0)

	type factory struct {
		name  string
		pc    config.ProviderConfig
		build func(context.Context, config.ProviderConfig) (*backend, error)
	}

	factories := []factory{
		{"gemini", cfg.Providers.Gemini, newGemini},
		{"mistral", cfg.Providers.Mistral, newMistral},
		{"groq", cfg.Providers.Groq, newGroq},
	}

	var providers []ensemble.Provider
	for _, f := range factories {
		if !f.pc.Enabled() {
			log.Info().Str("provider", f.name).Msg("no API key configured, provider disabled")
			continue
		}

		b, err := f.build(ctx, f.pc)
		if err != nil {
			return nil, fmt.Errorf("llm: initializing %s: %w", f.name, err)
		}
		if cfg.Ensemble.RequestsPerMinute > 0 {
			b.limiter = rate.NewLimiter(limit, 1)
		}

		log.Info().
			Str("provider", f.name).
			Str("model", f.pc.Model).
			Int("priority", f.pc.Priority).
			Msg("provider enabled")
		providers = append(providers, b)
	}

	return providers, nil
}

func newGemini(ctx context.Context, pc config.ProviderConfig) (*backend, error) {
	model, err := googleai.New(ctx,
		googleai.WithAPIKey(pc.APIKey),
		googleai.WithDefaultModel(pc.Model),
	)
	if err != nil {
		return nil, err
	}
	return &backend{name: "gemini", priority: pc.Priority, model: pc.Model, llm: model}, nil
}

func newMistral(_ context.Context, pc config.ProviderConfig) (*backend, error) {
	model, err := mistral.New(
		mistral.WithAPIKey(pc.APIKey),
		mistral.WithModel(pc.Model),
	)
	if err != nil {
		return nil, err
	}
	return &backend{name: "mistral", priority: pc.Priority, model: pc.Model, llm: model}, nil
}

func newGroq(_ context.Context, pc config.ProviderConfig) (*backend, error) {
	model, err := openai.New(
		openai.WithToken(pc.APIKey),
		openai.WithModel(pc.Model),
		openai.WithBaseURL(groqBaseURL),
	)
	if err != nil {
		return nil, err
	}
	return &backend{name: "groq", priority: pc.Priority, model: pc.Model, llm: model}, nil
}
