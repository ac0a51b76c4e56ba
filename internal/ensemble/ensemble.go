// Package ensemble delivers a single text response for a prompt by trying
// an ordered chain of LLM providers, masking individual provider outages
// behind failover.
//
// The chain is a strict priority order with short-circuit: the first
// provider that answers wins and later providers are never invoked. There
// are no internal retries and no fan-out; one Query is one pass over the
// chain, each attempt bounded by its own timeout, so the worst case cost
// is the sum of the configured timeouts.
package ensemble

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds a single provider invocation when the request does
// not carry its own timeout.
const DefaultTimeout = 30 * time.Second

// Request is one ensemble call. It is created per call and not persisted.
type Request struct {
	Prompt   string
	System   string // optional structured context / system instruction
	JSONMode bool   // ask the provider for a JSON object response
	Timeout  time.Duration
}

// Provider is one LLM backend in the chain.
//
// Priority defines the total order in which providers are attempted
// (lower first). Available reports whether the provider is configured;
// unavailable providers are skipped without counting as failures.
type Provider interface {
	Name() string
	Priority() int
	Available() bool
	Generate(ctx context.Context, req Request) (string, error)
}

// Outcome classifies one trace entry.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Attempt is the diagnostic record of one provider in one Query call.
// Every configured provider produces exactly one entry per call.
type Attempt struct {
	Provider string        `json:"provider"`
	Outcome  Outcome       `json:"outcome"`
	Latency  time.Duration `json:"latency"`
	ErrKind  string        `json:"err_kind,omitempty"`
	Detail   string        `json:"detail,omitempty"`
}

// Result is a successful ensemble answer.
type Result struct {
	RequestID string
	Provider  string // name of the provider that answered
	Text      string
	Trace     []Attempt
}

// Ensemble is an ordered failover chain. It is immutable after New.
type Ensemble struct {
	providers []Provider
	timeout   time.Duration
}

// Option configures an Ensemble.
type Option func(*Ensemble)

// WithDefaultTimeout overrides the per-provider timeout used when a
// request does not set one.
func WithDefaultTimeout(d time.Duration) Option {
	return func(e *Ensemble) { e.timeout = d }
}

// New builds an ensemble over the given providers, ordered by ascending
// priority. The chain length is whatever the configuration enabled; it is
// not fixed at three.
func New(providers []Provider, opts ...Option) *Ensemble {
	ordered := append([]Provider(nil), providers...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() < ordered[j].Priority()
	})

	e := &Ensemble{providers: ordered, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Providers returns the chain in attempt order.
func (e *Ensemble) Providers() []Provider {
	return append([]Provider(nil), e.providers...)
}

// Query attempts each provider in priority order and returns the first
// success. On total exhaustion it fails with *ExhaustedError carrying the
// full attempt trace.
func (e *Ensemble) Query(ctx context.Context, req Request) (*Result, error) {
	requestID := uuid.NewString()
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.timeout
	}

	trace := make([]Attempt, 0, len(e.providers))

	for i, p := range e.providers {
		if !p.Available() {
			trace = append(trace, Attempt{
				Provider: p.Name(),
				Outcome:  OutcomeSkipped,
				ErrKind:  KindUnconfigured,
			})
			log.Debug().
				Str("request_id", requestID).
				Str("provider", p.Name()).
				Msg("provider unconfigured, skipping")
			continue
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		start := time.Now()
		text, err := p.Generate(attemptCtx, req)
		latency := time.Since(start)
		cancel()

		if err == nil && text == "" {
			err = fmt.Errorf("provider returned an empty response")
		}

		if err != nil {
			kind := Classify(err)
			trace = append(trace, Attempt{
				Provider: p.Name(),
				Outcome:  OutcomeFailed,
				Latency:  latency,
				ErrKind:  kind,
				Detail:   err.Error(),
			})
			log.Warn().
				Str("request_id", requestID).
				Str("provider", p.Name()).
				Str("err_kind", kind).
				Dur("latency", latency).
				Err(err).
				Msg("provider failed, advancing to next")
			continue
		}

		trace = append(trace, Attempt{
			Provider: p.Name(),
			Outcome:  OutcomeOK,
			Latency:  latency,
		})

		// Short-circuit: the rest of the chain is never invoked.
		for _, rest := range e.providers[i+1:] {
			trace = append(trace, Attempt{
				Provider: rest.Name(),
				Outcome:  OutcomeSkipped,
				ErrKind:  KindNotAttempted,
			})
		}

		log.Info().
			Str("request_id", requestID).
			Str("provider", p.Name()).
			Dur("latency", latency).
			Int("response_chars", len(text)).
			Msg("ensemble query answered")

		return &Result{
			RequestID: requestID,
			Provider:  p.Name(),
			Text:      text,
			Trace:     trace,
		}, nil
	}

	log.Error().
		Str("request_id", requestID).
		Int("providers", len(e.providers)).
		Msg("ensemble exhausted")

	return nil, &ExhaustedError{RequestID: requestID, Trace: trace}
}
