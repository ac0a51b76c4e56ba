// Package guard enforces the abuse policy in front of untrusted entry
// points: a minimum spacing between attempts and a hard ceiling on failed
// attempts within a rolling window.
//
// The ledger is owned by the Guard and mutated only under its mutex; there
// is no package-level state. A successful unlock never resets the failure
// count; only window expiry does, so a lucky guess inside a brute-force
// window does not wipe the record of abuse that preceded it.
package guard

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// State describes the guard for diagnostics and user-facing messages.
type State string

const (
	StateOpen      State = "open"
	StateThrottled State = "throttled"
	StateLocked    State = "locked"
)

// Config holds the guard policy knobs.
type Config struct {
	MaxFailures int           // failed attempts within Window before lockout
	Window      time.Duration // rolling failure window
	MinInterval time.Duration // minimum spacing between attempts
}

// DefaultConfig mirrors the documented policy: 10 failures per hour,
// half a second between attempts.
func DefaultConfig() Config {
	return Config{
		MaxFailures: 10,
		Window:      time.Hour,
		MinInterval: 500 * time.Millisecond,
	}
}

// Ledger is the in-memory record behind the guard. WindowStart is zero
// until the first failure of a window.
type Ledger struct {
	WindowStart time.Time
	Failures    int
	LastRequest time.Time
}

// Store persists the ledger across restarts. Implementations must be safe
// for sequential use under the guard's mutex.
type Store interface {
	Load(ctx context.Context) (Ledger, bool, error)
	Save(ctx context.Context, ledger Ledger) error
}

// Guard is the rate limiter for one protected action.
type Guard struct {
	mu     sync.Mutex
	cfg    Config
	ledger Ledger
	now    func() time.Time
	store  Store
}

// Option configures a Guard.
type Option func(*Guard)

// WithClock substitutes the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// WithStore attaches ledger persistence. The ledger is loaded eagerly so
// a restart does not forget an in-progress lockout.
func WithStore(ctx context.Context, store Store) Option {
	return func(g *Guard) {
		g.store = store
		ledger, ok, err := store.Load(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("guard: could not load persisted ledger, starting fresh")
			return
		}
		if ok {
			g.ledger = ledger
		}
	}
}

// New creates a Guard with the given policy.
func New(cfg Config, opts ...Option) *Guard {
	g := &Guard{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Allow must be consulted before every guarded attempt. It returns nil
// when the attempt may proceed, *RateLimitedError while locked, and
// *TooFastError when the attempt arrives under the minimum spacing.
//
// Every attempt, allowed or rejected, updates the last-request timestamp,
// so hammering faster than the floor never passes. Spacing rejections do
// not consume a failure credit.
func (g *Guard) Allow(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.rollWindowLocked(now)

	last := g.ledger.LastRequest
	g.ledger.LastRequest = now
	defer g.persistLocked(ctx)

	if g.ledger.Failures >= g.cfg.MaxFailures {
		retryAfter := g.ledger.WindowStart.Add(g.cfg.Window).Sub(now)
		log.Warn().Dur("retry_after", retryAfter).Msg("guard: attempt rejected, locked")
		return &RateLimitedError{RetryAfter: retryAfter}
	}

	if !last.IsZero() {
		if elapsed := now.Sub(last); elapsed < g.cfg.MinInterval {
			return &TooFastError{RetryAfter: g.cfg.MinInterval - elapsed}
		}
	}

	return nil
}

// RecordFailure charges one failed attempt against the rolling window.
// Only semantically wrong attempts should be recorded; spacing rejections
// never reach this point.
func (g *Guard) RecordFailure(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.rollWindowLocked(now)

	if g.ledger.Failures == 0 {
		g.ledger.WindowStart = now
	}
	g.ledger.Failures++
	g.persistLocked(ctx)

	log.Info().
		Int("failures", g.ledger.Failures).
		Int("ceiling", g.cfg.MaxFailures).
		Msg("guard: failed attempt recorded")
}

// State reports the current state without consuming an attempt.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.rollWindowLocked(now)

	switch {
	case g.ledger.Failures >= g.cfg.MaxFailures:
		return StateLocked
	case !g.ledger.LastRequest.IsZero() && now.Sub(g.ledger.LastRequest) < g.cfg.MinInterval:
		return StateThrottled
	default:
		return StateOpen
	}
}

// Snapshot returns a copy of the ledger for diagnostics.
func (g *Guard) Snapshot() Ledger {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ledger
}

// rollWindowLocked resets the failure count once the window has fully
// elapsed since the first failure in it.
func (g *Guard) rollWindowLocked(now time.Time) {
	if g.ledger.WindowStart.IsZero() {
		return
	}
	if now.Sub(g.ledger.WindowStart) >= g.cfg.Window {
		g.ledger.Failures = 0
		g.ledger.WindowStart = time.Time{}
	}
}

// persistLocked saves the ledger when a store is attached. Persistence is
// best-effort: a storage failure must not take the guard down with it.
func (g *Guard) persistLocked(ctx context.Context) {
	if g.store == nil {
		return
	}
	if err := g.store.Save(ctx, g.ledger); err != nil {
		log.Warn().Err(err).Msg("guard: could not persist ledger")
	}
}
