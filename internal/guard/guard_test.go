package guard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually stepped time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestGuard(clock *fakeClock) *Guard {
	return New(DefaultConfig(), WithClock(clock.Now))
}

func TestLockoutAtCeiling(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	g := newTestGuard(clock)

	// 10 failed attempts, properly spaced.
	for i := 0; i < 10; i++ {
		clock.Advance(time.Second)
		require.NoError(t, g.Allow(ctx), "attempt %d should be allowed", i+1)
		g.RecordFailure(ctx)
	}

	assert.Equal(t, StateLocked, g.State())

	// The 11th attempt is rejected regardless of whether it would have
	// been correct.
	clock.Advance(time.Second)
	err := g.Allow(ctx)
	var limited *RateLimitedError
	require.ErrorAs(t, err, &limited)
	assert.Greater(t, limited.RetryAfter, time.Duration(0))
}

func TestSpacingRejectionDoesNotCountFailures(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	g := newTestGuard(clock)

	clock.Advance(time.Second)
	require.NoError(t, g.Allow(ctx))

	// 0.1s later: under the 0.5s floor.
	clock.Advance(100 * time.Millisecond)
	err := g.Allow(ctx)
	var tooFast *TooFastError
	require.ErrorAs(t, err, &tooFast)

	assert.Equal(t, 0, g.Snapshot().Failures)
}

func TestSpacingTimestampUpdatesOnRejection(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	g := newTestGuard(clock)

	clock.Advance(time.Second)
	require.NoError(t, g.Allow(ctx))

	// Hammering at 0.3s intervals never passes: each rejected attempt
	// still moves the last-request timestamp forward.
	for i := 0; i < 5; i++ {
		clock.Advance(300 * time.Millisecond)
		assert.Error(t, g.Allow(ctx))
	}

	clock.Advance(600 * time.Millisecond)
	assert.NoError(t, g.Allow(ctx))
}

func TestWindowRollover(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	g := newTestGuard(clock)

	for i := 0; i < 10; i++ {
		clock.Advance(time.Second)
		require.NoError(t, g.Allow(ctx))
		g.RecordFailure(ctx)
	}
	assert.Equal(t, StateLocked, g.State())

	// Once the hour elapses past the first failure, the ledger resets and
	// a new failure starts a fresh count.
	clock.Advance(time.Hour)
	require.NoError(t, g.Allow(ctx))
	g.RecordFailure(ctx)

	assert.Equal(t, 1, g.Snapshot().Failures)
	clock.Advance(time.Second)
	assert.Equal(t, StateOpen, g.State())
}

func TestSuccessDoesNotResetFailures(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	g := newTestGuard(clock)

	for i := 0; i < 9; i++ {
		clock.Advance(time.Second)
		require.NoError(t, g.Allow(ctx))
		g.RecordFailure(ctx)
	}

	// A successful attempt: allowed, but not recorded as failure.
	clock.Advance(time.Second)
	require.NoError(t, g.Allow(ctx))
	assert.Equal(t, 9, g.Snapshot().Failures)

	// One more failure still trips the lock.
	clock.Advance(time.Second)
	require.NoError(t, g.Allow(ctx))
	g.RecordFailure(ctx)
	assert.Equal(t, StateLocked, g.State())
}

func TestStateTransitions(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	g := newTestGuard(clock)

	assert.Equal(t, StateOpen, g.State())

	clock.Advance(time.Second)
	require.NoError(t, g.Allow(ctx))
	assert.Equal(t, StateThrottled, g.State())

	clock.Advance(time.Second)
	assert.Equal(t, StateOpen, g.State())
}

func TestConcurrentLedgerUpdates(t *testing.T) {
	ctx := context.Background()
	g := New(Config{MaxFailures: 1000, Window: time.Hour, MinInterval: 0})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = g.Allow(ctx)
				g.RecordFailure(ctx)
			}
		}()
	}
	wg.Wait()

	// No lost updates under race.
	assert.Equal(t, 400, g.Snapshot().Failures)
}

func TestErrorMessagesDoNotLeakTimestamps(t *testing.T) {
	err := &RateLimitedError{RetryAfter: 37*time.Minute + 12*time.Second + 345*time.Millisecond}
	assert.Contains(t, err.Error(), "37m")
	assert.NotContains(t, err.Error(), "12s")

	short := &RateLimitedError{RetryAfter: 3 * time.Second}
	assert.Contains(t, short.Error(), "1m")
}
