package guard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, action string) *SQLStore {
	t.Helper()
	store, err := OpenStore(context.Background(), "file::memory:?cache=shared", action)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreLoadEmpty(t *testing.T) {
	store := openTestStore(t, "unlock-empty")

	_, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, "unlock-roundtrip")

	ledger := Ledger{
		WindowStart: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
		Failures:    4,
		LastRequest: time.Date(2026, 1, 1, 10, 5, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(ctx, ledger))

	// Upsert: saving again overwrites the same row.
	ledger.Failures = 5
	require.NoError(t, store.Save(ctx, ledger))

	got, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, got.Failures)
	assert.True(t, got.WindowStart.Equal(ledger.WindowStart))
	assert.True(t, got.LastRequest.Equal(ledger.LastRequest))
}

func TestGuardSurvivesRestartWithStore(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := openTestStore(t, "unlock-restart")

	g := New(DefaultConfig(), WithClock(clock.Now), WithStore(ctx, store))
	for i := 0; i < 10; i++ {
		clock.Advance(time.Second)
		require.NoError(t, g.Allow(ctx))
		g.RecordFailure(ctx)
	}
	assert.Equal(t, StateLocked, g.State())

	// A fresh guard over the same store starts locked.
	restarted := New(DefaultConfig(), WithClock(clock.Now), WithStore(ctx, store))
	assert.Equal(t, StateLocked, restarted.State())

	clock.Advance(time.Second)
	var limited *RateLimitedError
	assert.ErrorAs(t, restarted.Allow(ctx), &limited)
}
