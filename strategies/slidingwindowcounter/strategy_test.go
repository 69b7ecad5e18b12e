package slidingwindowcounter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distlimit/distlimit/store"
	"github.com/distlimit/distlimit/strategies"
)

// TestDecide_WeightedAcrossWindows mirrors the sliding-window-counter
// weighting law (prevWeight = (W-elapsed)/W) at whole-second granularity:
// capacity 5, window 4s, a quarter-window elapsed into window k+1 weighs
// window k's count at 0.75, same ratio as the 2s-window/0.5s-elapsed case.
func TestDecide_WeightedAcrossWindows(t *testing.T) {
	ctx := context.Background()
	s := New(store.NewMemory())
	cfg := strategies.Config{Algorithm: strategies.SlidingWindowCounter, Capacity: 5, RefillPeriodSeconds: 4}

	windowK := time.Unix(0, 0)
	for i := 0; i < 5; i++ {
		dec, err := s.Decide(ctx, "k", 1, cfg, windowK)
		require.NoError(t, err)
		assert.True(t, dec.Allowed, "request %d in window k should be allowed", i+1)
	}

	// Window k+1 starts at t=4s; one second (a quarter window) has elapsed.
	tNext := time.Unix(5, 0)
	dec, err := s.Decide(ctx, "k", 1, cfg, tNext)
	require.NoError(t, err)
	assert.True(t, dec.Allowed, "weighted=3.75, one more request should fit under capacity 5")

	dec, err = s.Decide(ctx, "k", 1, cfg, tNext)
	require.NoError(t, err)
	assert.False(t, dec.Allowed, "a second request at the same instant should exceed capacity")
}

func TestDecide_ZeroElapsedAtWindowBoundary(t *testing.T) {
	ctx := context.Background()
	s := New(store.NewMemory())
	cfg := strategies.Config{Algorithm: strategies.SlidingWindowCounter, Capacity: 2, RefillPeriodSeconds: 4}

	dec, err := s.Decide(ctx, "k", 1, cfg, time.Unix(0, 0))
	require.NoError(t, err)
	assert.True(t, dec.Allowed)

	dec, err = s.Decide(ctx, "k", 1, cfg, time.Unix(0, 0))
	require.NoError(t, err)
	assert.True(t, dec.Allowed)

	dec, err = s.Decide(ctx, "k", 1, cfg, time.Unix(0, 0))
	require.NoError(t, err)
	assert.False(t, dec.Allowed, "capacity 2 exhausted at zero elapsed time in the window")
}

func TestReset_SlidingWindowCounter(t *testing.T) {
	ctx := context.Background()
	s := New(store.NewMemory())
	cfg := strategies.Config{Algorithm: strategies.SlidingWindowCounter, Capacity: 1, RefillPeriodSeconds: 4}

	dec, err := s.Decide(ctx, "k", 1, cfg, time.Unix(0, 0))
	require.NoError(t, err)
	require.True(t, dec.Allowed)

	dec, err = s.Decide(ctx, "k", 1, cfg, time.Unix(0, 0))
	require.NoError(t, err)
	require.False(t, dec.Allowed)

	require.NoError(t, s.Reset(ctx, "k"))

	dec, err = s.Decide(ctx, "k", 1, cfg, time.Unix(0, 0))
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}
