package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distlimit/distlimit/metrics"
	"github.com/distlimit/distlimit/resolver"
	"github.com/distlimit/distlimit/store"
	"github.com/distlimit/distlimit/strategies"

	_ "github.com/distlimit/distlimit/strategies/fixedwindow"
	_ "github.com/distlimit/distlimit/strategies/gcra"
	_ "github.com/distlimit/distlimit/strategies/leakybucket"
	_ "github.com/distlimit/distlimit/strategies/slidingwindowcounter"
	_ "github.com/distlimit/distlimit/strategies/slidingwindowlog"
	_ "github.com/distlimit/distlimit/strategies/tokenbucket"
)

func newTestOrchestrator(t *testing.T, failOpen bool) *Orchestrator {
	t.Helper()
	s := store.NewMemory()
	reg, err := strategies.Build(s)
	require.NoError(t, err)

	r := resolver.New(s, resolver.Config{
		Algorithm:           strategies.TokenBucket,
		Capacity:            10,
		RefillRate:          10,
		RefillPeriodSeconds: 60,
	})
	return New(r, reg, metrics.New(), nil, failOpen)
}

func TestOrchestrator_AllowsWithinCapacity(t *testing.T) {
	o := newTestOrchestrator(t, true)
	ctx := context.Background()

	res, err := o.Check(ctx, "client:1", 1)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 9, res.Remaining)
}

func TestOrchestrator_DeniesOverCapacity(t *testing.T) {
	o := newTestOrchestrator(t, true)
	ctx := context.Background()

	for range 10 {
		_, err := o.Check(ctx, "client:2", 1)
		require.NoError(t, err)
	}
	res, err := o.Check(ctx, "client:2", 1)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}

// brokenStore always fails RunScript with ErrUnavailable, simulating a
// store outage so the failure policy can be exercised deterministically.
type brokenStore struct {
	store.Store
}

func (brokenStore) RunScript(_ context.Context, _ *store.Script, _ []string, _ []any) ([]any, error) {
	return nil, store.ErrUnavailable
}

func TestOrchestrator_FailOpenOnStoreOutage(t *testing.T) {
	inner := store.NewMemory()
	s := brokenStore{Store: inner}
	reg, err := strategies.Build(s)
	require.NoError(t, err)

	r := resolver.New(s, resolver.Config{
		Algorithm: strategies.TokenBucket, Capacity: 10, RefillRate: 10, RefillPeriodSeconds: 60,
	})
	o := New(r, reg, metrics.New(), nil, true)

	res, err := o.Check(context.Background(), "client:3", 1)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, -1, res.Remaining)
}

func TestOrchestrator_FailClosedOnStoreOutage(t *testing.T) {
	inner := store.NewMemory()
	s := brokenStore{Store: inner}
	reg, err := strategies.Build(s)
	require.NoError(t, err)

	r := resolver.New(s, resolver.Config{
		Algorithm: strategies.TokenBucket, Capacity: 10, RefillRate: 10, RefillPeriodSeconds: 60,
	})
	o := New(r, reg, metrics.New(), nil, false)

	res, err := o.Check(context.Background(), "client:4", 1)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 60*time.Second, res.RetryAfter)
}
