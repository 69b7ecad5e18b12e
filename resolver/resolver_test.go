package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distlimit/distlimit/store"
	"github.com/distlimit/distlimit/strategies"
)

func defaultConfig() Config {
	return Config{
		Algorithm:           strategies.TokenBucket,
		Capacity:            10,
		RefillRate:          10,
		RefillPeriodSeconds: 60,
	}
}

func TestGetConfig_FallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	r := New(store.NewMemory(), defaultConfig())

	cfg, err := r.GetConfig(ctx, "nobody:here")
	require.NoError(t, err)
	assert.Equal(t, strategies.TokenBucket, cfg.Algorithm)
	assert.Equal(t, 10, cfg.Capacity)
}

func TestSaveKeyConfig_RoundTrip(t *testing.T) {
	ctx := context.Background()
	r := New(store.NewMemory(), defaultConfig())

	cfg := Config{
		Algorithm:           strategies.FixedWindow,
		Capacity:            5,
		RefillRate:          5,
		RefillPeriodSeconds: 10,
	}
	require.NoError(t, r.SaveKeyConfig(ctx, "tenant:1", cfg))

	got, err := r.GetConfig(ctx, "tenant:1")
	require.NoError(t, err)
	assert.Equal(t, cfg.Algorithm, got.Algorithm)
	assert.Equal(t, cfg.Capacity, got.Capacity)
	assert.Equal(t, cfg.RefillRate, got.RefillRate)
	assert.Equal(t, cfg.RefillPeriodSeconds, got.RefillPeriodSeconds)
}

func TestPatternPrecedence(t *testing.T) {
	ctx := context.Background()
	r := New(store.NewMemory(), defaultConfig())

	low := Config{Algorithm: strategies.TokenBucket, Capacity: 10, RefillRate: 10, RefillPeriodSeconds: 60, Priority: 10}
	high := Config{Algorithm: strategies.TokenBucket, Capacity: 50, RefillRate: 50, RefillPeriodSeconds: 60, Priority: 50}

	require.NoError(t, r.SavePatternConfig(ctx, "user:*", low))
	require.NoError(t, r.SavePatternConfig(ctx, "user:premium:*", high))

	cfg, err := r.GetConfig(ctx, "user:premium:x")
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Capacity)

	cfg, err = r.GetConfig(ctx, "user:free:x")
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Capacity)

	require.NoError(t, r.DeletePatternConfig(ctx, "user:premium:*"))

	cfg, err = r.GetConfig(ctx, "user:premium:x")
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Capacity)
}

func TestSavePatternConfig_InvalidatesExactCache(t *testing.T) {
	ctx := context.Background()
	r := New(store.NewMemory(), defaultConfig())

	_, err := r.GetConfig(ctx, "user:x")
	require.NoError(t, err)

	require.NoError(t, r.SavePatternConfig(ctx, "user:*", Config{
		Algorithm: strategies.TokenBucket, Capacity: 99, RefillRate: 10, RefillPeriodSeconds: 60,
	}))

	cfg, err := r.GetConfig(ctx, "user:x")
	require.NoError(t, err)
	assert.Equal(t, 99, cfg.Capacity)
}

func TestReloadConfigurations(t *testing.T) {
	ctx := context.Background()
	r := New(store.NewMemory(), defaultConfig())

	require.NoError(t, r.SavePatternConfig(ctx, "a:*", Config{
		Algorithm: strategies.TokenBucket, Capacity: 7, RefillRate: 1, RefillPeriodSeconds: 60,
	}))
	require.NoError(t, r.ReloadConfigurations(ctx))

	cfg, err := r.GetConfig(ctx, "a:1")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Capacity)
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", defaultConfig(), false},
		{"bad algorithm", Config{Algorithm: "NOPE", Capacity: 1, RefillRate: 1, RefillPeriodSeconds: 1}, true},
		{"zero capacity", Config{Algorithm: strategies.TokenBucket, Capacity: 0, RefillRate: 1, RefillPeriodSeconds: 1}, true},
		{"zero rate", Config{Algorithm: strategies.TokenBucket, Capacity: 1, RefillRate: 0, RefillPeriodSeconds: 1}, true},
		{"zero period", Config{Algorithm: strategies.TokenBucket, Capacity: 1, RefillRate: 1, RefillPeriodSeconds: 0}, true},
		{"sliding window too large", Config{Algorithm: strategies.SlidingWindow, Capacity: 10001, RefillRate: 1, RefillPeriodSeconds: 1}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.cfg.Validate()
			if c.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
