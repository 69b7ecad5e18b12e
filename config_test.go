package distlimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 6379, cfg.Port)
	assert.True(t, cfg.FailOpen)
	assert.Equal(t, 100, cfg.Default.Capacity)
}

func TestNewConfig_AppliesOptions(t *testing.T) {
	cfg, err := NewConfig(
		WithHost("redis.internal"),
		WithPort(7000),
		WithFailOpen(false),
		WithDefaultBucket(50, 25, 30),
	)
	require.NoError(t, err)

	assert.Equal(t, "redis.internal", cfg.Host)
	assert.Equal(t, 7000, cfg.Port)
	assert.False(t, cfg.FailOpen)
	assert.Equal(t, 50, cfg.Default.Capacity)
	assert.Equal(t, 25.0, cfg.Default.RefillRate)
	assert.Equal(t, 30, cfg.Default.RefillPeriodSeconds)
}

func TestNewConfig_RejectsInvalidOption(t *testing.T) {
	_, err := NewConfig(WithPort(0))
	assert.Error(t, err)

	_, err = NewConfig(WithHost(""))
	assert.Error(t, err)

	_, err = NewConfig(WithCommandTimeout(0))
	assert.Error(t, err)

	_, err = NewConfig(WithDefaultBucket(0, 1, 1))
	assert.Error(t, err)
}

func TestWithPool_ValidatesBounds(t *testing.T) {
	_, err := NewConfig(WithPool(PoolConfig{MaxActive: 0}))
	assert.Error(t, err)

	_, err = NewConfig(WithPool(PoolConfig{MaxActive: 10, MinIdle: 5, MaxIdle: 2}))
	assert.Error(t, err)

	cfg, err := NewConfig(WithPool(PoolConfig{MaxActive: 10, MinIdle: 1, MaxIdle: 5, MaxWait: time.Second}))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Pool.MaxActive)
}

func TestFromEnv_ReadsRecognisedVariables(t *testing.T) {
	t.Setenv("DISTLIMIT_HOST", "env-host")
	t.Setenv("DISTLIMIT_PORT", "6380")
	t.Setenv("DISTLIMIT_FAIL_OPEN", "false")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "env-host", cfg.Host)
	assert.Equal(t, 6380, cfg.Port)
	assert.False(t, cfg.FailOpen)
}
