package healthcheck

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/distlimit/distlimit/store"
)

type flakyStore struct {
	store.Store
	fail bool
}

func (f *flakyStore) Ping(ctx context.Context) (time.Duration, error) {
	if f.fail {
		return 0, errors.New("simulated outage")
	}
	return time.Millisecond, nil
}

func TestMonitor_TripsOpenAfterThreshold(t *testing.T) {
	fs := &flakyStore{fail: true}
	m := New(fs, Config{FailureThreshold: 2, RecoveryTimeout: 50 * time.Millisecond}, nil)

	assert.True(t, m.Healthy())
	m.probe()
	assert.True(t, m.Healthy())
	m.probe()
	assert.False(t, m.Healthy())
}

func TestMonitor_RecoversAfterTimeout(t *testing.T) {
	fs := &flakyStore{fail: true}
	m := New(fs, Config{FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond}, nil)

	m.probe()
	assert.False(t, m.Healthy())

	time.Sleep(20 * time.Millisecond)
	assert.True(t, m.Healthy())

	fs.fail = false
	m.probe()
	assert.True(t, m.Healthy())
}
