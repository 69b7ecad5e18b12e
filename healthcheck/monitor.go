// Package healthcheck runs a background probe of the shared store and
// exposes a circuit breaker's view of its liveness for the /healthz
// endpoint. The orchestrator does not consult it.
package healthcheck

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/distlimit/distlimit/store"
)

// Config configures a Monitor's probe cadence and breaker thresholds.
type Config struct {
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold int32
	RecoveryTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 500 * time.Millisecond
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = 30 * time.Second
	}
	return c
}

// Monitor periodically pings a store and tracks its liveness through a
// circuit breaker.
type Monitor struct {
	store   store.Store
	cfg     Config
	breaker *circuitBreaker
	logger  *slog.Logger

	stopCh chan struct{}

	lastLatencyNanos int64 // atomic
}

// New builds a Monitor for s. Call Start to begin background probing.
func New(s store.Store, cfg Config, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Monitor{
		store:   s,
		cfg:     cfg,
		breaker: newCircuitBreaker(BreakerConfig{FailureThreshold: cfg.FailureThreshold, RecoveryTimeout: cfg.RecoveryTimeout}),
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// Start begins background probing on its own goroutine.
func (m *Monitor) Start() {
	go func() {
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.probe()
			case <-m.stopCh:
				return
			}
		}
	}()
}

// Stop halts background probing.
func (m *Monitor) Stop() {
	close(m.stopCh)
}

func (m *Monitor) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Timeout)
	defer cancel()

	latency, err := m.store.Ping(ctx)
	if err != nil {
		m.breaker.RecordFailure()
		m.logger.Warn("store health probe failed", "error", err)
		return
	}
	atomic.StoreInt64(&m.lastLatencyNanos, int64(latency))
	m.breaker.RecordSuccess()
}

// Healthy reports whether the store is currently considered reachable.
func (m *Monitor) Healthy() bool {
	return m.breaker.Healthy()
}

// LastLatency returns the round-trip time observed on the most recent
// successful probe.
func (m *Monitor) LastLatency() time.Duration {
	return time.Duration(atomic.LoadInt64(&m.lastLatencyNanos))
}
