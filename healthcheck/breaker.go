package healthcheck

import (
	"sync/atomic"
	"time"
)

type breakerState int32

const (
	stateClosed breakerState = iota
	stateHalfOpen
	stateOpen
)

// BreakerConfig configures the circuit breaker's trip/recovery behaviour.
type BreakerConfig struct {
	FailureThreshold int32         // consecutive failures before tripping open
	RecoveryTimeout  time.Duration // time an open breaker waits before probing again
}

// circuitBreaker is a 3-state breaker (closed/half-open/open) built on
// atomics so Healthy() never blocks the request path.
type circuitBreaker struct {
	config       BreakerConfig
	state        int32
	failureCount int32
	openedAt     int64
}

func newCircuitBreaker(cfg BreakerConfig) *circuitBreaker {
	return &circuitBreaker{config: cfg, state: int32(stateClosed)}
}

// RecordFailure registers one failed probe, tripping the breaker open once
// the failure threshold is reached.
func (cb *circuitBreaker) RecordFailure() {
	newCount := atomic.AddInt32(&cb.failureCount, 1)
	if newCount >= cb.config.FailureThreshold {
		cb.open()
	}
}

// RecordSuccess closes the breaker and resets its failure count.
func (cb *circuitBreaker) RecordSuccess() {
	atomic.StoreInt32(&cb.state, int32(stateClosed))
	atomic.StoreInt32(&cb.failureCount, 0)
}

func (cb *circuitBreaker) open() {
	atomic.StoreInt32(&cb.state, int32(stateOpen))
	atomic.StoreInt64(&cb.openedAt, time.Now().UnixNano())
}

// Healthy reports whether the breaker currently allows traffic. An open
// breaker transitions to half-open once its recovery timeout elapses and
// then reports healthy; the next failed probe trips it open again and the
// next successful one closes it.
func (cb *circuitBreaker) Healthy() bool {
	switch breakerState(atomic.LoadInt32(&cb.state)) {
	case stateOpen:
		openedAt := atomic.LoadInt64(&cb.openedAt)
		if time.Since(time.Unix(0, openedAt)) >= cb.config.RecoveryTimeout {
			atomic.CompareAndSwapInt32(&cb.state, int32(stateOpen), int32(stateHalfOpen))
			return true
		}
		return false
	default:
		return true
	}
}
