// Package metrics exposes the named counters and timers the decision
// orchestrator and store adapter feed, backed by the Prometheus client
// library.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the named counters/timers surface of the spec's component #6.
type Metrics struct {
	decisionsTotal    *prometheus.CounterVec
	decisionLatency   *prometheus.HistogramVec
	storeErrorsTotal  *prometheus.CounterVec
	reg               *prometheus.Registry
}

// New builds a Metrics instance registered against a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		decisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "distlimit_decisions_total",
			Help: "Total number of rate-limit decisions made, by algorithm and outcome.",
		}, []string{"algorithm", "outcome"}),
		decisionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "distlimit_decision_latency_seconds",
			Help:    "Latency of a single decide() call against the store, by algorithm.",
			Buckets: prometheus.DefBuckets,
		}, []string{"algorithm"}),
		storeErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "distlimit_store_errors_total",
			Help: "Total number of store-level failures, by kind (unavailable, script, unknown).",
		}, []string{"kind"}),
		reg: reg,
	}

	reg.MustRegister(m.decisionsTotal, m.decisionLatency, m.storeErrorsTotal)
	return m
}

// Registry exposes the Prometheus registry for the /metrics HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// ObserveDecision records one decision outcome and its latency.
func (m *Metrics) ObserveDecision(algorithm string, allowed bool, latency time.Duration) {
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	m.decisionsTotal.WithLabelValues(algorithm, outcome).Inc()
	m.decisionLatency.WithLabelValues(algorithm).Observe(latency.Seconds())
}

// ObserveStoreError records a store-level failure of the given kind
// ("unavailable", "script", or "unknown" for a failure that is neither).
func (m *Metrics) ObserveStoreError(kind string) {
	m.storeErrorsTotal.WithLabelValues(kind).Inc()
}
