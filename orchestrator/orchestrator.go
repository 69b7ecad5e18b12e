// Package orchestrator implements the decision orchestrator: resolve a
// bucket's configuration, dispatch to the matching algorithm strategy,
// measure latency, and apply the fail-open/fail-closed policy on failure.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/distlimit/distlimit/metrics"
	"github.com/distlimit/distlimit/resolver"
	"github.com/distlimit/distlimit/store"
	"github.com/distlimit/distlimit/strategies"
)

// Result is the orchestrator's response to a check, enriched with the
// metadata the HTTP boundary surfaces.
type Result struct {
	strategies.Decision
	Key           string
	MatchedPattern string
	LatencyMicros int64
}

// Orchestrator wires the resolver and strategy registry together under a
// boot-time fail-open/fail-closed policy.
type Orchestrator struct {
	resolver *resolver.Resolver
	registry *strategies.Registry
	metrics  *metrics.Metrics
	logger   *slog.Logger
	failOpen bool
}

// New builds an Orchestrator. failOpen is a boot-time choice, not a
// per-request one.
func New(r *resolver.Resolver, reg *strategies.Registry, m *metrics.Metrics, logger *slog.Logger, failOpen bool) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{resolver: r, registry: reg, metrics: m, logger: logger, failOpen: failOpen}
}

// Check resolves key's configuration, dispatches to its strategy, and
// returns the decision. On a strategy or store failure it never returns an
// error to the caller: it applies the configured failure policy instead,
// per the spec's "neither mode returns 5xx for a transient store fault".
func (o *Orchestrator) Check(ctx context.Context, key string, tokens int) (Result, error) {
	cfg, err := o.resolver.GetConfig(ctx, key)
	if err != nil {
		o.logger.Error("resolve config failed", "key", key, "error", err)
		return o.failureResult(key, strategies.AlgorithmTag(""), err), nil
	}

	strat, err := o.registry.Get(cfg.Algorithm)
	if err != nil {
		// Missing algorithm at dispatch time is an internal invariant
		// violation: impossible after a valid registry.Build, so this is
		// the one case that propagates as a real error.
		o.logger.Error("strategy dispatch failed", "algorithm", cfg.Algorithm, "error", err)
		return Result{}, err
	}

	start := time.Now()
	decision, err := strat.Decide(ctx, key, tokens, cfg.StrategyConfig(), start)
	latency := time.Since(start)

	if err != nil {
		o.recordStoreError(err)
		o.logger.Warn("decision failed, applying failure policy", "key", key, "algorithm", cfg.Algorithm, "error", err)
		return o.failureResult(key, cfg.Algorithm, err), nil
	}

	o.metrics.ObserveDecision(string(cfg.Algorithm), decision.Allowed, latency)

	matched := ""
	if cfg.KeyPattern != "" && cfg.KeyPattern != key {
		matched = cfg.KeyPattern
	}

	return Result{
		Decision:       decision,
		Key:            key,
		MatchedPattern: matched,
		LatencyMicros:  latency.Microseconds(),
	}, nil
}

func (o *Orchestrator) recordStoreError(err error) {
	switch {
	case store.IsUnavailable(err):
		o.metrics.ObserveStoreError("unavailable")
	case store.IsScriptFailed(err):
		o.metrics.ObserveStoreError("script")
	default:
		o.metrics.ObserveStoreError("unknown")
	}
}

// failureResult applies the boot-time fail-open/fail-closed policy.
func (o *Orchestrator) failureResult(key string, algo strategies.AlgorithmTag, _ error) Result {
	if o.failOpen {
		return Result{
			Decision: strategies.Decision{
				Allowed:   true,
				Remaining: -1,
				Algorithm: algo,
			},
			Key: key,
		}
	}
	return Result{
		Decision: strategies.Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: 60 * time.Second,
			Algorithm:  algo,
		},
		Key: key,
	}
}
