// Package leakybucket implements the leaky bucket algorithm: requests fill
// a queue that drains at a constant rate, admitting no burst beyond its
// capacity.
package leakybucket

import (
	"context"
	_ "embed"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/distlimit/distlimit/store"
	"github.com/distlimit/distlimit/strategies"
)

//go:embed leakybucket.lua
var luaSource string

const ttlSeconds = 3600

var script = store.NewScript("leaky_bucket", luaSource)

type Strategy struct {
	store store.Store
}

func New(s store.Store) *Strategy {
	return &Strategy{store: s}
}

func (s *Strategy) Decide(ctx context.Context, key string, tokens int, cfg strategies.Config, now time.Time) (strategies.Decision, error) {
	storeKey := strategies.BuildKey("ratelimit:leaky", key)
	leakRate := cfg.RefillRate / float64(cfg.RefillPeriodSeconds)

	tuple, err := s.store.RunScript(ctx, script, []string{storeKey}, []any{
		cfg.Capacity, leakRate, now.UnixMilli(), tokens, ttlSeconds,
	})
	if err != nil {
		return strategies.Decision{}, strategies.NewCheckFailedError("leaky_bucket:decide", err)
	}
	if len(tuple) != 3 {
		return strategies.Decision{}, strategies.NewCheckFailedError("leaky_bucket:decode", fmt.Errorf("expected 3-element tuple, got %d", len(tuple)))
	}
	allowedN, ok := toInt64(tuple[0])
	if !ok {
		return strategies.Decision{}, strategies.NewCheckFailedError("leaky_bucket:decode", fmt.Errorf("bad allowed field %v", tuple[0]))
	}
	queueSize, err := parseFloatField(tuple[1])
	if err != nil {
		return strategies.Decision{}, strategies.NewCheckFailedError("leaky_bucket:decode", err)
	}
	thirdMs, err := parseFloatField(tuple[2])
	if err != nil {
		return strategies.Decision{}, strategies.NewCheckFailedError("leaky_bucket:decode", err)
	}

	allowed := allowedN == 1
	remaining := int(cfg.Capacity) - int(queueSize)
	if remaining < 0 {
		remaining = 0
	}

	dec := strategies.Decision{
		Allowed:   allowed,
		Remaining: remaining,
		ResetAt:   now.Add(time.Duration(cfg.RefillPeriodSeconds) * time.Second),
		Algorithm: strategies.LeakyBucket,
	}
	if !allowed {
		retry := time.Duration(thirdMs) * time.Millisecond
		if thirdMs <= 0 || math.IsNaN(thirdMs) || math.IsInf(thirdMs, 0) {
			retry = time.Second
		}
		dec.RetryAfter = retry
	}
	return dec, nil
}

func (s *Strategy) Reset(ctx context.Context, key string) error {
	return s.store.Delete(ctx, strategies.BuildKey("ratelimit:leaky", key))
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

func parseFloatField(v any) (float64, error) {
	switch n := v.(type) {
	case string:
		return strconv.ParseFloat(n, 64)
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("unexpected field type %T", v)
	}
}
