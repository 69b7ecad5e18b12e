// Package tokenbucket implements the token bucket rate-limit algorithm:
// a bucket refills continuously at a fixed rate up to a capacity, and each
// request consumes the tokens it costs.
package tokenbucket

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/distlimit/distlimit/store"
	"github.com/distlimit/distlimit/strategies"
)

//go:embed tokenbucket.lua
var luaSource string

const ttlSeconds = 3600

var script = store.NewScript("token_bucket", luaSource)

// Strategy implements strategies.Strategy for the token bucket algorithm.
type Strategy struct {
	store store.Store
}

func New(s store.Store) *Strategy {
	return &Strategy{store: s}
}

func (s *Strategy) Decide(ctx context.Context, key string, tokens int, cfg strategies.Config, now time.Time) (strategies.Decision, error) {
	storeKey := strategies.BuildKey("ratelimit:bucket", key)
	rate := cfg.RefillRate / float64(cfg.RefillPeriodSeconds)

	tuple, err := s.store.RunScript(ctx, script, []string{storeKey}, []any{
		cfg.Capacity, rate, now.UnixMilli(), tokens, ttlSeconds,
	})
	if err != nil {
		return strategies.Decision{}, strategies.NewCheckFailedError("token_bucket:decide", err)
	}

	allowed, remaining, retryAfterMs, err := decodeTuple(tuple)
	if err != nil {
		return strategies.Decision{}, strategies.NewCheckFailedError("token_bucket:decode", err)
	}

	return strategies.Decision{
		Allowed:    allowed,
		Remaining:  remaining,
		ResetAt:    now.Add(time.Duration(cfg.RefillPeriodSeconds) * time.Second),
		RetryAfter: time.Duration(retryAfterMs) * time.Millisecond,
		Algorithm:  strategies.TokenBucket,
	}, nil
}

func (s *Strategy) Reset(ctx context.Context, key string) error {
	return s.store.Delete(ctx, strategies.BuildKey("ratelimit:bucket", key))
}

func decodeTuple(tuple []any) (allowed bool, remaining int, retryAfterMs float64, err error) {
	if len(tuple) != 3 {
		return false, 0, 0, fmt.Errorf("expected 3-element tuple, got %d", len(tuple))
	}
	allowedN, ok := toInt64(tuple[0])
	if !ok {
		return false, 0, 0, fmt.Errorf("bad allowed field %v", tuple[0])
	}
	remainingF, err := parseFloatField(tuple[1])
	if err != nil {
		return false, 0, 0, err
	}
	retryF, err := parseFloatField(tuple[2])
	if err != nil {
		return false, 0, 0, err
	}
	return allowedN == 1, int(remainingF), retryF, nil
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
