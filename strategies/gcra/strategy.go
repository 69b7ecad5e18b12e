// Package gcra implements the generic cell rate algorithm, a bonus sixth
// strategy not among the five mandated algorithms. It is registered in the
// same extensible registry but never emitted by the configuration
// resolver's default fallback; a caller must request it explicitly.
package gcra

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/distlimit/distlimit/store"
	"github.com/distlimit/distlimit/strategies"
)

//go:embed gcra.lua
var luaSource string

const ttlSeconds = 3600

var script = store.NewScript("gcra", luaSource)

type Strategy struct {
	store store.Store
}

func New(s store.Store) *Strategy {
	return &Strategy{store: s}
}

func (s *Strategy) Decide(ctx context.Context, key string, tokens int, cfg strategies.Config, now time.Time) (strategies.Decision, error) {
	storeKey := strategies.BuildKey("ratelimit:gcra", key)
	rate := cfg.RefillRate / float64(cfg.RefillPeriodSeconds)

	tuple, err := s.store.RunScript(ctx, script, []string{storeKey}, []any{
		cfg.Capacity, rate, now.UnixMilli(), tokens, ttlSeconds,
	})
	if err != nil {
		return strategies.Decision{}, strategies.NewCheckFailedError("gcra:decide", err)
	}
	if len(tuple) != 3 {
		return strategies.Decision{}, strategies.NewCheckFailedError("gcra:decode", fmt.Errorf("expected 3-element tuple, got %d", len(tuple)))
	}
	allowedN, ok := toInt64(tuple[0])
	if !ok {
		return strategies.Decision{}, strategies.NewCheckFailedError("gcra:decode", fmt.Errorf("bad allowed field %v", tuple[0]))
	}
	remaining, err := toInt(tuple[1])
	if err != nil {
		return strategies.Decision{}, strategies.NewCheckFailedError("gcra:decode", err)
	}
	retryAfterMs, err := parseFloatField(tuple[2])
	if err != nil {
		return strategies.Decision{}, strategies.NewCheckFailedError("gcra:decode", err)
	}

	return strategies.Decision{
		Allowed:    allowedN == 1,
		Remaining:  remaining,
		ResetAt:    now.Add(time.Duration(cfg.RefillPeriodSeconds) * time.Second),
		RetryAfter: time.Duration(retryAfterMs) * time.Millisecond,
		Algorithm:  strategies.GCRA,
	}, nil
}

func (s *Strategy) Reset(ctx context.Context, key string) error {
	return s.store.Delete(ctx, strategies.BuildKey("ratelimit:gcra", key))
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

func toInt(v any) (int, error) {
	n, ok := toInt64(v)
	if !ok {
		return 0, fmt.Errorf("unexpected field type %T", v)
	}
	return int(n), nil
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
