// Package slidingwindowlog implements the sliding-window-log algorithm:
// every admitted request's timestamp is logged in an ordered set, giving a
// precise count of requests within any trailing window at the cost of one
// member per admitted request.
package slidingwindowlog

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/distlimit/distlimit/store"
	"github.com/distlimit/distlimit/strategies"
)

//go:embed slidingwindowlog.lua
var luaSource string

var script = store.NewScript("sliding_window_log", luaSource)

type Strategy struct {
	store store.Store
}

func New(s store.Store) *Strategy {
	return &Strategy{store: s}
}

func (s *Strategy) Decide(ctx context.Context, key string, tokens int, cfg strategies.Config, now time.Time) (strategies.Decision, error) {
	storeKey := strategies.BuildKey("ratelimit:sliding", key)
	windowMs := int64(cfg.RefillPeriodSeconds) * 1000
	ttl := cfg.RefillPeriodSeconds + 60

	tuple, err := s.store.RunScript(ctx, script, []string{storeKey}, []any{
		cfg.Capacity, windowMs, now.UnixMilli(), tokens, uuid.NewString(), ttl,
	})
	if err != nil {
		return strategies.Decision{}, strategies.NewCheckFailedError("sliding_window_log:decide", err)
	}
	if len(tuple) != 3 {
		return strategies.Decision{}, strategies.NewCheckFailedError("sliding_window_log:decode", fmt.Errorf("expected 3-element tuple, got %d", len(tuple)))
	}
	allowedN, ok := toInt64(tuple[0])
	if !ok {
		return strategies.Decision{}, strategies.NewCheckFailedError("sliding_window_log:decode", fmt.Errorf("bad allowed field %v", tuple[0]))
	}
	remaining, err := toInt(tuple[1])
	if err != nil {
		return strategies.Decision{}, strategies.NewCheckFailedError("sliding_window_log:decode", err)
	}
	oldestMs, oldestOk := toInt64(tuple[2])
	if !oldestOk {
		return strategies.Decision{}, strategies.NewCheckFailedError("sliding_window_log:decode", fmt.Errorf("bad oldest field %v", tuple[2]))
	}

	var resetAt time.Time
	if oldestMs > 0 {
		resetAt = time.UnixMilli(oldestMs).Add(time.Duration(windowMs) * time.Millisecond)
	} else {
		resetAt = now.Add(time.Duration(windowMs) * time.Millisecond)
	}

	dec := strategies.Decision{
		Allowed:   allowedN == 1,
		Remaining: remaining,
		ResetAt:   resetAt,
		Algorithm: strategies.SlidingWindow,
	}
	if !dec.Allowed {
		retry := resetAt.Sub(now)
		if retry < 0 {
			retry = 0
		}
		dec.RetryAfter = retry
	}
	return dec, nil
}

func (s *Strategy) Reset(ctx context.Context, key string) error {
	return s.store.Delete(ctx, strategies.BuildKey("ratelimit:sliding", key))
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
