// Package slidingwindowcounter implements the sliding-window-counter
// algorithm: two fixed-window integer counters are linearly interpolated
// to approximate the precision of a sliding log at constant memory.
package slidingwindowcounter

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

//go:embed slidingwindowcounter.lua
var luaSource string

var script = store.NewScript("sliding_window_counter", luaSource)

type Strategy struct {
	store store.Store
}

func New(s store.Store) *Strategy {
	return &Strategy{store: s}
}

func windowStart(now time.Time, windowSeconds int) int64 {
	sec := now.Unix()
	w := int64(windowSeconds)
	return sec - (sec % w)
}

func (s *Strategy) Decide(ctx context.Context, key string, tokens int, cfg strategies.Config, now time.Time) (strategies.Decision, error) {
	w := cfg.RefillPeriodSeconds
	start := windowStart(now, w)
	prevStart := start - int64(w)

	curKey := strategies.BuildKey("ratelimit:swc", key, strconv.FormatInt(start, 10))
	prevKey := strategies.BuildKey("ratelimit:swc", key, strconv.FormatInt(prevStart, 10))

	tuple, err := s.store.RunScript(ctx, script, []string{curKey, prevKey}, []any{
		cfg.Capacity, w, now.Unix(), start, tokens, 2 * w,
	})
	if err != nil {
		return strategies.Decision{}, strategies.NewCheckFailedError("sliding_window_counter:decide", err)
	}
	if len(tuple) != 3 {
		return strategies.Decision{}, strategies.NewCheckFailedError("sliding_window_counter:decode", fmt.Errorf("expected 3-element tuple, got %d", len(tuple)))
	}
	allowedN, ok := toInt64(tuple[0])
	if !ok {
		return strategies.Decision{}, strategies.NewCheckFailedError("sliding_window_counter:decode", fmt.Errorf("bad allowed field %v", tuple[0]))
	}
	weighted, err := parseFloatField(tuple[1])
	if err != nil {
		return strategies.Decision{}, strategies.NewCheckFailedError("sliding_window_counter:decode", err)
	}

	remaining := cfg.Capacity - int(math.Ceil(weighted))
	if remaining < 0 {
		remaining = 0
	}
	resetAt := time.Unix(start+int64(w), 0)

	dec := strategies.Decision{
		Allowed:   allowedN == 1,
		Remaining: remaining,
		ResetAt:   resetAt,
		Algorithm: strategies.SlidingWindowCounter,
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
	keys, err := s.store.Scan(ctx, strategies.BuildKey("ratelimit:swc", key))
	if err != nil {
		return strategies.NewCheckFailedError("sliding_window_counter:reset", err)
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.Key
	}
	return s.store.Delete(ctx, names...)
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
