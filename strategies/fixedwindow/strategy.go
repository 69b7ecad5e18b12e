// Package fixedwindow implements the fixed window counting algorithm: a
// counter per discrete window of W seconds, reset implicitly by TTL expiry.
package fixedwindow

import (
	_ "embed"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/distlimit/distlimit/store"
	"github.com/distlimit/distlimit/strategies"
)

//go:embed fixedwindow.lua
var luaSource string

var script = store.NewScript("fixed_window", luaSource)

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
	start := windowStart(now, cfg.RefillPeriodSeconds)
	storeKey := strategies.BuildKey("ratelimit:fixed", key, strconv.FormatInt(start, 10))

	tuple, err := s.store.RunScript(ctx, script, []string{storeKey}, []any{
		cfg.Capacity, tokens, cfg.RefillPeriodSeconds,
	})
	if err != nil {
		return strategies.Decision{}, strategies.NewCheckFailedError("fixed_window:decide", err)
	}
	if len(tuple) != 2 {
		return strategies.Decision{}, strategies.NewCheckFailedError("fixed_window:decode", fmt.Errorf("expected 2-element tuple, got %d", len(tuple)))
	}
	allowedN, ok := toInt64(tuple[0])
	if !ok {
		return strategies.Decision{}, strategies.NewCheckFailedError("fixed_window:decode", fmt.Errorf("bad allowed field %v", tuple[0]))
	}
	remaining, err := toInt(tuple[1])
	if err != nil {
		return strategies.Decision{}, strategies.NewCheckFailedError("fixed_window:decode", err)
	}

	resetAt := time.Unix(start+int64(cfg.RefillPeriodSeconds), 0)
	dec := strategies.Decision{
		Allowed:   allowedN == 1,
		Remaining: remaining,
		ResetAt:   resetAt,
		Algorithm: strategies.FixedWindow,
	}
	if !dec.Allowed {
		dec.RetryAfter = time.Until(resetAt)
		if dec.RetryAfter < 0 {
			dec.RetryAfter = 0
		}
	}
	return dec, nil
}

func (s *Strategy) Reset(ctx context.Context, key string) error {
	keys, err := s.store.Scan(ctx, strategies.BuildKey("ratelimit:fixed", key))
	if err != nil {
		return strategies.NewCheckFailedError("fixed_window:reset", err)
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

func toInt(v any) (int, error) {
	n, ok := toInt64(v)
	if !ok {
		return 0, fmt.Errorf("unexpected field type %T", v)
	}
	return int(n), nil
}
