package tokenbucket

import (
	"math"
	"strconv"
	"time"

	"github.com/distlimit/distlimit/store"
)

func init() {
	store.RegisterMemoryHandler("token_bucket", memoryDecide)
}

func memoryDecide(ops *store.MemoryOps, keys []string, argv []any) ([]any, error) {
	key := keys[0]
	capacity := argv[0].(int)
	rate := argv[1].(float64)
	now := argv[2].(int64)
	requested := argv[3].(int)
	ttl := argv[4].(int)

	tokens := float64(capacity)
	lastRefill := now

	if v, ok := ops.HGetField(key, "tokens"); ok {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			tokens = t
		}
	}
	if v, ok := ops.HGetField(key, "lastRefillMs"); ok {
		if lr, err := strconv.ParseInt(v, 10, 64); err == nil {
			lastRefill = lr
		}
	}

	elapsed := math.Max(0, float64(now-lastRefill)) / 1000
	tokens = math.Min(float64(capacity), tokens+elapsed*rate)

	var allowed int64
	var remaining float64
	var retryAfterMs float64

	if tokens >= float64(requested) {
		tokens -= float64(requested)
		allowed = 1
		remaining = tokens
	} else {
		allowed = 0
		remaining = tokens
		if rate > 0 {
			retryAfterMs = (float64(requested) - tokens) / rate * 1000
		} else {
			retryAfterMs = float64(ttl) * 1000
		}
	}

	ops.HSetFields(key, map[string]string{
		"tokens":       strconv.FormatFloat(tokens, 'g', -1, 64),
		"lastRefillMs": strconv.FormatInt(now, 10),
	}, time.Duration(ttl)*time.Second)

	return []any{allowed, strconv.FormatFloat(remaining, 'g', -1, 64), strconv.FormatFloat(retryAfterMs, 'g', -1, 64)}, nil
}
