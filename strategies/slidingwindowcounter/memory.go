package slidingwindowcounter

import (
	"strconv"
	"time"

	"github.com/distlimit/distlimit/store"
)

func init() {
	store.RegisterMemoryHandler("sliding_window_counter", memoryDecide)
}

func memoryDecide(ops *store.MemoryOps, keys []string, argv []any) ([]any, error) {
	curKey := keys[0]
	prevKey := keys[1]
	capacity := argv[0].(int)
	window := argv[1].(int)
	now := argv[2].(int64)
	currentStart := argv[3].(int64)
	requested := argv[4].(int)
	ttl := argv[5].(int)

	cur := 0.0
	if v, ok := ops.GetString(curKey); ok {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			cur = n
		}
	}
	prev := 0.0
	if v, ok := ops.GetString(prevKey); ok {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			prev = n
		}
	}

	elapsed := float64(now - currentStart)
	prevWeight := (float64(window) - elapsed) / float64(window)
	if prevWeight < 0 {
		prevWeight = 0
	}
	if prevWeight > 1 {
		prevWeight = 1
	}

	weighted := prev*prevWeight + cur

	if weighted+float64(requested) <= float64(capacity) {
		newCur := ops.IncrBy(curKey, int64(requested))
		if newCur == int64(requested) {
			ops.Expire(curKey, time.Duration(ttl)*time.Second)
		}
		return []any{int64(1), strconv.FormatFloat(weighted+float64(requested), 'g', -1, 64), strconv.FormatInt(newCur, 10)}, nil
	}

	return []any{int64(0), strconv.FormatFloat(weighted, 'g', -1, 64), strconv.FormatFloat(cur, 'g', -1, 64)}, nil
}
