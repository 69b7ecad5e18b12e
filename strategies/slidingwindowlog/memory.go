package slidingwindowlog

import (
	"fmt"
	"time"

	"github.com/distlimit/distlimit/store"
)

func init() {
	store.RegisterMemoryHandler("sliding_window_log", memoryDecide)
}

func memoryDecide(ops *store.MemoryOps, keys []string, argv []any) ([]any, error) {
	key := keys[0]
	capacity := argv[0].(int)
	windowMs := argv[1].(int64)
	now := argv[2].(int64)
	requested := argv[3].(int)
	baseID := argv[4].(string)
	ttl := argv[5].(int)

	ops.ZRemRangeByScore(key, float64(now-windowMs))
	n := ops.ZCard(key)

	var allowed int64
	var remaining int64

	if n+int64(requested) <= int64(capacity) {
		members := make(map[string]float64, requested)
		for i := 1; i <= requested; i++ {
			members[fmt.Sprintf("%s:%d", baseID, i)] = float64(now)
		}
		ops.ZAdd(key, members, time.Duration(ttl)*time.Second)
		allowed = 1
		remaining = int64(capacity) - n - int64(requested)
	} else {
		allowed = 0
		remaining = int64(capacity) - n
		if remaining < 0 {
			remaining = 0
		}
	}

	oldest := 0.0
	if v, ok := ops.ZMinScore(key); ok {
		oldest = v
	}

	return []any{allowed, fmt.Sprintf("%d", remaining), fmt.Sprintf("%d", int64(oldest))}, nil
}
