package fixedwindow

import (
	"strconv"
	"time"

	"github.com/distlimit/distlimit/store"
)

func itoa(n int) string { return strconv.Itoa(n) }

func secondsToDuration(s int) time.Duration { return time.Duration(s) * time.Second }

func init() {
	store.RegisterMemoryHandler("fixed_window", memoryDecide)
}

func memoryDecide(ops *store.MemoryOps, keys []string, argv []any) ([]any, error) {
	key := keys[0]
	capacity := argv[0].(int)
	requested := argv[1].(int)
	window := argv[2].(int)

	newVal := ops.IncrBy(key, int64(requested))
	if newVal == int64(requested) {
		ops.Expire(key, secondsToDuration(window))
	}

	if newVal <= int64(capacity) {
		return []any{int64(1), itoa(capacity - int(newVal))}, nil
	}
	before := int(newVal) - requested
	remaining := capacity - before
	if remaining < 0 {
		remaining = 0
	}
	return []any{int64(0), itoa(remaining)}, nil
}
