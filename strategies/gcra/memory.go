package gcra

import (
	"strconv"
	"time"

	"github.com/distlimit/distlimit/store"
)

func init() {
	store.RegisterMemoryHandler("gcra", memoryDecide)
}

func memoryDecide(ops *store.MemoryOps, keys []string, argv []any) ([]any, error) {
	key := keys[0]
	burst := argv[0].(int)
	rate := argv[1].(float64)
	now := argv[2].(int64)
	requested := argv[3].(int)
	ttl := argv[4].(int)

	emissionInterval := 1000 / rate
	limit := float64(burst) * emissionInterval

	tat := float64(now)
	if v, ok := ops.GetString(key); ok {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			tat = t
		}
	}
	if tat < float64(now) {
		tat = float64(now)
	}

	newTat := tat + float64(requested)*emissionInterval
	allowAt := newTat - limit

	var allowed int64
	var remaining int
	var retryAfterMs float64

	if allowAt <= float64(now) {
		ops.SetString(key, strconv.FormatFloat(newTat, 'g', -1, 64), time.Duration(ttl)*time.Second)
		allowed = 1
		remaining = int((limit - (newTat - float64(now))) / emissionInterval)
		if remaining < 0 {
			remaining = 0
		}
	} else {
		allowed = 0
		remaining = 0
		retryAfterMs = allowAt - float64(now)
	}

	return []any{allowed, strconv.Itoa(remaining), strconv.FormatFloat(retryAfterMs, 'g', -1, 64)}, nil
}
