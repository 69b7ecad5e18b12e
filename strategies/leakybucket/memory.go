package leakybucket

import (
	"strconv"
	"time"

	"github.com/distlimit/distlimit/store"
)

func init() {
	store.RegisterMemoryHandler("leaky_bucket", memoryDecide)
}

func memoryDecide(ops *store.MemoryOps, keys []string, argv []any) ([]any, error) {
	key := keys[0]
	capacity := argv[0].(int)
	leakRate := argv[1].(float64)
	now := argv[2].(int64)
	requested := argv[3].(int)
	ttl := argv[4].(int)

	queueSize := 0.0
	lastLeak := now

	if v, ok := ops.HGetField(key, "queueSize"); ok {
		if q, err := strconv.ParseFloat(v, 64); err == nil {
			queueSize = q
		}
	}
	if v, ok := ops.HGetField(key, "lastLeakMs"); ok {
		if lr, err := strconv.ParseInt(v, 10, 64); err == nil {
			lastLeak = lr
		}
	}

	elapsed := float64(now-lastLeak) / 1000
	if elapsed < 0 {
		elapsed = 0
	}
	drained := queueSize - elapsed*leakRate
	if drained < 0 {
		drained = 0
	}

	var allowed int64
	var resultQueue float64
	var third float64

	if drained+float64(requested) <= float64(capacity) {
		resultQueue = drained + float64(requested)
		allowed = 1
		if leakRate > 0 {
			third = resultQueue / leakRate * 1000
		}
	} else {
		resultQueue = drained
		allowed = 0
		if leakRate > 0 {
			third = (drained - float64(capacity) + float64(requested)) / leakRate * 1000
		} else {
			third = -1
		}
	}

	ops.HSetFields(key, map[string]string{
		"queueSize":  strconv.FormatFloat(resultQueue, 'g', -1, 64),
		"lastLeakMs": strconv.FormatInt(now, 10),
	}, time.Duration(ttl)*time.Second)

	return []any{allowed, strconv.FormatFloat(resultQueue, 'g', -1, 64), strconv.FormatFloat(third, 'g', -1, 64)}, nil
}
