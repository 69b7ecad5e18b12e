package leakybucket

import (
	"github.com/distlimit/distlimit/store"
	"github.com/distlimit/distlimit/strategies"
)

func init() {
	strategies.Register(strategies.LeakyBucket, func(s store.Store) strategies.Strategy {
		return New(s)
	})
}
