package tokenbucket

import (
	"github.com/distlimit/distlimit/store"
	"github.com/distlimit/distlimit/strategies"
)

func init() {
	strategies.Register(strategies.TokenBucket, func(s store.Store) strategies.Strategy {
		return New(s)
	})
}
