package gcra

import (
	"github.com/distlimit/distlimit/store"
	"github.com/distlimit/distlimit/strategies"
)

func init() {
	strategies.Register(strategies.GCRA, func(s store.Store) strategies.Strategy {
		return New(s)
	})
}
