package fixedwindow

import (
	"github.com/distlimit/distlimit/store"
	"github.com/distlimit/distlimit/strategies"
)

func init() {
	strategies.Register(strategies.FixedWindow, func(s store.Store) strategies.Strategy {
		return New(s)
	})
}
