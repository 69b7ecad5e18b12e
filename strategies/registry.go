package strategies

import (
	"errors"
	"fmt"

	"github.com/distlimit/distlimit/store"
)

// ErrStrategyNotFound is returned when Get is asked for a tag nothing
// registered.
var ErrStrategyNotFound = errors.New("strategy not registered")

// Factory builds a Strategy bound to a store.
type Factory func(s store.Store) Strategy

// Registry is a dependency-injected tag-to-strategy mapping built once at
// startup. Missing tags at Build time are a hard error so runtime dispatch
// can never fail on an unknown algorithm.
type Registry struct {
	strategies map[AlgorithmTag]Strategy
}

var factories = make(map[AlgorithmTag]Factory)

// Register registers a strategy factory under tag. Call from a strategy
// subpackage's init.
func Register(tag AlgorithmTag, f Factory) {
	factories[tag] = f
}

// Build instantiates every strategy factory registered so far against s
// (including bonus tags like GCRA, if their subpackage was blank-imported)
// and requires every tag in AlgorithmTag's mandated set to be present.
func Build(s store.Store) (*Registry, error) {
	reg := &Registry{strategies: make(map[AlgorithmTag]Strategy, len(factories))}
	for tag, f := range factories {
		reg.strategies[tag] = f(s)
	}
	for _, tag := range []AlgorithmTag{TokenBucket, SlidingWindow, SlidingWindowCounter, FixedWindow, LeakyBucket} {
		if _, ok := reg.strategies[tag]; !ok {
			return nil, fmt.Errorf("strategies: missing mandated algorithm %q at init", tag)
		}
	}
	return reg, nil
}

// Get dispatches to the strategy registered under tag.
func (r *Registry) Get(tag AlgorithmTag) (Strategy, error) {
	s, ok := r.strategies[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrStrategyNotFound, tag)
	}
	return s, nil
}
