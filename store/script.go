package store

import "github.com/redis/go-redis/v9"

// Script is a named atomic store-side procedure. Name identifies it for the
// in-memory test double, which has no Lua interpreter and instead dispatches
// by name to a registered Go implementation of the same algorithm.
type Script struct {
	Name   string
	Source string

	redisScript *redis.Script
}

// NewScript compiles a Lua script under name. Strategies embed their .lua
// source with go:embed and call this once at package init.
func NewScript(name, source string) *Script {
	return &Script{
		Name:        name,
		Source:      source,
		redisScript: redis.NewScript(source),
	}
}
