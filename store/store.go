// Package store exposes the shared key-value store contract that every
// rate-limit strategy is built on: execute a named atomic script, scan keys
// by prefix, delete keys, and test liveness. A failed call always surfaces
// as either ErrUnavailable or ErrScriptFailed so callers can tell a transient
// connectivity fault from a logic-level condition.
package store

import (
	"context"
	"time"
)

// KeyDescriptor describes one stored key for the admin surface.
type KeyDescriptor struct {
	Key string
	TTL time.Duration
}

// Store is the contract every strategy, and the configuration resolver,
// are built against. Implementations: Redis (production) and an in-memory
// test double.
type Store interface {
	// RunScript executes script atomically with the given keys and argv,
	// returning the script's decoded result tuple.
	RunScript(ctx context.Context, script *Script, keys []string, argv []any) ([]any, error)

	// HSet writes fields as a hash at key, setting its TTL when ttl>0.
	// ttl<=0 leaves the key's expiry as it was (none, for a new key).
	HSet(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error

	// HGetAll reads every field of the hash at key. Returns an empty,
	// non-nil map if the key does not exist.
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// Scan lists every key matching prefix+"*". Order is unspecified.
	Scan(ctx context.Context, prefix string) ([]KeyDescriptor, error)

	// Delete removes zero or more keys. Deleting an absent key is a no-op.
	Delete(ctx context.Context, keys ...string) error

	// Ping measures round-trip latency to the store, or returns
	// ErrUnavailable.
	Ping(ctx context.Context) (time.Duration, error)
}
