package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryHandler reimplements one named script's logic against a MemoryOps
// view instead of a Lua interpreter. Strategies register one of these per
// algorithm alongside their Lua source, so unit tests can run without a
// Redis server while exercising identical semantics.
type MemoryHandler func(ops *MemoryOps, keys []string, argv []any) ([]any, error)

var (
	memoryHandlersMu sync.Mutex
	memoryHandlers   = make(map[string]MemoryHandler)
)

// RegisterMemoryHandler registers the in-memory equivalent of a named
// script. Call from a strategy package's init alongside NewScript.
func RegisterMemoryHandler(name string, h MemoryHandler) {
	memoryHandlersMu.Lock()
	defer memoryHandlersMu.Unlock()
	memoryHandlers[name] = h
}

type memEntry struct {
	kind    byte // 's' string, 'h' hash, 'z' sorted set
	str     string
	hash    map[string]string
	zset    map[string]float64
	expires time.Time // zero = no expiry
}

func (e *memEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

type memoryStore struct {
	mu   sync.Mutex
	data map[string]*memEntry
}

// NewMemory builds an in-process Store with no persistence, for tests.
func NewMemory() Store {
	return &memoryStore{data: make(map[string]*memEntry)}
}

func (s *memoryStore) RunScript(_ context.Context, script *Script, keys []string, argv []any) ([]any, error) {
	memoryHandlersMu.Lock()
	h, ok := memoryHandlers[script.Name]
	memoryHandlersMu.Unlock()
	if !ok {
		return nil, NewScriptError("memory:"+script.Name, fmt.Errorf("no in-memory handler registered for %q", script.Name))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ops := &MemoryOps{s: s, now: time.Now()}
	return h(ops, keys, argv)
}

func (s *memoryStore) HSet(_ context.Context, key string, fields map[string]string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[key]
	if !ok || e.expired(time.Now()) || e.kind != 'h' {
		e = &memEntry{kind: 'h', hash: make(map[string]string)}
		s.data[key] = e
	}
	for k, v := range fields {
		e.hash[k] = v
	}
	if ttl > 0 {
		e.expires = time.Now().Add(ttl)
	}
	return nil
}

func (s *memoryStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[key]
	if !ok || e.expired(time.Now()) || e.kind != 'h' {
		return map[string]string{}, nil
	}
	out := make(map[string]string, len(e.hash))
	for k, v := range e.hash {
		out[k] = v
	}
	return out, nil
}

func (s *memoryStore) Scan(_ context.Context, prefix string) ([]KeyDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var out []KeyDescriptor
	for k, e := range s.data {
		if e.expired(now) || !strings.HasPrefix(k, prefix) {
			continue
		}
		ttl := time.Duration(-1)
		if !e.expires.IsZero() {
			ttl = e.expires.Sub(now)
		}
		out = append(out, KeyDescriptor{Key: k, TTL: ttl})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *memoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *memoryStore) Ping(_ context.Context) (time.Duration, error) {
	return 0, nil
}

// MemoryOps is the primitive command set a MemoryHandler operates against,
// deliberately shaped after the Redis commands the equivalent Lua script
// issues. Callers must already hold the store's lock (true of every
// MemoryHandler invocation).
type MemoryOps struct {
	s   *memoryStore
	now time.Time
}

func (o *MemoryOps) Now() time.Time { return o.now }

func (o *MemoryOps) entry(key string) *memEntry {
	e, ok := o.s.data[key]
	if !ok || e.expired(o.now) {
		return nil
	}
	return e
}

func (o *MemoryOps) GetString(key string) (string, bool) {
	e := o.entry(key)
	if e == nil || e.kind != 's' {
		return "", false
	}
	return e.str, true
}

func (o *MemoryOps) SetString(key, val string, ttl time.Duration) {
	e := &memEntry{kind: 's', str: val}
	if ttl > 0 {
		e.expires = o.now.Add(ttl)
	}
	o.s.data[key] = e
}

func (o *MemoryOps) IncrBy(key string, delta int64) int64 {
	e := o.entry(key)
	var cur int64
	if e != nil && e.kind == 's' {
		fmt.Sscanf(e.str, "%d", &cur)
	}
	cur += delta
	if e == nil {
		e = &memEntry{kind: 's'}
		o.s.data[key] = e
	}
	e.kind = 's'
	e.str = fmt.Sprintf("%d", cur)
	return cur
}

func (o *MemoryOps) Expire(key string, ttl time.Duration) {
	if e, ok := o.s.data[key]; ok {
		e.expires = o.now.Add(ttl)
	}
}

func (o *MemoryOps) Del(keys ...string) {
	for _, k := range keys {
		delete(o.s.data, k)
	}
}

func (o *MemoryOps) HGetField(key, field string) (string, bool) {
	e := o.entry(key)
	if e == nil || e.kind != 'h' {
		return "", false
	}
	v, ok := e.hash[field]
	return v, ok
}

func (o *MemoryOps) HSetFields(key string, fields map[string]string, ttl time.Duration) {
	e := o.entry(key)
	if e == nil || e.kind != 'h' {
		e = &memEntry{kind: 'h', hash: make(map[string]string)}
		o.s.data[key] = e
	}
	for k, v := range fields {
		e.hash[k] = v
	}
	if ttl > 0 {
		e.expires = o.now.Add(ttl)
	}
}

func (o *MemoryOps) ZAdd(key string, members map[string]float64, ttl time.Duration) {
	e := o.entry(key)
	if e == nil || e.kind != 'z' {
		e = &memEntry{kind: 'z', zset: make(map[string]float64)}
		o.s.data[key] = e
	}
	for m, score := range members {
		e.zset[m] = score
	}
	if ttl > 0 {
		e.expires = o.now.Add(ttl)
	}
}

func (o *MemoryOps) ZRemRangeByScore(key string, maxScore float64) {
	e := o.entry(key)
	if e == nil || e.kind != 'z' {
		return
	}
	for m, score := range e.zset {
		if score <= maxScore {
			delete(e.zset, m)
		}
	}
}

func (o *MemoryOps) ZCard(key string) int64 {
	e := o.entry(key)
	if e == nil || e.kind != 'z' {
		return 0
	}
	return int64(len(e.zset))
}

// ZMinScore returns the lowest score currently in the set, or ok=false if
// the set is absent or empty.
func (o *MemoryOps) ZMinScore(key string) (float64, bool) {
	e := o.entry(key)
	if e == nil || e.kind != 'z' || len(e.zset) == 0 {
		return 0, false
	}
	min := 0.0
	first := true
	for _, score := range e.zset {
		if first || score < min {
			min = score
			first = false
		}
	}
	return min, true
}
