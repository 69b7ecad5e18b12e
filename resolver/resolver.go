// Package resolver maps a bucket key to the rate-limit configuration that
// governs it: exact key match, then the highest-priority wildcard pattern,
// then the process default. Positive lookups are cached in-process; a
// pattern write invalidates the whole exact-key cache because a new
// pattern can reroute any key.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/distlimit/distlimit/pattern"
	"github.com/distlimit/distlimit/store"
	"github.com/distlimit/distlimit/strategies"
)

// Config is a saved rate-limit configuration, exact-key or pattern-keyed.
type Config struct {
	Algorithm           strategies.AlgorithmTag
	Capacity            int
	RefillRate          float64
	RefillPeriodSeconds int
	KeyPattern          string
	Priority            int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (c Config) toStrategyConfig() strategies.Config {
	return strategies.Config{
		Algorithm:           c.Algorithm,
		Capacity:            c.Capacity,
		RefillRate:          c.RefillRate,
		RefillPeriodSeconds: c.RefillPeriodSeconds,
	}
}

// Validate checks the numeric invariants common to both key and pattern
// configs: all three numeric fields strictly positive, and — for the
// log-based sliding window — capacity bounded to keep the ordered-set
// memory footprint sane.
func (c Config) Validate() error {
	if !c.Algorithm.Valid() {
		return fmt.Errorf("resolver: invalid algorithm %q", c.Algorithm)
	}
	if c.Capacity <= 0 {
		return fmt.Errorf("resolver: capacity must be positive, got %d", c.Capacity)
	}
	if c.RefillRate <= 0 {
		return fmt.Errorf("resolver: refillRate must be positive, got %f", c.RefillRate)
	}
	if c.RefillPeriodSeconds <= 0 {
		return fmt.Errorf("resolver: refillPeriodSeconds must be positive, got %d", c.RefillPeriodSeconds)
	}
	if c.Algorithm == strategies.SlidingWindow && c.Capacity > 10000 {
		return fmt.Errorf("resolver: sliding window log capacity must be <= 10000, got %d", c.Capacity)
	}
	return nil
}

const (
	keyConfigPrefix     = "config:key:"
	patternConfigPrefix = "config:pattern:"
	keyConfigTTL        = 30 * 24 * time.Hour
)

// Resolver implements the configuration resolver of the spec: exact →
// pattern → default lookup, backed by the shared store, with an
// in-process exact-key cache and compiled-pattern cache.
type Resolver struct {
	store   store.Store
	matcher *pattern.Matcher

	exactCache sync.Map // string -> Config

	defaultMu  sync.RWMutex
	defaultCfg Config
}

// New builds a Resolver against s, with defaultCfg used whenever no exact
// or pattern config is found.
func New(s store.Store, defaultCfg Config) *Resolver {
	return &Resolver{
		store:      s,
		matcher:    pattern.NewMatcher(),
		defaultCfg: defaultCfg,
	}
}

// GetConfig resolves key to its effective configuration.
func (r *Resolver) GetConfig(ctx context.Context, key string) (Config, error) {
	if v, ok := r.exactCache.Load(key); ok {
		return v.(Config), nil
	}

	cfg, found, err := r.fetchKeyConfig(ctx, key)
	if err != nil {
		return Config{}, err
	}
	if found {
		r.exactCache.Store(key, cfg)
		return cfg, nil
	}

	if best, ok := r.matcher.FindBestMatch(key); ok {
		patCfg, found, err := r.fetchPatternConfig(ctx, best.Literal)
		if err != nil {
			return Config{}, err
		}
		if found {
			r.exactCache.Store(key, patCfg)
			return patCfg, nil
		}
	}

	r.defaultMu.RLock()
	def := r.defaultCfg
	r.defaultMu.RUnlock()
	r.exactCache.Store(key, def)
	return def, nil
}

func (r *Resolver) fetchKeyConfig(ctx context.Context, key string) (Config, bool, error) {
	return r.fetchHash(ctx, keyConfigPrefix+key, key)
}

func (r *Resolver) fetchPatternConfig(ctx context.Context, literal string) (Config, bool, error) {
	return r.fetchHash(ctx, patternConfigPrefix+literal, literal)
}

func (r *Resolver) fetchHash(ctx context.Context, storeKey, fallbackPattern string) (Config, bool, error) {
	fields, err := r.store.HGetAll(ctx, storeKey)
	if err != nil {
		return Config{}, false, fmt.Errorf("resolver: fetch %s: %w", storeKey, err)
	}
	if len(fields) == 0 {
		return Config{}, false, nil
	}
	cfg, ok := decodeConfig(fields, fallbackPattern)
	if !ok {
		// malformed hash: core logs and behaves as if absent.
		slog.Warn("resolver: malformed config hash treated as absent", "key", storeKey)
		return Config{}, false, nil
	}
	return cfg, true, nil
}

// SaveKeyConfig validates and writes cfg under key, invalidating the
// exact-key cache entry for key.
func (r *Resolver) SaveKeyConfig(ctx context.Context, key string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.UpdatedAt = time.Now()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = cfg.UpdatedAt
	}
	if err := r.store.HSet(ctx, keyConfigPrefix+key, encodeConfig(cfg), keyConfigTTL); err != nil {
		return fmt.Errorf("resolver: save key config: %w", err)
	}
	r.exactCache.Delete(key)
	return nil
}

// SavePatternConfig validates, computes priority if unset, writes the
// pattern hash, refreshes the compiled-pattern cache, and invalidates every
// exact-key cache entry (a new pattern may reroute any key).
func (r *Resolver) SavePatternConfig(ctx context.Context, literal string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	priority := cfg.Priority
	if priority == 0 {
		priority = pattern.ComputePriority(literal)
	}
	cfg.Priority = priority
	cfg.KeyPattern = literal
	cfg.UpdatedAt = time.Now()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = cfg.UpdatedAt
	}

	compiled, err := pattern.Compile(literal, priority)
	if err != nil {
		return fmt.Errorf("resolver: compile pattern %q: %w", literal, err)
	}

	if err := r.store.HSet(ctx, patternConfigPrefix+literal, encodeConfig(cfg), 0); err != nil {
		return fmt.Errorf("resolver: save pattern config: %w", err)
	}
	r.matcher.Put(compiled)
	r.clearExactCache()
	return nil
}

// DeleteKeyConfig removes key's saved config and invalidates its cache
// entry.
func (r *Resolver) DeleteKeyConfig(ctx context.Context, key string) error {
	if err := r.store.Delete(ctx, keyConfigPrefix+key); err != nil {
		return fmt.Errorf("resolver: delete key config: %w", err)
	}
	r.exactCache.Delete(key)
	return nil
}

// DeletePatternConfig removes a pattern and invalidates every exact-key
// cache entry, since removing a pattern can reroute any key previously
// matched by it.
func (r *Resolver) DeletePatternConfig(ctx context.Context, literal string) error {
	if err := r.store.Delete(ctx, patternConfigPrefix+literal); err != nil {
		return fmt.Errorf("resolver: delete pattern config: %w", err)
	}
	r.matcher.Remove(literal)
	r.clearExactCache()
	return nil
}

// GetAllPatterns scans and decodes every saved pattern config.
func (r *Resolver) GetAllPatterns(ctx context.Context) ([]Config, error) {
	keys, err := r.store.Scan(ctx, patternConfigPrefix)
	if err != nil {
		return nil, fmt.Errorf("resolver: scan patterns: %w", err)
	}
	out := make([]Config, 0, len(keys))
	for _, kd := range keys {
		literal := kd.Key[len(patternConfigPrefix):]
		cfg, found, err := r.fetchPatternConfig(ctx, literal)
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, cfg)
		}
	}
	return out, nil
}

// ReloadConfigurations drops both caches and rebuilds the compiled-pattern
// cache from the store's current contents.
func (r *Resolver) ReloadConfigurations(ctx context.Context) error {
	r.clearExactCache()

	patterns, err := r.GetAllPatterns(ctx)
	if err != nil {
		return err
	}
	compiled := make([]*pattern.Compiled, 0, len(patterns))
	for _, p := range patterns {
		c, err := pattern.Compile(p.KeyPattern, p.Priority)
		if err != nil {
			continue
		}
		compiled = append(compiled, c)
	}
	r.matcher.Reset(compiled)
	return nil
}

// ClearCache drops the in-process exact-key cache without touching the
// compiled-pattern cache or re-reading the store. Used by the
// administrative cache-clear endpoint, which is a cheaper operation than a
// full ReloadConfigurations.
func (r *Resolver) ClearCache() {
	r.clearExactCache()
}

func (r *Resolver) clearExactCache() {
	r.exactCache.Range(func(k, _ any) bool {
		r.exactCache.Delete(k)
		return true
	})
}

// StrategyConfig converts cfg to the flattened view strategies consume.
func (c Config) StrategyConfig() strategies.Config { return c.toStrategyConfig() }

func encodeConfig(cfg Config) map[string]string {
	fields := map[string]string{
		"algorithm":           string(cfg.Algorithm),
		"capacity":            strconv.Itoa(cfg.Capacity),
		"refillRate":          strconv.FormatFloat(cfg.RefillRate, 'g', -1, 64),
		"refillPeriodSeconds": strconv.Itoa(cfg.RefillPeriodSeconds),
	}
	if cfg.Priority != 0 {
		fields["priority"] = strconv.Itoa(cfg.Priority)
	}
	if cfg.KeyPattern != "" {
		fields["keyPattern"] = cfg.KeyPattern
	}
	fields["createdAt"] = cfg.CreatedAt.Format(time.RFC3339Nano)
	fields["updatedAt"] = cfg.UpdatedAt.Format(time.RFC3339Nano)
	return fields
}

// decodeConfig decodes a stored hash. fallbackKeySuffix supplies KeyPattern
// when the field is absent (older writes), per the spec's decode contract.
func decodeConfig(fields map[string]string, fallbackKeySuffix string) (Config, bool) {
	algo, ok := fields["algorithm"]
	if !ok {
		return Config{}, false
	}
	capacity, err := strconv.Atoi(fields["capacity"])
	if err != nil {
		return Config{}, false
	}
	refillRate, err := strconv.ParseFloat(fields["refillRate"], 64)
	if err != nil {
		return Config{}, false
	}
	period, err := strconv.Atoi(fields["refillPeriodSeconds"])
	if err != nil {
		return Config{}, false
	}

	cfg := Config{
		Algorithm:           strategies.AlgorithmTag(algo),
		Capacity:            capacity,
		RefillRate:          refillRate,
		RefillPeriodSeconds: period,
	}
	if p, ok := fields["priority"]; ok {
		if n, err := strconv.Atoi(p); err == nil {
			cfg.Priority = n
		}
	}
	if kp, ok := fields["keyPattern"]; ok && kp != "" {
		cfg.KeyPattern = kp
	} else {
		cfg.KeyPattern = fallbackKeySuffix
	}
	if ca, ok := fields["createdAt"]; ok {
		if t, err := time.Parse(time.RFC3339Nano, ca); err == nil {
			cfg.CreatedAt = t
		}
	}
	if ua, ok := fields["updatedAt"]; ok {
		if t, err := time.Parse(time.RFC3339Nano, ua); err == nil {
			cfg.UpdatedAt = t
		}
	}
	return cfg, true
}
