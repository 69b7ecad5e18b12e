package distlimit

import (
	"fmt"
	"time"
)

// Option mutates a Config during NewConfig/FromEnv. An Option returns an
// error so validation can be reported at the call site instead of panicking.
type Option func(*Config) error

// WithHost sets the store host.
func WithHost(host string) Option {
	return func(c *Config) error {
		if host == "" {
			return fmt.Errorf("distlimit: host must not be empty")
		}
		c.Host = host
		return nil
	}
}

// WithPort sets the store port.
func WithPort(port int) Option {
	return func(c *Config) error {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("distlimit: port %d out of range", port)
		}
		c.Port = port
		return nil
	}
}

// WithPassword sets the store password.
func WithPassword(password string) Option {
	return func(c *Config) error {
		c.Password = password
		return nil
	}
}

// WithCommandTimeout bounds every individual store command.
func WithCommandTimeout(d time.Duration) Option {
	return func(c *Config) error {
		if d <= 0 {
			return fmt.Errorf("distlimit: command timeout must be positive")
		}
		c.CommandTimeout = d
		return nil
	}
}

// WithPool overrides the connection pool bounds.
func WithPool(pool PoolConfig) Option {
	return func(c *Config) error {
		if pool.MaxActive <= 0 {
			return fmt.Errorf("distlimit: pool max active must be positive")
		}
		if pool.MinIdle < 0 || pool.MaxIdle < pool.MinIdle {
			return fmt.Errorf("distlimit: pool idle bounds invalid")
		}
		c.Pool = pool
		return nil
	}
}

// WithDefaultBucket overrides the fallback bucket applied when a key matches
// neither an exact nor a pattern config. Pass a negative value for
// refillRate or refillPeriodSeconds to leave the current value unchanged.
func WithDefaultBucket(capacity int, refillRate float64, refillPeriodSeconds int) Option {
	return func(c *Config) error {
		if capacity <= 0 {
			return fmt.Errorf("distlimit: default capacity must be positive")
		}
		c.Default.Capacity = capacity
		if refillRate >= 0 {
			c.Default.RefillRate = refillRate
		}
		if refillPeriodSeconds >= 0 {
			c.Default.RefillPeriodSeconds = refillPeriodSeconds
		}
		return nil
	}
}

// WithCache sets Config.Cache (see CacheConfig: the resolver does not read
// these values).
func WithCache(cache CacheConfig) Option {
	return func(c *Config) error {
		if cache.ConfigTTLSeconds <= 0 {
			return fmt.Errorf("distlimit: cache ttl must be positive")
		}
		if cache.MaxSize <= 0 {
			return fmt.Errorf("distlimit: cache max size must be positive")
		}
		c.Cache = cache
		return nil
	}
}

// WithFailOpen selects the orchestrator's behaviour on store outage: true
// allows traffic through, false denies it.
func WithFailOpen(failOpen bool) Option {
	return func(c *Config) error {
		c.FailOpen = failOpen
		return nil
	}
}

// WithMetricsEnabled sets Config.MetricsEnabled. cmd/distlimitd does not
// read this field: metrics are collected and /metrics is served either way.
func WithMetricsEnabled(enabled bool) Option {
	return func(c *Config) error {
		c.MetricsEnabled = enabled
		return nil
	}
}

// WithDetailedLogging sets Config.DetailedLogging, which cmd/distlimitd uses
// to lower its log level to debug. No per-decision log lines are emitted.
func WithDetailedLogging(enabled bool) Option {
	return func(c *Config) error {
		c.DetailedLogging = enabled
		return nil
	}
}
