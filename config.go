package distlimit

import (
	"os"
	"strconv"
	"time"
)

// PoolConfig bounds the store's connection pool.
type PoolConfig struct {
	MaxActive int
	MaxIdle   int
	MinIdle   int
	MaxWait   time.Duration
}

// DefaultBucketConfig holds the parameters of the token-bucket default used
// when a bucket key resolves to neither an exact nor a pattern config.
type DefaultBucketConfig struct {
	Capacity            int
	RefillRate          float64
	RefillPeriodSeconds int
}

// CacheConfig holds cache tuning values. cmd/distlimitd does not pass them
// to the resolver, whose in-process caches have no TTL or size bound and
// are emptied only by config saves, deletes, reloads and an explicit clear.
type CacheConfig struct {
	ConfigTTLSeconds int
	MaxSize          int
	EnableStats      bool
}

// Config is the process-level configuration recognised by distlimit: store
// connection, pool sizing, the default bucket, cache tuning, and the
// failure/observability policy.
type Config struct {
	Host     string
	Port     int
	Password string

	CommandTimeout time.Duration
	Pool           PoolConfig
	Default        DefaultBucketConfig
	Cache          CacheConfig

	FailOpen        bool
	MetricsEnabled  bool
	DetailedLogging bool
}

// NewConfig builds a Config from sensible defaults, then applies opts in
// order.
func NewConfig(opts ...Option) (Config, error) {
	cfg := Config{
		Host:           "localhost",
		Port:           6379,
		CommandTimeout: 500 * time.Millisecond,
		Pool: PoolConfig{
			MaxActive: 50,
			MaxIdle:   10,
			MinIdle:   1,
			MaxWait:   1 * time.Second,
		},
		Default: DefaultBucketConfig{
			Capacity:            100,
			RefillRate:          100,
			RefillPeriodSeconds: 60,
		},
		Cache: CacheConfig{
			ConfigTTLSeconds: 60,
			MaxSize:          10000,
			EnableStats:      false,
		},
		FailOpen:       true,
		MetricsEnabled: true,
	}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// FromEnv populates a Config from the process environment, following the
// DISTLIMIT_* variable names, then applies any extra opts on top.
func FromEnv(opts ...Option) (Config, error) {
	var envOpts []Option

	if v := os.Getenv("DISTLIMIT_HOST"); v != "" {
		envOpts = append(envOpts, WithHost(v))
	}
	if v := os.Getenv("DISTLIMIT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			envOpts = append(envOpts, WithPort(port))
		}
	}
	if v := os.Getenv("DISTLIMIT_PASSWORD"); v != "" {
		envOpts = append(envOpts, WithPassword(v))
	}
	if v := os.Getenv("DISTLIMIT_COMMAND_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			envOpts = append(envOpts, WithCommandTimeout(time.Duration(ms)*time.Millisecond))
		}
	}
	if v := os.Getenv("DISTLIMIT_FAIL_OPEN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			envOpts = append(envOpts, WithFailOpen(b))
		}
	}
	if v := os.Getenv("DISTLIMIT_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			envOpts = append(envOpts, WithMetricsEnabled(b))
		}
	}
	if v := os.Getenv("DISTLIMIT_DETAILED_LOGGING"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			envOpts = append(envOpts, WithDetailedLogging(b))
		}
	}
	if v := os.Getenv("DISTLIMIT_DEFAULT_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			envOpts = append(envOpts, WithDefaultBucket(n, -1, -1))
		}
	}

	return NewConfig(append(envOpts, opts...)...)
}
