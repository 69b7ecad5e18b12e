package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config configures the Redis-backed Store.
type Config struct {
	Addr     string // host:port, ignored when RedisURL is set
	Password string
	DB       int

	// RedisURL, in redis:// or unix:// form, takes precedence over Addr et al.
	RedisURL string

	PoolSize    int
	MinIdleConn int
	PoolTimeout time.Duration

	// CommandTimeout bounds every individual command; exceeding it surfaces
	// as ErrUnavailable.
	CommandTimeout time.Duration
}

type redisStore struct {
	client         redis.UniversalClient
	commandTimeout time.Duration
}

// NewRedis builds a Store backed by a real Redis (or Redis-compatible)
// server, per cfg.
func NewRedis(cfg Config) (Store, error) {
	var opts *redis.Options
	var err error

	if cfg.RedisURL != "" {
		opts, err = redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("store: parse redis url: %w", err)
		}
	} else {
		opts = &redis.Options{Addr: cfg.Addr}
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	if cfg.PoolSize != 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConn != 0 {
		opts.MinIdleConns = cfg.MinIdleConn
	}
	if cfg.PoolTimeout != 0 {
		opts.PoolTimeout = cfg.PoolTimeout
	}

	client := redis.NewClient(opts)

	timeout := cfg.CommandTimeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}

	s := &redisStore{client: client, commandTimeout: timeout}

	pingCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if _, err := s.Ping(pingCtx); err != nil {
		return nil, err
	}
	return s, nil
}

// NewRedisWithClient adapts an already-connected UniversalClient (e.g. a
// cluster or sentinel client assembled by the caller).
func NewRedisWithClient(client redis.UniversalClient, commandTimeout time.Duration) Store {
	if commandTimeout <= 0 {
		commandTimeout = 500 * time.Millisecond
	}
	return &redisStore{client: client, commandTimeout: commandTimeout}
}

func (s *redisStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.commandTimeout)
}

func (s *redisStore) RunScript(ctx context.Context, script *Script, keys []string, argv []any) ([]any, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := script.redisScript.Run(ctx, s.client, keys, argv...).Result()
	if err != nil {
		return nil, maybeUnavailable("redis:"+script.Name, err)
	}
	tuple, ok := res.([]any)
	if !ok {
		return nil, NewScriptError("redis:"+script.Name, fmt.Errorf("unexpected script result type %T", res))
	}
	return tuple, nil
}

func (s *redisStore) HSet(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	pairs := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		pairs = append(pairs, k, v)
	}
	if err := s.client.HSet(ctx, key, pairs...).Err(); err != nil {
		return maybeUnavailable("redis:HSet", err)
	}
	if ttl > 0 {
		if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
			return maybeUnavailable("redis:Expire", err)
		}
	}
	return nil
}

func (s *redisStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, maybeUnavailable("redis:HGetAll", err)
	}
	return res, nil
}

func (s *redisStore) Scan(ctx context.Context, prefix string) ([]KeyDescriptor, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var cursor uint64
	var out []KeyDescriptor
	match := prefix + "*"
	for {
		keys, next, err := s.client.Scan(ctx, cursor, match, 200).Result()
		if err != nil {
			return nil, maybeUnavailable("redis:Scan", err)
		}
		for _, k := range keys {
			ttl, err := s.client.TTL(ctx, k).Result()
			if err != nil {
				ttl = -1
			}
			out = append(out, KeyDescriptor{Key: k, TTL: ttl})
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return out, nil
}

func (s *redisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return maybeUnavailable("redis:Del", err)
	}
	return nil
}

func (s *redisStore) Ping(ctx context.Context) (time.Duration, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	if err := s.client.Ping(ctx).Err(); err != nil {
		return 0, maybeUnavailable("redis:Ping", err)
	}
	return time.Since(start), nil
}
