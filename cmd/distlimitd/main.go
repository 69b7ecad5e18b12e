// Command distlimitd runs the distributed rate-limit decision service: it
// wires a Redis-backed store, the strategy registry, the configuration
// resolver, the decision orchestrator, background health checking, and the
// HTTP surface, then serves until terminated.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/distlimit/distlimit"
	"github.com/distlimit/distlimit/healthcheck"
	"github.com/distlimit/distlimit/httpapi"
	"github.com/distlimit/distlimit/metrics"
	"github.com/distlimit/distlimit/orchestrator"
	"github.com/distlimit/distlimit/resolver"
	"github.com/distlimit/distlimit/store"
	"github.com/distlimit/distlimit/strategies"
	"github.com/distlimit/distlimit/utils"

	_ "github.com/distlimit/distlimit/strategies/fixedwindow"
	_ "github.com/distlimit/distlimit/strategies/gcra"
	_ "github.com/distlimit/distlimit/strategies/leakybucket"
	_ "github.com/distlimit/distlimit/strategies/slidingwindowcounter"
	_ "github.com/distlimit/distlimit/strategies/slidingwindowlog"
	_ "github.com/distlimit/distlimit/strategies/tokenbucket"
)

func main() {
	if err := run(); err != nil {
		slog.Error("distlimitd exited", "error", err)
		os.Exit(1)
	}
}

// waitForStore pings the store, up to five attempts with a doubling delay,
// before the process commits to serving traffic against it. store.NewRedis
// has already pinged once and returns an error when the server is
// unreachable, so this loop runs only after that first ping succeeded; a
// store that is down at startup is not retried.
func waitForStore(s store.Store, logger *slog.Logger) error {
	const (
		maxAttempts  = 5
		initialDelay = 200 * time.Millisecond
		sleepThresh  = 2 * time.Second
	)

	delay := initialDelay
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		_, pingErr := s.Ping(context.Background())
		if pingErr == nil {
			return nil
		}
		lastErr = pingErr
		logger.Warn("store not yet reachable, retrying", "attempt", attempt, "delay", delay)
		if err := utils.SleepOrWait(context.Background(), delay, sleepThresh); err != nil {
			return err
		}
		delay *= 2
	}
	return fmt.Errorf("store unreachable after %d attempts: %w", maxAttempts, lastErr)
}

func run() error {
	cfg, err := distlimit.FromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logLevel := slog.LevelInfo
	if cfg.DetailedLogging {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	redisStore, err := store.NewRedis(store.Config{
		Addr:           fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:       cfg.Password,
		PoolSize:       cfg.Pool.MaxActive,
		MinIdleConn:    cfg.Pool.MinIdle,
		PoolTimeout:    cfg.Pool.MaxWait,
		CommandTimeout: cfg.CommandTimeout,
	})
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}

	if err := waitForStore(redisStore, logger); err != nil {
		return fmt.Errorf("store: %w", err)
	}

	registry, err := strategies.Build(redisStore)
	if err != nil {
		// Internal invariant: a mandated algorithm failed to register.
		return fmt.Errorf("strategy registry: %w", err)
	}

	defaultCfg := resolver.Config{
		Algorithm:           strategies.TokenBucket,
		Capacity:            cfg.Default.Capacity,
		RefillRate:          cfg.Default.RefillRate,
		RefillPeriodSeconds: cfg.Default.RefillPeriodSeconds,
	}
	res := resolver.New(redisStore, defaultCfg)

	m := metrics.New()

	orch := orchestrator.New(res, registry, m, logger, cfg.FailOpen)

	health := healthcheck.New(redisStore, healthcheck.Config{
		Interval:         5 * time.Second,
		Timeout:          cfg.CommandTimeout,
		FailureThreshold: 3,
		RecoveryTimeout:  30 * time.Second,
	}, logger)
	health.Start()
	defer health.Stop()

	srv := httpapi.New(orch, res, redisStore, m, health, logger)

	httpServer := &http.Server{
		Addr:              ":8080",
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("distlimitd listening", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
