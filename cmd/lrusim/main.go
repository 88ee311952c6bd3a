// Command lrusim replays a synthetic workload against an LRU cache and
// reports hit ratio and eviction counts.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

func main() {
	cfg, err := loadConfig(nil)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("starting simulation",
		"capacity", cfg.Capacity,
		"shards", cfg.Shards,
		"keys", cfg.Keys,
		"ops", cfg.Ops,
		"read_ratio", cfg.ReadRatio,
		"distribution", cfg.Distribution,
		"workers", cfg.Workers,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	stats, err := run(ctx, cfg, logger)
	if err != nil {
		logger.Error("simulation failed", "error", err)
		os.Exit(1)
	}

	logger.Info("simulation finished",
		"elapsed", time.Since(start),
		"hits", stats.GetHit,
		"misses", stats.GetMiss,
		"sets_new", stats.SetNew,
		"sets_update", stats.SetUpdate,
		"evicted", stats.Evicted,
		"entries", stats.Len,
		"hit_ratio", stats.HitRatio(),
	)
}

func newLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	if strings.EqualFold(level, "debug") {
		lvl = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(h)
}
