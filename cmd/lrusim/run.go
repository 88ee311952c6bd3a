package main

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	lru "github.com/workhorsy/lru-eviction-queue"
	"github.com/workhorsy/lru-eviction-queue/internal/workload"
	"github.com/workhorsy/lru-eviction-queue/metrics"
)

// cache is the subset of the LRU API the simulator drives.
type cache interface {
	Get(key string) (int, bool)
	Set(key string, value int)
}

// progressEvery controls how often workers log progress and check for cancellation.
const progressEvery = 100_000

func newCache(cfg Config, logger *slog.Logger, rec metrics.Recorder) (cache, error) {
	opts := []lru.Option{lru.WithLogger(logger), lru.WithRecorder(rec)}
	if cfg.Shards == 0 {
		return lru.NewSynced[string, int](cfg.Capacity, opts...)
	}
	return lru.NewShardedWithCount[string, int](cfg.Capacity, cfg.Shards, opts...)
}

// run splits cfg.Ops across cfg.Workers goroutines. A read miss is followed
// by a set of the same key.
func run(ctx context.Context, cfg Config, logger *slog.Logger) (metrics.Stats, error) {
	rec := metrics.NewSimple()
	c, err := newCache(cfg, logger, rec)
	if err != nil {
		return metrics.Stats{}, err
	}

	gens := make([]*workload.Generator, cfg.Workers)
	for i := range gens {
		gens[i], err = workload.New(workload.Config{
			Keys:         cfg.Keys,
			ReadRatio:    cfg.ReadRatio,
			Distribution: workload.Distribution(cfg.Distribution),
			ZipfS:        cfg.ZipfS,
			Seed:         cfg.Seed + int64(i),
		})
		if err != nil {
			return metrics.Stats{}, err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, gen := range gens {
		ops := cfg.Ops / cfg.Workers
		if i < cfg.Ops%cfg.Workers {
			ops++
		}
		g.Go(func() error {
			for n := 0; n < ops; n++ {
				if n%progressEvery == 0 && n > 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
					logger.Debug("worker progress", "worker", i, "done", n, "total", ops)
				}

				op, idx := gen.Next()
				key := workload.Key(idx)
				if op == workload.OpGet {
					if _, found := c.Get(key); found {
						continue
					}
				}
				c.Set(key, idx)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return rec.Snapshot(), err
	}
	return rec.Snapshot(), nil
}
