// Command bench runs a synthetic cost-weighted workload against the cache and
// exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IvanBrykalov/costcache/cache"
	pmet "github.com/IvanBrykalov/costcache/metrics/prom"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "bench:", err)
		os.Exit(2)
	}
	log := cfg.Log.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("bench failed", slog.Any("err", err))
		os.Exit(1)
	}
}

// result is the tally of one run.
type result struct {
	reads, writes, hits, misses, evictions atomic.Uint64
}

func run(ctx context.Context, cfg Config, log *slog.Logger) error {
	// ---- pprof server (on DefaultServeMux) ----
	if addr := cfg.Server.PprofAddr; addr != "" {
		go func() {
			log.Info("pprof: serving", slog.String("addr", addr))
			if err := http.ListenAndServe(addr, nil); err != nil {
				log.Warn("pprof server stopped", slog.Any("err", err))
			}
		}()
	}

	// ---- Prometheus metrics (own registry and mux) ----
	reg := prometheus.NewRegistry()
	metrics, err := pmet.New(reg, "costcache", "bench", prometheus.Labels{"cache": cfg.Cache.Name})
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	if addr := cfg.Server.MetricsAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info("metrics: serving", slog.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("metrics server stopped", slog.Any("err", err))
			}
		}()
		defer func() { _ = srv.Close() }()
	}

	// ---- Build cache ----
	var res result
	opt := cache.Options[string, string]{
		Name:           cfg.Cache.Name,
		TotalCostLimit: cfg.Cache.TotalCostLimit,
		CountLimit:     cfg.Cache.CountLimit,
		Shards:         cfg.Cache.Shards,
		Metrics:        metrics,
		Logger:         log,
		Observer: cache.ObserverFunc[string, string](func(cache.Cache[string, string], string) {
			res.evictions.Add(1)
		}),
	}
	var c cache.Cache[string, string]
	if cfg.Cache.Sharded {
		c = cache.NewSharded(opt)
	} else {
		c = cache.New(opt)
	}
	defer func() { _ = c.Close() }()

	w := cfg.Workload
	costOf := func(r *rand.Rand) int64 {
		return w.MinCost + r.Int63n(w.MaxCost-w.MinCost+1)
	}

	// ---- Preload to get a realistic hit-rate ----
	pl := w.Preload
	if pl == 0 {
		pl = cfg.Cache.CountLimit / 2
	}
	pr := rand.New(rand.NewSource(w.Seed))
	for i := 0; i < pl; i++ {
		c.SetWithCost("k:"+strconv.Itoa(i), "v"+strconv.Itoa(i), costOf(pr))
	}
	log.Info("preloaded", slog.Int("entries", c.Len()), slog.Int64("total_cost", c.TotalCost()))

	// ---- Load generation ----
	runCtx, cancel := context.WithTimeout(ctx, w.Duration)
	defer cancel()

	workers := w.Workers
	if workers <= 0 {
		workers = 1
	}
	keysMax := uint64(w.Keys - 1)

	start := time.Now()
	g, gctx := errgroup.WithContext(runCtx)
	for id := 0; id < workers; id++ {
		g.Go(func() error {
			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			r := rand.New(rand.NewSource(w.Seed + int64(id)*9973))
			zipf := rand.NewZipf(r, w.ZipfS, w.ZipfV, keysMax)

			for gctx.Err() == nil {
				k := "k:" + strconv.FormatUint(zipf.Uint64(), 10)
				if r.Intn(100) < w.ReadPct {
					res.reads.Add(1)
					if _, ok := c.Get(k); ok {
						res.hits.Add(1)
					} else {
						res.misses.Add(1)
					}
					continue
				}
				res.writes.Add(1)
				c.SetWithCost(k, "v"+strconv.Itoa(r.Int()), costOf(r))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	report(cfg, c, &res, elapsed, workers, log)
	return nil
}

func report(cfg Config, c cache.Cache[string, string], res *result, elapsed time.Duration, workers int, log *slog.Logger) {
	reads, writes := res.reads.Load(), res.writes.Load()
	hits, misses := res.hits.Load(), res.misses.Load()
	ops := reads + writes

	hitRate := 0.0
	if reads > 0 {
		hitRate = float64(hits) / float64(reads) * 100
	}
	st := c.Stats()

	log.Info("bench finished",
		slog.String("cache", c.Name()),
		slog.Bool("sharded", cfg.Cache.Sharded),
		slog.Int("workers", workers),
		slog.Duration("elapsed", elapsed),
		slog.Uint64("ops", ops),
		slog.Float64("ops_per_sec", float64(ops)/elapsed.Seconds()),
		slog.Uint64("cost_evictions", st.CostEvictions),
		slog.Uint64("count_evictions", st.CountEvictions),
	)

	fmt.Printf("cache=%s sharded=%v cost_limit=%d count_limit=%d workers=%d keys=%d dur=%v seed=%d\n",
		c.Name(), cfg.Cache.Sharded, c.TotalCostLimit(), c.CountLimit(), workers, cfg.Workload.Keys, elapsed, cfg.Workload.Seed)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  writes=%d\n", ops, float64(ops)/elapsed.Seconds(), reads, writes)
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%  evictions=%d\n", hits, misses, hitRate, res.evictions.Load())
	fmt.Printf("Len()=%d  TotalCost()=%d\n", st.Entries, st.TotalCost)
}
