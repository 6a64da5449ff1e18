package cache

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/IvanBrykalov/costcache/internal/util"
)

// sharded spreads keys over independent costCache shards to cut lock
// contention. Limits are split evenly across shards (rounded up), so ordering
// and limits hold per shard: a cheap entry in one shard can outlive a costlier
// one evicted from another.
type sharded[K comparable, V any] struct {
	shards []*costCache[K, V]
	hash   func(K) uint64
	obs    *observerSlot[K, V]
	name   string

	// Global limits as configured; shards hold their share.
	costLimit  atomic.Int64
	countLimit atomic.Int64
}

// NewSharded constructs a cache partitioned into Options.Shards shards
// (rounded up to a power of two; 0 = based on GOMAXPROCS). Each shard has its
// own lock and enforces ceil(limit/shards) of each limit.
//
// The observer is shared by all shards and receives the sharded cache as its
// Cache argument.
func NewSharded[K comparable, V any](opt Options[K, V]) Cache[K, V] {
	opt = opt.withDefaults()
	n := util.ShardCount(opt.Shards)

	s := &sharded[K, V]{
		shards: make([]*costCache[K, V], n),
		hash:   opt.Hash,
		obs:    &observerSlot[K, V]{},
		name:   opt.Name,
	}
	if s.hash == nil {
		s.hash = util.Hash64[K]
	}
	s.obs.store(opt.Observer)
	s.costLimit.Store(opt.TotalCostLimit)
	s.countLimit.Store(int64(opt.CountLimit))

	per := opt
	per.TotalCostLimit = util.SplitCeil(opt.TotalCostLimit, n)
	per.CountLimit = int(util.SplitCeil(int64(opt.CountLimit), n))
	var totals *sizeTotals
	if _, noop := opt.Metrics.(NoopMetrics); !noop {
		totals = &sizeTotals{}
	}
	for i := range s.shards {
		o := per
		if totals != nil {
			o.Metrics = &shardMetrics{Metrics: opt.Metrics, totals: totals}
		}
		sh := newCostCache(o, s.obs)
		sh.owner = s
		sh.log = sh.log.With(slog.Int("shard", i))
		s.shards[i] = sh
	}
	return s
}

func (s *sharded[K, V]) shard(k K) *costCache[K, V] {
	return s.shards[util.ShardIndex(s.hash(k), len(s.shards))]
}

func (s *sharded[K, V]) Get(k K) (V, bool)                { return s.shard(k).Get(k) }
func (s *sharded[K, V]) Set(k K, v V)                     { s.shard(k).Set(k, v) }
func (s *sharded[K, V]) SetWithCost(k K, v V, cost int64) { s.shard(k).SetWithCost(k, v, cost) }
func (s *sharded[K, V]) Add(k K, v V, cost int64) bool    { return s.shard(k).Add(k, v, cost) }
func (s *sharded[K, V]) Remove(k K) bool                  { return s.shard(k).Remove(k) }

func (s *sharded[K, V]) GetOrLoad(ctx context.Context, k K) (V, error) {
	return s.shard(k).GetOrLoad(ctx, k)
}

// Clear empties the shards one at a time; it is not atomic across shards.
func (s *sharded[K, V]) Clear() {
	for _, sh := range s.shards {
		sh.Clear()
	}
}

func (s *sharded[K, V]) Len() int {
	total := 0
	for _, sh := range s.shards {
		total += sh.Len()
	}
	return total
}

func (s *sharded[K, V]) TotalCost() int64 {
	var total int64
	for _, sh := range s.shards {
		total += sh.TotalCost()
	}
	return total
}

func (s *sharded[K, V]) TotalCostLimit() int64 { return s.costLimit.Load() }

func (s *sharded[K, V]) SetTotalCostLimit(n int64) {
	if n < 0 {
		n = 0
	}
	s.costLimit.Store(n)
	per := util.SplitCeil(n, len(s.shards))
	for _, sh := range s.shards {
		sh.SetTotalCostLimit(per)
	}
}

func (s *sharded[K, V]) CountLimit() int { return int(s.countLimit.Load()) }

func (s *sharded[K, V]) SetCountLimit(n int) {
	if n < 0 {
		n = 0
	}
	s.countLimit.Store(int64(n))
	per := int(util.SplitCeil(int64(n), len(s.shards)))
	for _, sh := range s.shards {
		sh.SetCountLimit(per)
	}
}

func (s *sharded[K, V]) Observer() EvictionObserver[K, V]     { return s.obs.load() }
func (s *sharded[K, V]) SetObserver(o EvictionObserver[K, V]) { s.obs.store(o) }

// KeysByCost merges per-shard snapshots into one cost-ordered slice. Shards
// are snapshotted one after another, so concurrent writes may be partially
// reflected.
func (s *sharded[K, V]) KeysByCost() []K {
	var all []keyCost[K]
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.order.ascend(func(e *entry[K, V]) bool {
			all = append(all, keyCost[K]{e.key, e.cost})
			return true
		})
		sh.mu.Unlock()
	}
	slices.SortStableFunc(all, func(a, b keyCost[K]) int { return cmp.Compare(a.cost, b.cost) })

	keys := make([]K, len(all))
	for i, e := range all {
		keys[i] = e.k
	}
	return keys
}

type keyCost[K comparable] struct {
	k    K
	cost int64
}

func (s *sharded[K, V]) Stats() Stats {
	var total Stats
	for _, sh := range s.shards {
		total.merge(sh.Stats())
	}
	return total
}

func (s *sharded[K, V]) Name() string { return s.name }

func (s *sharded[K, V]) Close() error {
	for _, sh := range s.shards {
		_ = sh.Close()
	}
	return nil
}

// shardMetrics forwards to the cache's Metrics but reports Size as the sum
// over all shards. entries and cost are this shard's last report and are
// guarded by the shard's mu.
type shardMetrics struct {
	Metrics
	totals  *sizeTotals
	entries int
	cost    int64
}

func (m *shardMetrics) Size(entries int, cost int64) {
	m.totals.add(m.Metrics, entries-m.entries, cost-m.cost)
	m.entries, m.cost = entries, cost
}

// sizeTotals sums shard sizes. The lock keeps reports to the wrapped Metrics
// in the same order as the updates.
type sizeTotals struct {
	mu      sync.Mutex
	entries int
	cost    int64
}

func (t *sizeTotals) add(m Metrics, entries int, cost int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries += entries
	t.cost += cost
	m.Size(t.entries, t.cost)
}
