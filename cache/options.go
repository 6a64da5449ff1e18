package cache

import (
	"context"
	"log/slog"
)

// EvictReason explains which limit forced an eviction.
type EvictReason int

const (
	// EvictCost — removed because total cost exceeded TotalCostLimit.
	EvictCost EvictReason = iota
	// EvictCount — removed because the entry count exceeded CountLimit.
	EvictCount
)

func (r EvictReason) String() string {
	switch r {
	case EvictCost:
		return "cost"
	case EvictCount:
		return "count"
	default:
		return "unknown"
	}
}

// Metrics exposes cache-level observability hooks.
// NoopMetrics is used when Options.Metrics is nil.
// Implementations are called under the cache lock and must not block.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries int, cost int64)
}

// EvictionObserver is told about every limit-driven eviction right before the
// entry is removed. It cannot veto the eviction.
//
// CacheWillEvict runs while the cache lock is held: calling back into the same
// cache from inside it deadlocks.
type EvictionObserver[K comparable, V any] interface {
	CacheWillEvict(c Cache[K, V], v V)
}

// ObserverFunc adapts a plain function to EvictionObserver.
type ObserverFunc[K comparable, V any] func(c Cache[K, V], v V)

// CacheWillEvict calls f(c, v).
func (f ObserverFunc[K, V]) CacheWillEvict(c Cache[K, V], v V) { f(c, v) }

// Options configures a cache. The zero value is a usable unlimited cache:
//   - TotalCostLimit == 0 => no cost limit
//   - CountLimit == 0     => no count limit
//   - nil Metrics         => NoopMetrics
//   - nil Logger          => logs discarded
type Options[K comparable, V any] struct {
	// Name labels the cache in logs and errors.
	Name string

	// TotalCostLimit is a soft ceiling on the sum of entry costs (0 = unlimited).
	TotalCostLimit int64
	// CountLimit is a soft ceiling on the number of entries (0 = unlimited).
	CountLimit int

	// Cost derives the cost for Set and Add when no explicit cost is given.
	// nil means cost 0. Negative results are clamped to 0.
	Cost func(v V) int64

	// Observer receives eviction notifications. It can be replaced later via SetObserver.
	Observer EvictionObserver[K, V]

	// Loader fetches a value and its cost on a GetOrLoad miss.
	Loader func(ctx context.Context, k K) (V, int64, error)

	// Shards is only read by NewSharded: 0 picks a count from GOMAXPROCS,
	// anything else is rounded up to a power of two.
	Shards int
	// Hash maps keys to shards for NewSharded. nil hashes strings, integers,
	// bools, fmt.Stringer keys and named types over those; other key types
	// must set it.
	Hash func(k K) uint64

	Metrics Metrics
	Logger  *slog.Logger
}

// withDefaults fills nil collaborators and clamps negative limits.
func (o Options[K, V]) withDefaults() Options[K, V] {
	if o.Metrics == nil {
		o.Metrics = NoopMetrics{}
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.TotalCostLimit < 0 {
		o.TotalCostLimit = 0
	}
	if o.CountLimit < 0 {
		o.CountLimit = 0
	}
	return o
}
