package cache

import "context"

// Cache is a cost-bounded in-memory key/value cache.
// All methods are safe for concurrent use by multiple goroutines.
//
// When TotalCostLimit or CountLimit is exceeded after a write, entries are
// evicted lowest cost first until the limit holds again. Limits are soft: the
// cost limit never evicts the last remaining entry, so a single entry costlier
// than the whole budget stays resident.
type Cache[K comparable, V any] interface {
	// Get returns the value for k and whether it was present.
	// Get never evicts and does not change eviction order.
	Get(k K) (V, bool)

	// Set inserts or updates k→v with the cost given by Options.Cost (0 if unset).
	Set(k K, v V)

	// SetWithCost inserts or updates k→v with an explicit cost.
	// Negative costs are treated as 0.
	SetWithCost(k K, v V, cost int64)

	// Add inserts k→v only if k is absent. Returns false if the key exists.
	Add(k K, v V, cost int64) bool

	// Remove deletes k if present. Explicit removal is not an eviction and
	// does not notify the observer.
	Remove(k K) bool

	// Clear drops every entry without notifying the observer.
	Clear()

	// Len returns the number of resident entries.
	Len() int

	// TotalCost returns the sum of the costs of resident entries.
	TotalCost() int64

	// TotalCostLimit returns the current cost ceiling (0 = unlimited).
	TotalCostLimit() int64
	// SetTotalCostLimit changes the cost ceiling. It does not evict; pressure is
	// resolved on the next write.
	SetTotalCostLimit(n int64)

	// CountLimit returns the current entry ceiling (0 = unlimited).
	CountLimit() int
	// SetCountLimit changes the entry ceiling. Like SetTotalCostLimit it does not evict.
	SetCountLimit(n int)

	// Observer returns the current eviction observer, or nil.
	Observer() EvictionObserver[K, V]
	// SetObserver replaces the eviction observer; nil silences notifications.
	SetObserver(o EvictionObserver[K, V])

	// KeysByCost returns a snapshot of keys in eviction order (lowest cost first).
	KeysByCost() []K

	// Stats returns a snapshot of counters and aggregates.
	Stats() Stats

	// Name returns Options.Name.
	Name() string

	// GetOrLoad returns the value for k, loading it via Options.Loader on miss.
	// Concurrent loads for the same key are coalesced.
	// Returns ErrNoLoader if no Loader was configured and ErrClosed after Close.
	GetOrLoad(ctx context.Context, k K) (V, error)

	// Close marks the cache closed: writes are ignored and reads miss.
	Close() error
}
