// Package cache provides a generic, thread-safe in-memory cache bounded by
// entry cost and entry count, evicting the cheapest entries first.
//
// Design
//
//   - Cost: every entry carries a non-negative integer cost (bytes, render
//     time, anything additive). Negative costs are clamped to 0.
//
//   - Limits: TotalCostLimit bounds the sum of costs and CountLimit bounds the
//     number of entries; 0 disables either one. Limits are soft: they are
//     enforced at the end of each write, may be changed at any time, and a
//     change takes effect on the next write. The cost limit never evicts the
//     last remaining entry, so one entry costlier than the whole budget stays.
//
//   - Eviction order: entries sit in a doubly linked list sorted by ascending
//     cost. Evictions always take the head (the cheapest entry). Reads never
//     reorder; this is not an LRU.
//
//   - Storage: the list lives in a slice arena addressed by int32 indices, with
//     a free list for slot reuse. A map[K]int32 gives O(1) lookups. Inserting
//     or re-costing an entry scans the list, so writes are O(n) in the worst case.
//
//   - Concurrency: one sync.Mutex per cache guards the map and the list for
//     the whole body of every operation. NewSharded splits keys across
//     independent shards when lock contention matters more than a global
//     eviction order.
//
//   - Observer: an EvictionObserver is called for each eviction, before the
//     entry is removed, while the lock is held. It must not call back into the
//     same cache. Remove and Clear are not evictions and are not reported.
//
//   - GetOrLoad: coalesces concurrent loads for the same key. The Loader
//     returns the value together with its cost.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Size signals
//     (NoopMetrics by default); see metrics/prom for a Prometheus adapter.
//
// Basic usage
//
//	c := cache.New[string, []byte](cache.Options[string, []byte]{
//	    TotalCostLimit: 64 << 20,
//	    Cost:           func(b []byte) int64 { return int64(len(b)) },
//	})
//	c.Set("a", []byte("payload"))
//	if v, ok := c.Get("a"); ok {
//	    _ = v
//	}
//
// Observing evictions
//
//	c.SetObserver(cache.ObserverFunc[string, []byte](func(_ cache.Cache[string, []byte], v []byte) {
//	    pool.Put(v) // must not call c here
//	}))
package cache
