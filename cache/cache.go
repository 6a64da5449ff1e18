package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/IvanBrykalov/costcache/internal/singleflight"
)

var (
	// ErrNoLoader is returned by GetOrLoad when no Loader was configured in Options.
	ErrNoLoader = errors.New("cache: no Loader provided")
	// ErrClosed is returned by GetOrLoad after Close.
	ErrClosed = errors.New("cache: closed")
)

// observerSlot holds the current observer. Shards of a sharded cache share
// one slot so a single SetObserver reaches all of them.
type observerSlot[K comparable, V any] struct {
	p atomic.Pointer[observerBox[K, V]]
}

type observerBox[K comparable, V any] struct{ o EvictionObserver[K, V] }

func (s *observerSlot[K, V]) load() EvictionObserver[K, V] {
	if b := s.p.Load(); b != nil {
		return b.o
	}
	return nil
}

func (s *observerSlot[K, V]) store(o EvictionObserver[K, V]) {
	if o == nil {
		s.p.Store(nil)
		return
	}
	s.p.Store(&observerBox[K, V]{o: o})
}

// costCache is a single-lock cache whose entries are kept in a list sorted by
// cost; evictions always take the cheapest entry first.
type costCache[K comparable, V any] struct {
	// ---- guarded by mu ----
	mu        sync.Mutex
	index     map[K]int32
	order     costList[K, V]
	totalCost int64

	costLimit  atomic.Int64
	countLimit atomic.Int64

	obs   *observerSlot[K, V]
	owner Cache[K, V] // passed to the observer; a sharded front-end when sharded
	opt   Options[K, V]
	log   *slog.Logger

	closed atomic.Bool
	sf     singleflight.Group[K, V]
	ctr    counters
}

// New constructs a cost-bounded cache guarded by a single mutex.
// The zero Options value gives an unlimited cache.
func New[K comparable, V any](opt Options[K, V]) Cache[K, V] {
	c := newCostCache(opt.withDefaults(), &observerSlot[K, V]{})
	c.owner = c
	c.obs.store(opt.Observer)
	return c
}

func newCostCache[K comparable, V any](opt Options[K, V], obs *observerSlot[K, V]) *costCache[K, V] {
	hint := opt.CountLimit
	if hint <= 0 || hint > 4096 {
		hint = 16
	}
	c := &costCache[K, V]{
		index: make(map[K]int32, hint),
		order: newCostList[K, V](hint),
		obs:   obs,
		opt:   opt,
		log:   opt.Logger.With(slog.String("cache", opt.Name)),
	}
	c.costLimit.Store(opt.TotalCostLimit)
	c.countLimit.Store(int64(opt.CountLimit))
	return c
}

// ---- Cache[K,V] implementation ----

func (c *costCache[K, V]) Get(k K) (V, bool) {
	if c.closed.Load() {
		var zero V
		return zero, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[k]
	if !ok {
		c.ctr.misses.Inc()
		c.opt.Metrics.Miss()
		var zero V
		return zero, false
	}
	c.ctr.hits.Inc()
	c.opt.Metrics.Hit()
	return c.order.slots[i].val, true
}

func (c *costCache[K, V]) Set(k K, v V) {
	c.SetWithCost(k, v, c.costOf(v))
}

func (c *costCache[K, V]) SetWithCost(k K, v V, cost int64) {
	if c.closed.Load() {
		return
	}
	if cost < 0 {
		cost = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.setLocked(k, v, cost)
	c.enforceLimitsLocked()
}

func (c *costCache[K, V]) Add(k K, v V, cost int64) bool {
	if c.closed.Load() {
		return false
	}
	if cost < 0 {
		cost = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.index[k]; exists {
		return false
	}
	c.setLocked(k, v, cost)
	c.enforceLimitsLocked()
	return true
}

func (c *costCache[K, V]) Remove(k K) bool {
	if c.closed.Load() {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[k]
	if !ok {
		return false
	}
	c.dropLocked(i)
	c.ctr.removes.Inc()
	c.opt.Metrics.Size(len(c.index), c.totalCost)
	return true
}

func (c *costCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.index)
	clear(c.index)
	c.order.reset()
	c.totalCost = 0
	c.opt.Metrics.Size(0, 0)
	c.log.Debug("cache cleared", slog.Int("entries", n))
}

func (c *costCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

func (c *costCache[K, V]) TotalCost() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalCost
}

func (c *costCache[K, V]) TotalCostLimit() int64 { return c.costLimit.Load() }

func (c *costCache[K, V]) SetTotalCostLimit(n int64) {
	if n < 0 {
		n = 0
	}
	c.costLimit.Store(n)
	c.log.Debug("cost limit changed", slog.Int64("limit", n))
}

func (c *costCache[K, V]) CountLimit() int { return int(c.countLimit.Load()) }

func (c *costCache[K, V]) SetCountLimit(n int) {
	if n < 0 {
		n = 0
	}
	c.countLimit.Store(int64(n))
	c.log.Debug("count limit changed", slog.Int("limit", n))
}

func (c *costCache[K, V]) Observer() EvictionObserver[K, V] { return c.obs.load() }

func (c *costCache[K, V]) SetObserver(o EvictionObserver[K, V]) { c.obs.store(o) }

func (c *costCache[K, V]) KeysByCost() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, len(c.index))
	c.order.ascend(func(e *entry[K, V]) bool {
		keys = append(keys, e.key)
		return true
	})
	return keys
}

func (c *costCache[K, V]) Stats() Stats {
	s := c.ctr.snapshot()
	c.mu.Lock()
	s.Entries = len(c.index)
	s.TotalCost = c.totalCost
	c.mu.Unlock()
	return s
}

func (c *costCache[K, V]) Name() string { return c.opt.Name }

func (c *costCache[K, V]) GetOrLoad(ctx context.Context, k K) (V, error) {
	var zero V
	if c.closed.Load() {
		return zero, ErrClosed
	}
	if v, ok := c.Get(k); ok {
		return v, nil
	}
	if c.opt.Loader == nil {
		return zero, ErrNoLoader
	}

	v, shared, err := c.sf.Do(ctx, k, func() (V, error) {
		// Another flight may have stored k between our miss and becoming leader.
		// The miss was already counted above.
		if v, ok := c.peek(k); ok {
			return v, nil
		}
		v, cost, err := c.opt.Loader(ctx, k)
		if err != nil {
			return v, err
		}
		c.SetWithCost(k, v, cost)
		return v, nil
	})
	if err != nil {
		return zero, fmt.Errorf("cache %q: load: %w", c.opt.Name, err)
	}
	if shared {
		c.log.Debug("load coalesced", slog.Any("key", k))
	}
	return v, nil
}

// peek is Get without hit/miss accounting.
func (c *costCache[K, V]) peek(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i, ok := c.index[k]; ok {
		return c.order.slots[i].val, true
	}
	var zero V
	return zero, false
}

func (c *costCache[K, V]) Close() error {
	c.closed.Store(true)
	return nil
}

// -------------------- internals (mu held) --------------------

// setLocked inserts or updates k. An update whose cost changed is re-positioned
// in the cost order; an unchanged cost keeps its place.
func (c *costCache[K, V]) setLocked(k K, v V, cost int64) {
	c.ctr.sets.Inc()

	if i, ok := c.index[k]; ok {
		e := &c.order.slots[i]
		delta := cost - e.cost
		e.val = v
		e.cost = cost
		if delta != 0 {
			c.order.unlink(i)
			c.order.insert(i)
		}
		c.totalCost += delta
		return
	}

	i := c.order.alloc(k, v, cost)
	c.index[k] = i
	c.order.insert(i)
	c.totalCost += cost
}

// dropLocked unlinks slot i, unmaps its key and releases the slot.
func (c *costCache[K, V]) dropLocked(i int32) {
	e := &c.order.slots[i]
	c.totalCost -= e.cost
	delete(c.index, e.key)
	c.order.unlink(i)
	c.order.release(i)
}

// enforceLimitsLocked evicts from the cheap end until both limits hold.
// The cost pass leaves a lone oversized entry in place; the count pass never
// needs to since CountLimit >= 1 whenever it is active.
func (c *costCache[K, V]) enforceLimitsLocked() {
	if limit := c.costLimit.Load(); limit > 0 {
		for c.totalCost > limit && c.order.live > 1 {
			c.evictHeadLocked(EvictCost)
		}
	}
	if limit := c.countLimit.Load(); limit > 0 {
		for int64(len(c.index)) > limit && c.order.head != none {
			c.evictHeadLocked(EvictCount)
		}
	}
	c.opt.Metrics.Size(len(c.index), c.totalCost)
}

// evictHeadLocked notifies the observer about the cheapest entry, then drops it.
func (c *costCache[K, V]) evictHeadLocked(reason EvictReason) {
	i := c.order.head
	e := &c.order.slots[i]
	if o := c.obs.load(); o != nil {
		o.CacheWillEvict(c.owner, e.val)
	}
	// Observers must not re-enter, so i is still the head.
	cost := e.cost
	c.dropLocked(i)

	switch reason {
	case EvictCost:
		c.ctr.costEvictions.Inc()
	case EvictCount:
		c.ctr.countEvictions.Inc()
	}
	c.opt.Metrics.Evict(reason)
	c.log.Debug("evicted entry", slog.String("reason", reason.String()), slog.Int64("cost", cost))
}

// costOf computes the default cost for Set.
func (c *costCache[K, V]) costOf(v V) int64 {
	if c.opt.Cost == nil {
		return 0
	}
	if n := c.opt.Cost(v); n > 0 {
		return n
	}
	return 0
}
