// Package prom exports cache signals as Prometheus metrics.
package prom

import (
	"github.com/IvanBrykalov/costcache/cache"
	"github.com/prometheus/client_golang/prometheus"
)

// Adapter implements cache.Metrics and exports Prometheus counters/gauges.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
//
// Several caches may share one Adapter, but the size gauges then report
// whichever cache wrote last; use one Adapter per cache (distinct constLabels)
// for accurate gauges.
type Adapter struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions *prometheus.CounterVec
	entries   prometheus.Gauge
	cost      prometheus.Gauge
}

// New constructs and registers a Prometheus metrics adapter.
//   - reg:          registry to register with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
//
// Registration errors (e.g. duplicate metrics) are returned rather than panicking.
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) (*Adapter, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		}
	}

	a := &Adapter{
		hits:   prometheus.NewCounter(prometheus.CounterOpts(opts("hits_total", "Cache hits"))),
		misses: prometheus.NewCounter(prometheus.CounterOpts(opts("misses_total", "Cache misses"))),
		evictions: prometheus.NewCounterVec(
			prometheus.CounterOpts(opts("evictions_total", "Limit-driven evictions by the limit that forced them")),
			[]string{"reason"},
		),
		entries: prometheus.NewGauge(prometheus.GaugeOpts(opts("entries", "Number of resident entries"))),
		cost:    prometheus.NewGauge(prometheus.GaugeOpts(opts("total_cost", "Sum of resident entry costs"))),
	}
	for _, c := range []prometheus.Collector{a.hits, a.misses, a.evictions, a.entries, a.cost} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	// Pre-create both label values so dashboards see zeros instead of gaps.
	a.evictions.WithLabelValues(cache.EvictCost.String())
	a.evictions.WithLabelValues(cache.EvictCount.String())
	return a, nil
}

// MustNew is like New but panics on registration errors.
func MustNew(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	a, err := New(reg, ns, sub, constLabels)
	if err != nil {
		panic(err)
	}
	return a
}

// Hit increments the hit counter.
func (a *Adapter) Hit() { a.hits.Inc() }

// Miss increments the miss counter.
func (a *Adapter) Miss() { a.misses.Inc() }

// Evict increments the eviction counter labelled "cost" or "count".
func (a *Adapter) Evict(r cache.EvictReason) { a.evictions.WithLabelValues(r.String()).Inc() }

// Size updates the entries and total_cost gauges.
func (a *Adapter) Size(entries int, cost int64) {
	a.entries.Set(float64(entries))
	a.cost.Set(float64(cost))
}

var _ cache.Metrics = (*Adapter)(nil)
