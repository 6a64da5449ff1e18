package cache

import "github.com/IvanBrykalov/costcache/internal/util"

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits           uint64 `json:"hits"`
	Misses         uint64 `json:"misses"`
	Sets           uint64 `json:"sets"`
	Removes        uint64 `json:"removes"`
	CostEvictions  uint64 `json:"cost_evictions"`
	CountEvictions uint64 `json:"count_evictions"`
	Entries        int    `json:"entries"`
	TotalCost      int64  `json:"total_cost"`
}

// Evictions returns evictions for both reasons.
func (s Stats) Evictions() uint64 { return s.CostEvictions + s.CountEvictions }

// HitRatio returns hits/(hits+misses), or 0 before the first lookup.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

func (s *Stats) merge(o Stats) {
	s.Hits += o.Hits
	s.Misses += o.Misses
	s.Sets += o.Sets
	s.Removes += o.Removes
	s.CostEvictions += o.CostEvictions
	s.CountEvictions += o.CountEvictions
	s.Entries += o.Entries
	s.TotalCost += o.TotalCost
}

// counters are bumped under the cache lock but read without it by Stats,
// hence atomics; padding keeps shards from false-sharing.
type counters struct {
	hits           util.PaddedCounter
	misses         util.PaddedCounter
	sets           util.PaddedCounter
	removes        util.PaddedCounter
	costEvictions  util.PaddedCounter
	countEvictions util.PaddedCounter
}

func (c *counters) snapshot() Stats {
	return Stats{
		Hits:           c.hits.Load(),
		Misses:         c.misses.Load(),
		Sets:           c.sets.Load(),
		Removes:        c.removes.Load(),
		CostEvictions:  c.costEvictions.Load(),
		CountEvictions: c.countEvictions.Load(),
	}
}
