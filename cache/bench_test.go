package cache

import (
	"math/rand"
	"strconv"
	"sync/atomic"
	"testing"
)

// benchmarkMix exercises a read/write mix against a warm, cost-bounded cache.
// Writes pick random costs, so every write pays the ordered-insert scan.
func benchmarkMix(b *testing.B, c Cache[int, int], readsPct int) {
	b.Cleanup(func() { _ = c.Close() })

	for i := 0; i < 1_000; i++ {
		c.SetWithCost(i, i, int64(i%97))
	}

	b.ReportAllocs()
	b.ResetTimer()

	var seed int64 = 1
	keyMask := (1 << 12) - 1

	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(atomic.AddInt64(&seed, 1)))
		i := 0
		for pb.Next() {
			k := i & keyMask
			if r.Intn(100) < readsPct {
				c.Get(k)
			} else {
				c.SetWithCost(k, i, int64(r.Intn(97)))
			}
			i++
		}
	})
}

func BenchmarkCache_90r10w(b *testing.B) {
	benchmarkMix(b, New(Options[int, int]{CountLimit: 2_048}), 90)
}

func BenchmarkCache_50r50w(b *testing.B) {
	benchmarkMix(b, New(Options[int, int]{CountLimit: 2_048}), 50)
}

func BenchmarkSharded_90r10w(b *testing.B) {
	benchmarkMix(b, NewSharded(Options[int, int]{CountLimit: 2_048}), 90)
}

func BenchmarkSharded_50r50w(b *testing.B) {
	benchmarkMix(b, NewSharded(Options[int, int]{CountLimit: 2_048}), 50)
}

// BenchmarkCache_StringKeys measures the string-key path including hashing
// into shards.
func BenchmarkCache_StringKeys(b *testing.B) {
	c := NewSharded(Options[string, string]{TotalCostLimit: 1 << 20})
	b.Cleanup(func() { _ = c.Close() })

	keys := make([]string, 1<<12)
	for i := range keys {
		keys[i] = "k:" + strconv.Itoa(i)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := keys[i&(len(keys)-1)]
		c.SetWithCost(k, k, int64(len(k)))
		c.Get(k)
	}
}
