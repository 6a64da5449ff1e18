package util

import (
	"math/bits"
	"runtime"
)

// MaxShards caps the shard count.
const MaxShards = 256

// ReasonableShardCount picks a default shard count from CPU parallelism:
// nextPow2(2*GOMAXPROCS), clamped to [1..MaxShards].
func ReasonableShardCount() int {
	p := runtime.GOMAXPROCS(0)
	if p < 1 {
		p = 1
	}
	return ShardCount(p * 2)
}

// ShardCount normalizes a requested shard count: n <= 0 selects
// ReasonableShardCount, anything else is rounded up to a power of two
// and clamped to MaxShards.
func ShardCount(n int) int {
	if n <= 0 {
		return ReasonableShardCount()
	}
	c := int(NextPow2(uint64(n)))
	if c > MaxShards {
		c = MaxShards
	}
	return c
}

// ShardIndex maps a 64-bit hash to a shard index.
// Uses a mask when shards is a power of two, modulo otherwise.
func ShardIndex(hash uint64, shards int) int {
	if shards <= 1 {
		return 0
	}
	if IsPowerOfTwo(uint64(shards)) {
		return int(hash & uint64(shards-1))
	}
	return int(hash % uint64(shards))
}

// SplitCeil divides a non-negative budget across n parts, rounding up so the
// sum of parts is never below the budget. A zero budget stays zero (unlimited).
func SplitCeil(budget int64, n int) int64 {
	if budget <= 0 || n <= 1 {
		return budget
	}
	return (budget + int64(n) - 1) / int64(n)
}

// IsPowerOfTwo reports whether x is a power of two (> 0).
func IsPowerOfTwo(x uint64) bool { return x != 0 && x&(x-1) == 0 }

// NextPow2 returns the smallest power of two >= x (1 for x == 0),
// clamped to 1<<63 when the next power would overflow.
func NextPow2(x uint64) uint64 {
	if x <= 1 {
		return 1
	}
	if x > 1<<63 {
		return 1 << 63
	}
	return 1 << bits.Len64(x-1)
}
