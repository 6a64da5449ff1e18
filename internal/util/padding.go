//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

import (
	"sync/atomic"
	"unsafe"
)

// CacheLineSize is a reasonable default for most modern CPUs.
const CacheLineSize = 64

// PaddedCounter is an atomic uint64 counter padded to one cache line, so
// counters bumped from different shards do not false-share.
type PaddedCounter struct {
	atomic.Uint64
	_ [CacheLineSize - 8]byte
}

// Inc adds one to the counter.
func (c *PaddedCounter) Inc() { c.Add(1) }

var _ [CacheLineSize - int(unsafe.Sizeof(PaddedCounter{}))]byte
