// Package util contains internal helpers (hashing, sharding, padding).
//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

import (
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/cespare/xxhash/v2"
)

// Hash64 hashes common comparable key types with xxHash64.
// Supported: string, []byte-like fixed arrays, all int/uint widths, uintptr, bool,
// fmt.Stringer, and named types whose underlying kind is one of these scalars.
// Any other key type panics; callers with custom keys must pass Options.Hash.
func Hash64[K comparable](k K) uint64 {
	switch v := any(k).(type) {
	case string:
		return xxhash.Sum64String(v)
	case [16]byte:
		return xxhash.Sum64(v[:])
	case [32]byte:
		return xxhash.Sum64(v[:])

	case int:
		return hashUint64(uint64(v))
	case int8:
		return hashUint64(uint64(uint8(v)))
	case int16:
		return hashUint64(uint64(uint16(v)))
	case int32:
		return hashUint64(uint64(uint32(v)))
	case int64:
		return hashUint64(uint64(v))
	case uint:
		return hashUint64(uint64(v))
	case uint8:
		return hashUint64(uint64(v))
	case uint16:
		return hashUint64(uint64(v))
	case uint32:
		return hashUint64(uint64(v))
	case uint64:
		return hashUint64(v)
	case uintptr:
		return hashUint64(uint64(v))
	case bool:
		if v {
			return hashUint64(1)
		}
		return hashUint64(0)

	case fmt.Stringer:
		return xxhash.Sum64String(v.String())
	default:
		return hashKind(k)
	}
}

// hashKind covers named types such as `type ID string` by their kind.
func hashKind[K comparable](k K) uint64 {
	rv := reflect.ValueOf(k)
	switch rv.Kind() {
	case reflect.String:
		return xxhash.Sum64String(rv.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return hashUint64(uint64(rv.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return hashUint64(rv.Uint())
	case reflect.Bool:
		if rv.Bool() {
			return hashUint64(1)
		}
		return hashUint64(0)
	default:
		panic(fmt.Sprintf("util.Hash64: unsupported key type %T; set Options.Hash", k))
	}
}

// hashUint64 hashes the 8 little-endian bytes of u.
func hashUint64(u uint64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], u)
	return xxhash.Sum64(b[:])
}
