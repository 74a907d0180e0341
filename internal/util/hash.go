// Package util contains internal helpers (hashing, sharding, padding)
// shared by flatindex and kvcache.
//
//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

import (
	"fmt"

	"github.com/zeebo/xxh3"
)

// Hash hashes common key types with xxh3, a non-cryptographic hash chosen
// for its SIMD-friendly throughput on both short and long keys. It is the
// default hasher for flatindex.Map and for shard routing in kvcache.
// Supported: string, []byte, [16|32|64]byte, all int/uint widths, uintptr,
// fmt.Stringer. For other key types, either convert the key to string or
// supply a custom hasher upstream (both flatindex.Map and kvcache accept
// one).
//
// Panicking on unsupported types is deliberate to avoid silently poor
// hashing; callers with exotic key types should pass an explicit hash
// function instead of relying on this default.
func Hash[K comparable](k K) uint64 {
	switch v := any(k).(type) {
	case string:
		return xxh3.HashString(v)
	case []byte:
		return xxh3.Hash(v)
	case [16]byte:
		return xxh3.Hash(v[:])
	case [32]byte:
		return xxh3.Hash(v[:])
	case [64]byte:
		return xxh3.Hash(v[:])

	case uint8:
		return hashUint64(uint64(v))
	case uint16:
		return hashUint64(uint64(v))
	case uint32:
		return hashUint64(uint64(v))
	case uint64:
		return hashUint64(v)
	case uint:
		return hashUint64(uint64(v))
	case uintptr:
		return hashUint64(uint64(v))
	case int8:
		return hashUint64(uint64(uint8(v)))
	case int16:
		return hashUint64(uint64(uint16(v)))
	case int32:
		return hashUint64(uint64(uint32(v)))
	case int64:
		return hashUint64(uint64(v))
	case int:
		return hashUint64(uint64(v))

	case fmt.Stringer:
		return xxh3.HashString(v.String())
	default:
		panic(fmt.Sprintf("util.Hash: unsupported key type %T; convert key to string or provide a custom hasher", k))
	}
}

// hashUint64 hashes the 8 little-endian bytes of u without allocating a
// slice on the heap (the array backing b is stack-allocated).
func hashUint64(u uint64) uint64 {
	b := [8]byte{
		byte(u), byte(u >> 8), byte(u >> 16), byte(u >> 24),
		byte(u >> 32), byte(u >> 40), byte(u >> 48), byte(u >> 56),
	}
	return xxh3.Hash(b[:])
}
