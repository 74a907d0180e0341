package kvcache

import "github.com/WSPlXA/fdkvcache/internal/util"

// Options configures a cache. The zero value is safe: a nil Hash falls
// back to util.Hash[K] and a nil Metrics falls back to NoopMetrics.
type Options[K comparable, V any] struct {
	// Hash hashes keys for both the flat index and, for a sharded cache,
	// shard routing. Must be pure and consistent with ==.
	Hash func(K) uint64
	// Metrics receives cache observability signals; see the Metrics
	// interface. Nil means NoopMetrics.
	Metrics Metrics
}

func (o Options[K, V]) hash() func(K) uint64 {
	if o.Hash != nil {
		return o.Hash
	}
	return util.Hash[K]
}

func (o Options[K, V]) metrics() Metrics {
	if o.Metrics != nil {
		return o.Metrics
	}
	return NoopMetrics{}
}

// DefaultShardBits is the default width of the shard-id field carved out
// of a token's 32-bit position, clamping a sharded cache to at most 256
// shards and each shard to 2^24 local positions.
const DefaultShardBits = 8

// ShardedOptions configures a Sharded cache.
type ShardedOptions[K comparable, V any] struct {
	Options[K, V]
	// ShardBits is the width of the shard-id field within a token's
	// position. 0 normalizes to DefaultShardBits. Must be in [1,31] (a
	// local index field of zero width would make every shard useless).
	ShardBits uint8
}

func (o ShardedOptions[K, V]) shardBits() uint8 {
	if o.ShardBits == 0 {
		return DefaultShardBits
	}
	return o.ShardBits
}
