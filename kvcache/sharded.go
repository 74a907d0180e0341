package kvcache

import (
	"sync/atomic"

	"github.com/WSPlXA/fdkvcache/fdtoken"
	"github.com/WSPlXA/fdkvcache/internal/util"
)

// Sharded is the concurrent, fixed-capacity handle-based cache (C6). It
// splits storage into shardCount independent shards, each with its own
// lock, slot array, and flat index; a token's position field encodes
// {shard_id, local_index} so any handle can be routed straight to its
// shard without consulting the others.
//
// Reads and writes on different shards run fully in parallel. Operations
// on the same key are always routed to the same shard and are therefore
// serialized by that shard's lock; operations on different keys mapping to
// the same shard are also serialized there. Len is eventually consistent:
// it is backed by one relaxed atomic counter shared by every shard.
type Sharded[K comparable, V any] struct {
	shards    []*shard[K, V]
	hash      func(K) uint64
	localBits uint32
	localMask uint32
	metrics   Metrics
	size      atomic.Int64
}

// NewSharded constructs a Sharded cache. shardCount is clamped to
// [1, 2^ShardBits] (2^8=256 by default) and rounded up to zero-safety only
// (it need not be a power of two: routing uses hash % shardCount).
// reserveHint is the total capacity across all shards; 0 defaults to
// 2^15. Per-shard capacity is ceil(reserveHint/shardCount), clamped to
// 2^(32-ShardBits) local positions so local_index always fits its field.
func NewSharded[K comparable, V any](shardCount, reserveHint int, opt ShardedOptions[K, V]) *Sharded[K, V] {
	shardBits := opt.shardBits()
	maxShards := 1 << shardBits
	if shardCount <= 0 {
		shardCount = defaultShardCount()
	}
	if shardCount > maxShards {
		shardCount = maxShards
	}

	localBits := uint32(32 - shardBits)
	localMask := uint32(1)<<localBits - 1
	hardLimit := int(localMask) + 1

	if reserveHint <= 0 {
		reserveHint = 1 << 15
	}
	perShard := (reserveHint + shardCount - 1) / shardCount
	if perShard <= 0 {
		perShard = 1
	}
	if perShard > hardLimit {
		perShard = hardLimit
	}

	hash := opt.hash()
	shards := make([]*shard[K, V], shardCount)
	for i := range shards {
		shards[i] = newShard[K, V](perShard, hash)
	}

	return &Sharded[K, V]{
		shards:    shards,
		hash:      hash,
		localBits: localBits,
		localMask: localMask,
		metrics:   opt.metrics(),
	}
}

// defaultShardCount mirrors the original's fallback to hardware
// concurrency: 2*GOMAXPROCS rounded to a power of two, clamped to 256, or
// 4 if that heuristic ever yields nothing usable.
func defaultShardCount() int {
	n := util.ReasonableShardCount()
	if n < 1 {
		n = 4
	}
	return n
}

func (c *Sharded[K, V]) shardIndexForKey(key K) int {
	return util.ShardIndex(c.hash(key), len(c.shards))
}

func (c *Sharded[K, V]) encodePosition(shardID int, local uint32) uint32 {
	return uint32(shardID)<<c.localBits | (local & c.localMask)
}

// decodePosition splits a token's position into {shard_id, local_index}.
// Returns ok=false for a null token or one whose shard id is out of range
// for this instance — callers must never index c.shards with an
// unvalidated id.
func (c *Sharded[K, V]) decodePosition(h fdtoken.Token) (shardID int, local uint32, ok bool) {
	if fdtoken.IsNull(h) {
		return 0, 0, false
	}
	pos := fdtoken.Position(h)
	shardID = int(pos >> c.localBits)
	local = pos & c.localMask
	if shardID < 0 || shardID >= len(c.shards) {
		return 0, 0, false
	}
	return shardID, local, true
}

// Insert inserts key->value under type typ, routed to the shard owning
// key. If key already exists in that shard, its existing handle is
// returned unchanged. Returns fdtoken.Null if the target shard is full.
func (c *Sharded[K, V]) Insert(typ uint8, key K, value V) fdtoken.Token {
	return c.insert(typ, key, value, false)
}

// InsertOrAssign inserts key->value, or overwrites value/type in place if
// key already exists in its shard.
func (c *Sharded[K, V]) InsertOrAssign(typ uint8, key K, value V) fdtoken.Token {
	return c.insert(typ, key, value, true)
}

func (c *Sharded[K, V]) insert(typ uint8, key K, value V, assignIfExists bool) fdtoken.Token {
	shardID := c.shardIndexForKey(key)
	s := c.shards[shardID]

	s.mu.Lock()
	defer s.mu.Unlock()

	if local, ok := s.index.Find(key); ok {
		slot := &s.pool.slots[local]
		if assignIfExists {
			slot.value = value
			slot.typ = typ
			c.metrics.Upsert()
		} else {
			c.metrics.InsertExisting()
		}
		return fdtoken.Make(slot.typ, slot.generation, c.encodePosition(shardID, local))
	}

	local := s.pool.allocate()
	if local == invalidPosition {
		c.metrics.CapacityExhausted()
		return fdtoken.Null
	}

	slot := &s.pool.slots[local]
	slot.key = key
	slot.value = value
	slot.typ = typ
	slot.occupied = true

	if !s.index.Insert(slot.key, local) {
		slot.occupied = false
		s.pool.release(local)
		c.metrics.CapacityExhausted()
		return fdtoken.Null
	}
	c.size.Add(1)
	c.metrics.Insert()
	c.metrics.Size(int(c.size.Load()))
	return fdtoken.Make(typ, slot.generation, c.encodePosition(shardID, local))
}

// Read validates handle and, under the owning shard's shared lock, calls
// reader with the current value. reader must be short: it runs while
// holding the shard's read lock and must not call back into this cache
// (deadlock risk).
func (c *Sharded[K, V]) Read(handle fdtoken.Token, reader func(V)) bool {
	shardID, local, ok := c.decodePosition(handle)
	if !ok {
		c.metrics.InvalidHandle()
		return false
	}
	s := c.shards[shardID]
	if local >= uint32(s.pool.capacity()) {
		c.metrics.InvalidHandle()
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.pool.validateLocal(local, handle)
	if !ok {
		c.metrics.InvalidHandle()
		return false
	}
	reader(s.pool.slots[pos].value)
	return true
}

// Get is a convenience wrapper over Read that copies the value into out.
func (c *Sharded[K, V]) Get(handle fdtoken.Token, out *V) bool {
	return c.Read(handle, func(v V) { *out = v })
}

// Write validates handle and, under the owning shard's exclusive lock,
// calls writer with a pointer to the value so it can be mutated in place.
// writer must be short, for the same reasons as Read's reader.
func (c *Sharded[K, V]) Write(handle fdtoken.Token, writer func(*V)) bool {
	shardID, local, ok := c.decodePosition(handle)
	if !ok {
		c.metrics.InvalidHandle()
		return false
	}
	s := c.shards[shardID]
	if local >= uint32(s.pool.capacity()) {
		c.metrics.InvalidHandle()
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.pool.validateLocal(local, handle)
	if !ok {
		c.metrics.InvalidHandle()
		return false
	}
	writer(&s.pool.slots[pos].value)
	return true
}

// Update overwrites the value behind handle with value.
func (c *Sharded[K, V]) Update(handle fdtoken.Token, value V) bool {
	return c.Write(handle, func(v *V) { *v = value })
}

// Erase validates handle and, if valid, removes its entry under the
// owning shard's exclusive lock: the key is dropped from the shard's
// index, the local slot is freed with a bumped generation, and the global
// size counter is decremented (relaxed).
func (c *Sharded[K, V]) Erase(handle fdtoken.Token) bool {
	shardID, local, ok := c.decodePosition(handle)
	if !ok {
		c.metrics.InvalidHandle()
		return false
	}
	s := c.shards[shardID]
	if local >= uint32(s.pool.capacity()) {
		c.metrics.InvalidHandle()
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.pool.validateLocal(local, handle)
	if !ok {
		c.metrics.InvalidHandle()
		return false
	}
	slot := &s.pool.slots[pos]
	if !s.index.Erase(slot.key) {
		return false
	}
	s.pool.erase(pos)
	c.size.Add(-1)
	c.metrics.Erase()
	c.metrics.Size(int(c.size.Load()))
	return true
}

// FindHandle looks up key, routes to its shard under a shared lock, and
// returns a freshly built handle, or fdtoken.Null if absent.
func (c *Sharded[K, V]) FindHandle(key K) fdtoken.Token {
	shardID := c.shardIndexForKey(key)
	s := c.shards[shardID]

	s.mu.RLock()
	defer s.mu.RUnlock()

	local, ok := s.index.Find(key)
	if !ok {
		return fdtoken.Null
	}
	slot := &s.pool.slots[local]
	return fdtoken.Make(slot.typ, slot.generation, c.encodePosition(shardID, local))
}

// Len returns the total number of resident entries across all shards.
// It is backed by a relaxed atomic counter and may lag inside a window of
// concurrent mutations.
func (c *Sharded[K, V]) Len() int { return int(c.size.Load()) }

// Empty reports whether the cache currently has no live entries.
func (c *Sharded[K, V]) Empty() bool { return c.Len() == 0 }

// ShardCount returns the number of shards this cache was constructed
// with.
func (c *Sharded[K, V]) ShardCount() int { return len(c.shards) }

// Number is the constraint accepted by Add's delta parameter.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Add is a convenience built on Write: it adds delta to the value behind
// handle in place. It is a free function, not a method, because it needs
// a type parameter (Number) beyond Sharded's own K and V.
func Add[K comparable, V Number](c *Sharded[K, V], handle fdtoken.Token, delta V) bool {
	return c.Write(handle, func(v *V) { *v += delta })
}
