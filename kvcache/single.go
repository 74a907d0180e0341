package kvcache

import (
	"github.com/WSPlXA/fdkvcache/fdtoken"
	"github.com/WSPlXA/fdkvcache/internal/flatindex"
)

// Single is the single-threaded, fixed-capacity handle-based cache (C4).
// It is not safe for concurrent use; a single owner must perform all
// operations. Every operation after construction is allocation-free: the
// slot array and index table are sized once in NewSingle.
type Single[K comparable, V any] struct {
	pool    slotPool[K, V]
	index   *flatindex.Map[K]
	metrics Metrics
}

// NewSingle constructs a Single cache with room for capacityHint live
// entries (normalized to >=1). All internal storage is allocated here;
// no operation after this call allocates.
func NewSingle[K comparable, V any](capacityHint int, opt Options[K, V]) *Single[K, V] {
	if capacityHint <= 0 {
		capacityHint = 1
	}
	idx := flatindex.New[K](opt.hash())
	idx.Init(capacityHint)
	return &Single[K, V]{
		pool:    newSlotPool[K, V](capacityHint),
		index:   idx,
		metrics: opt.metrics(),
	}
}

// Insert inserts key->value under type typ. If key already exists, its
// existing handle is returned unchanged — Insert never updates an
// existing entry's value (use InsertOrAssign for that). Returns
// fdtoken.Null if the cache is full.
func (c *Single[K, V]) Insert(typ uint8, key K, value V) fdtoken.Token {
	if pos, ok := c.index.Find(key); ok {
		c.metrics.InsertExisting()
		return c.handleAt(pos)
	}

	pos := c.pool.allocate()
	if pos == invalidPosition {
		c.metrics.CapacityExhausted()
		return fdtoken.Null
	}

	s := &c.pool.slots[pos]
	s.key = key
	s.value = value
	s.typ = typ
	s.occupied = true

	if !c.index.Insert(s.key, pos) {
		// Internal inconsistency guard: AllocatePosition succeeded but the
		// index is logically full. Roll back so no partial state leaks.
		s.occupied = false
		c.pool.release(pos)
		c.metrics.CapacityExhausted()
		return fdtoken.Null
	}
	c.metrics.Insert()
	c.metrics.Size(c.index.Len())
	return fdtoken.Make(typ, s.generation, pos)
}

// InsertOrAssign inserts key->value, or, if key already exists, overwrites
// its value and type in place. The slot's position and generation are
// never touched by the overwrite path, so handles issued before the call
// remain valid if their type still matches; a handle minted with the old
// type will fail validation against the new one (see spec §9 on type as
// label vs identity).
func (c *Single[K, V]) InsertOrAssign(typ uint8, key K, value V) fdtoken.Token {
	if pos, ok := c.index.Find(key); ok {
		s := &c.pool.slots[pos]
		s.value = value
		s.typ = typ
		c.metrics.Upsert()
		return fdtoken.Make(typ, s.generation, pos)
	}
	return c.Insert(typ, key, value)
}

// Get validates handle and, on success, returns a pointer into the slot's
// value. The pointer is valid until the next Erase of the same handle (or
// any operation that could reuse its position); it must not be retained
// past that point. Returns (nil, false) for any invalid handle.
func (c *Single[K, V]) Get(handle fdtoken.Token) (*V, bool) {
	pos, ok := c.pool.validate(handle)
	if !ok {
		c.metrics.InvalidHandle()
		return nil, false
	}
	return &c.pool.slots[pos].value, true
}

// Erase validates handle and, if valid, removes its entry: the key is
// dropped from the index, the slot is marked free, its generation is
// bumped (wrapping per fdtoken.NextGeneration), and its position is
// returned to the freelist. Returns false for any invalid handle, or if
// the index erase fails (which would indicate the live-position invariant
// was already broken).
func (c *Single[K, V]) Erase(handle fdtoken.Token) bool {
	pos, ok := c.pool.validate(handle)
	if !ok {
		c.metrics.InvalidHandle()
		return false
	}
	s := &c.pool.slots[pos]
	if !c.index.Erase(s.key) {
		return false
	}
	c.pool.erase(pos)
	c.metrics.Erase()
	c.metrics.Size(c.index.Len())
	return true
}

// FindHandle looks up key and returns a freshly built handle reflecting
// the slot's current type and generation, or fdtoken.Null if key is
// absent.
func (c *Single[K, V]) FindHandle(key K) fdtoken.Token {
	pos, ok := c.index.Find(key)
	if !ok {
		return fdtoken.Null
	}
	return c.handleAt(pos)
}

// Len returns the number of live entries.
func (c *Single[K, V]) Len() int { return c.index.Len() }

// Empty reports whether the cache has no live entries.
func (c *Single[K, V]) Empty() bool { return c.Len() == 0 }

func (c *Single[K, V]) handleAt(pos uint32) fdtoken.Token {
	s := &c.pool.slots[pos]
	return fdtoken.Make(s.typ, s.generation, pos)
}
