package kvcache

import "github.com/WSPlXA/fdkvcache/fdtoken"

// slot is one cell of a cache's slot array (C3). Slots exist for the
// lifetime of the cache; Erase never destroys one, it only flips occupied
// back to 0, clears typ, bumps generation so stale handles stop
// validating, and returns the position to the freelist.
type slot[K comparable, V any] struct {
	key        K
	value      V
	generation uint32
	typ        uint8
	occupied   bool
}

const invalidPosition = ^uint32(0)

// slotPool owns a fixed-length slot array plus the freelist/cursor pair
// that hands out positions in it. It is embedded by both Single and shard
// so the single-threaded and sharded caches allocate positions identically.
type slotPool[K comparable, V any] struct {
	slots      []slot[K, V]
	free       []uint32 // LIFO freelist of released positions
	nextUnused uint32   // monotonic cursor into the untouched tail
}

func newSlotPool[K comparable, V any](capacity int) slotPool[K, V] {
	if capacity <= 0 {
		capacity = 1
	}
	p := slotPool[K, V]{
		slots: make([]slot[K, V], capacity),
		free:  make([]uint32, 0, capacity),
	}
	for i := range p.slots {
		p.slots[i].generation = 1
	}
	return p
}

func (p *slotPool[K, V]) capacity() int { return len(p.slots) }

// allocate hands out a position: LIFO from the freelist first (biasing
// reuse toward recently-touched cache lines and exercising tombstone reuse
// in the index), otherwise the next untouched slot. Returns
// invalidPosition if the pool is exhausted.
func (p *slotPool[K, V]) allocate() uint32 {
	if n := len(p.free); n > 0 {
		pos := p.free[n-1]
		p.free = p.free[:n-1]
		return pos
	}
	if p.nextUnused >= uint32(len(p.slots)) {
		return invalidPosition
	}
	pos := p.nextUnused
	p.nextUnused++
	return pos
}

// release pushes pos back onto the freelist. Callers must have already
// marked the slot unoccupied. erase bumps the generation before calling
// release; the insert rollback path releases a position it never handed
// out in a handle, so it leaves the generation as is.
func (p *slotPool[K, V]) release(pos uint32) {
	p.free = append(p.free, pos)
}

// erase marks the slot at pos free and advances its generation, per the
// per-slot state machine: Occupied(g,...) --Erase--> Free(nextGen(g)).
func (p *slotPool[K, V]) erase(pos uint32) {
	s := &p.slots[pos]
	s.occupied = false
	s.typ = 0
	s.generation = fdtoken.NextGeneration(s.generation)
	p.release(pos)
}

// validate checks all three conditions a handle must satisfy to be usable:
// in-range position, an occupied slot, and exact type+generation match. It
// returns the position and true on success, or (invalidPosition, false) on
// any mismatch — never a read from an unoccupied slot or across
// generations.
//
// This takes the handle's position field as the slot array index directly,
// which only holds for a cache whose position space IS the slot array
// (Single). A sharded cache's position additionally encodes a shard id, so
// it must decode that first and validate against the decoded local index
// via validateLocal instead.
func (p *slotPool[K, V]) validate(h fdtoken.Token) (uint32, bool) {
	if fdtoken.IsNull(h) {
		return invalidPosition, false
	}
	return p.validateLocal(fdtoken.Position(h), h)
}

// validateLocal validates h against the slot at local directly, without
// re-deriving local from h's position field. Used by the sharded cache,
// which has already decoded {shard_id, local_index} itself.
func (p *slotPool[K, V]) validateLocal(local uint32, h fdtoken.Token) (uint32, bool) {
	pos := local
	if pos >= uint32(len(p.slots)) {
		return invalidPosition, false
	}
	s := &p.slots[pos]
	if !s.occupied {
		return invalidPosition, false
	}
	if s.typ != fdtoken.Type(h) {
		return invalidPosition, false
	}
	if s.generation != fdtoken.Generation(h) {
		return invalidPosition, false
	}
	return pos, true
}
