// Package flatindex implements a fixed-capacity, open-addressed hash table
// mapping a key to a 32-bit slot index. It is the C2 component of the
// handle-based cache: kvcache.Single and each kvcache shard embed one Map
// to translate a key into a position in their slot array.
//
// Design goals, carried from the original flat_index_map.h:
//  1. no node allocation or pointer chasing on the lookup path — the table
//     is one contiguous slice;
//  2. no growth or rehash after Init — callers past logical capacity get an
//     explicit failure, never silent resizing;
//  3. amortized O(1) lookups with a predictable, cache-friendly access
//     pattern (linear probing over a power-of-two bucket array).
package flatindex

import "github.com/WSPlXA/fdkvcache/internal/util"

type state uint8

const (
	stateEmpty state = iota
	stateOccupied
	stateDeleted
)

type entry[K comparable] struct {
	key   K
	value uint32
	state state
}

// Map is a fixed-capacity open-addressed key -> uint32 index. The zero
// value is not ready for use; call Init before any other method.
type Map[K comparable] struct {
	table      []entry[K]
	mask       uint64
	maxEntries int
	size       int
	tombstones int
	hash       func(K) uint64
}

// New constructs a Map that will hash keys with hash. A nil hash falls
// back to util.Hash[K], which covers strings, byte slices/arrays, all
// integer widths, and fmt.Stringer.
func New[K comparable](hash func(K) uint64) *Map[K] {
	if hash == nil {
		hash = util.Hash[K]
	}
	return &Map[K]{hash: hash}
}

// Init (re)allocates the bucket array for maxEntries logical entries. The
// physical table is nextPow2(maxEntries*2) long, keeping load factor <=0.5
// to bound probe chain length. maxEntries == 0 is normalized to 1. Init may
// be called again to discard all prior state.
func (m *Map[K]) Init(maxEntries int) {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	m.maxEntries = maxEntries
	capacity := util.NextPow2(uint64(maxEntries) * 2)
	m.table = make([]entry[K], capacity)
	m.mask = capacity - 1
	m.size = 0
	m.tombstones = 0
}

// Len reports the number of live entries.
func (m *Map[K]) Len() int { return m.size }

func (m *Map[K]) probeStart(key K) uint64 {
	return m.hash(key) & m.mask
}

func (m *Map[K]) nextIndex(idx uint64) uint64 {
	return (idx + 1) & m.mask
}

// Find looks up key and returns its slot index.
// Returns false on the first Empty bucket encountered, or after a full
// traversal of the table finds no match.
func (m *Map[K]) Find(key K) (uint32, bool) {
	if len(m.table) == 0 {
		return 0, false
	}
	idx := m.probeStart(key)
	for i := 0; i < len(m.table); i++ {
		e := &m.table[idx]
		if e.state == stateEmpty {
			return 0, false
		}
		if e.state == stateOccupied && e.key == key {
			return e.value, true
		}
		idx = m.nextIndex(idx)
	}
	return 0, false
}

// Insert inserts a new key or updates the value of an existing one.
// Tombstones seen along the probe chain are remembered and reused only if
// no Occupied match with an equal key is found first (the match always
// wins, updating the existing entry in place). New-key insertion is
// refused once size == maxEntries even if the physical table has room,
// enforcing the declared logical capacity. Returns false if the table is
// uninitialized, logically full, or the physical table has no room along
// the whole probe chain (should not happen given the x2 inflation, but is
// handled rather than assumed away).
func (m *Map[K]) Insert(key K, value uint32) bool {
	if len(m.table) == 0 {
		return false
	}

	idx := m.probeStart(key)
	firstDeleted := -1

	for i := 0; i < len(m.table); i++ {
		e := &m.table[idx]
		switch e.state {
		case stateEmpty:
			if firstDeleted >= 0 {
				return m.insertAt(uint64(firstDeleted), key, value)
			}
			return m.insertAt(idx, key, value)
		case stateDeleted:
			if firstDeleted < 0 {
				firstDeleted = int(idx)
			}
		default: // stateOccupied
			if e.key == key {
				e.value = value
				return true
			}
		}
		idx = m.nextIndex(idx)
	}

	if firstDeleted >= 0 {
		return m.insertAt(uint64(firstDeleted), key, value)
	}
	return false
}

func (m *Map[K]) insertAt(idx uint64, key K, value uint32) bool {
	e := &m.table[idx]
	if e.state == stateOccupied {
		e.value = value
		return true
	}
	if m.size >= m.maxEntries {
		return false
	}
	if e.state == stateDeleted {
		m.tombstones--
	}
	e.key = key
	e.value = value
	e.state = stateOccupied
	m.size++
	return true
}

// Erase removes key, marking its bucket as a tombstone rather than clearing
// it to Empty so later probe chains through this bucket stay intact.
// Tombstones are never swept; bounded growth comes from the logical
// capacity check in Insert plus the x2 bucket inflation, not compaction.
func (m *Map[K]) Erase(key K) bool {
	if len(m.table) == 0 {
		return false
	}
	idx := m.probeStart(key)
	for i := 0; i < len(m.table); i++ {
		e := &m.table[idx]
		if e.state == stateEmpty {
			return false
		}
		if e.state == stateOccupied && e.key == key {
			e.state = stateDeleted
			m.size--
			m.tombstones++
			return true
		}
		idx = m.nextIndex(idx)
	}
	return false
}
