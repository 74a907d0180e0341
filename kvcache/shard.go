package kvcache

import (
	"sync"

	"github.com/WSPlXA/fdkvcache/internal/flatindex"
	"github.com/WSPlXA/fdkvcache/internal/util"
)

// shard is one independent (slot array + freelist + flat index) unit
// behind its own reader-writer lock (C5). It is cache-line padded so its
// mutable metadata doesn't false-share with a neighboring shard's.
type shard[K comparable, V any] struct {
	mu    sync.RWMutex
	pool  slotPool[K, V]
	index *flatindex.Map[K]

	_ util.CacheLinePad
}

func newShard[K comparable, V any](capacity int, hash func(K) uint64) *shard[K, V] {
	idx := flatindex.New[K](hash)
	idx.Init(capacity)
	return &shard[K, V]{
		pool:  newSlotPool[K, V](capacity),
		index: idx,
	}
}

func (s *shard[K, V]) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Len()
}
