package kvcache

// Metrics exposes cache-level observability hooks. A NoopMetrics
// implementation is provided and used by default; plug in
// metrics/prom.Adapter to export these to Prometheus.
//
// Unlike an evicting cache, this cache never removes a live entry on its
// own, so there is no Evict/Hit/Miss pair to report — the signals that
// matter here are about the handle-based contract itself: did an insert
// land or bounce off a full table, did a caller present a handle that no
// longer validates, how many entries are currently resident.
type Metrics interface {
	// Insert is called when Insert/InsertOrAssign creates a new entry.
	Insert()
	// InsertExisting is called when Insert finds the key already present
	// (the idempotent, no-op-on-value path).
	InsertExisting()
	// Upsert is called when InsertOrAssign overwrites an existing entry.
	Upsert()
	// Erase is called on a successful Erase.
	Erase()
	// CapacityExhausted is called when an insert fails because the cache
	// (or, for the sharded cache, the target shard) is logically full.
	CapacityExhausted()
	// InvalidHandle is called when Get/Read/Write/Erase is given a handle
	// that fails validation (null, out-of-range, wrong shard, unoccupied
	// slot, type or generation mismatch).
	InvalidHandle()
	// Size reports the current number of resident entries.
	Size(entries int)
}

// NoopMetrics is a drop-in Metrics implementation that does nothing. It is
// safe for concurrent use and is the default when no observability backend
// is configured.
type NoopMetrics struct{}

func (NoopMetrics) Insert()            {}
func (NoopMetrics) InsertExisting()    {}
func (NoopMetrics) Upsert()            {}
func (NoopMetrics) Erase()             {}
func (NoopMetrics) CapacityExhausted() {}
func (NoopMetrics) InvalidHandle()     {}
func (NoopMetrics) Size(int)           {}

var _ Metrics = NoopMetrics{}
