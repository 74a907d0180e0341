package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/WSPlXA/fdkvcache/kvcache"
)

// Adapter implements kvcache.Metrics and exports Prometheus counters/gauges.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	inserts           prometheus.Counter
	insertsExisting   prometheus.Counter
	upserts           prometheus.Counter
	erases            prometheus.Counter
	capacityExhausted prometheus.Counter
	invalidHandles    prometheus.Counter
	size              prometheus.Gauge
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		inserts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "inserts_total",
			Help:        "New entries created by Insert/InsertOrAssign",
			ConstLabels: constLabels,
		}),
		insertsExisting: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "inserts_existing_total",
			Help:        "Insert calls that found the key already present",
			ConstLabels: constLabels,
		}),
		upserts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "upserts_total",
			Help:        "InsertOrAssign calls that overwrote an existing entry",
			ConstLabels: constLabels,
		}),
		erases: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "erases_total",
			Help:        "Successful Erase calls",
			ConstLabels: constLabels,
		}),
		capacityExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "capacity_exhausted_total",
			Help:        "Inserts that bounced off a full cache or shard",
			ConstLabels: constLabels,
		}),
		invalidHandles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "invalid_handles_total",
			Help:        "Get/Read/Write/Erase calls given a handle that failed validation",
			ConstLabels: constLabels,
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "size_entries",
			Help:        "Number of resident entries",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.inserts, a.insertsExisting, a.upserts, a.erases,
		a.capacityExhausted, a.invalidHandles, a.size)
	return a
}

func (a *Adapter) Insert()            { a.inserts.Inc() }
func (a *Adapter) InsertExisting()    { a.insertsExisting.Inc() }
func (a *Adapter) Upsert()            { a.upserts.Inc() }
func (a *Adapter) Erase()             { a.erases.Inc() }
func (a *Adapter) CapacityExhausted() { a.capacityExhausted.Inc() }
func (a *Adapter) InvalidHandle()     { a.invalidHandles.Inc() }
func (a *Adapter) Size(entries int)   { a.size.Set(float64(entries)) }

// Compile-time check: ensure Adapter implements kvcache.Metrics.
var _ kvcache.Metrics = (*Adapter)(nil)
