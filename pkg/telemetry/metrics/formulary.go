package metrics

import (
	"sync"

	"meridianrx/galen/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// FormularyMetrics tracks formulary store and cache performance.
//
// Metrics:
//   - meridianrx_galen_formulary_cache_hits_total: Total cache hits
//   - meridianrx_galen_formulary_cache_misses_total: Total cache misses
//   - meridianrx_galen_formulary_cache_entries: Current number of cached profiles
//   - meridianrx_galen_formulary_profiles: Number of profiles in the store
//   - meridianrx_galen_formulary_store_errors_total: Store errors by operation
//
// The cache counters are read at scrape time from the cache's own
// counters (see ObserveCache), so recording costs nothing on the
// lookup path.
type FormularyMetrics struct {
	cfg      *config.MetricsConfig
	registry *prometheus.Registry

	// Profiles currently in the store
	profiles prometheus.Gauge

	// Store error counter
	storeErrors *prometheus.CounterVec

	// Guards one-time cache observer registration
	mu       sync.Mutex
	observed bool
}

// NewFormularyMetrics creates and registers formulary metrics with the provided registry.
func NewFormularyMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *FormularyMetrics {
	fm := &FormularyMetrics{
		cfg:      cfg,
		registry: registry,

		profiles: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "formulary_profiles",
				Help:      "Number of medication profiles in the formulary store",
			},
		),

		storeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "formulary_store_errors_total",
				Help:      "Total number of formulary store errors by operation",
			},
			[]string{"op"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		fm.profiles,
		fm.storeErrors,
	)

	return fm
}

// ObserveCache registers scrape-time collectors over the formulary
// cache's hit/miss counters and entry count. Call once after the cache
// is constructed; subsequent calls are ignored.
//
// Example:
//
//	cached := cache.New(store, 512)
//	fm.ObserveCache(cached.Stats, cached.Len)
func (fm *FormularyMetrics) ObserveCache(stats func() (hits, misses int64), entries func() int) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	if fm.observed {
		return
	}
	fm.observed = true

	fm.registry.MustRegister(
		prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace: fm.cfg.Namespace,
				Subsystem: fm.cfg.Subsystem,
				Name:      "formulary_cache_hits_total",
				Help:      "Total number of formulary cache hits",
			},
			func() float64 {
				hits, _ := stats()
				return float64(hits)
			},
		),
		prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace: fm.cfg.Namespace,
				Subsystem: fm.cfg.Subsystem,
				Name:      "formulary_cache_misses_total",
				Help:      "Total number of formulary cache misses",
			},
			func() float64 {
				_, misses := stats()
				return float64(misses)
			},
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: fm.cfg.Namespace,
				Subsystem: fm.cfg.Subsystem,
				Name:      "formulary_cache_entries",
				Help:      "Current number of cached medication profiles",
			},
			func() float64 {
				return float64(entries())
			},
		),
	)
}

// UpdateProfileCount sets the number of profiles in the store.
// Called after seed loading and after profile upserts.
func (fm *FormularyMetrics) UpdateProfileCount(count int) {
	fm.profiles.Set(float64(count))
}

// RecordStoreError records a formulary store error.
//
// Parameters:
//   - op: Store operation ("get", "put", "delete", "list")
func (fm *FormularyMetrics) RecordStoreError(op string) {
	fm.storeErrors.WithLabelValues(op).Inc()
}
