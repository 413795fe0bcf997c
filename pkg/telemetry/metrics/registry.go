package metrics

import (
	"meridianrx/galen/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RegistryMetrics tracks metrics related to the unit and device registries.
//
// Metrics:
//   - meridianrx_galen_registry_units: Registered unit count by tier
//   - meridianrx_galen_unit_lookups_total: Unit lookups by unit and result
type RegistryMetrics struct {
	// Registered units (gauge, labeled by tier)
	units *prometheus.GaugeVec

	// Unit lookup counter
	lookupsTotal *prometheus.CounterVec
}

// NewRegistryMetrics creates and registers registry metrics with the provided registry.
func NewRegistryMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RegistryMetrics {
	rm := &RegistryMetrics{
		units: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "registry_units",
				Help:      "Number of registered units by tier",
			},
			[]string{"tier"},
		),

		lookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "unit_lookups_total",
				Help:      "Total number of unit lookups by unit and result",
			},
			[]string{"unit", "result"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		rm.units,
		rm.lookupsTotal,
	)

	return rm
}

// UpdateUnitCount sets the registered unit count for a tier.
//
// Parameters:
//   - tier: Registry tier ("standard", "device")
//   - count: Number of registered units
func (rm *RegistryMetrics) UpdateUnitCount(tier string, count int) {
	rm.units.WithLabelValues(tier).Set(float64(count))
}

// RecordLookup records a unit lookup.
//
// Parameters:
//   - unit: The unit token looked up (caller is responsible for
//     cardinality control; unknown tokens should be aggregated)
//   - result: Lookup result ("found", "unknown")
func (rm *RegistryMetrics) RecordLookup(unit, result string) {
	rm.lookupsTotal.WithLabelValues(unit, result).Inc()
}
