package metrics

import (
	"meridianrx/galen/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// AuditMetrics tracks audit-trail recording and retention.
//
// Metrics:
//   - meridianrx_galen_audit_records_total: Records enqueued by outcome
//   - meridianrx_galen_audit_drops_total: Records dropped (full buffer or closed recorder)
//   - meridianrx_galen_audit_pruned_records_total: Records removed by retention pruning
type AuditMetrics struct {
	// Records accepted by the recorder
	recordsTotal *prometheus.CounterVec

	// Records the recorder could not accept
	dropsTotal prometheus.Counter

	// Records removed by the retention pruner
	prunedTotal prometheus.Counter
}

// NewAuditMetrics creates and registers audit metrics with the provided registry.
func NewAuditMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AuditMetrics {
	am := &AuditMetrics{
		recordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_records_total",
				Help:      "Total number of audit records enqueued by outcome",
			},
			[]string{"outcome"},
		),

		dropsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_drops_total",
				Help:      "Total number of audit records dropped",
			},
		),

		prunedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_pruned_records_total",
				Help:      "Total number of audit records removed by retention pruning",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		am.recordsTotal,
		am.dropsTotal,
		am.prunedTotal,
	)

	return am
}

// RecordEnqueued records an audit record accepted by the recorder.
//
// Parameters:
//   - outcome: Conversion outcome ("success", "error", "blocked")
func (am *AuditMetrics) RecordEnqueued(outcome string) {
	am.recordsTotal.WithLabelValues(outcome).Inc()
}

// RecordDrop records an audit record the recorder rejected.
func (am *AuditMetrics) RecordDrop() {
	am.dropsTotal.Inc()
}

// RecordPruned records retention pruning removals.
//
// Parameters:
//   - removed: Number of records removed in this prune run
func (am *AuditMetrics) RecordPruned(removed int64) {
	if removed > 0 {
		am.prunedTotal.Add(float64(removed))
	}
}
