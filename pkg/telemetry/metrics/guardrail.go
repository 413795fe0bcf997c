package metrics

import (
	"time"

	"meridianrx/galen/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// GuardrailMetrics tracks metrics related to dose-safety rule evaluation.
//
// Metrics:
//   - meridianrx_galen_guardrail_evaluations_total: Total evaluations by decision
//   - meridianrx_galen_guardrail_evaluation_duration_seconds: Evaluation duration
//   - meridianrx_galen_guardrail_findings_total: Findings by rule and severity
//   - meridianrx_galen_guardrail_active_rules: Currently loaded rule count
type GuardrailMetrics struct {
	// Total evaluations by decision
	evaluationsTotal *prometheus.CounterVec

	// Evaluation duration histogram
	evaluationDuration prometheus.Histogram

	// Findings by rule and severity
	findingsTotal *prometheus.CounterVec

	// Currently loaded rules (gauge, set on load/reload)
	activeRules prometheus.Gauge
}

// NewGuardrailMetrics creates and registers guardrail metrics with the provided registry.
func NewGuardrailMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *GuardrailMetrics {
	gm := &GuardrailMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "guardrail_evaluations_total",
				Help:      "Total number of guardrail evaluations by decision",
			},
			[]string{"decision"},
		),

		evaluationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "guardrail_evaluation_duration_seconds",
				Help:      "Duration of guardrail evaluation in seconds",
				// Evaluations are in-memory rule matching (< 10ms)
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
		),

		findingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "guardrail_findings_total",
				Help:      "Total number of guardrail findings by rule and severity",
			},
			[]string{"rule", "severity"},
		),

		activeRules: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "guardrail_active_rules",
				Help:      "Number of currently loaded guardrail rules",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		gm.evaluationsTotal,
		gm.evaluationDuration,
		gm.findingsTotal,
		gm.activeRules,
	)

	return gm
}

// RecordEvaluation records a guardrail evaluation.
//
// Parameters:
//   - decision: Verdict decision ("allow", "warn", "block")
//   - duration: Time taken to evaluate the rule set
//
// Example:
//
//	gm.RecordEvaluation("block", 150*time.Microsecond)
func (gm *GuardrailMetrics) RecordEvaluation(decision string, duration time.Duration) {
	gm.evaluationsTotal.WithLabelValues(decision).Inc()
	gm.evaluationDuration.Observe(duration.Seconds())
}

// RecordFinding records a single firing rule.
//
// Parameters:
//   - rule: Rule identifier (e.g., "max-single-dose")
//   - severity: Rule severity ("warn", "block")
func (gm *GuardrailMetrics) RecordFinding(rule, severity string) {
	gm.findingsTotal.WithLabelValues(rule, severity).Inc()
}

// UpdateActiveRules sets the number of currently loaded rules.
// Called after an initial load or a hot reload.
func (gm *GuardrailMetrics) UpdateActiveRules(count int) {
	gm.activeRules.Set(float64(count))
}
