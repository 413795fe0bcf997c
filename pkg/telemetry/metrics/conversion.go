package metrics

import (
	"time"

	"meridianrx/galen/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ConversionMetrics tracks metrics related to dose conversion processing.
//
// Metrics:
//   - meridianrx_galen_conversions_total: Total conversion count by outcome and path
//   - meridianrx_galen_conversion_duration_seconds: Conversion duration histogram
//   - meridianrx_galen_conversion_confidence: Confidence score histogram
//   - meridianrx_galen_conversion_steps: Steps-per-conversion histogram
type ConversionMetrics struct {
	// Total conversion count
	conversionsTotal *prometheus.CounterVec

	// Conversion duration histogram
	conversionDuration *prometheus.HistogramVec

	// Confidence score distribution
	confidence prometheus.Histogram

	// Number of steps per conversion
	steps *prometheus.HistogramVec
}

// NewConversionMetrics creates and registers conversion metrics with the provided registry.
func NewConversionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ConversionMetrics {
	cm := &ConversionMetrics{
		conversionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "conversions_total",
				Help:      "Total number of dose conversions processed",
			},
			[]string{"outcome", "path"},
		),

		conversionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "conversion_duration_seconds",
				Help:      "Duration of dose conversions in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"path"},
		),

		confidence: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "conversion_confidence",
				Help:      "Distribution of conversion confidence scores",
				Buckets:   cfg.ConfidenceBuckets,
			},
		),

		steps: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "conversion_steps",
				Help:      "Number of steps per conversion",
				Buckets:   prometheus.LinearBuckets(1, 1, 10), // 1 to 10 steps
			},
			[]string{"path"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		cm.conversionsTotal,
		cm.conversionDuration,
		cm.confidence,
		cm.steps,
	)

	return cm
}

// RecordConversion records metrics for a completed conversion.
//
// Parameters:
//   - outcome: Conversion outcome ("success", "error", "blocked")
//   - path: Conversion path ("identity", "standard", "concentration", "device", "custom")
//   - duration: Conversion duration
//   - confidence: Confidence score in [0, 1]
//   - steps: Number of conversion steps taken
func (cm *ConversionMetrics) RecordConversion(outcome, path string, duration time.Duration, confidence float64, steps int) {
	// Increment conversion counter
	cm.conversionsTotal.WithLabelValues(outcome, path).Inc()

	// Record duration
	cm.conversionDuration.WithLabelValues(path).Observe(duration.Seconds())

	// Record confidence and steps for conversions that produced a result
	if outcome != "error" {
		cm.confidence.Observe(confidence)
		if steps > 0 {
			cm.steps.WithLabelValues(path).Observe(float64(steps))
		}
	}
}
