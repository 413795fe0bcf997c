// Package metrics provides Prometheus metrics collection for Galen.
//
// # Overview
//
// The metrics package implements Prometheus metrics for monitoring dose
// conversion processing, guardrail evaluation, registry and formulary
// usage, and audit recording. Conversions are in-memory computations,
// so metric recording is kept far cheaper than the work it measures.
//
// # Metrics Categories
//
//   - Conversion Metrics: Conversion count, duration, confidence, and steps
//   - Guardrail Metrics: Evaluation count, duration, findings, and loaded rules
//   - Registry Metrics: Registered unit counts and unit lookup results
//   - Formulary Metrics: Cache hits/misses, profile counts, and store errors
//   - Audit Metrics: Records enqueued, dropped, and pruned
//
// # Usage
//
//	// Create collector
//	collector := metrics.NewCollector(config, registry)
//
//	// Record conversion metrics
//	collector.RecordConversion(
//		"success",            // outcome
//		"device",             // path
//		180*time.Microsecond, // duration
//		0.85,                 // confidence
//		2,                    // steps
//	)
//
//	// Record guardrail metrics
//	collector.RecordGuardrailEvaluation("block", 150*time.Microsecond)
//	collector.RecordGuardrailFinding("max-single-dose", "block")
//
//	// Observe the formulary cache at scrape time
//	collector.ObserveFormularyCache(cached.Stats, cached.Len)
//
// # Histogram Buckets
//
// The collector uses histogram buckets sized for in-memory conversion
// latencies and bounded confidence scores:
//
//	Conversion Duration: 1µs up to 10ms
//	Confidence: 0.1 up to 1.0
//
// Both are overridable through MetricsConfig.
//
// # Prometheus Endpoint
//
// All metrics are exposed on the /metrics endpoint in standard Prometheus format:
//
//	# HELP meridianrx_galen_conversions_total Total number of dose conversions processed
//	# TYPE meridianrx_galen_conversions_total counter
//	meridianrx_galen_conversions_total{outcome="success",path="device"} 1234
//
// # Cardinality Management
//
// Outcome, path, decision, and severity labels are closed vocabularies.
// The one user-supplied label, the unit token on lookup metrics, passes
// through a cardinality limiter that aggregates the long tail into
// "other" after 1,000 unique tokens.
package metrics
