// Package telemetry provides comprehensive observability for Galen.
//
// # Overview
//
// The telemetry package implements structured logging, Prometheus metrics,
// OpenTelemetry distributed tracing, and health check endpoints. It provides
// visibility into conversion behavior while maintaining low overhead (<50µs
// per conversion).
//
// # Components
//
//   - logging: Structured logging with PHI redaction
//   - metrics: Prometheus metrics collection
//   - tracing: OpenTelemetry distributed tracing
//   - health: Health check endpoints
//
// # Usage
//
//	// Initialize telemetry
//	tel, err := telemetry.New(&cfg.Telemetry, version, commit, buildTime)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	// Get logger
//	logger := tel.Logger()
//	logger.Info("conversion complete", "duration_ms", 1.2)
//
//	// Record metrics
//	tel.Metrics().RecordConversion("success", "device", duration, 0.92, 3)
//
//	// Create span
//	ctx, span := tel.Tracer().Start(ctx, "galen.engine.convert")
//	defer span.End()
//
//	// Mount /healthz, /readyz, /version, and /metrics
//	tel.MountEndpoints(mux)
//
// # Performance
//
// The telemetry package is designed for minimal overhead:
//
//   - Logging: <10µs when enabled, <1µs when disabled
//   - Metrics: <50µs per metric update
//   - Tracing: <100µs per span
//
// # PHI Protection
//
// By default, patient identifiers are automatically redacted from logs:
//
//   - MRNs: MRN-00482917 → MRN-***
//   - Emails: patient@example.com → ***@***
//   - SSN: 123-45-6789 → ***-**-****
//   - IP addresses: 192.168.1.1 → *.*.*.*
//
// Custom redaction patterns can be configured. Span attributes never carry
// unmasked patient references.
package telemetry
