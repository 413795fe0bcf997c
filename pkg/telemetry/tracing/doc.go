// Package tracing provides OpenTelemetry distributed tracing for Galen.
//
// # Overview
//
// The tracing package implements W3C Trace Context propagation, span creation,
// and trace export to OTLP collectors. It provides visibility into conversion
// request flows with minimal overhead (<100µs per span).
//
// # Distributed Tracing
//
// Each span records:
//   - Operation name and duration
//   - Attributes (key-value pairs)
//   - Events (timestamped logs within the span)
//   - Trace context (trace ID, span ID, sampling decision)
//
// # Trace Context Propagation
//
// The package implements W3C Trace Context (https://www.w3.org/TR/trace-context/)
// for propagating trace context across HTTP boundaries:
//
//	traceparent: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
//	tracestate: congo=t61rcWkgMzE
//
// # Sampling Strategies
//
// Three sampling strategies are supported:
//   - always: Sample all traces (development/debugging)
//   - never: Sample no traces (tracing disabled)
//   - ratio: Sample a percentage of traces (production)
//
// # Usage
//
//	// Initialize tracer
//	cfg := &config.TracingConfig{
//	    Enabled:     true,
//	    Sampler:     "ratio",
//	    SampleRatio: 0.1,
//	    Exporter:    "otlp",
//	    Endpoint:    "localhost:4317",
//	    ServiceName: "galen",
//	}
//	tracer, err := tracing.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tracer.Shutdown(context.Background())
//
//	// Create span
//	ctx, span := tracer.Start(ctx, "galen.engine.convert")
//	defer span.End()
//
//	// Add attributes
//	span.SetAttributes(
//	    attribute.String("galen.unit.source", "{tablet}"),
//	    attribute.String("galen.unit.target", "mg"),
//	    attribute.Float64("galen.confidence", 0.92),
//	)
//
//	// Add event
//	span.AddEvent("guardrail_evaluated", trace.WithAttributes(
//	    attribute.String("rule", "max-daily-dose"),
//	    attribute.String("decision", "allow"),
//	))
//
// # Span Hierarchy
//
// Spans form a hierarchy representing the call tree:
//
//	galen.server.convert (3ms)
//	├── galen.engine.resolve (100µs)
//	├── galen.formulary.lookup (400µs)
//	├── galen.engine.convert (1.5ms)
//	└── galen.guardrails.evaluate (600µs)
//
// # HTTP Integration
//
// Extract trace context from incoming HTTP requests:
//
//	ctx := tracing.Extract(r.Context(), r.Header)
//	ctx, span := tracer.Start(ctx, "handle_request")
//	defer span.End()
//
// Inject trace context into outgoing HTTP requests:
//
//	req, _ := http.NewRequestWithContext(ctx, "POST", url, body)
//	tracing.Inject(ctx, req.Header)
//
// # Performance
//
// The tracing package is designed for minimal overhead:
//   - Span creation: <100µs per span
//   - Context propagation: <10µs
//   - Sampling decision: <1µs
//   - When disabled: <1µs (noop span)
//
// # Trace Export
//
// Spans export over OTLP gRPC; point the endpoint at any OTLP-capable
// collector (the OpenTelemetry Collector, Jaeger, and Tempo all accept it):
//
//	telemetry:
//	  tracing:
//	    exporter: otlp
//	    endpoint: localhost:4317
//	    otlp:
//	      insecure: true
//	      timeout: 10s
//
// # Attribute Helpers
//
// Common attributes can be set using helper functions:
//
//	// Conversion attributes
//	tracing.SetConversionAttributes(span, medication, "{tablet}", "mg")
//
//	// Request attributes (patient reference is masked)
//	tracing.SetRequestAttributes(span, requestID, patientRef, actor)
//
//	// Result attributes
//	tracing.SetResultAttributes(span, 0.92, "device", 3)
//
//	// Error attributes
//	tracing.SetErrorAttributes(span, err, "incompatible_dimensions")
package tracing
