package tracing

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// W3C Trace Context propagation (https://www.w3.org/TR/trace-context/).
//
// Two headers carry trace context across service boundaries:
//
//	traceparent: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
//	tracestate:  vendor1=value1,vendor2=value2
//
// The traceparent format is version-trace_id-parent_id-trace_flags; bit 0
// of the flags byte is the sampled bit. The sampling decision made at the
// trace root propagates to every child span.

// Propagator returns the configured text map propagator.
// This is typically a composite propagator that handles both
// W3C Trace Context and W3C Baggage.
func Propagator() propagation.TextMapPropagator {
	return otel.GetTextMapPropagator()
}

// Extract extracts trace context from HTTP headers and returns a context
// with the extracted trace context.
//
// This should be called on the server side when receiving an HTTP request:
//
//	ctx := tracing.Extract(r.Context(), r.Header)
//	ctx, span := tracer.Start(ctx, "handle_request")
//	defer span.End()
//
// If no trace context is found in the headers, the original context is returned.
func Extract(ctx context.Context, headers http.Header) context.Context {
	return Propagator().Extract(ctx, propagation.HeaderCarrier(headers))
}

// Inject injects trace context into HTTP headers.
//
// This should be called on the client side before making an HTTP request:
//
//	req, _ := http.NewRequestWithContext(ctx, "POST", url, body)
//	tracing.Inject(ctx, req.Header)
//	resp, err := client.Do(req)
func Inject(ctx context.Context, headers http.Header) {
	Propagator().Inject(ctx, propagation.HeaderCarrier(headers))
}

// ExtractFromMap extracts trace context from a string map.
// This is useful for extracting context from non-HTTP sources.
func ExtractFromMap(ctx context.Context, carrier map[string]string) context.Context {
	return Propagator().Extract(ctx, propagation.MapCarrier(carrier))
}

// InjectToMap injects trace context into a string map.
// This is useful for injecting context into non-HTTP destinations.
func InjectToMap(ctx context.Context, carrier map[string]string) {
	Propagator().Inject(ctx, propagation.MapCarrier(carrier))
}

// HTTPMiddleware returns an HTTP middleware that extracts trace context
// from incoming requests and echoes the active trace and span IDs on the
// response for correlation.
//
// Usage:
//
//	http.Handle("/", tracing.HTTPMiddleware(handler))
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := Extract(r.Context(), r.Header)

		if span := SpanFromContext(ctx); span.SpanContext().IsValid() {
			w.Header().Set("X-Trace-ID", span.SpanContext().TraceID().String())
			w.Header().Set("X-Span-ID", span.SpanContext().SpanID().String())
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ValidateTraceParent validates the traceparent header format.
// Returns true if the header is valid according to W3C Trace Context spec.
//
// Format: version-trace_id-parent_id-trace_flags
//   - version: 2 hex digits (00)
//   - trace_id: 32 hex digits (128-bit)
//   - parent_id: 16 hex digits (64-bit)
//   - trace_flags: 2 hex digits (8-bit)
//
// Example: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
func ValidateTraceParent(traceparent string) bool {
	parts := strings.Split(traceparent, "-")
	if len(parts) != 4 {
		return false
	}

	// Validate version (2 hex digits)
	if len(parts[0]) != 2 || !isHexString(parts[0]) {
		return false
	}

	// Validate trace ID (32 hex digits)
	if len(parts[1]) != 32 || !isHexString(parts[1]) {
		return false
	}

	// Validate parent ID (16 hex digits)
	if len(parts[2]) != 16 || !isHexString(parts[2]) {
		return false
	}

	// Validate trace flags (2 hex digits)
	if len(parts[3]) != 2 || !isHexString(parts[3]) {
		return false
	}

	// All-zeros trace and parent IDs are invalid per the spec
	if parts[1] == "00000000000000000000000000000000" {
		return false
	}
	if parts[2] == "0000000000000000" {
		return false
	}

	return true
}

// isHexString checks if a string contains only hexadecimal characters.
func isHexString(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// ParseTraceParent parses a traceparent header into its components.
// Returns empty strings if the header is invalid.
func ParseTraceParent(traceparent string) (version, traceID, parentID, flags string, valid bool) {
	if !ValidateTraceParent(traceparent) {
		return "", "", "", "", false
	}

	parts := strings.Split(traceparent, "-")
	return parts[0], parts[1], parts[2], parts[3], true
}

// IsSampledFromTraceParent checks if a trace is sampled based on the
// traceparent header's trace flags.
func IsSampledFromTraceParent(traceparent string) bool {
	_, _, _, flags, valid := ParseTraceParent(traceparent)
	if !valid {
		return false
	}

	var flagsByte byte
	if _, err := fmt.Sscanf(flags, "%02x", &flagsByte); err != nil {
		return false
	}

	// Bit 0 is the sampled bit
	return (flagsByte & 0x01) == 0x01
}
