package tracing

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span Attribute Helpers
//
// These functions provide a convenient way to set common attributes on spans.
// They ensure consistent attribute naming across the codebase.
//
// # Attribute Keys
//
// Custom attribute keys use the "galen.*" namespace:
//   - galen.medication: Medication identifier
//   - galen.unit.*: Source and target unit expressions
//   - galen.confidence: Conversion confidence score
//   - galen.guardrail.*: Guardrail evaluation results
//
// Patient references never appear on spans unredacted; SetRequestAttributes
// masks them before they leave the process.

// Common attribute keys used throughout the system
const (
	// Conversion attributes
	AttrMedication = "galen.medication"
	AttrSourceUnit = "galen.unit.source"
	AttrTargetUnit = "galen.unit.target"

	// Request attributes
	AttrRequestID    = "galen.request_id"
	AttrConversionID = "galen.conversion_id"
	AttrPatientRef   = "galen.patient_ref"
	AttrActor        = "galen.actor"
	AttrRuleSet      = "galen.rule_set"

	// Dose attributes
	AttrDoseSource = "galen.dose.source"
	AttrDoseTarget = "galen.dose.target"

	// Result attributes
	AttrConfidence = "galen.confidence"
	AttrPath       = "galen.path"
	AttrSteps      = "galen.steps"

	// Guardrail attributes
	AttrGuardrailRule     = "galen.guardrail.rule"
	AttrGuardrailSeverity = "galen.guardrail.severity"
	AttrGuardrailDecision = "galen.guardrail.decision"

	// Cache attributes
	AttrCacheHit  = "galen.cache.hit"
	AttrCacheName = "galen.cache.name"

	// Error attributes
	AttrErrorType    = "galen.error.type"
	AttrErrorMessage = "error.message"

	// Performance attributes
	AttrDuration = "galen.duration_ms"
)

// SetConversionAttributes sets conversion-related attributes on a span.
//
// Example:
//
//	SetConversionAttributes(span, "med-acetaminophen-325", "{tablet}", "mg")
func SetConversionAttributes(span trace.Span, medication, sourceUnit, targetUnit string) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrSourceUnit, sourceUnit),
		attribute.String(AttrTargetUnit, targetUnit),
	}
	if medication != "" {
		attrs = append(attrs, attribute.String(AttrMedication, medication))
	}
	span.SetAttributes(attrs...)
}

// SetRequestAttributes sets request-related attributes on a span.
// The patient reference is masked to a short prefix before being recorded.
//
// Example:
//
//	SetRequestAttributes(span, "req-123", "PT-2024-0017", "pharmacist-17")
func SetRequestAttributes(span trace.Span, requestID, patientRef, actor string) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrRequestID, requestID),
	}

	// Only add non-empty values
	if patientRef != "" {
		// Mask patient reference (show only first 4 characters)
		masked := "***"
		if len(patientRef) > 4 {
			masked = patientRef[:4] + "***"
		}
		attrs = append(attrs, attribute.String(AttrPatientRef, masked))
	}

	if actor != "" {
		attrs = append(attrs, attribute.String(AttrActor, actor))
	}

	span.SetAttributes(attrs...)
}

// SetDoseAttributes sets source and target dose values on a span.
//
// Example:
//
//	SetDoseAttributes(span, 2, 650)
func SetDoseAttributes(span trace.Span, sourceValue, targetValue float64) {
	span.SetAttributes(
		attribute.Float64(AttrDoseSource, sourceValue),
		attribute.Float64(AttrDoseTarget, targetValue),
	)
}

// SetResultAttributes sets conversion result attributes on a span.
//
// Example:
//
//	SetResultAttributes(span, 0.92, "device", 3)
func SetResultAttributes(span trace.Span, confidence float64, path string, steps int) {
	span.SetAttributes(
		attribute.Float64(AttrConfidence, confidence),
		attribute.String(AttrPath, path),
		attribute.Int(AttrSteps, steps),
	)
}

// SetGuardrailAttributes sets guardrail evaluation attributes on a span.
//
// Example:
//
//	SetGuardrailAttributes(span, "max-daily-dose", "block", "block")
func SetGuardrailAttributes(span trace.Span, rule, severity, decision string) {
	span.SetAttributes(
		attribute.String(AttrGuardrailRule, rule),
		attribute.String(AttrGuardrailSeverity, severity),
		attribute.String(AttrGuardrailDecision, decision),
	)
}

// SetCacheAttributes sets cache-related attributes on a span.
//
// Example:
//
//	SetCacheAttributes(span, true, "formulary")
func SetCacheAttributes(span trace.Span, hit bool, cacheName string) {
	span.SetAttributes(
		attribute.Bool(AttrCacheHit, hit),
		attribute.String(AttrCacheName, cacheName),
	)
}

// SetErrorAttributes sets error-related attributes on a span.
// This also records the error using span.RecordError() and sets the span status.
// The errorType should be one of the engine's error codes.
//
// Example:
//
//	SetErrorAttributes(span, err, "incompatible_dimensions")
func SetErrorAttributes(span trace.Span, err error, errorType string) {
	if err == nil {
		return
	}

	span.SetAttributes(
		attribute.Bool("error", true),
		attribute.String(AttrErrorType, errorType),
		attribute.String(AttrErrorMessage, err.Error()),
	)

	// Record error and set status
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetDurationAttribute sets the duration attribute on a span.
// Duration is recorded in milliseconds.
//
// Example:
//
//	start := time.Now()
//	// ... do work ...
//	SetDurationAttribute(span, time.Since(start).Milliseconds())
func SetDurationAttribute(span trace.Span, durationMs int64) {
	span.SetAttributes(attribute.Int64(AttrDuration, durationMs))
}

// SetRuleSetAttribute sets the guardrail rule set attribute on a span.
//
// Example:
//
//	SetRuleSetAttribute(span, "pediatric-dosing")
func SetRuleSetAttribute(span trace.Span, ruleSet string) {
	if ruleSet != "" {
		span.SetAttributes(attribute.String(AttrRuleSet, ruleSet))
	}
}

// SetConversionIDAttribute sets the conversion identifier attribute on a span.
//
// Example:
//
//	SetConversionIDAttribute(span, conversionID)
func SetConversionIDAttribute(span trace.Span, conversionID string) {
	if conversionID != "" {
		span.SetAttributes(attribute.String(AttrConversionID, conversionID))
	}
}

// AddEvent adds a named event to the span with optional attributes.
// Events represent interesting points in the span's lifetime.
//
// Example:
//
//	AddEvent(span, "guardrail_evaluated",
//	    attribute.String("rule", "max-daily-dose"),
//	    attribute.String("decision", "allow"),
//	)
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// AddEventWithTimestamp adds a named event with a specific timestamp.
//
// Example:
//
//	AddEventWithTimestamp(span, "cache_miss", time.Now(),
//	    attribute.String("cache_name", "formulary"),
//	)
func AddEventWithTimestamp(span trace.Span, name string, timestamp time.Time, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithTimestamp(timestamp), trace.WithAttributes(attrs...))
}

// RecordException records an exception event on the span.
// This is a convenience wrapper around AddEvent for errors.
//
// Example:
//
//	RecordException(span, err)
func RecordException(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}

// AttributeBuilder provides a fluent interface for building span attributes.
type AttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewAttributeBuilder creates a new attribute builder.
func NewAttributeBuilder() *AttributeBuilder {
	return &AttributeBuilder{
		attrs: make([]attribute.KeyValue, 0, 10),
	}
}

// WithConversion adds medication and unit attributes.
func (ab *AttributeBuilder) WithConversion(medication, sourceUnit, targetUnit string) *AttributeBuilder {
	ab.attrs = append(ab.attrs,
		attribute.String(AttrSourceUnit, sourceUnit),
		attribute.String(AttrTargetUnit, targetUnit),
	)
	if medication != "" {
		ab.attrs = append(ab.attrs, attribute.String(AttrMedication, medication))
	}
	return ab
}

// WithRequest adds request-related attributes.
func (ab *AttributeBuilder) WithRequest(requestID, actor string) *AttributeBuilder {
	ab.attrs = append(ab.attrs, attribute.String(AttrRequestID, requestID))
	if actor != "" {
		ab.attrs = append(ab.attrs, attribute.String(AttrActor, actor))
	}
	return ab
}

// WithDoses adds source and target dose attributes.
func (ab *AttributeBuilder) WithDoses(sourceValue, targetValue float64) *AttributeBuilder {
	ab.attrs = append(ab.attrs,
		attribute.Float64(AttrDoseSource, sourceValue),
		attribute.Float64(AttrDoseTarget, targetValue),
	)
	return ab
}

// WithResult adds conversion result attributes.
func (ab *AttributeBuilder) WithResult(confidence float64, path string, steps int) *AttributeBuilder {
	ab.attrs = append(ab.attrs,
		attribute.Float64(AttrConfidence, confidence),
		attribute.String(AttrPath, path),
		attribute.Int(AttrSteps, steps),
	)
	return ab
}

// WithGuardrail adds guardrail attributes.
func (ab *AttributeBuilder) WithGuardrail(rule, severity, decision string) *AttributeBuilder {
	ab.attrs = append(ab.attrs,
		attribute.String(AttrGuardrailRule, rule),
		attribute.String(AttrGuardrailSeverity, severity),
		attribute.String(AttrGuardrailDecision, decision),
	)
	return ab
}

// WithCache adds cache attributes.
func (ab *AttributeBuilder) WithCache(hit bool, cacheName string) *AttributeBuilder {
	ab.attrs = append(ab.attrs,
		attribute.Bool(AttrCacheHit, hit),
		attribute.String(AttrCacheName, cacheName),
	)
	return ab
}

// WithCustom adds a custom attribute.
func (ab *AttributeBuilder) WithCustom(key string, value interface{}) *AttributeBuilder {
	switch v := value.(type) {
	case string:
		ab.attrs = append(ab.attrs, attribute.String(key, v))
	case int:
		ab.attrs = append(ab.attrs, attribute.Int(key, v))
	case int64:
		ab.attrs = append(ab.attrs, attribute.Int64(key, v))
	case float64:
		ab.attrs = append(ab.attrs, attribute.Float64(key, v))
	case bool:
		ab.attrs = append(ab.attrs, attribute.Bool(key, v))
	default:
		// Fall back to string representation
		ab.attrs = append(ab.attrs, attribute.String(key, fmt.Sprintf("%v", v)))
	}
	return ab
}

// Build returns the built attributes as a trace.SpanStartOption.
func (ab *AttributeBuilder) Build() trace.SpanStartOption {
	return trace.WithAttributes(ab.attrs...)
}

// Apply applies the attributes to a span.
func (ab *AttributeBuilder) Apply(span trace.Span) {
	span.SetAttributes(ab.attrs...)
}

// Attributes returns the raw attribute slice.
func (ab *AttributeBuilder) Attributes() []attribute.KeyValue {
	return ab.attrs
}
