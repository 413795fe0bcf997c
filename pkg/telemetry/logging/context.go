package logging

import (
	"context"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// ConversionIDKey is the context key for conversion record IDs.
	ConversionIDKey contextKey = "conversion_id"

	// MedicationKey is the context key for medication identifiers.
	MedicationKey contextKey = "medication"

	// ActorKey is the context key for the requesting clinician or system.
	ActorKey contextKey = "actor"

	// RuleSetKey is the context key for the active guardrail rule set.
	RuleSetKey contextKey = "rule_set"

	// TraceIDKey is the context key for trace IDs.
	TraceIDKey contextKey = "trace_id"

	// SpanIDKey is the context key for span IDs.
	SpanIDKey contextKey = "span_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithConversionID adds a conversion record ID to the context.
func WithConversionID(ctx context.Context, conversionID string) context.Context {
	return context.WithValue(ctx, ConversionIDKey, conversionID)
}

// GetConversionID retrieves the conversion record ID from the context.
func GetConversionID(ctx context.Context) string {
	if conversionID, ok := ctx.Value(ConversionIDKey).(string); ok {
		return conversionID
	}
	return ""
}

// WithMedication adds a medication identifier to the context.
func WithMedication(ctx context.Context, medication string) context.Context {
	return context.WithValue(ctx, MedicationKey, medication)
}

// GetMedication retrieves the medication identifier from the context.
func GetMedication(ctx context.Context) string {
	if medication, ok := ctx.Value(MedicationKey).(string); ok {
		return medication
	}
	return ""
}

// WithActor adds the requesting clinician or system to the context.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// GetActor retrieves the requesting clinician or system from the context.
func GetActor(ctx context.Context) string {
	if actor, ok := ctx.Value(ActorKey).(string); ok {
		return actor
	}
	return ""
}

// WithRuleSet adds the active guardrail rule set name to the context.
func WithRuleSet(ctx context.Context, ruleSet string) context.Context {
	return context.WithValue(ctx, RuleSetKey, ruleSet)
}

// GetRuleSet retrieves the active guardrail rule set name from the context.
func GetRuleSet(ctx context.Context) string {
	if ruleSet, ok := ctx.Value(RuleSetKey).(string); ok {
		return ruleSet
	}
	return ""
}

// WithTraceID adds a trace ID to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from the context.
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// WithSpanID adds a span ID to the context.
func WithSpanID(ctx context.Context, spanID string) context.Context {
	return context.WithValue(ctx, SpanIDKey, spanID)
}

// GetSpanID retrieves the span ID from the context.
func GetSpanID(ctx context.Context) string {
	if spanID, ok := ctx.Value(SpanIDKey).(string); ok {
		return spanID
	}
	return ""
}

// extractContextFields extracts common fields from context for logging.
// Returns a slice of key-value pairs suitable for logger.With().
func extractContextFields(ctx context.Context) []any {
	var fields []any

	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}

	if conversionID := GetConversionID(ctx); conversionID != "" {
		fields = append(fields, "conversion_id", conversionID)
	}

	if medication := GetMedication(ctx); medication != "" {
		fields = append(fields, "medication", medication)
	}

	if actor := GetActor(ctx); actor != "" {
		fields = append(fields, "actor", actor)
	}

	if ruleSet := GetRuleSet(ctx); ruleSet != "" {
		fields = append(fields, "rule_set", ruleSet)
	}

	if traceID := GetTraceID(ctx); traceID != "" {
		fields = append(fields, "trace_id", traceID)
	}

	if spanID := GetSpanID(ctx); spanID != "" {
		fields = append(fields, "span_id", spanID)
	}

	return fields
}

// ContextLogger is a logger that automatically includes context fields.
type ContextLogger struct {
	logger *Logger
	ctx    context.Context
}

// NewContextLogger creates a logger that automatically includes context fields.
func NewContextLogger(logger *Logger, ctx context.Context) *ContextLogger {
	return &ContextLogger{
		logger: logger.WithContext(ctx),
		ctx:    ctx,
	}
}

// Debug logs a debug message with context fields.
func (cl *ContextLogger) Debug(msg string, args ...any) {
	cl.logger.Debug(msg, args...)
}

// Info logs an info message with context fields.
func (cl *ContextLogger) Info(msg string, args ...any) {
	cl.logger.Info(msg, args...)
}

// Warn logs a warning message with context fields.
func (cl *ContextLogger) Warn(msg string, args ...any) {
	cl.logger.Warn(msg, args...)
}

// Error logs an error message with context fields.
func (cl *ContextLogger) Error(msg string, args ...any) {
	cl.logger.Error(msg, args...)
}

// With creates a new context logger with additional fields.
func (cl *ContextLogger) With(args ...any) *ContextLogger {
	return &ContextLogger{
		logger: cl.logger.With(args...),
		ctx:    cl.ctx,
	}
}
