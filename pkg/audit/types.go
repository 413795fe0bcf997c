package audit

import (
	"context"
	"io"
	"time"

	"meridianrx/galen/pkg/dosing"
)

// Outcome classifies how a recorded conversion ended.
const (
	// OutcomeSuccess means the conversion produced a result and no
	// guardrail blocked it.
	OutcomeSuccess = "success"

	// OutcomeError means the conversion failed with an engine error.
	OutcomeError = "error"

	// OutcomeBlocked means the conversion succeeded but a guardrail
	// rule blocked the dose.
	OutcomeBlocked = "blocked"
)

// ConversionRecord is an immutable audit record of one conversion
// request. Records capture the request, the outcome, the derivation
// steps and the guardrail verdict so a reviewer can reconstruct
// exactly what the engine did and why.
type ConversionRecord struct {
	// ID is the unique record identifier (UUID).
	ID string `json:"id"`

	// RequestID is the caller-supplied correlation identifier, if any.
	RequestID string `json:"requestId,omitempty"`

	// RequestTime is when the conversion was requested.
	RequestTime time.Time `json:"requestTime"`

	// RecordedTime is when the record was built by the recorder.
	RecordedTime time.Time `json:"recordedTime"`

	// Request echo.
	Value       float64 `json:"value"`
	FromUnit    string  `json:"fromUnit"`
	ToUnit      string  `json:"toUnit"`
	Medication  string  `json:"medication,omitempty"`
	LotNumber   string  `json:"lotNumber,omitempty"`
	ContextHash string  `json:"contextHash,omitempty"` // SHA-256 of the conversion context

	// PatientRef is the redacted patient reference. The recorder never
	// stores the raw identifier.
	PatientRef string `json:"patientRef,omitempty"`

	// Outcome is "success", "error" or "blocked".
	Outcome string `json:"outcome"`

	// Result data. Zero when Outcome is "error".
	ResultValue     float64       `json:"resultValue"`
	Path            string        `json:"path,omitempty"` // identity, standard, device, concentration, custom
	Steps           []dosing.Step `json:"steps,omitempty"`
	Confidence      float64       `json:"confidence"`
	ConfidenceLevel string        `json:"confidenceLevel,omitempty"`

	// Guardrail verdict. Empty when no guardrails were evaluated.
	GuardrailDecision string        `json:"guardrailDecision,omitempty"`
	Findings          []RuleFinding `json:"findings,omitempty"`

	// Error information. Empty on success.
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`

	// Duration is how long the conversion (and guardrail evaluation,
	// when performed) took.
	Duration time.Duration `json:"duration"`
}

// RuleFinding is the audit copy of one guardrail rule that fired.
// It is a flattened snapshot so stored records stay readable even if
// the rule set changes later.
type RuleFinding struct {
	Rule     string `json:"rule"`
	RuleSet  string `json:"ruleSet"`
	Severity string `json:"severity"`
	Reason   string `json:"reason"`
}

// Query filters stored conversion records.
type Query struct {
	// Time range, inclusive at both ends.
	StartTime *time.Time `json:"startTime,omitempty"`
	EndTime   *time.Time `json:"endTime,omitempty"`

	// Filters
	RequestID         string `json:"requestId,omitempty"`
	FromUnit          string `json:"fromUnit,omitempty"`
	ToUnit            string `json:"toUnit,omitempty"`
	Medication        string `json:"medication,omitempty"`
	Path              string `json:"path,omitempty"`
	Outcome           string `json:"outcome,omitempty"` // "success", "error", "blocked"
	ErrorKind         string `json:"errorKind,omitempty"`
	GuardrailDecision string `json:"guardrailDecision,omitempty"`
	Rule              string `json:"rule,omitempty"` // matches any recorded finding

	// Confidence thresholds
	MinConfidence *float64 `json:"minConfidence,omitempty"`
	MaxConfidence *float64 `json:"maxConfidence,omitempty"`

	// Pagination
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// Sorting
	SortBy    string `json:"sortBy,omitempty"`    // "request_time", "recorded_time", "confidence", "duration"
	SortOrder string `json:"sortOrder,omitempty"` // "asc", "desc"
}

// Storage defines the interface for audit storage backends.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Store persists a conversion record.
	Store(ctx context.Context, record *ConversionRecord) error

	// Query retrieves conversion records matching the query filters.
	// Returns an empty slice if no records match.
	Query(ctx context.Context, query *Query) ([]*ConversionRecord, error)

	// QueryStream returns a channel of conversion records for
	// memory-efficient streaming of large result sets.
	//
	// Returns:
	//   - recordsCh: channel of records (buffered)
	//   - errCh: channel for errors (buffered, at most one error)
	//   - error: immediate error, e.g. an invalid query
	//
	// Both channels are closed when the query completes or errors.
	// Callers should read from both channels until they are closed.
	QueryStream(ctx context.Context, query *Query) (<-chan *ConversionRecord, <-chan error, error)

	// Count returns the number of records matching the query filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes records matching the query filters and returns
	// the number of records deleted.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases resources held by the storage backend.
	Close() error
}

// Exporter defines the interface for exporting conversion records to
// an output format.
type Exporter interface {
	// Export writes records to the provided writer.
	Export(ctx context.Context, records []*ConversionRecord, w io.Writer) error
}
