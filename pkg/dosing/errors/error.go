package errors

import (
	"fmt"
	"strings"
)

// Kind discriminates the members of the conversion error taxonomy.
type Kind string

const (
	// KindImpossibleConversion marks conversions between units that do
	// not share a dimension and have no bridging context.
	KindImpossibleConversion Kind = "impossible_conversion"

	// KindMissingContext marks device conversions that need context
	// data the caller did not supply.
	KindMissingContext Kind = "missing_context"

	// KindInvalidUnit marks unit tokens the engine does not recognize.
	KindInvalidUnit Kind = "invalid_unit"

	// KindPrecisionLoss marks strict-mode conversions whose result
	// exceeded the requested precision tolerance.
	KindPrecisionLoss Kind = "precision_loss"

	// KindConversionFailed marks every other conversion failure.
	KindConversionFailed Kind = "conversion_failed"
)

// EngineError is implemented by every member of the conversion error
// taxonomy.
type EngineError interface {
	error

	// Kind returns the taxonomy discriminant.
	Kind() Kind

	// LogFields returns the structured fields a logger should attach
	// when recording the error.
	LogFields() map[string]any
}

// ImpossibleConversionError reports that two units are dimensionally
// incompatible and no supplied context could bridge them.
type ImpossibleConversionError struct {
	// From is the source unit token as requested.
	From string

	// To is the target unit token as requested.
	To string

	// Reason explains why the conversion cannot be performed.
	Reason string
}

// NewImpossibleConversion constructs an ImpossibleConversionError.
func NewImpossibleConversion(from, to, reason string) *ImpossibleConversionError {
	return &ImpossibleConversionError{From: from, To: to, Reason: reason}
}

func (e *ImpossibleConversionError) Error() string {
	return fmt.Sprintf("cannot convert %s to %s: %s", e.From, e.To, e.Reason)
}

// Kind returns KindImpossibleConversion.
func (e *ImpossibleConversionError) Kind() Kind { return KindImpossibleConversion }

// LogFields returns the structured fields for logging.
func (e *ImpossibleConversionError) LogFields() map[string]any {
	return map[string]any{
		"error_kind": string(KindImpossibleConversion),
		"from_unit":  e.From,
		"to_unit":    e.To,
		"reason":     e.Reason,
	}
}

// MissingContextError reports that a conversion needs context data the
// caller did not supply. Required names the fields that would have
// resolved the conversion; Available snapshots what the caller did
// supply.
type MissingContextError struct {
	// Required lists the context fields that would resolve the
	// conversion, e.g. "medication.strength".
	Required []string

	// Operation describes what was being resolved when context ran
	// out, e.g. `device factor for "{tablet}"`.
	Operation string

	// Available snapshots the context fields that were populated.
	Available map[string]any
}

// NewMissingContext constructs a MissingContextError.
func NewMissingContext(operation string, required []string, available map[string]any) *MissingContextError {
	return &MissingContextError{Operation: operation, Required: required, Available: available}
}

func (e *MissingContextError) Error() string {
	return fmt.Sprintf("missing context for %s: requires %s", e.Operation, strings.Join(e.Required, ", "))
}

// Kind returns KindMissingContext.
func (e *MissingContextError) Kind() Kind { return KindMissingContext }

// LogFields returns the structured fields for logging.
func (e *MissingContextError) LogFields() map[string]any {
	return map[string]any{
		"error_kind": string(KindMissingContext),
		"operation":  e.Operation,
		"required":   strings.Join(e.Required, ","),
	}
}

// InvalidUnitError reports an unrecognized unit token. When the token
// is a near miss of a known unit, Suggestions carries likely
// corrections, best match first.
type InvalidUnitError struct {
	// Unit is the rejected token exactly as supplied.
	Unit string

	// Detail explains why the token was rejected.
	Detail string

	// Suggestions lists likely corrections, best first. May be empty.
	Suggestions []string
}

// NewInvalidUnit constructs an InvalidUnitError.
func NewInvalidUnit(unit, detail string, suggestions []string) *InvalidUnitError {
	return &InvalidUnitError{Unit: unit, Detail: detail, Suggestions: suggestions}
}

func (e *InvalidUnitError) Error() string {
	msg := fmt.Sprintf("invalid unit %q: %s", e.Unit, e.Detail)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestions[0])
	}
	return msg
}

// Kind returns KindInvalidUnit.
func (e *InvalidUnitError) Kind() Kind { return KindInvalidUnit }

// LogFields returns the structured fields for logging.
func (e *InvalidUnitError) LogFields() map[string]any {
	return map[string]any{
		"error_kind":  string(KindInvalidUnit),
		"unit":        e.Unit,
		"suggestions": strings.Join(e.Suggestions, ","),
	}
}

// PrecisionLossError reports that a strict-mode conversion produced a
// result whose precision error exceeds the requested tolerance.
type PrecisionLossError struct {
	// Value is the computed result that failed the check.
	Value float64

	// From is the source unit token.
	From string

	// To is the target unit token.
	To string

	// Expected is the tolerance the caller requested.
	Expected float64

	// Actual is the relative precision error observed.
	Actual float64
}

// NewPrecisionLoss constructs a PrecisionLossError.
func NewPrecisionLoss(value float64, from, to string, expected, actual float64) *PrecisionLossError {
	return &PrecisionLossError{Value: value, From: from, To: to, Expected: expected, Actual: actual}
}

func (e *PrecisionLossError) Error() string {
	return fmt.Sprintf("precision loss converting %s to %s: relative error %g exceeds tolerance %g",
		e.From, e.To, e.Actual, e.Expected)
}

// Kind returns KindPrecisionLoss.
func (e *PrecisionLossError) Kind() Kind { return KindPrecisionLoss }

// LogFields returns the structured fields for logging.
func (e *PrecisionLossError) LogFields() map[string]any {
	return map[string]any{
		"error_kind": string(KindPrecisionLoss),
		"from_unit":  e.From,
		"to_unit":    e.To,
		"expected":   e.Expected,
		"actual":     e.Actual,
	}
}

// ConversionError is the generic member of the taxonomy. It wraps
// failures that do not fit a more specific type, preserving the cause
// for errors.Is and errors.As.
type ConversionError struct {
	// Message describes the failure.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// NewConversion constructs a ConversionError without a cause.
func NewConversion(format string, args ...any) *ConversionError {
	return &ConversionError{Message: fmt.Sprintf(format, args...)}
}

func (e *ConversionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("conversion failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("conversion failed: %s", e.Message)
}

// Unwrap returns the underlying cause.
func (e *ConversionError) Unwrap() error { return e.Cause }

// Kind returns KindConversionFailed.
func (e *ConversionError) Kind() Kind { return KindConversionFailed }

// LogFields returns the structured fields for logging.
func (e *ConversionError) LogFields() map[string]any {
	fields := map[string]any{
		"error_kind": string(KindConversionFailed),
		"message":    e.Message,
	}
	if e.Cause != nil {
		fields["cause"] = e.Cause.Error()
	}
	return fields
}

// Wrap converts an arbitrary error into a taxonomy member. Errors that
// already belong to the taxonomy pass through unchanged; anything else
// is wrapped in a ConversionError carrying the given message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(EngineError); ok {
		return err
	}
	return &ConversionError{Message: message, Cause: err}
}

// KindOf returns the taxonomy discriminant of an error, or false when
// the error is not a taxonomy member.
func KindOf(err error) (Kind, bool) {
	ee, ok := err.(EngineError)
	if !ok {
		return "", false
	}
	return ee.Kind(), true
}
