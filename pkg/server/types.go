package server

import (
	"strings"

	"meridianrx/galen/pkg/dosing"
	"meridianrx/galen/pkg/dosing/engine"
	"meridianrx/galen/pkg/guardrails"
)

// ConvertRequest is the body of POST /v1/convert.
type ConvertRequest struct {
	// Value, FromUnit and ToUnit define the conversion.
	Value    float64 `json:"value"`
	FromUnit string  `json:"fromUnit"`
	ToUnit   string  `json:"toUnit"`

	// MedicationID resolves strength, concentration and lot data from
	// the formulary.
	MedicationID string `json:"medicationId,omitempty"`

	// LotNumber selects lot-specific factor calibrations. With
	// MedicationID set it must name a lot the formulary knows.
	LotNumber string `json:"lotNumber,omitempty"`

	// Context supplies conversion context inline. When MedicationID is
	// also set, inline custom conversions append to the formulary
	// context and an inline strength ratio or air-prime override
	// replaces the formulary value.
	Context *dosing.ConversionContext `json:"context,omitempty"`

	// Options tunes the conversion. Nil uses the engine defaults.
	Options *engine.Options `json:"options,omitempty"`

	// Route, Form and DosesPerDay feed guardrail evaluation. A zero
	// DosesPerDay leaves daily limits unenforced.
	Route       string  `json:"route,omitempty"`
	Form        string  `json:"form,omitempty"`
	DosesPerDay float64 `json:"dosesPerDay,omitempty"`

	// PatientRef ties the audit record to a patient. It is redacted
	// before storage and masked before it reaches a span or log line.
	PatientRef string `json:"patientRef,omitempty"`
}

// validate rejects requests the engine would not be able to interpret.
func (r *ConvertRequest) validate() error {
	if strings.TrimSpace(r.FromUnit) == "" {
		return badRequest("fromUnit is required")
	}
	if strings.TrimSpace(r.ToUnit) == "" {
		return badRequest("toUnit is required")
	}
	return nil
}

// ConvertResponse is the body of a successful conversion.
type ConvertResponse struct {
	// RequestID echoes the request's correlation ID.
	RequestID string `json:"requestId,omitempty"`

	// Result is the conversion outcome, including steps and the
	// confidence score.
	Result *dosing.Result `json:"result"`

	// Guardrails is the dose-safety verdict. It is present only when
	// a guardrail evaluator is configured; a "block" decision does not
	// change the HTTP status, dispensing systems act on the decision.
	Guardrails *guardrails.Verdict `json:"guardrails,omitempty"`
}

// ValidateRequest is the body of POST /v1/validate. The response is
// the unit validation verdict itself.
type ValidateRequest struct {
	Unit string `json:"unit"`
}

// CompatibleResponse is the body of GET /v1/units/{unit}/compatible.
type CompatibleResponse struct {
	Unit       string        `json:"unit"`
	Compatible []dosing.Unit `json:"compatible"`
}

// ErrorResponse is the envelope every non-2xx response carries.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes one failure. Kind is a stable discriminant
// clients can branch on; Message is human-readable.
type ErrorBody struct {
	Kind        string   `json:"kind"`
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions,omitempty"`
}
