package server

import (
	"errors"
	"fmt"
	"net/http"

	dosingErrors "meridianrx/galen/pkg/dosing/errors"
	"meridianrx/galen/pkg/formulary"
)

// RequestError is a request-level failure with a fixed HTTP status.
type RequestError struct {
	Status  int
	Kind    string
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

// badRequest builds a 400 RequestError.
func badRequest(format string, args ...any) *RequestError {
	return &RequestError{
		Status:  http.StatusBadRequest,
		Kind:    "invalid_request",
		Message: fmt.Sprintf(format, args...),
	}
}

// errorStatus maps an error to its HTTP status and response body.
//
// The conversion error taxonomy maps by kind: an unrecognized unit is
// a client error, everything the engine could not do with recognized
// units is unprocessable. Formulary lookups that miss return 404.
// Anything unrecognized stays an opaque 500 so internals never leak.
func errorStatus(err error) (int, ErrorBody) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Status, ErrorBody{Kind: reqErr.Kind, Message: reqErr.Message}
	}

	var engErr dosingErrors.EngineError
	if errors.As(err, &engErr) {
		body := ErrorBody{Kind: string(engErr.Kind()), Message: err.Error()}

		var invalidUnit *dosingErrors.InvalidUnitError
		if errors.As(err, &invalidUnit) {
			body.Suggestions = invalidUnit.Suggestions
		}

		if engErr.Kind() == dosingErrors.KindInvalidUnit {
			return http.StatusBadRequest, body
		}
		return http.StatusUnprocessableEntity, body
	}

	if errors.Is(err, formulary.ErrMedicationNotFound) {
		return http.StatusNotFound, ErrorBody{Kind: "medication_not_found", Message: err.Error()}
	}
	if errors.Is(err, formulary.ErrLotNotFound) {
		return http.StatusNotFound, ErrorBody{Kind: "lot_not_found", Message: err.Error()}
	}

	return http.StatusInternalServerError, ErrorBody{
		Kind:    "internal",
		Message: "an internal error occurred",
	}
}
