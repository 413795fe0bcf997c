package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"meridianrx/galen/pkg/audit/recorder"
	"meridianrx/galen/pkg/config"
	"meridianrx/galen/pkg/dosing"
	"meridianrx/galen/pkg/guardrails"
	"meridianrx/galen/pkg/telemetry/tracing"
)

// handleConvert serves POST /v1/convert: resolve the conversion
// context, convert, evaluate guardrails, audit, respond.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := s.tracer.Start(r.Context(), "galen.server.convert")
	defer span.End()

	var req ConvertRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	tracing.SetConversionAttributes(span, req.MedicationID, req.FromUnit, req.ToUnit)
	tracing.SetRequestAttributes(span, RequestID(ctx), req.PatientRef, "")

	convCtx, err := s.conversionContext(ctx, &req)
	if err != nil {
		tracing.SetError(span, err)
		s.writeError(w, r, err)
		return
	}

	result, verdict, convErr := s.convert(&req, convCtx)
	s.record(ctx, &req, convCtx, result, verdict, convErr, time.Since(start))

	if convErr != nil {
		tracing.SetError(span, convErr)
		tracing.SetStatus(span, convErr)
		s.writeError(w, r, convErr)
		return
	}

	tracing.SetDoseAttributes(span, req.Value, result.Value)
	tracing.SetResultAttributes(span, confidenceOf(result), recorder.ClassifyPath(result), len(result.Steps))
	if verdict != nil && len(verdict.Findings) > 0 {
		first := verdict.Findings[0]
		tracing.SetGuardrailAttributes(span, first.Rule, string(first.Severity), string(verdict.Decision))
	}
	tracing.SetStatus(span, nil)

	writeJSON(w, http.StatusOK, &ConvertResponse{
		RequestID:  RequestID(ctx),
		Result:     result,
		Guardrails: verdict,
	})
}

// handleValidate serves POST /v1/validate. The validation verdict is
// the response body; an unknown unit is still a 200, the verdict
// carries the answer.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Unit) == "" {
		s.writeError(w, r, badRequest("unit is required"))
		return
	}

	validation := s.deps.Engine.Validate(req.Unit)
	if s.collector != nil {
		s.collector.RecordUnitLookup(req.Unit, validation.Valid)
	}

	writeJSON(w, http.StatusOK, validation)
}

// handleCompatible serves GET /v1/units/{unit}/compatible. Device
// tokens arrive URL-encoded, e.g. %7Btablet%7D for {tablet}.
func (s *Server) handleCompatible(w http.ResponseWriter, r *http.Request) {
	unit := r.PathValue("unit")

	compatible, err := s.deps.Engine.CompatibleUnits(unit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, &CompatibleResponse{
		Unit:       unit,
		Compatible: compatible,
	})
}

// convert runs the conversion and guardrail evaluation under the
// serialization lock and records conversion metrics.
func (s *Server) convert(req *ConvertRequest, convCtx *dosing.ConversionContext) (*dosing.Result, *guardrails.Verdict, error) {
	s.convertMu.Lock()
	defer s.convertMu.Unlock()

	start := time.Now()
	result, err := s.deps.Engine.Convert(req.Value, req.FromUnit, req.ToUnit, convCtx, req.Options)
	duration := time.Since(start)

	if err != nil {
		if s.collector != nil {
			// No result to classify; the unit tokens still name the
			// path the conversion would have taken.
			attempted := recorder.ClassifyPath(&dosing.Result{FromUnit: req.FromUnit, ToUnit: req.ToUnit})
			s.collector.RecordConversion("error", attempted, duration, 0, 0)
		}
		return nil, nil, err
	}

	var verdict *guardrails.Verdict
	if s.deps.Guardrails != nil {
		evalStart := time.Now()
		verdict, err = s.deps.Guardrails.Evaluate(&guardrails.Check{
			Medication:  req.MedicationID,
			Route:       req.Route,
			Form:        req.Form,
			Lot:         req.LotNumber,
			Dose:        dosing.Quantity{Value: result.Value, Unit: result.ToUnit},
			DosesPerDay: req.DosesPerDay,
			Confidence:  confidenceOf(result),
			Context:     convCtx,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("guardrail evaluation: %w", err)
		}
		if s.collector != nil {
			s.collector.RecordGuardrailEvaluation(string(verdict.Decision), time.Since(evalStart))
			for _, f := range verdict.Findings {
				s.collector.RecordGuardrailFinding(f.Rule, string(f.Severity))
			}
		}
	}

	if s.collector != nil {
		outcome := "success"
		if verdict != nil && verdict.Blocked() {
			outcome = "blocked"
		}
		s.collector.RecordConversion(outcome, recorder.ClassifyPath(result), duration, confidenceOf(result), len(result.Steps))
	}

	return result, verdict, nil
}

// conversionContext assembles the conversion context from the
// formulary and the request's inline context.
func (s *Server) conversionContext(ctx context.Context, req *ConvertRequest) (*dosing.ConversionContext, error) {
	if req.MedicationID == "" {
		if req.Context == nil {
			if req.LotNumber == "" {
				return nil, nil
			}
			return &dosing.ConversionContext{LotNumber: req.LotNumber}, nil
		}
		if req.LotNumber != "" && req.Context.LotNumber == "" {
			req.Context.LotNumber = req.LotNumber
		}
		return req.Context, nil
	}

	if s.deps.Formulary == nil {
		return nil, &RequestError{
			Status:  http.StatusServiceUnavailable,
			Kind:    "formulary_unavailable",
			Message: "no formulary is configured for medication lookup",
		}
	}

	base, err := s.deps.Formulary.Build(ctx, req.MedicationID, req.LotNumber)
	if err != nil {
		return nil, err
	}

	if req.Context != nil {
		base.CustomConversions = append(base.CustomConversions, req.Context.CustomConversions...)
		if req.Context.StrengthRatio != nil {
			base.StrengthRatio = req.Context.StrengthRatio
		}
		if req.Context.AirPrimeLoss != nil {
			base.AirPrimeLoss = req.Context.AirPrimeLoss
		}
	}
	return base, nil
}

// record enqueues the audit record. Failures are logged, never
// surfaced: audit backpressure must not fail a conversion the caller
// already has.
func (s *Server) record(ctx context.Context, req *ConvertRequest, convCtx *dosing.ConversionContext, result *dosing.Result, verdict *guardrails.Verdict, convErr error, duration time.Duration) {
	if s.deps.Audit == nil {
		return
	}

	entry := &recorder.Entry{
		RequestID:  RequestID(ctx),
		Value:      req.Value,
		FromUnit:   req.FromUnit,
		ToUnit:     req.ToUnit,
		Context:    convCtx,
		PatientRef: req.PatientRef,
		Result:     result,
		Verdict:    verdict,
		Err:        convErr,
		Duration:   duration,
	}
	if err := s.deps.Audit.Record(ctx, entry); err != nil {
		s.logger.WarnContext(ctx, "audit record dropped", "error", err)
		if s.collector != nil {
			s.collector.RecordAuditDrop()
		}
		return
	}
	if s.collector != nil {
		s.collector.RecordAuditEnqueued(outcomeOf(result, convErr))
	}
}

// decodeBody decodes a JSON request body, bounded by MaxBodyBytes.
// Unknown fields are rejected: a misspelled field in a dosing request
// must not be silently ignored.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	maxBytes := s.config.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = config.DefaultMaxBodyBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &RequestError{
				Status:  http.StatusRequestEntityTooLarge,
				Kind:    "request_too_large",
				Message: fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit),
			}
		}
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

// writeError writes the error envelope. Server-side failures are
// logged with the request context; client errors are the caller's
// problem and only appear in the request log.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	writeJSON(w, status, &ErrorResponse{Error: body})
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// confidenceOf returns the result's confidence value, zero when the
// result carries no score.
func confidenceOf(res *dosing.Result) float64 {
	if res == nil || res.Confidence == nil {
		return 0
	}
	return res.Confidence.Value
}

// outcomeOf labels an audit enqueue by how the conversion ended.
func outcomeOf(res *dosing.Result, convErr error) string {
	switch {
	case convErr != nil:
		return "error"
	case res == nil:
		return "unknown"
	default:
		return "success"
	}
}
