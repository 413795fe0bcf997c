package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"meridianrx/galen/pkg/audit"
	"meridianrx/galen/pkg/audit/recorder"
	auditStorage "meridianrx/galen/pkg/audit/storage"
	"meridianrx/galen/pkg/config"
	"meridianrx/galen/pkg/dosing"
	"meridianrx/galen/pkg/dosing/engine"
	"meridianrx/galen/pkg/formulary"
	formularyStorage "meridianrx/galen/pkg/formulary/storage"
	"meridianrx/galen/pkg/guardrails"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testServer builds a quiet server around a default engine. The mutate
// hook adds optional dependencies.
func testServer(t *testing.T, cfg *config.ServerConfig, mutate func(*Deps)) *Server {
	t.Helper()

	deps := Deps{Engine: engine.New(&engine.Config{Logger: testLogger()})}
	if mutate != nil {
		mutate(&deps)
	}

	srv, err := New(cfg, deps)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	srv.logger = testLogger()
	return srv
}

func testFormulary(t *testing.T) *formulary.ContextBuilder {
	t.Helper()

	store := formularyStorage.NewMemoryStore()
	med := &formulary.Medication{
		ID:   "acetaminophen-325",
		Name: "acetaminophen 325 mg tablet",
		Form: "tablet",
		Ingredients: []dosing.IngredientStrength{{
			Name:             "acetaminophen",
			StrengthQuantity: &dosing.Quantity{Value: 325, Unit: "mg"},
		}},
		Lots: map[string]formulary.Lot{"LOT-7": {}},
	}
	if err := store.Put(context.Background(), med); err != nil {
		t.Fatalf("seeding formulary: %v", err)
	}
	return formulary.NewContextBuilder(store)
}

func testEvaluator() *guardrails.Evaluator {
	ev := guardrails.NewEvaluator(nil, testLogger())
	ev.SetRuleSets(&guardrails.RuleSet{
		GuardrailsVersion: "1.0",
		Name:              "api-limits",
		Version:           "1.0.0",
		Rules: []*guardrails.Rule{{
			Name:        "single-dose-ceiling",
			Description: "single doses above 1000 mg need intervention",
			Enabled:     true,
			Severity:    guardrails.SeverityBlock,
			Limit:       &guardrails.Limit{MaxSingle: &dosing.Quantity{Value: 1000, Unit: "mg"}},
		}},
	})
	return ev
}

// doJSON sends one request through the handler chain.
func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeConvert(t *testing.T, rr *httptest.ResponseRecorder) *ConvertResponse {
	t.Helper()
	var resp ConvertResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding convert response: %v (body %s)", err, rr.Body.String())
	}
	return &resp
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) *ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding error response: %v (body %s)", err, rr.Body.String())
	}
	return &resp
}

func TestConvert_Standard(t *testing.T) {
	srv := testServer(t, nil, nil)
	h := srv.Handler()

	rr := doJSON(t, h, http.MethodPost, "/v1/convert", &ConvertRequest{
		Value: 2, FromUnit: "g", ToUnit: "mg",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rr.Code, rr.Body.String())
	}

	resp := decodeConvert(t, rr)
	if resp.Result == nil {
		t.Fatal("response has no result")
	}
	if resp.Result.Value != 2000 {
		t.Errorf("Value = %v, want 2000", resp.Result.Value)
	}
	if len(resp.Result.Steps) == 0 {
		t.Error("expected conversion steps in the response")
	}
	if resp.Result.Confidence == nil {
		t.Fatal("expected a confidence score")
	}
	if resp.Result.Confidence.Value <= 0 || resp.Result.Confidence.Value > 1 {
		t.Errorf("confidence = %v, want in (0, 1]", resp.Result.Confidence.Value)
	}
	if resp.RequestID == "" {
		t.Error("expected a request ID in the response")
	}
	if rr.Header().Get(RequestIDHeader) == "" {
		t.Error("expected X-Request-ID response header")
	}
}

func TestConvert_Identity(t *testing.T) {
	srv := testServer(t, nil, nil)

	rr := doJSON(t, srv.Handler(), http.MethodPost, "/v1/convert", &ConvertRequest{
		Value: 5, FromUnit: "mg", ToUnit: "mg",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rr.Code, rr.Body.String())
	}
	resp := decodeConvert(t, rr)
	if resp.Result.Value != 5 {
		t.Errorf("Value = %v, want 5", resp.Result.Value)
	}
	if resp.Result.Confidence == nil || resp.Result.Confidence.Value != 1.0 {
		t.Errorf("identity confidence = %+v, want exactly 1.0", resp.Result.Confidence)
	}
}

func TestConvert_InlineMedicationContext(t *testing.T) {
	srv := testServer(t, nil, nil)

	rr := doJSON(t, srv.Handler(), http.MethodPost, "/v1/convert", &ConvertRequest{
		Value: 2, FromUnit: "{tablet}", ToUnit: "mg",
		Context: &dosing.ConversionContext{
			Medication: &dosing.MedicationStrength{
				Name: "acetaminophen 325 mg tablet",
				Ingredients: []dosing.IngredientStrength{{
					Name:             "acetaminophen",
					StrengthQuantity: &dosing.Quantity{Value: 325, Unit: "mg"},
				}},
			},
		},
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rr.Code, rr.Body.String())
	}
	resp := decodeConvert(t, rr)
	if resp.Result.Value != 650 {
		t.Errorf("Value = %v, want 650", resp.Result.Value)
	}
}

func TestConvert_FormularyMedication(t *testing.T) {
	srv := testServer(t, nil, func(d *Deps) {
		d.Formulary = testFormulary(t)
	})
	h := srv.Handler()

	rr := doJSON(t, h, http.MethodPost, "/v1/convert", &ConvertRequest{
		Value: 2, FromUnit: "{tablet}", ToUnit: "mg",
		MedicationID: "acetaminophen-325",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rr.Code, rr.Body.String())
	}
	if resp := decodeConvert(t, rr); resp.Result.Value != 650 {
		t.Errorf("Value = %v, want 650", resp.Result.Value)
	}

	// Naming a known lot keeps the conversion working and raises no
	// lookup error.
	rr = doJSON(t, h, http.MethodPost, "/v1/convert", &ConvertRequest{
		Value: 2, FromUnit: "{tablet}", ToUnit: "mg",
		MedicationID: "acetaminophen-325", LotNumber: "LOT-7",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("with lot: status = %d, want 200 (body %s)", rr.Code, rr.Body.String())
	}
}

func TestConvert_ErrorMapping(t *testing.T) {
	srv := testServer(t, nil, func(d *Deps) {
		d.Formulary = testFormulary(t)
	})
	h := srv.Handler()

	tests := []struct {
		name       string
		req        *ConvertRequest
		wantStatus int
		wantKind   string
	}{
		{
			name:       "unknown unit",
			req:        &ConvertRequest{Value: 1, FromUnit: "mg", ToUnit: "banana"},
			wantStatus: http.StatusBadRequest,
			wantKind:   "invalid_unit",
		},
		{
			name:       "dimensionally impossible",
			req:        &ConvertRequest{Value: 1, FromUnit: "mg", ToUnit: "mL"},
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   "impossible_conversion",
		},
		{
			name:       "device unit without context",
			req:        &ConvertRequest{Value: 2, FromUnit: "{tablet}", ToUnit: "mg"},
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   "missing_context",
		},
		{
			name:       "unknown medication",
			req:        &ConvertRequest{Value: 1, FromUnit: "{tablet}", ToUnit: "mg", MedicationID: "no-such-med"},
			wantStatus: http.StatusNotFound,
			wantKind:   "medication_not_found",
		},
		{
			name:       "unknown lot",
			req:        &ConvertRequest{Value: 1, FromUnit: "{tablet}", ToUnit: "mg", MedicationID: "acetaminophen-325", LotNumber: "LOT-99"},
			wantStatus: http.StatusNotFound,
			wantKind:   "lot_not_found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, h, http.MethodPost, "/v1/convert", tt.req)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.wantStatus, rr.Body.String())
			}
			resp := decodeError(t, rr)
			if resp.Error.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", resp.Error.Kind, tt.wantKind)
			}
			if resp.Error.Message == "" {
				t.Error("error message should not be empty")
			}
		})
	}
}

func TestConvert_UnknownUnitSuggestions(t *testing.T) {
	srv := testServer(t, nil, nil)

	rr := doJSON(t, srv.Handler(), http.MethodPost, "/v1/convert", &ConvertRequest{
		Value: 1, FromUnit: "mgs", ToUnit: "g",
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (body %s)", rr.Code, rr.Body.String())
	}
	resp := decodeError(t, rr)
	if len(resp.Error.Suggestions) == 0 {
		t.Errorf("expected suggestions for near-miss token, got %+v", resp.Error)
	}
}

func TestConvert_NoFormularyConfigured(t *testing.T) {
	srv := testServer(t, nil, nil)

	rr := doJSON(t, srv.Handler(), http.MethodPost, "/v1/convert", &ConvertRequest{
		Value: 1, FromUnit: "{tablet}", ToUnit: "mg", MedicationID: "acetaminophen-325",
	})

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 (body %s)", rr.Code, rr.Body.String())
	}
	if resp := decodeError(t, rr); resp.Error.Kind != "formulary_unavailable" {
		t.Errorf("kind = %q, want formulary_unavailable", resp.Error.Kind)
	}
}

func TestConvert_RequestValidation(t *testing.T) {
	srv := testServer(t, nil, nil)
	h := srv.Handler()

	tests := []struct {
		name string
		body string
	}{
		{"missing fromUnit", `{"value": 1, "toUnit": "mg"}`},
		{"missing toUnit", `{"value": 1, "fromUnit": "mg"}`},
		{"invalid JSON", `{"value": `},
		{"unknown field", `{"value": 1, "fromUnit": "mg", "toUnit": "g", "valeu": 2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/convert", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rr.Code, rr.Body.String())
			}
			if resp := decodeError(t, rr); resp.Error.Kind != "invalid_request" {
				t.Errorf("kind = %q, want invalid_request", resp.Error.Kind)
			}
		})
	}
}

func TestConvert_BodyTooLarge(t *testing.T) {
	srv := testServer(t, &config.ServerConfig{MaxBodyBytes: 64}, nil)

	rr := doJSON(t, srv.Handler(), http.MethodPost, "/v1/convert", &ConvertRequest{
		Value: 1, FromUnit: "mg", ToUnit: "g",
		PatientRef: strings.Repeat("x", 128),
	})

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413 (body %s)", rr.Code, rr.Body.String())
	}
	if resp := decodeError(t, rr); resp.Error.Kind != "request_too_large" {
		t.Errorf("kind = %q, want request_too_large", resp.Error.Kind)
	}
}

func TestConvert_MethodNotAllowed(t *testing.T) {
	srv := testServer(t, nil, nil)

	rr := doJSON(t, srv.Handler(), http.MethodGet, "/v1/convert", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rr.Code)
	}
}

func TestConvert_Guardrails(t *testing.T) {
	srv := testServer(t, nil, func(d *Deps) {
		d.Guardrails = testEvaluator()
	})
	h := srv.Handler()

	t.Run("blocking dose still returns 200", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/v1/convert", &ConvertRequest{
			Value: 2, FromUnit: "g", ToUnit: "mg",
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", rr.Code, rr.Body.String())
		}

		resp := decodeConvert(t, rr)
		if resp.Guardrails == nil {
			t.Fatal("expected a guardrail verdict")
		}
		if resp.Guardrails.Decision != guardrails.DecisionBlock {
			t.Errorf("decision = %q, want block", resp.Guardrails.Decision)
		}
		if len(resp.Guardrails.Findings) == 0 {
			t.Error("expected findings for a blocked dose")
		}
	})

	t.Run("allowed dose", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/v1/convert", &ConvertRequest{
			Value: 500, FromUnit: "mg", ToUnit: "mg",
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", rr.Code, rr.Body.String())
		}

		resp := decodeConvert(t, rr)
		if resp.Guardrails == nil {
			t.Fatal("expected a guardrail verdict")
		}
		if resp.Guardrails.Decision != guardrails.DecisionAllow {
			t.Errorf("decision = %q, want allow", resp.Guardrails.Decision)
		}
		if resp.Guardrails.Evaluated == 0 {
			t.Error("expected at least one evaluated rule")
		}
	})
}

func TestConvert_AuditTrail(t *testing.T) {
	store := auditStorage.NewMemoryStorage()
	rec := recorder.NewRecorder(store, &recorder.Config{
		Enabled:           true,
		AsyncBuffer:       16,
		WriteTimeout:      time.Second,
		RedactPatientRefs: true,
		MaxFieldLength:    500,
	})

	srv := testServer(t, nil, func(d *Deps) {
		d.Audit = rec
	})
	h := srv.Handler()

	rr := doJSON(t, h, http.MethodPost, "/v1/convert", &ConvertRequest{
		Value: 2, FromUnit: "g", ToUnit: "mg", PatientRef: "PT-2024-0017",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, h, http.MethodPost, "/v1/convert", &ConvertRequest{
		Value: 1, FromUnit: "mg", ToUnit: "banana",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (body %s)", rr.Code, rr.Body.String())
	}

	// Close drains the async channel so both records are stored.
	if err := rec.Close(); err != nil {
		t.Fatalf("recorder close: %v", err)
	}

	if store.Size() != 2 {
		t.Fatalf("stored records = %d, want 2", store.Size())
	}

	success, err := store.Query(context.Background(), &audit.Query{Outcome: "success"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(success) != 1 {
		t.Fatalf("success records = %d, want 1", len(success))
	}
	if success[0].PatientRef == "PT-2024-0017" {
		t.Error("patient reference was stored unredacted")
	}
}

func TestValidateEndpoint(t *testing.T) {
	srv := testServer(t, nil, nil)
	h := srv.Handler()

	tests := []struct {
		name      string
		unit      string
		wantValid bool
	}{
		{"standard unit", "mg", true},
		{"device unit", "{tablet}", true},
		{"unknown token", "banana", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, h, http.MethodPost, "/v1/validate", &ValidateRequest{Unit: tt.unit})
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200 (body %s)", rr.Code, rr.Body.String())
			}

			var got struct {
				Valid bool   `json:"valid"`
				Unit  string `json:"unit"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
				t.Fatalf("decoding validation: %v", err)
			}
			if got.Valid != tt.wantValid {
				t.Errorf("valid = %v, want %v", got.Valid, tt.wantValid)
			}
			if got.Unit != tt.unit {
				t.Errorf("unit = %q, want %q", got.Unit, tt.unit)
			}
		})
	}

	t.Run("empty unit", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/v1/validate", &ValidateRequest{})
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400 (body %s)", rr.Code, rr.Body.String())
		}
	})
}

func TestCompatibleEndpoint(t *testing.T) {
	srv := testServer(t, nil, nil)
	h := srv.Handler()

	t.Run("standard unit", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodGet, "/v1/units/mg/compatible", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", rr.Code, rr.Body.String())
		}

		var resp CompatibleResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if resp.Unit != "mg" {
			t.Errorf("unit = %q, want mg", resp.Unit)
		}
		found := false
		for _, u := range resp.Compatible {
			if u.Code == "g" {
				found = true
			}
		}
		if !found {
			t.Errorf("compatible units for mg should include g, got %+v", resp.Compatible)
		}
	})

	t.Run("device unit, URL-encoded", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodGet, "/v1/units/%7Btablet%7D/compatible", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", rr.Code, rr.Body.String())
		}

		var resp CompatibleResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if len(resp.Compatible) == 0 {
			t.Error("expected compatible units for {tablet}")
		}
	})

	t.Run("unknown unit", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodGet, "/v1/units/banana/compatible", nil)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400 (body %s)", rr.Code, rr.Body.String())
		}
		if resp := decodeError(t, rr); resp.Error.Kind != "invalid_unit" {
			t.Errorf("kind = %q, want invalid_unit", resp.Error.Kind)
		}
	})
}
