package query

import (
	"errors"
	"strings"
	"testing"
	"time"

	"meridianrx/galen/pkg/audit"
)

func TestValidate(t *testing.T) {
	now := time.Now()
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	minConfidence := 0.5
	maxConfidence := 0.9
	tooHigh := 1.5
	negative := -0.1

	tests := []struct {
		name    string
		query   *audit.Query
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid query with all filters",
			query: &audit.Query{
				StartTime:         &past,
				EndTime:           &now,
				RequestID:         "req-123",
				FromUnit:          "mg",
				ToUnit:            "{tablet}",
				Medication:        "Metformin 500mg",
				Path:              "device",
				Outcome:           "success",
				ErrorKind:         "",
				GuardrailDecision: "warn",
				Rule:              "metformin-daily-max",
				MinConfidence:     &minConfidence,
				MaxConfidence:     &maxConfidence,
				Limit:             100,
				Offset:            0,
				SortBy:            "request_time",
				SortOrder:         "desc",
			},
			wantErr: false,
		},
		{
			name: "valid query with minimal filters",
			query: &audit.Query{
				Limit: 50,
			},
			wantErr: false,
		},
		{
			name: "negative limit",
			query: &audit.Query{
				Limit: -1,
			},
			wantErr: true,
			errMsg:  "limit must be >= 0",
		},
		{
			name: "limit exceeds max",
			query: &audit.Query{
				Limit: MaxLimit + 1,
			},
			wantErr: true,
			errMsg:  "limit must be <=",
		},
		{
			name: "negative offset",
			query: &audit.Query{
				Offset: -1,
			},
			wantErr: true,
			errMsg:  "offset must be >= 0",
		},
		{
			name: "invalid sort field",
			query: &audit.Query{
				SortBy: "invalid_field",
			},
			wantErr: true,
			errMsg:  "invalid sort field",
		},
		{
			name: "invalid sort order",
			query: &audit.Query{
				SortBy:    "request_time",
				SortOrder: "invalid",
			},
			wantErr: true,
			errMsg:  "invalid sort order",
		},
		{
			name: "start time after end time",
			query: &audit.Query{
				StartTime: &future,
				EndTime:   &past,
			},
			wantErr: true,
			errMsg:  "start time must be before end time",
		},
		{
			name: "min confidence above 1",
			query: &audit.Query{
				MinConfidence: &tooHigh,
			},
			wantErr: true,
			errMsg:  "min confidence must be within",
		},
		{
			name: "max confidence negative",
			query: &audit.Query{
				MaxConfidence: &negative,
			},
			wantErr: true,
			errMsg:  "max confidence must be within",
		},
		{
			name: "min confidence greater than max confidence",
			query: &audit.Query{
				MinConfidence: &maxConfidence,
				MaxConfidence: &minConfidence,
			},
			wantErr: true,
			errMsg:  "min confidence must be <= max confidence",
		},
		{
			name: "invalid outcome",
			query: &audit.Query{
				Outcome: "invalid_outcome",
			},
			wantErr: true,
			errMsg:  "invalid outcome",
		},
		{
			name: "valid outcome - success",
			query: &audit.Query{
				Outcome: "success",
			},
			wantErr: false,
		},
		{
			name: "valid outcome - error",
			query: &audit.Query{
				Outcome: "error",
			},
			wantErr: false,
		},
		{
			name: "valid outcome - blocked",
			query: &audit.Query{
				Outcome: "blocked",
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.query)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.errMsg)
					return
				}
				if tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Validate() error = %v, want error containing %q", err, tt.errMsg)
				}
			} else {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			}
		})
	}
}

func TestValidate_ValidSortFields(t *testing.T) {
	validFields := []string{
		"request_time",
		"recorded_time",
		"confidence",
		"duration",
	}

	for _, field := range validFields {
		t.Run("sort_by_"+field, func(t *testing.T) {
			query := &audit.Query{
				SortBy: field,
			}
			err := Validate(query)
			if err != nil {
				t.Errorf("Validate() with sort field %q failed: %v", field, err)
			}
		})
	}
}

func TestValidate_ValidSortOrders(t *testing.T) {
	validOrders := []string{"asc", "desc"}

	for _, order := range validOrders {
		t.Run("sort_order_"+order, func(t *testing.T) {
			query := &audit.Query{
				SortBy:    "request_time",
				SortOrder: order,
			}
			err := Validate(query)
			if err != nil {
				t.Errorf("Validate() with sort order %q failed: %v", order, err)
			}
		})
	}
}

func TestValidate_QueryErrorKind(t *testing.T) {
	// Validation failures should be reported as query errors
	err := Validate(&audit.Query{Limit: -5})
	if err == nil {
		t.Fatal("Validate() expected error, got nil")
	}

	var queryErr *audit.QueryError
	if !errors.As(err, &queryErr) {
		t.Fatalf("Validate() error type = %T, want *audit.QueryError", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	tests := []struct {
		name          string
		query         *audit.Query
		expectedLimit int
		expectedSort  string
		expectedOrder string
	}{
		{
			name:          "empty query gets all defaults",
			query:         &audit.Query{},
			expectedLimit: DefaultLimit,
			expectedSort:  "request_time",
			expectedOrder: "desc",
		},
		{
			name: "query with limit keeps it",
			query: &audit.Query{
				Limit: 50,
			},
			expectedLimit: 50,
			expectedSort:  "request_time",
			expectedOrder: "desc",
		},
		{
			name: "query with sort keeps it",
			query: &audit.Query{
				SortBy: "confidence",
			},
			expectedLimit: DefaultLimit,
			expectedSort:  "confidence",
			expectedOrder: "desc",
		},
		{
			name: "query with sort order keeps it",
			query: &audit.Query{
				SortOrder: "asc",
			},
			expectedLimit: DefaultLimit,
			expectedSort:  "request_time",
			expectedOrder: "asc",
		},
		{
			name: "query with all set keeps all",
			query: &audit.Query{
				Limit:     25,
				SortBy:    "duration",
				SortOrder: "asc",
			},
			expectedLimit: 25,
			expectedSort:  "duration",
			expectedOrder: "asc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ApplyDefaults(tt.query)

			if tt.query.Limit != tt.expectedLimit {
				t.Errorf("Limit = %d, want %d", tt.query.Limit, tt.expectedLimit)
			}
			if tt.query.SortBy != tt.expectedSort {
				t.Errorf("SortBy = %s, want %s", tt.query.SortBy, tt.expectedSort)
			}
			if tt.query.SortOrder != tt.expectedOrder {
				t.Errorf("SortOrder = %s, want %s", tt.query.SortOrder, tt.expectedOrder)
			}
		})
	}
}

func TestApplyDefaults_Idempotent(t *testing.T) {
	// Applying defaults multiple times should have same effect
	query := &audit.Query{}

	ApplyDefaults(query)
	firstLimit := query.Limit
	firstSort := query.SortBy
	firstOrder := query.SortOrder

	ApplyDefaults(query)
	ApplyDefaults(query)

	if query.Limit != firstLimit {
		t.Errorf("Limit changed after multiple ApplyDefaults: %d -> %d", firstLimit, query.Limit)
	}
	if query.SortBy != firstSort {
		t.Errorf("SortBy changed after multiple ApplyDefaults: %s -> %s", firstSort, query.SortBy)
	}
	if query.SortOrder != firstOrder {
		t.Errorf("SortOrder changed after multiple ApplyDefaults: %s -> %s", firstOrder, query.SortOrder)
	}
}

func TestConstants(t *testing.T) {
	if DefaultLimit != 100 {
		t.Errorf("DefaultLimit = %d, want 100", DefaultLimit)
	}
	if MaxLimit != 10000 {
		t.Errorf("MaxLimit = %d, want 10000", MaxLimit)
	}
}

func TestValidSortFields(t *testing.T) {
	expectedFields := []string{
		"request_time",
		"recorded_time",
		"confidence",
		"duration",
	}

	for _, field := range expectedFields {
		if !ValidSortFields[field] {
			t.Errorf("ValidSortFields missing expected field: %s", field)
		}
	}

	if len(ValidSortFields) != len(expectedFields) {
		t.Errorf("ValidSortFields has %d fields, expected %d", len(ValidSortFields), len(expectedFields))
	}
}

func TestValidSortOrders(t *testing.T) {
	if !ValidSortOrders["asc"] {
		t.Error("ValidSortOrders missing 'asc'")
	}
	if !ValidSortOrders["desc"] {
		t.Error("ValidSortOrders missing 'desc'")
	}
	if len(ValidSortOrders) != 2 {
		t.Errorf("ValidSortOrders has %d orders, expected 2", len(ValidSortOrders))
	}
}

// BenchmarkValidate benchmarks query validation.
func BenchmarkValidate(b *testing.B) {
	now := time.Now()
	past := now.Add(-24 * time.Hour)
	minConfidence := 0.5
	maxConfidence := 0.9

	query := &audit.Query{
		StartTime:     &past,
		EndTime:       &now,
		FromUnit:      "mg",
		ToUnit:        "{tablet}",
		Path:          "device",
		Outcome:       "success",
		MinConfidence: &minConfidence,
		MaxConfidence: &maxConfidence,
		Limit:         100,
		Offset:        0,
		SortBy:        "request_time",
		SortOrder:     "desc",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Validate(query)
	}
}
