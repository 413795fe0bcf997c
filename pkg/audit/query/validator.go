package query

import (
	"fmt"

	"meridianrx/galen/pkg/audit"
)

const (
	// DefaultLimit is the default number of records to return if not specified.
	DefaultLimit = 100

	// MaxLimit is the maximum number of records that can be returned in a single query.
	MaxLimit = 10000
)

// ValidSortFields contains the fields that can be used for sorting.
var ValidSortFields = map[string]bool{
	"request_time":  true,
	"recorded_time": true,
	"confidence":    true,
	"duration":      true,
}

// ValidSortOrders contains the valid sort orders.
var ValidSortOrders = map[string]bool{
	"asc":  true,
	"desc": true,
}

// ValidOutcomes contains the valid outcome filter values.
var ValidOutcomes = map[string]bool{
	audit.OutcomeSuccess: true,
	audit.OutcomeError:   true,
	audit.OutcomeBlocked: true,
}

// Validate validates a query and returns an error if any parameters are invalid.
func Validate(q *audit.Query) error {
	if q.Limit < 0 {
		return audit.NewQueryError(q, fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	if q.Limit > MaxLimit {
		return audit.NewQueryError(q, fmt.Errorf("limit must be <= %d, got %d", MaxLimit, q.Limit))
	}

	if q.Offset < 0 {
		return audit.NewQueryError(q, fmt.Errorf("offset must be >= 0, got %d", q.Offset))
	}

	if q.SortBy != "" && !ValidSortFields[q.SortBy] {
		return audit.NewQueryError(q, fmt.Errorf("invalid sort field: %s", q.SortBy))
	}

	if q.SortOrder != "" && !ValidSortOrders[q.SortOrder] {
		return audit.NewQueryError(q, fmt.Errorf("invalid sort order: %s (must be 'asc' or 'desc')", q.SortOrder))
	}

	if q.StartTime != nil && q.EndTime != nil {
		if q.StartTime.After(*q.EndTime) {
			return audit.NewQueryError(q, fmt.Errorf("start time must be before end time"))
		}
	}

	if q.MinConfidence != nil {
		if *q.MinConfidence < 0 || *q.MinConfidence > 1 {
			return audit.NewQueryError(q, fmt.Errorf("min confidence must be within [0,1], got %v", *q.MinConfidence))
		}
	}
	if q.MaxConfidence != nil {
		if *q.MaxConfidence < 0 || *q.MaxConfidence > 1 {
			return audit.NewQueryError(q, fmt.Errorf("max confidence must be within [0,1], got %v", *q.MaxConfidence))
		}
	}
	if q.MinConfidence != nil && q.MaxConfidence != nil {
		if *q.MinConfidence > *q.MaxConfidence {
			return audit.NewQueryError(q, fmt.Errorf("min confidence must be <= max confidence"))
		}
	}

	if q.Outcome != "" && !ValidOutcomes[q.Outcome] {
		return audit.NewQueryError(q, fmt.Errorf("invalid outcome: %s (must be 'success', 'error', or 'blocked')", q.Outcome))
	}

	return nil
}

// ApplyDefaults applies default values to a query.
func ApplyDefaults(q *audit.Query) {
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}

	if q.SortBy == "" {
		q.SortBy = "request_time"
	}

	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
}
