package formulary

import (
	"context"
	"errors"
	"fmt"

	"meridianrx/galen/pkg/dosing"
)

// Lookup failures callers can branch on with errors.Is. Store I/O
// failures are returned unwrapped and match neither.
var (
	// ErrMedicationNotFound reports a medication ID with no formulary
	// entry.
	ErrMedicationNotFound = errors.New("medication not found in formulary")

	// ErrLotNotFound reports a lot number missing from a medication's
	// lot table.
	ErrLotNotFound = errors.New("lot not found")
)

// ContextBuilder resolves medications into the conversion context the
// engine consumes.
type ContextBuilder struct {
	store Store
}

// NewContextBuilder returns a builder backed by a medication store.
func NewContextBuilder(store Store) *ContextBuilder {
	return &ContextBuilder{store: store}
}

// Build resolves a medication ID (and optionally a lot number) into a
// conversion context carrying the medication's strength data,
// concentration ratio and lot selection.
//
// A non-empty lot number must exist in the medication's lot table;
// silently converting with uncalibrated factors when the caller named
// a specific lot would defeat the point of lot tracking.
func (b *ContextBuilder) Build(ctx context.Context, medicationID, lotNumber string) (*dosing.ConversionContext, error) {
	med, err := b.store.Get(ctx, medicationID)
	if err != nil {
		return nil, err
	}
	if med == nil {
		return nil, fmt.Errorf("medication %q: %w", medicationID, ErrMedicationNotFound)
	}

	if lotNumber != "" {
		if _, ok := med.Lots[lotNumber]; !ok {
			return nil, fmt.Errorf("medication %q has no lot %q: %w", medicationID, lotNumber, ErrLotNotFound)
		}
	}

	return &dosing.ConversionContext{
		Medication:    med.Strength(),
		LotNumber:     lotNumber,
		StrengthRatio: med.Concentration,
	}, nil
}

// Medication returns the resolved medication itself, for callers that
// also need its device units.
func (b *ContextBuilder) Medication(ctx context.Context, medicationID string) (*Medication, error) {
	med, err := b.store.Get(ctx, medicationID)
	if err != nil {
		return nil, err
	}
	if med == nil {
		return nil, fmt.Errorf("medication %q: %w", medicationID, ErrMedicationNotFound)
	}
	return med, nil
}
