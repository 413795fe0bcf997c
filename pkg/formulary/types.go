package formulary

import (
	"context"
	"fmt"
	"time"

	"meridianrx/galen/pkg/dosing"
	"meridianrx/galen/pkg/dosing/devices"
)

// Medication is one formulary entry: a dispensable product with the
// data conversions need.
type Medication struct {
	// ID uniquely identifies the entry, e.g. "metformin-500-tab".
	ID string `json:"id" yaml:"id"`

	// Name is the human-readable product name.
	Name string `json:"name" yaml:"name"`

	// Form is the dose form: tablet, capsule, solution, inhaler,
	// topical, and so on.
	Form string `json:"form" yaml:"form"`

	// Ingredients lists active ingredient strengths.
	Ingredients []dosing.IngredientStrength `json:"ingredients,omitempty" yaml:"ingredients,omitempty"`

	// Concentration is the mass-per-volume ratio for liquid products,
	// used to bridge mass and volume conversions.
	Concentration *dosing.StrengthRatio `json:"concentration,omitempty" yaml:"concentration,omitempty"`

	// DeviceUnits lists the device units this product dispenses in,
	// with their factors and air-prime losses.
	DeviceUnits []devices.Unit `json:"deviceUnits,omitempty" yaml:"device_units,omitempty"`

	// Lots carries per-lot calibration, keyed by lot number.
	Lots map[string]Lot `json:"lots,omitempty" yaml:"lots,omitempty"`

	// UpdatedAt is when this entry last changed. Stores stamp it on
	// Put when zero.
	UpdatedAt time.Time `json:"updatedAt,omitempty" yaml:"updated_at,omitempty"`
}

// Lot is lot-specific calibration: measured device factors that
// override the registered ones when a conversion names this lot.
type Lot struct {
	// DeviceFactors maps a device unit ID to its measured factor for
	// this lot, in the device's base unit.
	DeviceFactors map[string]float64 `json:"deviceFactors,omitempty" yaml:"device_factors,omitempty"`

	// Note is free-form provenance for the calibration.
	Note string `json:"note,omitempty" yaml:"note,omitempty"`
}

// Validate checks the entry for structural problems before storage.
func (m *Medication) Validate() error {
	if m == nil {
		return fmt.Errorf("medication cannot be nil")
	}
	if m.ID == "" {
		return fmt.Errorf("medication id cannot be empty")
	}
	if m.Name == "" {
		return fmt.Errorf("medication %q: name cannot be empty", m.ID)
	}
	for i, ing := range m.Ingredients {
		if ing.Name == "" {
			return fmt.Errorf("medication %q: ingredient %d has no name", m.ID, i)
		}
		if ing.StrengthQuantity == nil && ing.StrengthRatio == nil {
			return fmt.Errorf("medication %q: ingredient %q has no strength", m.ID, ing.Name)
		}
	}
	for lot, cal := range m.Lots {
		for id, f := range cal.DeviceFactors {
			if f <= 0 {
				return fmt.Errorf("medication %q: lot %q factor for %s must be positive, got %v", m.ID, lot, id, f)
			}
		}
	}
	return nil
}

// Strength returns the medication's ingredient strengths in the shape
// the conversion context consumes, or nil when there are none.
func (m *Medication) Strength() *dosing.MedicationStrength {
	if m == nil || len(m.Ingredients) == 0 {
		return nil
	}
	return &dosing.MedicationStrength{
		Name:        m.Name,
		Ingredients: m.Ingredients,
	}
}

// Store defines the interface for medication persistence.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put persists a medication, replacing any entry with the same ID.
	Put(ctx context.Context, med *Medication) error

	// Get retrieves a medication by ID. Returns nil if no entry
	// exists. Returns error on system failure.
	Get(ctx context.Context, id string) (*Medication, error)

	// Delete removes a medication by ID. No-op if the entry doesn't
	// exist.
	Delete(ctx context.Context, id string) error

	// List returns every medication, sorted by ID.
	List(ctx context.Context) ([]*Medication, error)

	// Close releases any resources held by the store.
	Close() error
}

// DeviceUnits returns the medication's device units with every lot
// calibration folded into the units' lot factor tables. The returned
// units are copies; the medication is not modified.
func DeviceUnits(med *Medication) []devices.Unit {
	if med == nil || len(med.DeviceUnits) == 0 {
		return nil
	}
	out := make([]devices.Unit, len(med.DeviceUnits))
	for i, u := range med.DeviceUnits {
		merged := u
		merged.LotFactors = make(map[string]float64, len(u.LotFactors)+len(med.Lots))
		for lot, f := range u.LotFactors {
			merged.LotFactors[lot] = f
		}
		for lot, cal := range med.Lots {
			if f, ok := cal.DeviceFactors[u.ID]; ok {
				merged.LotFactors[lot] = f
			}
		}
		if len(merged.LotFactors) == 0 {
			merged.LotFactors = nil
		}
		out[i] = merged
	}
	return out
}
