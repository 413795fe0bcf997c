package devices

import (
	"fmt"
	"sort"

	"meridianrx/galen/pkg/dosing"
	"meridianrx/galen/pkg/dosing/units"
)

// Registry holds the device units the engine knows about. Populate it
// at startup; registration is not synchronized with in-flight
// conversions.
type Registry struct {
	validator *units.Validator
	units     map[string]Unit
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		validator: units.NewValidator(),
		units:     make(map[string]Unit),
	}
}

// DefaultRegistry returns a registry seeded with the standard clinical
// device units.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, u := range defaultUnits() {
		// Defaults are well-formed; Register only fails on malformed input.
		if err := r.Register(u); err != nil {
			panic(fmt.Sprintf("devices: default unit %q: %v", u.ID, err))
		}
	}
	return r
}

// Register adds a device unit, replacing any existing unit with the
// same ID.
func (r *Registry) Register(u Unit) error {
	if !units.IsDeviceToken(u.ID) {
		return fmt.Errorf("device unit id %q must be a braced token such as {click}", u.ID)
	}
	ratioTo := r.validator.Normalize(u.RatioTo)
	if _, ok := r.validator.DimensionOf(ratioTo); !ok {
		return fmt.Errorf("device unit %q: ratio unit %q is not a standard unit", u.ID, u.RatioTo)
	}
	if v, known := u.Factor.Known(); known && v <= 0 {
		return fmt.Errorf("device unit %q: factor must be positive, got %v", u.ID, v)
	}
	for lot, f := range u.LotFactors {
		if f <= 0 {
			return fmt.Errorf("device unit %q: lot %q factor must be positive, got %v", u.ID, lot, f)
		}
	}
	if u.AirPrimeLoss < 0 {
		return fmt.Errorf("device unit %q: air-prime loss cannot be negative", u.ID)
	}
	u.RatioTo = ratioTo
	r.units[u.ID] = u
	return nil
}

// Lookup returns the device unit registered under an ID.
func (r *Registry) Lookup(id string) (Unit, bool) {
	u, ok := r.units[id]
	return u, ok
}

// IDs returns every registered device unit ID, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.units))
	for id := range r.units {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered device units.
func (r *Registry) Len() int {
	return len(r.units)
}

// Describe returns the read-only description of a registered device
// unit.
func (r *Registry) Describe(id string) (dosing.Unit, bool) {
	u, ok := r.units[id]
	if !ok {
		return dosing.Unit{}, false
	}
	return dosing.Unit{
		Code:      u.ID,
		Display:   u.Display,
		Custom:    true,
		Dimension: "device",
	}, true
}

// defaultUnits is the seed set for DefaultRegistry. Factors that
// depend on the medication (tablet strength, patch strength, inhaler
// dose per actuation) require context; factors fixed by device
// geometry are known.
func defaultUnits() []Unit {
	return []Unit{
		{
			ID:            "{tablet}",
			Display:       "tablet",
			PluralDisplay: "tablets",
			RatioTo:       "mg",
			Factor:        RequiresContext(),
			Device:        "oral solid",
			Instructions:  "Dose by tablet count; the milligram strength comes from the medication label.",
		},
		{
			ID:            "{capsule}",
			Display:       "capsule",
			PluralDisplay: "capsules",
			RatioTo:       "mg",
			Factor:        RequiresContext(),
			Device:        "oral solid",
			Instructions:  "Dose by capsule count; the milligram strength comes from the medication label.",
		},
		{
			ID:            "{click}",
			Display:       "click",
			PluralDisplay: "clicks",
			RatioTo:       "mL",
			Factor:        KnownFactor(0.25),
			Device:        "topical metered-dose dispenser",
			Instructions:  "Each click dispenses 0.25 mL of product.",
		},
		{
			ID:            "{drop}",
			Display:       "drop",
			PluralDisplay: "drops",
			RatioTo:       "mL",
			Factor:        KnownFactor(0.05),
			Device:        "dropper",
			Instructions:  "Assumes a standard dropper delivering 0.05 mL per drop.",
		},
		{
			ID:            "{patch}",
			Display:       "patch",
			PluralDisplay: "patches",
			RatioTo:       "mg",
			Factor:        RequiresContext(),
			Device:        "transdermal patch",
			Instructions:  "Patch strength and wear duration come from the medication label.",
		},
		{
			ID:            "{puff}",
			Display:       "puff",
			PluralDisplay: "puffs",
			RatioTo:       "mcg",
			Factor:        RequiresContext(),
			Device:        "metered-dose inhaler",
			Instructions:  "Dose per actuation comes from the inhaler label.",
		},
		{
			ID:            "{spray}",
			Display:       "spray",
			PluralDisplay: "sprays",
			RatioTo:       "mcg",
			Factor:        RequiresContext(),
			Device:        "nasal spray",
			Instructions:  "Dose per spray comes from the product label.",
		},
		{
			ID:            "{scoop}",
			Display:       "scoop",
			PluralDisplay: "scoops",
			RatioTo:       "g",
			Factor:        RequiresContext(),
			Device:        "powder scoop",
			Instructions:  "Scoop size comes from the product label.",
		},
	}
}
