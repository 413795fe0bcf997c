package devices

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Factor describes how a device unit converts to its RatioTo unit. It
// is either known statically (the device geometry fixes it) or it
// requires conversion context such as medication strength.
//
// On the wire a known factor is its number and a context-required
// factor is null, in both JSON and YAML.
type Factor struct {
	known bool
	value float64
}

// KnownFactor returns a Factor fixed by the device itself.
func KnownFactor(value float64) Factor {
	return Factor{known: true, value: value}
}

// RequiresContext returns a Factor that can only be resolved from
// conversion context.
func RequiresContext() Factor {
	return Factor{}
}

// Known returns the static factor value and whether one exists.
func (f Factor) Known() (float64, bool) {
	return f.value, f.known
}

// NeedsContext reports whether the factor must come from conversion
// context.
func (f Factor) NeedsContext() bool {
	return !f.known
}

// MarshalJSON implements json.Marshaler.
func (f Factor) MarshalJSON() ([]byte, error) {
	if !f.known {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Factor) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Factor{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("device factor must be a number or null: %w", err)
	}
	*f = KnownFactor(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (f Factor) MarshalYAML() (any, error) {
	if !f.known {
		return nil, nil
	}
	return f.value, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *Factor) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!null" {
		*f = Factor{}
		return nil
	}
	var v float64
	if err := node.Decode(&v); err != nil {
		return fmt.Errorf("device factor must be a number or null: %w", err)
	}
	*f = KnownFactor(v)
	return nil
}

// Unit describes one registered device unit.
type Unit struct {
	// ID is the braced token identifying the unit, e.g. "{click}".
	ID string `json:"id" yaml:"id"`

	// Display is the singular human-readable name, e.g. "click".
	Display string `json:"display,omitempty" yaml:"display,omitempty"`

	// PluralDisplay is the plural form, e.g. "clicks".
	PluralDisplay string `json:"pluralDisplay,omitempty" yaml:"plural_display,omitempty"`

	// RatioTo is the standard unit this device unit converts to, e.g.
	// "mL" for a metered dispenser.
	RatioTo string `json:"ratioTo" yaml:"ratio_to"`

	// Factor is how the RatioTo conversion factor is found.
	Factor Factor `json:"factor,omitempty" yaml:"factor,omitempty"`

	// Device names the physical device class, e.g. "metered-dose
	// inhaler".
	Device string `json:"device,omitempty" yaml:"device,omitempty"`

	// AirPrimeLoss is the number of device units wasted priming the
	// device before a dose. Zero means the device does not prime.
	AirPrimeLoss int `json:"airPrimeLoss,omitempty" yaml:"air_prime_loss,omitempty"`

	// LotFactors maps lot numbers to lot-specific conversion factors
	// that override the registered Factor.
	LotFactors map[string]float64 `json:"lotFactors,omitempty" yaml:"lot_factors,omitempty"`

	// Instructions is an optional patient-facing usage note.
	Instructions string `json:"instructions,omitempty" yaml:"instructions,omitempty"`
}
