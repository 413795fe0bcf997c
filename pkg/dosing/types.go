package dosing

// Quantity is a numeric value paired with the unit token it is expressed
// in. The unit token is kept verbatim; normalization happens inside the
// engine tiers, never on stored quantities.
type Quantity struct {
	// Value is the numeric amount.
	Value float64 `json:"value" yaml:"value"`

	// Unit is the unit token, e.g. "mg", "mL", "mg/mL" or "{click}".
	Unit string `json:"unit" yaml:"unit"`
}

// StepKind classifies a single conversion step by the kind of factor it
// applied. The confidence scorer weighs each kind differently.
type StepKind string

const (
	// StepStandard is a dimensional conversion between two standard
	// clinical units, e.g. mg to g.
	StepStandard StepKind = "standard"

	// StepDevice is a conversion into or out of a device unit using a
	// registered or context-resolved device factor.
	StepDevice StepKind = "device"

	// StepConcentration is a hop along a strength-ratio path bridging
	// mass and volume, e.g. mL to mg at 100 mg/1 mL.
	StepConcentration StepKind = "concentration"

	// StepCustom is a conversion using a caller-supplied custom factor,
	// which overrides every other factor source.
	StepCustom StepKind = "custom"
)

// Step records one hop of a conversion. A Result carries the ordered
// steps that produced its value so callers can audit exactly how a
// number was derived.
type Step struct {
	// Description is a human-readable account of the hop.
	Description string `json:"description"`

	// From is the quantity entering the step.
	From Quantity `json:"from"`

	// To is the quantity leaving the step.
	To Quantity `json:"to"`

	// Factor is the multiplier applied to From.Value to obtain
	// To.Value. It is nil for steps that are not a plain
	// multiplication, such as air-prime adjustments.
	Factor *float64 `json:"factor,omitempty"`

	// Kind classifies the step for confidence scoring.
	Kind StepKind `json:"kind"`
}

// Result is the outcome of a conversion request.
type Result struct {
	// Value is the converted amount expressed in ToUnit.
	Value float64 `json:"value"`

	// OriginalValue is the amount the caller asked to convert.
	OriginalValue float64 `json:"originalValue"`

	// FromUnit is the source unit token exactly as requested.
	FromUnit string `json:"fromUnit"`

	// ToUnit is the target unit token exactly as requested.
	ToUnit string `json:"toUnit"`

	// Steps is the ordered list of hops that produced Value. It is
	// empty when the caller disabled tracing for the request.
	Steps []Step `json:"steps,omitempty"`

	// Confidence estimates how reliable the conversion is. It is always
	// populated on a successful conversion.
	Confidence *Score `json:"confidence,omitempty"`
}

// StrengthRatio expresses a medication concentration as an explicit
// fraction, e.g. 100 mg / 1 mL. Ratios bridge mass and volume
// conversions that are otherwise dimensionally impossible.
type StrengthRatio struct {
	// Numerator is the dissolved amount, typically a mass.
	Numerator Quantity `json:"numerator" yaml:"numerator"`

	// Denominator is the carrier amount, typically a volume.
	Denominator Quantity `json:"denominator" yaml:"denominator"`
}

// CustomConversion is a caller-supplied factor between two unit tokens.
// Custom conversions take precedence over medication strength, lot data
// and registry defaults.
type CustomConversion struct {
	// From is the source unit token the factor applies to.
	From string `json:"from" yaml:"from"`

	// To is the target unit token the factor produces.
	To string `json:"to" yaml:"to"`

	// Factor multiplies a From amount into a To amount.
	Factor float64 `json:"factor" yaml:"factor"`
}

// IngredientStrength describes the strength of one active ingredient of
// a medication. Exactly one of StrengthQuantity or StrengthRatio is
// normally set; when both are present the direct quantity wins.
type IngredientStrength struct {
	// Name is the ingredient name, e.g. "metformin hydrochloride".
	Name string `json:"name" yaml:"name"`

	// StrengthQuantity is the amount of ingredient per dispensing unit,
	// e.g. 500 mg per tablet.
	StrengthQuantity *Quantity `json:"strengthQuantity,omitempty" yaml:"strength,omitempty"`

	// StrengthRatio is the amount of ingredient per carrier amount,
	// e.g. 250 mg / 5 mL.
	StrengthRatio *StrengthRatio `json:"strengthRatio,omitempty" yaml:"ratio,omitempty"`
}

// MedicationStrength carries the strength data of the medication a
// conversion is performed for. Tablet and capsule factor resolution
// reads it.
type MedicationStrength struct {
	// Name is the medication display name.
	Name string `json:"name" yaml:"name"`

	// Ingredients lists the active ingredients with their strengths.
	// Factor resolution scans them in order and uses the first usable
	// entry.
	Ingredients []IngredientStrength `json:"ingredients,omitempty" yaml:"ingredients,omitempty"`
}

// ConversionContext carries the per-call data that resolves
// context-dependent device factors. All fields are optional; a nil
// context is valid for purely standard conversions.
type ConversionContext struct {
	// Medication supplies strength data for tablet and capsule
	// conversions.
	Medication *MedicationStrength `json:"medication,omitempty"`

	// LotNumber selects lot-specific factor overrides registered on a
	// device unit. Its presence also raises conversion confidence.
	LotNumber string `json:"lotNumber,omitempty"`

	// AirPrimeLoss overrides the registered air-prime loss of an
	// injection device, in device units wasted per priming. A nil value
	// keeps the registered loss; an explicit zero disables it.
	AirPrimeLoss *int `json:"airPrimeLoss,omitempty"`

	// CustomConversions lists caller-supplied factors that override all
	// other factor sources. Later entries do not shadow earlier ones;
	// the first match wins.
	CustomConversions []CustomConversion `json:"customConversions,omitempty"`

	// StrengthRatio enables the concentration path for conversions that
	// bridge mass and volume, e.g. mL to mg.
	StrengthRatio *StrengthRatio `json:"strengthRatio,omitempty"`
}

// CustomFactor returns the first custom conversion factor registered
// from one unit token to another, or false when none matches. A nil
// context never matches.
func (c *ConversionContext) CustomFactor(from, to string) (float64, bool) {
	if c == nil {
		return 0, false
	}
	for _, cc := range c.CustomConversions {
		if cc.From == from && cc.To == to {
			return cc.Factor, true
		}
	}
	return 0, false
}

// Snapshot summarizes which context fields are populated. Missing
// context errors attach it so callers can see what was available when
// resolution failed.
func (c *ConversionContext) Snapshot() map[string]any {
	snap := map[string]any{
		"medication":        false,
		"lotNumber":         "",
		"airPrimeLoss":      nil,
		"customConversions": 0,
		"strengthRatio":     false,
	}
	if c == nil {
		return snap
	}
	if c.Medication != nil {
		snap["medication"] = true
	}
	snap["lotNumber"] = c.LotNumber
	if c.AirPrimeLoss != nil {
		snap["airPrimeLoss"] = *c.AirPrimeLoss
	}
	snap["customConversions"] = len(c.CustomConversions)
	if c.StrengthRatio != nil {
		snap["strengthRatio"] = true
	}
	return snap
}

// Unit is a read-only description of a unit known to the engine,
// constructed on demand for validation and compatibility responses.
type Unit struct {
	// Code is the canonical unit token, e.g. "mg" or "{click}".
	Code string `json:"code"`

	// Display is the human-readable name, e.g. "milligram" or "click".
	Display string `json:"display"`

	// Custom reports whether the unit is a device unit rather than a
	// standard clinical unit.
	Custom bool `json:"custom"`

	// Dimension is the physical dimension of the unit: "mass",
	// "volume", "concentration", or "device".
	Dimension string `json:"dimension"`
}
