package devices

import (
	"fmt"

	"meridianrx/galen/pkg/dosing"
	dosingErrors "meridianrx/galen/pkg/dosing/errors"
	"meridianrx/galen/pkg/dosing/units"
)

// factor source labels used in step descriptions.
const (
	sourceCustom     = "caller-supplied factor"
	sourceStrength   = "medication strength"
	sourceLot        = "lot-specific factor"
	sourceRegistered = "registered device factor"
)

// resolution is a resolved device factor with its provenance.
type resolution struct {
	factor float64
	kind   dosing.StepKind
	source string
}

// Adapter converts between device units and standard units, resolving
// device factors from conversion context when the registry alone
// cannot.
type Adapter struct {
	registry  *Registry
	validator *units.Validator
}

// NewAdapter returns an adapter over a registry and a standard unit
// validator.
func NewAdapter(registry *Registry, validator *units.Validator) *Adapter {
	return &Adapter{registry: registry, validator: validator}
}

// Convert converts a value between any combination of device and
// standard units, returning the result and the steps that produced it.
func (a *Adapter) Convert(value float64, from, to string, ctx *dosing.ConversionContext) (float64, []dosing.Step, error) {
	fromUnit, fromIsDevice, err := a.lookupDevice(from)
	if err != nil {
		return 0, nil, err
	}
	toUnit, toIsDevice, err := a.lookupDevice(to)
	if err != nil {
		return 0, nil, err
	}

	switch {
	case fromIsDevice && toIsDevice:
		return a.convertDeviceToDevice(value, fromUnit, toUnit, ctx)
	case fromIsDevice:
		return a.convertFromDevice(value, fromUnit, to, ctx)
	case toIsDevice:
		return a.convertToDevice(value, from, toUnit, ctx)
	default:
		return a.convertStandard(value, from, to)
	}
}

// lookupDevice resolves a token against the registry when it has
// device syntax. Unregistered device tokens fail with suggestions
// drawn from the registered IDs.
func (a *Adapter) lookupDevice(token string) (Unit, bool, error) {
	if !units.IsDeviceToken(token) {
		return Unit{}, false, nil
	}
	u, ok := a.registry.Lookup(token)
	if !ok {
		return Unit{}, false, dosingErrors.NewInvalidUnit(token, "unknown device unit",
			dosingErrors.SuggestUnits(token, a.registry.IDs(), 3))
	}
	return u, true, nil
}

func (a *Adapter) convertStandard(value float64, from, to string) (float64, []dosing.Step, error) {
	factor, err := a.validator.Factor(from, to)
	if err != nil {
		return 0, nil, err
	}
	nFrom := a.validator.Normalize(from)
	nTo := a.validator.Normalize(to)
	result := value * factor
	f := factor
	step := dosing.Step{
		Description: fmt.Sprintf("Standard conversion from %s to %s", nFrom, nTo),
		From:        dosing.Quantity{Value: value, Unit: nFrom},
		To:          dosing.Quantity{Value: result, Unit: nTo},
		Factor:      &f,
		Kind:        dosing.StepStandard,
	}
	return result, []dosing.Step{step}, nil
}

func (a *Adapter) convertFromDevice(value float64, u Unit, to string, ctx *dosing.ConversionContext) (float64, []dosing.Step, error) {
	res, err := a.resolveFactor(u, ctx)
	if err != nil {
		return 0, nil, err
	}

	var steps []dosing.Step
	effective := value
	if loss := effectiveAirPrime(u, ctx); loss > 0 {
		adjusted := effective - float64(loss)
		if adjusted < 0 {
			adjusted = 0
		}
		steps = append(steps, dosing.Step{
			Description: fmt.Sprintf("Air-prime adjustment: %d %s lost to priming", loss, displayFor(u, loss)),
			From:        dosing.Quantity{Value: effective, Unit: u.ID},
			To:          dosing.Quantity{Value: adjusted, Unit: u.ID},
			Kind:        dosing.StepDevice,
		})
		effective = adjusted
	}

	base := effective * res.factor
	f := res.factor
	steps = append(steps, dosing.Step{
		Description: fmt.Sprintf("Convert %s to %s using %s", u.ID, u.RatioTo, res.source),
		From:        dosing.Quantity{Value: effective, Unit: u.ID},
		To:          dosing.Quantity{Value: base, Unit: u.RatioTo},
		Factor:      &f,
		Kind:        res.kind,
	})

	if a.validator.Normalize(to) == u.RatioTo {
		return base, steps, nil
	}
	result, tail, err := a.convertStandard(base, u.RatioTo, to)
	if err != nil {
		return 0, nil, err
	}
	return result, append(steps, tail...), nil
}

func (a *Adapter) convertToDevice(value float64, from string, u Unit, ctx *dosing.ConversionContext) (float64, []dosing.Step, error) {
	res, err := a.resolveFactor(u, ctx)
	if err != nil {
		return 0, nil, err
	}

	var steps []dosing.Step
	base := value
	if a.validator.Normalize(from) != u.RatioTo {
		converted, head, err := a.convertStandard(value, from, u.RatioTo)
		if err != nil {
			return 0, nil, err
		}
		base = converted
		steps = head
	}

	result := base / res.factor
	inverse := 1 / res.factor
	steps = append(steps, dosing.Step{
		Description: fmt.Sprintf("Convert %s to %s using %s", u.RatioTo, u.ID, res.source),
		From:        dosing.Quantity{Value: base, Unit: u.RatioTo},
		To:          dosing.Quantity{Value: result, Unit: u.ID},
		Factor:      &inverse,
		Kind:        res.kind,
	})
	// A priming loss on the target device is a warning, not an
	// adjustment: the converted value stands, the waste happens when
	// the device is next primed.
	if loss := effectiveAirPrime(u, ctx); loss > 0 {
		steps = append(steps, dosing.Step{
			Description: fmt.Sprintf("Air-prime warning: %d %s will be wasted on next priming", loss, displayFor(u, loss)),
			From:        dosing.Quantity{Value: result, Unit: u.ID},
			To:          dosing.Quantity{Value: result, Unit: u.ID},
			Kind:        dosing.StepDevice,
		})
	}
	return result, steps, nil
}

func (a *Adapter) convertDeviceToDevice(value float64, from, to Unit, ctx *dosing.ConversionContext) (float64, []dosing.Step, error) {
	if from.RatioTo == to.RatioTo {
		fromRes, err := a.resolveFactor(from, ctx)
		if err != nil {
			return 0, nil, err
		}
		toRes, err := a.resolveFactor(to, ctx)
		if err != nil {
			return 0, nil, err
		}
		combined := fromRes.factor / toRes.factor
		result := value * combined
		f := combined
		step := dosing.Step{
			Description: fmt.Sprintf("Convert %s to %s via shared base %s", from.ID, to.ID, from.RatioTo),
			From:        dosing.Quantity{Value: value, Unit: from.ID},
			To:          dosing.Quantity{Value: result, Unit: to.ID},
			Factor:      &f,
			Kind:        dosing.StepDevice,
		}
		return result, []dosing.Step{step}, nil
	}

	// Different bases: hop through the source base unit. The second
	// hop fails dimensionally unless the bases share a dimension.
	mid, head, err := a.convertFromDevice(value, from, from.RatioTo, ctx)
	if err != nil {
		return 0, nil, err
	}
	result, tail, err := a.convertToDevice(mid, from.RatioTo, to, ctx)
	if err != nil {
		return 0, nil, err
	}
	return result, append(head, tail...), nil
}

// resolveFactor finds the conversion factor for a device unit. The
// precedence is fixed: custom conversion, medication strength (tablets
// and capsules only), lot-specific factor, registered factor. When no
// source applies the failure names the context fields that would have
// resolved the unit.
func (a *Adapter) resolveFactor(u Unit, ctx *dosing.ConversionContext) (resolution, error) {
	if f, ok := ctx.CustomFactor(u.ID, u.RatioTo); ok {
		if f <= 0 {
			return resolution{}, dosingErrors.NewConversion("custom factor for %s must be positive, got %v", u.ID, f)
		}
		return resolution{factor: f, kind: dosing.StepCustom, source: sourceCustom}, nil
	}

	if u.ID == "{tablet}" || u.ID == "{capsule}" {
		if f, ok := a.strengthFactor(u, ctx); ok {
			return resolution{factor: f, kind: dosing.StepDevice, source: sourceStrength}, nil
		}
	}

	if ctx != nil && ctx.LotNumber != "" {
		if f, ok := u.LotFactors[ctx.LotNumber]; ok {
			return resolution{factor: f, kind: dosing.StepDevice, source: sourceLot}, nil
		}
	}

	if f, known := u.Factor.Known(); known {
		return resolution{factor: f, kind: dosing.StepDevice, source: sourceRegistered}, nil
	}

	return resolution{}, dosingErrors.NewMissingContext(
		fmt.Sprintf("device factor for %q", u.ID),
		requiredContextFor(u.ID),
		ctx.Snapshot(),
	)
}

// strengthFactor derives a tablet or capsule factor from medication
// strength data: the first ingredient with a direct strength quantity
// convertible to the device base, or a strength ratio whose
// denominator is exactly one of this device unit.
func (a *Adapter) strengthFactor(u Unit, ctx *dosing.ConversionContext) (float64, bool) {
	if ctx == nil || ctx.Medication == nil {
		return 0, false
	}
	for _, ing := range ctx.Medication.Ingredients {
		if q := ing.StrengthQuantity; q != nil {
			if f, err := a.validator.Convert(q.Value, q.Unit, u.RatioTo); err == nil && f > 0 {
				return f, true
			}
		}
		if r := ing.StrengthRatio; r != nil {
			if r.Denominator.Unit == u.ID && r.Denominator.Value == 1 {
				if f, err := a.validator.Convert(r.Numerator.Value, r.Numerator.Unit, u.RatioTo); err == nil && f > 0 {
					return f, true
				}
			}
		}
	}
	return 0, false
}

// effectiveAirPrime returns the air-prime loss for a conversion: the
// context override when present, otherwise the registered loss.
func effectiveAirPrime(u Unit, ctx *dosing.ConversionContext) int {
	if ctx != nil && ctx.AirPrimeLoss != nil {
		if *ctx.AirPrimeLoss < 0 {
			return 0
		}
		return *ctx.AirPrimeLoss
	}
	return u.AirPrimeLoss
}

// requiredContextFor names the context fields that resolve a device
// unit when no factor source applies.
func requiredContextFor(id string) []string {
	switch id {
	case "{tablet}", "{capsule}":
		return []string{"medication.strength"}
	case "{patch}":
		return []string{"medication.strength", "dose.duration"}
	case "{puff}", "{spray}":
		return []string{"dose.perActuation"}
	default:
		return []string{"conversion.factor"}
	}
}

// displayFor picks the singular or plural display for a count.
func displayFor(u Unit, n int) string {
	if n == 1 || u.PluralDisplay == "" {
		if u.Display != "" {
			return u.Display
		}
		return u.ID
	}
	return u.PluralDisplay
}
