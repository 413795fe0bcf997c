package engine

import (
	"fmt"
	"strconv"

	"meridianrx/galen/pkg/dosing"
	dosingErrors "meridianrx/galen/pkg/dosing/errors"
	"meridianrx/galen/pkg/dosing/units"
)

// convertConcentration bridges mass and volume through the context
// strength ratio. The path is at most three hops, all recorded as
// concentration steps: normalize the input onto the matching ratio
// side, apply the ratio, normalize onto the requested target. Hops
// that pass through device units delegate to the adapter and collapse
// its sub-steps into one concentration step with the net factor.
func (c *Converter) convertConcentration(value float64, from, to string, ctx *dosing.ConversionContext) (float64, []dosing.Step, error) {
	ratio := ctx.StrengthRatio

	numDim, ok := c.validator.DimensionOf(ratio.Numerator.Unit)
	if !ok {
		return 0, nil, dosingErrors.NewConversion("strength ratio numerator unit %q is not a standard unit", ratio.Numerator.Unit)
	}
	denDim, ok := c.validator.DimensionOf(ratio.Denominator.Unit)
	if !ok {
		return 0, nil, dosingErrors.NewConversion("strength ratio denominator unit %q is not a standard unit", ratio.Denominator.Unit)
	}
	if !straddlesMassVolume(numDim, denDim) {
		return 0, nil, dosingErrors.NewImpossibleConversion(from, to,
			fmt.Sprintf("strength ratio %s/%s must relate a mass to a volume",
				ratio.Numerator.Unit, ratio.Denominator.Unit))
	}
	if ratio.Numerator.Value <= 0 || ratio.Denominator.Value <= 0 {
		return 0, nil, dosingErrors.NewConversion("strength ratio amounts must be positive, got %v/%v",
			ratio.Numerator.Value, ratio.Denominator.Value)
	}

	// The ratio side sharing the input's dimension is the entry side;
	// the other side is the exit.
	fromDim, ok := c.effectiveDimension(from)
	if !ok {
		return 0, nil, dosingErrors.NewConversion("cannot determine dimension of %q", from)
	}
	entry, exit := ratio.Numerator, ratio.Denominator
	if fromDim == denDim {
		entry, exit = ratio.Denominator, ratio.Numerator
	}

	var steps []dosing.Step
	current := value

	// Hop 1: input unit onto the entry side of the ratio.
	if !c.sameUnit(from, entry.Unit) {
		converted, sub, err := c.adapter.Convert(current, from, entry.Unit, ctx)
		if err != nil {
			return 0, nil, err
		}
		steps = append(steps, c.concentrationHop(
			fmt.Sprintf("Normalize %s to ratio unit %s", c.displayToken(from), entry.Unit),
			current, from, converted, entry.Unit, sub))
		current = converted
	}

	// Hop 2: apply the ratio.
	factor := exit.Value / entry.Value
	applied := current * factor
	f := factor
	steps = append(steps, dosing.Step{
		Description: fmt.Sprintf("Apply strength ratio %s %s / %s %s",
			formatAmount(ratio.Numerator.Value), ratio.Numerator.Unit,
			formatAmount(ratio.Denominator.Value), ratio.Denominator.Unit),
		From:   dosing.Quantity{Value: current, Unit: entry.Unit},
		To:     dosing.Quantity{Value: applied, Unit: exit.Unit},
		Factor: &f,
		Kind:   dosing.StepConcentration,
	})
	current = applied

	// Hop 3: exit side onto the requested target.
	if !c.sameUnit(to, exit.Unit) {
		converted, sub, err := c.adapter.Convert(current, exit.Unit, to, ctx)
		if err != nil {
			return 0, nil, err
		}
		steps = append(steps, c.concentrationHop(
			fmt.Sprintf("Convert ratio unit %s to %s", exit.Unit, c.displayToken(to)),
			current, exit.Unit, converted, to, sub))
		current = converted
	}

	return current, steps, nil
}

// concentrationHop collapses an adapter conversion into a single
// concentration step. The net factor is recorded only when the hop was
// a pure multiplication.
func (c *Converter) concentrationHop(description string, in float64, fromUnit string, out float64, toUnit string, sub []dosing.Step) dosing.Step {
	step := dosing.Step{
		Description: description,
		From:        dosing.Quantity{Value: in, Unit: c.displayToken(fromUnit)},
		To:          dosing.Quantity{Value: out, Unit: c.displayToken(toUnit)},
		Kind:        dosing.StepConcentration,
	}
	if in != 0 && pureMultiplication(sub) {
		f := out / in
		step.Factor = &f
	}
	return step
}

// pureMultiplication reports whether every sub-step applied a factor;
// air-prime adjustments do not, and make the net quotient
// value-dependent.
func pureMultiplication(steps []dosing.Step) bool {
	for _, s := range steps {
		if s.Factor == nil {
			return false
		}
	}
	return true
}

func straddlesMassVolume(a, b units.Dimension) bool {
	return (a == units.DimensionMass && b == units.DimensionVolume) ||
		(a == units.DimensionVolume && b == units.DimensionMass)
}

// sameUnit compares unit tokens after normalization. Device tokens
// compare verbatim.
func (c *Converter) sameUnit(a, b string) bool {
	return c.displayToken(a) == c.displayToken(b)
}

// displayToken normalizes standard tokens and passes device tokens
// through.
func (c *Converter) displayToken(unit string) string {
	if units.IsDeviceToken(unit) {
		return unit
	}
	return c.validator.Normalize(unit)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
