package engine

import (
	"fmt"
	"math"
	"strings"

	"meridianrx/galen/pkg/dosing"
	"meridianrx/galen/pkg/dosing/confidence"
	dosingErrors "meridianrx/galen/pkg/dosing/errors"
	"meridianrx/galen/pkg/dosing/trace"
	"meridianrx/galen/pkg/dosing/units"
)

// Strict-mode precision checks only run on results inside this window;
// beyond it the rounding probe itself is meaningless in float64.
const (
	precisionWindowMin = 1e-10
	precisionWindowMax = 1e10
)

// Convert converts a value between two unit tokens. Context resolves
// device factors and concentration ratios; options tune tracing,
// strictness and limits for this request only.
func (c *Converter) Convert(value float64, from, to string, ctx *dosing.ConversionContext, opts *Options) (*dosing.Result, error) {
	resolved := opts.withDefaults()

	c.tracer.Begin("conversion", map[string]any{"from": from, "to": to, "value": value})
	res, err := c.convert(value, from, to, ctx, resolved)
	if err != nil {
		c.tracer.Event(trace.KindError, "conversion failed", err.Error(), errorFields(err))
		c.tracer.End("conversion", map[string]any{"ok": false})
		c.logger.Warn("conversion failed", "from", from, "to", to, "value", value, "error", err)
		return nil, err
	}
	c.tracer.End("conversion", map[string]any{"ok": true, "result": res.Value})
	c.logger.Debug("conversion completed",
		"from", from, "to", to, "value", value,
		"result", res.Value, "confidence", res.Confidence.Value)
	return res, nil
}

func (c *Converter) convert(value float64, from, to string, ctx *dosing.ConversionContext, opts Options) (*dosing.Result, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, dosingErrors.NewConversion("value must be finite, got %v", value)
	}

	if err := c.checkUnit(from); err != nil {
		return nil, err
	}
	if err := c.checkUnit(to); err != nil {
		return nil, err
	}

	var (
		result float64
		steps  []dosing.Step
		err    error
	)
	switch {
	case from == to:
		result, steps = c.convertIdentity(value, from)
	case c.concentrationPath(from, to, ctx):
		result, steps, err = c.convertConcentration(value, from, to, ctx)
	default:
		result, steps, err = c.adapter.Convert(value, from, to, ctx)
	}
	if err != nil {
		return nil, err
	}

	for _, step := range steps {
		c.tracer.Event(trace.KindStep, "step executed", step.Description, map[string]any{
			"kind": string(step.Kind),
			"from": step.From.Unit,
			"to":   step.To.Unit,
		})
		if step.Factor != nil && step.Kind != dosing.StepStandard {
			c.tracer.Event(trace.KindFactorResolution, "factor resolved", step.Description,
				map[string]any{"factor": *step.Factor})
		}
	}

	if len(steps) > opts.MaxSteps {
		return nil, dosingErrors.NewConversion("conversion from %s to %s took %d steps, exceeding the limit of %d",
			from, to, len(steps), opts.MaxSteps)
	}

	score := c.scorer.Calculate(steps, c.scoreFlags(value, ctx, steps))
	c.tracer.Event(trace.KindConfidence, "confidence computed", "", map[string]any{
		"score": score.Value,
		"level": string(score.Level),
	})

	if opts.Strict {
		if err := c.checkPrecision(result, from, to, opts.Tolerance); err != nil {
			return nil, err
		}
	}

	full := &dosing.Result{
		Value:         result,
		OriginalValue: value,
		FromUnit:      from,
		ToUnit:        to,
		Steps:         steps,
		Confidence:    score,
	}
	c.lastResult = full

	if !*opts.Trace {
		trimmed := *full
		trimmed.Steps = nil
		return &trimmed, nil
	}
	return full, nil
}

// checkUnit rejects tokens neither tier can resolve, before any
// conversion work happens.
func (c *Converter) checkUnit(unit string) error {
	token := strings.TrimSpace(unit)
	if units.IsDeviceToken(token) {
		if _, ok := c.registry.Lookup(token); !ok {
			err := dosingErrors.NewInvalidUnit(unit, "unknown device unit",
				dosingErrors.SuggestUnits(token, c.registry.IDs(), 3))
			c.tracer.Event(trace.KindValidation, "validate unit", unit, map[string]any{"valid": false})
			return err
		}
		c.tracer.Event(trace.KindValidation, "validate unit", unit, map[string]any{"valid": true, "type": "device"})
		return nil
	}

	v := c.validator.Validate(unit)
	if !v.Valid {
		c.tracer.Event(trace.KindValidation, "validate unit", unit, map[string]any{"valid": false})
		detail := v.Detail
		if detail == "" {
			detail = "unknown unit"
		}
		return dosingErrors.NewInvalidUnit(unit, detail, v.Suggestions)
	}
	c.tracer.Event(trace.KindValidation, "validate unit", unit, map[string]any{"valid": true, "type": "standard"})
	return nil
}

// convertIdentity handles from == to: the value passes through
// untouched, recorded as a single standard step so scoring stays
// uniform across paths.
func (c *Converter) convertIdentity(value float64, unit string) (float64, []dosing.Step) {
	one := 1.0
	step := dosing.Step{
		Description: fmt.Sprintf("Identity conversion; %s requires no change", unit),
		From:        dosing.Quantity{Value: value, Unit: unit},
		To:          dosing.Quantity{Value: value, Unit: unit},
		Factor:      &one,
		Kind:        dosing.StepStandard,
	}
	return value, []dosing.Step{step}
}

// concentrationPath reports whether a request must bridge mass and
// volume through the context strength ratio.
func (c *Converter) concentrationPath(from, to string, ctx *dosing.ConversionContext) bool {
	if ctx == nil || ctx.StrengthRatio == nil {
		return false
	}
	fromDim, ok := c.effectiveDimension(from)
	if !ok {
		return false
	}
	toDim, ok := c.effectiveDimension(to)
	if !ok {
		return false
	}
	return (fromDim == units.DimensionMass && toDim == units.DimensionVolume) ||
		(fromDim == units.DimensionVolume && toDim == units.DimensionMass)
}

// scoreFlags derives the confidence flags for a completed conversion.
// DefaultsUsed is a heuristic: any device-kind step whose unit pair
// has no explicit custom conversion means a factor came from registry
// or lot data rather than the caller.
func (c *Converter) scoreFlags(value float64, ctx *dosing.ConversionContext, steps []dosing.Step) confidence.Flags {
	flags := confidence.Flags{
		LotDataPresent:   ctx != nil && ctx.LotNumber != "",
		RequestMagnitude: math.Abs(value),
	}
	for _, step := range steps {
		if step.Kind != dosing.StepDevice {
			continue
		}
		if _, ok := ctx.CustomFactor(step.From.Unit, step.To.Unit); !ok {
			flags.DefaultsUsed = true
		}
	}
	return flags
}

// checkPrecision enforces strict mode: the result must survive
// rounding to the tolerance's decimal places within the tolerance
// itself. Results outside the checkable window pass unchecked.
func (c *Converter) checkPrecision(result float64, from, to string, tolerance float64) error {
	abs := math.Abs(result)
	if abs < precisionWindowMin || abs > precisionWindowMax {
		return nil
	}

	decimals := int(math.Round(-math.Log10(tolerance)))
	if decimals < 0 {
		decimals = 0
	}
	if decimals > 15 {
		decimals = 15
	}
	scale := math.Pow(10, float64(decimals))
	rounded := math.Round(result*scale) / scale

	relative := math.Abs(result-rounded) / abs
	if relative > tolerance {
		return dosingErrors.NewPrecisionLoss(result, from, to, tolerance, relative)
	}
	return nil
}

// errorFields extracts structured log fields from taxonomy errors.
func errorFields(err error) map[string]any {
	if ee, ok := err.(dosingErrors.EngineError); ok {
		return ee.LogFields()
	}
	return map[string]any{"error": err.Error()}
}
