package confidence

import (
	"fmt"
	"math"
	"sort"

	"meridianrx/galen/pkg/dosing"
)

// Flags carries the conversion-level facts the scorer cannot read off
// the steps themselves.
type Flags struct {
	// LotDataPresent reports that the caller supplied a lot number,
	// which makes device factors more trustworthy.
	LotDataPresent bool

	// DefaultsUsed reports that at least one device factor came from
	// registry defaults rather than explicit caller data.
	DefaultsUsed bool

	// MissingContext reports that the conversion proceeded despite
	// incomplete context.
	MissingContext bool

	// ApproximationsUsed reports that a factor was approximated rather
	// than exact.
	ApproximationsUsed bool

	// ExactArithmetic reports that the conversion stayed within exact
	// arithmetic end to end.
	ExactArithmetic bool

	// RequestMagnitude is the absolute value of the requested amount,
	// checked by the precision heuristic.
	RequestMagnitude float64
}

// Scorer computes conversion confidence scores. It is stateless and
// safe for concurrent use.
type Scorer struct{}

// NewScorer returns a Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Calculate scores a conversion from its executed steps and flags. The
// result is fully deterministic: equal inputs produce an identical
// Score, byte for byte.
func (s *Scorer) Calculate(steps []dosing.Step, flags Flags) *dosing.Score {
	base := baseForStepCount(len(steps))

	var deviceSteps, concentrationSteps, customSteps int
	allStandard := len(steps) > 0
	for _, step := range steps {
		switch step.Kind {
		case dosing.StepDevice:
			deviceSteps++
		case dosing.StepConcentration:
			concentrationSteps++
		case dosing.StepCustom:
			customSteps++
		}
		if step.Kind != dosing.StepStandard {
			allStandard = false
		}
	}

	var adjustments []dosing.Adjustment
	add := func(reason string, delta float64, category dosing.AdjustmentCategory) {
		adjustments = append(adjustments, dosing.Adjustment{Reason: reason, Delta: delta, Category: category})
	}

	if flags.LotDataPresent {
		add(reasonLotData, adjLotData, dosing.CategoryDataCompleteness)
	}
	if flags.ExactArithmetic {
		add(reasonExactArithmetic, adjExactArithmetic, dosing.CategoryPrecision)
	}
	if allStandard {
		add(reasonAllStandard, adjAllStandard, dosing.CategoryComplexity)
	}
	if flags.DefaultsUsed {
		add(reasonDefaultsUsed, adjDefaultsUsed, dosing.CategoryDataCompleteness)
	}
	if flags.ApproximationsUsed {
		add(reasonApproximations, adjApproximations, dosing.CategoryPrecision)
	}
	if flags.MissingContext {
		add(reasonMissingContext, adjMissingContext, dosing.CategoryDataCompleteness)
	}
	if deviceSteps > 0 {
		add(countReason(deviceSteps, "device conversion step"),
			float64(deviceSteps)*adjPerDeviceStep, dosing.CategoryComplexity)
	}
	if concentrationSteps > 0 {
		add(countReason(concentrationSteps, "concentration step"),
			float64(concentrationSteps)*adjPerConcentrationStep, dosing.CategoryComplexity)
	}
	if customSteps > 0 {
		add(countReason(customSteps, "custom-factor step"),
			float64(customSteps)*adjPerCustomStep, dosing.CategoryComplexity)
	}
	if precisionRisk(steps, flags) {
		add(reasonPrecisionRisk, adjPrecisionRisk, dosing.CategoryPrecision)
	}

	value := base
	categoryTotals := map[dosing.AdjustmentCategory]float64{}
	for _, a := range adjustments {
		value += a.Delta
		categoryTotals[a.Category] += a.Delta
	}
	value = clamp01(value)

	return &dosing.Score{
		Value: value,
		Level: dosing.LevelOf(value),
		Factors: dosing.FactorBreakdown{
			Complexity:       clamp01(base + categoryTotals[dosing.CategoryComplexity]),
			DataCompleteness: clamp01(base + categoryTotals[dosing.CategoryDataCompleteness]),
			Precision:        clamp01(base + categoryTotals[dosing.CategoryPrecision]),
		},
		Rationale:   buildRationale(len(steps), adjustments),
		Adjustments: adjustments,
	}
}

// precisionRisk reports whether the request magnitude or any applied
// factor sits outside the ranges float64 handles comfortably.
func precisionRisk(steps []dosing.Step, flags Flags) bool {
	magnitude := math.Abs(flags.RequestMagnitude)
	if magnitude < magnitudeFloor || magnitude > magnitudeCeil {
		return true
	}
	for _, step := range steps {
		if step.Factor == nil {
			continue
		}
		f := math.Abs(*step.Factor)
		if f < factorFloor || f > factorCeil {
			return true
		}
	}
	return false
}

// buildRationale assembles the step-count summary followed by every
// adjustment reason at or above the reporting cutoff, largest
// magnitude first. Ties keep policy order, so output is stable.
func buildRationale(stepCount int, adjustments []dosing.Adjustment) []string {
	rationale := []string{stepCountSentence(stepCount)}

	reported := make([]dosing.Adjustment, 0, len(adjustments))
	for _, a := range adjustments {
		if math.Abs(a.Delta) >= rationaleCutoff {
			reported = append(reported, a)
		}
	}
	sort.SliceStable(reported, func(i, j int) bool {
		return math.Abs(reported[i].Delta) > math.Abs(reported[j].Delta)
	})
	for _, a := range reported {
		rationale = append(rationale, fmt.Sprintf("%s (%+.2f)", a.Reason, a.Delta))
	}
	return rationale
}

func stepCountSentence(n int) string {
	switch n {
	case 0:
		return "No conversion steps were required."
	case 1:
		return "Conversion required 1 step."
	default:
		return fmt.Sprintf("Conversion required %d steps.", n)
	}
}

func countReason(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
