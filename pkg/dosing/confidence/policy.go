package confidence

// Base scores keyed to conversion step count. More hops mean more
// places for factor quality to degrade.
const (
	baseNoSteps    = 1.00
	baseOneStep    = 0.95
	baseTwoSteps   = 0.85
	baseThreeSteps = 0.70
	baseManySteps  = 0.50
)

// Signed adjustments applied on top of the base score.
const (
	adjLotData         = 0.10
	adjExactArithmetic = 0.05
	adjAllStandard     = 0.05
	adjDefaultsUsed    = -0.10
	adjApproximations  = -0.15
	adjMissingContext  = -0.20

	adjPerDeviceStep        = -0.05
	adjPerConcentrationStep = -0.03
	adjPerCustomStep        = -0.10

	adjPrecisionRisk = -0.05
)

// Precision heuristic bounds: request magnitudes or step factors
// outside these ranges flag the conversion as precision-risky.
const (
	magnitudeFloor = 1e-6
	magnitudeCeil  = 1e15
	factorFloor    = 1e-6
	factorCeil     = 1e6
)

// rationaleCutoff is the minimum adjustment magnitude worth naming in
// the rationale.
const rationaleCutoff = 0.05

// Fixed adjustment reasons. These strings are part of the score's
// public surface; tests and downstream consumers match on them.
const (
	reasonLotData         = "lot-specific data available"
	reasonExactArithmetic = "exact arithmetic preserved"
	reasonAllStandard     = "all steps use standard conversions"
	reasonDefaultsUsed    = "default device factors in use"
	reasonApproximations  = "approximations applied"
	reasonMissingContext  = "conversion proceeded without full context"
	reasonPrecisionRisk   = "extreme magnitudes risk precision loss"
)

// baseForStepCount returns the base score for a conversion of the
// given step count.
func baseForStepCount(steps int) float64 {
	switch {
	case steps == 0:
		return baseNoSteps
	case steps == 1:
		return baseOneStep
	case steps == 2:
		return baseTwoSteps
	case steps == 3:
		return baseThreeSteps
	default:
		return baseManySteps
	}
}
