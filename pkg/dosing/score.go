package dosing

// ConfidenceLevel buckets a confidence score for display and policy
// decisions.
type ConfidenceLevel string

const (
	// ConfidenceHigh covers scores of 0.9 and above. Safe to surface
	// without qualification.
	ConfidenceHigh ConfidenceLevel = "high"

	// ConfidenceMedium covers scores from 0.7 up to 0.9.
	ConfidenceMedium ConfidenceLevel = "medium"

	// ConfidenceLow covers scores from 0.5 up to 0.7.
	ConfidenceLow ConfidenceLevel = "low"

	// ConfidenceVeryLow covers scores below 0.5. Results at this level
	// need manual verification.
	ConfidenceVeryLow ConfidenceLevel = "very_low"
)

// AdjustmentCategory groups confidence adjustments for the per-category
// factor breakdown.
type AdjustmentCategory string

const (
	// CategoryComplexity covers adjustments driven by how many and what
	// kind of steps the conversion took.
	CategoryComplexity AdjustmentCategory = "complexity"

	// CategoryDataCompleteness covers adjustments driven by how much of
	// the required context was actually supplied.
	CategoryDataCompleteness AdjustmentCategory = "data_completeness"

	// CategoryPrecision covers adjustments driven by numeric precision
	// risk.
	CategoryPrecision AdjustmentCategory = "precision"
)

// Adjustment is one signed contribution to a confidence score.
type Adjustment struct {
	// Reason is a short human-readable cause, e.g. "lot-specific data
	// available".
	Reason string `json:"reason"`

	// Delta is the signed amount added to the base score.
	Delta float64 `json:"delta"`

	// Category assigns the adjustment to a factor breakdown bucket.
	Category AdjustmentCategory `json:"category"`
}

// FactorBreakdown reports the confidence score recomputed per
// adjustment category, each independently clamped to [0,1].
type FactorBreakdown struct {
	// Complexity reflects step count and step kinds only.
	Complexity float64 `json:"complexity"`

	// DataCompleteness reflects supplied versus defaulted context only.
	DataCompleteness float64 `json:"dataCompleteness"`

	// Precision reflects numeric precision risk only.
	Precision float64 `json:"precision"`
}

// Score is a deterministic confidence estimate for a conversion result.
// Equal inputs always produce an identical Score.
type Score struct {
	// Value is the final score clamped to [0,1].
	Value float64 `json:"value"`

	// Level buckets Value for display.
	Level ConfidenceLevel `json:"level"`

	// Rationale lists the step-count summary followed by every
	// adjustment reason whose magnitude reached the reporting cutoff,
	// ordered by descending magnitude.
	Rationale []string `json:"rationale"`

	// Factors breaks the score down by adjustment category.
	Factors FactorBreakdown `json:"factors"`

	// Adjustments is the full list of signed contributions that
	// produced Value, including those below the rationale cutoff.
	Adjustments []Adjustment `json:"adjustments"`
}

// LevelOf maps a clamped score value to its display level.
func LevelOf(value float64) ConfidenceLevel {
	switch {
	case value >= 0.9:
		return ConfidenceHigh
	case value >= 0.7:
		return ConfidenceMedium
	case value >= 0.5:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}
