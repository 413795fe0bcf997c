package confidence

import (
	"fmt"
	"strconv"
	"strings"

	"meridianrx/galen/pkg/dosing"
)

// NoResultMessage is what Explain returns when there is nothing to
// explain yet.
const NoResultMessage = "No conversion has been performed yet."

// levelInterpretations maps confidence levels to the closing guidance
// sentence of the report.
var levelInterpretations = map[dosing.ConfidenceLevel]string{
	dosing.ConfidenceHigh:    "This conversion uses well-established factors and can be used with high confidence.",
	dosing.ConfidenceMedium:  "This conversion is reliable but involves device-specific or derived factors; verify against the medication label.",
	dosing.ConfidenceLow:     "This conversion relies on defaults or multiple derived hops; confirm with a pharmacist before use.",
	dosing.ConfidenceVeryLow: "This conversion could not be established reliably; do not use without manual verification.",
}

// Explain renders a human-readable confidence report for a conversion
// result. The report is deterministic for a given result.
func (s *Scorer) Explain(res *dosing.Result) string {
	if res == nil || res.Confidence == nil {
		return NoResultMessage
	}
	score := res.Confidence

	var b strings.Builder
	b.WriteString("Conversion Confidence Report\n")
	b.WriteString("============================\n\n")

	fmt.Fprintf(&b, "Request: %s %s -> %s\n", formatAmount(res.OriginalValue), res.FromUnit, res.ToUnit)
	fmt.Fprintf(&b, "Result:  %s %s\n\n", formatAmount(res.Value), res.ToUnit)

	if len(res.Steps) > 0 {
		fmt.Fprintf(&b, "Steps (%d):\n", len(res.Steps))
		for i, step := range res.Steps {
			fmt.Fprintf(&b, "  %d. [%s] %s\n", i+1, step.Kind, step.Description)
			line := fmt.Sprintf("     %s %s -> %s %s",
				formatAmount(step.From.Value), step.From.Unit,
				formatAmount(step.To.Value), step.To.Unit)
			if step.Factor != nil {
				line += fmt.Sprintf(" (factor %s)", formatAmount(*step.Factor))
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	} else {
		b.WriteString("Steps: not recorded (tracing disabled for this request)\n\n")
	}

	fmt.Fprintf(&b, "Base score: %.2f (%s)\n", baseForStepCount(len(res.Steps)), stepCountPhrase(len(res.Steps)))
	if len(score.Adjustments) > 0 {
		b.WriteString("Adjustments:\n")
		for _, a := range score.Adjustments {
			fmt.Fprintf(&b, "  %+.2f  %s\n", a.Delta, a.Reason)
		}
	} else {
		b.WriteString("Adjustments: none\n")
	}
	fmt.Fprintf(&b, "Final score: %.2f (%s)\n\n", score.Value, score.Level)

	fmt.Fprintf(&b, "Factor breakdown: complexity %.2f, data completeness %.2f, precision %.2f\n\n",
		score.Factors.Complexity, score.Factors.DataCompleteness, score.Factors.Precision)

	b.WriteString(levelInterpretations[score.Level] + "\n")
	return b.String()
}

func stepCountPhrase(n int) string {
	switch n {
	case 0:
		return "no steps"
	case 1:
		return "1 step"
	default:
		return fmt.Sprintf("%d steps", n)
	}
}

// formatAmount renders a quantity without trailing float noise.
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
