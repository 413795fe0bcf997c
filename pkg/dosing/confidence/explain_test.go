package confidence

import (
	"strings"
	"testing"

	"meridianrx/galen/pkg/dosing"
)

func TestExplain(t *testing.T) {
	s := NewScorer()

	steps := []dosing.Step{
		{
			Description: "Convert {click} to mL using registered device factor",
			From:        dosing.Quantity{Value: 4, Unit: "{click}"},
			To:          dosing.Quantity{Value: 1, Unit: "mL"},
			Factor:      floatPtr(0.25),
			Kind:        dosing.StepDevice,
		},
	}
	flags := normalFlags()
	flags.DefaultsUsed = true
	score := s.Calculate(steps, flags)

	res := &dosing.Result{
		Value:         1,
		OriginalValue: 4,
		FromUnit:      "{click}",
		ToUnit:        "mL",
		Steps:         steps,
		Confidence:    score,
	}

	report := s.Explain(res)

	for _, want := range []string{
		"Conversion Confidence Report",
		"Request: 4 {click} -> mL",
		"Result:  1 mL",
		"Steps (1):",
		"[device] Convert {click} to mL using registered device factor",
		"(factor 0.25)",
		"Base score: 0.95 (1 step)",
		"-0.10  " + reasonDefaultsUsed,
		"-0.05  1 device conversion step",
		"Final score: 0.80 (medium)",
		"Factor breakdown:",
		levelInterpretations[dosing.ConfidenceMedium],
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report should contain %q:\n%s", want, report)
		}
	}
}

func TestExplainDeterministic(t *testing.T) {
	s := NewScorer()
	steps := standardSteps(2)
	res := &dosing.Result{
		Value:         1,
		OriginalValue: 1000,
		FromUnit:      "mg",
		ToUnit:        "g",
		Steps:         steps,
		Confidence:    s.Calculate(steps, normalFlags()),
	}

	first := s.Explain(res)
	for i := 0; i < 20; i++ {
		if s.Explain(res) != first {
			t.Fatal("report should be byte-identical across calls")
		}
	}
}

func TestExplainNoResult(t *testing.T) {
	s := NewScorer()
	if got := s.Explain(nil); got != NoResultMessage {
		t.Errorf("nil result should explain as %q, got %q", NoResultMessage, got)
	}
	if got := s.Explain(&dosing.Result{}); got != NoResultMessage {
		t.Errorf("result without confidence should explain as %q, got %q", NoResultMessage, got)
	}
}

func TestExplainWithoutSteps(t *testing.T) {
	s := NewScorer()
	res := &dosing.Result{
		Value:         1,
		OriginalValue: 1000,
		FromUnit:      "mg",
		ToUnit:        "g",
		Confidence:    s.Calculate(standardSteps(1), normalFlags()),
	}

	report := s.Explain(res)
	if !strings.Contains(report, "tracing disabled") {
		t.Errorf("step-less result should note missing steps:\n%s", report)
	}
}
