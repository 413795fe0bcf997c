package guardrails

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"meridianrx/galen/pkg/dosing"
	"meridianrx/galen/pkg/dosing/engine"
	dosingErrors "meridianrx/galen/pkg/dosing/errors"
	"meridianrx/galen/pkg/dosing/units"
)

// Check is one dose to evaluate against the loaded rule sets. It
// describes the administration, not the arithmetic: the dose is the
// output of a conversion, already in its final unit.
type Check struct {
	// Medication is the medication name or formulary ID.
	Medication string `json:"medication,omitempty"`

	// Route is the administration route ("oral", "topical", ...).
	Route string `json:"route,omitempty"`

	// Form is the dose form ("tablet", "solution", ...).
	Form string `json:"form,omitempty"`

	// Lot is the manufacturing lot being dispensed.
	Lot string `json:"lot,omitempty"`

	// Dose is the converted dose being checked.
	Dose dosing.Quantity `json:"dose"`

	// DosesPerDay is the administration frequency. Zero means
	// unknown, which leaves daily limits unenforced.
	DosesPerDay float64 `json:"dosesPerDay,omitempty"`

	// Confidence is the conversion's confidence score. Rules with a
	// min_confidence threshold treat a zero here as reported, so
	// callers must pass the real score when such rules are in scope.
	Confidence float64 `json:"confidence,omitempty"`

	// Context carries the conversion context so thresholds declared
	// in a different unit than the dose can be normalized.
	Context *dosing.ConversionContext `json:"context,omitempty"`
}

// DoseConverter normalizes dose quantities between units when a rule
// threshold is declared in a different unit than the dose being
// checked. *engine.Converter satisfies it.
//
// Converters retain per-call state for Explain, so callers that
// surface conversion traces should hand the evaluator its own
// Converter instance rather than share one.
type DoseConverter interface {
	Convert(value float64, from, to string, ctx *dosing.ConversionContext, opts *engine.Options) (*dosing.Result, error)
}

// Evaluator holds the active rule sets and evaluates checks against
// them. Rule sets are swapped atomically, so evaluation and hot
// reload can run concurrently.
type Evaluator struct {
	mu   sync.RWMutex
	sets []*RuleSet

	conv   DoseConverter
	units  *units.Validator
	logger *slog.Logger
}

// NewEvaluator creates an evaluator. A nil converter gets a private
// engine with the default device registry; a nil logger uses
// slog.Default().
func NewEvaluator(conv DoseConverter, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	if conv == nil {
		conv = engine.New(&engine.Config{Logger: logger})
	}
	return &Evaluator{
		conv:   conv,
		units:  units.NewValidator(),
		logger: logger.With("component", "guardrails"),
	}
}

// SetRuleSets replaces the active rule sets.
func (e *Evaluator) SetRuleSets(sets ...*RuleSet) {
	e.mu.Lock()
	e.sets = append([]*RuleSet(nil), sets...)
	e.mu.Unlock()

	rules := 0
	for _, s := range sets {
		rules += s.RuleCount()
	}
	e.logger.Info("guardrail rules loaded", "rule_sets", len(sets), "rules", rules)
}

// RuleSets returns the active rule sets.
func (e *Evaluator) RuleSets() []*RuleSet {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]*RuleSet(nil), e.sets...)
}

// boundRule pairs a rule with the set that declared it.
type boundRule struct {
	set  *RuleSet
	rule *Rule
}

// Evaluate checks one dose against every enabled rule and returns the
// verdict. All firing rules contribute findings; the decision is the
// worst severity among them. An error is returned only for unusable
// input, never for a rule firing.
func (e *Evaluator) Evaluate(check *Check) (*Verdict, error) {
	if check == nil {
		return nil, fmt.Errorf("guardrails: check cannot be nil")
	}
	if math.IsNaN(check.Dose.Value) || math.IsInf(check.Dose.Value, 0) {
		return nil, fmt.Errorf("guardrails: dose value %v is not a finite number", check.Dose.Value)
	}
	if strings.TrimSpace(check.Dose.Unit) == "" {
		return nil, fmt.Errorf("guardrails: dose has no unit")
	}

	rules := e.snapshot()
	verdict := &Verdict{Decision: DecisionAllow, Evaluated: len(rules)}

	for _, br := range rules {
		if !e.matches(br.rule.Match, check) {
			continue
		}
		e.logger.Debug("guardrail rule matched",
			"rule", br.rule.Name,
			"rule_set", br.set.Name,
			"medication", check.Medication,
		)
		for _, f := range e.checkRule(br, check) {
			verdict.Findings = append(verdict.Findings, f)
			verdict.Decision = verdict.Decision.worse(f.Severity.decision())
		}
	}

	if verdict.Decision == DecisionAllow {
		e.logger.Debug("guardrail check passed",
			"medication", check.Medication,
			"rules_evaluated", verdict.Evaluated,
		)
	} else {
		e.logger.Info("guardrail verdict",
			"decision", string(verdict.Decision),
			"findings", len(verdict.Findings),
			"medication", check.Medication,
			"dose", check.Dose.Value,
			"unit", check.Dose.Unit,
		)
	}

	return verdict, nil
}

// snapshot collects the enabled rules across all sets, ordered by
// priority with file order breaking ties.
func (e *Evaluator) snapshot() []boundRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var rules []boundRule
	for _, set := range e.sets {
		for _, rule := range set.EnabledRules() {
			rules = append(rules, boundRule{set: set, rule: rule})
		}
	}
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].rule.Priority < rules[j].rule.Priority
	})
	return rules
}

// matches reports whether a condition applies to the check. A nil
// condition matches everything.
func (e *Evaluator) matches(m *Condition, check *Check) bool {
	if m == nil {
		return true
	}
	if m.Medication != "" && !strings.EqualFold(m.Medication, check.Medication) {
		return false
	}
	if len(m.Medications) > 0 && !containsFold(m.Medications, check.Medication) {
		return false
	}
	if m.Route != "" && !strings.EqualFold(m.Route, check.Route) {
		return false
	}
	if m.Form != "" && !strings.EqualFold(m.Form, check.Form) {
		return false
	}
	if m.Lot != "" && !strings.EqualFold(m.Lot, check.Lot) {
		return false
	}
	if m.Unit != "" && !e.sameUnit(m.Unit, check.Dose.Unit) {
		return false
	}
	return true
}

// checkRule applies one matched rule and returns its findings.
func (e *Evaluator) checkRule(br boundRule, check *Check) []Finding {
	rule := br.rule
	if rule.Unconditional() {
		return []Finding{e.finding(br, rule.Description, nil, nil)}
	}

	var out []Finding
	lim := rule.Limit

	if lim.MaxSingle != nil {
		if obs, ok := e.normalize(br, check, lim.MaxSingle, &out); ok && exceeds(obs, lim.MaxSingle.Value) {
			reason := fmt.Sprintf("single dose %s exceeds the limit of %s",
				e.describeDose(check, obs, lim.MaxSingle.Unit), formatQuantity(*lim.MaxSingle))
			out = append(out, e.finding(br, reason,
				&dosing.Quantity{Value: obs, Unit: lim.MaxSingle.Unit}, lim.MaxSingle))
		}
	}

	if lim.MinSingle != nil {
		if obs, ok := e.normalize(br, check, lim.MinSingle, &out); ok && exceeds(lim.MinSingle.Value, obs) {
			reason := fmt.Sprintf("single dose %s is below the minimum of %s",
				e.describeDose(check, obs, lim.MinSingle.Unit), formatQuantity(*lim.MinSingle))
			out = append(out, e.finding(br, reason,
				&dosing.Quantity{Value: obs, Unit: lim.MinSingle.Unit}, lim.MinSingle))
		}
	}

	if lim.MaxDaily != nil {
		if check.DosesPerDay <= 0 {
			e.logger.Debug("daily limit skipped, frequency unknown",
				"rule", rule.Name, "rule_set", br.set.Name)
		} else if obs, ok := e.normalize(br, check, lim.MaxDaily, &out); ok {
			daily := obs * check.DosesPerDay
			if exceeds(daily, lim.MaxDaily.Value) {
				reason := fmt.Sprintf("daily dose %s %s at %s doses per day exceeds the limit of %s",
					formatAmount(daily), lim.MaxDaily.Unit,
					formatAmount(check.DosesPerDay), formatQuantity(*lim.MaxDaily))
				out = append(out, e.finding(br, reason,
					&dosing.Quantity{Value: daily, Unit: lim.MaxDaily.Unit}, lim.MaxDaily))
			}
		}
	}

	if lim.MinConfidence > 0 && exceeds(lim.MinConfidence, check.Confidence) {
		reason := fmt.Sprintf("conversion confidence %.2f is below the required %.2f",
			check.Confidence, lim.MinConfidence)
		out = append(out, e.finding(br, reason, nil, nil))
	}

	return out
}

// normalize expresses the checked dose in a threshold's unit. A
// dimension gap means the threshold measures a different aspect of
// the dose, so the rule silently does not apply; any other conversion
// failure becomes a warn finding, because a matched rule that cannot
// be verified must not pass silently.
func (e *Evaluator) normalize(br boundRule, check *Check, threshold *dosing.Quantity, out *[]Finding) (float64, bool) {
	if e.sameUnit(check.Dose.Unit, threshold.Unit) {
		return check.Dose.Value, true
	}

	res, err := e.conv.Convert(check.Dose.Value, check.Dose.Unit, threshold.Unit, check.Context, &engine.Options{Trace: engine.Bool(false)})
	if err == nil {
		return res.Value, true
	}

	if kind, ok := dosingErrors.KindOf(err); ok && kind == dosingErrors.KindImpossibleConversion {
		e.logger.Debug("threshold not comparable to dose, rule skipped",
			"rule", br.rule.Name,
			"dose_unit", check.Dose.Unit,
			"threshold_unit", threshold.Unit,
		)
		return 0, false
	}

	reason := fmt.Sprintf("dose in %s could not be checked against the limit of %s: %v",
		check.Dose.Unit, formatQuantity(*threshold), err)
	f := e.finding(br, reason, nil, threshold)
	f.Severity = SeverityWarn
	*out = append(*out, f)
	return 0, false
}

func (e *Evaluator) finding(br boundRule, reason string, observed, threshold *dosing.Quantity) Finding {
	return Finding{
		Rule:      br.rule.Name,
		RuleSet:   br.set.Name,
		Severity:  br.rule.Severity,
		Reason:    reason,
		Observed:  observed,
		Threshold: threshold,
		Advice:    br.rule.limitMessage(),
	}
}

// describeDose renders the dose for a finding, showing the original
// quantity alongside the normalized one when they differ.
func (e *Evaluator) describeDose(check *Check, normalized float64, unit string) string {
	if e.sameUnit(check.Dose.Unit, unit) {
		return fmt.Sprintf("%s %s", formatAmount(normalized), unit)
	}
	return fmt.Sprintf("%s (%s %s)", formatQuantity(check.Dose), formatAmount(normalized), unit)
}

// sameUnit compares unit tokens: device tokens verbatim, standard
// units by normalized form.
func (e *Evaluator) sameUnit(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if units.IsDeviceToken(a) || units.IsDeviceToken(b) {
		return a == b
	}
	return e.units.Normalize(a) == e.units.Normalize(b)
}

func (r *Rule) limitMessage() string {
	if r.Limit == nil {
		return ""
	}
	return r.Limit.Message
}

func (s Severity) decision() Decision {
	if s == SeverityBlock {
		return DecisionBlock
	}
	return DecisionWarn
}

// comparisonTolerance absorbs float noise introduced by unit
// normalization, so a dose exactly at its limit does not fire.
const comparisonTolerance = 1e-9

// exceeds reports a > b beyond normalization noise.
func exceeds(a, b float64) bool {
	if a <= b {
		return false
	}
	scale := math.Abs(a)
	if math.Abs(b) > scale {
		scale = math.Abs(b)
	}
	return a-b > comparisonTolerance*scale
}

func containsFold(values []string, v string) bool {
	for _, candidate := range values {
		if strings.EqualFold(candidate, v) {
			return true
		}
	}
	return false
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatQuantity(q dosing.Quantity) string {
	return fmt.Sprintf("%s %s", formatAmount(q.Value), q.Unit)
}
