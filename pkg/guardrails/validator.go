package guardrails

import (
	"fmt"
	"regexp"
	"strings"

	"meridianrx/galen/pkg/dosing"
	"meridianrx/galen/pkg/dosing/units"
)

var (
	// semverPattern validates semantic version strings.
	semverPattern = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)

	// kebabCasePattern validates kebab-case identifiers.
	kebabCasePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

	// supportedVersions lists the rule format versions this package
	// understands.
	supportedVersions = map[string]bool{
		"1.0": true,
	}
)

// Validator checks parsed rule sets. The structural pass enforces the
// schema; the semantic pass, which only runs on structurally sound
// sets, checks that units resolve and that limits are consistent with
// each other.
type Validator struct {
	units *units.Validator
}

// NewValidator creates a validator.
func NewValidator() *Validator {
	return &Validator{units: units.NewValidator()}
}

// Validate runs both passes and returns every problem found, or nil.
func (v *Validator) Validate(rs *RuleSet) error {
	if rs == nil {
		return &Error{Type: ErrorTypeStructural, Message: "Rule set is nil"}
	}

	errs := NewErrorList()
	v.structural(rs, errs)

	// Semantic findings on a structurally broken set are mostly
	// cascade noise, so the pass is skipped.
	if !errs.HasErrorType(ErrorTypeStructural) {
		v.semantic(rs, errs)
	}

	for _, e := range errs.Errors {
		withContext(e)
	}
	return errs.ToError()
}

func (v *Validator) structural(rs *RuleSet, errs *ErrorList) {
	switch {
	case rs.GuardrailsVersion == "":
		errs.AddErrorWithSuggestion(ErrorTypeStructural,
			"Missing required field 'guardrails_version'",
			rs.Location,
			suggestMissingField("guardrails_version", `"1.0"`))
	case !supportedVersions[rs.GuardrailsVersion]:
		errs.AddErrorWithSuggestion(ErrorTypeStructural,
			fmt.Sprintf("Unsupported guardrails version %q", rs.GuardrailsVersion),
			rs.Location,
			"Supported versions: 1.0")
	}

	switch {
	case rs.Name == "":
		errs.AddErrorWithSuggestion(ErrorTypeStructural,
			"Missing required field 'name'",
			rs.Location,
			suggestMissingField("name", "adult-oral-limits"))
	case !kebabCasePattern.MatchString(rs.Name):
		errs.AddErrorWithSuggestion(ErrorTypeStructural,
			fmt.Sprintf("Rule set name %q must be kebab-case", rs.Name),
			rs.Location,
			"Example: 'adult-oral-limits'")
	}

	switch {
	case rs.Version == "":
		errs.AddErrorWithSuggestion(ErrorTypeStructural,
			"Missing required field 'version'",
			rs.Location,
			suggestMissingField("version", "1.0.0"))
	case !semverPattern.MatchString(rs.Version):
		errs.AddErrorWithSuggestion(ErrorTypeStructural,
			fmt.Sprintf("Rule set version %q must follow semantic versioning", rs.Version),
			rs.Location,
			"Example: '1.0.0'")
	}

	if len(rs.Rules) == 0 {
		errs.AddErrorWithSuggestion(ErrorTypeStructural,
			"Rule set must have at least one rule",
			rs.Location,
			"Add a 'rules' section with at least one rule")
	}

	seen := make(map[string]bool)
	for i, rule := range rs.Rules {
		v.structuralRule(rule, i, seen, errs)
	}
}

func (v *Validator) structuralRule(rule *Rule, index int, seen map[string]bool, errs *ErrorList) {
	switch {
	case rule.Name == "":
		errs.AddErrorWithSuggestion(ErrorTypeStructural,
			fmt.Sprintf("Rule at index %d has no name", index),
			rule.Location,
			suggestMissingField("name", "my-dose-rule"))
	case !kebabCasePattern.MatchString(rule.Name):
		errs.AddErrorWithSuggestion(ErrorTypeStructural,
			fmt.Sprintf("Rule name %q must be kebab-case", rule.Name),
			rule.Location,
			"Example: 'metformin-daily-ceiling'")
	case seen[rule.Name]:
		errs.AddError(ErrorTypeStructural,
			fmt.Sprintf("Duplicate rule name %q", rule.Name),
			rule.Location)
	default:
		seen[rule.Name] = true
	}

	switch rule.Severity {
	case SeverityWarn, SeverityBlock:
	case "":
		errs.AddErrorWithSuggestion(ErrorTypeStructural,
			fmt.Sprintf("Rule %q has no severity", rule.Name),
			rule.Location,
			"Add 'severity: warn' or 'severity: block'")
	default:
		errs.AddErrorWithSuggestion(ErrorTypeStructural,
			fmt.Sprintf("Rule %q has invalid severity %q", rule.Name, rule.Severity),
			rule.Location,
			suggestField(string(rule.Severity), Severities))
	}

	if rule.Unconditional() {
		// An unconditional rule fires on match alone; without a
		// description the finding would give the clinician nothing.
		if rule.Description == "" {
			errs.AddErrorWithSuggestion(ErrorTypeStructural,
				fmt.Sprintf("Rule %q has no limit and no description", rule.Name),
				rule.Location,
				"Unconditional rules must describe why they fire; add a 'description'")
		}
		return
	}

	if rule.Limit.Empty() {
		errs.AddErrorWithSuggestion(ErrorTypeStructural,
			fmt.Sprintf("Rule %q has a limit block with no thresholds", rule.Name),
			rule.Location,
			"Set at least one of max_single, max_daily, min_single, min_confidence")
	}

	v.structuralQuantity(rule, "max_single", rule.Limit.MaxSingle, errs)
	v.structuralQuantity(rule, "max_daily", rule.Limit.MaxDaily, errs)
	v.structuralQuantity(rule, "min_single", rule.Limit.MinSingle, errs)

	if mc := rule.Limit.MinConfidence; mc < 0 || mc > 1 {
		errs.AddErrorWithSuggestion(ErrorTypeStructural,
			fmt.Sprintf("Rule %q min_confidence %v is outside [0, 1]", rule.Name, mc),
			rule.Location,
			"Confidence scores range from 0.0 to 1.0")
	}
}

func (v *Validator) structuralQuantity(rule *Rule, field string, q *dosing.Quantity, errs *ErrorList) {
	if q == nil {
		return
	}
	if q.Value <= 0 {
		errs.AddError(ErrorTypeStructural,
			fmt.Sprintf("Rule %q %s value %v must be positive", rule.Name, field, q.Value),
			rule.Location)
	}
	if strings.TrimSpace(q.Unit) == "" {
		errs.AddErrorWithSuggestion(ErrorTypeStructural,
			fmt.Sprintf("Rule %q %s has no unit", rule.Name, field),
			rule.Location,
			fmt.Sprintf("Write the threshold as '%s: {value: N, unit: mg}'", field))
	}
}

func (v *Validator) semantic(rs *RuleSet, errs *ErrorList) {
	for _, rule := range rs.Rules {
		if rule.Match != nil && rule.Match.Unit != "" {
			v.semanticUnit(rule, "match unit", rule.Match.Unit, errs)
		}
		if rule.Limit == nil {
			continue
		}
		v.semanticQuantity(rule, "max_single", rule.Limit.MaxSingle, errs)
		v.semanticQuantity(rule, "max_daily", rule.Limit.MaxDaily, errs)
		v.semanticQuantity(rule, "min_single", rule.Limit.MinSingle, errs)
		v.semanticBounds(rule, errs)
	}
}

func (v *Validator) semanticQuantity(rule *Rule, field string, q *dosing.Quantity, errs *ErrorList) {
	if q == nil {
		return
	}
	v.semanticUnit(rule, field+" unit", q.Unit, errs)
}

func (v *Validator) semanticUnit(rule *Rule, what, unit string, errs *ErrorList) {
	val := v.units.Validate(unit)
	if val.Valid || val.Type == units.TypeDevice {
		return
	}

	suggestion := ""
	if len(val.Suggestions) > 0 {
		suggestion = fmt.Sprintf("Did you mean %q?", val.Suggestions[0])
	}
	errs.AddErrorWithSuggestion(ErrorTypeSemantic,
		fmt.Sprintf("Rule %q %s %q is not a recognized unit", rule.Name, what, unit),
		rule.Location,
		suggestion)
}

// semanticBounds cross-checks the thresholds of one rule where their
// units are directly comparable. Device-unit thresholds are skipped:
// their factors are not known until evaluation.
func (v *Validator) semanticBounds(rule *Rule, errs *ErrorList) {
	lim := rule.Limit

	if lim.MaxSingle != nil && lim.MaxDaily != nil {
		if single, ok := v.inUnit(lim.MaxSingle, lim.MaxDaily.Unit); ok && single > lim.MaxDaily.Value {
			errs.AddErrorWithSuggestion(ErrorTypeSemantic,
				fmt.Sprintf("Rule %q max_single (%v %s) exceeds max_daily (%v %s)",
					rule.Name, lim.MaxSingle.Value, lim.MaxSingle.Unit, lim.MaxDaily.Value, lim.MaxDaily.Unit),
				rule.Location,
				"A single dose can never be allowed to exceed the daily ceiling")
		}
	}

	if lim.MinSingle != nil && lim.MaxSingle != nil {
		if minVal, ok := v.inUnit(lim.MinSingle, lim.MaxSingle.Unit); ok && minVal > lim.MaxSingle.Value {
			errs.AddError(ErrorTypeSemantic,
				fmt.Sprintf("Rule %q min_single (%v %s) exceeds max_single (%v %s)",
					rule.Name, lim.MinSingle.Value, lim.MinSingle.Unit, lim.MaxSingle.Value, lim.MaxSingle.Unit),
				rule.Location)
		}
	}
}

// inUnit converts a threshold to the given standard unit when both
// sides are standard and dimensionally compatible.
func (v *Validator) inUnit(q *dosing.Quantity, unit string) (float64, bool) {
	if units.IsDeviceToken(q.Unit) || units.IsDeviceToken(unit) {
		return 0, false
	}
	if !v.units.Compatible(q.Unit, unit) {
		return 0, false
	}
	converted, err := v.units.Convert(q.Value, q.Unit, unit)
	if err != nil {
		return 0, false
	}
	return converted, true
}
