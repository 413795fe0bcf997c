package guardrails

import (
	"fmt"
	"time"

	"meridianrx/galen/pkg/dosing"
)

// Location is the source position of a rule set element in the original
// YAML file. It enables error reporting with file, line, and column.
type Location struct {
	File   string // Path to the rule set file
	Line   int    // Line number (1-based)
	Column int    // Column number (1-based)
}

// String returns the location as "file:line:column".
func (l Location) String() string {
	if l.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// IsValid reports whether the location carries usable file and line
// information.
func (l Location) IsValid() bool {
	return l.File != "" && l.Line > 0
}

// Severity classifies how a firing rule affects the verdict.
type Severity string

const (
	// SeverityWarn surfaces the finding without stopping the
	// conversion from being used.
	SeverityWarn Severity = "warn"

	// SeverityBlock marks the dose as unsafe to dispense.
	SeverityBlock Severity = "block"
)

// Severities lists the accepted severity values in rule files.
var Severities = []string{string(SeverityWarn), string(SeverityBlock)}

// RuleSet is a parsed guardrails document: metadata plus the rules it
// declares, in file order.
type RuleSet struct {
	// Metadata
	GuardrailsVersion string    // Rule format version (currently "1.0")
	Name              string    // Rule set name (kebab-case)
	Version           string    // Rule set version (semver)
	Description       string    // Human-readable description
	Author            string    // Maintaining team or person
	Created           time.Time // Creation timestamp
	Updated           time.Time // Last update timestamp
	Tags              []string  // Free-form categorization

	// Content
	Rules []*Rule // Rules in file order

	// Source tracking
	SourceFile string   // Path the rule set was parsed from
	Location   Location // Position of the document root
}

// GetRule returns the rule with the given name, or nil.
func (rs *RuleSet) GetRule(name string) *Rule {
	for _, r := range rs.Rules {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// HasRule reports whether a rule with the given name exists.
func (rs *RuleSet) HasRule(name string) bool {
	return rs.GetRule(name) != nil
}

// EnabledRules returns the rules that are not disabled.
func (rs *RuleSet) EnabledRules() []*Rule {
	var enabled []*Rule
	for _, r := range rs.Rules {
		if r.Enabled {
			enabled = append(enabled, r)
		}
	}
	return enabled
}

// RuleCount returns the total number of rules.
func (rs *RuleSet) RuleCount() int {
	return len(rs.Rules)
}

// Rule is a single dose-safety rule. The match block decides which
// checks the rule applies to; the limit block decides when it fires.
type Rule struct {
	Name        string     // Unique within the rule set (kebab-case)
	Description string     // Shown to clinicians when the rule fires
	Enabled     bool       // Disabled rules are parsed but never fire
	Severity    Severity   // warn or block
	Priority    int        // Lower evaluates first; ties keep file order
	Match       *Condition // Nil matches every check
	Limit       *Limit     // Nil makes the rule unconditional
	Location    Location   // Position of the rule mapping
}

// Unconditional reports whether the rule fires on match alone, with no
// limit to violate. Used for lot recalls and medication-wide stops.
func (r *Rule) Unconditional() bool {
	return r.Limit == nil
}

// Condition gates which checks a rule applies to. Empty fields match
// anything; set fields must all hold. String comparisons are
// case-insensitive, unit comparisons are normalization-aware.
type Condition struct {
	Medication  string   // Medication name or formulary ID
	Medications []string // Any-of alternative to Medication
	Route       string   // Administration route ("oral", "topical", ...)
	Form        string   // Dose form ("tablet", "solution", ...)
	Unit        string   // Unit of the dose being checked
	Lot         string   // Manufacturing lot number
}

// Limit declares the thresholds a matching dose is held against.
// Quantities may use any unit the conversion engine understands; doses
// in a different unit are normalized before comparison.
type Limit struct {
	MaxSingle     *dosing.Quantity // Ceiling for one administration
	MaxDaily      *dosing.Quantity // Ceiling for a day at the checked frequency
	MinSingle     *dosing.Quantity // Floor for one administration
	MinConfidence float64          // Required conversion confidence (0 disables)
	Message       string           // Advice attached to findings from this rule
}

// Empty reports whether no threshold is set at all.
func (l *Limit) Empty() bool {
	if l == nil {
		return true
	}
	return l.MaxSingle == nil && l.MaxDaily == nil && l.MinSingle == nil && l.MinConfidence == 0
}

// Decision is the overall outcome of evaluating a check.
type Decision string

const (
	// DecisionAllow means no rule fired.
	DecisionAllow Decision = "allow"

	// DecisionWarn means at least one warn rule fired and no block
	// rule did.
	DecisionWarn Decision = "warn"

	// DecisionBlock means at least one block rule fired.
	DecisionBlock Decision = "block"
)

// worse returns the more severe of two decisions.
func (d Decision) worse(other Decision) Decision {
	if d == DecisionBlock || other == DecisionBlock {
		return DecisionBlock
	}
	if d == DecisionWarn || other == DecisionWarn {
		return DecisionWarn
	}
	return DecisionAllow
}

// Verdict is the result of evaluating one check against the loaded
// rule sets.
type Verdict struct {
	// Decision is the worst severity among the findings, or allow.
	Decision Decision `json:"decision"`

	// Findings lists every rule that fired, in evaluation order.
	Findings []Finding `json:"findings,omitempty"`

	// Evaluated is the number of enabled rules that were checked.
	Evaluated int `json:"evaluated"`
}

// Blocked reports whether the verdict stops the dose.
func (v *Verdict) Blocked() bool {
	return v.Decision == DecisionBlock
}

// Finding describes one rule that fired and why.
type Finding struct {
	// Rule and RuleSet identify the firing rule.
	Rule    string `json:"rule"`
	RuleSet string `json:"ruleSet"`

	// Severity is the firing rule's severity.
	Severity Severity `json:"severity"`

	// Reason is a complete sentence describing the violation.
	Reason string `json:"reason"`

	// Observed and Threshold carry the compared quantities for limit
	// findings. Both are nil for unconditional and confidence
	// findings.
	Observed  *dosing.Quantity `json:"observed,omitempty"`
	Threshold *dosing.Quantity `json:"threshold,omitempty"`

	// Advice is the rule's configured message, when one is set.
	Advice string `json:"advice,omitempty"`
}
