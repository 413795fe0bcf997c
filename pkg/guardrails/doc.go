// Package guardrails provides parsing, validation, and evaluation of
// YAML dose-safety rules.
//
// Rule sets let clinical teams declare dose limits and hard stops
// without writing code. The evaluator checks a converted dose against
// every enabled rule and returns a verdict of allow, warn, or block
// with the reasons attached.
//
// # Rule set structure
//
// A rule set is a YAML document:
//
//	guardrails_version: "1.0"
//	name: adult-oral-limits
//	version: 1.0.0
//	description: Dose ceilings for common oral medications
//
//	rules:
//	  - name: metformin-daily-ceiling
//	    description: Immediate-release metformin tops out at 2550 mg/day
//	    match:
//	      medication: metformin
//	      route: oral
//	    limit:
//	      max_single: {value: 1000, unit: mg}
//	      max_daily: {value: 2550, unit: mg}
//	    severity: block
//
// A rule fires when its match block applies to the dose being checked
// and one of its limits is violated. A rule without a limit block is
// unconditional: it fires whenever its match applies, which is how
// lot recalls are expressed.
//
// # Basic usage
//
//	p := guardrails.NewParser()
//	set, err := p.Parse("rules/adult-oral.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := guardrails.NewValidator().Validate(set); err != nil {
//	    log.Fatal(err)
//	}
//
//	ev := guardrails.NewEvaluator(nil, logger)
//	ev.SetRuleSets(set)
//	verdict, err := ev.Evaluate(&guardrails.Check{
//	    Medication:  "metformin",
//	    Route:       "oral",
//	    Dose:        dosing.Quantity{Value: 1000, Unit: "mg"},
//	    DosesPerDay: 3,
//	    Confidence:  1.0,
//	})
//
// Parse and validation errors carry file, line, and column information
// plus a suggested fix where one is known, so a broken rule file can be
// repaired without reading this package's source.
//
// The source subpackage loads rule sets from files or directories and
// hot-reloads them on change.
package guardrails
