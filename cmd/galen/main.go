// Galen is a medication unit conversion engine for pharmacy systems.
//
// It converts between clinical units (mg, mcg, g, mL) and device units
// ({tablet}, {click}, {drop}, {puff}), providing:
//   - Deterministic conversions with confidence scoring
//   - Medication-aware context (strength, concentration, lot factors)
//   - Dose guardrail evaluation with a closed rule vocabulary
//   - A formulary of medication profiles backing conversion context
//   - An auditable trail of every conversion performed
//
// Usage:
//
//	# Start the HTTP API with default configuration
//	galen run
//
//	# Start with a custom configuration file
//	galen run --config /etc/galen/config.yaml
//
//	# Convert on the command line
//	galen convert 2 {tablet} mg --strength "325 mg"
//
//	# Validate unit tokens
//	galen validate mg {click} banana
//
//	# Validate guardrail rule files
//	galen lint --file guardrails.yaml
//
//	# Show the step-by-step account of a conversion
//	galen explain 3 {click} mg --concentration "100 mg/1 mL"
//
// For complete documentation, see: https://github.com/meridianrx/galen
package main

func main() {
	Execute()
}
