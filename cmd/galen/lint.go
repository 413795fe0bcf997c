package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"meridianrx/galen/pkg/cli"
	"meridianrx/galen/pkg/guardrails"
)

var lintFlags struct {
	file   string
	dir    string
	strict bool
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate guardrail rule files",
	Long: `Validate guardrail rule files for syntax and semantic errors.

The lint command parses rule files and performs comprehensive
validation:
  - YAML syntax validation
  - Rule set structure validation (names, severities, priorities)
  - Semantic validation (unit vocabulary, limit consistency)
  - Disabled-rule warnings

Examples:
  # Lint single file
  galen lint --file guardrails.yaml

  # Lint directory
  galen lint --dir rules/

  # Strict mode (warnings as errors)
  galen lint --file guardrails.yaml --strict

  # JSON output for CI/CD
  galen lint --file guardrails.yaml --format json`,
	RunE: lintRules,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVarP(&lintFlags.file, "file", "f", "", "rule file to validate")
	lintCmd.Flags().StringVarP(&lintFlags.dir, "dir", "d", "", "directory of rule files")
	lintCmd.Flags().BoolVar(&lintFlags.strict, "strict", false, "treat warnings as errors")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")
}

func lintRules(cmd *cobra.Command, args []string) error {
	if lintFlags.file == "" && lintFlags.dir == "" {
		return fmt.Errorf("either --file or --dir must be specified")
	}

	var files []string

	if lintFlags.file != "" {
		files = append(files, lintFlags.file)
	}

	if lintFlags.dir != "" {
		matches, err := filepath.Glob(filepath.Join(lintFlags.dir, "*.yaml"))
		if err != nil {
			return fmt.Errorf("failed to list rule files: %w", err)
		}
		ymlMatches, err := filepath.Glob(filepath.Join(lintFlags.dir, "*.yml"))
		if err != nil {
			return fmt.Errorf("failed to list rule files: %w", err)
		}
		files = append(files, matches...)
		files = append(files, ymlMatches...)
	}

	if len(files) == 0 {
		return fmt.Errorf("no rule files found")
	}

	results := make([]ValidationResult, 0, len(files))

	for _, file := range files {
		results = append(results, validateRuleFile(file))
	}

	// Output results
	if lintFlags.format == "json" {
		return outputJSON(results)
	}
	return outputText(results, lintFlags.strict)
}

// ValidationResult represents the validation result for a single rule
// file.
type ValidationResult struct {
	File     string            `json:"file"`
	Valid    bool              `json:"valid"`
	Rules    int               `json:"rules"`
	Errors   []ValidationError `json:"errors,omitempty"`
	Warnings []ValidationError `json:"warnings,omitempty"`
}

// ValidationError represents a single validation error or warning.
type ValidationError struct {
	Line       int    `json:"line,omitempty"`
	Column     int    `json:"column,omitempty"`
	Message    string `json:"message"`
	Severity   string `json:"severity"`
	Type       string `json:"type,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func validateRuleFile(path string) ValidationResult {
	result := ValidationResult{
		File:  path,
		Valid: true,
	}

	p := guardrails.NewParser()

	set, err := p.Parse(path)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, toValidationErrors(err)...)
		return result
	}
	result.Rules = set.RuleCount()

	v := guardrails.NewValidator()
	if err := v.Validate(set); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, toValidationErrors(err)...)
	}

	// Disabled rules parse and validate but never fire; surface them so
	// a rule set does not rot silently.
	for _, r := range set.Rules {
		if r.Enabled {
			continue
		}
		result.Warnings = append(result.Warnings, ValidationError{
			Line:     r.Location.Line,
			Column:   r.Location.Column,
			Message:  fmt.Sprintf("rule %q is disabled and will not evaluate", r.Name),
			Severity: "warning",
		})
	}

	return result
}

// toValidationErrors flattens a parser or validator error into report
// entries.
func toValidationErrors(err error) []ValidationError {
	var list *guardrails.ErrorList
	if errors.As(err, &list) {
		out := make([]ValidationError, 0, len(list.Errors))
		for _, e := range list.Errors {
			out = append(out, toValidationError(e))
		}
		return out
	}

	var single *guardrails.Error
	if errors.As(err, &single) {
		return []ValidationError{toValidationError(single)}
	}

	return []ValidationError{{Message: err.Error(), Severity: "error"}}
}

func toValidationError(e *guardrails.Error) ValidationError {
	return ValidationError{
		Line:       e.Location.Line,
		Column:     e.Location.Column,
		Message:    e.Message,
		Severity:   "error",
		Type:       string(e.Type),
		Suggestion: e.Suggestion,
	}
}

func outputText(results []ValidationResult, strict bool) error {
	totalErrors := 0
	totalWarnings := 0

	for _, result := range results {
		fmt.Printf("Validating %s...\n", result.File)

		if len(result.Errors) == 0 && len(result.Warnings) == 0 {
			fmt.Println("✓ Syntax valid")
			fmt.Printf("✓ All %d rule(s) have valid conditions and limits\n", result.Rules)
		}

		for _, err := range result.Errors {
			fmt.Printf("✗ Error: %s", err.Message)
			if err.Line > 0 {
				fmt.Printf(" (line %d", err.Line)
				if err.Column > 0 {
					fmt.Printf(", col %d", err.Column)
				}
				fmt.Print(")")
			}
			if err.Type != "" {
				fmt.Printf(" [%s]", err.Type)
			}
			fmt.Println()
			if err.Suggestion != "" {
				fmt.Printf("    suggestion: %s\n", err.Suggestion)
			}
			totalErrors++
		}

		for _, warn := range result.Warnings {
			fmt.Printf("⚠  Warning: %s", warn.Message)
			if warn.Line > 0 {
				fmt.Printf(" (line %d", warn.Line)
				if warn.Column > 0 {
					fmt.Printf(", col %d", warn.Column)
				}
				fmt.Print(")")
			}
			fmt.Println()
			totalWarnings++
		}

		fmt.Println()
	}

	fmt.Println("Summary:")
	fmt.Printf("  %d error(s), %d warning(s)\n", totalErrors, totalWarnings)

	if strict && totalWarnings > 0 {
		fmt.Println("  Strict mode enabled: treating warnings as errors")
		return cli.NewCommandError("lint", fmt.Errorf("validation failed"))
	}

	if totalErrors > 0 {
		return cli.NewCommandError("lint", fmt.Errorf("validation failed"))
	}

	return nil
}

func outputJSON(results []ValidationResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}
