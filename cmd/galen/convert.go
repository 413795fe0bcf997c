package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"meridianrx/galen/pkg/cli"
	"meridianrx/galen/pkg/config"
	"meridianrx/galen/pkg/dosing"
	"meridianrx/galen/pkg/guardrails"
	"meridianrx/galen/pkg/guardrails/source"
)

var convertFlags struct {
	context     contextFlags
	dosesPerDay float64
	output      string
}

var convertCmd = &cobra.Command{
	Use:   "convert VALUE FROM TO",
	Short: "Convert a dose between units",
	Long: `Convert a dose value from one unit to another.

Standard conversions (mg, mcg, g, kg, mL, L) need no context. Device
unit conversions ({tablet}, {click}, {drop}, ...) may need medication
context: a strength for tablets and capsules, a concentration to bridge
mass and volume, or a lot number for calibrated factors.

When guardrail rules are configured, the converted dose is checked
against them and the verdict is printed with the result.

Examples:
  # Standard conversion
  galen convert 2 g mg

  # Tablets to milligrams with an inline strength
  galen convert 2 {tablet} mg --strength "325 mg"

  # Context from the formulary
  galen convert 2 {tablet} mg --medication acetaminophen-325 --lot LOT-7

  # Volume from mass via a concentration ratio
  galen convert 650 mg mL --concentration "100 mg/5 mL"

  # JSON output for scripting
  galen convert 2 g mg --output json`,
	Args: cobra.ExactArgs(3),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	addContextFlags(convertCmd, &convertFlags.context)
	convertCmd.Flags().Float64Var(&convertFlags.dosesPerDay, "doses-per-day", 0, "administration frequency for daily guardrail limits")
	convertCmd.Flags().StringVarP(&convertFlags.output, "output", "o", "text", "output format: text, json, table")
}

// convertReport is the conversion result with its guardrail verdict,
// shaped for the output formatters.
type convertReport struct {
	Result  *dosing.Result      `json:"result"`
	Verdict *guardrails.Verdict `json:"verdict,omitempty"`
}

func (r *convertReport) TableHeader() []string {
	return []string{"STEP", "FROM", "TO", "KIND"}
}

func (r *convertReport) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Result.Steps))
	for i, s := range r.Result.Steps {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			fmt.Sprintf("%g %s", s.From.Value, s.From.Unit),
			fmt.Sprintf("%g %s", s.To.Value, s.To.Unit),
			string(s.Kind),
		})
	}
	return rows
}

func runConvert(cmd *cobra.Command, args []string) error {
	value, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("cannot parse value %q: %w", args[0], err)
	}

	format, err := cli.ParseFormat(convertFlags.output)
	if err != nil {
		return err
	}

	env, err := setupConversion(cmd, &convertFlags.context, false)
	if err != nil {
		return err
	}
	defer env.cleanup()

	result, err := env.conv.Convert(value, args[1], args[2], env.ctx, env.opts)
	if err != nil {
		return cli.NewCommandError("convert", err)
	}

	report := &convertReport{Result: result}
	if verdict, err := evaluateGuardrails(cmd.Context(), env.cfg, result, &convertFlags.context, convertFlags.dosesPerDay, env.ctx); err != nil {
		return cli.NewCommandError("convert", err)
	} else if verdict != nil {
		report.Verdict = verdict
	}

	if format == cli.FormatText {
		printConvertText(report)
	} else {
		formatter := cli.NewFormatter(format)
		if err := formatter.FormatTo(os.Stdout, report); err != nil {
			return cli.NewCommandError("convert", err)
		}
	}

	if report.Verdict != nil && report.Verdict.Blocked() {
		return cli.NewCommandError("convert", fmt.Errorf("dose blocked by guardrails"))
	}
	return nil
}

func printConvertText(report *convertReport) {
	res := report.Result
	fmt.Printf("%g %s = %g %s\n", res.OriginalValue, res.FromUnit, res.Value, res.ToUnit)
	if res.Confidence != nil {
		fmt.Printf("Confidence: %.2f (%s)\n", res.Confidence.Value, res.Confidence.Level)
	}

	if len(res.Steps) > 0 {
		fmt.Println("\nSteps:")
		for i, s := range res.Steps {
			fmt.Printf("  %d. %s\n", i+1, s.Description)
		}
	}

	printVerdict(report.Verdict)
}

func printVerdict(verdict *guardrails.Verdict) {
	if verdict == nil {
		return
	}
	fmt.Println()
	switch verdict.Decision {
	case guardrails.DecisionAllow:
		fmt.Printf("✓ Guardrails: allow (%d rules evaluated)\n", verdict.Evaluated)
	case guardrails.DecisionWarn:
		fmt.Printf("⚠  Guardrails: warn (%d rules evaluated)\n", verdict.Evaluated)
	case guardrails.DecisionBlock:
		fmt.Printf("✗ Guardrails: BLOCK (%d rules evaluated)\n", verdict.Evaluated)
	}
	for _, f := range verdict.Findings {
		fmt.Printf("  [%s] %s: %s\n", f.Severity, f.Rule, f.Reason)
		if f.Advice != "" {
			fmt.Printf("      %s\n", f.Advice)
		}
	}
}

// evaluateGuardrails checks the converted dose against the configured
// rules. A missing rule file is not an error for one-shot commands;
// guardrails are simply skipped. Returns nil when nothing evaluated.
func evaluateGuardrails(ctx context.Context, cfg *config.Config, result *dosing.Result, f *contextFlags, dosesPerDay float64, dctx *dosing.ConversionContext) (*guardrails.Verdict, error) {
	if cfg == nil || !cfg.Guardrails.Enabled {
		return nil, nil
	}
	if _, err := os.Stat(cfg.Guardrails.RulePath); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	src := source.NewFileSource(cfg.Guardrails.RulePath, nil)
	sets, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load guardrail rules: %w", err)
	}

	eval := guardrails.NewEvaluator(nil, nil)
	eval.SetRuleSets(sets...)

	check := &guardrails.Check{
		Medication:  f.medication,
		Lot:         f.lot,
		Dose:        dosing.Quantity{Value: result.Value, Unit: result.ToUnit},
		DosesPerDay: dosesPerDay,
		Context:     dctx,
	}
	if result.Confidence != nil {
		check.Confidence = result.Confidence.Value
	}
	return eval.Evaluate(check)
}
