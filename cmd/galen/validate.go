package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"meridianrx/galen/pkg/cli"
	"meridianrx/galen/pkg/dosing/engine"
	"meridianrx/galen/pkg/dosing/units"
)

var validateFlags struct {
	output string
}

var validateCmd = &cobra.Command{
	Use:   "validate UNIT [UNIT...]",
	Short: "Validate unit tokens",
	Long: `Validate one or more unit tokens against the unit vocabulary.

Standard units, synonyms ("milligram", "cc") and registered device
units all validate. Unknown tokens are rejected with suggestions when
a likely correction exists.

Examples:
  # Validate a few tokens
  galen validate mg {tablet} mL

  # Catch a typo
  galen validate mgs

  # JSON output for scripting
  galen validate mg banana --output json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFlags.output, "output", "o", "text", "output format: text, json")
}

func runValidate(cmd *cobra.Command, args []string) error {
	setupCLILogging()

	format, err := cli.ParseFormat(validateFlags.output)
	if err != nil {
		return err
	}

	conv := engine.New(nil)
	results := make([]units.Validation, 0, len(args))
	invalid := 0
	for _, token := range args {
		v := conv.Validate(token)
		results = append(results, v)
		if !v.Valid {
			invalid++
		}
	}

	if format == cli.FormatJSON {
		formatter := cli.NewFormatter(format)
		if err := formatter.FormatTo(os.Stdout, results); err != nil {
			return cli.NewCommandError("validate", err)
		}
	} else {
		printValidations(results)
	}

	if invalid > 0 {
		return cli.NewCommandError("validate", fmt.Errorf("%d invalid unit(s)", invalid))
	}
	return nil
}

func printValidations(results []units.Validation) {
	for _, v := range results {
		if v.Valid {
			if v.Normalized != "" && v.Normalized != v.Unit {
				fmt.Printf("✓ %s: %s unit (normalized to %s)\n", v.Unit, v.Type, v.Normalized)
			} else {
				fmt.Printf("✓ %s: %s unit\n", v.Unit, v.Type)
			}
			continue
		}
		fmt.Printf("✗ %s: %s\n", v.Unit, v.Detail)
		if len(v.Suggestions) > 0 {
			fmt.Printf("    did you mean: %s\n", strings.Join(v.Suggestions, ", "))
		}
	}
}
