package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "galen",
	Short: "Galen - medication unit conversion engine",
	Long: `Galen is a unit conversion engine for pharmacy and medication systems.

It converts between clinical units and device units, providing:
  - Standard conversions (mg, mcg, g, kg, mL, L, mg/mL)
  - Device unit conversions ({tablet}, {click}, {drop}, {puff}, ...)
  - Medication-aware context: strength, concentration, lot calibration
  - Deterministic confidence scoring on every result
  - Dose guardrail evaluation and a persistent audit trail

For more information, visit: https://github.com/meridianrx/galen`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Disable default completion command (we'll add our own)
	rootCmd.CompletionOptions.DisableDefaultCmd = false
}
