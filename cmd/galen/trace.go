package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"meridianrx/galen/pkg/cli"
	"meridianrx/galen/pkg/dosing/trace"
)

var traceFlags struct {
	context contextFlags
	format  string
	out     string
}

var traceCmd = &cobra.Command{
	Use:   "trace VALUE FROM TO",
	Short: "Export the execution trace of a conversion",
	Long: `Perform a conversion with execution tracing enabled and export the
recorded trace.

The trace is the engine's internal event log: operations entered and
left, decisions taken, factors applied, and errors hit. The DOT format
renders as a Graphviz digraph for visual inspection.

The same context flags as convert apply.

Examples:
  # Human-readable trace
  galen trace 2 {tablet} mg --strength "325 mg"

  # Graphviz digraph
  galen trace 3 {click} mL --format dot --out trace.dot

  # JSON for tooling
  galen trace 2 g mg --format json`,
	Args: cobra.ExactArgs(3),
	RunE: runTrace,
}

func init() {
	rootCmd.AddCommand(traceCmd)

	addContextFlags(traceCmd, &traceFlags.context)
	traceCmd.Flags().StringVar(&traceFlags.format, "format", "text", "trace format: text, json, dot")
	traceCmd.Flags().StringVar(&traceFlags.out, "out", "", "write the trace to a file instead of stdout")
}

func runTrace(cmd *cobra.Command, args []string) error {
	value, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("cannot parse value %q: %w", args[0], err)
	}

	var format trace.Format
	switch traceFlags.format {
	case "text":
		format = trace.FormatText
	case "json":
		format = trace.FormatJSON
	case "dot":
		format = trace.FormatDOT
	default:
		return cli.NewConfigError("format", fmt.Sprintf("unsupported trace format %q, want text, json or dot", traceFlags.format))
	}

	env, err := setupConversion(cmd, &traceFlags.context, true)
	if err != nil {
		return err
	}
	defer env.cleanup()

	// The conversion may fail; the trace is still worth exporting
	// because it shows how far the engine got.
	_, convErr := env.conv.Convert(value, args[1], args[2], env.ctx, env.opts)

	rendered, err := env.conv.ExportTrace(format)
	if err != nil {
		return cli.NewCommandError("trace", err)
	}

	if traceFlags.out != "" {
		if err := os.WriteFile(traceFlags.out, []byte(rendered), 0644); err != nil {
			return cli.NewCommandError("trace", fmt.Errorf("failed to write trace: %w", err))
		}
		fmt.Printf("✓ Trace written to %s\n", traceFlags.out)
	} else {
		fmt.Println(rendered)
	}

	if convErr != nil {
		return cli.NewCommandError("trace", convErr)
	}
	return nil
}
