package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"meridianrx/galen/pkg/cli"
)

var explainFlags struct {
	context contextFlags
}

var explainCmd = &cobra.Command{
	Use:   "explain VALUE FROM TO",
	Short: "Explain a conversion step by step",
	Long: `Perform a conversion and print a step-by-step account of how the
result was produced: every hop taken, the factor applied at each hop
and where it came from, and the confidence rationale.

The same context flags as convert apply.

Examples:
  # How does 2 g become 2000 mg?
  galen explain 2 g mg

  # Where does the tablet factor come from?
  galen explain 2 {tablet} mg --strength "325 mg"`,
	Args: cobra.ExactArgs(3),
	RunE: runExplain,
}

func init() {
	rootCmd.AddCommand(explainCmd)

	addContextFlags(explainCmd, &explainFlags.context)
}

func runExplain(cmd *cobra.Command, args []string) error {
	value, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("cannot parse value %q: %w", args[0], err)
	}

	env, err := setupConversion(cmd, &explainFlags.context, false)
	if err != nil {
		return err
	}
	defer env.cleanup()

	if _, err := env.conv.Convert(value, args[1], args[2], env.ctx, env.opts); err != nil {
		return cli.NewCommandError("explain", err)
	}

	fmt.Println(env.conv.Explain())
	return nil
}
