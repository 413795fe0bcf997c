package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"meridianrx/galen/pkg/cli"
	"meridianrx/galen/pkg/dosing/engine"
	"meridianrx/galen/pkg/dosing/units"
)

var unitsFlags struct {
	output       string
	devicesOnly  bool
	standardOnly bool
}

var unitsCmd = &cobra.Command{
	Use:   "units",
	Short: "List known units",
	Long: `List the standard clinical units and registered device units.

Standard units are fixed vocabulary: masses, volumes, and
concentration ratios. Device units are the braced tokens the default
registry ships with; medications in the formulary may register more.

Examples:
  # Everything
  galen units

  # Device units only
  galen units --devices

  # JSON output for scripting
  galen units --output json`,
	RunE: runUnits,
}

func init() {
	rootCmd.AddCommand(unitsCmd)

	unitsCmd.Flags().StringVarP(&unitsFlags.output, "output", "o", "table", "output format: table, json")
	unitsCmd.Flags().BoolVar(&unitsFlags.devicesOnly, "devices", false, "list device units only")
	unitsCmd.Flags().BoolVar(&unitsFlags.standardOnly, "standard", false, "list standard units only")
}

type unitRow struct {
	Code      string `json:"code"`
	Display   string `json:"display"`
	Type      string `json:"type"`
	Dimension string `json:"dimension"`
	Factor    string `json:"factor,omitempty"`
}

// unitList renders unit descriptions as a table.
type unitList []unitRow

func (l unitList) TableHeader() []string {
	return []string{"CODE", "DISPLAY", "TYPE", "DIMENSION", "FACTOR"}
}

func (l unitList) TableRows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, u := range l {
		factor := u.Factor
		if factor == "" {
			factor = "-"
		}
		rows = append(rows, []string{u.Code, u.Display, u.Type, u.Dimension, factor})
	}
	return rows
}

func runUnits(cmd *cobra.Command, args []string) error {
	setupCLILogging()

	if unitsFlags.devicesOnly && unitsFlags.standardOnly {
		return cli.NewConfigError("", "--devices and --standard are mutually exclusive")
	}

	format, err := cli.ParseFormat(unitsFlags.output)
	if err != nil {
		return err
	}

	var list unitList
	if !unitsFlags.devicesOnly {
		list = append(list, standardRows()...)
	}
	if !unitsFlags.standardOnly {
		list = append(list, deviceRows()...)
	}

	formatter := cli.NewFormatter(format)
	if err := formatter.FormatTo(os.Stdout, list); err != nil {
		return cli.NewCommandError("units", err)
	}
	return nil
}

func standardRows() []unitRow {
	v := units.NewValidator()
	codes := v.Codes()
	rows := make([]unitRow, 0, len(codes))
	for _, code := range codes {
		u, err := v.Describe(code)
		if err != nil {
			continue
		}
		rows = append(rows, unitRow{
			Code:      u.Code,
			Display:   u.Display,
			Type:      string(units.TypeStandard),
			Dimension: u.Dimension,
		})
	}
	return rows
}

func deviceRows() []unitRow {
	reg := engine.New(nil).Registry()
	ids := reg.IDs()
	rows := make([]unitRow, 0, len(ids))
	for _, id := range ids {
		u, ok := reg.Lookup(id)
		if !ok {
			continue
		}
		factor := fmt.Sprintf("%s (from context)", u.RatioTo)
		if f, known := u.Factor.Known(); known {
			factor = fmt.Sprintf("%g %s", f, u.RatioTo)
		}
		rows = append(rows, unitRow{
			Code:      u.ID,
			Display:   u.Display,
			Type:      string(units.TypeDevice),
			Dimension: "device",
			Factor:    factor,
		})
	}
	return rows
}
