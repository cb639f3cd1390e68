package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/smartirrigation/smartirrigation/internal/irrigation"
)

// CropsCmd lists the crop coefficient table.
type CropsCmd struct {
	JSON bool `name:"json" help:"Print as JSON."`
}

type cropRow struct {
	Name         string             `json:"name"`
	Aliases      []string           `json:"aliases,omitempty"`
	Coefficients map[string]float64 `json:"coefficients"`
}

func (c *CropsCmd) Run(ctx *Context) error {
	entries := ctx.Engine.Crops().Crops()

	if c.JSON {
		rows := make([]cropRow, 0, len(entries))
		for _, e := range entries {
			coeffs := make(map[string]float64, len(e.Coefficients))
			for stage, kc := range e.Coefficients {
				coeffs[stage.String()] = kc
			}
			rows = append(rows, cropRow{Name: e.Name, Aliases: e.Aliases, Coefficients: coeffs})
		}
		return writeJSON(ctx.Out, rows)
	}

	tw := tabwriter.NewWriter(ctx.Out, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "CROP")
	for _, stage := range irrigation.Stages {
		fmt.Fprintf(tw, "\t%s", strings.ToUpper(stage.String()))
	}
	fmt.Fprint(tw, "\tALIASES\n")
	for _, e := range entries {
		fmt.Fprint(tw, e.Name)
		for _, stage := range irrigation.Stages {
			if kc, ok := e.Coefficients[stage]; ok {
				fmt.Fprintf(tw, "\t%.2f", kc)
			} else {
				fmt.Fprint(tw, "\t-")
			}
		}
		fmt.Fprintf(tw, "\t%s\n", strings.Join(e.Aliases, ", "))
	}
	fmt.Fprintf(tw, "\nOther crops use Kc %.2f.\n", ctx.Engine.Crops().Fallback())
	return tw.Flush()
}

// SoilsCmd lists the soil profile table.
type SoilsCmd struct {
	JSON bool `name:"json" help:"Print as JSON."`
}

type soilRow struct {
	Name                   string   `json:"name"`
	Aliases                []string `json:"aliases,omitempty"`
	WaterRetentionCapacity float64  `json:"waterRetentionCapacity"`
	IrrigationIntervalDays int      `json:"irrigationIntervalDays"`
}

func (c *SoilsCmd) Run(ctx *Context) error {
	entries := ctx.Engine.Soils().Soils()

	if c.JSON {
		rows := make([]soilRow, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, soilRow(e))
		}
		return writeJSON(ctx.Out, rows)
	}

	tw := tabwriter.NewWriter(ctx.Out, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "SOIL\tRETENTION (mm/m)\tINTERVAL (days)\tALIASES\n")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%.0f\t%d\t%s\n", e.Name, e.WaterRetentionCapacity, e.IrrigationIntervalDays, strings.Join(e.Aliases, ", "))
	}
	fallback := ctx.Engine.Soil("")
	fmt.Fprintf(tw, "\nOther soils use %.0f mm/m every %d days.\n", fallback.WaterRetentionCapacity, fallback.IrrigationIntervalDays)
	return tw.Flush()
}
