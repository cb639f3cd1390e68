package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/smartirrigation/smartirrigation/internal/irrigation"
)

// RecommendCmd computes a recommendation from weather given on the command line.
type RecommendCmd struct {
	Crop      string  `required:"" help:"Crop name, e.g. tomato or tomate."`
	Planted   string  `required:"" help:"Planting date (YYYY-MM-DD)."`
	Soil      string  `required:"" help:"Soil name, e.g. clay or argileux."`
	Area      float64 `required:"" help:"Plot area in square metres."`
	Tmax      float64 `required:"" help:"Daily maximum temperature (°C)."`
	Tmin      float64 `required:"" help:"Daily minimum temperature (°C)."`
	Radiation float64 `default:"-1" help:"Solar radiation (MJ/m²/day). Omit to use the monthly estimate."`
	Humidity  float64 `required:"" help:"Relative humidity (%)."`
	Raining   bool    `help:"It is raining now."`
	RainLater bool    `help:"Rain is forecast later today."`
	Hour      int     `default:"-1" help:"Local hour of day (0-23). Defaults to the current hour."`
	JSON      bool    `name:"json" help:"Print the recommendation as JSON."`
}

func (c *RecommendCmd) Run(ctx *Context) error {
	planted, err := time.Parse("2006-01-02", c.Planted)
	if err != nil {
		return fmt.Errorf("invalid planting date, use YYYY-MM-DD: %w", err)
	}

	now := ctx.Now()
	weather := irrigation.WeatherInput{
		MaxTemperatureC:       c.Tmax,
		MinTemperatureC:       c.Tmin,
		SolarRadiationMJm2Day: c.Radiation,
		RelativeHumidityPct:   c.Humidity,
		IsRainingNow:          c.Raining,
		RainForecastLater:     c.RainLater,
		HourOfDay:             c.Hour,
	}
	if c.Radiation < 0 {
		weather.SolarRadiationMJm2Day = irrigation.EstimateRadiation(now.Month())
		weather.RadiationEstimated = true
	}
	if c.Hour < 0 {
		weather.HourOfDay = now.Hour()
	}

	rec, err := ctx.Engine.Generate(
		irrigation.CropInput{Name: c.Crop, PlantingDate: planted},
		ctx.Engine.Soil(c.Soil),
		weather,
		c.Area,
	)
	if err != nil {
		return err
	}

	if c.JSON {
		return writeJSON(ctx.Out, rec)
	}
	return printRecommendation(ctx, rec, weather)
}

func printRecommendation(ctx *Context, rec irrigation.Recommendation, weather irrigation.WeatherInput) error {
	tw := tabwriter.NewWriter(ctx.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Crop:\t%s (%s, Kc %.2f)\n", rec.CropName, rec.Stage, rec.Kc)
	fmt.Fprintf(tw, "Soil:\t%s\n", rec.SoilName)
	fmt.Fprintf(tw, "ET0:\t%.2f mm/day\n", rec.ET0)
	fmt.Fprintf(tw, "Water:\t%.1f L/m² (%.0f L total)\n", rec.LiterPerSquareMeter, rec.TotalLiters)
	fmt.Fprintf(tw, "Every:\t%d days\n", rec.FrequencyDays)
	fmt.Fprintf(tw, "When:\t%s (%s)\n", rec.TimeOfDay, rec.OptimalTimeWindow)
	if err := tw.Flush(); err != nil {
		return err
	}

	if weather.RadiationEstimated {
		fmt.Fprintf(ctx.Out, "\nRadiation estimated at %.0f MJ/m²/day from the monthly average.\n", weather.SolarRadiationMJm2Day)
	}
	if rec.KcFallback {
		fmt.Fprintf(ctx.Out, "Unknown crop %q, default coefficient used.\n", rec.CropName)
	}
	if rec.SoilFallback {
		fmt.Fprintf(ctx.Out, "Unknown soil %q, default profile used.\n", rec.SoilName)
	}
	_, err := fmt.Fprintf(ctx.Out, "\n%s\n", rec.ExplanatoryMessage)
	return err
}
