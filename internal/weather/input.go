package weather

import (
	"github.com/smartirrigation/smartirrigation/internal/irrigation"
)

// RadiationPolicy decides what happens when a snapshot carries no measured solar radiation.
type RadiationPolicy struct {
	// RequireMeasured refuses to estimate and fails with ErrRadiationUnavailable.
	RequireMeasured bool

	// Monthly is the per-month estimate used otherwise.
	Monthly irrigation.MonthlyRadiation
}

// DefaultRadiationPolicy estimates missing radiation from irrigation.DefaultMonthlyRadiation.
func DefaultRadiationPolicy() RadiationPolicy {
	return RadiationPolicy{Monthly: irrigation.DefaultMonthlyRadiation}
}

// Input converts the snapshot into the engine's weather input. The hour of day
// is the location's local hour.
func (s *Snapshot) Input(policy RadiationPolicy) (irrigation.WeatherInput, error) {
	in := irrigation.WeatherInput{
		MaxTemperatureC:     s.MaxTemperature,
		MinTemperatureC:     s.MinTemperature,
		RelativeHumidityPct: s.Humidity,
		IsRainingNow:        s.RainingNow(),
		RainForecastLater:   s.RainLater(),
		HourOfDay:           s.ObservedAt.Hour(),
	}

	switch {
	case s.SolarRadiation != nil:
		in.SolarRadiationMJm2Day = *s.SolarRadiation
	case policy.RequireMeasured:
		return irrigation.WeatherInput{}, ErrRadiationUnavailable
	default:
		monthly := policy.Monthly
		if monthly == (irrigation.MonthlyRadiation{}) {
			monthly = irrigation.DefaultMonthlyRadiation
		}
		in.SolarRadiationMJm2Day = monthly.For(s.ObservedAt.Month())
		in.RadiationEstimated = true
	}

	return in, nil
}
