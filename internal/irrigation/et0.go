package irrigation

import (
	"math"
	"time"
)

const hargreavesCoefficient = 0.0023

// Hargreaves estimates reference evapotranspiration in mm/day from daily
// temperature extremes (°C) and solar radiation ra (MJ/m²/day). The result is
// rounded to two decimals and never negative: a mean temperature below
// -17.8 °C means no evaporative demand.
func Hargreaves(tmax, tmin, ra float64) (float64, error) {
	if tmax < tmin {
		return 0, invalid("weather.maxTemperatureC", "must be greater than or equal to minTemperatureC")
	}
	if ra < 0 {
		return 0, invalid("weather.solarRadiationMJm2day", "must not be negative")
	}
	tmean := (tmax + tmin) / 2
	et0 := hargreavesCoefficient * (tmean + 17.8) * math.Sqrt(tmax-tmin) * ra
	return round(math.Max(0, et0), 2), nil
}

// MonthlyRadiation is a per-month solar radiation table in MJ/m²/day, January first.
type MonthlyRadiation [12]float64

// DefaultMonthlyRadiation is calibrated for the coastal Gulf of Guinea climate zone.
var DefaultMonthlyRadiation = MonthlyRadiation{22, 23, 22, 21, 20, 18, 17, 17, 18, 19, 20, 21}

// For returns the radiation estimate for month.
func (m MonthlyRadiation) For(month time.Month) float64 {
	if month < time.January || month > time.December {
		return 0
	}
	return m[month-1]
}

// EstimateRadiation returns the default monthly radiation estimate for month.
func EstimateRadiation(month time.Month) float64 {
	return DefaultMonthlyRadiation.For(month)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
