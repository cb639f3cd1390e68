package weather

import (
	"errors"
	"time"
)

var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrNoDataForLocation   = errors.New("no weather data for location")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")

	// ErrRadiationUnavailable is returned when measured solar radiation is
	// required but the provider did not report it.
	ErrRadiationUnavailable = errors.New("solar radiation unavailable")
)

// RainNowThresholdMM is the precipitation in the current hour above which it counts as raining.
const RainNowThresholdMM = 0.5

// Snapshot is the weather at a location for the current local day.
type Snapshot struct {
	Lat      float64
	Lon      float64
	Timezone string

	// ObservedAt is in the location's local time.
	ObservedAt time.Time

	Temperature     float64 // °C
	Humidity        float64 // %
	PrecipitationMM float64 // current hour
	Code            int     // WMO weather code
	Condition       Condition
	Description     string

	MaxTemperature float64 // °C, today
	MinTemperature float64 // °C, today

	// SolarRadiation is today's shortwave radiation sum in MJ/m², nil if not reported.
	SolarRadiation *float64

	// Hourly covers the rest of the local day.
	Hourly []Hour

	FetchedAt time.Time
}

// Hour is one hourly forecast step.
type Hour struct {
	Time            time.Time
	PrecipitationMM float64
}

// RainingNow reports whether the current hour's precipitation exceeds RainNowThresholdMM.
func (s *Snapshot) RainingNow() bool {
	return s.PrecipitationMM > RainNowThresholdMM
}

// RainHours returns the forecast hours after ObservedAt, on the same local day, with any precipitation.
func (s *Snapshot) RainHours() []time.Time {
	var out []time.Time
	y, m, d := s.ObservedAt.Date()
	for _, h := range s.Hourly {
		if !h.Time.After(s.ObservedAt) || h.PrecipitationMM <= 0 {
			continue
		}
		hy, hm, hd := h.Time.Date()
		if hy != y || hm != m || hd != d {
			continue
		}
		out = append(out, h.Time)
	}
	return out
}

// RainLater reports whether rain is forecast for the rest of the local day.
func (s *Snapshot) RainLater() bool {
	return len(s.RainHours()) > 0
}

// Condition is a coarse weather category.
type Condition string

const (
	ConditionClear        Condition = "CLEAR"
	ConditionClouds       Condition = "CLOUDS"
	ConditionFog          Condition = "FOG"
	ConditionDrizzle      Condition = "DRIZZLE"
	ConditionRain         Condition = "RAIN"
	ConditionSnow         Condition = "SNOW"
	ConditionThunderstorm Condition = "THUNDERSTORM"
	ConditionUnknown      Condition = "UNKNOWN"
)

// Wet reports whether the condition involves falling water.
func (c Condition) Wet() bool {
	switch c {
	case ConditionDrizzle, ConditionRain, ConditionThunderstorm:
		return true
	}
	return false
}

var wmoDescriptions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	56: "Light freezing drizzle",
	57: "Dense freezing drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	66: "Light freezing rain",
	67: "Heavy freezing rain",
	71: "Slight snowfall",
	73: "Moderate snowfall",
	75: "Heavy snowfall",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

// DescribeWMO returns the condition and description for a WMO weather interpretation code.
func DescribeWMO(code int) (Condition, string) {
	desc, ok := wmoDescriptions[code]
	if !ok {
		return ConditionUnknown, "Unknown conditions"
	}

	switch {
	case code <= 1:
		return ConditionClear, desc
	case code <= 3:
		return ConditionClouds, desc
	case code == 45 || code == 48:
		return ConditionFog, desc
	case code >= 51 && code <= 57:
		return ConditionDrizzle, desc
	case (code >= 61 && code <= 67) || (code >= 80 && code <= 82):
		return ConditionRain, desc
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return ConditionSnow, desc
	default:
		return ConditionThunderstorm, desc
	}
}
