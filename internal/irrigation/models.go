// Package irrigation computes irrigation recommendations from crop, soil and
// weather inputs. Every function in this package is pure: no I/O, no shared
// mutable state, and safe for concurrent use.
package irrigation

import (
	"fmt"
	"strings"
	"time"
)

// GrowthStage is the phenological stage of a crop, ordered from planting to harvest.
type GrowthStage int

const (
	StageInitial GrowthStage = iota
	StageDevelopment
	StageFlowering
	StageMaturity
)

// Stages lists all growth stages in order.
var Stages = []GrowthStage{StageInitial, StageDevelopment, StageFlowering, StageMaturity}

func (s GrowthStage) String() string {
	switch s {
	case StageInitial:
		return "initial"
	case StageDevelopment:
		return "development"
	case StageFlowering:
		return "flowering"
	case StageMaturity:
		return "maturity"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s GrowthStage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *GrowthStage) UnmarshalText(b []byte) error {
	v, err := ParseGrowthStage(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseGrowthStage parses the lowercase stage name, ignoring case and surrounding space.
func ParseGrowthStage(s string) (GrowthStage, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, stage := range Stages {
		if stage.String() == name {
			return stage, nil
		}
	}
	return 0, fmt.Errorf("unknown growth stage %q", s)
}

// TimeOfDay is the half of the day an irrigation is scheduled for.
type TimeOfDay string

const (
	Morning TimeOfDay = "morning"
	Evening TimeOfDay = "evening"
)

// Window returns the fixed irrigation window for the time of day.
func (t TimeOfDay) Window() string {
	if t == Morning {
		return "06:00–08:00"
	}
	return "17:00–19:00"
}

// TimeOfDayForHour returns Morning for hours before noon and Evening otherwise.
func TimeOfDayForHour(hour int) TimeOfDay {
	if hour < 12 {
		return Morning
	}
	return Evening
}

// CropInput identifies a crop and when it was planted.
type CropInput struct {
	Name         string
	PlantingDate time.Time
}

// SoilInput holds the physical properties of a soil.
type SoilInput struct {
	Name                   string
	WaterRetentionCapacity float64 // mm/m
	IrrigationIntervalDays int

	// Fallback is set when Name did not match a known soil and the default profile was used.
	Fallback bool
}

// WeatherInput is a weather snapshot for a single recommendation.
type WeatherInput struct {
	MaxTemperatureC       float64
	MinTemperatureC       float64
	SolarRadiationMJm2Day float64
	RelativeHumidityPct   float64
	IsRainingNow          bool
	RainForecastLater     bool
	HourOfDay             int

	// RadiationEstimated is set when SolarRadiationMJm2Day came from the monthly table
	// rather than a measurement.
	RadiationEstimated bool
}

// Recommendation is the output of Engine.Generate.
type Recommendation struct {
	CropName            string      `json:"cropName"`
	SoilName            string      `json:"soilName"`
	LiterPerSquareMeter float64     `json:"literPerSquareMeter"`
	TotalLiters         float64     `json:"totalLiters"`
	FrequencyDays       int         `json:"frequencyDays"`
	TimeOfDay           TimeOfDay   `json:"timeOfDay"`
	OptimalTimeWindow   string      `json:"optimalTimeWindow"`
	ConstraintMessage   *string     `json:"constraintMessage"`
	ExplanatoryMessage  string      `json:"explanatoryMessage"`
	Stage               GrowthStage `json:"stage"`
	Kc                  float64     `json:"kc"`
	ET0                 float64     `json:"et0"`
	ETc                 float64     `json:"etc"`

	Constraint         ConstraintKind `json:"constraint,omitempty"`
	KcFallback         bool           `json:"kcFallback"`
	SoilFallback       bool           `json:"soilFallback"`
	RadiationEstimated bool           `json:"radiationEstimated"`
}
