package models

import "github.com/smartirrigation/smartirrigation/internal/irrigation"

// ComputeRequest is the body of POST /recommendations:compute.
// Either Weather or Location must be given; Weather wins when both are.
type ComputeRequest struct {
	Crop     CropInput     `json:"crop"`
	Soil     SoilInput     `json:"soil"`
	AreaM2   float64       `json:"areaM2"`
	Weather  *WeatherInput `json:"weather,omitempty"`
	Location *Point        `json:"location,omitempty"`
}

// CropInput identifies the crop.
type CropInput struct {
	Name         string `json:"name"`
	PlantingDate Date   `json:"plantingDate"`
}

// SoilInput names the soil. Retention and interval override the table profile when set.
type SoilInput struct {
	Name                   string   `json:"name"`
	WaterRetentionCapacity *float64 `json:"waterRetentionCapacity,omitempty"`
	IrrigationIntervalDays *int     `json:"irrigationIntervalDays,omitempty"`
}

// WeatherInput is a caller-supplied weather snapshot. Temperatures, humidity
// and hour are required. A nil radiation is replaced with the monthly
// estimate for ObservedOn, or for the server's current month when no
// observation date is given.
type WeatherInput struct {
	MaxTemperatureC       *float64 `json:"maxTemperatureC,omitempty"`
	MinTemperatureC       *float64 `json:"minTemperatureC,omitempty"`
	SolarRadiationMJm2Day *float64 `json:"solarRadiationMJm2day,omitempty"`
	RelativeHumidityPct   *float64 `json:"relativeHumidityPct,omitempty"`
	IsRainingNow          bool     `json:"isRainingNow"`
	RainForecastLater     bool     `json:"rainForecastLater"`
	HourOfDay             *int     `json:"hourOfDay,omitempty"`
	ObservedOn            *Date    `json:"observedOn,omitempty"`
}

// Advice wraps a recommendation with the context it was computed from.
type Advice struct {
	Recommendation irrigation.Recommendation `json:"recommendation"`
	PlotID         *string                   `json:"plotId,omitempty"`
	Weather        *WeatherSummary           `json:"weather,omitempty"`
	LastIrrigation *IrrigationEvent          `json:"lastIrrigation,omitempty"`
	GeneratedAt    Timestamp                 `json:"generatedAt"`
}

// WeatherSummary describes the weather snapshot behind a recommendation.
type WeatherSummary struct {
	Provider           string    `json:"provider"`
	Description        string    `json:"description"`
	Condition          string    `json:"condition"`
	TemperatureC       float64   `json:"temperatureC"`
	ObservedAt         Timestamp `json:"observedAt"`
	RainHours          []string  `json:"rainHours"`
	RadiationEstimated bool      `json:"radiationEstimated"`
}
