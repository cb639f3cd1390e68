package models

// CropInfo describes one crop of the coefficient table.
type CropInfo struct {
	Name         string             `json:"name"`
	Aliases      []string           `json:"aliases,omitempty"`
	Coefficients map[string]float64 `json:"coefficients"`
}

// SoilInfo describes one soil of the profile table.
type SoilInfo struct {
	Name                   string   `json:"name"`
	Aliases                []string `json:"aliases,omitempty"`
	WaterRetentionCapacity float64  `json:"waterRetentionCapacity"`
	IrrigationIntervalDays int      `json:"irrigationIntervalDays"`
}

// Crops lists the known crops and the fallback coefficient.
type Crops struct {
	Items      []CropInfo `json:"items"`
	FallbackKc float64    `json:"fallbackKc"`
}

// Soils lists the known soils and the fallback profile.
type Soils struct {
	Items    []SoilInfo `json:"items"`
	Fallback SoilInfo   `json:"fallback"`
}
