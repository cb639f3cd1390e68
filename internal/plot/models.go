// Package plot manages saved cultivated plots and their irrigation log.
package plot

import (
	"errors"
	"time"
)

var (
	ErrPlotNotFound  = errors.New("plot not found")
	ErrEventNotFound = errors.New("irrigation event not found")
)

// Plot is a cultivated field with the crop, soil and area the recommendation is computed for.
type Plot struct {
	ID           string
	Name         string
	CropName     string
	PlantingDate time.Time
	SoilName     string
	AreaM2       float64
	Location     Point
	LocationName *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Point is a geographic coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// IrrigationEvent records that a plot was irrigated.
type IrrigationEvent struct {
	ID           string
	PlotID       string
	IrrigatedAt  time.Time
	VolumeLiters float64
	LitersPerM2  float64
	Note         *string
	CreatedAt    time.Time
}
