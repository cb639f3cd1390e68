package models

// Plot represents a saved cultivated plot.
type Plot struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CropName     string    `json:"cropName"`
	PlantingDate Date      `json:"plantingDate"`
	SoilName     string    `json:"soilName"`
	AreaM2       float64   `json:"areaM2"`
	Location     Point     `json:"location"`
	LocationName *string   `json:"locationName,omitempty"`
	CreatedAt    Timestamp `json:"createdAt"`
	UpdatedAt    Timestamp `json:"updatedAt"`
}

// PlotCreateRequest is the body of POST /plots.
type PlotCreateRequest struct {
	Name         string  `json:"name"`
	CropName     string  `json:"cropName"`
	PlantingDate Date    `json:"plantingDate"`
	SoilName     string  `json:"soilName"`
	AreaM2       float64 `json:"areaM2"`
	Location     Point   `json:"location"`
}

// PlotUpdateRequest is the body of PATCH /plots/{plotId}. Nil fields are left unchanged.
type PlotUpdateRequest struct {
	Name         *string  `json:"name,omitempty"`
	CropName     *string  `json:"cropName,omitempty"`
	PlantingDate *Date    `json:"plantingDate,omitempty"`
	SoilName     *string  `json:"soilName,omitempty"`
	AreaM2       *float64 `json:"areaM2,omitempty"`
	Location     *Point   `json:"location,omitempty"`
}

// PagedPlots represents a paginated list of plots.
type PagedPlots struct {
	Items []Plot            `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}

// IrrigationEvent records a completed irrigation.
type IrrigationEvent struct {
	ID           string    `json:"id"`
	PlotID       string    `json:"plotId"`
	IrrigatedAt  Timestamp `json:"irrigatedAt"`
	VolumeLiters float64   `json:"volumeLiters"`
	LitersPerM2  float64   `json:"litersPerM2"`
	Note         *string   `json:"note,omitempty"`
	CreatedAt    Timestamp `json:"createdAt"`
}

// IrrigationEventCreateRequest is the body of POST /plots/{plotId}/irrigations.
// IrrigatedAt defaults to now. VolumeLiters defaults to the current recommendation's total.
type IrrigationEventCreateRequest struct {
	IrrigatedAt  *Timestamp `json:"irrigatedAt,omitempty"`
	VolumeLiters *float64   `json:"volumeLiters,omitempty"`
	Note         *string    `json:"note,omitempty"`
}

// IrrigationEvents is the list response for a plot's irrigation log.
type IrrigationEvents struct {
	Items []IrrigationEvent `json:"items"`
}
