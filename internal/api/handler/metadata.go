package handler

import (
	"net/http"

	"github.com/smartirrigation/smartirrigation/internal/api/models"
	"github.com/smartirrigation/smartirrigation/internal/api/response"
	"github.com/smartirrigation/smartirrigation/internal/irrigation"
)

// MetadataHandler serves the crop and soil tables the engine computes with.
type MetadataHandler struct {
	engine *irrigation.Engine
}

// NewMetadataHandler creates a new MetadataHandler.
func NewMetadataHandler(engine *irrigation.Engine) *MetadataHandler {
	return &MetadataHandler{engine: engine}
}

// ListCrops handles GET /v1/metadata/crops.
func (h *MetadataHandler) ListCrops(w http.ResponseWriter, r *http.Request) {
	table := h.engine.Crops()
	entries := table.Crops()

	crops := models.Crops{
		Items:      make([]models.CropInfo, 0, len(entries)),
		FallbackKc: table.Fallback(),
	}
	for _, e := range entries {
		coeffs := make(map[string]float64, len(e.Coefficients))
		for stage, kc := range e.Coefficients {
			coeffs[stage.String()] = kc
		}
		crops.Items = append(crops.Items, models.CropInfo{
			Name:         e.Name,
			Aliases:      e.Aliases,
			Coefficients: coeffs,
		})
	}
	response.JSON(w, r, http.StatusOK, crops)
}

// ListSoils handles GET /v1/metadata/soils.
func (h *MetadataHandler) ListSoils(w http.ResponseWriter, r *http.Request) {
	table := h.engine.Soils()
	entries := table.Soils()

	fallback := table.Lookup("")
	soils := models.Soils{
		Items: make([]models.SoilInfo, 0, len(entries)),
		Fallback: models.SoilInfo{
			Name:                   "default",
			WaterRetentionCapacity: fallback.WaterRetentionCapacity,
			IrrigationIntervalDays: fallback.IrrigationIntervalDays,
		},
	}
	for _, e := range entries {
		soils.Items = append(soils.Items, models.SoilInfo{
			Name:                   e.Name,
			Aliases:                e.Aliases,
			WaterRetentionCapacity: e.WaterRetentionCapacity,
			IrrigationIntervalDays: e.IrrigationIntervalDays,
		})
	}
	response.JSON(w, r, http.StatusOK, soils)
}
