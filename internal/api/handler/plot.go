package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/smartirrigation/smartirrigation/internal/api/models"
	"github.com/smartirrigation/smartirrigation/internal/api/response"
	"github.com/smartirrigation/smartirrigation/internal/plot"
)

// PlotHandler handles plot and irrigation log endpoints.
type PlotHandler struct {
	plots   *plot.Service
	advisor Advisor
	logger  zerolog.Logger
}

// NewPlotHandler creates a new PlotHandler. The advisor supplies the default
// volume when an irrigation is recorded without one.
func NewPlotHandler(plots *plot.Service, advisor Advisor, logger zerolog.Logger) *PlotHandler {
	return &PlotHandler{plots: plots, advisor: advisor, logger: logger}
}

// ListPlots handles GET /v1/plots.
func (h *PlotHandler) ListPlots(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}

	page, err := h.plots.List(r.Context(), limit, r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, page)
}

// CreatePlot handles POST /v1/plots.
func (h *PlotHandler) CreatePlot(w http.ResponseWriter, r *http.Request) {
	var input models.PlotCreateRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	p, err := h.plots.Create(r.Context(), &input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info().Str("plot_id", p.ID).Str("crop", p.CropName).Msg("plot created")
	response.Created(w, r, "/v1/plots/"+p.ID, p)
}

// GetPlot handles GET /v1/plots/{plotId}.
func (h *PlotHandler) GetPlot(w http.ResponseWriter, r *http.Request) {
	p, err := h.plots.Get(r.Context(), chi.URLParam(r, "plotId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, p)
}

// UpdatePlot handles PATCH /v1/plots/{plotId}.
func (h *PlotHandler) UpdatePlot(w http.ResponseWriter, r *http.Request) {
	var input models.PlotUpdateRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	p, err := h.plots.Update(r.Context(), chi.URLParam(r, "plotId"), &input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, p)
}

// DeletePlot handles DELETE /v1/plots/{plotId}. The irrigation log goes with it.
func (h *PlotHandler) DeletePlot(w http.ResponseWriter, r *http.Request) {
	plotID := chi.URLParam(r, "plotId")
	if err := h.plots.Delete(r.Context(), plotID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info().Str("plot_id", plotID).Msg("plot deleted")
	response.NoContent(w, r)
}

// ListIrrigations handles GET /v1/plots/{plotId}/irrigations, most recent first.
func (h *PlotHandler) ListIrrigations(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}

	events, err := h.plots.Events(r.Context(), chi.URLParam(r, "plotId"), limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, events)
}

// MarkIrrigated handles POST /v1/plots/{plotId}/irrigations. Without a
// volume, the total of the current recommendation is recorded.
func (h *PlotHandler) MarkIrrigated(w http.ResponseWriter, r *http.Request) {
	plotID := chi.URLParam(r, "plotId")

	var input models.IrrigationEventCreateRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	var defaultVolume float64
	if input.VolumeLiters == nil {
		advice, err := h.advisor.ForPlot(r.Context(), plotID)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		defaultVolume = advice.Recommendation.TotalLiters
	}

	event, err := h.plots.MarkIrrigated(r.Context(), plotID, &input, defaultVolume)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.Created(w, r, "/v1/plots/"+plotID+"/irrigations", event)
}
