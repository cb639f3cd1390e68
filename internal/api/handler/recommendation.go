package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/smartirrigation/smartirrigation/internal/api/models"
	"github.com/smartirrigation/smartirrigation/internal/api/response"
)

// Advisor produces irrigation advice. *advisor.Service implements it.
type Advisor interface {
	ForPlot(ctx context.Context, plotID string) (*models.Advice, error)
	Compute(ctx context.Context, req *models.ComputeRequest) (*models.Advice, error)
}

// RecommendationHandler handles recommendation endpoints.
type RecommendationHandler struct {
	advisor Advisor
	logger  zerolog.Logger
}

// NewRecommendationHandler creates a new RecommendationHandler.
func NewRecommendationHandler(advisor Advisor, logger zerolog.Logger) *RecommendationHandler {
	return &RecommendationHandler{advisor: advisor, logger: logger}
}

// Compute handles POST /v1/recommendations:compute - ad-hoc advice from
// supplied weather or from the weather at a location.
func (h *RecommendationHandler) Compute(w http.ResponseWriter, r *http.Request) {
	var req models.ComputeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	advice, err := h.advisor.Compute(r.Context(), &req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, advice)
}

// ForPlot handles GET /v1/plots/{plotId}/recommendation.
func (h *RecommendationHandler) ForPlot(w http.ResponseWriter, r *http.Request) {
	advice, err := h.advisor.ForPlot(r.Context(), chi.URLParam(r, "plotId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, advice)
}
