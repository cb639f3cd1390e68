package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/smartirrigation/smartirrigation/internal/api/response"
	"github.com/smartirrigation/smartirrigation/internal/featureflags"
)

// FeatureFlagsHandler handles the admin feature flag endpoints.
type FeatureFlagsHandler struct {
	service *featureflags.Service
	logger  zerolog.Logger
}

// NewFeatureFlagsHandler creates a new FeatureFlagsHandler.
func NewFeatureFlagsHandler(service *featureflags.Service, logger zerolog.Logger) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{service: service, logger: logger}
}

type flagValueRequest struct {
	Value  any    `json:"value"`
	Reason string `json:"reason"`
}

// ListFeatureFlags handles GET /v1/admin/feature-flags.
func (h *FeatureFlagsHandler) ListFeatureFlags(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, featureflags.List(h.service.GetAllFlags(r.Context())))
}

// GetFeatureFlag handles GET /v1/admin/feature-flags/{key}.
func (h *FeatureFlagsHandler) GetFeatureFlag(w http.ResponseWriter, r *http.Request) {
	flag := h.service.GetFlag(r.Context(), chi.URLParam(r, "key"))
	if flag == nil {
		writeError(w, r, h.logger, featureflags.ErrFlagNotFound)
		return
	}
	response.JSON(w, r, http.StatusOK, flag)
}

// UpsertFeatureFlags handles PUT /v1/admin/feature-flags. All updates are
// validated before any is stored.
func (h *FeatureFlagsHandler) UpsertFeatureFlags(w http.ResponseWriter, r *http.Request) {
	var req featureflags.FlagUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Updates) == 0 {
		response.BadRequest(w, r, "at least one update is required", nil)
		return
	}

	if err := h.service.SetFlags(r.Context(), req.Updates); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.audit(req.Updates, req.Reason)
	response.JSON(w, r, http.StatusOK, featureflags.List(h.service.GetAllFlags(r.Context())))
}

// SetFeatureFlag handles PUT /v1/admin/feature-flags/{key}.
func (h *FeatureFlagsHandler) SetFeatureFlag(w http.ResponseWriter, r *http.Request) {
	var req flagValueRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	update := featureflags.FlagUpdate{Key: chi.URLParam(r, "key"), Value: req.Value}
	if err := h.service.SetFlags(r.Context(), []featureflags.FlagUpdate{update}); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.audit([]featureflags.FlagUpdate{update}, req.Reason)
	response.JSON(w, r, http.StatusOK, h.service.GetFlag(r.Context(), update.Key))
}

// ResetFeatureFlag handles DELETE /v1/admin/feature-flags/{key}. The flag
// reverts to its default and the default is returned.
func (h *FeatureFlagsHandler) ResetFeatureFlag(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := h.service.ResetFlag(r.Context(), key); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info().Str("flag", key).Msg("feature flag reset to default")
	response.JSON(w, r, http.StatusOK, h.service.GetFlag(r.Context(), key))
}

// InvalidateCache handles POST /v1/admin/feature-flags:invalidate.
func (h *FeatureFlagsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.service.InvalidateCache()
	h.logger.Info().Msg("feature flag cache invalidated")
	response.NoContent(w, r)
}

func (h *FeatureFlagsHandler) audit(updates []featureflags.FlagUpdate, reason string) {
	for _, u := range updates {
		h.logger.Info().
			Str("flag", u.Key).
			Interface("value", u.Value).
			Str("reason", reason).
			Msg("feature flag updated")
	}
}
