// Package handler provides the HTTP handlers of the irrigation API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/smartirrigation/smartirrigation/internal/advisor"
	"github.com/smartirrigation/smartirrigation/internal/api/models"
	"github.com/smartirrigation/smartirrigation/internal/api/response"
	"github.com/smartirrigation/smartirrigation/internal/featureflags"
	"github.com/smartirrigation/smartirrigation/internal/irrigation"
	"github.com/smartirrigation/smartirrigation/internal/plot"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
// It writes the 400 itself and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		detail := "invalid JSON body: " + err.Error()
		if errors.Is(err, io.EOF) {
			detail = "request body is required"
		}
		response.BadRequest(w, r, detail, nil)
		return false
	}
	if dec.More() {
		response.BadRequest(w, r, "request body must contain a single JSON object", nil)
		return false
	}
	return true
}

// queryLimit parses the optional "limit" query parameter.
func queryLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > 200 {
		response.BadRequest(w, r, "invalid query parameter", []models.FieldError{
			{Field: "limit", Message: "must be an integer between 1 and 200", Code: "out_of_range"},
		})
		return 0, false
	}
	return limit, true
}

// writeError maps service errors to problem responses. Unexpected errors are
// logged and reported as 500 without their message.
func writeError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error) {
	var (
		inputErr       *irrigation.ValidationError
		plotErr        *plot.ValidationError
		unavailableErr *advisor.UnavailableError
	)
	switch {
	case errors.As(err, &plotErr):
		response.BadRequest(w, r, "validation failed", plotErr.Errors)
	case errors.As(err, &inputErr):
		response.BadRequest(w, r, inputErr.Error(), []models.FieldError{
			{Field: inputErr.Field, Message: inputErr.Reason, Code: "invalid"},
		})
	case errors.As(err, &unavailableErr):
		log.Warn().Err(unavailableErr.Err).Str("path", r.URL.Path).Msg("recommendation unavailable")
		response.RecommendationUnavailable(w, r, unavailableErr.Err.Error())
	case errors.Is(err, plot.ErrPlotNotFound):
		response.NotFound(w, r, "plot not found")
	case errors.Is(err, featureflags.ErrFlagNotFound):
		response.NotFound(w, r, "feature flag not found")
	case errors.Is(err, featureflags.ErrInvalidFlag):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		response.ServiceUnavailable(w, r, "request timed out")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		response.InternalError(w, r, "an unexpected error occurred")
	}
}
