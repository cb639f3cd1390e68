package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smartirrigation/smartirrigation/internal/api/middleware"
	"github.com/smartirrigation/smartirrigation/internal/api/models"
)

func TestRequireJSON(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		contentType string
		wantStatus  int
	}{
		{name: "json accepted", method: http.MethodPost, contentType: "application/json", wantStatus: http.StatusNoContent},
		{name: "json with charset accepted", method: http.MethodPut, contentType: "application/json; charset=utf-8", wantStatus: http.StatusNoContent},
		{name: "missing accepted", method: http.MethodPost, contentType: "", wantStatus: http.StatusNoContent},
		{name: "form rejected", method: http.MethodPost, contentType: "application/x-www-form-urlencoded", wantStatus: http.StatusUnsupportedMediaType},
		{name: "malformed rejected", method: http.MethodPatch, contentType: ";;", wantStatus: http.StatusUnsupportedMediaType},
		{name: "get ignored", method: http.MethodGet, contentType: "text/plain", wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.RequireJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}))

			req := httptest.NewRequest(tt.method, "/v1/plots", strings.NewReader("{}"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusUnsupportedMediaType {
				assert.Contains(t, w.Body.String(), string(models.ProblemTypeUnsupportedMediaType))
			}
		})
	}
}

func TestContentTypeJSON(t *testing.T) {
	handler := middleware.ContentTypeJSON(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}
