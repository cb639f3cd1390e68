package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartirrigation/smartirrigation/internal/api/middleware"
	"github.com/smartirrigation/smartirrigation/internal/api/models"
)

func limitedHandler(limit int) http.Handler {
	cfg := middleware.RateLimitConfig{RequestLimit: limit, WindowLength: time.Minute}
	return middleware.RateLimitByIP(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func requestFrom(ip string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/v1/recommendations:compute", http.NoBody)
	req.RemoteAddr = ip + ":1234"
	return req
}

func TestRateLimitByIP_BlocksOverLimit(t *testing.T) {
	handler := limitedHandler(3)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestFrom("10.0.0.1"))
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

	var problem models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, models.ProblemTypeTooManyRequests, problem.Type)
	assert.Equal(t, "/v1/recommendations:compute", problem.Instance)
}

func TestRateLimitByIP_SeparateClients(t *testing.T) {
	handler := limitedHandler(1)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom("10.0.0.1"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom("10.0.0.2"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimitConfigs(t *testing.T) {
	assert.Equal(t, 30, middleware.ComputeRateLimit.RequestLimit)
	assert.Equal(t, 100, middleware.StandardRateLimit.RequestLimit)
	assert.Equal(t, 20, middleware.AdminRateLimit.RequestLimit)
	assert.Equal(t, time.Minute, middleware.StandardRateLimit.WindowLength)
}
