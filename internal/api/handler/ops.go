package handler

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartirrigation/smartirrigation/internal/api/models"
	"github.com/smartirrigation/smartirrigation/internal/api/response"
	"github.com/smartirrigation/smartirrigation/internal/featureflags"
	"github.com/smartirrigation/smartirrigation/internal/provider/resilience"
	"github.com/smartirrigation/smartirrigation/internal/weather"
)

// Pinger checks a backing store. *pgxpool.Pool implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// WeatherCache reports weather cache statistics. *weather.Service implements it.
type WeatherCache interface {
	CacheStats() weather.CacheStats
}

// FlagReader lists feature flags. *featureflags.Service implements it.
type FlagReader interface {
	GetAllFlags(ctx context.Context) map[string]*featureflags.Flag
}

// OpsConfig wires the dependencies reported on the ops endpoints. Every
// field except Version is optional.
type OpsConfig struct {
	Version   string
	BuildTime string
	Database  Pinger
	Providers *resilience.Registry
	Weather   WeatherCache
	Flags     FlagReader
	Logger    zerolog.Logger
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{cfg: cfg}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now().UTC()),
		Details: map[string]any{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. It fails when the database is unreachable.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	db := h.database(r.Context())
	health := models.Health{
		Status:  db.Status,
		Time:    models.Timestamp(time.Now().UTC()),
		Details: map[string]any{"database": db.Status},
	}

	status := http.StatusOK
	if db.Status == models.HealthStatusFail {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, r, status, health)
}

// SystemStatus handles GET /v1/ops/status - subsystems, upstream circuit
// breakers, weather cache and enabled flags.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now().UTC()),
		Version:    h.cfg.Version,
		Subsystems: []models.SubsystemStatus{h.database(r.Context())},
		Providers:  h.providers(),
	}

	if h.cfg.Weather != nil {
		stats := h.cfg.Weather.CacheStats()
		status.WeatherCache = &models.WeatherCacheStats{
			Entries:      stats.Entries,
			FreshEntries: stats.FreshEntries,
			Hits:         stats.Hits,
			Misses:       stats.Misses,
			StaleServed:  stats.StaleServed,
		}
	}
	if h.cfg.Flags != nil {
		status.ActiveFlags = activeFlags(h.cfg.Flags.GetAllFlags(r.Context()))
	}

	for _, s := range status.Subsystems {
		status.Status = worst(status.Status, s.Status)
	}
	for _, p := range status.Providers {
		// An open breaker degrades the service without failing it; stale weather may still be served.
		if p.Status != models.HealthStatusOK {
			status.Status = worst(status.Status, models.HealthStatusDegraded)
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) database(ctx context.Context) models.SubsystemStatus {
	s := models.SubsystemStatus{Name: "database", Status: models.HealthStatusOK}
	if h.cfg.Database == nil {
		detail := "in-memory storage"
		s.Detail = &detail
		return s
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.cfg.Database.Ping(ctx); err != nil {
		h.cfg.Logger.Warn().Err(err).Msg("database ping failed")
		detail := "unreachable"
		s.Status = models.HealthStatusFail
		s.Detail = &detail
	}
	return s
}

func (h *OpsHandler) providers() []models.ProviderStatus {
	if h.cfg.Providers == nil {
		return []models.ProviderStatus{}
	}

	snapshot := h.cfg.Providers.Snapshot()
	out := make([]models.ProviderStatus, 0, len(snapshot))
	for _, ph := range snapshot {
		ps := models.ProviderStatus{
			Provider:      ph.Name,
			Status:        models.HealthStatusOK,
			CircuitState:  ph.State.String(),
			LastSuccessAt: timestampPtr(ph.LastSuccessAt),
			LastFailureAt: timestampPtr(ph.LastFailureAt),
		}
		switch {
		case ph.Degraded():
			ps.Status = models.HealthStatusDegraded
		case !ph.Healthy():
			ps.Status = models.HealthStatusFail
		}
		if ph.LastError != "" {
			msg := ph.LastError
			ps.Message = &msg
		}
		out = append(out, ps)
	}
	return out
}

// activeFlags names the flags that are switched on, plus non-boolean flags as key=value.
func activeFlags(flags map[string]*featureflags.Flag) []string {
	out := make([]string, 0, len(flags))
	for key, f := range flags {
		switch v := f.Value.(type) {
		case bool:
			if v {
				out = append(out, key)
			}
		default:
			out = append(out, fmt.Sprintf("%s=%v", key, v))
		}
	}
	sort.Strings(out)
	return out
}

func worst(a, b models.HealthStatus) models.HealthStatus {
	rank := map[models.HealthStatus]int{
		models.HealthStatusOK:       0,
		models.HealthStatusDegraded: 1,
		models.HealthStatusFail:     2,
	}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

func timestampPtr(t *time.Time) *models.Timestamp {
	if t == nil {
		return nil
	}
	ts := models.Timestamp(t.UTC())
	return &ts
}
