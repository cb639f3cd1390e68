// Package api assembles the HTTP API of the irrigation service.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/smartirrigation/smartirrigation/internal/api/handler"
	"github.com/smartirrigation/smartirrigation/internal/api/middleware"
	"github.com/smartirrigation/smartirrigation/internal/featureflags"
	"github.com/smartirrigation/smartirrigation/internal/irrigation"
	"github.com/smartirrigation/smartirrigation/internal/plot"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger  zerolog.Logger
	Metrics *middleware.Metrics

	// RequireTLS rejects requests forwarded over plain HTTP.
	RequireTLS bool

	// AdminAPIKey guards the admin routes, which are not mounted when it is empty.
	AdminAPIKey string

	Ops                handler.OpsConfig
	Engine             *irrigation.Engine
	Advisor            handler.Advisor
	PlotService        *plot.Service
	FeatureFlagService *featureflags.Service
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Order matters: the request ID must exist before tracing and logging read it.
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing())
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.RequireJSON)

	opsHandler := handler.NewOpsHandler(cfg.Ops)
	metadataHandler := handler.NewMetadataHandler(cfg.Engine)
	recommendationHandler := handler.NewRecommendationHandler(cfg.Advisor, cfg.Logger)
	plotHandler := handler.NewPlotHandler(cfg.PlotService, cfg.Advisor, cfg.Logger)

	computeRateLimit := middleware.RateLimitByIP(middleware.ComputeRateLimit)
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(standardRateLimit).Get("/status", opsHandler.SystemStatus)
		})

		r.Route("/metadata", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/crops", metadataHandler.ListCrops)
			r.Get("/soils", metadataHandler.ListSoils)
		})

		// Computing calls the weather provider, hence the stricter limit.
		r.With(computeRateLimit).Post("/recommendations:compute", recommendationHandler.Compute)

		r.Route("/plots", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/", plotHandler.ListPlots)
			r.Post("/", plotHandler.CreatePlot)
			r.Route("/{plotId}", func(r chi.Router) {
				r.Get("/", plotHandler.GetPlot)
				r.Patch("/", plotHandler.UpdatePlot)
				r.Delete("/", plotHandler.DeletePlot)
				r.With(computeRateLimit).Get("/recommendation", recommendationHandler.ForPlot)
				r.Get("/irrigations", plotHandler.ListIrrigations)
				r.Post("/irrigations", plotHandler.MarkIrrigated)
			})
		})

		if cfg.AdminAPIKey != "" && cfg.FeatureFlagService != nil {
			flagsHandler := handler.NewFeatureFlagsHandler(cfg.FeatureFlagService, cfg.Logger)
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RateLimitByIP(middleware.AdminRateLimit))
				r.Use(middleware.AdminKey(cfg.AdminAPIKey))

				r.Get("/feature-flags", flagsHandler.ListFeatureFlags)
				r.Put("/feature-flags", flagsHandler.UpsertFeatureFlags)
				r.Post("/feature-flags:invalidate", flagsHandler.InvalidateCache)
				r.Get("/feature-flags/{key}", flagsHandler.GetFeatureFlag)
				r.Put("/feature-flags/{key}", flagsHandler.SetFeatureFlag)
				r.Delete("/feature-flags/{key}", flagsHandler.ResetFeatureFlag)
			})
		}
	})

	return r
}
