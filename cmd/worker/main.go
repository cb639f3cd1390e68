// Package main provides the entrypoint for the advisory worker. It recomputes
// advice for every plot on a schedule or when a Pub/Sub job arrives, and
// exposes health endpoints for the platform.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/smartirrigation/smartirrigation/internal/api/models"
	"github.com/smartirrigation/smartirrigation/internal/api/response"
	"github.com/smartirrigation/smartirrigation/internal/app"
	"github.com/smartirrigation/smartirrigation/internal/telemetry"
	"github.com/smartirrigation/smartirrigation/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "smartirrigation-worker"

func main() {
	if err := app.LoadDotEnv(); err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("failed to load environment")
	}

	cfg := app.ConfigFromEnv()
	log := app.NewLogger(serviceName, Version, cfg.Environment)
	log.Info().Str("build_time", BuildTime).Msg("starting advisory worker")

	if err := run(cfg, worker.ConfigFromEnv(), log); err != nil {
		log.Fatal().Err(err).Msg("worker stopped with error")
	}
	log.Info().Msg("worker stopped")
}

func run(cfg app.Config, workerCfg worker.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetryCfg := telemetry.ConfigFromEnv(serviceName, Version)
	tp, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	services, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer services.Close()

	job, err := worker.NewAdvisoryJob(worker.AdvisoryJobConfig{
		Config:  workerCfg,
		Advisor: services.Advisor,
		Plots:   services.Plots,
		Weather: services.Weather,
		Flags:   services.Flags,
		Logger:  log,
		Meter:   telemetry.Meter(serviceName),
	})
	if err != nil {
		return err
	}
	dispatcher := worker.NewDispatcher(job, log)

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           healthRouter(job),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
			stop()
		}
	}()

	if workerCfg.PubSubProjectID != "" {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        workerCfg.PubSubProjectID,
			SubscriptionName: workerCfg.PubSubSubscription,
			Dispatcher:       dispatcher,
			Logger:           log,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := handler.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close Pub/Sub client")
			}
		}()
		if err := handler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	} else {
		worker.Schedule(ctx, dispatcher, workerCfg.Interval, log)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// healthRouter serves liveness, readiness (a weather probe) and job statistics.
func healthRouter(job *worker.AdvisoryJob) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, models.Health{
			Status:  models.HealthStatusOK,
			Time:    models.Timestamp(time.Now().UTC()),
			Details: map[string]any{"version": Version},
		})
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := job.HealthCheck(r.Context()); err != nil {
			response.ServiceUnavailable(w, r, err.Error())
			return
		}
		response.JSON(w, r, http.StatusOK, models.Health{
			Status: models.HealthStatusOK,
			Time:   models.Timestamp(time.Now().UTC()),
		})
	})
	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, job.Stats())
	})
	return r
}
