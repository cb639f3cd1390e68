// Package main provides the entrypoint for the irrigation API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartirrigation/smartirrigation/internal/api"
	"github.com/smartirrigation/smartirrigation/internal/api/handler"
	"github.com/smartirrigation/smartirrigation/internal/api/middleware"
	"github.com/smartirrigation/smartirrigation/internal/app"
	"github.com/smartirrigation/smartirrigation/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "smartirrigation-api"

func main() {
	if err := app.LoadDotEnv(); err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("failed to load environment")
	}

	cfg := app.ConfigFromEnv()
	log := app.NewLogger(serviceName, Version, cfg.Environment)
	log.Info().Str("build_time", BuildTime).Msg("starting irrigation API")

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped")
}

func run(cfg app.Config, log zerolog.Logger) error {
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
	if telemetryCfg.Enabled {
		log.Info().Str("otlp_endpoint", telemetryCfg.OTLPEndpoint).Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics(telemetry.Meter(serviceName))
	if err != nil {
		return err
	}

	services, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer services.Close()

	adminKey := os.Getenv("ADMIN_API_KEY")
	if adminKey == "" {
		log.Info().Msg("ADMIN_API_KEY not set, admin API disabled")
	}
	requireTLS, _ := strconv.ParseBool(os.Getenv("REQUIRE_TLS"))

	ops := handler.OpsConfig{
		Version:   Version,
		BuildTime: BuildTime,
		Providers: services.Providers,
		Weather:   services.Weather,
		Flags:     services.Flags,
		Logger:    log,
	}
	if services.Pool != nil {
		ops.Database = services.Pool
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:             log,
		Metrics:            metrics,
		RequireTLS:         requireTLS,
		AdminAPIKey:        adminKey,
		Ops:                ops,
		Engine:             services.Engine,
		Advisor:            services.Advisor,
		PlotService:        services.Plots,
		FeatureFlagService: services.Flags,
	})

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
