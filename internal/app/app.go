// Package app wires the services shared by the API server and the worker.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/smartirrigation/smartirrigation/internal/advisor"
	"github.com/smartirrigation/smartirrigation/internal/database"
	"github.com/smartirrigation/smartirrigation/internal/featureflags"
	"github.com/smartirrigation/smartirrigation/internal/geocode"
	"github.com/smartirrigation/smartirrigation/internal/irrigation"
	"github.com/smartirrigation/smartirrigation/internal/plot"
	"github.com/smartirrigation/smartirrigation/internal/provider/resilience"
	"github.com/smartirrigation/smartirrigation/internal/weather"
	"github.com/smartirrigation/smartirrigation/internal/weather/openmeteo"
)

const userAgent = "SmartIrrigation/1.0 (+https://smartirrigation.dev)"

// Config holds the settings of the shared services.
type Config struct {
	Environment string
	Database    database.Config

	WeatherBaseURL  string
	WeatherCacheTTL time.Duration

	// GeocoderEnabled turns on plot location names through Nominatim.
	GeocoderEnabled  bool
	GeocoderBaseURL  string
	GeocoderLanguage string

	FlagCacheTTL time.Duration
}

// ConfigFromEnv reads the shared configuration from the environment.
func ConfigFromEnv() Config {
	geocoderEnabled, err := strconv.ParseBool(getEnvOrDefault("GEOCODER_ENABLED", "true"))
	if err != nil {
		geocoderEnabled = true
	}
	weatherTTL, err := time.ParseDuration(getEnvOrDefault("WEATHER_CACHE_TTL", "10m"))
	if err != nil || weatherTTL <= 0 {
		weatherTTL = 10 * time.Minute
	}
	flagTTL, err := time.ParseDuration(getEnvOrDefault("FLAG_CACHE_TTL", "1m"))
	if err != nil || flagTTL <= 0 {
		flagTTL = time.Minute
	}

	return Config{
		Environment:      getEnvOrDefault("ENVIRONMENT", "development"),
		Database:         database.ConfigFromEnv(),
		WeatherBaseURL:   os.Getenv("OPEN_METEO_URL"),
		WeatherCacheTTL:  weatherTTL,
		GeocoderEnabled:  geocoderEnabled,
		GeocoderBaseURL:  os.Getenv("NOMINATIM_URL"),
		GeocoderLanguage: getEnvOrDefault("GEOCODER_LANGUAGE", "fr"),
		FlagCacheTTL:     flagTTL,
	}
}

// Services is the assembled service graph.
type Services struct {
	// Pool is nil when no database is configured.
	Pool      *pgxpool.Pool
	Providers *resilience.Registry
	Engine    *irrigation.Engine
	Weather   *weather.Service
	Plots     *plot.Service
	Flags     *featureflags.Service
	Advisor   *advisor.Service
}

// New connects to the database when one is configured, runs migrations, and
// builds the services. Without a database, in-memory repositories are used.
func New(ctx context.Context, cfg Config, log zerolog.Logger) (*Services, error) {
	s := &Services{
		Providers: resilience.NewRegistry(),
		Engine:    irrigation.NewEngine(),
	}

	var (
		plotRepo plot.Repository
		flagRepo featureflags.Repository
	)
	if cfg.Database.Enabled() {
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
		s.Pool = pool
		plotRepo = plot.NewPostgresRepository(pool)
		flagRepo = featureflags.NewPostgresRepository(pool)
		log.Info().
			Str("host", cfg.Database.Host).
			Str("database", cfg.Database.Database).
			Msg("database connected")
	} else {
		plotRepo = plot.NewInMemoryRepository()
		flagRepo = featureflags.NewInMemoryRepository()
		log.Warn().Msg("no database configured, using in-memory storage")
	}

	weatherClient := resilience.DefaultClientConfig(openmeteo.ProviderName)
	weatherClient.UserAgent = userAgent
	weatherClient.Registry = s.Providers
	s.Weather = weather.NewService(weather.ServiceConfig{
		Provider: openmeteo.NewClient(openmeteo.ClientConfig{
			BaseURL:    cfg.WeatherBaseURL,
			HTTPClient: resilience.NewClient(weatherClient),
			Logger:     log,
		}),
		Logger:   log,
		CacheTTL: cfg.WeatherCacheTTL,
	})

	var geocoder plot.Geocoder
	if cfg.GeocoderEnabled {
		geoClient := resilience.DefaultClientConfig(geocode.ProviderName)
		geoClient.UserAgent = userAgent
		geoClient.Registry = s.Providers
		geocoder = geocode.NewNominatim(geocode.Config{
			BaseURL:    cfg.GeocoderBaseURL,
			Language:   cfg.GeocoderLanguage,
			HTTPClient: resilience.NewClient(geoClient),
			Logger:     log,
		})
	}

	s.Flags = featureflags.NewService(featureflags.ServiceConfig{
		Repository: flagRepo,
		Logger:     log,
		CacheTTL:   cfg.FlagCacheTTL,
	})
	s.Plots = plot.NewService(plot.ServiceConfig{
		Repository: plotRepo,
		Geocoder:   geocoder,
		Logger:     log,
	})

	adv, err := advisor.New(advisor.Config{
		Engine:  s.Engine,
		Weather: s.Weather,
		Plots:   s.Plots,
		Flags:   s.Flags,
		Logger:  log,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating advisor: %w", err)
	}
	s.Advisor = adv

	return s, nil
}

// Close releases the database pool.
func (s *Services) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// NewLogger returns the process logger: human-readable in development, JSON otherwise.
func NewLogger(serviceName, version, environment string) zerolog.Logger {
	var log zerolog.Logger
	if environment == "development" {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log = zerolog.New(os.Stdout)
	}

	level, err := zerolog.ParseLevel(getEnvOrDefault("LOG_LEVEL", "info"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return log.Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", version).
		Logger()
}

// LoadDotEnv loads a .env file from the working directory when present.
// Variables already set in the environment win.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
