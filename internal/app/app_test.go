package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartirrigation/smartirrigation/internal/app"
	"github.com/smartirrigation/smartirrigation/internal/geocode"
	"github.com/smartirrigation/smartirrigation/internal/weather/openmeteo"
)

func TestConfigFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"ENVIRONMENT", "DATABASE_URL", "DB_HOST", "WEATHER_CACHE_TTL", "GEOCODER_ENABLED", "FLAG_CACHE_TTL"} {
		t.Setenv(key, "")
	}

	cfg := app.ConfigFromEnv()

	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.Database.Enabled())
	assert.Equal(t, 10*time.Minute, cfg.WeatherCacheTTL)
	assert.Equal(t, time.Minute, cfg.FlagCacheTTL)
	assert.True(t, cfg.GeocoderEnabled)
	assert.Equal(t, "fr", cfg.GeocoderLanguage)
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("WEATHER_CACHE_TTL", "30m")
	t.Setenv("GEOCODER_ENABLED", "false")
	t.Setenv("OPEN_METEO_URL", "http://meteo.test")
	t.Setenv("FLAG_CACHE_TTL", "-1s")

	cfg := app.ConfigFromEnv()

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 30*time.Minute, cfg.WeatherCacheTTL)
	assert.False(t, cfg.GeocoderEnabled)
	assert.Equal(t, "http://meteo.test", cfg.WeatherBaseURL)
	assert.Equal(t, time.Minute, cfg.FlagCacheTTL)
}

func TestNew_InMemory(t *testing.T) {
	cfg := app.Config{GeocoderEnabled: true, WeatherCacheTTL: time.Minute, FlagCacheTTL: time.Minute}

	svc, err := app.New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	assert.Nil(t, svc.Pool)
	assert.NotNil(t, svc.Advisor)
	assert.Same(t, svc.Engine, svc.Advisor.Engine())
	assert.Equal(t, openmeteo.ProviderName, svc.Weather.ProviderName())

	names := make([]string, 0, 2)
	for _, h := range svc.Providers.Snapshot() {
		names = append(names, h.Name)
	}
	assert.Equal(t, []string{geocode.ProviderName, openmeteo.ProviderName}, names)

	assert.False(t, svc.Flags.AdvisoryPaused(context.Background()))
}

func TestNewLogger_Level(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	log := app.NewLogger("test", "v0", "production")
	assert.Equal(t, zerolog.WarnLevel, log.GetLevel())

	t.Setenv("LOG_LEVEL", "bogus")
	log = app.NewLogger("test", "v0", "production")
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, app.LoadDotEnv(), "a missing .env is not an error")

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("IRRIGATION_DOTENV_TEST=loaded\n"), 0o600))
	t.Setenv("IRRIGATION_DOTENV_TEST", "")
	require.NoError(t, os.Unsetenv("IRRIGATION_DOTENV_TEST"))

	require.NoError(t, app.LoadDotEnv())
	assert.Equal(t, "loaded", os.Getenv("IRRIGATION_DOTENV_TEST"))
}
