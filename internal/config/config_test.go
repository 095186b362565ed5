package config_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/weatherosm/internal/config"
	"github.com/neexbeast/weatherosm/internal/weather"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/weather")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("BEARER_TOKEN", "secret")
	t.Setenv("GEOPLANET_APP_ID", "app-id")
}

func clearOptional(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "MIGRATIONS_DIR", "NOMINATIM_URL", "GEOPLANET_URL", "WEATHER_FEED_URL",
		"HTTP_USER_AGENT", "HTTP_TIMEOUT", "PLACES_COUNT", "DEFAULT_UNITS",
		"REFRESH_INTERVAL", "LOCATION_MAX_AGE",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)
	clearOptional(t)

	cfg, err := config.Load(quiet)
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, weather.Fahrenheit, cfg.DefaultUnits)
	assert.Equal(t, 15*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, 10*time.Minute, cfg.LocationMaxAge)
	assert.Equal(t, "app-id", cfg.Endpoints.PlacesAppID)
	assert.Equal(t, 5, cfg.Endpoints.PlacesCount)
	assert.Equal(t, 10*time.Second, cfg.Endpoints.Timeout)
	assert.Equal(t, weather.DefaultUserAgent, cfg.Endpoints.UserAgent)
	assert.Empty(t, cfg.Endpoints.GeocodeURL)
	assert.Empty(t, cfg.MigrationsDir)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	clearOptional(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DEFAULT_UNITS", "C")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("PLACES_COUNT", "8")
	t.Setenv("REFRESH_INTERVAL", "5m")
	t.Setenv("LOCATION_MAX_AGE", "30m")
	t.Setenv("NOMINATIM_URL", "http://geo.local/reverse")
	t.Setenv("HTTP_USER_AGENT", "test-agent")

	cfg, err := config.Load(quiet)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, weather.Celsius, cfg.DefaultUnits)
	assert.Equal(t, 3*time.Second, cfg.Endpoints.Timeout)
	assert.Equal(t, 8, cfg.Endpoints.PlacesCount)
	assert.Equal(t, 5*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, 30*time.Minute, cfg.LocationMaxAge)
	assert.Equal(t, "http://geo.local/reverse", cfg.Endpoints.GeocodeURL)
	assert.Equal(t, "test-agent", cfg.Endpoints.UserAgent)
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequired(t)
	clearOptional(t)
	t.Setenv("BEARER_TOKEN", "")
	t.Setenv("GEOPLANET_APP_ID", "")

	_, err := config.Load(quiet)
	require.ErrorIs(t, err, config.ErrMissing)
	assert.Contains(t, err.Error(), "BEARER_TOKEN")
	assert.Contains(t, err.Error(), "GEOPLANET_APP_ID")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"DEFAULT_UNITS", "kelvin"},
		{"HTTP_TIMEOUT", "soon"},
		{"REFRESH_INTERVAL", "-1m"},
		{"LOCATION_MAX_AGE", "0s"},
		{"PLACES_COUNT", "many"},
		{"PLACES_COUNT", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			setRequired(t)
			clearOptional(t)
			t.Setenv(tt.key, tt.value)

			_, err := config.Load(quiet)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
