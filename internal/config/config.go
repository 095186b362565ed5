package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/neexbeast/weatherosm/internal/weather"
)

// Config holds everything the server reads from the environment.
type Config struct {
	DatabaseURL string
	RedisURL    string
	BearerToken string
	Port        string

	// MigrationsDir overrides the embedded schema when set.
	MigrationsDir string

	Endpoints    weather.Endpoints
	DefaultUnits weather.Units

	// RefreshInterval is how often tracked devices are refreshed.
	RefreshInterval time.Duration
	// LocationMaxAge is how old a fix may be before it is ignored.
	LocationMaxAge time.Duration
}

// ErrMissing reports a required variable that is unset.
var ErrMissing = errors.New("required environment variable not set")

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load(log *slog.Logger) (*Config, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file loaded", "err", err)
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		MigrationsDir: os.Getenv("MIGRATIONS_DIR"),
	}

	var missing []string
	require := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	cfg.DatabaseURL = require("DATABASE_URL")
	cfg.RedisURL = require("REDIS_URL")
	cfg.BearerToken = require("BEARER_TOKEN")
	appID := require("GEOPLANET_APP_ID")
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}

	units, err := weather.ParseUnits(getEnv("DEFAULT_UNITS", string(weather.DefaultUnits)))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_UNITS: %w", err)
	}
	cfg.DefaultUnits = units

	timeout, err := getDuration("HTTP_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getDuration("REFRESH_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.LocationMaxAge, err = getDuration("LOCATION_MAX_AGE", 10*time.Minute); err != nil {
		return nil, err
	}

	count, err := getInt("PLACES_COUNT", 5)
	if err != nil {
		return nil, err
	}

	cfg.Endpoints = weather.Endpoints{
		GeocodeURL:  os.Getenv("NOMINATIM_URL"),
		PlacesURL:   os.Getenv("GEOPLANET_URL"),
		FeedURL:     os.Getenv("WEATHER_FEED_URL"),
		PlacesAppID: appID,
		PlacesCount: count,
		UserAgent:   getEnv("HTTP_USER_AGENT", weather.DefaultUserAgent),
		Timeout:     timeout,
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return n, nil
}
