package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/i474232898/rainfield/internal/geo"
	"github.com/i474232898/rainfield/internal/rainfield"
	"github.com/i474232898/rainfield/internal/rainfield/providers"
)

type AppConfig struct {
	Port string

	// Provider selection and credentials.
	RainProvider      string
	ForecastURL       string
	WeatherAPIKey     string
	OpenWeatherAPIKey string

	// HTTPTimeout bounds every outbound request at the client level.
	HTTPTimeout time.Duration

	// Acquisition and default field resolution.
	Acquire       rainfield.AcquireConfig
	SampleRetries int
	Field         rainfield.FieldParams
	Limits        rainfield.FieldLimits
	BoundingBox   geo.BoundingBox

	// RefreshInterval controls how often the default field is rebuilt (0 disables).
	RefreshInterval time.Duration

	// Warm cache retention.
	StoreMaxHistory int           // max number of reports per field (0 = unlimited)
	StoreMaxAge     time.Duration // max age of reports (0 = unlimited)

	ArchiveDir string
	LogLevel   zerolog.Level
}

// Load reads configuration from environment with sensible defaults.
// Callers load .env files beforehand.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.RainProvider = getenvDefault("RAIN_PROVIDER", "openmeteo")
	cfg.ForecastURL = getenvDefault("FORECAST_URL", providers.DefaultOpenMeteoURL)
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")
	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")

	def := rainfield.DefaultAcquireConfig()
	if cfg.Acquire.Timeout, err = getenvDuration("SAMPLE_TIMEOUT", def.Timeout); err != nil {
		return nil, err
	}
	if cfg.Acquire.Backoff, err = getenvDuration("SAMPLE_BACKOFF", def.Backoff); err != nil {
		return nil, err
	}
	if cfg.Acquire.Workers, err = getenvInt("SAMPLE_WORKERS", def.Workers); err != nil {
		return nil, err
	}
	if cfg.Acquire.Workers < 1 {
		return nil, fmt.Errorf("invalid SAMPLE_WORKERS: must be at least 1")
	}
	if cfg.SampleRetries, err = getenvInt("SAMPLE_RETRIES", 0); err != nil {
		return nil, err
	}
	// The client timeout must not cut the per-sample deadline short.
	cfg.HTTPTimeout = cfg.Acquire.Timeout

	if cfg.Field.GridSize, err = getenvInt("GRID_SIZE", 15); err != nil {
		return nil, err
	}
	if cfg.Field.Density, err = getenvInt("DENSITY", 50); err != nil {
		return nil, err
	}
	if cfg.Field.GridSize < 2 || cfg.Field.Density < 2 {
		return nil, fmt.Errorf("invalid GRID_SIZE/DENSITY: both must be at least 2")
	}
	limits := rainfield.DefaultFieldLimits()
	if cfg.Limits.MaxGridSize, err = getenvInt("MAX_GRID_SIZE", limits.MaxGridSize); err != nil {
		return nil, err
	}
	if cfg.Limits.MaxDensity, err = getenvInt("MAX_DENSITY", limits.MaxDensity); err != nil {
		return nil, err
	}
	if cfg.Field.GridSize > cfg.Limits.MaxGridSize || cfg.Field.Density > cfg.Limits.MaxDensity {
		return nil, fmt.Errorf("invalid GRID_SIZE/DENSITY: must not exceed MAX_GRID_SIZE (%d) / MAX_DENSITY (%d)",
			cfg.Limits.MaxGridSize, cfg.Limits.MaxDensity)
	}

	cfg.BoundingBox = geo.DefaultBoundingBox()
	if v := os.Getenv("BOUNDING_BOX"); v != "" {
		box, err := geo.ParseBoundingBox(v)
		if err != nil {
			return nil, fmt.Errorf("invalid BOUNDING_BOX: %w", err)
		}
		cfg.BoundingBox = box
	}

	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}

	if cfg.StoreMaxHistory, err = getenvInt("STORE_MAX_HISTORY", 96); err != nil { // roughly 24h at 15-minute intervals
		return nil, err
	}
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", 24*time.Hour); err != nil {
		return nil, err
	}

	cfg.ArchiveDir = getenvDefault("ARCHIVE_DIR", "data")

	level, err := zerolog.ParseLevel(strings.ToLower(getenvDefault("LOG_LEVEL", "info")))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	return cfg, nil
}

// ProviderSettings returns the settings for providers.New.
func (c *AppConfig) ProviderSettings() providers.Settings {
	return providers.Settings{
		Provider:          c.RainProvider,
		ForecastURL:       c.ForecastURL,
		WeatherAPIKey:     c.WeatherAPIKey,
		OpenWeatherAPIKey: c.OpenWeatherAPIKey,
		MaxRetries:        c.SampleRetries,
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
