package app

import (
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/i474232898/rainfield/internal/config"
	"github.com/i474232898/rainfield/internal/rainfield"
	"github.com/i474232898/rainfield/internal/rainfield/providers"
	"github.com/i474232898/rainfield/internal/store"
)

// NewLogger returns the process logger at the configured level.
func NewLogger(level zerolog.Level) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}

// Components are the long-lived pieces shared by the server and the CLI.
type Components struct {
	Sampler providers.NamedSampler
	Store   *store.MemoryStore
	Service *rainfield.Service
}

// Build wires the provider, acquisition, interpolation and cache from cfg.
func Build(cfg *config.AppConfig, logger zerolog.Logger) (*Components, error) {
	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConnsPerHost: cfg.Acquire.Workers,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	sampler, err := providers.New(httpClient, cfg.ProviderSettings())
	if err != nil {
		return nil, err
	}

	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)
	acquirer := rainfield.NewAcquirer(sampler, cfg.Acquire, logger)
	service := rainfield.NewService(cfg.BoundingBox, acquirer, rainfield.NewInterpolator(), memStore, logger).
		WithLimits(cfg.Limits)

	logger.Info().
		Str("provider", sampler.Name()).
		Int("workers", cfg.Acquire.Workers).
		Dur("sample_timeout", cfg.Acquire.Timeout).
		Msg("rain field pipeline ready")

	return &Components{
		Sampler: sampler,
		Store:   memStore,
		Service: service,
	}, nil
}
