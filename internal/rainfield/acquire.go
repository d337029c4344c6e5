package rainfield

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/rainfield/internal/geo"
	"github.com/i474232898/rainfield/internal/metrics"
)

// AcquireConfig bounds how the lattice is sampled.
type AcquireConfig struct {
	Workers int           // concurrent samples in flight
	Timeout time.Duration // per-sample deadline
	Backoff time.Duration // pause before substituting a failed sample
}

// DefaultAcquireConfig returns the production defaults.
func DefaultAcquireConfig() AcquireConfig {
	return AcquireConfig{
		Workers: 4,
		Timeout: 15 * time.Second,
		Backoff: 1 * time.Second,
	}
}

// Acquirer runs a Sampler over every lattice coordinate with a bounded worker group.
type Acquirer struct {
	sampler Sampler
	cfg     AcquireConfig
	logger  zerolog.Logger
}

// NewAcquirer creates an Acquirer. Non-positive settings fall back to the defaults,
// except Backoff where zero disables the pause.
func NewAcquirer(sampler Sampler, cfg AcquireConfig, logger zerolog.Logger) *Acquirer {
	def := DefaultAcquireConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = def.Backoff
	}
	return &Acquirer{
		sampler: sampler,
		cfg:     cfg,
		logger:  logger.With().Str("component", "acquirer").Logger(),
	}
}

// Acquire samples every coordinate and returns observations index-aligned with lattice.
// It blocks until every sample, successful or substituted, has completed. It never fails.
func (a *Acquirer) Acquire(ctx context.Context, lattice []geo.Coordinate) []Observation {
	observations := make([]Observation, len(lattice))

	var g errgroup.Group
	g.SetLimit(a.cfg.Workers)
	for i, c := range lattice {
		g.Go(func() error {
			// Each task owns exactly one slot.
			observations[i] = a.sample(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	return observations
}

// sample is the single place where the fail-open policy is applied: whatever goes
// wrong, the caller gets an observation at c.
func (a *Acquirer) sample(ctx context.Context, c geo.Coordinate) (obs Observation) {
	obs = Observation{Coordinate: c}

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().Interface("panic", r).Float64("lat", c.Lat).Float64("lon", c.Lon).Msg("sampler panicked; using fallback")
			obs.Value = 0
			metrics.ObserveSample(metrics.OutcomeFallback)
			a.wait(ctx)
		}
	}()

	sctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	v, err := a.sampler.Sample(sctx, c)
	if err == nil && (math.IsNaN(v) || math.IsInf(v, 0) || v < 0) {
		err = fmt.Errorf("%w: unusable value %v", ErrMissingReading, v)
	}

	switch {
	case err == nil:
		obs.Value = v
		metrics.ObserveSample(metrics.OutcomeOK)
	case errors.Is(err, ErrMissingReading):
		// The source answered; an absent reading means no rain.
		a.logger.Debug().Err(err).Float64("lat", c.Lat).Float64("lon", c.Lon).Msg("sample missing reading")
		metrics.ObserveSample(metrics.OutcomeMissing)
	default:
		a.logger.Warn().Err(err).Float64("lat", c.Lat).Float64("lon", c.Lon).Msg("sample failed; using fallback")
		metrics.ObserveSample(metrics.OutcomeFallback)
		a.wait(ctx)
	}
	return obs
}

func (a *Acquirer) wait(ctx context.Context) {
	if a.cfg.Backoff <= 0 {
		return
	}
	timer := time.NewTimer(a.cfg.Backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
