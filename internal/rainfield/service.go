package rainfield

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/i474232898/rainfield/internal/geo"
	"github.com/i474232898/rainfield/internal/metrics"
)

var validate = validator.New()

// Service orchestrates lattice generation, acquisition, interpolation and report assembly.
type Service struct {
	box      geo.BoundingBox
	acquirer *Acquirer
	interp   *Interpolator
	store    Store
	limits   FieldLimits
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService creates a new Service.
func NewService(box geo.BoundingBox, acquirer *Acquirer, interp *Interpolator, store Store, logger zerolog.Logger) *Service {
	if interp == nil {
		interp = NewInterpolator()
	}
	return &Service{
		box:      box,
		acquirer: acquirer,
		interp:   interp,
		store:    store,
		limits:   DefaultFieldLimits(),
		logger:   logger.With().Str("component", "rainfield").Logger(),
		now:      time.Now,
	}
}

// WithLimits replaces the resolution caps. Non-positive caps keep their defaults.
func (s *Service) WithLimits(limits FieldLimits) *Service {
	s.limits = limits.orDefault()
	return s
}

// Limits returns the resolution caps in force.
func (s *Service) Limits() FieldLimits {
	return s.limits
}

// BoundingBox returns the region lattices are laid over.
func (s *Service) BoundingBox() geo.BoundingBox {
	return s.box
}

// GetInterpolatedField samples a gridSize x gridSize lattice and interpolates it onto a
// density x density grid. Per-point acquisition failures are absorbed; anything else
// is returned as a *ServiceError and no partial report is produced.
func (s *Service) GetInterpolatedField(ctx context.Context, gridSize, density int) (report Report, err error) {
	params := FieldParams{GridSize: gridSize, Density: density}
	if verr := s.checkParams(params); verr != nil {
		return Report{}, configError(verr)
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Str("field", params.Key()).Msg("field construction panicked")
			report, err = Report{}, internalError(fmt.Errorf("unexpected failure: %v", r))
		}
	}()

	lattice, err := geo.Lattice(s.box, gridSize)
	if err != nil {
		if errors.Is(err, geo.ErrInvalidGridSize) {
			return Report{}, configError(err)
		}
		return Report{}, internalError(err)
	}

	start := time.Now()
	observations := s.acquirer.Acquire(ctx, lattice)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Report{}, internalError(fmt.Errorf("field acquisition aborted: %w", ctxErr))
	}

	cells, err := s.interp.Interpolate(observations, density)
	if err != nil {
		return Report{}, internalError(err)
	}

	report = AssembleReport(s.now(), params, observations, cells)

	summary := Summarize(cells)
	elapsed := time.Since(start)
	metrics.ObserveField(elapsed, summary.Max)
	s.logger.Info().
		Str("field", params.Key()).
		Int("original_points", report.OriginalPoints).
		Int("interpolated_points", report.InterpolatedPoints).
		Float64("max", summary.Max).
		Int("wet_cells", summary.WetCells).
		Dur("elapsed", elapsed).
		Msg("field built")

	return report, nil
}

// checkParams rejects a resolution before anything is allocated or requested.
func (s *Service) checkParams(params FieldParams) error {
	if err := validate.Struct(params); err != nil {
		return fmt.Errorf("invalid field parameters: %w", err)
	}
	if err := validate.Var(params.GridSize, fmt.Sprintf("lte=%d", s.limits.MaxGridSize)); err != nil {
		return fmt.Errorf("grid_size %d exceeds the maximum of %d", params.GridSize, s.limits.MaxGridSize)
	}
	if err := validate.Var(params.Density, fmt.Sprintf("lte=%d", s.limits.MaxDensity)); err != nil {
		return fmt.Errorf("density %d exceeds the maximum of %d", params.Density, s.limits.MaxDensity)
	}
	return nil
}

// Refresh builds a field and keeps it in the store for GetLatest and GetRange.
func (s *Service) Refresh(ctx context.Context, params FieldParams) error {
	if s.store == nil {
		return errors.New("no report store configured")
	}
	report, err := s.GetInterpolatedField(ctx, params.GridSize, params.Density)
	if err != nil {
		return err
	}
	s.store.SaveReport(params, report)
	return nil
}

// GetLatest delegates to the underlying store.
func (s *Service) GetLatest(params FieldParams) (Report, error) {
	if s.store == nil {
		return Report{}, errors.New("no report store configured")
	}
	return s.store.GetLatest(params)
}

// GetRange delegates to the underlying store.
func (s *Service) GetRange(params FieldParams, from, to time.Time) ([]Report, error) {
	if s.store == nil {
		return nil, errors.New("no report store configured")
	}
	return s.store.GetRange(params, from, to)
}
