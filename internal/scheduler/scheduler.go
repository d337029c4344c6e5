package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"github.com/i474232898/rainfield/internal/rainfield"
)

// Refresher rebuilds and caches a field. *rainfield.Service satisfies it.
type Refresher interface {
	Refresh(ctx context.Context, params rainfield.FieldParams) error
}

// Scheduler periodically refreshes the warm rain fields.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Refresher
	fields    []rainfield.FieldParams
	interval  time.Duration
	timeout   time.Duration
	logger    zerolog.Logger
}

// New creates a new Scheduler. A non-positive interval disables it.
func New(fields []rainfield.FieldParams, interval time.Duration, service Refresher, logger zerolog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		service:   service,
		fields:    fields,
		interval:  interval,
		timeout:   10 * time.Minute,
		logger:    logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.fields) == 0 || s.interval <= 0 {
		s.logger.Info().Msg("refresh disabled; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// run refreshes every configured field in turn; the upstream is shared, so fields
// are not refreshed concurrently.
func (s *Scheduler) run() {
	s.logger.Info().Int("fields", len(s.fields)).Msg("running rain field refresh")

	for _, params := range s.fields {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		if err := s.service.Refresh(ctx, params); err != nil {
			s.logger.Error().Err(err).Str("field", params.Key()).Msg("refresh failed")
		}
		cancel()
	}

	s.logger.Info().Msg("completed rain field refresh")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
