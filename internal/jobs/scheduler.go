package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"civicsnap/internal/observability"
)

type Sweeper interface {
	Sweep(maxAge time.Duration) (int, error)
}

type Scheduler struct {
	cron     *cron.Cron
	staging  Sweeper
	schedule string
	maxAge   time.Duration
	metrics  *observability.Metrics
	log      zerolog.Logger
}

func NewScheduler(staging Sweeper, schedule string, maxAge time.Duration, metrics *observability.Metrics, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:     c,
		staging:  staging,
		schedule: schedule,
		maxAge:   maxAge,
		metrics:  metrics,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if s.staging == nil || s.schedule == "" {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.sweepStaging); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the schedule and waits up to timeout for a running sweep.
func (s *Scheduler) Stop(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

// sweepStaging clears staging files left by a process that died mid-submission.
func (s *Scheduler) sweepStaging() {
	removed, err := s.staging.Sweep(s.maxAge)
	if removed > 0 {
		s.metrics.StagingSwept.Add(float64(removed))
		s.log.Info().Int("removed", removed).Dur("max_age", s.maxAge).Msg("staging sweep")
	}
	if err != nil {
		s.log.Error().Err(err).Msg("staging sweep failed")
	}
}
