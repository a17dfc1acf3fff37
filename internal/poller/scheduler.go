package poller

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"dota-tracker/internal/config"
)

// Scheduler runs poll cycles on a fixed interval and the daily summary at
// the configured local times. It owns no state beyond timers; all work is
// delegated to the orchestrator.
type Scheduler struct {
	orch   *Orchestrator
	cfg    *config.Config
	logger zerolog.Logger
	now    func() time.Time
}

func NewScheduler(orch *Orchestrator, cfg *config.Config, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		orch:   orch,
		cfg:    cfg,
		logger: logger.With().Str("component", "scheduler").Logger(),
		now:    time.Now,
	}
}

// Run blocks until ctx is cancelled. The first poll cycle starts
// immediately; subsequent cycles follow the configured interval.
func (s *Scheduler) Run(ctx context.Context) {
	if err := s.orch.RunCycle(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("initial poll cycle incomplete")
	}

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	summaryAt := nextSummaryAt(s.now(), s.cfg)
	summaryTimer := time.NewTimer(time.Until(summaryAt))
	defer summaryTimer.Stop()
	s.logger.Info().Time("next_summary", summaryAt).Dur("poll_interval", s.cfg.PollInterval).Msg("scheduler running")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.orch.RunCycle(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("poll cycle incomplete")
			}
		case <-summaryTimer.C:
			if err := s.orch.RunDailySummary(ctx); err != nil {
				s.logger.Error().Err(err).Msg("daily summary failed, will retry next day")
			}
			summaryAt = nextSummaryAt(s.now(), s.cfg)
			summaryTimer.Reset(time.Until(summaryAt))
			s.logger.Info().Time("next_summary", summaryAt).Msg("summary rescheduled")
		}
	}
}

// nextSummaryAt finds the next configured summary instant strictly after
// now. Weekdays and weekends may use different clock times, so each of
// the next few days is checked with its own day type.
func nextSummaryAt(now time.Time, cfg *config.Config) time.Time {
	local := now.In(cfg.Timezone)
	for day := 0; ; day++ {
		candidate := local.AddDate(0, 0, day)
		clock := cfg.SummaryTimeWeekday
		if wd := candidate.Weekday(); wd == time.Saturday || wd == time.Sunday {
			clock = cfg.SummaryTimeWeekend
		}
		// Validated at load time.
		hour, minute, _ := config.ParseClock(clock)
		at := time.Date(candidate.Year(), candidate.Month(), candidate.Day(), hour, minute, 0, 0, cfg.Timezone)
		if at.After(now) {
			return at
		}
	}
}
