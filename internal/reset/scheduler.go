package reset

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"daily-mission-tracker/internal/metrics"
)

// Trigger asks the coordinator to run one reset cycle.
type Trigger struct {
	// At is the scheduled instant that produced the trigger.
	At time.Time
}

// SchedulerConfig holds Scheduler settings.
type SchedulerConfig struct {
	// At is the time of day of the reset as an offset from midnight.
	At       time.Duration
	Location *time.Location
	// RetryDelay is how long to pause after computing a non-positive wait.
	RetryDelay time.Duration
	Clock      Clock
}

// Scheduler emits one Trigger per day at a fixed time of day.
type Scheduler struct {
	at         time.Duration
	loc        *time.Location
	retryDelay time.Duration
	clock      Clock
	out        chan<- Trigger
	logger     zerolog.Logger
}

// NewScheduler creates a scheduler that sends triggers to out.
func NewScheduler(cfg SchedulerConfig, out chan<- Trigger) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	return &Scheduler{
		at:         cfg.At,
		loc:        cfg.Location,
		retryDelay: cfg.RetryDelay,
		clock:      cfg.Clock,
		out:        out,
		logger:     log.With().Str("component", "scheduler").Logger(),
	}
}

// Run waits for each day's event and fires a trigger, until ctx is done.
// It always returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	var lastFired time.Time
	for {
		now := s.clock.Now()
		next := NextEvent(now, s.at, s.loc)
		wait := next.Sub(now)

		if wait <= 0 {
			s.logger.Warn().
				Time("now", now).
				Time("next_event", next).
				Dur("wait", wait).
				Msg("Computed non-positive wait, recomputing")
			metrics.RecordTrigger(metrics.ResultSkewed)
			if err := s.sleep(ctx, s.retryDelay); err != nil {
				return err
			}
			continue
		}

		// The wall clock stepped back after this event already fired.
		if next.Equal(lastFired) {
			s.logger.Warn().
				Time("event", next).
				Dur("wait", wait).
				Msg("Clock moved back past a fired reset, waiting it out")
			metrics.RecordTrigger(metrics.ResultSkewed)
			if err := s.sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}

		s.logger.Info().
			Time("next_event", next).
			Dur("wait", wait).
			Msg("Waiting for next reset")

		if err := s.waitUntil(ctx, next); err != nil {
			return err
		}

		s.emit(Trigger{At: next})
		lastFired = next
	}
}

// waitUntil sleeps until the clock reads at least t. Timers run on the
// monotonic clock, so a wall clock stepped back during the sleep wakes us
// early and the remainder is slept again.
func (s *Scheduler) waitUntil(ctx context.Context, t time.Time) error {
	for {
		remaining := t.Sub(s.clock.Now())
		if remaining <= 0 {
			return nil
		}
		if err := s.sleep(ctx, remaining); err != nil {
			return err
		}
	}
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(d):
		return nil
	}
}

// emit delivers at most once. A busy consumer loses the trigger.
func (s *Scheduler) emit(t Trigger) {
	select {
	case s.out <- t:
		metrics.RecordTrigger(metrics.ResultSuccess)
		s.logger.Info().Time("event", t.At).Msg("Reset triggered")
	default:
		metrics.RecordTrigger(metrics.ResultDropped)
		s.logger.Warn().Time("event", t.At).Msg("Reset trigger dropped, coordinator busy")
	}
}
