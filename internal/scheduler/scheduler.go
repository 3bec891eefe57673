package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// ErrHalt stops Run when wrapped by a tick error. Other tick errors are
// logged and the schedule continues.
var ErrHalt = errors.New("scheduler: halt")

// TickFunc is invoked on every scheduled tick.
type TickFunc func(ctx context.Context, tick time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	Interval     time.Duration
	AlignToStart bool
	StartupDelay time.Duration
	// Immediate runs one tick right away before following the schedule.
	Immediate bool
}

// Scheduler drives fixed-cadence execution: each tick is due one interval
// after the previous one regardless of how long the tick took.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks, invoking the tick function on schedule until ctx is cancelled
// or a tick returns an error wrapping ErrHalt.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if s.opts.Immediate {
		if err := s.execute(ctx, tick, time.Now().UTC()); err != nil {
			return err
		}
	}

	next := s.nextTick(time.Now().UTC())
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		delay := time.Until(next)
		if delay < 0 {
			skipped := next
			next = s.nextTick(time.Now().UTC())
			delay = time.Until(next)
			s.logger.Warn().Time("missed", skipped).Time("next", next).Msg("schedule fell behind; skipping missed ticks")
		}

		timer := time.NewTimer(delay)
		s.logger.Trace().Time("next_tick", next).Msg("waiting for next tick")

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if err := s.execute(ctx, tick, s.tickTime(next)); err != nil {
			return err
		}

		next = next.Add(s.opts.Interval)
	}
}

func (s *Scheduler) execute(ctx context.Context, tick TickFunc, at time.Time) error {
	s.logger.Trace().Time("tick", at).Msg("executing scheduled tick")

	err := tick(ctx, at)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrHalt) {
		s.logger.Error().Err(err).Time("tick", at).Msg("tick requested halt")
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.logger.Error().Err(err).Time("tick", at).Msg("tick execution failed")
	return nil
}

func (s *Scheduler) nextTick(now time.Time) time.Time {
	if !s.opts.AlignToStart {
		return now.Add(s.opts.Interval)
	}
	bucket := now.Truncate(s.opts.Interval)
	if !bucket.After(now) {
		bucket = bucket.Add(s.opts.Interval)
	}
	return bucket
}

func (s *Scheduler) tickTime(t time.Time) time.Time {
	if !s.opts.AlignToStart {
		return t
	}
	return t.Truncate(s.opts.Interval)
}
