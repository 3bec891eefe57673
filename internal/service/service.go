package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"outagewatch/internal/probe"
	"outagewatch/internal/scheduler"
	"outagewatch/internal/storage"
	"outagewatch/internal/tracker"
)

// ErrLockHeld indicates another watcher already owns the storage.
var ErrLockHeld = errors.New("another watcher holds the storage lock")

const timeDisplayLayout = "2006-01-02 15:04:05 MST"

// Options configure the monitoring service.
type Options struct {
	// LockKey selects the advisory lock; zero disables locking.
	LockKey int64
	// Out receives human-readable status lines; nil discards them.
	Out io.Writer
	// Now overrides the clock used for startup reconciliation.
	Now func() time.Time
}

// Service orchestrates probing, outage tracking and persistence.
type Service struct {
	scheduler *scheduler.Scheduler
	prober    probe.Prober
	tracker   *tracker.Tracker
	locker    storage.AdvisoryLocker
	lockKey   int64
	out       io.Writer
	now       func() time.Time
	logger    zerolog.Logger
}

// New constructs the monitoring service. The locker is taken from the store
// when the backend supports advisory locks.
func New(sched *scheduler.Scheduler, prober probe.Prober, store tracker.Store, trk *tracker.Tracker, opts Options, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		scheduler: sched,
		prober:    prober,
		tracker:   trk,
		locker:    locker,
		lockKey:   opts.LockKey,
		out:       out,
		now:       now,
		logger:    logger.With().Str("component", "service").Logger(),
	}
}

// Run reconciles leftover state and then samples connectivity on schedule
// until ctx is cancelled or an outage write cannot be persisted.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}

	unlock, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if unlock != nil {
		defer unlock()
	}

	if err := s.Reconcile(ctx); err != nil {
		return err
	}
	return s.scheduler.Run(ctx, s.Tick)
}

// Reconcile closes an outage left open by a previous run at the current time.
func (s *Service) Reconcile(ctx context.Context) error {
	rec, found, err := s.tracker.Reconcile(ctx, s.now().UTC())
	if err != nil {
		return fmt.Errorf("reconcile open outage: %w", err)
	}
	if found {
		fmt.Fprintf(s.out, "Closed outage #%d left open by a previous run: %s to %s (%d seconds)\n",
			rec.ID,
			rec.StartTime.Local().Format(timeDisplayLayout),
			rec.EndTime.Time.Local().Format(timeDisplayLayout),
			rec.DurationSeconds.Int64,
		)
	}
	return nil
}

// Tick probes once and feeds the outcome to the tracker. The tick time is
// the observation time recorded on outages.
func (s *Service) Tick(ctx context.Context, tick time.Time) error {
	outcome := s.prober.Check(ctx)
	if ctx.Err() != nil {
		// a cancelled dial is shutdown, not an outage
		return ctx.Err()
	}

	writeCtx := context.WithoutCancel(ctx)
	transition, err := s.tracker.Observe(writeCtx, tick, outcome.Status)
	if err != nil {
		return fmt.Errorf("%w: %w", scheduler.ErrHalt, err)
	}

	switch transition.Kind {
	case tracker.OutageStarted:
		s.logger.Warn().Int64("outage_id", transition.Record.ID).
			Time("start", transition.Record.StartTime).
			Str("reason", outcome.Reason).
			Msg("connectivity lost")
		fmt.Fprintf(s.out, "Internet connection lost at %s\n", transition.Record.StartTime.Local().Format(timeDisplayLayout))
	case tracker.OutageEnded:
		s.logger.Info().Int64("outage_id", transition.Record.ID).
			Time("end", transition.Record.EndTime.Time).
			Int64("duration_seconds", transition.Record.DurationSeconds.Int64).
			Msg("connectivity restored")
		fmt.Fprintf(s.out, "Internet connection restored at %s. Outage duration: %d seconds\n",
			transition.Record.EndTime.Time.Local().Format(timeDisplayLayout),
			transition.Record.DurationSeconds.Int64,
		)
	default:
		s.logger.Debug().Time("tick", tick).
			Time("checked_at", outcome.CheckedAt).
			Str("status", outcome.Status.String()).
			Str("state", s.tracker.State().String()).
			Dur("latency", outcome.Latency).
			Msg("probe recorded")
	}
	return nil
}

func (s *Service) acquireLock(ctx context.Context) (func(), error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, ErrLockHeld
	}
	return unlock, nil
}
