package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"outagewatch/internal/probe"
	"outagewatch/internal/storage"
)

// ErrWriteFailed is returned when a transition could not be persisted after
// all retries. The tracker state is left unchanged.
var ErrWriteFailed = errors.New("tracker: outage write failed")

// State is the tracker's view of connectivity.
type State int

const (
	// Up is the initial state; no outage is open.
	Up State = iota
	// Down means an outage record is open.
	Down
)

func (s State) String() string {
	if s == Down {
		return "down"
	}
	return "up"
}

// Kind classifies the effect of one observation.
type Kind int

const (
	// None means the state did not change.
	None Kind = iota
	// OutageStarted means an outage record was opened.
	OutageStarted
	// OutageEnded means the open outage record was closed.
	OutageEnded
)

// Transition reports what an observation did to the tracker.
type Transition struct {
	Kind   Kind
	Record storage.OutageRecord
}

// Store is the subset of storage the tracker writes through.
type Store interface {
	OpenOutage(ctx context.Context, start time.Time) (int64, error)
	CloseOutage(ctx context.Context, id int64, end time.Time) (storage.OutageRecord, error)
	FindOpen(ctx context.Context) (storage.OutageRecord, bool, error)
}

// Options tune write retry behaviour.
type Options struct {
	WriteRetries int
	RetryBackoff time.Duration
}

// Tracker is the outage state machine. It is owned by a single monitoring
// loop and is not safe for concurrent use.
type Tracker struct {
	store   Store
	opts    Options
	logger  zerolog.Logger
	state   State
	open    storage.OutageRecord
	waitFor func(ctx context.Context, d time.Duration) error
}

// New constructs a tracker in the Up state.
func New(store Store, opts Options, logger zerolog.Logger) *Tracker {
	if opts.WriteRetries < 0 {
		opts.WriteRetries = 0
	}
	return &Tracker{
		store:   store,
		opts:    opts,
		logger:  logger.With().Str("component", "tracker").Logger(),
		state:   Up,
		waitFor: sleepCtx,
	}
}

// State returns the current state.
func (t *Tracker) State() State {
	return t.state
}

// OpenOutage returns the outage currently tracked as open.
func (t *Tracker) OpenOutage() (storage.OutageRecord, bool) {
	if t.state != Down {
		return storage.OutageRecord{}, false
	}
	return t.open, true
}

// Reconcile closes an outage left open by a previous process, using now as
// its end. The tracker starts from Up afterwards.
func (t *Tracker) Reconcile(ctx context.Context, now time.Time) (storage.OutageRecord, bool, error) {
	rec, found, err := t.store.FindOpen(ctx)
	if err != nil {
		return storage.OutageRecord{}, false, fmt.Errorf("find open outage: %w", err)
	}
	if !found {
		return storage.OutageRecord{}, false, nil
	}

	end := clampEnd(rec.StartTime, now)
	var closed storage.OutageRecord
	err = t.withRetry(ctx, "close dangling outage", func() error {
		var err error
		closed, err = t.store.CloseOutage(ctx, rec.ID, end)
		return err
	})
	if err != nil {
		return storage.OutageRecord{}, false, err
	}

	t.state = Up
	t.open = storage.OutageRecord{}
	t.logger.Warn().Int64("outage_id", closed.ID).
		Time("start", closed.StartTime).
		Time("end", end).
		Msg("closed outage left open by a previous run")
	return closed, true, nil
}

// Observe feeds one probe result taken at the given time into the state machine.
func (t *Tracker) Observe(ctx context.Context, at time.Time, status probe.Status) (Transition, error) {
	at = at.UTC()

	switch {
	case t.state == Up && status == probe.Disconnected:
		var id int64
		err := t.withRetry(ctx, "open outage", func() error {
			var err error
			id, err = t.store.OpenOutage(ctx, at)
			return err
		})
		if err != nil {
			return Transition{}, err
		}
		t.state = Down
		t.open = storage.OutageRecord{ID: id, StartTime: at}
		return Transition{Kind: OutageStarted, Record: t.open}, nil

	case t.state == Down && status == probe.Connected:
		end := clampEnd(t.open.StartTime, at)
		var closed storage.OutageRecord
		err := t.withRetry(ctx, "close outage", func() error {
			var err error
			closed, err = t.store.CloseOutage(ctx, t.open.ID, end)
			return err
		})
		if err != nil {
			return Transition{}, err
		}
		t.state = Up
		t.open = storage.OutageRecord{}
		return Transition{Kind: OutageEnded, Record: closed}, nil
	}

	return Transition{Kind: None}, nil
}

func (t *Tracker) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= t.opts.WriteRetries; attempt++ {
		if attempt > 0 {
			if waitErr := t.waitFor(ctx, t.opts.RetryBackoff); waitErr != nil {
				return fmt.Errorf("%w: %s: %w", ErrWriteFailed, op, waitErr)
			}
		}

		err = fn()
		if err == nil {
			return nil
		}
		if permanent(err) {
			break
		}
		t.logger.Warn().Err(err).Str("op", op).Int("attempt", attempt+1).Msg("outage write failed")
	}
	return fmt.Errorf("%w: %s: %w", ErrWriteFailed, op, err)
}

// permanent errors describe a state conflict that retrying cannot fix.
func permanent(err error) bool {
	return errors.Is(err, storage.ErrOutageAlreadyOpen) ||
		errors.Is(err, storage.ErrOutageClosed) ||
		errors.Is(err, storage.ErrNotFound) ||
		errors.Is(err, storage.ErrInvalidEnd)
}

// clampEnd keeps durations non-negative when the wall clock steps backwards.
func clampEnd(start, end time.Time) time.Time {
	if end.Before(start) {
		return start
	}
	return end
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
