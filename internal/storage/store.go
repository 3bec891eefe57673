package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"outagewatch/internal/config"
)

var (
	// ErrUnavailable indicates the storage backend could not be opened or migrated.
	ErrUnavailable = errors.New("storage: unavailable")
	// ErrNotFound indicates the requested outage does not exist.
	ErrNotFound = errors.New("storage: outage not found")
	// ErrOutageAlreadyOpen indicates an open outage already exists.
	ErrOutageAlreadyOpen = errors.New("storage: an outage is already open")
	// ErrOutageClosed indicates the outage was closed before.
	ErrOutageClosed = errors.New("storage: outage already closed")
	// ErrInvalidEnd indicates an end time earlier than the outage start.
	ErrInvalidEnd = errors.New("storage: end time precedes start time")
)

// OutageStore defines operations for outage persistence.
type OutageStore interface {
	OpenOutage(ctx context.Context, start time.Time) (int64, error)
	CloseOutage(ctx context.Context, id int64, end time.Time) (OutageRecord, error)
	ListAll(ctx context.Context) ([]OutageRecord, error)
	ListRecentClosed(ctx context.Context, limit int) ([]OutageRecord, error)
	Count(ctx context.Context) (int64, error)
	FindOpen(ctx context.Context) (OutageRecord, bool, error)
	Close() error
}

// AdvisoryLocker exposes single-watcher lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Open connects to the configured backend and bootstraps its schema.
func Open(ctx context.Context, cfg config.DatabaseConfig) (OutageStore, error) {
	switch cfg.Driver {
	case config.DriverSQLite, "":
		return OpenSQLite(ctx, cfg.Path, cfg.BusyTimeout)
	case config.DriverPostgres:
		pool, err := NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		store := NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown driver %q", ErrUnavailable, cfg.Driver)
	}
}

func validateClose(rec OutageRecord, end time.Time) error {
	if !rec.IsOpen() {
		return ErrOutageClosed
	}
	if end.Before(rec.StartTime) {
		return ErrInvalidEnd
	}
	return nil
}
