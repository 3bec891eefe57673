package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guregu/null/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"outagewatch/internal/config"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS outages (
        id               BIGSERIAL PRIMARY KEY,
        start_time       TIMESTAMPTZ NOT NULL,
        end_time         TIMESTAMPTZ,
        duration_seconds BIGINT,
        CHECK ((end_time IS NULL) = (duration_seconds IS NULL)),
        CHECK (duration_seconds IS NULL OR duration_seconds >= 0)
    );`,
	`CREATE UNIQUE INDEX IF NOT EXISTS outages_single_open
        ON outages ((end_time IS NULL))
        WHERE end_time IS NULL;`,
	`CREATE INDEX IF NOT EXISTS outages_start_time ON outages (start_time);`,
}

const (
	pgSelectColumns = `SELECT id, start_time, end_time, duration_seconds FROM outages`

	pgFindOpenSQL     = pgSelectColumns + ` WHERE end_time IS NULL ORDER BY id LIMIT 1;`
	pgFindByIDSQL     = pgSelectColumns + ` WHERE id = $1 FOR UPDATE;`
	pgListAllSQL      = pgSelectColumns + ` ORDER BY id;`
	pgListRecentSQL   = pgSelectColumns + ` WHERE end_time IS NOT NULL ORDER BY start_time DESC, id DESC LIMIT $1;`
	pgInsertOutageSQL = `INSERT INTO outages (start_time) VALUES ($1) RETURNING id;`
	pgCloseOutageSQL  = `UPDATE outages SET end_time = $2, duration_seconds = $3 WHERE id = $1 AND end_time IS NULL;`
	pgCountSQL        = `SELECT COUNT(*) FROM outages;`
	pgLockOutagesSQL  = `LOCK TABLE outages IN SHARE ROW EXCLUSIVE MODE;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// NewPool configures a PostgreSQL connection pool from runtime settings.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// PostgresStore keeps outages in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wires a pgx pool into a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

func (s *PostgresStore) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// Migrate creates the outage table and indexes when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	for _, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate postgres schema: %w", err)
		}
	}
	return nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *PostgresStore) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

// OpenOutage inserts a new open outage starting at start.
func (s *PostgresStore) OpenOutage(ctx context.Context, start time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	var id int64
	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, pgLockOutagesSQL); err != nil {
			return fmt.Errorf("lock outages: %w", err)
		}
		_, found, err := queryPostgresOne(tx.QueryRow(ctx, pgFindOpenSQL))
		if err != nil {
			return err
		}
		if found {
			return ErrOutageAlreadyOpen
		}
		return tx.QueryRow(ctx, pgInsertOutageSQL, start.UTC()).Scan(&id)
	})
	if err != nil {
		if errors.Is(err, ErrOutageAlreadyOpen) {
			return 0, err
		}
		return 0, fmt.Errorf("open outage: %w", err)
	}
	return id, nil
}

// CloseOutage sets end time and duration of an open outage in one statement.
func (s *PostgresStore) CloseOutage(ctx context.Context, id int64, end time.Time) (OutageRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return OutageRecord{}, err
	}

	end = end.UTC()
	var rec OutageRecord
	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		current, found, err := queryPostgresOne(tx.QueryRow(ctx, pgFindByIDSQL, id))
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}
		rec = current
		if err := validateClose(rec, end); err != nil {
			return err
		}

		duration := DurationBetween(rec.StartTime, end)
		if _, err := tx.Exec(ctx, pgCloseOutageSQL, id, end, duration); err != nil {
			return err
		}
		rec.EndTime = null.TimeFrom(end)
		rec.DurationSeconds = null.IntFrom(duration)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrOutageClosed) || errors.Is(err, ErrInvalidEnd) {
			return OutageRecord{}, err
		}
		return OutageRecord{}, fmt.Errorf("close outage: %w", err)
	}
	return rec, nil
}

// ListAll lists every outage in insertion order.
func (s *PostgresStore) ListAll(ctx context.Context) ([]OutageRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, pgListAllSQL)
	if err != nil {
		return nil, fmt.Errorf("list outages: %w", err)
	}
	return collectPostgresRows(rows)
}

// ListRecentClosed lists the latest closed outages ordered by descending start.
func (s *PostgresStore) ListRecentClosed(ctx context.Context, limit int) ([]OutageRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, pgListRecentSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent outages: %w", err)
	}
	return collectPostgresRows(rows)
}

// Count counts stored outages, open or closed.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if err := pool.QueryRow(ctx, pgCountSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("count outages: %w", err)
	}
	return count, nil
}

// FindOpen returns the open outage, if any.
func (s *PostgresStore) FindOpen(ctx context.Context) (OutageRecord, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return OutageRecord{}, false, err
	}
	rec, found, err := queryPostgresOne(pool.QueryRow(ctx, pgFindOpenSQL))
	if err != nil {
		return OutageRecord{}, false, fmt.Errorf("find open outage: %w", err)
	}
	return rec, found, nil
}

func queryPostgresOne(row pgx.Row) (OutageRecord, bool, error) {
	rec, err := scanPostgresOutage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return OutageRecord{}, false, nil
	}
	if err != nil {
		return OutageRecord{}, false, err
	}
	return rec, true, nil
}

func collectPostgresRows(rows pgx.Rows) ([]OutageRecord, error) {
	defer rows.Close()

	outages := make([]OutageRecord, 0)
	for rows.Next() {
		rec, err := scanPostgresOutage(rows)
		if err != nil {
			return nil, err
		}
		outages = append(outages, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return outages, nil
}

func scanPostgresOutage(row pgx.Row) (OutageRecord, error) {
	var rec OutageRecord
	if err := row.Scan(&rec.ID, &rec.StartTime, &rec.EndTime, &rec.DurationSeconds); err != nil {
		return OutageRecord{}, err
	}
	rec.StartTime = rec.StartTime.UTC()
	if rec.EndTime.Valid {
		rec.EndTime.Time = rec.EndTime.Time.UTC()
	}
	return rec, nil
}

var (
	_ OutageStore    = (*PostgresStore)(nil)
	_ AdvisoryLocker = (*PostgresStore)(nil)
)
