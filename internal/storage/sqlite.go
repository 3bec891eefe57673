package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/guregu/null/v5"
	_ "github.com/mattn/go-sqlite3"
)

// sqliteTimeLayout is fixed width so that text ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS outages (
        id               INTEGER PRIMARY KEY AUTOINCREMENT,
        start_time       TEXT NOT NULL,
        end_time         TEXT,
        duration_seconds INTEGER,
        CHECK ((end_time IS NULL) = (duration_seconds IS NULL)),
        CHECK (duration_seconds IS NULL OR duration_seconds >= 0)
    );`,
	`CREATE UNIQUE INDEX IF NOT EXISTS outages_single_open
        ON outages ((end_time IS NULL))
        WHERE end_time IS NULL;`,
	`CREATE INDEX IF NOT EXISTS outages_start_time ON outages (start_time);`,
}

const (
	sqliteSelectColumns = `SELECT id, start_time, end_time, duration_seconds FROM outages`

	sqliteFindOpenSQL        = sqliteSelectColumns + ` WHERE end_time IS NULL ORDER BY id LIMIT 1;`
	sqliteFindByIDSQL        = sqliteSelectColumns + ` WHERE id = ?;`
	sqliteListAllSQL         = sqliteSelectColumns + ` ORDER BY id;`
	sqliteListRecentSQL      = sqliteSelectColumns + ` WHERE end_time IS NOT NULL ORDER BY start_time DESC, id DESC LIMIT ?;`
	sqliteInsertOutageSQL    = `INSERT INTO outages (start_time) VALUES (?);`
	sqliteCloseOutageSQL     = `UPDATE outages SET end_time = ?, duration_seconds = ? WHERE id = ? AND end_time IS NULL;`
	sqliteCountOutagesSQL    = `SELECT COUNT(*) FROM outages;`
	sqliteDefaultBusyTimeout = 5 * time.Second
)

// SQLiteStore keeps outages in a local SQLite file. WAL journaling lets
// report commands read while the watcher writes.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database file and bootstraps the schema.
func OpenSQLite(ctx context.Context, path string, busyTimeout time.Duration) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: sqlite path is empty", ErrUnavailable)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: ensure data directory: %w", ErrUnavailable, err)
		}
	}
	if busyTimeout <= 0 {
		busyTimeout = sqliteDefaultBusyTimeout
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d&_txlock=immediate", path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", ErrUnavailable, err)
	}

	store := &SQLiteStore{db: db}
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return store, nil
}

// Migrate creates the outage table and indexes when missing.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite schema: %w", err)
		}
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// OpenOutage inserts a new open outage starting at start.
func (s *SQLiteStore) OpenOutage(ctx context.Context, start time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("open outage: begin: %w", err)
	}
	defer tx.Rollback()

	if _, found, err := querySQLiteOne(tx.QueryRowContext(ctx, sqliteFindOpenSQL)); err != nil {
		return 0, fmt.Errorf("open outage: %w", err)
	} else if found {
		return 0, ErrOutageAlreadyOpen
	}

	res, err := tx.ExecContext(ctx, sqliteInsertOutageSQL, formatSQLiteTime(start))
	if err != nil {
		return 0, fmt.Errorf("open outage: insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("open outage: last insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("open outage: commit: %w", err)
	}
	return id, nil
}

// CloseOutage sets end time and duration of an open outage in one statement.
func (s *SQLiteStore) CloseOutage(ctx context.Context, id int64, end time.Time) (OutageRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return OutageRecord{}, fmt.Errorf("close outage: begin: %w", err)
	}
	defer tx.Rollback()

	rec, found, err := querySQLiteOne(tx.QueryRowContext(ctx, sqliteFindByIDSQL, id))
	if err != nil {
		return OutageRecord{}, fmt.Errorf("close outage: %w", err)
	}
	if !found {
		return OutageRecord{}, ErrNotFound
	}
	end = end.UTC()
	if err := validateClose(rec, end); err != nil {
		return OutageRecord{}, err
	}

	duration := DurationBetween(rec.StartTime, end)
	if _, err := tx.ExecContext(ctx, sqliteCloseOutageSQL, formatSQLiteTime(end), duration, id); err != nil {
		return OutageRecord{}, fmt.Errorf("close outage: update: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return OutageRecord{}, fmt.Errorf("close outage: commit: %w", err)
	}

	rec.EndTime = null.TimeFrom(end)
	rec.DurationSeconds = null.IntFrom(duration)
	return rec, nil
}

// ListAll lists every outage in insertion order.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]OutageRecord, error) {
	rows, err := s.db.QueryContext(ctx, sqliteListAllSQL)
	if err != nil {
		return nil, fmt.Errorf("list outages: %w", err)
	}
	return collectSQLiteRows(rows)
}

// ListRecentClosed lists the latest closed outages ordered by descending start.
func (s *SQLiteStore) ListRecentClosed(ctx context.Context, limit int) ([]OutageRecord, error) {
	rows, err := s.db.QueryContext(ctx, sqliteListRecentSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent outages: %w", err)
	}
	return collectSQLiteRows(rows)
}

// Count counts stored outages, open or closed.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, sqliteCountOutagesSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("count outages: %w", err)
	}
	return count, nil
}

// FindOpen returns the open outage, if any.
func (s *SQLiteStore) FindOpen(ctx context.Context) (OutageRecord, bool, error) {
	rec, found, err := querySQLiteOne(s.db.QueryRowContext(ctx, sqliteFindOpenSQL))
	if err != nil {
		return OutageRecord{}, false, fmt.Errorf("find open outage: %w", err)
	}
	return rec, found, nil
}

type sqliteScanner interface {
	Scan(dest ...any) error
}

func querySQLiteOne(row *sql.Row) (OutageRecord, bool, error) {
	rec, err := scanSQLiteOutage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return OutageRecord{}, false, nil
	}
	if err != nil {
		return OutageRecord{}, false, err
	}
	return rec, true, nil
}

func collectSQLiteRows(rows *sql.Rows) ([]OutageRecord, error) {
	defer rows.Close()

	outages := make([]OutageRecord, 0)
	for rows.Next() {
		rec, err := scanSQLiteOutage(rows)
		if err != nil {
			return nil, err
		}
		outages = append(outages, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return outages, nil
}

func scanSQLiteOutage(row sqliteScanner) (OutageRecord, error) {
	var (
		rec      OutageRecord
		startStr string
		endStr   sql.NullString
		duration sql.NullInt64
	)
	if err := row.Scan(&rec.ID, &startStr, &endStr, &duration); err != nil {
		return OutageRecord{}, err
	}

	start, err := parseSQLiteTime(startStr)
	if err != nil {
		return OutageRecord{}, fmt.Errorf("parse start_time of outage %d: %w", rec.ID, err)
	}
	rec.StartTime = start

	if endStr.Valid {
		end, err := parseSQLiteTime(endStr.String)
		if err != nil {
			return OutageRecord{}, fmt.Errorf("parse end_time of outage %d: %w", rec.ID, err)
		}
		rec.EndTime = null.TimeFrom(end)
	}
	if duration.Valid {
		rec.DurationSeconds = null.IntFrom(duration.Int64)
	}
	return rec, nil
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseSQLiteTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

var _ OutageStore = (*SQLiteStore)(nil)
