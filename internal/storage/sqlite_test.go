package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "outages.db"), time.Second)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteOutageLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	id, err := store.OpenOutage(ctx, start)
	if err != nil {
		t.Fatalf("open outage: %v", err)
	}

	open, found, err := store.FindOpen(ctx)
	if err != nil || !found {
		t.Fatalf("expected open outage, found=%v err=%v", found, err)
	}
	if open.ID != id || !open.StartTime.Equal(start) || !open.IsOpen() {
		t.Fatalf("unexpected open record: %+v", open)
	}

	closed, err := store.CloseOutage(ctx, id, start.Add(90*time.Second))
	if err != nil {
		t.Fatalf("close outage: %v", err)
	}
	if closed.DurationSeconds.Int64 != 90 || closed.IsOpen() {
		t.Fatalf("unexpected closed record: %+v", closed)
	}

	if _, found, err := store.FindOpen(ctx); err != nil || found {
		t.Fatalf("no outage should remain open, found=%v err=%v", found, err)
	}

	all, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 record, got %d", len(all))
	}
	if !all[0].EndTime.Time.Equal(start.Add(90*time.Second)) || all[0].DurationSeconds.Int64 != 90 {
		t.Fatalf("persisted record mismatch: %+v", all[0])
	}
}

func TestSQLiteSingleOpenOutage(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	if _, err := store.OpenOutage(ctx, start); err != nil {
		t.Fatalf("open outage: %v", err)
	}
	if _, err := store.OpenOutage(ctx, start.Add(time.Minute)); !errors.Is(err, ErrOutageAlreadyOpen) {
		t.Fatalf("expected ErrOutageAlreadyOpen, got %v", err)
	}
}

func TestSQLiteCloseErrors(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	if _, err := store.CloseOutage(ctx, 42, start); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	id, err := store.OpenOutage(ctx, start)
	if err != nil {
		t.Fatalf("open outage: %v", err)
	}
	if _, err := store.CloseOutage(ctx, id, start.Add(-time.Second)); !errors.Is(err, ErrInvalidEnd) {
		t.Fatalf("expected ErrInvalidEnd, got %v", err)
	}
	if _, err := store.CloseOutage(ctx, id, start.Add(time.Second)); err != nil {
		t.Fatalf("close outage: %v", err)
	}
	if _, err := store.CloseOutage(ctx, id, start.Add(2*time.Second)); !errors.Is(err, ErrOutageClosed) {
		t.Fatalf("expected ErrOutageClosed, got %v", err)
	}
}

func TestSQLiteListRecentClosed(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		start := base.Add(time.Duration(i) * time.Hour)
		id, err := store.OpenOutage(ctx, start)
		if err != nil {
			t.Fatalf("open outage %d: %v", i, err)
		}
		if _, err := store.CloseOutage(ctx, id, start.Add(time.Duration(i+1)*time.Second)); err != nil {
			t.Fatalf("close outage %d: %v", i, err)
		}
	}
	if _, err := store.OpenOutage(ctx, base.Add(10*time.Hour)); err != nil {
		t.Fatalf("open trailing outage: %v", err)
	}

	recent, err := store.ListRecentClosed(ctx, 2)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recent))
	}
	if !recent[0].StartTime.Equal(base.Add(3*time.Hour)) || !recent[1].StartTime.Equal(base.Add(2*time.Hour)) {
		t.Fatalf("unexpected order: %v, %v", recent[0].StartTime, recent[1].StartTime)
	}

	all, err := store.ListRecentClosed(ctx, 100)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("open outage must be excluded, got %d records", len(all))
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 5 {
		t.Fatalf("expected count 5, got %d", count)
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "outages.db")
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	store, err := OpenSQLite(ctx, path, time.Second)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if _, err := store.OpenOutage(ctx, start); err != nil {
		t.Fatalf("open outage: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	reopened, err := OpenSQLite(ctx, path, time.Second)
	if err != nil {
		t.Fatalf("reopen sqlite: %v", err)
	}
	defer reopened.Close()

	open, found, err := reopened.FindOpen(ctx)
	if err != nil || !found {
		t.Fatalf("open outage lost across reopen: found=%v err=%v", found, err)
	}
	if !open.StartTime.Equal(start) {
		t.Fatalf("start time changed: %v", open.StartTime)
	}
}

func TestSQLiteConcurrentReaders(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "outages.db")
	writer, err := OpenSQLite(ctx, path, 2*time.Second)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	defer writer.Close()
	reader, err := OpenSQLite(ctx, path, 2*time.Second)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	defer reader.Close()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			start := base.Add(time.Duration(i) * time.Minute)
			id, err := writer.OpenOutage(ctx, start)
			if err != nil {
				errCh <- err
				return
			}
			if _, err := writer.CloseOutage(ctx, id, start.Add(30*time.Second)); err != nil {
				errCh <- err
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			records, err := reader.ListAll(ctx)
			if err != nil {
				errCh <- err
				return
			}
			for _, rec := range records {
				if rec.EndTime.Valid != rec.DurationSeconds.Valid {
					errCh <- errors.New("observed half-closed record")
					return
				}
			}
		}
	}()
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Fatalf("concurrent access failed: %v", err)
	}
}
