package report

import (
	"context"
	"fmt"

	"outagewatch/internal/storage"
)

// RecentSource lists closed outages, newest start first.
type RecentSource interface {
	ListRecentClosed(ctx context.Context, limit int) ([]storage.OutageRecord, error)
}

// Recent returns up to n closed outages ordered by descending start time.
// Asking for more than exist returns all of them.
func Recent(ctx context.Context, src RecentSource, n int) ([]storage.OutageRecord, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: recent limit must be a positive integer, got %d", ErrInvalidArgument, n)
	}
	return src.ListRecentClosed(ctx, n)
}
