package storage

import (
	"time"

	"github.com/guregu/null/v5"
)

// OutageRecord is a persisted connectivity outage. EndTime and
// DurationSeconds stay null while the outage is ongoing.
type OutageRecord struct {
	ID              int64
	StartTime       time.Time
	EndTime         null.Time
	DurationSeconds null.Int
}

// IsOpen reports whether the outage has not been closed yet.
func (r OutageRecord) IsOpen() bool {
	return !r.EndTime.Valid
}

// Duration returns the closed outage length, or zero for open records.
func (r OutageRecord) Duration() time.Duration {
	if !r.DurationSeconds.Valid {
		return 0
	}
	return time.Duration(r.DurationSeconds.Int64) * time.Second
}

// DurationBetween computes the persisted duration in whole seconds.
func DurationBetween(start, end time.Time) int64 {
	return int64(end.Sub(start) / time.Second)
}
