package report

import (
	"time"

	"github.com/samber/lo"

	"outagewatch/internal/storage"
)

// Stats summarises closed outages. An ongoing outage does not count towards
// the aggregates and is reported on its own.
type Stats struct {
	TotalOutages   int
	TotalDowntime  time.Duration
	AverageSeconds float64
	Longest        time.Duration
	Shortest       time.Duration
	FirstStart     time.Time
	LastEnd        time.Time
	Ongoing        *storage.OutageRecord
}

// Summarize computes Stats over records. Empty input yields zero values.
func Summarize(records []storage.OutageRecord) Stats {
	var stats Stats

	if open, ok := lo.Find(records, func(r storage.OutageRecord) bool { return r.IsOpen() }); ok {
		stats.Ongoing = &open
	}

	closed := closedOnly(records)
	if len(closed) == 0 {
		return stats
	}

	totalSeconds := lo.SumBy(closed, func(r storage.OutageRecord) int64 { return r.DurationSeconds.Int64 })
	longest := lo.MaxBy(closed, func(a, b storage.OutageRecord) bool { return a.DurationSeconds.Int64 > b.DurationSeconds.Int64 })
	shortest := lo.MinBy(closed, func(a, b storage.OutageRecord) bool { return a.DurationSeconds.Int64 < b.DurationSeconds.Int64 })
	first := lo.MinBy(closed, func(a, b storage.OutageRecord) bool { return a.StartTime.Before(b.StartTime) })
	last := lo.MaxBy(closed, func(a, b storage.OutageRecord) bool { return a.EndTime.Time.After(b.EndTime.Time) })

	stats.TotalOutages = len(closed)
	stats.TotalDowntime = time.Duration(totalSeconds) * time.Second
	stats.AverageSeconds = float64(totalSeconds) / float64(len(closed))
	stats.Longest = longest.Duration()
	stats.Shortest = shortest.Duration()
	stats.FirstStart = first.StartTime
	stats.LastEnd = last.EndTime.Time
	return stats
}

func closedOnly(records []storage.OutageRecord) []storage.OutageRecord {
	return lo.Filter(records, func(r storage.OutageRecord, _ int) bool { return !r.IsOpen() })
}
