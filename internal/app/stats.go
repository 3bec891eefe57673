package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"outagewatch/internal/report"
)

const displayLayout = "2006-01-02 15:04:05"

// Stats prints aggregate statistics over closed outages.
func (a *App) Stats(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	records, err := store.ListAll(ctx)
	if err != nil {
		return err
	}
	stats := report.Summarize(records)

	rule := strings.Repeat("-", 50)
	fmt.Fprintln(a.Out)
	fmt.Fprintln(a.Out, "Internet Outage Statistics:")
	fmt.Fprintln(a.Out, rule)
	fmt.Fprintf(a.Out, "Total number of outages: %d\n", stats.TotalOutages)
	fmt.Fprintf(a.Out, "Total outage duration: %d seconds\n", int64(stats.TotalDowntime/time.Second))
	fmt.Fprintf(a.Out, "Average outage duration: %.2f seconds\n", stats.AverageSeconds)
	fmt.Fprintf(a.Out, "Longest outage: %d seconds\n", int64(stats.Longest/time.Second))
	fmt.Fprintf(a.Out, "Shortest outage: %d seconds\n", int64(stats.Shortest/time.Second))
	if stats.TotalOutages > 0 {
		fmt.Fprintf(a.Out, "Period covered: %s to %s\n",
			stats.FirstStart.Local().Format(displayLayout),
			stats.LastEnd.Local().Format(displayLayout))
	}
	if stats.Ongoing != nil {
		fmt.Fprintf(a.Out, "Ongoing outage since: %s\n", stats.Ongoing.StartTime.Local().Format(displayLayout))
	}
	fmt.Fprintln(a.Out, rule)
	fmt.Fprintln(a.Out)
	return nil
}
