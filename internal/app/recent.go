package app

import (
	"context"
	"fmt"
	"text/tabwriter"

	"outagewatch/internal/report"
)

// Recent prints the most recent closed outages.
func (a *App) Recent(ctx context.Context, opts RecentOptions) error {
	limit := opts.Limit
	if limit == 0 {
		limit = a.Config.ResolveRecentLimit(0)
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	outages, err := report.Recent(ctx, store, limit)
	if err != nil {
		return err
	}
	if len(outages) == 0 {
		fmt.Fprintln(a.Out, "no outages recorded yet")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(writer, "ID\tStart Time\tEnd Time\tDuration (seconds)\t")
	for _, outage := range outages {
		fmt.Fprintf(
			writer,
			"%d\t%s\t%s\t%d\t\n",
			outage.ID,
			outage.StartTime.Local().Format(displayLayout),
			outage.EndTime.Time.Local().Format(displayLayout),
			outage.DurationSeconds.Int64,
		)
	}

	return writer.Flush()
}
