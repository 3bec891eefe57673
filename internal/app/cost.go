package app

import (
	"context"
	"fmt"
	"text/tabwriter"

	"outagewatch/internal/report"
)

// Cost prints the monthly cost-of-downtime table and totals.
func (a *App) Cost(ctx context.Context, opts CostOptions) error {
	rate, err := report.ParseRate(opts.Rate)
	if err != nil {
		return err
	}
	currency := opts.Currency
	if currency == "" {
		currency = a.Config.Report.Currency
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	records, err := store.ListAll(ctx)
	if err != nil {
		return err
	}

	costs, err := report.Cost(records, rate)
	if err != nil {
		return err
	}
	if len(costs.Months) == 0 {
		fmt.Fprintln(a.Out, "\nNo outages recorded yet.")
		fmt.Fprintln(a.Out)
		return nil
	}

	fmt.Fprintln(a.Out, "\nMonthly Cost Analysis:")
	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Year\tMonth\tOutages\tTotal Time\t% Downtime\tCost Impact\tRate/Hour")
	for _, month := range costs.Months {
		fmt.Fprintf(
			writer,
			"%d\t%s\t%d\t%s\t%s%%\t%s%s\t%s%s/h\n",
			month.Year,
			month.Month,
			month.Outages,
			formatClock(month.DowntimeSeconds),
			month.PercentDowntime.StringFixed(3),
			currency, month.Cost.StringFixed(3),
			currency, month.HourlyRate.StringFixed(3),
		)
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(a.Out, "\nSummary:")
	summary := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(summary, "Total cost of outages\t%s%s\n", currency, costs.TotalCost.StringFixed(3))
	fmt.Fprintf(summary, "Average monthly cost\t%s%s\n", currency, costs.AverageMonthlyCost.StringFixed(3))
	fmt.Fprintf(summary, "Total downtime\t%s hours (%s hours/month avg)\n", costs.TotalDowntimeHours.StringFixed(3), costs.AverageMonthlyDowntimeHours.StringFixed(3))
	fmt.Fprintf(summary, "Cost per hour of downtime\t%s%s/h\n", currency, costs.EffectiveHourlyRate.StringFixed(3))
	if err := summary.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(a.Out)
	return nil
}

func formatClock(seconds int64) string {
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}
