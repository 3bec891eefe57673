package app

import (
	"context"

	"github.com/shopspring/decimal"

	"outagewatch/internal/report"
)

// Export writes all outages as CSV to a file, or to Out when no path is
// given, and optionally renders a monthly downtime chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	records, err := store.ListAll(ctx)
	if err != nil {
		return err
	}

	if opts.CSVPath == "" || opts.CSVPath == "-" {
		if err := report.WriteCSV(a.Out, records); err != nil {
			return err
		}
	} else {
		if err := report.ExportCSV(opts.CSVPath, records); err != nil {
			return err
		}
		a.Logger.Info().Int("records", len(records)).Str("path", opts.CSVPath).Msg("outages exported")
	}

	if opts.PNGPath != "" {
		costs, err := report.Cost(records, decimal.Zero)
		if err != nil {
			return err
		}
		if err := report.WriteDowntimeChart(opts.PNGPath, costs); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.PNGPath).Msg("downtime chart written")
	}
	return nil
}
