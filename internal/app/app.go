package app

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"

	"outagewatch/internal/config"
	"outagewatch/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	// Out receives tables, CSV and status lines.
	Out io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{
		Config: cfg,
		Logger: logger.With().Str("component", "app").Logger(),
		Out:    os.Stdout,
	}
}

func (a *App) openStore(ctx context.Context) (storage.OutageStore, func(), error) {
	store, err := storage.Open(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	closer := func() {
		if err := store.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to close storage")
		}
	}
	return store, closer, nil
}

// WatchOptions override the configured probe target for one run. Nil fields
// keep the configured value.
type WatchOptions struct {
	IP       *string
	Port     *int
	Interval *int
}

// RecentOptions configure the recent command.
type RecentOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting outages.
type ExportOptions struct {
	CSVPath string
	PNGPath string
}

// CostOptions configure the cost report.
type CostOptions struct {
	Rate     string
	Currency string
}
