package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"outagewatch/internal/probe"
	"outagewatch/internal/report"
	"outagewatch/internal/scheduler"
	"outagewatch/internal/service"
	"outagewatch/internal/tracker"
)

// Watch executes the long-running monitoring loop.
func (a *App) Watch(ctx context.Context, opts WatchOptions) error {
	watchCfg := a.Config.Watch
	if opts.IP != nil {
		watchCfg.TargetIP = *opts.IP
	}
	if opts.Port != nil {
		watchCfg.TargetPort = *opts.Port
	}
	if opts.Interval != nil {
		if *opts.Interval <= 0 {
			return fmt.Errorf("%w: interval must be a positive number of seconds", report.ErrInvalidArgument)
		}
		watchCfg.Interval = time.Duration(*opts.Interval) * time.Second
	}
	if err := watchCfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", report.ErrInvalidArgument, err)
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	prober := probe.NewTCP(probe.Options{
		IP:      watchCfg.TargetIP,
		Port:    watchCfg.TargetPort,
		Timeout: watchCfg.EffectiveProbeTimeout(),
	}, a.Logger)

	sched := scheduler.New(scheduler.Options{
		Interval:     watchCfg.Interval,
		AlignToStart: watchCfg.AlignToInterval,
		StartupDelay: watchCfg.StartupDelay,
		Immediate:    true,
	}, a.Logger)

	trk := tracker.New(store, tracker.Options{
		WriteRetries: watchCfg.WriteRetries,
		RetryBackoff: watchCfg.RetryBackoff,
	}, a.Logger)

	svc := service.New(sched, prober, store, trk, service.Options{
		LockKey: watchCfg.LockKey,
		Out:     a.Out,
	}, a.Logger)

	fmt.Fprintln(a.Out, "Starting internet connectivity monitoring...")
	fmt.Fprintf(a.Out, "Checking %s every %s\n", prober.Address(), watchCfg.Interval)
	fmt.Fprintln(a.Out, "Press Ctrl+C to stop monitoring.")

	a.Logger.Info().
		Str("app", a.Config.App.Name).
		Str("environment", a.Config.App.Environment).
		Str("target", prober.Address()).
		Dur("interval", watchCfg.Interval).
		Dur("probe_timeout", watchCfg.EffectiveProbeTimeout()).
		Msg("starting monitoring service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("monitoring service terminated with error")
		return err
	}

	if open, ok := trk.OpenOutage(); ok {
		a.Logger.Warn().Int64("outage_id", open.ID).Msg("stopping during an outage; it will be closed on next start")
	}
	a.Logger.Info().Msg("monitoring service stopped")
	return nil
}
