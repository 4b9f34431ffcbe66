package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"
)

const fxStopTimeout = 10 * time.Second

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// startFx starts app. The returned stop func stops it within stopTimeout and
// logs a failed stop; it is also run when the start itself fails.
func startFx(ctx context.Context, app *fx.App, stopTimeout time.Duration) (stop func(), err error) {
	stop = func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := app.Stop(stopCtx); err != nil {
			slog.Error("Engine shutdown did not complete.", slog.Any("error", err))
		}
	}
	if err := app.Start(ctx); err != nil {
		stop()
		return nil, err
	}
	return stop, nil
}

// runFxUntilDone starts app and blocks until ctx is cancelled or the app
// asks to shut down. Cancellation is a clean exit.
func runFxUntilDone(ctx context.Context, app *fx.App) error {
	stop, err := startFx(ctx, app, fxStopTimeout)
	if err != nil {
		return err
	}
	defer stop()

	select {
	case <-ctx.Done():
		return nil
	case sig := <-app.Wait():
		if sig.ExitCode != 0 {
			return fmt.Errorf("fx shutdown (exitCode=%d)", sig.ExitCode)
		}
		return nil
	}
}

// runFxWith starts app, runs fn and stops app once fn returns.
func runFxWith(ctx context.Context, app *fx.App, fn func(context.Context) error) error {
	stop, err := startFx(ctx, app, fxStopTimeout)
	if err != nil {
		return err
	}
	defer stop()
	return fn(ctx)
}
