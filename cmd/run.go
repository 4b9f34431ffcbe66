package cmd

import (
	"context"
	"errors"

	"github.com/enginecore/enginecore/internal/engine"
	"github.com/enginecore/enginecore/internal/inspect"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var (
	runTrace   bool
	runInspect bool
)

var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the engine and run the main payload",
	Long:  `Start the engine, run the main payload frame by frame until it finishes or the process is interrupted, then shut everything down.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var e *engine.Engine
		opts := []fx.Option{engine.FxLifecycle(), fx.Populate(&e)}
		if runTrace {
			opts = append([]fx.Option{traceEvents(cmd.OutOrStdout())}, opts...)
		}
		if runInspect {
			opts = append(opts, inspect.FxModule())
		}
		app := engineApp(opts...)
		if err := app.Err(); err != nil {
			return err
		}

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		err := runFxWith(ctx, app, func(ctx context.Context) error {
			return e.Run(ctx)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	RunCmd.Flags().BoolVar(&runTrace, "trace", false, "Print every diagnostics event")
	RunCmd.Flags().BoolVar(&runInspect, "inspect", false, "Serve the inspection API while running")
	RootCmd.AddCommand(RunCmd)
}
