package cmd

import (
	"github.com/enginecore/enginecore/internal/engine"
	"github.com/enginecore/enginecore/internal/inspect"
	"github.com/spf13/cobra"
)

var InspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Start the engine and serve the inspection API",
	Long:  `Start the engine without running the main payload and serve its modules, services, bindings and metrics over HTTP until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := engineApp(engine.FxLifecycle(), inspect.FxModule())
		if err := app.Err(); err != nil {
			return err
		}
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		return runFxUntilDone(ctx, app)
	},
}

func init() {
	RootCmd.AddCommand(InspectCmd)
}
