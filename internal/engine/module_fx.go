package engine

import (
	"context"
	"log/slog"

	"github.com/enginecore/enginecore/internal/conf"
	"go.uber.org/fx"
)

// FxModule provides an *Engine built from the *conf.Config in the graph.
func FxModule() fx.Option {
	return fx.Options(
		fx.Provide(newFromConfig),
	)
}

// FxLifecycle starts the engine with the fx app and stops it with it.
func FxLifecycle() fx.Option {
	return fx.Invoke(registerLifecycle)
}

func newFromConfig(cfg *conf.Config) (*Engine, error) {
	return New(Options{Config: cfg, Logger: slog.Default()})
}

func registerLifecycle(lc fx.Lifecycle, e *Engine) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return e.Start()
		},
		OnStop: func(context.Context) error {
			e.Stop()
			return nil
		},
	})
}
