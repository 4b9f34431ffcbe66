package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/enginecore/enginecore/internal/conf"
	"github.com/enginecore/enginecore/internal/engine"
	logutil "github.com/enginecore/enginecore/internal/log"
	"github.com/gookit/event"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

func applyLogLevel(cfg *conf.Config) {
	logutil.SetupGlobalLogger(logutil.ParseLevel(cfg.LogLevel))
}

// traceEvents prints every diagnostics event of e to w.
func traceEvents(w io.Writer) fx.Option {
	return fx.Invoke(func(e *engine.Engine) {
		e.Diagnostics().On(event.Wildcard, func(ev event.Event) error {
			fmt.Fprintf(w, "event %s %v\n", ev.Name(), ev.Data())
			return nil
		})
	})
}

// engineApp is the fx graph shared by the commands that boot an engine.
func engineApp(extra ...fx.Option) *fx.App {
	opts := []fx.Option{
		conf.FxModule(),
		fx.Invoke(applyLogLevel),
		engine.FxModule(),
		fx.WithLogger(func() fxevent.Logger { return fxLogger{slog.Default()} }),
	}
	return fx.New(append(opts, extra...)...)
}
