package cmd

import (
	"log/slog"

	"go.uber.org/fx/fxevent"
)

// fxLogger reports fx failures through slog and drops the chatter.
type fxLogger struct {
	logger *slog.Logger
}

func (l fxLogger) LogEvent(ev fxevent.Event) {
	switch e := ev.(type) {
	case *fxevent.OnStartExecuted:
		if e.Err != nil {
			l.logger.Error("Start hook failed.", slog.String("callee", e.FunctionName), slog.Any("error", e.Err))
		}
	case *fxevent.OnStopExecuted:
		if e.Err != nil {
			l.logger.Error("Stop hook failed.", slog.String("callee", e.FunctionName), slog.Any("error", e.Err))
		}
	case *fxevent.Invoked:
		if e.Err != nil {
			l.logger.Error("Invoke failed.", slog.String("function", e.FunctionName), slog.Any("error", e.Err))
		}
	case *fxevent.Provided:
		if e.Err != nil {
			l.logger.Error("Provide failed.", slog.Any("error", e.Err))
		}
	}
}
