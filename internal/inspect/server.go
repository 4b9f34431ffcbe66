package inspect

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/enginecore/enginecore/internal/conf"
	"github.com/enginecore/enginecore/internal/engine"
	"go.uber.org/fx"
)

type Server struct {
	httpServer *http.Server
	listener   net.Listener
	stopped    chan struct{}
}

func NewServer(listen string, e *engine.Engine) *Server {
	return &Server{
		httpServer: &http.Server{Addr: listen, Handler: NewRouter(e)},
		stopped:    make(chan struct{}),
	}
}

// Start listens synchronously so address errors surface here, then serves
// in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	slog.Info("Inspection API listening.", slog.String("addr", ln.Addr().String()))
	go func() {
		defer close(s.stopped)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Inspection API stopped.", slog.Any("error", err))
		}
	}()
	return nil
}

func (s *Server) Addr() string {
	if s.listener == nil {
		return s.httpServer.Addr
	}
	return s.listener.Addr().String()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	err := s.httpServer.Shutdown(ctx)
	select {
	case <-s.stopped:
	case <-ctx.Done():
	}
	return err
}

// FxModule serves the inspection API on cfg.Inspect.Listen for the
// lifetime of the fx app.
func FxModule() fx.Option {
	return fx.Options(
		fx.Provide(func(cfg *conf.Config, e *engine.Engine) *Server {
			return NewServer(cfg.Inspect.Listen, e)
		}),
		fx.Invoke(func(lc fx.Lifecycle, s *Server) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error { return s.Start() },
				OnStop:  s.Stop,
			})
		}),
	)
}
