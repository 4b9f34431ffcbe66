// Package engine assembles one engine instance: a module registry, the
// service tables, a backend binder and the diagnostics sink they report to.
// Instances share nothing, so several can live in one process.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/enginecore/enginecore/internal/binder"
	"github.com/enginecore/enginecore/internal/conf"
	"github.com/enginecore/enginecore/internal/diag"
	"github.com/enginecore/enginecore/internal/dynlib"
	"github.com/enginecore/enginecore/internal/eventType"
	"github.com/enginecore/enginecore/internal/module"
	"github.com/enginecore/enginecore/internal/service"
	"github.com/enginecore/enginecore/internal/services"

	// Linked-in backends.
	_ "github.com/enginecore/enginecore/internal/backends/dummy"
	_ "github.com/enginecore/enginecore/internal/backends/osfile"
)

type Options struct {
	Name   string
	Config *conf.Config
	Logger *slog.Logger
	// Loader opens dynamic backends. Go plugins by default.
	Loader dynlib.Loader
}

type Engine struct {
	name   string
	cfg    *conf.Config
	logger *slog.Logger

	diag     *diag.Diagnostics
	modules  *module.Registry
	services *service.Registry
	binder   *binder.Binder

	// mu serializes lifecycle changes with snapshots taken by other
	// goroutines.
	mu      sync.Mutex
	dynamic map[service.ID]*binder.Binding
	started bool
}

func New(opts Options) (*Engine, error) {
	if opts.Name == "" {
		opts.Name = "engine"
	}
	if opts.Config == nil {
		d := conf.Default()
		opts.Config = &d
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Loader == nil {
		opts.Loader = dynlib.PluginLoader{}
	}

	d := diag.New(diag.Options{Name: opts.Name, Logger: opts.Logger})
	svcs := service.NewRegistry(service.WithLogger(opts.Logger), service.WithReporter(d))
	e := &Engine{
		name:     opts.Name,
		cfg:      opts.Config,
		logger:   opts.Logger,
		diag:     d,
		modules:  module.NewRegistry(module.WithLogger(opts.Logger), module.WithReporter(d)),
		services: svcs,
		binder: binder.New(svcs,
			binder.WithLoader(opts.Loader),
			binder.WithReporter(d),
			binder.WithLogger(opts.Logger),
			binder.WithResolver(dynlib.Resolver{
				Dir:         opts.Config.Plugin.Dir,
				Debug:       opts.Config.Plugin.Debug,
				DebugSuffix: opts.Config.Plugin.DebugSuffix,
			}),
		),
		dynamic: make(map[service.ID]*binder.Binding),
	}
	if err := e.registerCoreModules(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) Name() string { return e.name }

func (e *Engine) Config() *conf.Config { return e.cfg }

func (e *Engine) Diagnostics() *diag.Diagnostics { return e.diag }

func (e *Engine) Services() *service.Registry { return e.services }

func (e *Engine) Binder() *binder.Binder { return e.binder }

// Modules exposes the module registry. It is not safe for concurrent use;
// other goroutines should use ModuleSnapshot.
func (e *Engine) Modules() *module.Registry { return e.modules }

func (e *Engine) ModuleSnapshot() []module.Info {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.modules.Snapshot()
}

// InitOrder runs every module setup and returns the order Start would
// initialize them in.
func (e *Engine) InitOrder() ([]module.ID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.modules.SetupAll(); err != nil {
		return nil, err
	}
	return e.modules.Order()
}

// CheckModules initializes every core module on its own, records the
// outcome and tears everything down again. It reports which modules the
// current configuration can bring up without starting the engine.
func (e *Engine) CheckModules() ([]module.Info, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return nil, fmt.Errorf("check modules of %s: engine is running", e.name)
	}
	_, err := e.modules.InitAll()
	infos := e.modules.Snapshot()
	e.shutdown()
	return infos, err
}

// Start acquires the Main module and, through it, every core module. On
// failure everything initialized so far is torn down again.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return nil
	}
	status, err := e.modules.Acquire(MainModule)
	if status != module.InitSucceeded {
		e.shutdown()
		if err == nil {
			err = fmt.Errorf("main module status %s", status)
		}
		return fmt.Errorf("start engine %s: %w", e.name, err)
	}
	e.started = true
	e.diag.Lifecycle(eventType.EngineStarted, map[string]any{"root": string(MainModule)})
	return nil
}

// Stop releases Main and forces whatever is left down.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return
	}
	e.modules.Release(MainModule)
	e.shutdown()
	e.started = false
	e.diag.Lifecycle(eventType.EngineStopped, map[string]any{"root": string(MainModule)})
}

func (e *Engine) shutdown() {
	e.modules.ExitAll()
	if err := e.binder.Close(); err != nil {
		e.logger.Error("Failed to close backends.", slog.Any("error", err))
	}
	clear(e.dynamic)
}

// Run calls the Main payload once per frame until it reports anything but
// Success or ctx is done. Display.Swap follows every frame when a display
// backend is bound.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	started := e.started
	e.mu.Unlock()
	if !started {
		return errors.New("engine not started")
	}

	main := e.Main()
	display := e.Display()
	_, swap := display.Table().Lookup(services.DisplaySwap)

	var tick <-chan time.Time
	if e.cfg.FrameInterval > 0 {
		ticker := time.NewTicker(e.cfg.FrameInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for frame := uint64(1); ; frame++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if main.Run() != service.Success {
			e.logger.Info("Main payload finished.", slog.Uint64("frames", frame-1))
			return nil
		}
		if swap {
			display.Swap()
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}
	}
}
