package engine

import (
	"fmt"
	"log/slog"

	"github.com/enginecore/enginecore/internal/binder"
	"github.com/enginecore/enginecore/internal/conf"
	"github.com/enginecore/enginecore/internal/module"
	"github.com/enginecore/enginecore/internal/service"
	"github.com/enginecore/enginecore/internal/services"
)

const (
	PluginModule module.ID = "Plugin"
	MainModule   module.ID = module.ID(services.MainID)
)

// backendServices are the services backed by a module of the same name,
// Main excluded.
var backendServices = []service.ID{
	services.DisplayID,
	services.SoundID,
	services.PhysicsID,
	services.JoystickID,
	services.KeyboardID,
	services.FileID,
}

func (e *Engine) registerCoreModules() error {
	if err := e.modules.RegisterModule(PluginModule, "Plugin binder", nil, nil, e.exitPlugin); err != nil {
		return err
	}
	for _, id := range backendServices {
		sm := &serviceModule{e: e, id: id}
		if err := e.modules.RegisterModule(module.ID(id), string(id)+" service", sm.setup, sm.init, sm.exit); err != nil {
			return err
		}
	}
	main := &serviceModule{e: e, id: services.MainID, main: true}
	return e.modules.RegisterModule(MainModule, "Main payload", main.setup, main.init, main.exit)
}

func (e *Engine) exitPlugin() {
	if err := e.binder.Close(); err != nil {
		e.logger.Error("Failed to close dynamic backends.", slog.Any("error", err))
	}
}

// serviceModule ties a service's lifecycle to a module: setup declares the
// table and links an embedded backend, init loads a dynamic one and calls
// the backend's Init slot, exit undoes both.
type serviceModule struct {
	e    *Engine
	id   service.ID
	main bool
}

func (m *serviceModule) backend() conf.Backend {
	return m.e.cfg.Backend(string(m.id))
}

func (m *serviceModule) setup(s *module.Setup) error {
	if err := s.DependsOn(PluginModule); err != nil {
		return err
	}
	if m.main {
		for _, id := range []service.ID{services.DisplayID, services.SoundID, services.PhysicsID, services.FileID, services.KeyboardID} {
			if err := s.DependsOn(module.ID(id)); err != nil {
				return err
			}
		}
		if err := s.OptionalDependsOn(module.ID(services.JoystickID)); err != nil {
			return err
		}
	}
	if _, err := m.e.table(m.id); err != nil {
		return err
	}

	b := m.backend()
	if b.Mode != conf.ModeEmbedded {
		return nil
	}
	if cur, ok := m.e.binder.Binding(m.id); ok && cur.Mode == binder.Embedded && cur.Library == b.Name {
		return nil
	}
	if _, err := m.e.binder.BindEmbedded(m.id, b.Name); err != nil {
		return m.degrade(b, err)
	}
	return nil
}

func (m *serviceModule) init() error {
	b := m.backend()
	var (
		bd  *binder.Binding
		err error
	)
	switch b.Mode {
	case conf.ModeDynamic:
		bd, err = m.e.binder.BindDynamic(m.id, b.Name)
	case conf.ModeShadow:
		bd, err = m.e.binder.ShadowLoad(m.id, b.Name)
	}
	if err != nil {
		if err := m.degrade(b, err); err != nil {
			return err
		}
	}
	if bd != nil {
		m.e.dynamic[m.id] = bd
	}

	lc := m.lifecycle()
	if !lc.Bound() {
		if b.Mode != conf.ModeNone {
			m.e.logger.Warn("Service running on stubs.", slog.String("service", string(m.id)))
		}
		return nil
	}
	if lc.Init() != service.Success {
		err := fmt.Errorf("%s backend %q failed to initialize", m.id, b.Name)
		if m.main || b.Required {
			m.unbind()
			return err
		}
		m.e.logger.Warn("Backend init failed, service degraded.", slog.String("service", string(m.id)), slog.Any("error", err))
	}
	return nil
}

func (m *serviceModule) exit() {
	if lc := m.lifecycle(); lc.Bound() {
		lc.Exit()
	}
	m.unbind()
}

func (m *serviceModule) unbind() {
	bd, ok := m.e.dynamic[m.id]
	if !ok {
		return
	}
	delete(m.e.dynamic, m.id)
	if err := m.e.binder.Unbind(bd); err != nil {
		m.e.logger.Error("Failed to unbind backend.", slog.String("service", string(m.id)), slog.Any("error", err))
	}
}

// degrade turns a bind failure into a warning unless the backend is
// required.
func (m *serviceModule) degrade(b conf.Backend, err error) error {
	if b.Required {
		return err
	}
	m.e.logger.Warn("Backend unavailable, service degraded to stubs.",
		slog.String("service", string(m.id)),
		slog.String("backend", b.Name),
		slog.Any("error", err))
	return nil
}

func (m *serviceModule) lifecycle() services.Lifecycle {
	t, _ := m.e.services.Table(m.id)
	return services.NewLifecycle(t)
}
