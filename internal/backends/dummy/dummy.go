// Package dummy is a headless backend for the display, physics, input and
// main services. It keeps just enough state to answer queries consistently
// and is linked into every build under the name "dummy".
package dummy

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/enginecore/enginecore/internal/binder"
	"github.com/enginecore/enginecore/internal/service"
	"github.com/enginecore/enginecore/internal/services"
)

const Name = "dummy"

func init() {
	binder.RegisterEmbedded(Name, Entry)
}

// Entry registers the overrides for whichever service is being bound. Its
// main payload runs until the engine is stopped.
func Entry(r binder.Registrar) error {
	return EntryWithFrames(0)(r)
}

// EntryWithFrames is Entry with a main payload that reports it is done
// after frames frames. Zero runs until the engine is stopped.
func EntryWithFrames(frames uint64) binder.EntryFunc {
	return func(r binder.Registrar) error {
		return register(r, frames)
	}
}

func register(r binder.Registrar, frames uint64) error {
	switch r.Service() {
	case services.DisplayID:
		return r.Register(services.DisplayID, newDisplay().overrides()...)
	case services.PhysicsID:
		return r.Register(services.PhysicsID, newPhysics().overrides()...)
	case services.JoystickID:
		return r.Register(services.JoystickID, joystickOverrides()...)
	case services.KeyboardID:
		return r.Register(services.KeyboardID, keyboardOverrides()...)
	case services.MainID:
		return r.Register(services.MainID, newMain(frames).overrides()...)
	default:
		return fmt.Errorf("dummy backend has nothing for %s", r.Service())
	}
}

func ok() service.Status { return service.Success }

func lifecycle(init services.InitFunc, exit services.ExitFunc) []service.Override {
	return []service.Override{
		{Slot: services.SlotInit, Fn: init},
		{Slot: services.SlotExit, Fn: exit},
	}
}

type display struct {
	mu            sync.Mutex
	width, height int
	title         string
	frames        atomic.Uint64
}

func newDisplay() *display { return &display{width: 800, height: 600} }

func (d *display) overrides() []service.Override {
	return append(lifecycle(ok, func() {}),
		service.Override{Slot: services.DisplaySwap, Fn: services.SwapFunc(func() service.Status {
			d.frames.Add(1)
			return service.Success
		})},
		service.Override{Slot: services.DisplayClear, Fn: services.ClearFunc(func(uint32) service.Status { return service.Success })},
		service.Override{Slot: services.DisplayGetScreenSize, Fn: services.GetScreenSizeFunc(func() (float64, float64) {
			d.mu.Lock()
			defer d.mu.Unlock()
			return float64(d.width), float64(d.height)
		})},
		service.Override{Slot: services.DisplaySetVideoMode, Fn: services.SetVideoModeFunc(func(w, h, _ int) service.Status {
			if w <= 0 || h <= 0 {
				return service.Failure
			}
			d.mu.Lock()
			d.width, d.height = w, h
			d.mu.Unlock()
			return service.Success
		})},
		service.Override{Slot: services.DisplaySetTitle, Fn: services.SetTitleFunc(func(title string) error {
			d.mu.Lock()
			d.title = title
			d.mu.Unlock()
			return nil
		})},
	)
}

type physics struct {
	mu        sync.Mutex
	gx, gy    float64
	simulated float64
}

func newPhysics() *physics { return &physics{gy: -9.81} }

func (p *physics) overrides() []service.Override {
	return append(lifecycle(ok, func() {}),
		service.Override{Slot: services.PhysicsStep, Fn: services.StepFunc(func(dt float64) service.Status {
			if dt < 0 {
				return service.Failure
			}
			p.mu.Lock()
			p.simulated += dt
			p.mu.Unlock()
			return service.Success
		})},
		service.Override{Slot: services.PhysicsSetGravity, Fn: services.SetGravityFunc(func(x, y float64) service.Status {
			p.mu.Lock()
			p.gx, p.gy = x, y
			p.mu.Unlock()
			return service.Success
		})},
		service.Override{Slot: services.PhysicsGetGravity, Fn: services.GetGravityFunc(func() (float64, float64) {
			p.mu.Lock()
			defer p.mu.Unlock()
			return p.gx, p.gy
		})},
	)
}

func joystickOverrides() []service.Override {
	return append(lifecycle(ok, func() {}),
		service.Override{Slot: services.JoystickIsButtonPressed, Fn: services.IsButtonPressedFunc(func(int, int) bool { return false })},
		service.Override{Slot: services.JoystickGetAxis, Fn: services.GetAxisFunc(func(int, int) float64 { return 0 })},
	)
}

func keyboardOverrides() []service.Override {
	return append(lifecycle(ok, func() {}),
		service.Override{Slot: services.KeyboardIsKeyPressed, Fn: services.IsKeyPressedFunc(func(string) bool { return false })},
		service.Override{Slot: services.KeyboardReadString, Fn: services.ReadStringFunc(func() string { return "" })},
	)
}

type mainPayload struct {
	limit uint64
	ran   atomic.Uint64
}

func newMain(frames uint64) *mainPayload { return &mainPayload{limit: frames} }

func (m *mainPayload) overrides() []service.Override {
	return append(lifecycle(ok, func() {}),
		service.Override{Slot: services.MainRun, Fn: services.RunFunc(func() service.Status {
			n := m.ran.Add(1)
			if m.limit > 0 && n > m.limit {
				return service.Failure
			}
			return service.Success
		})},
	)
}
