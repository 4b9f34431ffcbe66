package engine

import (
	"fmt"

	"github.com/enginecore/enginecore/internal/errdefs"
	"github.com/enginecore/enginecore/internal/service"
	"github.com/enginecore/enginecore/internal/services"
)

// table declares the service's schema on first use and returns its table.
func (e *Engine) table(id service.ID) (*service.Table, error) {
	if t, ok := e.services.Table(id); ok {
		return t, nil
	}
	s, ok := services.SchemaOf(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errdefs.ErrUnknownService, id)
	}
	return e.services.Declare(s)
}

func (e *Engine) mustTable(id service.ID) *service.Table {
	t, err := e.table(id)
	if err != nil {
		panic(err)
	}
	return t
}

func (e *Engine) Display() services.Display { return services.NewDisplay(e.mustTable(services.DisplayID)) }

func (e *Engine) Sound() services.Sound { return services.NewSound(e.mustTable(services.SoundID)) }

func (e *Engine) Physics() services.Physics { return services.NewPhysics(e.mustTable(services.PhysicsID)) }

func (e *Engine) Joystick() services.Joystick {
	return services.NewJoystick(e.mustTable(services.JoystickID))
}

func (e *Engine) Keyboard() services.Keyboard {
	return services.NewKeyboard(e.mustTable(services.KeyboardID))
}

func (e *Engine) File() services.File { return services.NewFile(e.mustTable(services.FileID)) }

func (e *Engine) Main() services.Main { return services.NewMain(e.mustTable(services.MainID)) }
