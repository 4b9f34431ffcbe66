// Package services declares the engine's pluggable services and wraps each
// table in a typed facade. Facade calls count as in flight for the
// duration of the call.
package services

import (
	"github.com/enginecore/enginecore/internal/service"
)

const (
	DisplayID  service.ID = "Display"
	SoundID    service.ID = "Sound"
	PhysicsID  service.ID = "Physics"
	JoystickID service.ID = "Joystick"
	KeyboardID service.ID = "Keyboard"
	FileID     service.ID = "File"
	MainID     service.ID = "Main"
)

// Every schema starts with these two slots.
const (
	SlotInit service.SlotID = iota
	SlotExit
)

type (
	InitFunc func() service.Status
	ExitFunc func()
)

func schema(id service.ID, slots ...service.SlotSpec) service.Schema {
	return service.Schema{
		Service: id,
		Slots: append([]service.SlotSpec{
			service.Slot[InitFunc]("Init"),
			service.Slot[ExitFunc]("Exit"),
		}, slots...),
	}
}

// Schemas lists every service in the order the engine declares them.
func Schemas() []service.Schema {
	return []service.Schema{
		DisplaySchema,
		SoundSchema,
		PhysicsSchema,
		JoystickSchema,
		KeyboardSchema,
		FileSchema,
		MainSchema,
	}
}

// SchemaOf returns the schema of a known service.
func SchemaOf(id service.ID) (service.Schema, bool) {
	for _, s := range Schemas() {
		if s.Service == id {
			return s, true
		}
	}
	return service.Schema{}, false
}

// Lifecycle calls the Init and Exit slots every service has.
type Lifecycle struct{ t *service.Table }

func NewLifecycle(t *service.Table) Lifecycle { return Lifecycle{t: t} }

func (l Lifecycle) Init() service.Status {
	defer l.t.Track()()
	return service.Fn[InitFunc](l.t, SlotInit)()
}

func (l Lifecycle) Exit() {
	defer l.t.Track()()
	service.Fn[ExitFunc](l.t, SlotExit)()
}

func (l Lifecycle) Table() *service.Table { return l.t }

// Bound reports whether a backend provides Init.
func (l Lifecycle) Bound() bool {
	_, ok := l.t.Lookup(SlotInit)
	return ok
}
