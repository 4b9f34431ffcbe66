package services

import "github.com/enginecore/enginecore/internal/service"

// MainRun is called once per frame; anything but Success ends the run.
const MainRun service.SlotID = SlotExit + 1

type RunFunc func() service.Status

var MainSchema = schema(MainID,
	service.Slot[RunFunc]("Run"),
)

// Main is the application payload: a game or tool bound like any backend.
type Main struct {
	Lifecycle
}

func NewMain(t *service.Table) Main { return Main{Lifecycle{t: t}} }

func (m Main) Run() service.Status {
	defer m.t.Track()()
	return service.Fn[RunFunc](m.t, MainRun)()
}
