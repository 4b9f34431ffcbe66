package services

import "github.com/enginecore/enginecore/internal/service"

const (
	PhysicsStep service.SlotID = iota + SlotExit + 1
	PhysicsSetGravity
	PhysicsGetGravity
)

type (
	StepFunc       func(dt float64) service.Status
	SetGravityFunc func(x, y float64) service.Status
	GetGravityFunc func() (x, y float64)
)

var PhysicsSchema = schema(PhysicsID,
	service.Slot[StepFunc]("Step"),
	service.Slot[SetGravityFunc]("SetGravity"),
	service.Slot[GetGravityFunc]("GetGravity"),
)

type Physics struct {
	Lifecycle
}

func NewPhysics(t *service.Table) Physics { return Physics{Lifecycle{t: t}} }

func (p Physics) Step(dt float64) service.Status {
	defer p.t.Track()()
	return service.Fn[StepFunc](p.t, PhysicsStep)(dt)
}

func (p Physics) SetGravity(x, y float64) service.Status {
	defer p.t.Track()()
	return service.Fn[SetGravityFunc](p.t, PhysicsSetGravity)(x, y)
}

func (p Physics) Gravity() (float64, float64) {
	defer p.t.Track()()
	return service.Fn[GetGravityFunc](p.t, PhysicsGetGravity)()
}
