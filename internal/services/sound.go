package services

import "github.com/enginecore/enginecore/internal/service"

const (
	SoundLoadSample service.SlotID = iota + SlotExit + 1
	SoundPlay
	SoundStop
	SoundSetVolume
)

type (
	LoadSampleFunc func(name string) (id int, err error)
	PlayFunc       func(id int) service.Status
	StopFunc       func(id int) service.Status
	SetVolumeFunc  func(volume float64) service.Status
)

var SoundSchema = schema(SoundID,
	service.Slot[LoadSampleFunc]("LoadSample"),
	service.Slot[PlayFunc]("Play"),
	service.Slot[StopFunc]("Stop"),
	service.Slot[SetVolumeFunc]("SetVolume"),
)

type Sound struct {
	Lifecycle
}

func NewSound(t *service.Table) Sound { return Sound{Lifecycle{t: t}} }

func (s Sound) LoadSample(name string) (int, error) {
	defer s.t.Track()()
	return service.Fn[LoadSampleFunc](s.t, SoundLoadSample)(name)
}

func (s Sound) Play(id int) service.Status {
	defer s.t.Track()()
	return service.Fn[PlayFunc](s.t, SoundPlay)(id)
}

func (s Sound) Stop(id int) service.Status {
	defer s.t.Track()()
	return service.Fn[StopFunc](s.t, SoundStop)(id)
}

func (s Sound) SetVolume(v float64) service.Status {
	defer s.t.Track()()
	return service.Fn[SetVolumeFunc](s.t, SoundSetVolume)(v)
}
