package services

import "github.com/enginecore/enginecore/internal/service"

const (
	DisplaySwap service.SlotID = iota + SlotExit + 1
	DisplayClear
	DisplayGetScreenSize
	DisplaySetVideoMode
	DisplaySetTitle
)

type (
	SwapFunc          func() service.Status
	ClearFunc         func(rgba uint32) service.Status
	GetScreenSizeFunc func() (width, height float64)
	SetVideoModeFunc  func(width, height, depth int) service.Status
	SetTitleFunc      func(title string) error
)

var DisplaySchema = schema(DisplayID,
	service.Slot[SwapFunc]("Swap"),
	service.Slot[ClearFunc]("Clear"),
	service.Slot[GetScreenSizeFunc]("GetScreenSize"),
	service.Slot[SetVideoModeFunc]("SetVideoMode"),
	service.Slot[SetTitleFunc]("SetTitle"),
)

type Display struct {
	Lifecycle
}

func NewDisplay(t *service.Table) Display { return Display{Lifecycle{t: t}} }

func (d Display) Swap() service.Status {
	defer d.t.Track()()
	return service.Fn[SwapFunc](d.t, DisplaySwap)()
}

func (d Display) Clear(rgba uint32) service.Status {
	defer d.t.Track()()
	return service.Fn[ClearFunc](d.t, DisplayClear)(rgba)
}

func (d Display) ScreenSize() (float64, float64) {
	defer d.t.Track()()
	return service.Fn[GetScreenSizeFunc](d.t, DisplayGetScreenSize)()
}

func (d Display) SetVideoMode(width, height, depth int) service.Status {
	defer d.t.Track()()
	return service.Fn[SetVideoModeFunc](d.t, DisplaySetVideoMode)(width, height, depth)
}

func (d Display) SetTitle(title string) error {
	defer d.t.Track()()
	return service.Fn[SetTitleFunc](d.t, DisplaySetTitle)(title)
}
