package services

import "github.com/enginecore/enginecore/internal/service"

const (
	JoystickIsButtonPressed service.SlotID = iota + SlotExit + 1
	JoystickGetAxis
)

type (
	IsButtonPressedFunc func(joystick, button int) bool
	GetAxisFunc         func(joystick, axis int) float64
)

var JoystickSchema = schema(JoystickID,
	service.Slot[IsButtonPressedFunc]("IsButtonPressed"),
	service.Slot[GetAxisFunc]("GetAxis"),
)

type Joystick struct {
	Lifecycle
}

func NewJoystick(t *service.Table) Joystick { return Joystick{Lifecycle{t: t}} }

func (j Joystick) IsButtonPressed(joystick, button int) bool {
	defer j.t.Track()()
	return service.Fn[IsButtonPressedFunc](j.t, JoystickIsButtonPressed)(joystick, button)
}

func (j Joystick) Axis(joystick, axis int) float64 {
	defer j.t.Track()()
	return service.Fn[GetAxisFunc](j.t, JoystickGetAxis)(joystick, axis)
}

const (
	KeyboardIsKeyPressed service.SlotID = iota + SlotExit + 1
	KeyboardReadString
)

type (
	IsKeyPressedFunc func(key string) bool
	ReadStringFunc   func() string
)

var KeyboardSchema = schema(KeyboardID,
	service.Slot[IsKeyPressedFunc]("IsKeyPressed"),
	service.Slot[ReadStringFunc]("ReadString"),
)

type Keyboard struct {
	Lifecycle
}

func NewKeyboard(t *service.Table) Keyboard { return Keyboard{Lifecycle{t: t}} }

func (k Keyboard) IsKeyPressed(key string) bool {
	defer k.t.Track()()
	return service.Fn[IsKeyPressedFunc](k.t, KeyboardIsKeyPressed)(key)
}

// ReadString drains the characters typed since the last call.
func (k Keyboard) ReadString() string {
	defer k.t.Track()()
	return service.Fn[ReadStringFunc](k.t, KeyboardReadString)()
}
