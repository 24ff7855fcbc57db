package seat

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/bnema/wlseat/internal/keymap"
)

// CursorSetter installs a cursor image. The pointer calls it only for requests that
// cite a valid enter serial.
type CursorSetter interface {
	SetCursor(serial uint32, shape string) error
}

// Env is what every sub-device shares with its seat
type Env struct {
	Focus     *FocusTracker
	Windows   *Windows
	Sink      Sink
	Scheduler Scheduler
	Cursor    CursorSetter
	Logger    *log.Logger

	RepeatRate  int32
	RepeatDelay time.Duration
}

func (e Env) deliver(ev Event) {
	if e.Sink != nil {
		e.Sink.Deliver(ev)
	}
}

// KeyboardDevice handles wl_keyboard events
type KeyboardDevice interface {
	HandleKeymap(format uint32, data []byte) error
	HandleEnter(serial uint32, window WindowID, keys []uint32) error
	HandleLeave(serial uint32, window WindowID) error
	HandleKey(serial, time, code uint32, state KeyState) error
	HandleModifiers(serial, depressed, latched, locked, group uint32) error
	HandleRepeatInfo(rate, delay int32) error
	Modifiers() keymap.Modifiers
	Keymap() keymap.Keymap
	Release()
}

// PointerDevice handles wl_pointer events
type PointerDevice interface {
	HandleEnter(serial uint32, window WindowID, x, y float64) error
	HandleLeave(serial uint32, window WindowID) error
	HandleMotion(time uint32, x, y float64) error
	HandleButton(serial, time, button uint32, state ButtonState) error
	HandleAxis(time uint32, axis Axis, value float64) error
	SetCursor(serial uint32, shape string) error
	CursorSerial() uint32
	Position() Point
	Buttons() uint32
	RemoveButton(button uint32)
	Release()
}

// TouchDevice handles wl_touch events
type TouchDevice interface {
	HandleDown(serial, time uint32, window WindowID, id int32, x, y float64) error
	HandleUp(serial, time uint32, id int32) error
	HandleMotion(time uint32, id int32, x, y float64) error
	HandleFrame() error
	HandleCancel() error
	Points() []TouchPoint
	Release()
}

// Factory builds sub-devices when their capability appears. Nil fields use the
// default implementations, so a specialized device can wrap the default one.
type Factory struct {
	NewKeyboard func(env Env) KeyboardDevice
	NewPointer  func(env Env) PointerDevice
	NewTouch    func(env Env) TouchDevice
}

// DefaultFactory builds the stock devices
func DefaultFactory() Factory {
	return Factory{
		NewKeyboard: func(env Env) KeyboardDevice { return NewKeyboard(env) },
		NewPointer:  func(env Env) PointerDevice { return NewPointer(env) },
		NewTouch:    func(env Env) TouchDevice { return NewTouch(env) },
	}
}

func (f Factory) withDefaults() Factory {
	d := DefaultFactory()
	if f.NewKeyboard == nil {
		f.NewKeyboard = d.NewKeyboard
	}
	if f.NewPointer == nil {
		f.NewPointer = d.NewPointer
	}
	if f.NewTouch == nil {
		f.NewTouch = d.NewTouch
	}
	return f
}
