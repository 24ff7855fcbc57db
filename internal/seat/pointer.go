package seat

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// Linux input button codes covered by the pressed-button mask
const (
	BtnLeft   uint32 = 0x110
	BtnRight  uint32 = 0x111
	BtnMiddle uint32 = 0x112
	BtnSide   uint32 = 0x113
	BtnExtra  uint32 = 0x114
	BtnTask   uint32 = 0x117
)

// ButtonBit returns the mask bit of a button, or zero for buttons outside the mask range
func ButtonBit(button uint32) uint32 {
	if button < BtnLeft || button > BtnTask {
		return 0
	}
	return 1 << (button - BtnLeft)
}

// Pointer translates wl_pointer events. The pressed-button mask is forced empty
// whenever focus is lost so no window inherits a held button.
type Pointer struct {
	env Env
	log *log.Logger

	enter EnterSerial

	cursorSerial uint32
	cursorShape  string
	cursorSet    bool

	pos     Point
	global  Point
	buttons uint32
}

// NewPointer creates an unfocused pointer
func NewPointer(env Env) *Pointer {
	p := &Pointer{
		env: env,
		log: deviceLogger(env, "pointer"),
	}
	env.Focus.HandleDestroyed(ClassPointer, p.windowDestroyed)
	return p
}

// HandleEnter focuses window and captures serial as the cursor authorization
func (p *Pointer) HandleEnter(serial uint32, window WindowID, x, y float64) error {
	prev, err := p.env.Focus.Enter(ClassPointer, window, serial)
	if err != nil {
		return err
	}
	if prev != NoWindow && prev != window {
		p.releaseButtons(prev, serial, 0)
		p.env.deliver(FocusEvent{Class: ClassPointer, Window: prev, Focused: false, Serial: serial})
	}
	p.enter.Capture(serial)
	p.moveTo(window, x, y)
	p.env.deliver(FocusEvent{Class: ClassPointer, Window: window, Focused: true, Serial: serial})
	return nil
}

// HandleLeave drops focus if window has it and releases every held button
func (p *Pointer) HandleLeave(serial uint32, window WindowID) error {
	if !p.env.Focus.Leave(ClassPointer, window) {
		p.log.Debug("Ignoring stale leave", "window", window)
		return nil
	}
	p.left(window, serial)
	return nil
}

func (p *Pointer) left(window WindowID, serial uint32) {
	p.releaseButtons(window, serial, 0)
	p.env.deliver(FocusEvent{Class: ClassPointer, Window: window, Focused: false, Serial: serial})
}

func (p *Pointer) windowDestroyed(window WindowID) {
	if p.env.Focus.Leave(ClassPointer, window) {
		p.left(window, 0)
	}
}

// releaseButtons empties the mask, telling window about each button it loses
func (p *Pointer) releaseButtons(window WindowID, serial, time uint32) {
	for bit := uint32(0); p.buttons != 0 && bit < 32; bit++ {
		mask := uint32(1) << bit
		if p.buttons&mask == 0 {
			continue
		}
		p.buttons &^= mask
		p.env.deliver(ButtonEvent{
			Window:    window,
			Serial:    serial,
			Time:      time,
			Button:    BtnLeft + bit,
			State:     ButtonReleased,
			Buttons:   p.buttons,
			X:         p.pos.X,
			Y:         p.pos.Y,
			Synthetic: true,
		})
	}
	p.buttons = 0
}

func (p *Pointer) moveTo(window WindowID, x, y float64) {
	p.pos = Point{X: x, Y: y}
	origin, _ := p.env.Windows.Origin(window)
	p.global = Point{X: origin.X + x, Y: origin.Y + y}
}

// HandleMotion updates the position. Motion without focus is dropped.
func (p *Pointer) HandleMotion(time uint32, x, y float64) error {
	window, ok := p.env.Focus.Current(ClassPointer)
	if !ok {
		return nil
	}
	p.moveTo(window, x, y)
	p.env.deliver(MotionEvent{
		Window:  window,
		Time:    time,
		X:       x,
		Y:       y,
		GlobalX: p.global.X,
		GlobalY: p.global.Y,
		Buttons: p.buttons,
	})
	return nil
}

// HandleButton updates the mask and forwards the transition. Releasing a button that
// is not held still forwards the event and reports ErrDuplicateRelease.
func (p *Pointer) HandleButton(serial, time, button uint32, state ButtonState) error {
	window, ok := p.env.Focus.Current(ClassPointer)
	if !ok {
		return nil
	}

	bit := ButtonBit(button)
	var dup bool
	switch state {
	case ButtonPressed:
		p.buttons |= bit
	case ButtonReleased:
		dup = bit != 0 && p.buttons&bit == 0
		p.buttons &^= bit
	}

	p.env.deliver(ButtonEvent{
		Window:  window,
		Serial:  serial,
		Time:    time,
		Button:  button,
		State:   state,
		Buttons: p.buttons,
		X:       p.pos.X,
		Y:       p.pos.Y,
	})

	if dup {
		return fmt.Errorf("%w: %#x", ErrDuplicateRelease, button)
	}
	return nil
}

// HandleAxis forwards a scroll step
func (p *Pointer) HandleAxis(time uint32, axis Axis, value float64) error {
	window, ok := p.env.Focus.Current(ClassPointer)
	if !ok {
		return nil
	}
	p.env.deliver(AxisEvent{
		Window: window,
		Time:   time,
		Axis:   axis,
		Value:  value,
		X:      p.pos.X,
		Y:      p.pos.Y,
	})
	return nil
}

// SetCursor installs shape on behalf of the event with the given serial. Requests
// citing a serial older than the last enter fail with ErrStaleSerial and leave the
// installed cursor alone; repeating the installed request is a no-op.
func (p *Pointer) SetCursor(serial uint32, shape string) error {
	if err := p.enter.Check(serial); err != nil {
		return err
	}
	if p.cursorSet && p.cursorSerial == serial && p.cursorShape == shape {
		return nil
	}
	if p.env.Cursor != nil {
		if err := p.env.Cursor.SetCursor(serial, shape); err != nil {
			return fmt.Errorf("failed to set cursor: %w", err)
		}
	}
	p.cursorSerial = serial
	p.cursorShape = shape
	p.cursorSet = true
	return nil
}

// CursorSerial returns the serial the installed cursor was set with
func (p *Pointer) CursorSerial() uint32 {
	return p.cursorSerial
}

// CursorShape returns the installed cursor shape
func (p *Pointer) CursorShape() string {
	return p.cursorShape
}

// EnterSerial returns the serial of the last enter
func (p *Pointer) EnterSerial() uint32 {
	s, _ := p.enter.Value()
	return s
}

// Position returns the surface-relative position, meaningful only while focused
func (p *Pointer) Position() Point {
	return p.pos
}

// GlobalPosition returns the position offset by the focused window's origin
func (p *Pointer) GlobalPosition() Point {
	return p.global
}

// Buttons returns the pressed-button mask
func (p *Pointer) Buttons() uint32 {
	return p.buttons
}

// RemoveButton forgets a held button without emitting an event, for applications
// that consumed the release themselves.
func (p *Pointer) RemoveButton(button uint32) {
	p.buttons &^= ButtonBit(button)
}

// Release leaves the focused window, releasing held buttons
func (p *Pointer) Release() {
	if w, ok := p.env.Focus.Current(ClassPointer); ok {
		p.env.Focus.Leave(ClassPointer, w)
		p.left(w, 0)
	}
	p.env.Focus.HandleDestroyed(ClassPointer, nil)
}
