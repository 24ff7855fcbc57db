package seat

// Message is an inbound protocol event addressed to a seat
type Message interface {
	Kind() string
}

type SeatCapabilities struct{ Caps Capability }

type SeatName struct{ Name string }

type KeyboardKeymap struct {
	Format uint32
	Data   []byte
}

type KeyboardEnter struct {
	Serial uint32
	Window WindowID
	Keys   []uint32
}

type KeyboardLeave struct {
	Serial uint32
	Window WindowID
}

type KeyboardKey struct {
	Serial uint32
	Time   uint32
	Code   uint32
	State  KeyState
}

type KeyboardModifiers struct {
	Serial    uint32
	Depressed uint32
	Latched   uint32
	Locked    uint32
	Group     uint32
}

type KeyboardRepeatInfo struct {
	Rate  int32
	Delay int32
}

type PointerEnter struct {
	Serial uint32
	Window WindowID
	X, Y   float64
}

type PointerLeave struct {
	Serial uint32
	Window WindowID
}

type PointerMotion struct {
	Time uint32
	X, Y float64
}

type PointerButton struct {
	Serial uint32
	Time   uint32
	Button uint32
	State  ButtonState
}

type PointerAxis struct {
	Time  uint32
	Axis  Axis
	Value float64
}

type TouchDown struct {
	Serial uint32
	Time   uint32
	Window WindowID
	ID     int32
	X, Y   float64
}

type TouchUp struct {
	Serial uint32
	Time   uint32
	ID     int32
}

type TouchMotion struct {
	Time uint32
	ID   int32
	X, Y float64
}

type TouchFrame struct{}

type TouchCancel struct{}

// WindowDestroyed notifies the seat that a window went away
type WindowDestroyed struct{ Window WindowID }

func (SeatCapabilities) Kind() string   { return "seat.capabilities" }
func (SeatName) Kind() string           { return "seat.name" }
func (KeyboardKeymap) Kind() string     { return "keyboard.keymap" }
func (KeyboardEnter) Kind() string      { return "keyboard.enter" }
func (KeyboardLeave) Kind() string      { return "keyboard.leave" }
func (KeyboardKey) Kind() string        { return "keyboard.key" }
func (KeyboardModifiers) Kind() string  { return "keyboard.modifiers" }
func (KeyboardRepeatInfo) Kind() string { return "keyboard.repeat_info" }
func (PointerEnter) Kind() string       { return "pointer.enter" }
func (PointerLeave) Kind() string       { return "pointer.leave" }
func (PointerMotion) Kind() string      { return "pointer.motion" }
func (PointerButton) Kind() string      { return "pointer.button" }
func (PointerAxis) Kind() string        { return "pointer.axis" }
func (TouchDown) Kind() string          { return "touch.down" }
func (TouchUp) Kind() string            { return "touch.up" }
func (TouchMotion) Kind() string        { return "touch.motion" }
func (TouchFrame) Kind() string         { return "touch.frame" }
func (TouchCancel) Kind() string        { return "touch.cancel" }
func (WindowDestroyed) Kind() string    { return "window.destroyed" }

// serialOf returns the serial carried by m, if it has one
func serialOf(m Message) (uint32, bool) {
	switch v := m.(type) {
	case KeyboardEnter:
		return v.Serial, true
	case KeyboardLeave:
		return v.Serial, true
	case KeyboardKey:
		return v.Serial, true
	case KeyboardModifiers:
		return v.Serial, true
	case PointerEnter:
		return v.Serial, true
	case PointerLeave:
		return v.Serial, true
	case PointerButton:
		return v.Serial, true
	case TouchDown:
		return v.Serial, true
	case TouchUp:
		return v.Serial, true
	}
	return 0, false
}
