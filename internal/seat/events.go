package seat

import (
	"fmt"
	"strings"

	"github.com/bnema/wlseat/internal/keymap"
)

// Event is an application-facing event produced by the seat
type Event interface {
	// Target is the window the event is delivered to
	Target() WindowID
}

// Sink consumes translated events. It is called on the loop goroutine and must not block.
type Sink interface {
	Deliver(ev Event)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ev Event)

func (f SinkFunc) Deliver(ev Event) { f(ev) }

// MultiSink fans events out to every sink in order
func MultiSink(sinks ...Sink) Sink {
	var live []Sink
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	return multiSink(live)
}

type multiSink []Sink

func (m multiSink) Deliver(ev Event) {
	for _, s := range m {
		s.Deliver(ev)
	}
}

// KeyState mirrors wl_keyboard.key_state
type KeyState uint32

const (
	KeyReleased KeyState = 0
	KeyPressed  KeyState = 1
)

func (s KeyState) String() string {
	if s == KeyPressed {
		return "pressed"
	}
	return "released"
}

// ButtonState mirrors wl_pointer.button_state
type ButtonState uint32

const (
	ButtonReleased ButtonState = 0
	ButtonPressed  ButtonState = 1
)

func (s ButtonState) String() string {
	if s == ButtonPressed {
		return "pressed"
	}
	return "released"
}

// Axis mirrors wl_pointer.axis
type Axis uint32

const (
	AxisVertical   Axis = 0
	AxisHorizontal Axis = 1
)

func (a Axis) String() string {
	if a == AxisHorizontal {
		return "horizontal"
	}
	return "vertical"
}

// TouchState is the lifecycle state of a touch point within a frame
type TouchState int

const (
	TouchPressed TouchState = iota
	TouchMoved
	TouchStationary
	TouchReleased
)

func (s TouchState) String() string {
	switch s {
	case TouchPressed:
		return "pressed"
	case TouchMoved:
		return "moved"
	case TouchStationary:
		return "stationary"
	case TouchReleased:
		return "released"
	default:
		return fmt.Sprintf("touchstate(%d)", int(s))
	}
}

// KeyEvent is a translated key press, release or repeat
type KeyEvent struct {
	Window WindowID
	Serial uint32
	Time   uint32
	Code   uint32
	Sym    keymap.Sym
	Text   string
	State  KeyState
	Mods   keymap.Modifiers
	Repeat bool
}

func (e KeyEvent) Target() WindowID { return e.Window }

// MotionEvent reports the pointer position in surface and global coordinates
type MotionEvent struct {
	Window  WindowID
	Time    uint32
	X, Y    float64
	GlobalX float64
	GlobalY float64
	Buttons uint32
}

func (e MotionEvent) Target() WindowID { return e.Window }

// ButtonEvent reports a button transition. Synthetic releases are generated when
// the pointer leaves with buttons held.
type ButtonEvent struct {
	Window    WindowID
	Serial    uint32
	Time      uint32
	Button    uint32
	State     ButtonState
	Buttons   uint32
	X, Y      float64
	Synthetic bool
}

func (e ButtonEvent) Target() WindowID { return e.Window }

// AxisEvent is a scroll step
type AxisEvent struct {
	Window WindowID
	Time   uint32
	Axis   Axis
	Value  float64
	X, Y   float64
}

func (e AxisEvent) Target() WindowID { return e.Window }

// TouchPoint is one point of a touch frame
type TouchPoint struct {
	ID    int32
	X, Y  float64
	State TouchState
}

// TouchFrameEvent carries every point updated between two frame boundaries
type TouchFrameEvent struct {
	Window      WindowID
	Time        uint32
	Points      []TouchPoint
	AllReleased bool
}

func (e TouchFrameEvent) Target() WindowID { return e.Window }

// TouchCancelEvent tells the window its touch session was taken away
type TouchCancelEvent struct {
	Window WindowID
}

func (e TouchCancelEvent) Target() WindowID { return e.Window }

// FocusEvent reports a focus change for one device class
type FocusEvent struct {
	Class   Class
	Window  WindowID
	Focused bool
	Serial  uint32
}

func (e FocusEvent) Target() WindowID { return e.Window }

// Describe formats an event on one line for logs and remote taps
func Describe(ev Event) string {
	switch e := ev.(type) {
	case KeyEvent:
		var b strings.Builder
		fmt.Fprintf(&b, "key %s code=%d sym=%s", e.State, e.Code, e.Sym)
		if e.Text != "" {
			fmt.Fprintf(&b, " text=%q", e.Text)
		}
		fmt.Fprintf(&b, " mods=%s", e.Mods)
		if e.Repeat {
			b.WriteString(" repeat")
		}
		fmt.Fprintf(&b, " %s", e.Window)
		return b.String()
	case MotionEvent:
		return fmt.Sprintf("motion %.2f,%.2f global=%.2f,%.2f buttons=%#x %s", e.X, e.Y, e.GlobalX, e.GlobalY, e.Buttons, e.Window)
	case ButtonEvent:
		s := fmt.Sprintf("button %#x %s buttons=%#x %s", e.Button, e.State, e.Buttons, e.Window)
		if e.Synthetic {
			s += " synthetic"
		}
		return s
	case AxisEvent:
		return fmt.Sprintf("axis %s %.2f %s", e.Axis, e.Value, e.Window)
	case TouchFrameEvent:
		parts := make([]string, 0, len(e.Points))
		for _, p := range e.Points {
			parts = append(parts, fmt.Sprintf("%d:%s@%.1f,%.1f", p.ID, p.State, p.X, p.Y))
		}
		return fmt.Sprintf("touch frame [%s] %s", strings.Join(parts, " "), e.Window)
	case TouchCancelEvent:
		return fmt.Sprintf("touch cancel %s", e.Window)
	case FocusEvent:
		verb := "leave"
		if e.Focused {
			verb = "enter"
		}
		return fmt.Sprintf("%s %s serial=%d %s", e.Class, verb, e.Serial, e.Window)
	default:
		return fmt.Sprintf("%T", ev)
	}
}
