// Package seat turns Wayland seat protocol events into application events.
//
// A Seat owns one keyboard, pointer and touch device per advertised capability and
// routes inbound Messages to them. Everything runs on a single goroutine (see Loop):
// nothing in this package locks.
package seat

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bnema/wlseat/internal/keymap"
	"github.com/bnema/wlseat/internal/logger"
)

// Capability is the wl_seat.capability bitmask
type Capability uint32

const (
	CapPointer  Capability = 1
	CapKeyboard Capability = 2
	CapTouch    Capability = 4
)

func (c Capability) String() string {
	if c == 0 {
		return "none"
	}
	var parts []string
	if c&CapPointer != 0 {
		parts = append(parts, "pointer")
	}
	if c&CapKeyboard != 0 {
		parts = append(parts, "keyboard")
	}
	if c&CapTouch != 0 {
		parts = append(parts, "touch")
	}
	return strings.Join(parts, "|")
}

// Options configure a Seat
type Options struct {
	Name      string
	Windows   *Windows
	Sink      Sink
	Scheduler Scheduler
	Factory   Factory
	Cursor    CursorSetter
	Logger    *log.Logger

	// RepeatRate is in keys per second; zero disables repeat until repeat_info arrives
	RepeatRate  int32
	RepeatDelay time.Duration
}

// Seat is one logical input source
type Seat struct {
	name    string
	caps    Capability
	serials SerialGenerator
	env     Env
	factory Factory
	log     *log.Logger

	keyboard KeyboardDevice
	pointer  PointerDevice
	touch    TouchDevice

	dataDevice io.Closer
}

// New creates a seat without capabilities
func New(opts Options) *Seat {
	if opts.Windows == nil {
		opts.Windows = NewWindows()
	}
	if opts.Logger == nil {
		opts.Logger = logger.For("seat")
	}
	if opts.Scheduler == nil {
		opts.Scheduler = NewManualClock()
	}
	return &Seat{
		name:    opts.Name,
		factory: opts.Factory.withDefaults(),
		log:     opts.Logger,
		env: Env{
			Focus:       NewFocusTracker(opts.Windows),
			Windows:     opts.Windows,
			Sink:        opts.Sink,
			Scheduler:   opts.Scheduler,
			Cursor:      opts.Cursor,
			Logger:      opts.Logger,
			RepeatRate:  opts.RepeatRate,
			RepeatDelay: opts.RepeatDelay,
		},
	}
}

func deviceLogger(env Env, device string) *log.Logger {
	if env.Logger == nil {
		return logger.For("seat").With("device", device)
	}
	return env.Logger.With("device", device)
}

// SetCapabilities builds devices for gained capabilities and releases lost ones
func (s *Seat) SetCapabilities(caps Capability) {
	gained := caps &^ s.caps
	lost := s.caps &^ caps
	s.caps = caps

	if lost&CapKeyboard != 0 && s.keyboard != nil {
		s.keyboard.Release()
		s.keyboard = nil
	}
	if lost&CapPointer != 0 && s.pointer != nil {
		s.pointer.Release()
		s.pointer = nil
	}
	if lost&CapTouch != 0 && s.touch != nil {
		s.touch.Release()
		s.touch = nil
	}

	if gained&CapKeyboard != 0 {
		s.keyboard = s.factory.NewKeyboard(s.env)
	}
	if gained&CapPointer != 0 {
		s.pointer = s.factory.NewPointer(s.env)
	}
	if gained&CapTouch != 0 {
		s.touch = s.factory.NewTouch(s.env)
	}

	if gained != 0 || lost != 0 {
		s.log.Debug("Capabilities changed", "seat", s.name, "caps", caps, "gained", gained, "lost", lost)
	}
}

// Capabilities returns the advertised capability mask
func (s *Seat) Capabilities() Capability {
	return s.caps
}

// Dispatch routes one protocol message. Messages for a device the seat does not
// have return ErrCapabilityMismatch; callers log them and carry on.
func (s *Seat) Dispatch(msg Message) error {
	if serial, ok := serialOf(msg); ok {
		s.serials.Observe(serial)
	}

	switch m := msg.(type) {
	case SeatCapabilities:
		s.SetCapabilities(m.Caps)
		return nil
	case SeatName:
		s.name = m.Name
		return nil
	case WindowDestroyed:
		s.HandleWindowDestroyed(m.Window)
		return nil

	case KeyboardKeymap:
		if s.keyboard == nil {
			return s.mismatch(msg)
		}
		return s.keyboard.HandleKeymap(m.Format, m.Data)
	case KeyboardEnter:
		if s.keyboard == nil {
			return s.mismatch(msg)
		}
		return s.keyboard.HandleEnter(m.Serial, m.Window, m.Keys)
	case KeyboardLeave:
		if s.keyboard == nil {
			return s.mismatch(msg)
		}
		return s.keyboard.HandleLeave(m.Serial, m.Window)
	case KeyboardKey:
		if s.keyboard == nil {
			return s.mismatch(msg)
		}
		return s.keyboard.HandleKey(m.Serial, m.Time, m.Code, m.State)
	case KeyboardModifiers:
		if s.keyboard == nil {
			return s.mismatch(msg)
		}
		return s.keyboard.HandleModifiers(m.Serial, m.Depressed, m.Latched, m.Locked, m.Group)
	case KeyboardRepeatInfo:
		if s.keyboard == nil {
			return s.mismatch(msg)
		}
		return s.keyboard.HandleRepeatInfo(m.Rate, m.Delay)

	case PointerEnter:
		if s.pointer == nil {
			return s.mismatch(msg)
		}
		return s.pointer.HandleEnter(m.Serial, m.Window, m.X, m.Y)
	case PointerLeave:
		if s.pointer == nil {
			return s.mismatch(msg)
		}
		return s.pointer.HandleLeave(m.Serial, m.Window)
	case PointerMotion:
		if s.pointer == nil {
			return s.mismatch(msg)
		}
		return s.pointer.HandleMotion(m.Time, m.X, m.Y)
	case PointerButton:
		if s.pointer == nil {
			return s.mismatch(msg)
		}
		return s.pointer.HandleButton(m.Serial, m.Time, m.Button, m.State)
	case PointerAxis:
		if s.pointer == nil {
			return s.mismatch(msg)
		}
		return s.pointer.HandleAxis(m.Time, m.Axis, m.Value)

	case TouchDown:
		if s.touch == nil {
			return s.mismatch(msg)
		}
		return s.touch.HandleDown(m.Serial, m.Time, m.Window, m.ID, m.X, m.Y)
	case TouchUp:
		if s.touch == nil {
			return s.mismatch(msg)
		}
		return s.touch.HandleUp(m.Serial, m.Time, m.ID)
	case TouchMotion:
		if s.touch == nil {
			return s.mismatch(msg)
		}
		return s.touch.HandleMotion(m.Time, m.ID, m.X, m.Y)
	case TouchFrame:
		if s.touch == nil {
			return s.mismatch(msg)
		}
		return s.touch.HandleFrame()
	case TouchCancel:
		if s.touch == nil {
			return s.mismatch(msg)
		}
		return s.touch.HandleCancel()
	}

	return fmt.Errorf("unhandled message %T", msg)
}

func (s *Seat) mismatch(msg Message) error {
	s.log.Debug("Dropping message for absent device", "msg", msg.Kind(), "caps", s.caps)
	return fmt.Errorf("%w: %s with caps %s", ErrCapabilityMismatch, msg.Kind(), s.caps)
}

// HandleWindowDestroyed clears every focus held by window before returning
func (s *Seat) HandleWindowDestroyed(window WindowID) {
	s.env.Windows.Destroy(window)
}

// SetCursor asks the pointer to install shape, authorized by serial
func (s *Seat) SetCursor(serial uint32, shape string) error {
	if s.pointer == nil {
		return fmt.Errorf("%w: set cursor without pointer", ErrCapabilityMismatch)
	}
	return s.pointer.SetCursor(serial, shape)
}

// RemoveButton clears a held pointer button without emitting a release
func (s *Seat) RemoveButton(button uint32) {
	if s.pointer != nil {
		s.pointer.RemoveButton(button)
	}
}

// Name returns the seat name from wl_seat.name
func (s *Seat) Name() string { return s.name }

// Windows returns the registry the seat validates window handles against
func (s *Seat) Windows() *Windows { return s.env.Windows }

// Serial returns the latest serial seen on this seat
func (s *Seat) Serial() uint32 { return s.serials.Last() }

// CursorSerial returns the serial of the installed cursor
func (s *Seat) CursorSerial() uint32 {
	if s.pointer == nil {
		return 0
	}
	return s.pointer.CursorSerial()
}

// Modifiers returns the keyboard's derived modifier flags
func (s *Seat) Modifiers() keymap.Modifiers {
	if s.keyboard == nil {
		return 0
	}
	return s.keyboard.Modifiers()
}

func (s *Seat) KeyboardFocus() (WindowID, bool) { return s.env.Focus.Current(ClassKeyboard) }
func (s *Seat) PointerFocus() (WindowID, bool)  { return s.env.Focus.Current(ClassPointer) }
func (s *Seat) TouchFocus() (WindowID, bool)    { return s.env.Focus.Current(ClassTouch) }

func (s *Seat) Keyboard() KeyboardDevice { return s.keyboard }
func (s *Seat) Pointer() PointerDevice   { return s.pointer }
func (s *Seat) Touch() TouchDevice       { return s.touch }

// SetDataDevice attaches the clipboard/drag channel, closing any previous one
func (s *Seat) SetDataDevice(dd io.Closer) {
	if s.dataDevice != nil && s.dataDevice != dd {
		_ = s.dataDevice.Close()
	}
	s.dataDevice = dd
}

// Close releases every device and the data device
func (s *Seat) Close() error {
	s.SetCapabilities(0)
	if s.dataDevice != nil {
		err := s.dataDevice.Close()
		s.dataDevice = nil
		if err != nil {
			return fmt.Errorf("failed to close data device: %w", err)
		}
	}
	return nil
}

// Snapshot is a point-in-time view of a seat for diagnostics
type Snapshot struct {
	Name          string
	Capabilities  Capability
	Serial        uint32
	KeyboardFocus WindowID
	PointerFocus  WindowID
	TouchFocus    WindowID
	Keymap        string
	Modifiers     keymap.Modifiers
	Pointer       Point
	Buttons       uint32
	CursorSerial  uint32
	TouchPoints   []TouchPoint
}

// Snapshot captures the current seat state
func (s *Seat) Snapshot() Snapshot {
	snap := Snapshot{
		Name:         s.name,
		Capabilities: s.caps,
		Serial:       s.serials.Last(),
	}
	snap.KeyboardFocus, _ = s.KeyboardFocus()
	snap.PointerFocus, _ = s.PointerFocus()
	snap.TouchFocus, _ = s.TouchFocus()
	if s.keyboard != nil {
		snap.Keymap = s.keyboard.Keymap().Name()
		snap.Modifiers = s.keyboard.Modifiers()
	}
	if s.pointer != nil {
		snap.Pointer = s.pointer.Position()
		snap.Buttons = s.pointer.Buttons()
		snap.CursorSerial = s.pointer.CursorSerial()
	}
	if s.touch != nil {
		snap.TouchPoints = s.touch.Points()
	}
	return snap
}
