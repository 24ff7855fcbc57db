// Package replay drives a seat from a script of protocol messages on a virtual
// clock. Scripts are TOML or YAML.
package replay

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v2"

	"github.com/bnema/wlseat/internal/keymap"
	"github.com/bnema/wlseat/internal/seat"
)

// ErrInvalidStep is returned for a step that cannot be turned into a message
var ErrInvalidStep = errors.New("invalid step")

// Kinds handled by the runner itself rather than dispatched to the seat
const (
	KindWait         = "wait"
	KindSetCursor    = "cursor.set"
	KindRemoveButton = "button.remove"
)

// Script is a replayable session
type Script struct {
	Name         string   `toml:"name" yaml:"name"`
	Seat         string   `toml:"seat" yaml:"seat"`
	Capabilities []string `toml:"capabilities" yaml:"capabilities"`
	RepeatRate   int32    `toml:"repeat_rate" yaml:"repeat_rate"`
	RepeatDelay  int      `toml:"repeat_delay_ms" yaml:"repeat_delay_ms"`
	Windows      []Window `toml:"window" yaml:"windows"`
	Steps        []Step   `toml:"step" yaml:"steps"`

	dir string
}

// Window is a window present when the script starts
type Window struct {
	ID uint32  `toml:"id" yaml:"id"`
	X  float64 `toml:"x" yaml:"x"`
	Y  float64 `toml:"y" yaml:"y"`
}

// Step is one scripted message. Only the fields its kind uses are read. A zero
// Serial or Time is filled in by the runner.
type Step struct {
	Kind    string `toml:"kind" yaml:"kind"`
	Advance int    `toml:"advance_ms" yaml:"advance_ms"`

	Serial uint32   `toml:"serial" yaml:"serial"`
	Time   uint32   `toml:"time" yaml:"time"`
	Window uint32   `toml:"window" yaml:"window"`
	Keys   []uint32 `toml:"keys" yaml:"keys"`
	Code   uint32   `toml:"code" yaml:"code"`
	State  string   `toml:"state" yaml:"state"`

	Depressed uint32 `toml:"depressed" yaml:"depressed"`
	Latched   uint32 `toml:"latched" yaml:"latched"`
	Locked    uint32 `toml:"locked" yaml:"locked"`
	Group     uint32 `toml:"group" yaml:"group"`
	Rate      int32  `toml:"rate" yaml:"rate"`
	Delay     int32  `toml:"delay" yaml:"delay"`

	X      float64 `toml:"x" yaml:"x"`
	Y      float64 `toml:"y" yaml:"y"`
	Button string  `toml:"button" yaml:"button"`
	Axis   string  `toml:"axis" yaml:"axis"`
	Value  float64 `toml:"value" yaml:"value"`
	ID     int32   `toml:"id" yaml:"id"`

	Name       string   `toml:"name" yaml:"name"`
	Caps       []string `toml:"caps" yaml:"caps"`
	Format     string   `toml:"format" yaml:"format"`
	Keymap     string   `toml:"keymap" yaml:"keymap"`
	KeymapFile string   `toml:"keymap_file" yaml:"keymap_file"`
	Shape      string   `toml:"shape" yaml:"shape"`

	// ExpectError makes the step pass only when the seat rejects it with an
	// error containing this text
	ExpectError string `toml:"expect_error" yaml:"expect_error"`
}

// Load reads a script, choosing the decoder from the file extension
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	s, err := Parse(data, strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.dir = filepath.Dir(path)
	return s, nil
}

// Parse decodes a script in the given format: toml, yaml or yml
func Parse(data []byte, format string) (*Script, error) {
	s := &Script{}
	switch strings.ToLower(format) {
	case "toml":
		if err := toml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("failed to parse TOML script: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.UnmarshalStrict(data, s); err != nil {
			return nil, fmt.Errorf("failed to parse YAML script: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported script format %q", format)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Script) validate() error {
	if _, err := parseCaps(s.Capabilities); err != nil {
		return err
	}
	for i, w := range s.Windows {
		if w.ID == 0 {
			return fmt.Errorf("window %d: id must not be zero", i)
		}
	}
	for i, st := range s.Steps {
		if st.Advance < 0 {
			return fmt.Errorf("step %d: %w: negative advance_ms", i+1, ErrInvalidStep)
		}
		if err := st.check(); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, st.Kind, err)
		}
	}
	return nil
}

// RepeatDelayDuration returns the initial repeat delay
func (s *Script) RepeatDelayDuration() time.Duration {
	return time.Duration(s.RepeatDelay) * time.Millisecond
}

func (st Step) check() error {
	switch st.Kind {
	case "":
		if st.Advance == 0 {
			return fmt.Errorf("%w: step needs a kind or advance_ms", ErrInvalidStep)
		}
		return nil
	case KindWait, KindSetCursor:
		return nil
	case KindRemoveButton:
		_, err := parseButton(st.Button)
		return err
	case "keyboard.keymap":
		_, err := st.keymapFormat()
		return err
	}
	_, err := st.message("", 0, 0)
	return err
}

func (st Step) keymapFormat() (uint32, error) {
	switch strings.ToLower(st.Format) {
	case "":
		if st.Keymap == "" && st.KeymapFile == "" {
			return keymap.FormatNoKeymap, nil
		}
		return keymap.FormatXKBV1, nil
	case "xkb_v1":
		return keymap.FormatXKBV1, nil
	case "none", "no_keymap":
		return keymap.FormatNoKeymap, nil
	}
	return 0, fmt.Errorf("%w: unknown keymap format %q", ErrInvalidStep, st.Format)
}

func (st Step) keymapData(dir string) ([]byte, error) {
	if st.Keymap != "" {
		return []byte(st.Keymap), nil
	}
	if st.KeymapFile == "" {
		return nil, nil
	}
	path := st.KeymapFile
	if !filepath.IsAbs(path) && dir != "" {
		path = filepath.Join(dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keymap: %w", err)
	}
	return data, nil
}

// message converts the step into a seat message stamped with serial and time
func (st Step) message(dir string, serial, now uint32) (seat.Message, error) {
	w := seat.WindowID(st.Window)
	switch st.Kind {
	case "seat.capabilities":
		caps, err := parseCaps(st.Caps)
		if err != nil {
			return nil, err
		}
		return seat.SeatCapabilities{Caps: caps}, nil
	case "seat.name":
		return seat.SeatName{Name: st.Name}, nil
	case "window.destroyed":
		return seat.WindowDestroyed{Window: w}, nil

	case "keyboard.keymap":
		format, err := st.keymapFormat()
		if err != nil {
			return nil, err
		}
		data, err := st.keymapData(dir)
		if err != nil {
			return nil, err
		}
		return seat.KeyboardKeymap{Format: format, Data: data}, nil
	case "keyboard.enter":
		return seat.KeyboardEnter{Serial: serial, Window: w, Keys: st.Keys}, nil
	case "keyboard.leave":
		return seat.KeyboardLeave{Serial: serial, Window: w}, nil
	case "keyboard.key":
		state, err := parseKeyState(st.State)
		if err != nil {
			return nil, err
		}
		return seat.KeyboardKey{Serial: serial, Time: now, Code: st.Code, State: state}, nil
	case "keyboard.modifiers":
		return seat.KeyboardModifiers{
			Serial:    serial,
			Depressed: st.Depressed,
			Latched:   st.Latched,
			Locked:    st.Locked,
			Group:     st.Group,
		}, nil
	case "keyboard.repeat_info":
		return seat.KeyboardRepeatInfo{Rate: st.Rate, Delay: st.Delay}, nil

	case "pointer.enter":
		return seat.PointerEnter{Serial: serial, Window: w, X: st.X, Y: st.Y}, nil
	case "pointer.leave":
		return seat.PointerLeave{Serial: serial, Window: w}, nil
	case "pointer.motion":
		return seat.PointerMotion{Time: now, X: st.X, Y: st.Y}, nil
	case "pointer.button":
		button, err := parseButton(st.Button)
		if err != nil {
			return nil, err
		}
		state, err := parseButtonState(st.State)
		if err != nil {
			return nil, err
		}
		return seat.PointerButton{Serial: serial, Time: now, Button: button, State: state}, nil
	case "pointer.axis":
		axis, err := parseAxis(st.Axis)
		if err != nil {
			return nil, err
		}
		return seat.PointerAxis{Time: now, Axis: axis, Value: st.Value}, nil

	case "touch.down":
		return seat.TouchDown{Serial: serial, Time: now, Window: w, ID: st.ID, X: st.X, Y: st.Y}, nil
	case "touch.up":
		return seat.TouchUp{Serial: serial, Time: now, ID: st.ID}, nil
	case "touch.motion":
		return seat.TouchMotion{Time: now, ID: st.ID, X: st.X, Y: st.Y}, nil
	case "touch.frame":
		return seat.TouchFrame{}, nil
	case "touch.cancel":
		return seat.TouchCancel{}, nil
	}
	return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidStep, st.Kind)
}

// carriesSerial reports whether messages of this kind are stamped with a serial
func carriesSerial(kind string) bool {
	switch kind {
	case "keyboard.enter", "keyboard.leave", "keyboard.key", "keyboard.modifiers",
		"pointer.enter", "pointer.leave", "pointer.button",
		"touch.down", "touch.up":
		return true
	}
	return false
}

func parseCaps(names []string) (seat.Capability, error) {
	var caps seat.Capability
	for _, n := range names {
		switch strings.ToLower(n) {
		case "pointer":
			caps |= seat.CapPointer
		case "keyboard":
			caps |= seat.CapKeyboard
		case "touch":
			caps |= seat.CapTouch
		default:
			return 0, fmt.Errorf("%w: unknown capability %q", ErrInvalidStep, n)
		}
	}
	return caps, nil
}

func parseKeyState(s string) (seat.KeyState, error) {
	switch strings.ToLower(s) {
	case "pressed", "press", "down":
		return seat.KeyPressed, nil
	case "released", "release", "up":
		return seat.KeyReleased, nil
	}
	return 0, fmt.Errorf("%w: unknown key state %q", ErrInvalidStep, s)
}

func parseButtonState(s string) (seat.ButtonState, error) {
	switch strings.ToLower(s) {
	case "pressed", "press", "down":
		return seat.ButtonPressed, nil
	case "released", "release", "up":
		return seat.ButtonReleased, nil
	}
	return 0, fmt.Errorf("%w: unknown button state %q", ErrInvalidStep, s)
}

var buttonNames = map[string]uint32{
	"left":   seat.BtnLeft,
	"right":  seat.BtnRight,
	"middle": seat.BtnMiddle,
	"side":   seat.BtnSide,
	"extra":  seat.BtnExtra,
	"task":   seat.BtnTask,
}

// parseButton accepts a button name or an evdev code such as 0x110
func parseButton(s string) (uint32, error) {
	if b, ok := buttonNames[strings.ToLower(s)]; ok {
		return b, nil
	}
	n, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: unknown button %q", ErrInvalidStep, s)
	}
	return uint32(n), nil
}

func parseAxis(s string) (seat.Axis, error) {
	switch strings.ToLower(s) {
	case "vertical", "":
		return seat.AxisVertical, nil
	case "horizontal":
		return seat.AxisHorizontal, nil
	}
	return 0, fmt.Errorf("%w: unknown axis %q", ErrInvalidStep, s)
}
