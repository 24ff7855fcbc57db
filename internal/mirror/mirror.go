// Package mirror replays translated seat events into kernel virtual devices
package mirror

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/ThomasT75/uinput"
	"github.com/charmbracelet/log"

	"github.com/bnema/wlseat/internal/logger"
	"github.com/bnema/wlseat/internal/seat"
)

var (
	ErrClosed            = errors.New("mirror closed")
	ErrUnsupportedButton = errors.New("unsupported button")
)

// axisStep is the scroll distance of one wheel detent in surface units
const axisStep = 10.0

// Mouse is the subset of a uinput mouse the mirror drives
type Mouse interface {
	Move(x, y int32) error
	LeftPress() error
	LeftRelease() error
	RightPress() error
	RightRelease() error
	MiddlePress() error
	MiddleRelease() error
	Wheel(horizontal bool, delta int32) error
	Close() error
}

// Keyboard is the subset of a uinput keyboard the mirror drives
type Keyboard interface {
	KeyDown(key int) error
	KeyUp(key int) error
	Close() error
}

// Mirror is a seat.Sink that forwards keys, buttons, motion and scrolling
type Mirror struct {
	mouse    Mouse
	keyboard Keyboard
	log      *log.Logger

	mu      sync.Mutex
	closed  bool
	anchor  bool
	lastX   float64
	lastY   float64
	scroll  [2]float64
	pressed map[uint32]bool
}

// Open creates a virtual mouse and keyboard on the uinput device at path
func Open(path string) (*Mirror, error) {
	mouse, err := uinput.CreateMouse(path, []byte("wlseat mirror pointer"))
	if err != nil {
		return nil, fmt.Errorf("failed to create virtual mouse: %w", err)
	}
	keyboard, err := uinput.CreateKeyboard(path, []byte("wlseat mirror keyboard"))
	if err != nil {
		mouse.Close()
		return nil, fmt.Errorf("failed to create virtual keyboard: %w", err)
	}
	return New(mouse, keyboard), nil
}

// New wraps existing devices
func New(mouse Mouse, keyboard Keyboard) *Mirror {
	return &Mirror{
		mouse:    mouse,
		keyboard: keyboard,
		log:      logger.For("mirror"),
		pressed:  make(map[uint32]bool),
	}
}

// Deliver implements seat.Sink. Failures are logged and the event is dropped.
func (m *Mirror) Deliver(ev seat.Event) {
	if err := m.Forward(ev); err != nil {
		m.log.Debug("Event not mirrored", "event", seat.Describe(ev), "err", err)
	}
}

// Forward replays one event
func (m *Mirror) Forward(ev seat.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	switch e := ev.(type) {
	case seat.KeyEvent:
		return m.key(e)
	case seat.MotionEvent:
		return m.motion(e.GlobalX, e.GlobalY)
	case seat.ButtonEvent:
		return m.button(e)
	case seat.AxisEvent:
		return m.axis(e)
	case seat.FocusEvent:
		return m.focus(e)
	}
	return nil
}

func (m *Mirror) key(e seat.KeyEvent) error {
	// the kernel repeats on its own
	if e.Repeat {
		return nil
	}
	if e.State == seat.KeyPressed {
		m.pressed[e.Code] = true
		return m.keyboard.KeyDown(int(e.Code))
	}
	delete(m.pressed, e.Code)
	return m.keyboard.KeyUp(int(e.Code))
}

// motion moves by the delta from the last known position. The first sample after
// focus only sets the anchor.
func (m *Mirror) motion(x, y float64) error {
	if !m.anchor {
		m.anchor = true
		m.lastX, m.lastY = x, y
		return nil
	}
	dx := int32(math.Round(x - m.lastX))
	dy := int32(math.Round(y - m.lastY))
	if dx == 0 && dy == 0 {
		return nil
	}
	m.lastX += float64(dx)
	m.lastY += float64(dy)
	return m.mouse.Move(dx, dy)
}

func (m *Mirror) button(e seat.ButtonEvent) error {
	pressed := e.State == seat.ButtonPressed
	switch e.Button {
	case seat.BtnLeft:
		if pressed {
			return m.mouse.LeftPress()
		}
		return m.mouse.LeftRelease()
	case seat.BtnRight:
		if pressed {
			return m.mouse.RightPress()
		}
		return m.mouse.RightRelease()
	case seat.BtnMiddle:
		if pressed {
			return m.mouse.MiddlePress()
		}
		return m.mouse.MiddleRelease()
	}
	return fmt.Errorf("%w: %#x", ErrUnsupportedButton, e.Button)
}

// axis accumulates scroll distance and emits one wheel step per detent
func (m *Mirror) axis(e seat.AxisEvent) error {
	horizontal := e.Axis == seat.AxisHorizontal
	idx := 0
	if horizontal {
		idx = 1
	}
	m.scroll[idx] += e.Value

	for math.Abs(m.scroll[idx]) >= axisStep {
		dir := int32(1)
		if m.scroll[idx] < 0 {
			dir = -1
		}
		m.scroll[idx] -= float64(dir) * axisStep
		// wheel up is positive, while positive vertical axis values scroll down
		if !horizontal {
			dir = -dir
		}
		if err := m.mouse.Wheel(horizontal, dir); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mirror) focus(e seat.FocusEvent) error {
	if e.Focused {
		return nil
	}
	switch e.Class {
	case seat.ClassPointer:
		m.anchor = false
		m.scroll = [2]float64{}
	case seat.ClassKeyboard:
		return m.releaseKeys()
	}
	return nil
}

// releaseKeys lifts every key still held so nothing sticks after focus moves away
func (m *Mirror) releaseKeys() error {
	codes := make([]uint32, 0, len(m.pressed))
	for code := range m.pressed {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

	var errs []error
	for _, code := range codes {
		delete(m.pressed, code)
		if err := m.keyboard.KeyUp(int(code)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close releases held keys and destroys both devices
func (m *Mirror) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	err := m.releaseKeys()
	if m.mouse != nil {
		if e := m.mouse.Close(); e != nil && err == nil {
			err = e
		}
	}
	if m.keyboard != nil {
		if e := m.keyboard.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
