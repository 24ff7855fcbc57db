package wlclient

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/rajveermalviya/go-wayland/wayland/client"
	"golang.org/x/sys/unix"

	"github.com/bnema/wlseat/internal/keymap"
	"github.com/bnema/wlseat/internal/seat"
)

// binding ties one wl_seat global to the seat.Seat it feeds
type binding struct {
	manager *Manager
	global  uint32
	name    string
	wl      *client.Seat
	seat    *seat.Seat

	keyboard *client.Keyboard
	pointer  *client.Pointer
	touch    *client.Touch
}

// dispatch hands msg to the seat on the loop. Surfaces the seat has not seen are
// registered first so focus can land on them.
func (b *binding) dispatch(msg seat.Message, w seat.WindowID) {
	logger := b.manager.log
	b.manager.post(func() {
		if w != seat.NoWindow && !b.seat.Windows().Alive(w) {
			b.seat.Windows().Add(w, seat.Point{})
		}
		if err := b.seat.Dispatch(msg); err != nil {
			logger.Log(rejectLevel(err), "Message rejected", "seat", b.name, "kind", msg.Kind(), "err", err)
		}
	})
}

// rejectLevel picks the level a rejected message is logged at. Compositors
// routinely send touch points and device events the seat has already dropped,
// so only a refused keymap, which changes the symbols the user sees, is raised.
func rejectLevel(err error) log.Level {
	if errors.Is(err, seat.ErrInvalidKeymap) {
		return log.WarnLevel
	}
	return log.DebugLevel
}

// syncDevices acquires and releases protocol devices to match caps. It runs on the
// dispatcher before the capability message is posted.
func (b *binding) syncDevices(caps seat.Capability) {
	b.manager.reqMu.Lock()
	defer b.manager.reqMu.Unlock()

	log := b.manager.log
	if caps&seat.CapKeyboard != 0 && b.keyboard == nil {
		kb, err := b.wl.GetKeyboard()
		if err != nil {
			log.Errorf("Failed to get keyboard: %v", err)
		} else {
			b.keyboard = kb
			b.wireKeyboard(kb)
		}
	} else if caps&seat.CapKeyboard == 0 && b.keyboard != nil {
		b.keyboard.Release()
		b.keyboard = nil
	}

	if caps&seat.CapPointer != 0 && b.pointer == nil {
		p, err := b.wl.GetPointer()
		if err != nil {
			log.Errorf("Failed to get pointer: %v", err)
		} else {
			b.pointer = p
			b.wirePointer(p)
		}
	} else if caps&seat.CapPointer == 0 && b.pointer != nil {
		b.pointer.Release()
		b.pointer = nil
	}

	if caps&seat.CapTouch != 0 && b.touch == nil {
		t, err := b.wl.GetTouch()
		if err != nil {
			log.Errorf("Failed to get touch: %v", err)
		} else {
			b.touch = t
			b.wireTouch(t)
		}
	} else if caps&seat.CapTouch == 0 && b.touch != nil {
		b.touch.Release()
		b.touch = nil
	}
}

// releaseDevices drops every protocol device; the caller holds reqMu
func (b *binding) releaseDevices() {
	if b.keyboard != nil {
		b.keyboard.Release()
		b.keyboard = nil
	}
	if b.pointer != nil {
		b.pointer.Release()
		b.pointer = nil
	}
	if b.touch != nil {
		b.touch.Release()
		b.touch = nil
	}
}

func (b *binding) wireKeyboard(kb *client.Keyboard) {
	kb.SetKeymapHandler(func(e client.KeyboardKeymapEvent) {
		if e.Format != keymap.FormatXKBV1 {
			unix.Close(e.Fd)
			b.dispatch(seat.KeyboardKeymap{Format: e.Format}, seat.NoWindow)
			return
		}
		data, err := readKeymap(e.Fd, e.Size)
		if err != nil {
			b.manager.log.Warnf("Failed to read keymap: %v", err)
			return
		}
		b.dispatch(seat.KeyboardKeymap{Format: e.Format, Data: data}, seat.NoWindow)
	})
	kb.SetEnterHandler(func(e client.KeyboardEnterEvent) {
		w := windowOf(e.Surface)
		b.dispatch(keyboardEnter(e, w), w)
	})
	kb.SetLeaveHandler(func(e client.KeyboardLeaveEvent) {
		b.dispatch(keyboardLeave(e, windowOf(e.Surface)), seat.NoWindow)
	})
	kb.SetKeyHandler(func(e client.KeyboardKeyEvent) {
		b.dispatch(keyboardKey(e), seat.NoWindow)
	})
	kb.SetModifiersHandler(func(e client.KeyboardModifiersEvent) {
		b.dispatch(keyboardModifiers(e), seat.NoWindow)
	})
	kb.SetRepeatInfoHandler(func(e client.KeyboardRepeatInfoEvent) {
		b.dispatch(keyboardRepeatInfo(e), seat.NoWindow)
	})
}

func (b *binding) wirePointer(p *client.Pointer) {
	p.SetEnterHandler(func(e client.PointerEnterEvent) {
		w := windowOf(e.Surface)
		b.dispatch(pointerEnter(e, w), w)
	})
	p.SetLeaveHandler(func(e client.PointerLeaveEvent) {
		b.dispatch(pointerLeave(e, windowOf(e.Surface)), seat.NoWindow)
	})
	p.SetMotionHandler(func(e client.PointerMotionEvent) {
		b.dispatch(pointerMotion(e), seat.NoWindow)
	})
	p.SetButtonHandler(func(e client.PointerButtonEvent) {
		b.dispatch(pointerButton(e), seat.NoWindow)
	})
	p.SetAxisHandler(func(e client.PointerAxisEvent) {
		b.dispatch(pointerAxis(e), seat.NoWindow)
	})
}

func (b *binding) wireTouch(t *client.Touch) {
	t.SetDownHandler(func(e client.TouchDownEvent) {
		w := windowOf(e.Surface)
		b.dispatch(touchDown(e, w), w)
	})
	t.SetUpHandler(func(e client.TouchUpEvent) {
		b.dispatch(touchUp(e), seat.NoWindow)
	})
	t.SetMotionHandler(func(e client.TouchMotionEvent) {
		b.dispatch(touchMotion(e), seat.NoWindow)
	})
	t.SetFrameHandler(func(client.TouchFrameEvent) {
		b.dispatch(seat.TouchFrame{}, seat.NoWindow)
	})
	t.SetCancelHandler(func(client.TouchCancelEvent) {
		b.dispatch(seat.TouchCancel{}, seat.NoWindow)
	})
}

// cursorSetter forwards accepted cursor requests to wl_pointer.set_cursor. Only
// hiding is supported; named shapes keep the compositor's cursor.
type cursorSetter struct {
	b *binding
}

func (c cursorSetter) SetCursor(serial uint32, shape string) error {
	m := c.b.manager
	m.reqMu.Lock()
	defer m.reqMu.Unlock()

	if c.b.pointer == nil {
		return fmt.Errorf("seat %q has no pointer", c.b.name)
	}
	switch shape {
	case "", "none", "hidden":
		return c.b.pointer.SetCursor(serial, nil, 0, 0)
	default:
		m.log.Debug("Cursor themes are not loaded, keeping compositor cursor", "shape", shape)
		return nil
	}
}
