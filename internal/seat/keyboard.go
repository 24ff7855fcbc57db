package seat

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bnema/wlseat/internal/keymap"
)

// Keyboard translates wl_keyboard events into KeyEvents.
//
// Modifier state is whatever the last modifiers event said; key events never update
// it. At most one key auto-repeats at a time.
type Keyboard struct {
	env Env
	log *log.Logger

	km       keymap.Keymap
	raw      keymap.State
	mods     keymap.Modifiers
	baseline []uint32
	lastTime uint32

	rate   int32
	delay  time.Duration
	repeat keyRepeat
}

// NewKeyboard creates a keyboard using the built-in keymap until the compositor sends one
func NewKeyboard(env Env) *Keyboard {
	k := &Keyboard{
		env:   env,
		log:   deviceLogger(env, "keyboard"),
		km:    keymap.Default(),
		rate:  env.RepeatRate,
		delay: env.RepeatDelay,
	}
	k.repeat.sched = env.Scheduler
	env.Focus.HandleDestroyed(ClassKeyboard, k.windowDestroyed)
	return k
}

// HandleKeymap replaces the keymap. A rejected keymap leaves the current one in place.
func (k *Keyboard) HandleKeymap(format uint32, data []byte) error {
	k.repeat.cancel()

	km, err := keymap.Load(format, data)
	if err != nil {
		k.log.Warn("Keymap rejected", "keeping", k.km.Name(), "err", err)
		return err
	}
	k.km = km
	k.raw.Group = keymap.ClampGroup(km, k.raw.Group)
	k.mods = km.Modifiers(k.raw)
	k.log.Debug("Keymap installed", "name", km.Name(), "groups", km.NumGroups())
	return nil
}

// HandleEnter focuses window. Keys already held are kept as a baseline and produce no events.
func (k *Keyboard) HandleEnter(serial uint32, window WindowID, keys []uint32) error {
	prev, err := k.env.Focus.Enter(ClassKeyboard, window, serial)
	if err != nil {
		return err
	}
	if prev != NoWindow && prev != window {
		k.repeat.cancel()
		k.env.deliver(FocusEvent{Class: ClassKeyboard, Window: prev, Focused: false, Serial: serial})
	}
	k.baseline = append(k.baseline[:0], keys...)
	k.env.deliver(FocusEvent{Class: ClassKeyboard, Window: window, Focused: true, Serial: serial})
	return nil
}

// HandleLeave drops focus if window has it and stops key repeat
func (k *Keyboard) HandleLeave(serial uint32, window WindowID) error {
	if !k.env.Focus.Leave(ClassKeyboard, window) {
		k.log.Debug("Ignoring stale leave", "window", window)
		return nil
	}
	k.left(window, serial)
	return nil
}

func (k *Keyboard) left(window WindowID, serial uint32) {
	k.repeat.cancel()
	k.baseline = k.baseline[:0]
	k.env.deliver(FocusEvent{Class: ClassKeyboard, Window: window, Focused: false, Serial: serial})
}

func (k *Keyboard) windowDestroyed(window WindowID) {
	if k.env.Focus.Leave(ClassKeyboard, window) {
		k.left(window, 0)
	}
}

// HandleKey translates and emits a key transition and maintains the repeat slot
func (k *Keyboard) HandleKey(serial, time, code uint32, state KeyState) error {
	window, ok := k.env.Focus.Current(ClassKeyboard)
	if !ok {
		k.log.Debug("Dropping key without focus", "code", code)
		return nil
	}
	k.lastTime = time

	sym, text := k.km.Lookup(code, k.raw)
	ev := KeyEvent{
		Window: window,
		Serial: serial,
		Time:   time,
		Code:   code,
		Sym:    sym,
		Text:   text,
		State:  state,
		Mods:   k.mods,
	}
	k.env.deliver(ev)

	switch state {
	case KeyPressed:
		if k.rate > 0 && k.km.Repeats(code) {
			k.repeat.arm(ev, k.delay, repeatInterval(k.rate), k.env.deliver)
		}
	case KeyReleased:
		k.dropBaseline(code)
		if k.repeat.repeating(code) {
			k.repeat.cancel()
		}
	}
	return nil
}

func (k *Keyboard) dropBaseline(code uint32) {
	for i, c := range k.baseline {
		if c == code {
			k.baseline = append(k.baseline[:i], k.baseline[i+1:]...)
			return
		}
	}
}

// HandleModifiers replaces the modifier state wholesale
func (k *Keyboard) HandleModifiers(serial, depressed, latched, locked, group uint32) error {
	clamped := keymap.ClampGroup(k.km, group)
	if clamped != group {
		k.log.Debug("Clamping layout group", "group", group, "groups", k.km.NumGroups())
	}
	k.raw = keymap.State{Depressed: depressed, Latched: latched, Locked: locked, Group: clamped}
	k.mods = k.km.Modifiers(k.raw)
	return nil
}

// HandleRepeatInfo applies wl_keyboard.repeat_info. A zero rate disables repeat.
func (k *Keyboard) HandleRepeatInfo(rate, delay int32) error {
	if rate < 0 || delay < 0 {
		return fmt.Errorf("invalid repeat info rate=%d delay=%d", rate, delay)
	}
	k.rate = rate
	k.delay = time.Duration(delay) * time.Millisecond
	if rate == 0 {
		k.repeat.cancel()
	}
	return nil
}

// Modifiers returns the derived modifier flags
func (k *Keyboard) Modifiers() keymap.Modifiers {
	return k.mods
}

// Keymap returns the keymap in use
func (k *Keyboard) Keymap() keymap.Keymap {
	return k.km
}

// Repeating returns the key currently auto-repeating
func (k *Keyboard) Repeating() (uint32, bool) {
	return k.repeat.code, k.repeat.active
}

// Pressed returns the keys that were held when focus was entered and not released since
func (k *Keyboard) Pressed() []uint32 {
	return append([]uint32(nil), k.baseline...)
}

// Release tears the keyboard down: focus is left and the repeat timer is cancelled
// before Release returns.
func (k *Keyboard) Release() {
	k.repeat.cancel()
	if w, ok := k.env.Focus.Current(ClassKeyboard); ok {
		k.env.Focus.Leave(ClassKeyboard, w)
		k.left(w, 0)
	}
	k.env.Focus.HandleDestroyed(ClassKeyboard, nil)
}
