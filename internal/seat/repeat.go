package seat

import (
	"time"

	"github.com/bnema/wlseat/internal/keymap"
)

// keyRepeat is the single auto-repeat slot of a keyboard. The generation counter
// makes a callback that was already queued when the repeat got cancelled a no-op.
type keyRepeat struct {
	sched Scheduler
	timer Timer
	gen   uint64

	active bool
	window WindowID
	serial uint32
	time   uint32
	code   uint32
	sym    keymap.Sym
	text   string
	mods   keymap.Modifiers
}

func (r *keyRepeat) arm(ev KeyEvent, delay, interval time.Duration, fire func(Event)) {
	r.cancel()
	r.active = true
	r.window = ev.Window
	r.serial = ev.Serial
	r.time = ev.Time
	r.code = ev.Code
	r.sym = ev.Sym
	r.text = ev.Text
	r.mods = ev.Mods
	r.schedule(delay, interval, fire)
}

func (r *keyRepeat) schedule(after, interval time.Duration, fire func(Event)) {
	gen := r.gen
	r.timer = r.sched.AfterFunc(after, func() {
		if !r.active || r.gen != gen {
			return
		}
		r.time += uint32(after / time.Millisecond)
		fire(KeyEvent{
			Window: r.window,
			Serial: r.serial,
			Time:   r.time,
			Code:   r.code,
			Sym:    r.sym,
			Text:   r.text,
			State:  KeyPressed,
			Mods:   r.mods,
			Repeat: true,
		})
		// fire may have cancelled or re-armed
		if r.active && r.gen == gen {
			r.schedule(interval, interval, fire)
		}
	})
}

func (r *keyRepeat) cancel() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.active = false
	r.gen++
}

func (r *keyRepeat) repeating(code uint32) bool {
	return r.active && r.code == code
}

// repeatInterval converts a wl_keyboard.repeat_info rate (keys per second) to a period
func repeatInterval(rate int32) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Second / time.Duration(rate)
}
