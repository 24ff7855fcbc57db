package seat

import "fmt"

// Class identifies an input device class
type Class int

const (
	ClassKeyboard Class = iota
	ClassPointer
	ClassTouch
	numClasses
)

func (c Class) String() string {
	switch c {
	case ClassKeyboard:
		return "keyboard"
	case ClassPointer:
		return "pointer"
	case ClassTouch:
		return "touch"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

type focusSlot struct {
	window        WindowID
	serial        uint32
	cancelObserve func()
	onDestroyed   func(WindowID)
}

// FocusTracker holds the focused window of each device class
type FocusTracker struct {
	windows *Windows
	slots   [numClasses]focusSlot
}

// NewFocusTracker creates a tracker validating windows against the registry
func NewFocusTracker(windows *Windows) *FocusTracker {
	return &FocusTracker{windows: windows}
}

// HandleDestroyed installs the function run when the focused window of class is
// destroyed. Devices point it at their leave path.
func (f *FocusTracker) HandleDestroyed(class Class, fn func(WindowID)) {
	f.slots[class].onDestroyed = fn
}

// Enter focuses window for class and returns the previously focused window, which
// differs from window on a cross-window refocus.
func (f *FocusTracker) Enter(class Class, window WindowID, serial uint32) (WindowID, error) {
	if !f.windows.Alive(window) {
		return NoWindow, fmt.Errorf("%w: %s", ErrUnknownWindow, window)
	}
	slot := &f.slots[class]
	prev := slot.window
	if slot.cancelObserve != nil {
		slot.cancelObserve()
	}
	slot.window = window
	slot.serial = serial
	slot.cancelObserve = f.windows.OnDestroyed(window, func(w WindowID) {
		s := &f.slots[class]
		if s.window != w {
			return
		}
		if s.onDestroyed != nil {
			s.onDestroyed(w)
		}
		// the device may not have left through the tracker
		if s.window == w {
			f.clear(class)
		}
	})
	return prev, nil
}

// Leave clears the focus of class only if it is window; stale leaves return false
func (f *FocusTracker) Leave(class Class, window WindowID) bool {
	if window == NoWindow || f.slots[class].window != window {
		return false
	}
	f.clear(class)
	return true
}

// Clear drops the focus of class unconditionally and returns the window that had it
func (f *FocusTracker) Clear(class Class) WindowID {
	prev := f.slots[class].window
	f.clear(class)
	return prev
}

// Current returns the focused window of class
func (f *FocusTracker) Current(class Class) (WindowID, bool) {
	w := f.slots[class].window
	return w, w != NoWindow
}

// Serial returns the serial of the enter that granted the current focus
func (f *FocusTracker) Serial(class Class) uint32 {
	return f.slots[class].serial
}

func (f *FocusTracker) clear(class Class) {
	slot := &f.slots[class]
	if slot.cancelObserve != nil {
		slot.cancelObserve()
		slot.cancelObserve = nil
	}
	slot.window = NoWindow
	slot.serial = 0
}
