package seat

import (
	"fmt"
	"sort"
)

// WindowID is a handle into the Windows registry. The zero value means no window.
type WindowID uint32

// NoWindow is the absent window handle
const NoWindow WindowID = 0

func (w WindowID) String() string {
	if w == NoWindow {
		return "none"
	}
	return fmt.Sprintf("window#%d", uint32(w))
}

// Point is a position in surface or global coordinates
type Point struct {
	X, Y float64
}

type destroyObserver struct {
	fn        func(WindowID)
	cancelled bool
}

type windowEntry struct {
	origin    Point
	observers []*destroyObserver
}

// Windows is the registry of windows known to the seat. Devices only hold WindowID
// handles and validate them here; destroying a window notifies its observers
// synchronously before Destroy returns.
type Windows struct {
	entries map[WindowID]*windowEntry
}

// NewWindows creates an empty registry
func NewWindows() *Windows {
	return &Windows{entries: make(map[WindowID]*windowEntry)}
}

// Add registers a window with its global origin. Re-adding a live window only moves it.
func (w *Windows) Add(id WindowID, origin Point) {
	if id == NoWindow {
		return
	}
	if e, ok := w.entries[id]; ok {
		e.origin = origin
		return
	}
	w.entries[id] = &windowEntry{origin: origin}
}

// Alive reports whether id refers to a registered window
func (w *Windows) Alive(id WindowID) bool {
	_, ok := w.entries[id]
	return ok
}

// Origin returns the global position of the window's top-left corner
func (w *Windows) Origin(id WindowID) (Point, bool) {
	e, ok := w.entries[id]
	if !ok {
		return Point{}, false
	}
	return e.origin, true
}

// IDs returns the registered windows in ascending order
func (w *Windows) IDs() []WindowID {
	ids := make([]WindowID, 0, len(w.entries))
	for id := range w.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// OnDestroyed registers a single-shot callback run when id is destroyed. The returned
// function cancels the registration. Registering on an unknown window is a no-op.
func (w *Windows) OnDestroyed(id WindowID, fn func(WindowID)) (cancel func()) {
	e, ok := w.entries[id]
	if !ok {
		return func() {}
	}
	obs := &destroyObserver{fn: fn}
	e.observers = append(e.observers, obs)
	return func() {
		obs.cancelled = true
		// compact lazily; the entry may already be gone
		if e, ok := w.entries[id]; ok {
			e.observers = dropCancelled(e.observers)
		}
	}
}

// Destroy removes id and runs its observers in registration order
func (w *Windows) Destroy(id WindowID) bool {
	e, ok := w.entries[id]
	if !ok {
		return false
	}
	delete(w.entries, id)
	for _, obs := range e.observers {
		if obs.cancelled {
			continue
		}
		obs.cancelled = true
		obs.fn(id)
	}
	return true
}

func dropCancelled(observers []*destroyObserver) []*destroyObserver {
	kept := observers[:0]
	for _, obs := range observers {
		if !obs.cancelled {
			kept = append(kept, obs)
		}
	}
	return kept
}
