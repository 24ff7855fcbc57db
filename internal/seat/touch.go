package seat

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// Touch batches wl_touch events into frames. The first down of a session seeds the
// touch focus; the session ends on the frame where every point is released, or on
// cancel.
type Touch struct {
	env Env
	log *log.Logger

	points []TouchPoint
	prev   []TouchPoint
	time   uint32
}

// NewTouch creates an idle touch device
func NewTouch(env Env) *Touch {
	t := &Touch{
		env: env,
		log: deviceLogger(env, "touch"),
	}
	env.Focus.HandleDestroyed(ClassTouch, t.windowDestroyed)
	return t
}

func (t *Touch) find(id int32) int {
	for i := range t.points {
		if t.points[i].ID == id {
			return i
		}
	}
	return -1
}

// HandleDown adds a pressed point. A down on a window other than the one holding
// touch focus is rejected with ErrFocusConflict.
func (t *Touch) HandleDown(serial, time uint32, window WindowID, id int32, x, y float64) error {
	if current, ok := t.env.Focus.Current(ClassTouch); ok {
		if current != window {
			return fmt.Errorf("%w: %s holds focus, down for %s", ErrFocusConflict, current, window)
		}
	} else if _, err := t.env.Focus.Enter(ClassTouch, window, serial); err != nil {
		return err
	}

	t.time = time
	p := TouchPoint{ID: id, X: x, Y: y, State: TouchPressed}
	if i := t.find(id); i >= 0 {
		t.log.Debug("Touch id reused before frame", "id", id)
		t.points[i] = p
		return nil
	}
	t.points = append(t.points, p)
	return nil
}

// HandleUp marks a point released. Without focus the event is ignored.
func (t *Touch) HandleUp(serial, time uint32, id int32) error {
	if _, ok := t.env.Focus.Current(ClassTouch); !ok {
		return nil
	}
	i := t.find(id)
	if i < 0 {
		return fmt.Errorf("%w: up %d", ErrUnknownTouchID, id)
	}
	t.time = time
	t.points[i].State = TouchReleased
	return nil
}

// HandleMotion moves an active point. A point pressed in the current frame keeps its
// pressed state.
func (t *Touch) HandleMotion(time uint32, id int32, x, y float64) error {
	i := t.find(id)
	if i < 0 {
		return fmt.Errorf("%w: motion %d", ErrUnknownTouchID, id)
	}
	p := &t.points[i]
	if p.State == TouchReleased {
		return nil
	}
	t.time = time
	p.X, p.Y = x, y
	if p.State != TouchPressed {
		p.State = TouchMoved
	}
	return nil
}

// AllReleased reports whether every tracked point is released. It holds for an
// empty set.
func (t *Touch) AllReleased() bool {
	for _, p := range t.points {
		if p.State != TouchReleased {
			return false
		}
	}
	return true
}

// HandleFrame emits the batch collected since the previous frame
func (t *Touch) HandleFrame() error {
	window, ok := t.env.Focus.Current(ClassTouch)
	if !ok {
		return nil
	}

	batch := append([]TouchPoint(nil), t.points...)
	allReleased := t.AllReleased()
	if len(batch) > 0 {
		t.env.deliver(TouchFrameEvent{
			Window:      window,
			Time:        t.time,
			Points:      batch,
			AllReleased: allReleased,
		})
	}
	t.prev = batch

	if allReleased {
		t.points = t.points[:0]
		t.env.Focus.Leave(ClassTouch, window)
		return nil
	}

	kept := t.points[:0]
	for _, p := range t.points {
		if p.State == TouchReleased {
			continue
		}
		p.State = TouchStationary
		kept = append(kept, p)
	}
	t.points = kept
	return nil
}

// HandleCancel drops the session without per-point releases
func (t *Touch) HandleCancel() error {
	window, ok := t.env.Focus.Current(ClassTouch)
	if !ok && len(t.points) == 0 {
		return nil
	}
	t.points = t.points[:0]
	t.prev = nil
	t.env.Focus.Clear(ClassTouch)
	t.env.deliver(TouchCancelEvent{Window: window})
	return nil
}

func (t *Touch) windowDestroyed(window WindowID) {
	if current, ok := t.env.Focus.Current(ClassTouch); ok && current == window {
		_ = t.HandleCancel()
	}
}

// Points returns the active points
func (t *Touch) Points() []TouchPoint {
	return append([]TouchPoint(nil), t.points...)
}

// Previous returns the points of the last emitted frame
func (t *Touch) Previous() []TouchPoint {
	return append([]TouchPoint(nil), t.prev...)
}

// Release cancels any active session
func (t *Touch) Release() {
	_ = t.HandleCancel()
	t.env.Focus.HandleDestroyed(ClassTouch, nil)
}
