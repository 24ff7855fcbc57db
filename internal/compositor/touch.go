// Package compositor is the producing side of wl_touch: it turns synthesized touch
// points into wire events for the client that owns the surface under the pointer.
package compositor

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bnema/wlseat/internal/logger"
	"github.com/bnema/wlseat/internal/seat"
)

// ErrNoTarget is returned when a touch event has nowhere to go: no surface has
// mouse focus, or the touch session belongs to a different client.
var ErrNoTarget = errors.New("no touch target")

// Clock supplies protocol timestamps in milliseconds
type Clock interface {
	Millis() uint32
}

// SystemClock counts milliseconds since it was created
type SystemClock struct {
	start time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

func (c *SystemClock) Millis() uint32 {
	return uint32(time.Since(c.start) / time.Millisecond)
}

// Client is a connected Wayland client
type Client struct {
	ID   uint32
	Conn io.Writer
}

// Resource is a wl_touch object bound by a client
type Resource struct {
	Client *Client
	ID     uint32
}

// View is a surface of a client
type View struct {
	Client  *Client
	Surface uint32
}

// FocusProvider exposes the view under the pointer
type FocusProvider interface {
	MouseFocus() *View
}

// FocusFunc adapts a function to FocusProvider
type FocusFunc func() *View

func (f FocusFunc) MouseFocus() *View { return f() }

// Touch sends wl_touch events to the client under the pointer. The first down of a
// session picks that client's touch resource; it stays the target until every
// point is up and a frame was sent.
type Touch struct {
	serials *seat.SerialGenerator
	clock   Clock
	focus   FocusProvider
	log     *log.Logger

	resources     []*Resource
	focusResource *Resource
	focusSurface  uint32
	active        map[int32]bool
}

// NewTouch creates a touch sender. serials is shared with the rest of the seat.
func NewTouch(serials *seat.SerialGenerator, clock Clock, focus FocusProvider) *Touch {
	return &Touch{
		serials: serials,
		clock:   clock,
		focus:   focus,
		log:     logger.For("compositor"),
		active:  make(map[int32]bool),
	}
}

// AddClient registers a wl_touch resource bound by c with object id
func (t *Touch) AddClient(c *Client, id uint32) *Resource {
	r := &Resource{Client: c, ID: id}
	t.resources = append(t.resources, r)
	return r
}

// DestroyResource forgets r, ending the session if r was its target
func (t *Touch) DestroyResource(r *Resource) {
	for i, res := range t.resources {
		if res == r {
			t.resources = append(t.resources[:i], t.resources[i+1:]...)
			break
		}
	}
	if t.focusResource == r {
		t.resetFocus()
	}
}

// FocusResource returns the resource of the current session, if any
func (t *Touch) FocusResource() *Resource {
	return t.focusResource
}

// MouseFocus returns the view under the pointer
func (t *Touch) MouseFocus() *View {
	if t.focus == nil {
		return nil
	}
	return t.focus.MouseFocus()
}

// MouseFocusChanged ends the session; points of the old target are not carried over
func (t *Touch) MouseFocusChanged(newFocus, oldFocus *View) {
	t.resetFocus()
}

func (t *Touch) resetFocus() {
	t.focusResource = nil
	t.focusSurface = 0
	t.active = make(map[int32]bool)
}

func (t *Touch) resourceFor(c *Client) *Resource {
	for _, r := range t.resources {
		if r.Client == c {
			return r
		}
	}
	return nil
}

func (t *Touch) write(r *Resource, msg []byte) error {
	if _, err := r.Client.Conn.Write(msg); err != nil {
		return fmt.Errorf("failed to write to client %d: %w", r.Client.ID, err)
	}
	return nil
}

// SendDown starts or extends a session on the view under the pointer.
// A second finger from the client that owns the session joins it; a down
// aimed at any other client is refused until the session ends.
func (t *Touch) SendDown(time uint32, id int32, x, y float64) error {
	view := t.MouseFocus()
	if view == nil {
		t.log.Debug("Touch down without mouse focus", "id", id)
		return fmt.Errorf("%w: no mouse focus", ErrNoTarget)
	}
	if t.focusResource != nil && t.focusResource.Client != view.Client {
		t.log.Debug("Touch down refused, session owned by another client", "id", id, "client", t.focusResource.Client.ID)
		return fmt.Errorf("%w: session owned by client %d", ErrNoTarget, t.focusResource.Client.ID)
	}
	if t.focusResource == nil {
		r := t.resourceFor(view.Client)
		if r == nil {
			return fmt.Errorf("%w: client %d has no touch resource", ErrNoTarget, view.Client.ID)
		}
		t.focusResource = r
		t.focusSurface = view.Surface
	}

	serial := t.serials.Next()
	if err := t.write(t.focusResource, encodeDown(t.focusResource.ID, serial, time, view.Surface, id, x, y)); err != nil {
		return err
	}
	t.active[id] = true
	return nil
}

// SendUp lifts a point of the current session
func (t *Touch) SendUp(time uint32, id int32) error {
	if t.focusResource == nil {
		return fmt.Errorf("%w: up %d", ErrNoTarget, id)
	}
	serial := t.serials.Next()
	if err := t.write(t.focusResource, encodeUp(t.focusResource.ID, serial, time, id)); err != nil {
		return err
	}
	delete(t.active, id)
	return nil
}

// SendMotion moves a point of the current session
func (t *Touch) SendMotion(time uint32, id int32, x, y float64) error {
	if t.focusResource == nil {
		return fmt.Errorf("%w: motion %d", ErrNoTarget, id)
	}
	return t.write(t.focusResource, encodeMotion(t.focusResource.ID, time, id, x, y))
}

// SendFrame closes a batch. The session ends once no point is down.
func (t *Touch) SendFrame() error {
	if t.focusResource == nil {
		return nil
	}
	if err := t.write(t.focusResource, encodeFrame(t.focusResource.ID)); err != nil {
		return err
	}
	if len(t.active) == 0 {
		t.resetFocus()
	}
	return nil
}

// SendCancel tells the client the session was taken away and ends it
func (t *Touch) SendCancel() error {
	if t.focusResource == nil {
		return nil
	}
	err := t.write(t.focusResource, encodeCancel(t.focusResource.ID))
	t.resetFocus()
	return err
}

// SendTouchPointEvent sends one point according to its state. Stationary points are
// not sent; clients keep their last position.
func (t *Touch) SendTouchPointEvent(id int32, x, y float64, state seat.TouchState) error {
	now := t.clock.Millis()
	switch state {
	case seat.TouchPressed:
		return t.SendDown(now, id, x, y)
	case seat.TouchMoved:
		return t.SendMotion(now, id, x, y)
	case seat.TouchReleased:
		return t.SendUp(now, id)
	}
	return nil
}

// TouchEvent is an application touch update: a set of points or a cancellation
type TouchEvent struct {
	Cancel bool
	Points []seat.TouchPoint
}

// SendFullTouchEvent sends every point of ev followed by a frame. Points without a
// target are skipped; write failures abort.
func (t *Touch) SendFullTouchEvent(ev TouchEvent) error {
	if ev.Cancel {
		return t.SendCancel()
	}
	if len(ev.Points) == 0 {
		return nil
	}
	for _, p := range ev.Points {
		if err := t.SendTouchPointEvent(p.ID, p.X, p.Y, p.State); err != nil {
			if errors.Is(err, ErrNoTarget) {
				continue
			}
			return err
		}
	}
	return t.SendFrame()
}

// FromFrame converts a seat touch frame into a TouchEvent
func FromFrame(ev seat.TouchFrameEvent) TouchEvent {
	return TouchEvent{Points: ev.Points}
}
