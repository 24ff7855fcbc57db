package seat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []Event
}

func (r *recorder) Deliver(ev Event) {
	r.events = append(r.events, ev)
}

func (r *recorder) reset() {
	r.events = nil
}

func (r *recorder) keys() []KeyEvent {
	var out []KeyEvent
	for _, ev := range r.events {
		if k, ok := ev.(KeyEvent); ok {
			out = append(out, k)
		}
	}
	return out
}

func (r *recorder) buttons() []ButtonEvent {
	var out []ButtonEvent
	for _, ev := range r.events {
		if b, ok := ev.(ButtonEvent); ok {
			out = append(out, b)
		}
	}
	return out
}

func (r *recorder) frames() []TouchFrameEvent {
	var out []TouchFrameEvent
	for _, ev := range r.events {
		if f, ok := ev.(TouchFrameEvent); ok {
			out = append(out, f)
		}
	}
	return out
}

func (r *recorder) focus() []FocusEvent {
	var out []FocusEvent
	for _, ev := range r.events {
		if f, ok := ev.(FocusEvent); ok {
			out = append(out, f)
		}
	}
	return out
}

type fakeCursor struct {
	calls []string
	err   error
}

func (c *fakeCursor) SetCursor(serial uint32, shape string) error {
	if c.err != nil {
		return c.err
	}
	c.calls = append(c.calls, shape)
	return nil
}

type testSeat struct {
	*Seat
	rec    *recorder
	clock  *ManualClock
	cursor *fakeCursor
}

const (
	winA WindowID = 1
	winB WindowID = 2
)

func newTestSeat(t *testing.T, caps Capability) *testSeat {
	t.Helper()
	rec := &recorder{}
	clock := NewManualClock()
	cursor := &fakeCursor{}
	windows := NewWindows()
	windows.Add(winA, Point{X: 100, Y: 50})
	windows.Add(winB, Point{X: 400, Y: 300})

	s := New(Options{
		Name:        "seat0",
		Windows:     windows,
		Sink:        rec,
		Scheduler:   clock,
		Cursor:      cursor,
		RepeatRate:  25,
		RepeatDelay: 600 * time.Millisecond,
	})
	s.SetCapabilities(caps)
	return &testSeat{Seat: s, rec: rec, clock: clock, cursor: cursor}
}

func (ts *testSeat) dispatch(t *testing.T, msgs ...Message) {
	t.Helper()
	for _, m := range msgs {
		require.NoError(t, ts.Dispatch(m), "dispatching %s", m.Kind())
	}
}
