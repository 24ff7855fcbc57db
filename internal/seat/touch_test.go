package seat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTouchSession(t *testing.T) {
	ts := newTestSeat(t, CapTouch)
	touch := ts.Touch().(*Touch)

	ts.dispatch(t,
		TouchDown{Serial: 1, Time: 10, Window: winA, ID: 1, X: 5, Y: 5},
		TouchDown{Serial: 2, Time: 11, Window: winA, ID: 2, X: 50, Y: 50},
		TouchUp{Serial: 3, Time: 12, ID: 1},
		TouchFrame{},
	)

	frames := ts.rec.frames()
	require.Len(t, frames, 1)
	assert.Equal(t, []TouchPoint{
		{ID: 1, X: 5, Y: 5, State: TouchReleased},
		{ID: 2, X: 50, Y: 50, State: TouchPressed},
	}, frames[0].Points)
	assert.False(t, frames[0].AllReleased)
	assert.Equal(t, winA, frames[0].Window)

	assert.Equal(t, []TouchPoint{{ID: 2, X: 50, Y: 50, State: TouchStationary}}, touch.Points())
	assert.Len(t, touch.Previous(), 2)
	w, ok := ts.TouchFocus()
	assert.True(t, ok)
	assert.Equal(t, winA, w)

	ts.dispatch(t,
		TouchUp{Serial: 4, Time: 13, ID: 2},
		TouchFrame{},
	)
	frames = ts.rec.frames()
	require.Len(t, frames, 2)
	assert.True(t, frames[1].AllReleased)
	assert.Empty(t, touch.Points())
	_, ok = ts.TouchFocus()
	assert.False(t, ok)
}

func TestTouchAllReleased(t *testing.T) {
	ts := newTestSeat(t, CapTouch)
	touch := ts.Touch().(*Touch)
	assert.True(t, touch.AllReleased(), "vacuously true when idle")

	ts.dispatch(t,
		TouchDown{Serial: 1, Window: winA, ID: 1},
		TouchDown{Serial: 2, Window: winA, ID: 2},
	)
	assert.False(t, touch.AllReleased())
	ts.dispatch(t, TouchUp{Serial: 3, ID: 1})
	assert.False(t, touch.AllReleased())
	ts.dispatch(t, TouchUp{Serial: 4, ID: 2})
	assert.True(t, touch.AllReleased())
	assert.Len(t, touch.Points(), 2, "released points stay until the frame")

	ts.dispatch(t, TouchFrame{})
	assert.Empty(t, touch.Points())
}

func TestTouchMotion(t *testing.T) {
	ts := newTestSeat(t, CapTouch)
	touch := ts.Touch().(*Touch)

	ts.dispatch(t,
		TouchDown{Serial: 1, Window: winA, ID: 3, X: 1, Y: 1},
		TouchMotion{ID: 3, X: 2, Y: 2},
	)
	assert.Equal(t, TouchPressed, touch.Points()[0].State, "pressed within the frame stays pressed")

	ts.dispatch(t, TouchFrame{}, TouchMotion{ID: 3, X: 4, Y: 4})
	assert.Equal(t, TouchPoint{ID: 3, X: 4, Y: 4, State: TouchMoved}, touch.Points()[0])

	err := ts.Dispatch(TouchMotion{ID: 9, X: 1, Y: 1})
	assert.ErrorIs(t, err, ErrUnknownTouchID)
	assert.Len(t, touch.Points(), 1)
}

func TestTouchRejections(t *testing.T) {
	t.Run("down on another window is rejected", func(t *testing.T) {
		ts := newTestSeat(t, CapTouch)
		ts.dispatch(t, TouchDown{Serial: 1, Window: winA, ID: 1})
		err := ts.Dispatch(TouchDown{Serial: 2, Window: winB, ID: 2})
		assert.ErrorIs(t, err, ErrFocusConflict)
		assert.Len(t, ts.Touch().Points(), 1)
	})

	t.Run("up without focus is ignored", func(t *testing.T) {
		ts := newTestSeat(t, CapTouch)
		assert.NoError(t, ts.Dispatch(TouchUp{Serial: 1, ID: 1}))
		assert.NoError(t, ts.Dispatch(TouchFrame{}))
		assert.Empty(t, ts.rec.events)
	})

	t.Run("up for unknown id", func(t *testing.T) {
		ts := newTestSeat(t, CapTouch)
		ts.dispatch(t, TouchDown{Serial: 1, Window: winA, ID: 1})
		assert.ErrorIs(t, ts.Dispatch(TouchUp{Serial: 2, ID: 5}), ErrUnknownTouchID)
	})
}

func TestTouchCancel(t *testing.T) {
	t.Run("cancel emits once and clears", func(t *testing.T) {
		ts := newTestSeat(t, CapTouch)
		ts.dispatch(t,
			TouchDown{Serial: 1, Window: winA, ID: 1},
			TouchDown{Serial: 2, Window: winA, ID: 2},
			TouchCancel{},
		)
		require.Len(t, ts.rec.events, 1)
		assert.Equal(t, TouchCancelEvent{Window: winA}, ts.rec.events[0])
		assert.Empty(t, ts.Touch().Points())
		_, ok := ts.TouchFocus()
		assert.False(t, ok)

		ts.dispatch(t, TouchCancel{})
		assert.Len(t, ts.rec.events, 1, "idle cancel is a no-op")
	})

	t.Run("destroying the focused window cancels", func(t *testing.T) {
		ts := newTestSeat(t, CapTouch)
		ts.dispatch(t,
			TouchDown{Serial: 1, Window: winA, ID: 1},
			WindowDestroyed{Window: winA},
		)
		require.Len(t, ts.rec.events, 1)
		assert.IsType(t, TouchCancelEvent{}, ts.rec.events[0])

		ts.dispatch(t, TouchDown{Serial: 2, Window: winB, ID: 1})
		w, _ := ts.TouchFocus()
		assert.Equal(t, winB, w)
	})
}
