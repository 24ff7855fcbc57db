package seat

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointerButtons(t *testing.T) {
	t.Run("mask follows presses and releases", func(t *testing.T) {
		ts := newTestSeat(t, CapPointer)
		ts.dispatch(t,
			PointerEnter{Serial: 1, Window: winA, X: 10, Y: 20},
			PointerButton{Serial: 2, Button: BtnLeft, State: ButtonPressed},
			PointerButton{Serial: 3, Button: BtnRight, State: ButtonPressed},
		)
		assert.Equal(t, uint32(0b11), ts.Pointer().Buttons())

		ts.dispatch(t, PointerButton{Serial: 4, Button: BtnLeft, State: ButtonReleased})
		assert.Equal(t, uint32(0b10), ts.Pointer().Buttons())
	})

	t.Run("double release is idempotent and still forwarded", func(t *testing.T) {
		ts := newTestSeat(t, CapPointer)
		ts.dispatch(t, PointerEnter{Serial: 1, Window: winA})
		err := ts.Dispatch(PointerButton{Serial: 2, Button: BtnMiddle, State: ButtonReleased})
		assert.ErrorIs(t, err, ErrDuplicateRelease)
		assert.Equal(t, uint32(0), ts.Pointer().Buttons())
		assert.Len(t, ts.rec.buttons(), 1)
	})

	t.Run("leave releases held buttons synthetically", func(t *testing.T) {
		ts := newTestSeat(t, CapPointer)
		ts.dispatch(t,
			PointerEnter{Serial: 1, Window: winA},
			PointerButton{Serial: 2, Button: BtnLeft, State: ButtonPressed},
			PointerButton{Serial: 3, Button: BtnSide, State: ButtonPressed},
		)
		ts.rec.reset()
		ts.dispatch(t, PointerLeave{Serial: 4, Window: winA})

		assert.Equal(t, uint32(0), ts.Pointer().Buttons())
		buttons := ts.rec.buttons()
		require.Len(t, buttons, 2)
		for _, b := range buttons {
			assert.True(t, b.Synthetic)
			assert.Equal(t, ButtonReleased, b.State)
			assert.Equal(t, winA, b.Window)
		}
		assert.Equal(t, BtnLeft, buttons[0].Button)
		assert.Equal(t, BtnSide, buttons[1].Button)
		assert.Equal(t, uint32(0), buttons[1].Buttons)
	})

	t.Run("refocus to another window resets buttons", func(t *testing.T) {
		ts := newTestSeat(t, CapPointer)
		ts.dispatch(t,
			PointerEnter{Serial: 1, Window: winA},
			PointerButton{Serial: 2, Button: BtnLeft, State: ButtonPressed},
			PointerEnter{Serial: 3, Window: winB},
		)
		assert.Equal(t, uint32(0), ts.Pointer().Buttons())
		buttons := ts.rec.buttons()
		require.Len(t, buttons, 2)
		assert.Equal(t, winA, buttons[1].Window)
		assert.True(t, buttons[1].Synthetic)
	})

	t.Run("button mask is empty after every leave", func(t *testing.T) {
		rng := rand.New(rand.NewSource(7))
		for round := 0; round < 50; round++ {
			ts := newTestSeat(t, CapPointer)
			serial := uint32(1)
			ts.dispatch(t, PointerEnter{Serial: serial, Window: winA})
			for i := 0; i < rng.Intn(20); i++ {
				serial++
				state := ButtonState(rng.Intn(2))
				_ = ts.Dispatch(PointerButton{Serial: serial, Button: BtnLeft + uint32(rng.Intn(8)), State: state})
			}
			serial++
			ts.dispatch(t, PointerLeave{Serial: serial, Window: winA})
			require.Equal(t, uint32(0), ts.Pointer().Buttons(), "round %d", round)
		}
	})

	t.Run("remove button clears silently", func(t *testing.T) {
		ts := newTestSeat(t, CapPointer)
		ts.dispatch(t,
			PointerEnter{Serial: 1, Window: winA},
			PointerButton{Serial: 2, Button: BtnLeft, State: ButtonPressed},
		)
		ts.rec.reset()
		ts.RemoveButton(BtnLeft)
		assert.Equal(t, uint32(0), ts.Pointer().Buttons())
		assert.Empty(t, ts.rec.events)
	})

	t.Run("buttons outside the mask are forwarded", func(t *testing.T) {
		ts := newTestSeat(t, CapPointer)
		ts.dispatch(t,
			PointerEnter{Serial: 1, Window: winA},
			PointerButton{Serial: 2, Button: 0x150, State: ButtonPressed},
			PointerButton{Serial: 3, Button: 0x150, State: ButtonReleased},
		)
		assert.Len(t, ts.rec.buttons(), 2)
		assert.Equal(t, uint32(0), ts.Pointer().Buttons())
	})
}

func TestPointerMotion(t *testing.T) {
	t.Run("motion without focus is ignored", func(t *testing.T) {
		ts := newTestSeat(t, CapPointer)
		ts.dispatch(t,
			PointerMotion{Time: 1, X: 5, Y: 5},
			PointerAxis{Time: 2, Axis: AxisVertical, Value: 10},
			PointerButton{Serial: 3, Button: BtnLeft, State: ButtonPressed},
		)
		assert.Empty(t, ts.rec.events)
		assert.Equal(t, uint32(0), ts.Pointer().Buttons())
	})

	t.Run("motion reports surface and global position", func(t *testing.T) {
		ts := newTestSeat(t, CapPointer)
		ts.dispatch(t,
			PointerEnter{Serial: 1, Window: winA, X: 1, Y: 2},
			PointerMotion{Time: 5, X: 12.5, Y: 7.25},
		)
		var motion MotionEvent
		for _, ev := range ts.rec.events {
			if m, ok := ev.(MotionEvent); ok {
				motion = m
			}
		}
		assert.Equal(t, 12.5, motion.X)
		assert.Equal(t, 112.5, motion.GlobalX)
		assert.Equal(t, 57.25, motion.GlobalY)
		assert.Equal(t, Point{X: 12.5, Y: 7.25}, ts.Pointer().Position())
	})

	t.Run("motion after leave is dropped", func(t *testing.T) {
		ts := newTestSeat(t, CapPointer)
		ts.dispatch(t,
			PointerEnter{Serial: 1, Window: winA},
			PointerLeave{Serial: 2, Window: winA},
		)
		ts.rec.reset()
		ts.dispatch(t, PointerMotion{Time: 3, X: 1, Y: 1})
		assert.Empty(t, ts.rec.events)
	})

	t.Run("axis carries no state", func(t *testing.T) {
		ts := newTestSeat(t, CapPointer)
		ts.dispatch(t,
			PointerEnter{Serial: 1, Window: winA},
			PointerAxis{Time: 2, Axis: AxisHorizontal, Value: -15},
		)
		ev, ok := ts.rec.events[len(ts.rec.events)-1].(AxisEvent)
		require.True(t, ok)
		assert.Equal(t, AxisHorizontal, ev.Axis)
		assert.Equal(t, -15.0, ev.Value)
	})
}

func TestPointerCursor(t *testing.T) {
	t.Run("serial at or after enter is accepted", func(t *testing.T) {
		ts := newTestSeat(t, CapPointer)
		ts.dispatch(t, PointerEnter{Serial: 10, Window: winA})
		require.NoError(t, ts.SetCursor(10, "default"))
		require.NoError(t, ts.SetCursor(12, "text"))
		assert.Equal(t, []string{"default", "text"}, ts.cursor.calls)
		assert.Equal(t, uint32(12), ts.CursorSerial())
	})

	t.Run("stale serial is rejected without changing the cursor", func(t *testing.T) {
		ts := newTestSeat(t, CapPointer)
		ts.dispatch(t, PointerEnter{Serial: 10, Window: winA})
		require.NoError(t, ts.SetCursor(10, "default"))
		ts.dispatch(t, PointerEnter{Serial: 20, Window: winB})

		err := ts.SetCursor(15, "grab")
		assert.ErrorIs(t, err, ErrStaleSerial)
		assert.Equal(t, uint32(10), ts.CursorSerial())
		assert.Equal(t, []string{"default"}, ts.cursor.calls)
		assert.Equal(t, "default", ts.Pointer().(*Pointer).CursorShape())
	})

	t.Run("repeating the installed cursor is suppressed", func(t *testing.T) {
		ts := newTestSeat(t, CapPointer)
		ts.dispatch(t, PointerEnter{Serial: 3, Window: winA})
		require.NoError(t, ts.SetCursor(3, "default"))
		require.NoError(t, ts.SetCursor(3, "default"))
		assert.Len(t, ts.cursor.calls, 1)
	})

	t.Run("no enter yet", func(t *testing.T) {
		ts := newTestSeat(t, CapPointer)
		assert.ErrorIs(t, ts.SetCursor(1, "default"), ErrStaleSerial)
	})

	t.Run("setter failure keeps the old cursor", func(t *testing.T) {
		ts := newTestSeat(t, CapPointer)
		ts.dispatch(t, PointerEnter{Serial: 3, Window: winA})
		ts.cursor.err = errors.New("boom")
		assert.Error(t, ts.SetCursor(3, "default"))
		assert.Equal(t, uint32(0), ts.CursorSerial())
	})

	t.Run("without pointer", func(t *testing.T) {
		ts := newTestSeat(t, CapKeyboard)
		assert.ErrorIs(t, ts.SetCursor(1, "default"), ErrCapabilityMismatch)
	})
}
