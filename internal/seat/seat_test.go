package seat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingKeyboard struct {
	*Keyboard
	keys int
}

func (c *countingKeyboard) HandleKey(serial, time, code uint32, state KeyState) error {
	c.keys++
	return c.Keyboard.HandleKey(serial, time, code, state)
}

type closer struct {
	closed int
	err    error
}

func (c *closer) Close() error {
	c.closed++
	return c.err
}

func TestSetCapabilities(t *testing.T) {
	t.Run("devices follow the mask", func(t *testing.T) {
		ts := newTestSeat(t, 0)
		assert.Nil(t, ts.Keyboard())
		assert.Nil(t, ts.Pointer())
		assert.Nil(t, ts.Touch())

		ts.dispatch(t, SeatCapabilities{Caps: CapKeyboard | CapPointer})
		assert.NotNil(t, ts.Keyboard())
		assert.NotNil(t, ts.Pointer())
		assert.Nil(t, ts.Touch())
		assert.Equal(t, "pointer|keyboard", ts.Capabilities().String())
	})

	t.Run("unchanged capabilities keep device state", func(t *testing.T) {
		ts := newTestSeat(t, CapPointer)
		ts.dispatch(t,
			PointerEnter{Serial: 1, Window: winA},
			PointerButton{Serial: 2, Button: BtnLeft, State: ButtonPressed},
		)
		before := ts.Pointer()
		ts.SetCapabilities(CapPointer | CapTouch)
		assert.Same(t, before, ts.Pointer())
		assert.Equal(t, uint32(1), ts.Pointer().Buttons())
	})

	t.Run("losing the keyboard leaves focus and stops repeat", func(t *testing.T) {
		ts := newTestSeat(t, CapKeyboard|CapPointer)
		ts.dispatch(t,
			KeyboardEnter{Serial: 1, Window: winA},
			KeyboardKey{Serial: 2, Code: keyA, State: KeyPressed},
		)
		require.Equal(t, 1, ts.clock.Pending())

		ts.SetCapabilities(CapPointer)
		assert.Nil(t, ts.Keyboard())
		assert.Equal(t, 0, ts.clock.Pending())
		_, ok := ts.KeyboardFocus()
		assert.False(t, ok)

		ts.rec.reset()
		ts.clock.Advance(time.Minute)
		assert.Empty(t, ts.rec.events)
	})

	t.Run("losing the pointer releases buttons", func(t *testing.T) {
		ts := newTestSeat(t, CapPointer)
		ts.dispatch(t,
			PointerEnter{Serial: 1, Window: winA},
			PointerButton{Serial: 2, Button: BtnLeft, State: ButtonPressed},
		)
		ts.rec.reset()
		ts.SetCapabilities(0)
		buttons := ts.rec.buttons()
		require.Len(t, buttons, 1)
		assert.True(t, buttons[0].Synthetic)
	})

	t.Run("regained device starts fresh", func(t *testing.T) {
		ts := newTestSeat(t, CapTouch)
		ts.dispatch(t, TouchDown{Serial: 1, Window: winA, ID: 1})
		ts.SetCapabilities(0)
		ts.SetCapabilities(CapTouch)
		assert.Empty(t, ts.Touch().Points())
		_, ok := ts.TouchFocus()
		assert.False(t, ok)
	})

	t.Run("custom factory specializes one device", func(t *testing.T) {
		var built *countingKeyboard
		s := New(Options{
			Windows: NewWindows(),
			Factory: Factory{
				NewKeyboard: func(env Env) KeyboardDevice {
					built = &countingKeyboard{Keyboard: NewKeyboard(env)}
					return built
				},
			},
		})
		s.Windows().Add(winA, Point{})
		s.SetCapabilities(CapKeyboard | CapPointer)

		require.NotNil(t, built)
		assert.IsType(t, &Pointer{}, s.Pointer())
		require.NoError(t, s.Dispatch(KeyboardEnter{Serial: 1, Window: winA}))
		require.NoError(t, s.Dispatch(KeyboardKey{Serial: 2, Code: keyA, State: KeyPressed}))
		assert.Equal(t, 1, built.keys)
	})
}

func TestDispatchCapabilityMismatch(t *testing.T) {
	ts := newTestSeat(t, CapKeyboard)

	msgs := []Message{
		PointerEnter{Serial: 1, Window: winA},
		PointerMotion{},
		PointerButton{Serial: 2, Button: BtnLeft},
		TouchDown{Serial: 3, Window: winA},
		TouchFrame{},
		TouchCancel{},
	}
	for _, m := range msgs {
		t.Run(m.Kind(), func(t *testing.T) {
			assert.ErrorIs(t, ts.Dispatch(m), ErrCapabilityMismatch)
		})
	}
	assert.Empty(t, ts.rec.events)
	assert.Equal(t, uint32(3), ts.Serial(), "serials are still observed")
}

func TestSeatState(t *testing.T) {
	ts := newTestSeat(t, CapKeyboard|CapPointer|CapTouch)
	ts.dispatch(t,
		SeatName{Name: "seat-main"},
		KeyboardEnter{Serial: 1, Window: winA},
		KeyboardModifiers{Serial: 2, Depressed: 1},
		PointerEnter{Serial: 3, Window: winB, X: 4, Y: 6},
		PointerButton{Serial: 4, Button: BtnRight, State: ButtonPressed},
		TouchDown{Serial: 5, Window: winA, ID: 7, X: 1, Y: 2},
	)
	require.NoError(t, ts.SetCursor(3, "pointer"))

	snap := ts.Snapshot()
	assert.Equal(t, "seat-main", snap.Name)
	assert.Equal(t, uint32(5), snap.Serial)
	assert.Equal(t, winA, snap.KeyboardFocus)
	assert.Equal(t, winB, snap.PointerFocus)
	assert.Equal(t, winA, snap.TouchFocus)
	assert.Equal(t, "shift", snap.Modifiers.String())
	assert.Equal(t, Point{X: 4, Y: 6}, snap.Pointer)
	assert.Equal(t, uint32(0b10), snap.Buttons)
	assert.Equal(t, uint32(3), snap.CursorSerial)
	assert.Len(t, snap.TouchPoints, 1)

	t.Run("window destruction clears every class", func(t *testing.T) {
		ts.HandleWindowDestroyed(winA)
		_, kb := ts.KeyboardFocus()
		_, tc := ts.TouchFocus()
		pw, pt := ts.PointerFocus()
		assert.False(t, kb)
		assert.False(t, tc)
		assert.True(t, pt)
		assert.Equal(t, winB, pw)
	})
}

func TestSeatClose(t *testing.T) {
	ts := newTestSeat(t, CapKeyboard)
	first := &closer{}
	second := &closer{err: errors.New("broken pipe")}
	ts.SetDataDevice(first)
	ts.SetDataDevice(second)
	assert.Equal(t, 1, first.closed)

	err := ts.Close()
	assert.ErrorContains(t, err, "broken pipe")
	assert.Equal(t, 1, second.closed)
	assert.Equal(t, Capability(0), ts.Capabilities())
	assert.NoError(t, ts.Close())
}

func TestLoop(t *testing.T) {
	t.Run("runs posted work in order", func(t *testing.T) {
		l := NewLoop(4)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go l.Run(ctx)

		var got []int
		for i := 0; i < 3; i++ {
			i := i
			require.NoError(t, l.Post(func() { got = append(got, i) }))
		}
		require.NoError(t, l.Call(ctx, func() {}))
		assert.Equal(t, []int{0, 1, 2}, got)
	})

	t.Run("stopped timer never fires", func(t *testing.T) {
		l := NewLoop(4)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go l.Run(ctx)

		fired := make(chan struct{}, 1)
		var timer Timer
		require.NoError(t, l.Call(ctx, func() {
			timer = l.AfterFunc(time.Millisecond, func() { fired <- struct{}{} })
		}))
		time.Sleep(10 * time.Millisecond)
		require.NoError(t, l.Call(ctx, func() { timer.Stop() }))
		require.NoError(t, l.Call(ctx, func() {}))

		select {
		case <-fired:
			// the closure ran before Stop; Stop must then report it as no longer pending
			assert.False(t, timer.Stop())
		default:
		}
	})

	t.Run("timer fires on the loop", func(t *testing.T) {
		l := NewLoop(4)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go l.Run(ctx)

		fired := make(chan struct{})
		l.AfterFunc(time.Millisecond, func() { close(fired) })
		select {
		case <-fired:
		case <-time.After(time.Second):
			t.Fatal("timer did not fire")
		}
	})

	t.Run("post after stop fails", func(t *testing.T) {
		l := NewLoop(1)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, l.Run(ctx), context.Canceled)
		assert.ErrorIs(t, l.Post(func() {}), ErrLoopClosed)
	})
}

func TestManualClock(t *testing.T) {
	c := NewManualClock()
	var order []string
	c.AfterFunc(20*time.Millisecond, func() { order = append(order, "b") })
	c.AfterFunc(10*time.Millisecond, func() {
		order = append(order, "a")
		c.AfterFunc(5*time.Millisecond, func() { order = append(order, "a2") })
	})
	stopped := c.AfterFunc(15*time.Millisecond, func() { order = append(order, "never") })
	assert.True(t, stopped.Stop())
	assert.False(t, stopped.Stop())

	c.Advance(20 * time.Millisecond)
	assert.Equal(t, []string{"a", "a2", "b"}, order)
	assert.Equal(t, uint32(20), c.Millis())
	assert.Equal(t, 0, c.Pending())
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, `key pressed code=30 sym=a text="a" mods=none window#1`,
		Describe(KeyEvent{Window: winA, Code: 30, Sym: 'a', Text: "a", State: KeyPressed}))
	assert.Equal(t, "touch cancel window#2", Describe(TouchCancelEvent{Window: winB}))
	assert.Equal(t, "pointer enter serial=4 window#1",
		Describe(FocusEvent{Class: ClassPointer, Window: winA, Focused: true, Serial: 4}))
}
