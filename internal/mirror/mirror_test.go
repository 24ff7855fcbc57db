package mirror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/wlseat/internal/seat"
)

type fakeDevices struct {
	calls  []string
	failOn string
	closed int
}

func (f *fakeDevices) record(call string) error {
	f.calls = append(f.calls, call)
	if call == f.failOn {
		return errors.New("device gone")
	}
	return nil
}

func (f *fakeDevices) Move(x, y int32) error  { return f.record(fmt.Sprintf("move %d,%d", x, y)) }
func (f *fakeDevices) LeftPress() error       { return f.record("left down") }
func (f *fakeDevices) LeftRelease() error     { return f.record("left up") }
func (f *fakeDevices) RightPress() error      { return f.record("right down") }
func (f *fakeDevices) RightRelease() error    { return f.record("right up") }
func (f *fakeDevices) MiddlePress() error     { return f.record("middle down") }
func (f *fakeDevices) MiddleRelease() error   { return f.record("middle up") }
func (f *fakeDevices) KeyDown(key int) error  { return f.record(fmt.Sprintf("key %d down", key)) }
func (f *fakeDevices) KeyUp(key int) error    { return f.record(fmt.Sprintf("key %d up", key)) }
func (f *fakeDevices) Close() error           { f.closed++; return nil }
func (f *fakeDevices) Wheel(h bool, d int32) error {
	if h {
		return f.record(fmt.Sprintf("hwheel %d", d))
	}
	return f.record(fmt.Sprintf("wheel %d", d))
}

func newMirror() (*Mirror, *fakeDevices) {
	dev := &fakeDevices{}
	return New(dev, dev), dev
}

func TestKeys(t *testing.T) {
	t.Run("press and release", func(t *testing.T) {
		m, dev := newMirror()
		require.NoError(t, m.Forward(seat.KeyEvent{Code: 30, State: seat.KeyPressed}))
		require.NoError(t, m.Forward(seat.KeyEvent{Code: 30, State: seat.KeyPressed, Repeat: true}))
		require.NoError(t, m.Forward(seat.KeyEvent{Code: 30, State: seat.KeyReleased}))
		assert.Equal(t, []string{"key 30 down", "key 30 up"}, dev.calls)
	})

	t.Run("keyboard leave lifts held keys", func(t *testing.T) {
		m, dev := newMirror()
		require.NoError(t, m.Forward(seat.KeyEvent{Code: 42, State: seat.KeyPressed}))
		require.NoError(t, m.Forward(seat.KeyEvent{Code: 30, State: seat.KeyPressed}))
		require.NoError(t, m.Forward(seat.FocusEvent{Class: seat.ClassKeyboard, Window: 1}))
		assert.Equal(t, []string{"key 42 down", "key 30 down", "key 30 up", "key 42 up"}, dev.calls)
	})
}

func TestMotion(t *testing.T) {
	m, dev := newMirror()
	require.NoError(t, m.Forward(seat.MotionEvent{GlobalX: 100, GlobalY: 100}))
	require.NoError(t, m.Forward(seat.MotionEvent{GlobalX: 105.4, GlobalY: 98}))
	require.NoError(t, m.Forward(seat.MotionEvent{GlobalX: 105.6, GlobalY: 98}))
	assert.Equal(t, []string{"move 5,-2", "move 1,0"}, dev.calls, "sub-pixel remainders carry over")

	require.NoError(t, m.Forward(seat.FocusEvent{Class: seat.ClassPointer, Window: 1}))
	require.NoError(t, m.Forward(seat.MotionEvent{GlobalX: 500, GlobalY: 500}))
	assert.Len(t, dev.calls, 2, "leaving focus drops the anchor")
}

func TestButtons(t *testing.T) {
	m, dev := newMirror()
	require.NoError(t, m.Forward(seat.ButtonEvent{Button: seat.BtnLeft, State: seat.ButtonPressed}))
	require.NoError(t, m.Forward(seat.ButtonEvent{Button: seat.BtnLeft, State: seat.ButtonReleased, Synthetic: true}))
	require.NoError(t, m.Forward(seat.ButtonEvent{Button: seat.BtnRight, State: seat.ButtonPressed}))
	require.NoError(t, m.Forward(seat.ButtonEvent{Button: seat.BtnMiddle, State: seat.ButtonReleased}))
	assert.Equal(t, []string{"left down", "left up", "right down", "middle up"}, dev.calls)

	err := m.Forward(seat.ButtonEvent{Button: seat.BtnSide, State: seat.ButtonPressed})
	assert.ErrorIs(t, err, ErrUnsupportedButton)
}

func TestAxis(t *testing.T) {
	m, dev := newMirror()
	require.NoError(t, m.Forward(seat.AxisEvent{Axis: seat.AxisVertical, Value: 6}))
	assert.Empty(t, dev.calls, "below one detent")
	require.NoError(t, m.Forward(seat.AxisEvent{Axis: seat.AxisVertical, Value: 15}))
	require.NoError(t, m.Forward(seat.AxisEvent{Axis: seat.AxisHorizontal, Value: -10}))
	assert.Equal(t, []string{"wheel -1", "wheel -1", "hwheel -1"}, dev.calls)
}

func TestErrorsAndClose(t *testing.T) {
	m, dev := newMirror()
	dev.failOn = "key 30 down"
	m.Deliver(seat.KeyEvent{Code: 30, State: seat.KeyPressed})
	assert.Equal(t, []string{"key 30 down"}, dev.calls, "failures are logged, not returned")

	require.NoError(t, m.Close())
	assert.Contains(t, dev.calls, "key 30 up", "held keys are released on close")
	assert.Equal(t, 2, dev.closed)
	assert.NoError(t, m.Close())
	assert.ErrorIs(t, m.Forward(seat.KeyEvent{}), ErrClosed)
}

func TestTouchIgnored(t *testing.T) {
	m, dev := newMirror()
	require.NoError(t, m.Forward(seat.TouchFrameEvent{Points: []seat.TouchPoint{{ID: 1}}}))
	assert.Empty(t, dev.calls)
}
