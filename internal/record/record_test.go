package record

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/wlseat/internal/keymap"
	"github.com/bnema/wlseat/internal/seat"
)

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

type closingBuffer struct {
	bytes.Buffer
	closed bool
}

func (b *closingBuffer) Close() error {
	b.closed = true
	return nil
}

func TestWriterReaderStream(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	events := []seat.Event{
		seat.FocusEvent{Class: seat.ClassKeyboard, Window: 1, Focused: true, Serial: 4},
		seat.KeyEvent{Window: 1, Serial: 5, Time: 100, Code: 30, Sym: keymap.Sym('a'), Text: "a",
			State: seat.KeyPressed, Mods: keymap.ModShift, Repeat: true},
		seat.MotionEvent{Window: 1, Time: 101, X: 10.5, Y: -3, GlobalX: 110.5, GlobalY: 47, Buttons: 1},
		seat.ButtonEvent{Window: 1, Serial: 6, Time: 102, Button: 0x110, State: seat.ButtonReleased, Synthetic: true},
		seat.AxisEvent{Window: 1, Time: 103, Axis: seat.AxisHorizontal, Value: -15},
		seat.TouchFrameEvent{Window: 2, Time: 104, Points: []seat.TouchPoint{
			{ID: -1, X: 1, Y: 2, State: seat.TouchReleased},
			{ID: 7, X: 3, Y: 4, State: seat.TouchMoved},
		}},
		seat.TouchCancelEvent{Window: 2},
	}

	var out bytes.Buffer
	w := NewWriter(&out, time.Hour)
	w.now = func() time.Time { return at }
	for _, ev := range events {
		w.Deliver(ev)
	}
	assert.Equal(t, len(events), w.Count())
	require.NoError(t, w.Close())

	entries, err := ReadAll(&out)
	require.NoError(t, err)
	require.Len(t, entries, len(events))
	for i, e := range entries {
		assert.True(t, at.Equal(e.At), "entry %d timestamp", i)
		assert.Equal(t, events[i], e.Event)
	}
}

func TestWriterFlush(t *testing.T) {
	t.Run("explicit flush", func(t *testing.T) {
		var out bytes.Buffer
		w := NewWriter(&out, time.Hour)
		defer w.Close()

		require.NoError(t, w.Write(Entry{Event: seat.TouchCancelEvent{Window: 3}}))
		assert.Zero(t, out.Len(), "buffered until flushed")
		require.NoError(t, w.Flush())
		assert.NotZero(t, out.Len())
	})

	t.Run("timed flush", func(t *testing.T) {
		out := &lockedBuffer{}
		w := NewWriter(out, 5*time.Millisecond)
		defer w.Close()

		require.NoError(t, w.Write(Entry{Event: seat.TouchCancelEvent{Window: 3}}))
		assert.Eventually(t, func() bool { return out.Len() > 0 }, time.Second, 5*time.Millisecond)
	})

	t.Run("write errors stick", func(t *testing.T) {
		w := NewWriter(brokenWriter{}, time.Hour)
		require.NoError(t, w.Write(Entry{Event: seat.TouchCancelEvent{}}))
		assert.ErrorContains(t, w.Flush(), "disk full")
		assert.ErrorContains(t, w.Write(Entry{Event: seat.TouchCancelEvent{}}), "disk full")
		assert.Error(t, w.Close())
	})

	t.Run("close closes the target once", func(t *testing.T) {
		out := &closingBuffer{}
		w := NewWriter(out, time.Hour)
		require.NoError(t, w.Close())
		assert.True(t, out.closed)
		assert.NoError(t, w.Close())
		assert.ErrorIs(t, w.Write(Entry{Event: seat.TouchCancelEvent{}}), io.ErrClosedPipe)
	})
}

func TestMarshalRejectsUnknownEvents(t *testing.T) {
	type custom struct{ seat.TouchCancelEvent }
	_, err := Marshal(Entry{Event: custom{}})
	assert.Error(t, err)
}

func TestReaderErrors(t *testing.T) {
	t.Run("truncated frame", func(t *testing.T) {
		data, err := Marshal(Entry{Event: seat.TouchCancelEvent{Window: 1}})
		require.NoError(t, err)
		stream := binary.BigEndian.AppendUint32(nil, uint32(len(data)))
		stream = append(stream, data[:len(data)-1]...)

		_, err = NewReader(bytes.NewReader(stream)).Next()
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("oversized frame", func(t *testing.T) {
		stream := binary.BigEndian.AppendUint32(nil, MaxFrameSize+1)
		_, err := NewReader(bytes.NewReader(stream)).Next()
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("garbage payload", func(t *testing.T) {
		stream := binary.BigEndian.AppendUint32(nil, 2)
		stream = append(stream, 0xff, 0xff)
		_, err := NewReader(bytes.NewReader(stream)).Next()
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("entry without event", func(t *testing.T) {
		_, err := Unmarshal([]byte{0x08, 0x01})
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("clean end", func(t *testing.T) {
		_, err := NewReader(bytes.NewReader(nil)).Next()
		assert.ErrorIs(t, err, io.EOF)
	})
}

func TestSnapshotCodec(t *testing.T) {
	snap := seat.Snapshot{
		Name:         "seat0",
		Capabilities: seat.CapPointer | seat.CapTouch,
		Serial:       42,
		PointerFocus: 3,
		TouchFocus:   3,
		Keymap:       "us",
		Modifiers:    keymap.ModCtrl,
		Pointer:      seat.Point{X: 12.5, Y: -1},
		Buttons:      0x1,
		CursorSerial: 40,
		TouchPoints: []seat.TouchPoint{
			{ID: 0, X: 1, Y: 2, State: seat.TouchPressed},
			{ID: -1, X: 3, Y: 4, State: seat.TouchMoved},
		},
	}

	got, err := UnmarshalSnapshot(MarshalSnapshot(snap))
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	empty, err := UnmarshalSnapshot(nil)
	require.NoError(t, err)
	assert.Equal(t, seat.Snapshot{}, empty)

	_, err = UnmarshalSnapshot([]byte{0x0a, 0x05, 'a'})
	assert.ErrorIs(t, err, ErrMalformed)
}
