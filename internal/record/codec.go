// Package record stores translated seat events as a stream of length-prefixed
// protobuf messages and reads them back.
package record

import (
	"errors"
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/bnema/wlseat/internal/keymap"
	"github.com/bnema/wlseat/internal/seat"
)

// ErrMalformed is returned for a frame that does not decode into an entry
var ErrMalformed = errors.New("malformed record")

// Entry is one recorded event with the wall time it was recorded at
type Entry struct {
	At    time.Time
	Event seat.Event
}

// Field numbers of the Entry message. Exactly one event field is set.
const (
	fieldAt          protowire.Number = 1
	fieldKey         protowire.Number = 2
	fieldMotion      protowire.Number = 3
	fieldButton      protowire.Number = 4
	fieldAxis        protowire.Number = 5
	fieldTouchFrame  protowire.Number = 6
	fieldTouchCancel protowire.Number = 7
	fieldFocus       protowire.Number = 8
)

// Marshal encodes e into protobuf wire format
func Marshal(e Entry) ([]byte, error) {
	b := protowire.AppendTag(nil, fieldAt, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.At.UnixMilli()))

	var (
		num  protowire.Number
		body []byte
	)
	switch ev := e.Event.(type) {
	case seat.KeyEvent:
		num, body = fieldKey, encodeKey(ev)
	case seat.MotionEvent:
		num, body = fieldMotion, encodeMotion(ev)
	case seat.ButtonEvent:
		num, body = fieldButton, encodeButton(ev)
	case seat.AxisEvent:
		num, body = fieldAxis, encodeAxis(ev)
	case seat.TouchFrameEvent:
		num, body = fieldTouchFrame, encodeTouchFrame(ev)
	case seat.TouchCancelEvent:
		num, body = fieldTouchCancel, appendUint(nil, 1, uint64(ev.Window))
	case seat.FocusEvent:
		num, body = fieldFocus, encodeFocus(ev)
	default:
		return nil, fmt.Errorf("cannot record %T", e.Event)
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, body), nil
}

// Unmarshal decodes one Entry. Unknown fields are skipped.
func Unmarshal(b []byte) (Entry, error) {
	var e Entry
	err := walk(b, func(num protowire.Number, typ protowire.Type, v uint64, raw []byte) error {
		switch {
		case num == fieldAt && typ == protowire.VarintType:
			e.At = time.UnixMilli(int64(v))
			return nil
		case typ != protowire.BytesType:
			return nil
		}
		var err error
		switch num {
		case fieldKey:
			e.Event, err = decodeKey(raw)
		case fieldMotion:
			e.Event, err = decodeMotion(raw)
		case fieldButton:
			e.Event, err = decodeButton(raw)
		case fieldAxis:
			e.Event, err = decodeAxis(raw)
		case fieldTouchFrame:
			e.Event, err = decodeTouchFrame(raw)
		case fieldTouchCancel:
			var c seat.TouchCancelEvent
			err = walk(raw, func(n protowire.Number, _ protowire.Type, v uint64, _ []byte) error {
				if n == 1 {
					c.Window = seat.WindowID(v)
				}
				return nil
			})
			e.Event = c
		case fieldFocus:
			e.Event, err = decodeFocus(raw)
		}
		return err
	})
	if err != nil {
		return Entry{}, err
	}
	if e.Event == nil {
		return Entry{}, fmt.Errorf("%w: no event field", ErrMalformed)
	}
	return e, nil
}

// walk visits every field of a message. Varint and fixed64 values arrive in v,
// length-delimited ones in raw.
func walk(b []byte, fn func(num protowire.Number, typ protowire.Type, v uint64, raw []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		var (
			v   uint64
			raw []byte
		)
		switch typ {
		case protowire.VarintType:
			v, n = protowire.ConsumeVarint(b)
		case protowire.Fixed64Type:
			v, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			raw, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
		}
		b = b[n:]
		if err := fn(num, typ, v, raw); err != nil {
			return err
		}
	}
	return nil
}

func appendUint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	return appendUint(b, num, protowire.EncodeBool(v))
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func double(v uint64) float64 { return math.Float64frombits(v) }

func encodeKey(ev seat.KeyEvent) []byte {
	b := appendUint(nil, 1, uint64(ev.Window))
	b = appendUint(b, 2, uint64(ev.Serial))
	b = appendUint(b, 3, uint64(ev.Time))
	b = appendUint(b, 4, uint64(ev.Code))
	b = appendUint(b, 5, uint64(ev.Sym))
	b = appendString(b, 6, ev.Text)
	b = appendUint(b, 7, uint64(ev.State))
	b = appendUint(b, 8, uint64(ev.Mods))
	return appendBool(b, 9, ev.Repeat)
}

func decodeKey(raw []byte) (seat.Event, error) {
	var ev seat.KeyEvent
	err := walk(raw, func(num protowire.Number, _ protowire.Type, v uint64, s []byte) error {
		switch num {
		case 1:
			ev.Window = seat.WindowID(v)
		case 2:
			ev.Serial = uint32(v)
		case 3:
			ev.Time = uint32(v)
		case 4:
			ev.Code = uint32(v)
		case 5:
			ev.Sym = keymap.Sym(v)
		case 6:
			ev.Text = string(s)
		case 7:
			ev.State = seat.KeyState(v)
		case 8:
			ev.Mods = keymap.Modifiers(v)
		case 9:
			ev.Repeat = protowire.DecodeBool(v)
		}
		return nil
	})
	return ev, err
}

func encodeMotion(ev seat.MotionEvent) []byte {
	b := appendUint(nil, 1, uint64(ev.Window))
	b = appendUint(b, 2, uint64(ev.Time))
	b = appendDouble(b, 3, ev.X)
	b = appendDouble(b, 4, ev.Y)
	b = appendDouble(b, 5, ev.GlobalX)
	b = appendDouble(b, 6, ev.GlobalY)
	return appendUint(b, 7, uint64(ev.Buttons))
}

func decodeMotion(raw []byte) (seat.Event, error) {
	var ev seat.MotionEvent
	err := walk(raw, func(num protowire.Number, _ protowire.Type, v uint64, _ []byte) error {
		switch num {
		case 1:
			ev.Window = seat.WindowID(v)
		case 2:
			ev.Time = uint32(v)
		case 3:
			ev.X = double(v)
		case 4:
			ev.Y = double(v)
		case 5:
			ev.GlobalX = double(v)
		case 6:
			ev.GlobalY = double(v)
		case 7:
			ev.Buttons = uint32(v)
		}
		return nil
	})
	return ev, err
}

func encodeButton(ev seat.ButtonEvent) []byte {
	b := appendUint(nil, 1, uint64(ev.Window))
	b = appendUint(b, 2, uint64(ev.Serial))
	b = appendUint(b, 3, uint64(ev.Time))
	b = appendUint(b, 4, uint64(ev.Button))
	b = appendUint(b, 5, uint64(ev.State))
	b = appendUint(b, 6, uint64(ev.Buttons))
	b = appendDouble(b, 7, ev.X)
	b = appendDouble(b, 8, ev.Y)
	return appendBool(b, 9, ev.Synthetic)
}

func decodeButton(raw []byte) (seat.Event, error) {
	var ev seat.ButtonEvent
	err := walk(raw, func(num protowire.Number, _ protowire.Type, v uint64, _ []byte) error {
		switch num {
		case 1:
			ev.Window = seat.WindowID(v)
		case 2:
			ev.Serial = uint32(v)
		case 3:
			ev.Time = uint32(v)
		case 4:
			ev.Button = uint32(v)
		case 5:
			ev.State = seat.ButtonState(v)
		case 6:
			ev.Buttons = uint32(v)
		case 7:
			ev.X = double(v)
		case 8:
			ev.Y = double(v)
		case 9:
			ev.Synthetic = protowire.DecodeBool(v)
		}
		return nil
	})
	return ev, err
}

func encodeAxis(ev seat.AxisEvent) []byte {
	b := appendUint(nil, 1, uint64(ev.Window))
	b = appendUint(b, 2, uint64(ev.Time))
	b = appendUint(b, 3, uint64(ev.Axis))
	b = appendDouble(b, 4, ev.Value)
	b = appendDouble(b, 5, ev.X)
	return appendDouble(b, 6, ev.Y)
}

func decodeAxis(raw []byte) (seat.Event, error) {
	var ev seat.AxisEvent
	err := walk(raw, func(num protowire.Number, _ protowire.Type, v uint64, _ []byte) error {
		switch num {
		case 1:
			ev.Window = seat.WindowID(v)
		case 2:
			ev.Time = uint32(v)
		case 3:
			ev.Axis = seat.Axis(v)
		case 4:
			ev.Value = double(v)
		case 5:
			ev.X = double(v)
		case 6:
			ev.Y = double(v)
		}
		return nil
	})
	return ev, err
}

func encodeTouchFrame(ev seat.TouchFrameEvent) []byte {
	b := appendUint(nil, 1, uint64(ev.Window))
	b = appendUint(b, 2, uint64(ev.Time))
	for _, p := range ev.Points {
		pt := appendUint(nil, 1, protowire.EncodeZigZag(int64(p.ID)))
		pt = appendDouble(pt, 2, p.X)
		pt = appendDouble(pt, 3, p.Y)
		pt = appendUint(pt, 4, uint64(p.State))
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, pt)
	}
	return appendBool(b, 4, ev.AllReleased)
}

func decodeTouchFrame(raw []byte) (seat.Event, error) {
	var ev seat.TouchFrameEvent
	err := walk(raw, func(num protowire.Number, _ protowire.Type, v uint64, s []byte) error {
		switch num {
		case 1:
			ev.Window = seat.WindowID(v)
		case 2:
			ev.Time = uint32(v)
		case 3:
			var p seat.TouchPoint
			err := walk(s, func(n protowire.Number, _ protowire.Type, pv uint64, _ []byte) error {
				switch n {
				case 1:
					p.ID = int32(protowire.DecodeZigZag(pv))
				case 2:
					p.X = double(pv)
				case 3:
					p.Y = double(pv)
				case 4:
					p.State = seat.TouchState(pv)
				}
				return nil
			})
			if err != nil {
				return err
			}
			ev.Points = append(ev.Points, p)
		case 4:
			ev.AllReleased = protowire.DecodeBool(v)
		}
		return nil
	})
	return ev, err
}

func encodeFocus(ev seat.FocusEvent) []byte {
	b := appendUint(nil, 1, uint64(ev.Class))
	b = appendUint(b, 2, uint64(ev.Window))
	b = appendBool(b, 3, ev.Focused)
	return appendUint(b, 4, uint64(ev.Serial))
}

func decodeFocus(raw []byte) (seat.Event, error) {
	var ev seat.FocusEvent
	err := walk(raw, func(num protowire.Number, _ protowire.Type, v uint64, _ []byte) error {
		switch num {
		case 1:
			ev.Class = seat.Class(v)
		case 2:
			ev.Window = seat.WindowID(v)
		case 3:
			ev.Focused = protowire.DecodeBool(v)
		case 4:
			ev.Serial = uint32(v)
		}
		return nil
	})
	return ev, err
}
