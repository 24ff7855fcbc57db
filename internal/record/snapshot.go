package record

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/bnema/wlseat/internal/keymap"
	"github.com/bnema/wlseat/internal/seat"
)

// MarshalSnapshot encodes a seat snapshot as a protobuf message
func MarshalSnapshot(s seat.Snapshot) []byte {
	b := appendString(nil, 1, s.Name)
	b = appendUint(b, 2, uint64(s.Capabilities))
	b = appendUint(b, 3, uint64(s.Serial))
	b = appendUint(b, 4, uint64(s.KeyboardFocus))
	b = appendUint(b, 5, uint64(s.PointerFocus))
	b = appendUint(b, 6, uint64(s.TouchFocus))
	b = appendString(b, 7, s.Keymap)
	b = appendUint(b, 8, uint64(s.Modifiers))
	b = appendDouble(b, 9, s.Pointer.X)
	b = appendDouble(b, 10, s.Pointer.Y)
	b = appendUint(b, 11, uint64(s.Buttons))
	b = appendUint(b, 12, uint64(s.CursorSerial))
	for _, p := range s.TouchPoints {
		pt := appendUint(nil, 1, protowire.EncodeZigZag(int64(p.ID)))
		pt = appendDouble(pt, 2, p.X)
		pt = appendDouble(pt, 3, p.Y)
		pt = appendUint(pt, 4, uint64(p.State))
		b = protowire.AppendTag(b, 13, protowire.BytesType)
		b = protowire.AppendBytes(b, pt)
	}
	return b
}

// UnmarshalSnapshot decodes a message written by MarshalSnapshot
func UnmarshalSnapshot(raw []byte) (seat.Snapshot, error) {
	var s seat.Snapshot
	err := walk(raw, func(num protowire.Number, _ protowire.Type, v uint64, b []byte) error {
		switch num {
		case 1:
			s.Name = string(b)
		case 2:
			s.Capabilities = seat.Capability(v)
		case 3:
			s.Serial = uint32(v)
		case 4:
			s.KeyboardFocus = seat.WindowID(v)
		case 5:
			s.PointerFocus = seat.WindowID(v)
		case 6:
			s.TouchFocus = seat.WindowID(v)
		case 7:
			s.Keymap = string(b)
		case 8:
			s.Modifiers = keymap.Modifiers(v)
		case 9:
			s.Pointer.X = double(v)
		case 10:
			s.Pointer.Y = double(v)
		case 11:
			s.Buttons = uint32(v)
		case 12:
			s.CursorSerial = uint32(v)
		case 13:
			var p seat.TouchPoint
			err := walk(b, func(n protowire.Number, _ protowire.Type, pv uint64, _ []byte) error {
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
			s.TouchPoints = append(s.TouchPoints, p)
		}
		return nil
	})
	return s, err
}
