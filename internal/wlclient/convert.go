package wlclient

import (
	"encoding/binary"

	"github.com/rajveermalviya/go-wayland/wayland/client"

	"github.com/bnema/wlseat/internal/seat"
)

// decodeKeys unpacks the wl_array of pressed keys carried by wl_keyboard.enter
func decodeKeys(raw []byte) []uint32 {
	keys := make([]uint32, 0, len(raw)/4)
	for len(raw) >= 4 {
		keys = append(keys, binary.NativeEndian.Uint32(raw[:4]))
		raw = raw[4:]
	}
	return keys
}

func keyboardEnter(e client.KeyboardEnterEvent, w seat.WindowID) seat.Message {
	return seat.KeyboardEnter{Serial: e.Serial, Window: w, Keys: decodeKeys(e.Keys)}
}

func keyboardLeave(e client.KeyboardLeaveEvent, w seat.WindowID) seat.Message {
	return seat.KeyboardLeave{Serial: e.Serial, Window: w}
}

func keyboardKey(e client.KeyboardKeyEvent) seat.Message {
	return seat.KeyboardKey{Serial: e.Serial, Time: e.Time, Code: e.Key, State: seat.KeyState(e.State)}
}

func keyboardModifiers(e client.KeyboardModifiersEvent) seat.Message {
	return seat.KeyboardModifiers{
		Serial:    e.Serial,
		Depressed: e.ModsDepressed,
		Latched:   e.ModsLatched,
		Locked:    e.ModsLocked,
		Group:     e.Group,
	}
}

func keyboardRepeatInfo(e client.KeyboardRepeatInfoEvent) seat.Message {
	return seat.KeyboardRepeatInfo{Rate: e.Rate, Delay: e.Delay}
}

func pointerEnter(e client.PointerEnterEvent, w seat.WindowID) seat.Message {
	return seat.PointerEnter{Serial: e.Serial, Window: w, X: e.SurfaceX, Y: e.SurfaceY}
}

func pointerLeave(e client.PointerLeaveEvent, w seat.WindowID) seat.Message {
	return seat.PointerLeave{Serial: e.Serial, Window: w}
}

func pointerMotion(e client.PointerMotionEvent) seat.Message {
	return seat.PointerMotion{Time: e.Time, X: e.SurfaceX, Y: e.SurfaceY}
}

func pointerButton(e client.PointerButtonEvent) seat.Message {
	return seat.PointerButton{Serial: e.Serial, Time: e.Time, Button: e.Button, State: seat.ButtonState(e.State)}
}

func pointerAxis(e client.PointerAxisEvent) seat.Message {
	return seat.PointerAxis{Time: e.Time, Axis: seat.Axis(e.Axis), Value: e.Value}
}

func touchDown(e client.TouchDownEvent, w seat.WindowID) seat.Message {
	return seat.TouchDown{Serial: e.Serial, Time: e.Time, Window: w, ID: e.Id, X: e.X, Y: e.Y}
}

func touchUp(e client.TouchUpEvent) seat.Message {
	return seat.TouchUp{Serial: e.Serial, Time: e.Time, ID: e.Id}
}

func touchMotion(e client.TouchMotionEvent) seat.Message {
	return seat.TouchMotion{Time: e.Time, ID: e.Id, X: e.X, Y: e.Y}
}

func windowOf(s *client.Surface) seat.WindowID {
	if s == nil {
		return seat.NoWindow
	}
	return seat.WindowID(s.ID())
}
