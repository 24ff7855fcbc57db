package compositor

import (
	"github.com/rajveermalviya/go-wayland/wayland/client"
)

// wl_touch event opcodes
const (
	opTouchDown   uint32 = 0
	opTouchUp     uint32 = 1
	opTouchMotion uint32 = 2
	opTouchFrame  uint32 = 3
	opTouchCancel uint32 = 4
)

const headerSize = 8

// message builds one Wayland wire message: sender id, size<<16|opcode, then arguments
type message struct {
	buf []byte
}

func newMessage(sender, opcode uint32, argWords int) *message {
	size := headerSize + 4*argWords
	m := &message{buf: make([]byte, headerSize, size)}
	client.PutUint32(m.buf[0:4], sender)
	client.PutUint32(m.buf[4:8], uint32(size)<<16|opcode)
	return m
}

func (m *message) putUint32(v uint32) *message {
	var b [4]byte
	client.PutUint32(b[:], v)
	m.buf = append(m.buf, b[:]...)
	return m
}

func (m *message) putInt32(v int32) *message {
	return m.putUint32(uint32(v))
}

func (m *message) putFixed(v float64) *message {
	var b [4]byte
	client.PutFixed(b[:], v)
	m.buf = append(m.buf, b[:]...)
	return m
}

func (m *message) bytes() []byte {
	return m.buf
}

func encodeDown(touch, serial, time, surface uint32, id int32, x, y float64) []byte {
	return newMessage(touch, opTouchDown, 6).
		putUint32(serial).putUint32(time).putUint32(surface).putInt32(id).putFixed(x).putFixed(y).
		bytes()
}

func encodeUp(touch, serial, time uint32, id int32) []byte {
	return newMessage(touch, opTouchUp, 3).putUint32(serial).putUint32(time).putInt32(id).bytes()
}

func encodeMotion(touch, time uint32, id int32, x, y float64) []byte {
	return newMessage(touch, opTouchMotion, 4).putUint32(time).putInt32(id).putFixed(x).putFixed(y).bytes()
}

func encodeFrame(touch uint32) []byte {
	return newMessage(touch, opTouchFrame, 0).bytes()
}

func encodeCancel(touch uint32) []byte {
	return newMessage(touch, opTouchCancel, 0).bytes()
}

// Header is the decoded fixed part of a wire message
type Header struct {
	Sender uint32
	Opcode uint32
	Size   uint32
}

// DecodeHeader parses the first eight bytes of a wire message
func DecodeHeader(b []byte) (Header, bool) {
	if len(b) < headerSize {
		return Header{}, false
	}
	word := client.Uint32(b[4:8])
	return Header{
		Sender: client.Uint32(b[0:4]),
		Opcode: word & 0xffff,
		Size:   word >> 16,
	}, true
}

// SplitMessages cuts a byte stream into whole wire messages
func SplitMessages(b []byte) [][]byte {
	var out [][]byte
	for len(b) >= headerSize {
		h, _ := DecodeHeader(b)
		if h.Size < headerSize || int(h.Size) > len(b) {
			break
		}
		out = append(out, b[:h.Size])
		b = b[h.Size:]
	}
	return out
}
