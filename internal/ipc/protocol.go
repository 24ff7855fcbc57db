// Package ipc lets commands query a running monitor over a Unix socket. Each
// request and response is one length-prefixed protobuf message.
package ipc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/bnema/wlseat/internal/record"
	"github.com/bnema/wlseat/internal/seat"
)

// MaxMessageSize bounds a single framed message
const MaxMessageSize = 1 << 20

// MessageType identifies the payload of a Message
type MessageType uint8

const (
	MessageStatus MessageType = iota + 1
	MessageStatusResponse
	MessageError
)

func (t MessageType) String() string {
	switch t {
	case MessageStatus:
		return "status"
	case MessageStatusResponse:
		return "status-response"
	case MessageError:
		return "error"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// ErrBadMessage is returned for a frame that does not decode into a Message
var ErrBadMessage = errors.New("bad ipc message")

// Message is the envelope exchanged on the socket
type Message struct {
	Type  MessageType
	Seats []seat.Snapshot
	Error string
}

// NewStatusMessage asks for the state of every bound seat
func NewStatusMessage() *Message {
	return &Message{Type: MessageStatus}
}

// NewStatusResponseMessage answers a status query
func NewStatusResponseMessage(seats []seat.Snapshot) *Message {
	return &Message{Type: MessageStatusResponse, Seats: seats}
}

// NewErrorMessage reports a failed request
func NewErrorMessage(errMsg string) *Message {
	return &Message{Type: MessageError, Error: errMsg}
}

// Marshal encodes m into protobuf wire format
func Marshal(m *Message) []byte {
	b := protowire.AppendTag(nil, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Type))
	for _, s := range m.Seats {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, record.MarshalSnapshot(s))
	}
	if m.Error != "" {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendString(b, m.Error)
	}
	return b
}

// Unmarshal decodes a message written by Marshal. Unknown fields are skipped.
func Unmarshal(b []byte) (*Message, error) {
	m := &Message{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrBadMessage, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == 1 && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(b)
			m.Type = MessageType(v)
		case num == 2 && typ == protowire.BytesType:
			var raw []byte
			raw, n = protowire.ConsumeBytes(b)
			if n >= 0 {
				snap, err := record.UnmarshalSnapshot(raw)
				if err != nil {
					return nil, fmt.Errorf("%w: seat %d: %v", ErrBadMessage, len(m.Seats), err)
				}
				m.Seats = append(m.Seats, snap)
			}
		case num == 3 && typ == protowire.BytesType:
			var s string
			s, n = protowire.ConsumeString(b)
			m.Error = s
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: field %d: %v", ErrBadMessage, num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	if m.Type == 0 {
		return nil, fmt.Errorf("%w: missing type", ErrBadMessage)
	}
	return m, nil
}

// readMessage reads one framed message: a 4 byte big-endian length, then the body
func readMessage(r io.Reader) (*Message, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, fmt.Errorf("failed to read message length: %w", err)
	}
	if length == 0 || length > MaxMessageSize {
		return nil, fmt.Errorf("%w: length %d", ErrBadMessage, length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("failed to read message data: %w", err)
	}
	return Unmarshal(data)
}

func writeMessage(w io.Writer, m *Message) error {
	data := Marshal(m)
	if len(data) > MaxMessageSize {
		return fmt.Errorf("message of %d bytes exceeds limit", len(data))
	}

	frame := binary.BigEndian.AppendUint32(make([]byte, 0, len(data)+4), uint32(len(data)))
	frame = append(frame, data...)
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}
