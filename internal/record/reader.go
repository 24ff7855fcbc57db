package record

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Reader decodes entries written by Writer
type Reader struct {
	r    *bufio.Reader
	head [4]byte
	buf  []byte
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next entry, io.EOF at a clean end of stream and
// io.ErrUnexpectedEOF when the stream stops inside a frame.
func (r *Reader) Next() (Entry, error) {
	if _, err := io.ReadFull(r.r, r.head[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Entry{}, io.EOF
		}
		return Entry{}, err
	}
	length := binary.BigEndian.Uint32(r.head[:])
	if length == 0 || length > MaxFrameSize {
		return Entry{}, fmt.Errorf("%w: frame length %d", ErrMalformed, length)
	}
	if cap(r.buf) < int(length) {
		r.buf = make([]byte, length)
	}
	r.buf = r.buf[:length]
	if _, err := io.ReadFull(r.r, r.buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Entry{}, err
	}
	return Unmarshal(r.buf)
}

// ReadAll decodes every entry until the end of the stream
func ReadAll(r io.Reader) ([]Entry, error) {
	rd := NewReader(r)
	var out []Entry
	for {
		e, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
}
