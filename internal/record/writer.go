package record

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bnema/wlseat/internal/logger"
	"github.com/bnema/wlseat/internal/seat"
)

const (
	// MaxFrameSize bounds a single encoded entry
	MaxFrameSize = 64 << 10

	defaultFlushDelay = 50 * time.Millisecond
	defaultBufferSize = 16 << 10
)

// Writer appends entries to w. It implements seat.Sink so it can sit behind a
// seat directly; writes are buffered and flushed after a short delay.
type Writer struct {
	w     io.Writer
	buf   []byte
	mu    sync.Mutex
	now   func() time.Time
	log   *log.Logger
	err   error
	count int

	flushChan chan struct{}
	done      chan struct{}
	closed    bool
	maxDelay  time.Duration
	maxSize   int
}

// NewWriter creates a writer that flushes at most flushDelay after the first
// buffered entry. A zero flushDelay picks a default.
func NewWriter(w io.Writer, flushDelay time.Duration) *Writer {
	if flushDelay <= 0 {
		flushDelay = defaultFlushDelay
	}
	rw := &Writer{
		w:         w,
		buf:       make([]byte, 0, defaultBufferSize),
		now:       time.Now,
		log:       logger.For("record"),
		flushChan: make(chan struct{}, 1),
		done:      make(chan struct{}),
		maxDelay:  flushDelay,
		maxSize:   defaultBufferSize,
	}
	go rw.flushLoop()
	return rw
}

// Deliver records ev. Failures are remembered and reported by Close.
func (rw *Writer) Deliver(ev seat.Event) {
	if err := rw.Write(Entry{At: rw.now(), Event: ev}); err != nil {
		rw.log.Debug("Dropped event", "err", err)
	}
}

// Write frames and buffers one entry: a 4 byte big-endian length, then the message
func (rw *Writer) Write(e Entry) error {
	data, err := Marshal(e)
	if err != nil {
		return err
	}
	if len(data) > MaxFrameSize {
		return fmt.Errorf("entry of %d bytes exceeds frame limit", len(data))
	}

	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.closed {
		return io.ErrClosedPipe
	}
	if rw.err != nil {
		return rw.err
	}

	frame := len(data) + 4
	if len(rw.buf)+frame > rw.maxSize {
		if err := rw.flushLocked(); err != nil {
			return err
		}
	}
	rw.buf = binary.BigEndian.AppendUint32(rw.buf, uint32(len(data)))
	rw.buf = append(rw.buf, data...)
	rw.count++

	// Schedule flush if this is the first data
	if len(rw.buf) == frame {
		select {
		case rw.flushChan <- struct{}{}:
		default:
		}
	}
	return nil
}

// Count returns how many entries were accepted
func (rw *Writer) Count() int {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.count
}

// Flush forces buffered entries out
func (rw *Writer) Flush() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.flushLocked()
}

// flushLocked writes the buffer (caller must hold mu). The first write error sticks.
func (rw *Writer) flushLocked() error {
	if len(rw.buf) == 0 {
		return rw.err
	}
	_, err := rw.w.Write(rw.buf)
	rw.buf = rw.buf[:0]
	if err != nil && rw.err == nil {
		rw.err = fmt.Errorf("failed to write records: %w", err)
	}
	return rw.err
}

func (rw *Writer) flushLoop() {
	timer := time.NewTimer(rw.maxDelay)
	timer.Stop()

	for {
		select {
		case <-rw.done:
			timer.Stop()
			return
		case <-rw.flushChan:
			timer.Reset(rw.maxDelay)
		case <-timer.C:
			if err := rw.Flush(); err != nil {
				rw.log.Warn("Record flush failed", "err", err)
			}
		}
	}
}

// Close flushes what is left and stops the flush goroutine. The underlying writer
// is closed when it is an io.Closer.
func (rw *Writer) Close() error {
	rw.mu.Lock()
	if rw.closed {
		rw.mu.Unlock()
		return nil
	}
	rw.closed = true
	close(rw.done)
	err := rw.flushLocked()
	rw.mu.Unlock()

	if c, ok := rw.w.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
