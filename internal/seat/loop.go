package seat

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Timer is a cancellable scheduled callback
type Timer interface {
	// Stop prevents the callback from running and reports whether it was still pending
	Stop() bool
}

// Scheduler runs callbacks after a delay on the seat's goroutine
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// ErrLoopClosed is returned when posting to a loop that stopped running
var ErrLoopClosed = errors.New("event loop closed")

// Loop serializes all seat work onto one goroutine. Protocol readers and timers
// post closures; Run executes them in order.
type Loop struct {
	queue chan func()
	done  chan struct{}
	once  sync.Once
}

// NewLoop creates a loop with the given queue depth
func NewLoop(depth int) *Loop {
	if depth <= 0 {
		depth = 256
	}
	return &Loop{
		queue: make(chan func(), depth),
		done:  make(chan struct{}),
	}
}

// Post queues f. It blocks while the queue is full and fails once the loop stopped.
func (l *Loop) Post(f func()) error {
	select {
	case <-l.done:
		return ErrLoopClosed
	default:
	}
	select {
	case l.queue <- f:
		return nil
	case <-l.done:
		return ErrLoopClosed
	}
}

// Call runs f on the loop and waits for it to finish
func (l *Loop) Call(ctx context.Context, f func()) error {
	finished := make(chan struct{})
	if err := l.Post(func() {
		defer close(finished)
		f()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopClosed
	}
}

// Run executes posted closures until ctx is cancelled
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.done) })
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f := <-l.queue:
			f()
		}
	}
}

// Done is closed when Run returns
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

type loopTimer struct {
	timer   *time.Timer
	pending atomic.Bool
}

func (t *loopTimer) Stop() bool {
	t.timer.Stop()
	return t.pending.CompareAndSwap(true, false)
}

// AfterFunc schedules f on the loop. A timer stopped from the loop goroutine never
// runs f, even when its closure was already queued.
func (l *Loop) AfterFunc(d time.Duration, f func()) Timer {
	t := &loopTimer{}
	t.pending.Store(true)
	t.timer = time.AfterFunc(d, func() {
		_ = l.Post(func() {
			if t.pending.CompareAndSwap(true, false) {
				f()
			}
		})
	})
	return t
}

// ManualClock is a Scheduler driven by explicit Advance calls
type ManualClock struct {
	now    time.Duration
	seq    uint64
	timers []*manualTimer
}

type manualTimer struct {
	when    time.Duration
	seq     uint64
	f       func()
	pending bool
}

func (t *manualTimer) Stop() bool {
	was := t.pending
	t.pending = false
	return was
}

// NewManualClock creates a clock at time zero
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

// Now returns the elapsed virtual time
func (c *ManualClock) Now() time.Duration {
	return c.now
}

// Millis returns the virtual time in milliseconds, wrapped to 32 bits like protocol timestamps
func (c *ManualClock) Millis() uint32 {
	return uint32(c.now / time.Millisecond)
}

func (c *ManualClock) AfterFunc(d time.Duration, f func()) Timer {
	if d < 0 {
		d = 0
	}
	c.seq++
	t := &manualTimer{when: c.now + d, seq: c.seq, f: f, pending: true}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward by d, running due callbacks in deadline order.
// Callbacks scheduled while advancing run too if they fall due within d.
func (c *ManualClock) Advance(d time.Duration) {
	target := c.now + d
	for {
		next := c.nextDue(target)
		if next == nil {
			break
		}
		c.now = next.when
		next.pending = false
		next.f()
	}
	c.now = target
}

// Pending returns the number of timers still waiting to fire
func (c *ManualClock) Pending() int {
	c.compact()
	return len(c.timers)
}

func (c *ManualClock) nextDue(target time.Duration) *manualTimer {
	c.compact()
	sort.Slice(c.timers, func(i, j int) bool {
		if c.timers[i].when != c.timers[j].when {
			return c.timers[i].when < c.timers[j].when
		}
		return c.timers[i].seq < c.timers[j].seq
	})
	if len(c.timers) == 0 || c.timers[0].when > target {
		return nil
	}
	return c.timers[0]
}

func (c *ManualClock) compact() {
	kept := c.timers[:0]
	for _, t := range c.timers {
		if t.pending {
			kept = append(kept, t)
		}
	}
	for i := len(kept); i < len(c.timers); i++ {
		c.timers[i] = nil
	}
	c.timers = kept
}
