package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bnema/wlseat/internal/compositor"
	"github.com/bnema/wlseat/internal/logger"
	"github.com/bnema/wlseat/internal/seat"
)

// touchObjectID is the wl_touch object id used for re-sent touch events
const touchObjectID = 3

// Options configure a Runner
type Options struct {
	// Sink receives every event the seat produces
	Sink seat.Sink
	// Wire, when set, receives each touch frame re-encoded as wl_touch events
	Wire io.Writer
	// Cursor handles cursor.set steps; by default requests are only logged
	Cursor seat.CursorSetter
	// Strict turns rejected messages without expect_error into failures
	Strict bool
}

// Failure is a step that did not behave as scripted
type Failure struct {
	Step int
	Kind string
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("step %d (%s): %v", f.Step, f.Kind, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Result summarizes a replay
type Result struct {
	Steps      int
	Dispatched int
	Rejected   int
	Elapsed    time.Duration
	Failures   []Failure
	Snapshot   seat.Snapshot
}

// Runner replays a script against a fresh seat on a ManualClock
type Runner struct {
	script  *Script
	opts    Options
	clock   *seat.ManualClock
	windows *seat.Windows
	seat    *seat.Seat
	serials seat.SerialGenerator
	log     *log.Logger

	touch       *compositor.Touch
	touchClient *compositor.Client
	touchTarget seat.WindowID
}

// New builds the seat a script runs against
func New(script *Script, opts Options) *Runner {
	r := &Runner{
		script:  script,
		opts:    opts,
		clock:   seat.NewManualClock(),
		windows: seat.NewWindows(),
		log:     logger.For("replay"),
	}
	for _, w := range script.Windows {
		r.windows.Add(seat.WindowID(w.ID), seat.Point{X: w.X, Y: w.Y})
	}

	var wire seat.Sink
	if opts.Wire != nil {
		r.touchClient = &compositor.Client{ID: 1, Conn: opts.Wire}
		r.touch = compositor.NewTouch(&seat.SerialGenerator{}, r.clock, compositor.FocusFunc(r.touchView))
		r.touch.AddClient(r.touchClient, touchObjectID)
		wire = seat.SinkFunc(r.forwardTouch)
	}

	cursor := opts.Cursor
	if cursor == nil {
		cursor = logCursor{log: r.log}
	}
	r.seat = seat.New(seat.Options{
		Name:        script.Seat,
		Windows:     r.windows,
		Sink:        seat.MultiSink(opts.Sink, wire),
		Scheduler:   r.clock,
		Cursor:      cursor,
		Logger:      logger.For("seat"),
		RepeatRate:  script.RepeatRate,
		RepeatDelay: script.RepeatDelayDuration(),
	})
	return r
}

// Seat returns the seat being driven
func (r *Runner) Seat() *seat.Seat { return r.seat }

// Clock returns the virtual clock
func (r *Runner) Clock() *seat.ManualClock { return r.clock }

// Run replays every step. Step failures are collected in the result; the error is
// only set when the replay could not continue.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	var res Result

	caps, err := parseCaps(r.script.Capabilities)
	if err != nil {
		return res, err
	}
	if caps != 0 {
		r.seat.SetCapabilities(caps)
	}

	for i, st := range r.script.Steps {
		if err := ctx.Err(); err != nil {
			return r.finish(res), err
		}
		if st.Advance > 0 {
			r.clock.Advance(time.Duration(st.Advance) * time.Millisecond)
		}
		if st.Kind == "" || st.Kind == KindWait {
			continue
		}
		res.Steps++

		err := r.step(st)
		switch {
		case st.ExpectError != "":
			if err == nil {
				res.Dispatched++
				res.Failures = append(res.Failures, Failure{Step: i + 1, Kind: st.Kind, Err: errors.New("expected an error, got none")})
				break
			}
			res.Rejected++
			if !strings.Contains(err.Error(), st.ExpectError) {
				res.Failures = append(res.Failures, Failure{Step: i + 1, Kind: st.Kind, Err: fmt.Errorf("expected error containing %q: %w", st.ExpectError, err)})
			}
		case err != nil:
			res.Rejected++
			r.log.Debug("Step rejected", "step", i+1, "kind", st.Kind, "err", err)
			if r.opts.Strict || errors.Is(err, ErrInvalidStep) {
				res.Failures = append(res.Failures, Failure{Step: i + 1, Kind: st.Kind, Err: err})
			}
		default:
			res.Dispatched++
		}
	}
	return r.finish(res), nil
}

func (r *Runner) finish(res Result) Result {
	res.Elapsed = r.clock.Now()
	res.Snapshot = r.seat.Snapshot()
	return res
}

func (r *Runner) step(st Step) error {
	switch st.Kind {
	case KindSetCursor:
		return r.seat.SetCursor(r.serialFor(st), st.Shape)
	case KindRemoveButton:
		button, err := parseButton(st.Button)
		if err != nil {
			return err
		}
		r.seat.RemoveButton(button)
		return nil
	}

	var serial uint32
	if carriesSerial(st.Kind) {
		serial = r.serialFor(st)
	}
	now := st.Time
	if now == 0 {
		now = r.clock.Millis()
	}
	msg, err := st.message(r.script.dir, serial, now)
	if err != nil {
		return err
	}
	return r.seat.Dispatch(msg)
}

// serialFor returns the step's serial, or the next one after every serial used so far
func (r *Runner) serialFor(st Step) uint32 {
	if st.Serial != 0 {
		r.serials.Observe(st.Serial)
		return st.Serial
	}
	return r.serials.Next()
}

func (r *Runner) touchView() *compositor.View {
	if r.touchTarget == seat.NoWindow {
		return nil
	}
	return &compositor.View{Client: r.touchClient, Surface: uint32(r.touchTarget)}
}

func (r *Runner) forwardTouch(ev seat.Event) {
	var err error
	switch e := ev.(type) {
	case seat.TouchFrameEvent:
		r.touchTarget = e.Window
		err = r.touch.SendFullTouchEvent(compositor.FromFrame(e))
	case seat.TouchCancelEvent:
		err = r.touch.SendFullTouchEvent(compositor.TouchEvent{Cancel: true})
	default:
		return
	}
	if err != nil {
		r.log.Warn("Failed to re-send touch event", "err", err)
	}
}

type logCursor struct {
	log *log.Logger
}

func (c logCursor) SetCursor(serial uint32, shape string) error {
	c.log.Debug("Cursor request", "serial", serial, "shape", shape)
	return nil
}
