// Package wlclient connects to a live compositor and feeds the wl_seat events it
// receives into seat.Seat instances running on a seat.Loop.
package wlclient

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/rajveermalviya/go-wayland/wayland/client"

	"github.com/bnema/wlseat/internal/logger"
	"github.com/bnema/wlseat/internal/seat"
)

const maxSeatVersion = 5

// Options configure a Manager
type Options struct {
	// Seat is the template every bound seat is created from. Scheduler and Cursor
	// are filled in by the manager.
	Seat seat.Options
	Loop *seat.Loop

	// Title of the window opened to receive focus; empty opens none
	Title string

	// OnSeat runs on the loop after a seat is bound
	OnSeat func(*seat.Seat)
	// OnSeatRemoved runs on the loop before a withdrawn seat is closed
	OnSeatRemoved func(*seat.Seat)
}

// Manager owns the display connection and one binding per advertised wl_seat
type Manager struct {
	opts    Options
	log     *log.Logger
	display *client.Display
	reg     *client.Registry

	// reqMu serializes requests sent from the loop goroutine with the dispatcher
	reqMu sync.Mutex

	seats  map[uint32]*binding
	window *window
	shell  shellGlobals

	closeOnce sync.Once
}

type shellGlobals struct {
	compositor uint32
	shm        uint32
	wmBase     uint32
}

// Connect opens the default display and binds every seat it advertises
func Connect(opts Options) (*Manager, error) {
	if opts.Loop == nil {
		return nil, errors.New("wlclient: loop is required")
	}
	if opts.Seat.Windows == nil {
		opts.Seat.Windows = seat.NewWindows()
	}

	display, err := client.Connect("")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Wayland display: %w", err)
	}
	m := &Manager{
		opts:    opts,
		log:     logger.For("wlclient"),
		display: display,
		seats:   make(map[uint32]*binding),
	}

	reg, err := display.GetRegistry()
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("failed to get registry: %w", err)
	}
	m.reg = reg
	reg.SetGlobalHandler(m.handleGlobal)
	reg.SetGlobalRemoveHandler(m.handleGlobalRemove)

	if err := m.roundtrip(); err != nil {
		m.Close()
		return nil, err
	}
	if len(m.seats) == 0 {
		m.log.Warn("Compositor advertises no wl_seat")
	}

	if opts.Title != "" {
		w, err := m.openWindow(opts.Title)
		if err != nil {
			m.Close()
			return nil, err
		}
		m.window = w
	}
	// second roundtrip delivers capabilities and the first configure
	if err := m.roundtrip(); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

func (m *Manager) roundtrip() error {
	cb, err := m.display.Sync()
	if err != nil {
		return fmt.Errorf("failed to sync display: %w", err)
	}
	done := false
	cb.SetDoneHandler(func(client.CallbackDoneEvent) { done = true })
	for !done {
		if err := m.display.Context().Dispatch(); err != nil {
			return fmt.Errorf("failed to dispatch: %w", err)
		}
	}
	return nil
}

func (m *Manager) handleGlobal(e client.RegistryGlobalEvent) {
	switch e.Interface {
	case "wl_seat":
		m.bindSeat(e.Name, min(e.Version, maxSeatVersion))
	case "wl_compositor":
		m.shell.compositor = e.Name
	case "wl_shm":
		m.shell.shm = e.Name
	case "xdg_wm_base":
		m.shell.wmBase = e.Name
	}
}

func (m *Manager) handleGlobalRemove(e client.RegistryGlobalRemoveEvent) {
	b, ok := m.seats[e.Name]
	if !ok {
		return
	}
	delete(m.seats, e.Name)
	m.log.Info("Seat removed", "name", b.name)
	m.reqMu.Lock()
	b.releaseDevices()
	m.reqMu.Unlock()
	m.post(func() {
		if m.opts.OnSeatRemoved != nil {
			m.opts.OnSeatRemoved(b.seat)
		}
		if err := b.seat.Close(); err != nil {
			m.log.Debug("Seat close", "err", err)
		}
	})
}

func (m *Manager) bindSeat(name, version uint32) {
	wlSeat := client.NewSeat(m.display.Context())
	if err := m.reg.Bind(name, "wl_seat", version, wlSeat); err != nil {
		m.log.Errorf("Failed to bind wl_seat %d: %v", name, err)
		return
	}

	opts := m.opts.Seat
	opts.Scheduler = m.opts.Loop
	b := &binding{manager: m, global: name, wl: wlSeat}
	opts.Cursor = cursorSetter{b: b}
	b.seat = seat.New(opts)
	m.seats[name] = b

	wlSeat.SetNameHandler(func(e client.SeatNameEvent) {
		b.name = e.Name
		b.dispatch(seat.SeatName{Name: e.Name}, seat.NoWindow)
	})
	wlSeat.SetCapabilitiesHandler(func(e client.SeatCapabilitiesEvent) {
		caps := seat.Capability(e.Capabilities)
		b.syncDevices(caps)
		b.dispatch(seat.SeatCapabilities{Caps: caps}, seat.NoWindow)
	})

	if m.opts.OnSeat != nil {
		m.post(func() { m.opts.OnSeat(b.seat) })
	}
	m.log.Debug("Bound wl_seat", "global", name, "version", version)
}

func (m *Manager) post(f func()) {
	if err := m.opts.Loop.Post(f); err != nil {
		m.log.Debug("Loop closed, dropping event", "err", err)
	}
}

// Run dispatches display events until ctx is done or the connection fails
func (m *Manager) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		m.Close()
	}()
	for {
		if err := m.display.Context().Dispatch(); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("display connection lost: %w", err)
		}
	}
}

// Windows returns the registry shared by every bound seat
func (m *Manager) Windows() *seat.Windows {
	return m.opts.Seat.Windows
}

// Close destroys the window, releases every seat and disconnects
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.reqMu.Lock()
		defer m.reqMu.Unlock()
		if m.window != nil {
			m.window.destroy()
		}
		for _, b := range m.seats {
			b.releaseDevices()
			if rerr := b.wl.Release(); rerr != nil {
				m.log.Debug("Seat release", "err", rerr)
			}
		}
		err = m.display.Context().Close()
	})
	return err
}
