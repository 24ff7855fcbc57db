package wlclient

import (
	"errors"
	"fmt"

	"github.com/rajveermalviya/go-wayland/wayland/client"
	xdg_shell "github.com/rajveermalviya/go-wayland/wayland/stable/xdg-shell"
	"golang.org/x/sys/unix"

	"github.com/bnema/wlseat/internal/seat"
)

const (
	windowWidth  = 480
	windowHeight = 320
	// opaque dark slate, ARGB8888
	windowFill = 0xff1e2430
)

// window is a plain toplevel that exists to receive input focus
type window struct {
	surface    *client.Surface
	xdgSurface *xdg_shell.Surface
	toplevel   *xdg_shell.Toplevel
	wmBase     *xdg_shell.WmBase
	pool       *client.ShmPool
	buffer     *client.Buffer
	pixels     []byte
	id         seat.WindowID
}

func (m *Manager) openWindow(title string) (*window, error) {
	if m.shell.compositor == 0 || m.shell.shm == 0 || m.shell.wmBase == 0 {
		return nil, errors.New("compositor lacks wl_compositor, wl_shm or xdg_wm_base")
	}
	ctx := m.display.Context()

	comp := client.NewCompositor(ctx)
	if err := m.reg.Bind(m.shell.compositor, "wl_compositor", 4, comp); err != nil {
		return nil, fmt.Errorf("failed to bind wl_compositor: %w", err)
	}
	shm := client.NewShm(ctx)
	if err := m.reg.Bind(m.shell.shm, "wl_shm", 1, shm); err != nil {
		return nil, fmt.Errorf("failed to bind wl_shm: %w", err)
	}
	wmBase := xdg_shell.NewWmBase(ctx)
	if err := m.reg.Bind(m.shell.wmBase, "xdg_wm_base", 1, wmBase); err != nil {
		return nil, fmt.Errorf("failed to bind xdg_wm_base: %w", err)
	}
	wmBase.SetPingHandler(func(e xdg_shell.WmBasePingEvent) {
		m.reqMu.Lock()
		defer m.reqMu.Unlock()
		wmBase.Pong(e.Serial)
	})

	w := &window{wmBase: wmBase}
	surface, err := comp.CreateSurface()
	if err != nil {
		return nil, fmt.Errorf("failed to create surface: %w", err)
	}
	w.surface = surface
	w.id = seat.WindowID(surface.ID())

	if err := w.allocate(shm); err != nil {
		return nil, err
	}

	if w.xdgSurface, err = wmBase.GetXdgSurface(surface); err != nil {
		return nil, fmt.Errorf("failed to get xdg surface: %w", err)
	}
	if w.toplevel, err = w.xdgSurface.GetToplevel(); err != nil {
		return nil, fmt.Errorf("failed to get toplevel: %w", err)
	}
	w.toplevel.SetTitle(title)
	w.toplevel.SetAppId("wlseat")

	w.xdgSurface.SetConfigureHandler(func(e xdg_shell.SurfaceConfigureEvent) {
		m.reqMu.Lock()
		defer m.reqMu.Unlock()
		w.xdgSurface.AckConfigure(e.Serial)
		w.surface.Attach(w.buffer, 0, 0)
		w.surface.Damage(0, 0, windowWidth, windowHeight)
		w.surface.Commit()
	})
	w.toplevel.SetCloseHandler(func(xdg_shell.ToplevelCloseEvent) {
		m.log.Info("Window closed", "window", w.id)
		id := w.id
		m.post(func() { m.Windows().Destroy(id) })
	})

	surface.Commit()

	windows := m.Windows()
	m.post(func() { windows.Add(w.id, seat.Point{}) })
	m.log.Debug("Window opened", "window", w.id, "title", title)
	return w, nil
}

// allocate creates a single shm buffer filled with windowFill
func (w *window) allocate(shm *client.Shm) error {
	stride := windowWidth * 4
	size := stride * windowHeight

	fd, err := unix.MemfdCreate("wlseat-window", unix.MFD_CLOEXEC)
	if err != nil {
		return fmt.Errorf("failed to create shm file: %w", err)
	}
	defer unix.Close(fd)
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		return fmt.Errorf("failed to size shm file: %w", err)
	}
	pixels, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("failed to map shm file: %w", err)
	}
	for i := 0; i < size; i += 4 {
		client.PutUint32(pixels[i:i+4], windowFill)
	}
	w.pixels = pixels

	if w.pool, err = shm.CreatePool(fd, int32(size)); err != nil {
		return fmt.Errorf("failed to create shm pool: %w", err)
	}
	w.buffer, err = w.pool.CreateBuffer(0, windowWidth, windowHeight, int32(stride), uint32(client.ShmFormatArgb8888))
	if err != nil {
		return fmt.Errorf("failed to create buffer: %w", err)
	}
	return nil
}

// destroy tears the window down; the caller holds reqMu
func (w *window) destroy() {
	if w.toplevel != nil {
		w.toplevel.Destroy()
	}
	if w.xdgSurface != nil {
		w.xdgSurface.Destroy()
	}
	if w.buffer != nil {
		w.buffer.Destroy()
	}
	if w.pool != nil {
		w.pool.Destroy()
	}
	if w.surface != nil {
		w.surface.Destroy()
	}
	if w.pixels != nil {
		unix.Munmap(w.pixels)
		w.pixels = nil
	}
}
