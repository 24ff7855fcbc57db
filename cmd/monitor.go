package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bnema/wlseat/internal/config"
	"github.com/bnema/wlseat/internal/ipc"
	"github.com/bnema/wlseat/internal/keymap"
	"github.com/bnema/wlseat/internal/logger"
	"github.com/bnema/wlseat/internal/mirror"
	"github.com/bnema/wlseat/internal/record"
	"github.com/bnema/wlseat/internal/seat"
	"github.com/bnema/wlseat/internal/tap"
	"github.com/bnema/wlseat/internal/ui"
	"github.com/bnema/wlseat/internal/wlclient"
)

const (
	recordFlushDelay = 100 * time.Millisecond
	localFeedBuffer  = 1024
)

var (
	monitorTitle  string
	monitorNoTUI  bool
	monitorRecord string
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch the seats of the running compositor",
	Long: `Connect to the Wayland display, bind every advertised seat and show the
events it produces. A small window is opened so the compositor has a surface to
give keyboard, pointer and touch focus to.`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().StringVarP(&monitorTitle, "title", "t", "wlseat", "Title of the focus window, empty to open none")
	monitorCmd.Flags().BoolVar(&monitorNoTUI, "no-tui", false, "Print events as log lines instead of the interactive view")
	monitorCmd.Flags().StringVarP(&monitorRecord, "record", "r", "", "Record events to this file")
	monitorCmd.Flags().Bool("mirror", false, "Forward events into uinput devices")
	monitorCmd.Flags().Bool("tap", false, "Serve events over SSH")

	_ = viper.BindPFlag("record.path", monitorCmd.Flags().Lookup("record"))
	_ = viper.BindPFlag("mirror.enabled", monitorCmd.Flags().Lookup("mirror"))
	_ = viper.BindPFlag("tap.enabled", monitorCmd.Flags().Lookup("tap"))

	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	loop := seat.NewLoop(0)
	hub := tap.NewHub()
	defer hub.Close()

	sinks := []seat.Sink{hub}

	if cfg.Record.Path != "" {
		f, err := os.Create(cfg.Record.Path)
		if err != nil {
			return fmt.Errorf("failed to create record file: %w", err)
		}
		w := record.NewWriter(f, recordFlushDelay)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Errorf("Failed to close record file: %v", err)
			}
			logger.Infof("Recorded %d events to %s", w.Count(), cfg.Record.Path)
		}()
		sinks = append(sinks, w)
	}

	if cfg.Mirror.Enabled {
		m, err := mirror.Open(cfg.Mirror.Device)
		if err != nil {
			return fmt.Errorf("failed to open mirror devices: %w", err)
		}
		defer func() {
			if err := m.Close(); err != nil {
				logger.Errorf("Failed to close mirror devices: %v", err)
			}
		}()
		sinks = append(sinks, m)
	}

	if cfg.Tap.Enabled {
		srv := tap.NewServer(cfg.Tap.Address, config.ExpandPath(cfg.Tap.HostKeyPath), hub)
		srv.OnClientConnected = func(addr, fingerprint string) {
			logger.Infof("Tap client connected: %s (%s)", addr, fingerprint)
		}
		srv.OnClientDisconnected = func(addr string) {
			logger.Infof("Tap client disconnected: %s", addr)
		}
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("failed to start tap: %w", err)
		}
		defer srv.Stop()
	}

	factory, err := keyboardFactory(cfg.Keyboard.KeymapFile)
	if err != nil {
		return err
	}

	// current and bound are only touched on the loop goroutine
	var (
		current *seat.Seat
		bound   []*seat.Seat
	)
	cursor := cursorOnEnter(loop, cfg.Pointer.Cursor, func() *seat.Seat { return current })

	mgr, err := wlclient.Connect(wlclient.Options{
		Seat: seat.Options{
			Sink:        seat.MultiSink(append(sinks, cursor)...),
			Factory:     factory,
			RepeatRate:  int32(cfg.Keyboard.RepeatRate),
			RepeatDelay: cfg.Keyboard.RepeatDelay(),
		},
		Loop:  loop,
		Title: monitorTitle,
		OnSeat: func(s *seat.Seat) {
			current = s
			bound = append(bound, s)
			hub.SetSource(s.Snapshot)
			logger.Infof("Bound seat %q", s.Name())
		},
		OnSeatRemoved: func(s *seat.Seat) {
			bound = slices.DeleteFunc(bound, func(b *seat.Seat) bool { return b == s })
			if current != s {
				return
			}
			current = nil
			hub.SetSource(nil)
			if n := len(bound); n > 0 {
				current = bound[n-1]
				hub.SetSource(current.Snapshot)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("failed to connect to the Wayland display: %w", err)
	}
	defer mgr.Close()

	config.Watch(func(c *config.Config) {
		_ = loop.Post(func() {
			info := seat.KeyboardRepeatInfo{
				Rate:  int32(c.Keyboard.RepeatRate),
				Delay: int32(c.Keyboard.RepeatDelayMs),
			}
			for _, s := range bound {
				if s.Keyboard() == nil {
					continue
				}
				if err := s.Dispatch(info); err != nil {
					logger.Warnf("Ignoring reloaded repeat settings for %q: %v", s.Name(), err)
				}
			}
			logger.Infof("Repeat settings reloaded: %d/s after %dms", c.Keyboard.RepeatRate, c.Keyboard.RepeatDelayMs)
		})
	})

	status := ipc.NewServer(config.SocketPath(), ipc.HandlerFunc(func(ctx context.Context) ([]seat.Snapshot, error) {
		return seatSnapshots(ctx, loop, func() []*seat.Seat { return bound })
	}))
	if err := status.Start(); err != nil {
		logger.Warnf("Status socket unavailable: %v", err)
	} else {
		defer status.Stop()
	}

	errCh := make(chan error, 2)
	go func() { errCh <- loop.Run(ctx) }()
	go func() { errCh <- mgr.Run(ctx) }()
	go func() {
		if err := systemdNotifyLoop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warnf("systemd notification failed: %v", err)
		}
	}()

	feed, unsubscribe := hub.Subscribe(localFeedBuffer)
	defer unsubscribe()

	if monitorNoTUI {
		return printFeed(ctx, feed, errCh)
	}

	p := tea.NewProgram(ui.NewMonitorModel(monitorTitle, feed), tea.WithAltScreen())
	go func() {
		select {
		case <-ctx.Done():
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("Seat connection ended: %v", err)
			}
		}
		p.Send(tea.Quit())
	}()

	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func printFeed(ctx context.Context, feed <-chan ui.Update, errCh <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		case u, ok := <-feed:
			if !ok {
				return nil
			}
			logger.Info(u.Line)
		}
	}
}

// seatSnapshots collects the state of every bound seat on the loop
func seatSnapshots(ctx context.Context, loop *seat.Loop, bound func() []*seat.Seat) ([]seat.Snapshot, error) {
	var snaps []seat.Snapshot
	err := loop.Call(ctx, func() {
		for _, s := range bound() {
			snaps = append(snaps, s.Snapshot())
		}
	})
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, errors.New("no seat bound yet")
	}
	return snaps, nil
}

// keyboardFactory builds keyboards that start with the keymap at path until the
// compositor sends its own
func keyboardFactory(path string) (seat.Factory, error) {
	if path == "" {
		return seat.Factory{}, nil
	}
	data, err := os.ReadFile(config.ExpandPath(path))
	if err != nil {
		return seat.Factory{}, fmt.Errorf("failed to read keymap file: %w", err)
	}
	if _, err := keymap.Load(keymap.FormatXKBV1, data); err != nil {
		return seat.Factory{}, fmt.Errorf("invalid keymap file %s: %w", path, err)
	}
	return seat.Factory{
		NewKeyboard: func(env seat.Env) seat.KeyboardDevice {
			kb := seat.NewKeyboard(env)
			if err := kb.HandleKeymap(keymap.FormatXKBV1, data); err != nil {
				logger.Warnf("Keeping built-in keymap: %v", err)
			}
			return kb
		},
	}, nil
}

// cursorOnEnter requests shape whenever a pointer enters one of our windows. The
// request is posted so it runs after the enter has been fully handled. The
// default shape leaves the compositor's cursor alone.
func cursorOnEnter(loop *seat.Loop, shape string, current func() *seat.Seat) seat.Sink {
	if shape == "default" {
		return nil
	}
	return seat.SinkFunc(func(ev seat.Event) {
		fe, ok := ev.(seat.FocusEvent)
		if !ok || fe.Class != seat.ClassPointer || !fe.Focused {
			return
		}
		_ = loop.Post(func() {
			s := current()
			if s == nil {
				return
			}
			if err := s.SetCursor(fe.Serial, shape); err != nil {
				logger.Debugf("Cursor request refused: %v", err)
			}
		})
	})
}

// systemdNotifyLoop reports readiness and feeds the watchdog when running as a unit
func systemdNotifyLoop(ctx context.Context) error {
	supported, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		return fmt.Errorf("notify systemd: %w", err)
	}
	if !supported {
		return nil
	}
	_, _ = daemon.SdNotify(false, "STATUS=Watching seats")

	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		return fmt.Errorf("check watchdog: %w", err)
	}
	if interval == 0 {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
			return ctx.Err()
		case <-time.After(interval / 2):
			if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
				return fmt.Errorf("notify watchdog: %w", err)
			}
		}
	}
}
