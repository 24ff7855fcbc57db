package tap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	bm "github.com/charmbracelet/wish/bubbletea"
	gossh "golang.org/x/crypto/ssh"

	"github.com/bnema/wlseat/internal/config"
	"github.com/bnema/wlseat/internal/logger"
	"github.com/bnema/wlseat/internal/ui"
)

const sessionBuffer = 256

// Server streams hub updates to SSH sessions. Sessions with a terminal get the
// monitor view, others receive one line per event.
type Server struct {
	address     string
	hostKeyPath string
	maxClients  int
	hub         *Hub
	log         *log.Logger
	sshServer   *ssh.Server

	mu      sync.Mutex
	clients map[string]string // session id -> fingerprint

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	OnClientConnected    func(addr, fingerprint string)
	OnClientDisconnected func(addr string)
}

// NewServer creates a tap server listening on address
func NewServer(address, hostKeyPath string, hub *Hub) *Server {
	return &Server{
		address:     address,
		hostKeyPath: hostKeyPath,
		maxClients:  4,
		hub:         hub,
		log:         logger.For("tap"),
		clients:     make(map[string]string),
		stop:        make(chan struct{}),
	}
}

// SetMaxClients sets the maximum number of concurrent sessions, zero for no limit
func (s *Server) SetMaxClients(n int) {
	s.maxClients = n
}

// Start begins listening for SSH connections
func (s *Server) Start(ctx context.Context) error {
	server, err := wish.NewServer(
		wish.WithAddress(s.address),
		wish.WithHostKeyPath(s.hostKeyPath),
		wish.WithPublicKeyAuth(s.publicKeyAuth),
		wish.WithMiddleware(
			bm.Middleware(s.teaHandler),
			s.streamMiddleware(),
			s.sessionMiddleware(),
			s.loggingMiddleware(),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create SSH server: %w", err)
	}
	s.sshServer = server

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.log.Infof("Tap listening on %s", s.address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			s.log.Errorf("Tap server error: %v", err)
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.stop:
		}
	}()
	return nil
}

// Stop shuts the server down and closes every session
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		if s.sshServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.sshServer.Shutdown(ctx)
		}
		s.wg.Wait()
	})
}

// Clients returns the number of open sessions
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) publicKeyAuth(ctx ssh.Context, key ssh.PublicKey) bool {
	fingerprint := gossh.FingerprintSHA256(key)
	ok := authorize(fingerprint)
	if ok {
		s.log.Infof("Tap key accepted addr=%s user=%s key=%s", ctx.RemoteAddr(), ctx.User(), fingerprint)
	} else {
		s.log.Infof("Tap key denied addr=%s key=%s", ctx.RemoteAddr(), fingerprint)
	}
	return ok
}

// authorize accepts whitelisted keys, and any key when whitelist-only mode is off
func authorize(fingerprint string) bool {
	if config.IsTapKeyWhitelisted(fingerprint) {
		return true
	}
	return !config.Get().Tap.WhitelistOnly
}

func (s *Server) loggingMiddleware() wish.Middleware {
	return func(h ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			s.log.Debugf("Tap session started: user=%s addr=%s", sess.User(), sess.RemoteAddr())
			h(sess)
			s.log.Debugf("Tap session ended: addr=%s", sess.RemoteAddr())
		}
	}
}

// sessionMiddleware enforces the client limit and tracks open sessions
func (s *Server) sessionMiddleware() wish.Middleware {
	return func(h ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			addr := sess.RemoteAddr().String()
			id := sess.Context().SessionID()

			s.mu.Lock()
			if s.maxClients > 0 && len(s.clients) >= s.maxClients {
				s.mu.Unlock()
				s.log.Infof("Rejecting tap session, limit reached addr=%s", addr)
				fmt.Fprintln(sess, "wlseat tap: too many sessions")
				_ = sess.Exit(1)
				return
			}
			var fingerprint string
			if sess.PublicKey() != nil {
				fingerprint = gossh.FingerprintSHA256(sess.PublicKey())
			}
			s.clients[id] = fingerprint
			s.mu.Unlock()

			if s.OnClientConnected != nil {
				s.OnClientConnected(addr, fingerprint)
			}
			defer func() {
				s.mu.Lock()
				delete(s.clients, id)
				s.mu.Unlock()
				if s.OnClientDisconnected != nil {
					s.OnClientDisconnected(addr)
				}
			}()

			h(sess)
		}
	}
}

// streamMiddleware serves sessions without a terminal and passes the rest on
func (s *Server) streamMiddleware() wish.Middleware {
	return func(h ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			if _, _, isPty := sess.Pty(); isPty {
				h(sess)
				return
			}
			s.stream(sess)
		}
	}
}

func (s *Server) stream(sess ssh.Session) {
	feed, cancel := s.hub.Subscribe(sessionBuffer)
	defer cancel()

	fmt.Fprintf(sess, "wlseat tap %s\n", s.address)
	for {
		select {
		case <-s.stop:
			return
		case <-sess.Context().Done():
			return
		case u, ok := <-feed:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(sess, "%s %s\n", u.At.Format("15:04:05.000"), u.Line); err != nil {
				return
			}
		}
	}
}

func (s *Server) teaHandler(sess ssh.Session) (tea.Model, []tea.ProgramOption) {
	feed, cancel := s.hub.Subscribe(sessionBuffer)
	go func() {
		select {
		case <-sess.Context().Done():
		case <-s.stop:
		}
		cancel()
	}()
	model := ui.NewMonitorModel(fmt.Sprintf("tap %s", sess.User()), feed)
	return model, []tea.ProgramOption{tea.WithAltScreen()}
}
