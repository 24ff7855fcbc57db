package ipc

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/bnema/wlseat/internal/logger"
	"github.com/bnema/wlseat/internal/seat"
)

// Handler answers the requests a Server receives
type Handler interface {
	Status(ctx context.Context) ([]seat.Snapshot, error)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context) ([]seat.Snapshot, error)

func (f HandlerFunc) Status(ctx context.Context) ([]seat.Snapshot, error) { return f(ctx) }

// Server accepts connections on a Unix socket and answers each message in turn
type Server struct {
	mu         sync.Mutex
	listener   net.Listener
	socketPath string
	handler    Handler
	log        *log.Logger
	wg         sync.WaitGroup
	cancel     context.CancelFunc
	running    bool
}

// NewServer creates a server for socketPath. Nothing is opened until Start.
func NewServer(socketPath string, handler Handler) *Server {
	return &Server{
		socketPath: socketPath,
		handler:    handler,
		log:        logger.For("ipc"),
	}
}

// SocketPath returns the path the server listens on
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start replaces any stale socket file and begins accepting connections.
// Starting a running server is a no-op.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if err := os.RemoveAll(s.socketPath); err != nil {
		return fmt.Errorf("failed to remove existing socket: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o700); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create socket listener: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.listener = listener
	s.running = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.acceptConnections(ctx)

	s.log.Debug("Socket server started", "path", s.socketPath)
	return nil
}

// Stop closes the listener and every open connection, then removes the socket file
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	s.cancel()
	s.listener.Close()
	s.wg.Wait()

	if err := os.RemoveAll(s.socketPath); err != nil {
		s.log.Warn("Failed to remove socket", "path", s.socketPath, "err", err)
	}
	s.log.Debug("Socket server stopped")
}

func (s *Server) acceptConnections(ctx context.Context) {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				s.log.Error("Failed to accept connection", "err", err)
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConnection(ctx, conn)
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		if stop() {
			conn.Close()
		}
	}()

	for {
		msg, err := readMessage(conn)
		if err != nil {
			s.log.Debug("Connection closed", "err", err)
			return
		}
		if err := writeMessage(conn, s.handleMessage(ctx, msg)); err != nil {
			s.log.Error("Failed to send response", "err", err)
			return
		}
	}
}

func (s *Server) handleMessage(ctx context.Context, msg *Message) *Message {
	switch msg.Type {
	case MessageStatus:
		seats, err := s.handler.Status(ctx)
		if err != nil {
			return NewErrorMessage(err.Error())
		}
		return NewStatusResponseMessage(seats)
	default:
		return NewErrorMessage(fmt.Sprintf("unexpected message type: %s", msg.Type))
	}
}
