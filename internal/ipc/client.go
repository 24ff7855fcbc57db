package ipc

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/bnema/wlseat/internal/logger"
	"github.com/bnema/wlseat/internal/seat"
)

// ErrNotRunning is returned when nothing listens on the socket
var ErrNotRunning = errors.New("wlseat monitor is not running")

const defaultTimeout = 5 * time.Second

// Client sends requests to a running monitor. Every request uses a fresh connection.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for socketPath. A zero timeout picks a default.
func NewClient(socketPath string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{socketPath: socketPath, timeout: timeout}
}

// Status returns the snapshot of every seat the monitor has bound
func (c *Client) Status() ([]seat.Snapshot, error) {
	resp, err := c.send(NewStatusMessage())
	if err != nil {
		return nil, err
	}
	switch resp.Type {
	case MessageStatusResponse:
		return resp.Seats, nil
	case MessageError:
		return nil, fmt.Errorf("monitor refused status query: %s", resp.Error)
	default:
		return nil, fmt.Errorf("%w: unexpected response %s", ErrBadMessage, resp.Type)
	}
}

// IsRunning reports whether a monitor answers on the socket
func (c *Client) IsRunning() bool {
	_, err := c.Status()
	return !errors.Is(err, ErrNotRunning)
}

func (c *Client) send(msg *Message) (*Message, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		if isNotListening(err) {
			return nil, ErrNotRunning
		}
		return nil, fmt.Errorf("failed to connect to monitor: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Debugf("Failed to close IPC connection: %v", err)
		}
	}()

	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		logger.Warnf("Failed to set connection deadline: %v", err)
	}

	if err := writeMessage(conn, msg); err != nil {
		return nil, err
	}
	resp, err := readMessage(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp, nil
}

func isNotListening(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ENOENT)
}
