package ipc

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/wlseat/internal/seat"
)

func startServer(t *testing.T, h Handler) *Server {
	t.Helper()
	srv := NewServer(filepath.Join(t.TempDir(), "run", "wlseat.sock"), h)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)
	return srv
}

func TestMessageFraming(t *testing.T) {
	t.Run("status response", func(t *testing.T) {
		var buf bytes.Buffer
		seats := []seat.Snapshot{{Name: "seat0", Serial: 7, KeyboardFocus: 2}}
		require.NoError(t, writeMessage(&buf, NewStatusResponseMessage(seats)))

		msg, err := readMessage(&buf)
		require.NoError(t, err)
		assert.Equal(t, MessageStatusResponse, msg.Type)
		assert.Equal(t, seats, msg.Seats)
	})

	t.Run("error text", func(t *testing.T) {
		msg, err := Unmarshal(Marshal(NewErrorMessage("no seat")))
		require.NoError(t, err)
		assert.Equal(t, MessageError, msg.Type)
		assert.Equal(t, "no seat", msg.Error)
	})

	t.Run("missing type", func(t *testing.T) {
		_, err := Unmarshal([]byte{0x1a, 0x01, 'x'})
		assert.ErrorIs(t, err, ErrBadMessage)
	})

	t.Run("oversized frame", func(t *testing.T) {
		_, err := readMessage(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff}))
		assert.ErrorIs(t, err, ErrBadMessage)
	})
}

func TestServerStartStop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wlseat.sock")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o600))

	srv := NewServer(path, HandlerFunc(func(context.Context) ([]seat.Snapshot, error) { return nil, nil }))
	require.NoError(t, srv.Start(), "stale socket file is replaced")
	require.NoError(t, srv.Start(), "second start is a no-op")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.ModeSocket, info.Mode().Type())
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	srv.Stop()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "socket file removed")
	srv.Stop()
}

func TestClientStatus(t *testing.T) {
	t.Run("returns seats", func(t *testing.T) {
		want := []seat.Snapshot{
			{Name: "seat0", Capabilities: seat.CapKeyboard | seat.CapPointer, Serial: 12, PointerFocus: 1},
			{Name: "seat1", Capabilities: seat.CapTouch},
		}
		srv := startServer(t, HandlerFunc(func(context.Context) ([]seat.Snapshot, error) { return want, nil }))

		c := NewClient(srv.SocketPath(), time.Second)
		got, err := c.Status()
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.True(t, c.IsRunning())
	})

	t.Run("handler error", func(t *testing.T) {
		srv := startServer(t, HandlerFunc(func(context.Context) ([]seat.Snapshot, error) {
			return nil, errors.New("no seat bound yet")
		}))

		_, err := NewClient(srv.SocketPath(), time.Second).Status()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no seat bound yet")
	})

	t.Run("not running", func(t *testing.T) {
		c := NewClient(filepath.Join(t.TempDir(), "missing.sock"), time.Second)
		_, err := c.Status()
		assert.ErrorIs(t, err, ErrNotRunning)
		assert.False(t, c.IsRunning())
	})
}

func TestServerAnswersEachMessage(t *testing.T) {
	var calls int
	srv := startServer(t, HandlerFunc(func(context.Context) ([]seat.Snapshot, error) {
		calls++
		return []seat.Snapshot{{Serial: uint32(calls)}}, nil
	}))

	conn, err := net.Dial("unix", srv.SocketPath())
	require.NoError(t, err)
	defer conn.Close()

	for i := 1; i <= 2; i++ {
		require.NoError(t, writeMessage(conn, NewStatusMessage()))
		resp, err := readMessage(conn)
		require.NoError(t, err)
		require.Len(t, resp.Seats, 1)
		assert.Equal(t, uint32(i), resp.Seats[0].Serial)
	}

	require.NoError(t, writeMessage(conn, NewErrorMessage("not a request")))
	resp, err := readMessage(conn)
	require.NoError(t, err)
	assert.Equal(t, MessageError, resp.Type)
	assert.Contains(t, resp.Error, "unexpected message type")
}

func TestStopClosesIdleConnections(t *testing.T) {
	srv := NewServer(filepath.Join(t.TempDir(), "wlseat.sock"),
		HandlerFunc(func(context.Context) ([]seat.Snapshot, error) { return nil, nil }))
	require.NoError(t, srv.Start())

	conn, err := net.Dial("unix", srv.SocketPath())
	require.NoError(t, err)
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		srv.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() blocked on an idle connection")
	}
}
