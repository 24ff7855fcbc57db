package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/wlseat/internal/ipc"
	"github.com/bnema/wlseat/internal/seat"
)

func TestStatusCommand(t *testing.T) {
	cfgPath := withConfigFile(t)
	t.Cleanup(func() { statusSocket = "" })
	sock := filepath.Join(t.TempDir(), "wlseat.sock")

	t.Run("not running", func(t *testing.T) {
		out, err := executeCommandOutput(rootCmd, "--config", cfgPath, "status", "--socket", sock)
		require.NoError(t, err)
		assert.Contains(t, out, "not running")
	})

	t.Run("prints every seat", func(t *testing.T) {
		srv := ipc.NewServer(sock, ipc.HandlerFunc(func(context.Context) ([]seat.Snapshot, error) {
			return []seat.Snapshot{
				{Name: "seat0", Capabilities: seat.CapKeyboard, Serial: 5, KeyboardFocus: 1},
				{Name: "seat1", Capabilities: seat.CapTouch},
			}, nil
		}))
		require.NoError(t, srv.Start())
		defer srv.Stop()

		out, err := executeCommandOutput(rootCmd, "--config", cfgPath, "status", "--socket", sock)
		require.NoError(t, err)
		assert.Contains(t, out, "seat0 [keyboard] │ serial 5 │ keyboard window#1")
		assert.Contains(t, out, "seat1")
	})
}

func TestSeatSnapshots(t *testing.T) {
	loop := seat.NewLoop(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	var bound []*seat.Seat
	_, err := seatSnapshots(ctx, loop, func() []*seat.Seat { return bound })
	assert.ErrorContains(t, err, "no seat bound yet")

	bound = append(bound, seat.New(seat.Options{Name: "seat0"}), seat.New(seat.Options{Name: "seat1"}))
	snaps, err := seatSnapshots(ctx, loop, func() []*seat.Seat { return bound })
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "seat0", snaps[0].Name)
	assert.Equal(t, "seat1", snaps[1].Name)
}
