package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/wlseat/internal/config"
	"github.com/bnema/wlseat/internal/ipc"
	"github.com/bnema/wlseat/internal/seat"
	"github.com/bnema/wlseat/internal/ui"
)

var (
	statusSocket  string
	statusTimeout time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the seats of a running monitor",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := statusSocket
		if path == "" {
			path = config.SocketPath()
		}

		seats, err := ipc.NewClient(path, statusTimeout).Status()
		if errors.Is(err, ipc.ErrNotRunning) {
			fmt.Fprintln(cmd.OutOrStdout(), ui.FormatResult(false, "Monitor", "not running"))
			return nil
		}
		if err != nil {
			return err
		}
		printSeats(cmd.OutOrStdout(), seats)
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusSocket, "socket", "", "Socket of the running monitor")
	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 2*time.Second, "How long to wait for an answer")
	rootCmd.AddCommand(statusCmd)
}

func printSeats(w io.Writer, seats []seat.Snapshot) {
	for i, s := range seats {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, ui.FormatSection(orDefault(s.Name, "unnamed seat")))
		fmt.Fprintln(w, ui.RenderSnapshot(s))
	}
}
