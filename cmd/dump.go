package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bnema/wlseat/internal/record"
	"github.com/bnema/wlseat/internal/seat"
	"github.com/bnema/wlseat/internal/ui"
)

var dumpRelative bool

var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Print a recorded event log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open record: %w", err)
		}
		defer f.Close()
		return dumpRecord(cmd.OutOrStdout(), f, dumpRelative)
	},
}

func init() {
	dumpCmd.Flags().BoolVar(&dumpRelative, "relative", false, "Show times relative to the first event")
	rootCmd.AddCommand(dumpCmd)
}

// dumpRecord prints one line per entry. A truncated tail is reported after the
// entries that could be read.
func dumpRecord(w io.Writer, r io.Reader, relative bool) error {
	reader := record.NewReader(r)
	counts := make(map[string]int)
	var (
		n     int
		first record.Entry
	)
	for {
		e, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Fprintln(w, ui.FormatResult(false, fmt.Sprintf("Entry %d", n+1), err.Error()))
			return fmt.Errorf("record damaged after %d entries: %w", n, err)
		}
		if n == 0 {
			first = e
		}
		n++
		counts[kindOf(e.Event)]++

		stamp := e.At.Format("15:04:05.000")
		if relative {
			stamp = fmt.Sprintf("%+9.3fs", e.At.Sub(first.At).Seconds())
		}
		fmt.Fprintf(w, "%s  %s\n", stamp, seat.Describe(e.Event))
	}

	fmt.Fprintln(w, ui.FormatKeyValue("Entries", n))
	for _, kind := range []string{"key", "motion", "button", "axis", "touch", "focus"} {
		if counts[kind] > 0 {
			fmt.Fprintln(w, ui.FormatKeyValue("  "+kind, counts[kind]))
		}
	}
	return nil
}

func kindOf(ev seat.Event) string {
	switch ev.(type) {
	case seat.KeyEvent:
		return "key"
	case seat.MotionEvent:
		return "motion"
	case seat.ButtonEvent:
		return "button"
	case seat.AxisEvent:
		return "axis"
	case seat.TouchFrameEvent, seat.TouchCancelEvent:
		return "touch"
	case seat.FocusEvent:
		return "focus"
	}
	return "other"
}
