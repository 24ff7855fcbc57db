package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/wlseat/internal/logger"
	"github.com/bnema/wlseat/internal/record"
	"github.com/bnema/wlseat/internal/replay"
	"github.com/bnema/wlseat/internal/seat"
	"github.com/bnema/wlseat/internal/ui"
)

var (
	replayStrict bool
	replayQuiet  bool
	replayWire   string
	replayRecord string
)

var replayCmd = &cobra.Command{
	Use:   "replay <script>",
	Short: "Run a scripted seat session",
	Long: `Feed the protocol messages of a TOML or YAML script into a fresh seat on a
virtual clock and print the events it produces. Key repeat and other timers
fire at their scripted virtual times.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().BoolVar(&replayStrict, "strict", false, "Fail on messages the seat rejects")
	replayCmd.Flags().BoolVarP(&replayQuiet, "quiet", "q", false, "Only print the summary")
	replayCmd.Flags().StringVar(&replayWire, "wire", "", "Write touch frames as wl_touch wire messages to this file")
	replayCmd.Flags().StringVarP(&replayRecord, "record", "r", "", "Record produced events to this file")

	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	script, err := replay.Load(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	opts := replay.Options{Strict: replayStrict}
	var runner *replay.Runner

	var sinks []seat.Sink
	if !replayQuiet {
		sinks = append(sinks, seat.SinkFunc(func(ev seat.Event) {
			fmt.Fprintf(out, "%8s  %s\n", runner.Clock().Now(), seat.Describe(ev))
		}))
	}

	if replayRecord != "" {
		f, err := os.Create(replayRecord)
		if err != nil {
			return fmt.Errorf("failed to create record file: %w", err)
		}
		w := record.NewWriter(f, 0)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Errorf("Failed to close record file: %v", err)
			}
		}()
		sinks = append(sinks, w)
	}

	if replayWire != "" {
		f, err := os.Create(replayWire)
		if err != nil {
			return fmt.Errorf("failed to create wire file: %w", err)
		}
		defer f.Close()
		opts.Wire = f
	}

	opts.Sink = seat.MultiSink(sinks...)
	runner = replay.New(script, opts)

	res, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}
	printReplaySummary(out, script, res)

	if len(res.Failures) > 0 {
		return fmt.Errorf("%d of %d steps failed", len(res.Failures), res.Steps)
	}
	return nil
}

func printReplaySummary(w io.Writer, script *replay.Script, res replay.Result) {
	name := script.Name
	if name == "" {
		name = "script"
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, ui.FormatSection(name))
	fmt.Fprintln(w, ui.FormatKeyValue("Steps", res.Steps))
	fmt.Fprintln(w, ui.FormatKeyValue("Dispatched", res.Dispatched))
	fmt.Fprintln(w, ui.FormatKeyValue("Rejected", res.Rejected))
	fmt.Fprintln(w, ui.FormatKeyValue("Virtual time", res.Elapsed.Round(time.Millisecond)))
	fmt.Fprintln(w, ui.RenderSnapshot(res.Snapshot))
	for _, f := range res.Failures {
		fmt.Fprintln(w, ui.FormatResult(false, fmt.Sprintf("Step %d (%s)", f.Step, f.Kind), f.Err.Error()))
	}
	if len(res.Failures) == 0 {
		fmt.Fprintln(w, ui.FormatResult(true, "Replay finished", ""))
	}
}
