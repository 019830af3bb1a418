package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cristianoliveira/ancs-intray/internal/ancs"
	"github.com/cristianoliveira/ancs-intray/internal/colors"
	"github.com/spf13/cobra"
)

const runCommandLong = `Run the notification daemon in the foreground.

USAGE:
    ancs-intray run [OPTIONS]

OPTIONS:
    --simulate           Pair with a simulated phone instead of a radio
    --scenario <file>    TOML scenario for the simulated phone (default: built-in)
    --duration <d>       Stop after the given duration, e.g. 30s (default: until interrupted)
    --listen <addr>      Stream notifications to websocket clients on addr, e.g. 127.0.0.1:7878
    --trace              Print the engine trace to stderr
    --no-color           Print notifications without colors
    -h, --help           Show this help

Every resolved notification is printed, stored in the inbox when inbox_enabled is set,
and passed to the on-notification hooks.`

// NewRunCmd creates the run command with explicit dependencies.
func NewRunCmd(starter daemonStarter) *cobra.Command {
	if starter == nil {
		panic("NewRunCmd: starter dependency cannot be nil")
	}

	var (
		simulate bool
		scenario string
		duration time.Duration
		listen   string
		trace    bool
		noColor  bool
	)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the notification daemon",
		Long:  runCommandLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			var received atomic.Int64
			opts := startOptions{
				Simulate: simulate,
				Scenario: scenario,
				Listen:   listen,
				Sinks: []ancs.Sink{
					ancs.NewPrinter(cmd.OutOrStdout(), !noColor),
					ancs.SinkFunc(func(context.Context, ancs.Resolved) error {
						received.Add(1)
						return nil
					}),
				},
			}
			if trace {
				opts.TraceOut = cmd.ErrOrStderr()
			}

			d, err := starter.Start(ctx, opts)
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}
			colors.Info("waiting for a phone; press Ctrl+C to stop")
			if err := d.Wait(); err != nil {
				return fmt.Errorf("run: %w", err)
			}
			colors.Success(fmt.Sprintf("stopped after %d notifications", received.Load()))
			return nil
		},
	}

	runCmd.Flags().BoolVar(&simulate, "simulate", false, "Pair with a simulated phone instead of a radio")
	runCmd.Flags().StringVar(&scenario, "scenario", "", "TOML scenario for the simulated phone")
	runCmd.Flags().DurationVar(&duration, "duration", 0, "Stop after the given duration")
	runCmd.Flags().StringVar(&listen, "listen", "", "Stream notifications to websocket clients on addr")
	runCmd.Flags().BoolVar(&trace, "trace", false, "Print the engine trace to stderr")
	runCmd.Flags().BoolVar(&noColor, "no-color", false, "Print notifications without colors")

	return runCmd
}
