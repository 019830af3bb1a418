package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cristianoliveira/ancs-intray/internal/ancs"
	"github.com/cristianoliveira/ancs-intray/internal/tui/state"
	"github.com/spf13/cobra"
)

const consoleCommandLong = `Run the daemon with a live console.

USAGE:
    ancs-intray console [OPTIONS]

OPTIONS:
    --simulate           Pair with a simulated phone instead of a radio
    --scenario <file>    TOML scenario for the simulated phone (default: built-in)
    -h, --help           Show this help

KEYS:
    j/k     Move the selection
    p       Positive action on the latest notification
    n       Negative action on the latest notification
    ?       Toggle full help
    q       Quit`

// programRunner runs a bubbletea model until it quits. Replaced in tests.
var programRunner = func(ctx context.Context, m tea.Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// NewConsoleCmd creates the console command with explicit dependencies.
func NewConsoleCmd(starter daemonStarter) *cobra.Command {
	if starter == nil {
		panic("NewConsoleCmd: starter dependency cannot be nil")
	}

	var (
		simulate bool
		scenario string
	)

	consoleCmd := &cobra.Command{
		Use:   "console",
		Short: "Run the daemon with a live console",
		Long:  consoleCommandLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			feed := state.NewFeed(64)
			d, err := starter.Start(ctx, startOptions{
				Simulate: simulate,
				Scenario: scenario,
				Sinks:    []ancs.Sink{feed},
			})
			if err != nil {
				return fmt.Errorf("console: %w", err)
			}

			runErr := programRunner(ctx, state.NewModel(ctx, d, feed))
			if ctx.Err() != nil {
				// Interrupted from outside; the program error only reports that.
				runErr = nil
			}
			cancel()
			if err := d.Wait(); err != nil {
				return fmt.Errorf("console: %w", err)
			}
			if runErr != nil {
				return fmt.Errorf("console: %w", runErr)
			}
			return nil
		},
	}

	consoleCmd.Flags().BoolVar(&simulate, "simulate", false, "Pair with a simulated phone instead of a radio")
	consoleCmd.Flags().StringVar(&scenario, "scenario", "", "TOML scenario for the simulated phone")

	return consoleCmd
}
