package cmd

import (
	"fmt"
	"time"

	"github.com/cristianoliveira/ancs-intray/internal/colors"
	"github.com/spf13/cobra"
)

// NewClearCmd creates the clear command with explicit dependencies.
func NewClearCmd(opener storeOpener) *cobra.Command {
	if opener == nil {
		panic("NewClearCmd: opener dependency cannot be nil")
	}

	var olderThan time.Duration

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete stored notifications",
		Long: `Delete stored notifications from the inbox.

USAGE:
    ancs-intray clear [OPTIONS]

OPTIONS:
    --older-than <d>     Only delete notifications received before the duration, e.g. 168h
    -h, --help           Show this help`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan < 0 {
				return fmt.Errorf("invalid --older-than %s: must not be negative", olderThan)
			}
			store, err := opener.Open()
			if err != nil {
				return fmt.Errorf("clear: %w", err)
			}
			defer store.Close()

			var removed int64
			if olderThan > 0 {
				removed, err = store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			} else {
				removed, err = store.Clear(cmd.Context())
			}
			if err != nil {
				return fmt.Errorf("clear: %w", err)
			}
			colors.Success(fmt.Sprintf("removed %d notifications", removed))
			return nil
		},
	}

	clearCmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only delete notifications received before the duration")

	return clearCmd
}
