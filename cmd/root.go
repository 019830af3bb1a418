package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/cristianoliveira/ancs-intray/internal/colors"
	"github.com/cristianoliveira/ancs-intray/internal/config"
	"github.com/cristianoliveira/ancs-intray/internal/logging"
	"github.com/cristianoliveira/ancs-intray/internal/version"
	"github.com/spf13/cobra"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:           "ancs-intray",
	Short:         "Collects the notifications of a paired phone into a local inbox.",
	Long:          `Collects the notifications of a paired phone into a local inbox.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.Load()
		colors.SetDebug(config.GetBool("debug", false))
		colors.SetQuiet(config.GetBool("quiet", false))
		if err := logging.InitGlobal(); err != nil {
			colors.Warning("file logging disabled:", err.Error())
		}
		return nil
	},
}

// Execute runs the root command. This is called by main.main().
func Execute() error {
	defer logging.ShutdownGlobal()
	if err := RootCmd.Execute(); err != nil {
		colors.Error(err.Error())
		return err
	}
	return nil
}

func init() {
	RootCmd.Version = version.String()

	// Hide the completion command
	RootCmd.CompletionOptions.HiddenDefaultCmd = true

	RootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != RootCmd {
			fmt.Fprint(cmd.OutOrStdout(), cmd.Long, "\n")
			return
		}
		printHelpText(cmd, cmd.OutOrStdout())
	})

	RootCmd.AddCommand(
		NewRunCmd(simulationStarter{}),
		NewConsoleCmd(simulationStarter{}),
		NewListCmd(inboxOpener{}),
		NewClearCmd(inboxOpener{}),
		NewVersionCmd(),
	)
}

func printHelpText(cmd *cobra.Command, w io.Writer) {
	commandOrder := []string{
		"run",
		"console",
		"list",
		"clear",
		"version",
	}

	var cmdLines []string
	for _, name := range commandOrder {
		var found *cobra.Command
		for _, c := range cmd.Commands() {
			if c.Name() == name {
				found = c
				break
			}
		}
		if found == nil {
			continue
		}
		cmdLines = append(cmdLines, fmt.Sprintf("    %-16s %s", found.Name(), found.Short))
	}

	fmt.Fprintf(w, `ancs-intray v%s

Collects the notifications of a paired phone into a local inbox.

USAGE:
    ancs-intray [COMMAND] [OPTIONS]

COMMANDS:
%s

OPTIONS:
    -h, --help      Show help message
`, version.String(), strings.Join(cmdLines, "\n"))
}
