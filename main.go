package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// rootCommand returns the godqn command with all subcommands attached
func rootCommand() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:           "godqn",
		Short:         "Train deep Q-learning agents from JSON configurations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level (trace, debug, info, warn, error)")

	logger := func() (zerolog.Logger, error) {
		level, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level: %w", err)
		}
		return zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
		}).Level(level).With().Timestamp().Logger(), nil
	}

	cmd.AddCommand(trainCommand(logger))
	cmd.AddCommand(configCommand())
	cmd.AddCommand(renderCommand())
	return cmd
}
