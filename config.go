package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/samuelfneumann/godqn/experiment"
)

// configCommand returns the command which prints the default
// experiment configuration
func configCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the default experiment configuration as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := json.MarshalIndent(experiment.DefaultConfig(), "", "  ")
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(append(data, '\n'))
			return err
		},
	}
}
