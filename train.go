package main

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/samuelfneumann/godqn/experiment"
)

// trainCommand returns the command which runs an experiment
func trainCommand(logger func() (zerolog.Logger, error)) *cobra.Command {
	var (
		configFile  string
		episodes    int
		seed        uint64
		plotFile    string
		returnsFile string
		httpAddr    string
		progress    bool
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train an agent as described by a configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger()
			if err != nil {
				return err
			}

			c := experiment.DefaultConfig()
			if configFile != "" {
				if c, err = experiment.Load(configFile); err != nil {
					return err
				}
			}

			flags := cmd.Flags()
			if flags.Changed("episodes") {
				c.Fit.Episodes = episodes
			}
			if flags.Changed("plot") {
				c.Monitor.PlotFile = plotFile
			}
			if flags.Changed("returns") {
				c.Monitor.ReturnsFile = returnsFile
			}
			if flags.Changed("http") {
				c.Monitor.HTTPAddr = httpAddr
			}

			var bar io.Writer
			if progress {
				bar = os.Stdout
				c.Monitor.Log = false
			}

			exp, err := c.Create(seed, log, bar)
			if err != nil {
				return err
			}
			_, err = exp.Run()
			return err
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "",
		"JSON experiment configuration, defaults are used if unset")
	cmd.Flags().IntVarP(&episodes, "episodes", "e", 0,
		"Number of training episodes")
	cmd.Flags().Uint64VarP(&seed, "seed", "s", 0, "Seed of the experiment")
	cmd.Flags().StringVar(&plotFile, "plot", "", "File to plot returns to")
	cmd.Flags().StringVar(&returnsFile, "returns", "",
		"File to save returns to")
	cmd.Flags().StringVar(&httpAddr, "http", "",
		"Address to serve returns on, e.g. :8080")
	cmd.Flags().BoolVarP(&progress, "progress", "p", false,
		"Draw a progress bar instead of logging each episode")
	return cmd
}
