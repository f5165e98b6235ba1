package main

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/samuelfneumann/godqn/experiment"
)

// pngRenderer is an environment which can draw its current state
type pngRenderer interface {
	RenderPNG(w io.Writer) error
}

// renderCommand returns the command which renders an episode of
// uniform random actions in the configured environment, one PNG frame
// per step
func renderCommand() *cobra.Command {
	var (
		configFile string
		seed       uint64
		steps      int
		outDir     string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render frames of a random episode in the configured environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := experiment.DefaultConfig()
			if configFile != "" {
				var err error
				if c, err = experiment.Load(configFile); err != nil {
					return err
				}
			}

			e, err := c.Env.Create(seed)
			if err != nil {
				return err
			}
			if closer, ok := e.(io.Closer); ok {
				defer closer.Close()
			}
			r, ok := e.(pngRenderer)
			if !ok {
				return fmt.Errorf("render: %v cannot be rendered", e)
			}
			actions, err := e.ActionSpec().Actions()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}

			rng := rand.New(rand.NewSource(int64(seed)))
			step, err := e.Reset()
			if err != nil {
				return err
			}
			for i := 0; i < steps; i++ {
				file := filepath.Join(outDir, fmt.Sprintf("frame%04d.png", i))
				if err := writeFrame(r, file); err != nil {
					return err
				}
				if step.Last() {
					break
				}
				if step, _, err = e.Step(rng.Intn(actions)); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "",
		"JSON experiment configuration, defaults are used if unset")
	cmd.Flags().Uint64VarP(&seed, "seed", "s", 0, "Seed of the environment")
	cmd.Flags().IntVarP(&steps, "steps", "n", 100,
		"Maximum number of frames to render")
	cmd.Flags().StringVarP(&outDir, "out", "o", "frames",
		"Directory to write frames to")
	return cmd
}

func writeFrame(r pngRenderer, file string) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	if err := r.RenderPNG(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
