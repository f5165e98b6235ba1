// Package experiment implements functionality for configuring and
// running a deep Q-learning experiment from a single JSON file.
package experiment

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/samuelfneumann/godqn/agent/deepq"
	"github.com/samuelfneumann/godqn/cadence"
	"github.com/samuelfneumann/godqn/environment/envconfig"
	"github.com/samuelfneumann/godqn/initwfn"
	"github.com/samuelfneumann/godqn/loss"
	"github.com/samuelfneumann/godqn/network"
	"github.com/samuelfneumann/godqn/solver"
)

// Config represents a configuration of an experiment
type Config struct {
	Env     envconfig.Config
	Network network.Config
	Solver  *solver.Solver
	Loss    loss.Config
	Agent   deepq.Config
	Fit     deepq.FitConfig
	Monitor MonitorConfig
}

// MonitorConfig determines which monitoring sinks are attached to an
// experiment. Sinks with empty filenames or addresses are not created.
type MonitorConfig struct {
	PlotFile string `json:",omitempty"`

	// PlotRule selects the episodes on which the plot is rendered,
	// every episode not a multiple of 10 if unset
	PlotRule *cadence.Rule `json:",omitempty"`

	// ReturnsFile is the file the returns are gob encoded to once the
	// experiment finishes
	ReturnsFile string `json:",omitempty"`

	HTTPAddr string `json:",omitempty"`
	Log      bool   // Log each episode
}

// DefaultConfig returns a configuration which trains a small MLP on a
// 10 state Chain
func DefaultConfig() Config {
	init, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		panic(fmt.Sprintf("defaultConfig: %v", err))
	}
	adam, err := solver.NewDefaultAdam(1e-3, 1)
	if err != nil {
		panic(fmt.Sprintf("defaultConfig: %v", err))
	}

	return Config{
		Env: envconfig.DefaultConfig(),
		Network: network.Config{
			HiddenSizes: []int{32},
			Biases:      []bool{true},
			Activations: []*network.Activation{network.ReLU()},
			InitWFn:     init,
		},
		Solver: adam,
		Loss:   loss.Config{Type: loss.MSE},
		Agent:  deepq.DefaultConfig(),
		Fit:    deepq.DefaultFitConfig(200),
		Monitor: MonitorConfig{Log: true},
	}
}

// Validate checks that the Config describes a valid experiment
func (c Config) Validate() error {
	if err := c.Env.Validate(); err != nil {
		return fmt.Errorf("validate: env: %w", err)
	}
	if err := c.Network.Validate(); err != nil {
		return fmt.Errorf("validate: network: %w", err)
	}
	if c.Solver == nil {
		return fmt.Errorf("validate: no solver specified")
	}
	if _, err := c.Loss.Create(); err != nil {
		return fmt.Errorf("validate: loss: %w", err)
	}
	if err := c.Agent.Validate(); err != nil {
		return fmt.Errorf("validate: agent: %w", err)
	}
	if err := c.Fit.Validate(); err != nil {
		return fmt.Errorf("validate: fit: %w", err)
	}
	if _, err := c.Monitor.plotRule(); err != nil {
		return fmt.Errorf("validate: plot rule: %w", err)
	}
	return nil
}

func (m MonitorConfig) plotRule() (cadence.Rule, error) {
	if m.PlotRule == nil {
		return cadence.NewExceptMultipleOf(10)
	}
	return *m.PlotRule, m.PlotRule.Validate()
}

// Load reads and validates the Config stored as JSON in filename
func Load(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("load: %w", err)
	}

	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("load: could not decode %v: %w",
			filename, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("load: %w", err)
	}
	return c, nil
}
