package network

import (
	"fmt"

	"github.com/samuelfneumann/godqn/initwfn"
)

// Config implements a JSON serializable configuration of an MLP
type Config struct {
	HiddenSizes []int         // Layer sizes in neural net
	Biases      []bool        // Whether each layer should have a bias
	Activations []*Activation // Activation of each layer

	// Initialization algorithm for weights
	InitWFn *initwfn.InitWFn
	Seed    uint64
}

// Validate checks a Config to ensure it is a valid configuration of an
// MLP
func (c Config) Validate() error {
	if len(c.HiddenSizes) != len(c.Biases) {
		return fmt.Errorf("validate: invalid number of biases\n\twant(%v)"+
			"\n\thave(%v)", len(c.HiddenSizes), len(c.Biases))
	}
	if len(c.HiddenSizes) != len(c.Activations) {
		return fmt.Errorf("validate: invalid number of activations\n\twant"+
			"(%v)\n\thave(%v)", len(c.HiddenSizes), len(c.Activations))
	}
	if c.InitWFn == nil {
		return fmt.Errorf("validate: no weight initializer specified")
	}
	return nil
}

// Create returns the MLP described by the Config, mapping feature
// vectors of size features to outputs predictions
func (c Config) Create(features, outputs int) (*MLP, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return NewMLP(features, outputs, c.HiddenSizes, c.Biases, c.Activations,
		c.InitWFn.InitWFn(c.Seed))
}
