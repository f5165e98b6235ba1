package deepq

import (
	"fmt"

	"github.com/samuelfneumann/godqn/cadence"
)

// LossTarget determines which action values the TD target is compared
// against in the loss
type LossTarget string

const (
	// AllActions compares the TD target, as a column, against every
	// action value predicted for a state. Action values of actions that
	// were not taken are therefore also pulled towards the TD target.
	AllActions LossTarget = "AllActions"

	// TakenAction compares the TD target only against the value of the
	// action taken in the transition, as in standard DQN.
	TakenAction LossTarget = "TakenAction"
)

// Config implements a configuration for a DeepQ agent
type Config struct {
	Gamma    float64 // Discount factor in (0, 1]
	Epsilon  float64 // Behaviour policy epsilon in [0, 1]
	Capacity int     // Replay buffer capacity
	Seed     uint64

	// SyncRule determines the episodes at which the target network is
	// synced. Its period is FitConfig.TrainEvery.
	SyncRule cadence.Kind

	// Tau is the Polyak averaging constant of target syncs. A value of 1
	// copies the online parameters.
	Tau float64

	LossTarget LossTarget

	// MaskTerminal stops transitions into terminal states from
	// bootstrapping off the target network
	MaskTerminal bool
}

// DefaultConfig returns the default DeepQ configuration
func DefaultConfig() Config {
	return Config{
		Gamma:        0.99,
		Epsilon:      0.1,
		Capacity:     10_000,
		SyncRule:     cadence.OnMultipleOf,
		Tau:          1.0,
		LossTarget:   AllActions,
		MaskTerminal: false,
	}
}

// Validate checks a Config to ensure it is a valid configuration of a
// DeepQ agent.
func (c Config) Validate() error {
	if c.Gamma <= 0 || c.Gamma > 1 {
		return fmt.Errorf("validate: gamma must be in (0, 1] \n\twant(0 < γ"+
			" <= 1) \n\thave(%v)", c.Gamma)
	}
	if c.Epsilon < 0 || c.Epsilon > 1 {
		return fmt.Errorf("validate: epsilon must be in [0, 1] \n\twant(0 "+
			"<= ε <= 1) \n\thave(%v)", c.Epsilon)
	}
	if c.Capacity <= 0 {
		return fmt.Errorf("validate: replay capacity must be positive "+
			"\n\twant(>0) \n\thave(%v)", c.Capacity)
	}
	if c.Tau <= 0 || c.Tau > 1 {
		return fmt.Errorf("validate: tau must be in (0, 1] \n\twant(0 < τ "+
			"<= 1) \n\thave(%v)", c.Tau)
	}

	switch c.SyncRule {
	case cadence.Always, cadence.OnMultipleOf, cadence.ExceptMultipleOf:
	default:
		return fmt.Errorf("validate: unknown sync rule %q", c.SyncRule)
	}

	switch c.LossTarget {
	case AllActions, TakenAction:
	default:
		return fmt.Errorf("validate: unknown loss target %q", c.LossTarget)
	}
	return nil
}

// FitConfig configures a call to DeepQ.Fit
type FitConfig struct {
	Episodes int

	// BatchSize is the number of transitions per gradient step once the
	// replay buffer holds more than BatchSize transitions
	BatchSize int

	// TrainEvery is the period of the target sync rule
	TrainEvery int

	// BatchCount is the number of gradient steps taken after each
	// episode once the replay buffer holds more than BatchSize
	// transitions
	BatchCount int
}

// DefaultFitConfig returns the default FitConfig for the given number
// of episodes
func DefaultFitConfig(episodes int) FitConfig {
	return FitConfig{
		Episodes:   episodes,
		BatchSize:  200,
		TrainEvery: 10,
		BatchCount: 1,
	}
}

// Validate checks a FitConfig to ensure it is valid
func (f FitConfig) Validate() error {
	if f.Episodes < 0 {
		return fmt.Errorf("validate: episodes must be non-negative "+
			"\n\twant(>=0) \n\thave(%v)", f.Episodes)
	}
	if f.BatchSize <= 0 {
		return fmt.Errorf("validate: batch size must be positive "+
			"\n\twant(>0) \n\thave(%v)", f.BatchSize)
	}
	if f.TrainEvery <= 0 {
		return fmt.Errorf("validate: train every must be positive "+
			"\n\twant(>0) \n\thave(%v)", f.TrainEvery)
	}
	if f.BatchCount <= 0 {
		return fmt.Errorf("validate: batch count must be positive "+
			"\n\twant(>0) \n\thave(%v)", f.BatchCount)
	}
	return nil
}
