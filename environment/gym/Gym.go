//go:build gogym

// Package gym provides access to OpenAI Gym environments with discrete
// action sets through the GoGym bindings, found at
// https://github.com/samuelfneumann/GoGym.
//
// The package requires cgo and a Python installation with gym, and so
// is only built with the gogym build tag.
package gym

import (
	"fmt"

	"github.com/samuelfneumann/gogym"
	"gonum.org/v1/gonum/mat"

	env "github.com/samuelfneumann/godqn/environment"
	ts "github.com/samuelfneumann/godqn/timestep"
)

// GymEnv implements access to an OpenAI Gym environment using GoGym
type GymEnv struct {
	gogym.Environment
	actions     int
	currentStep ts.TimeStep
}

// New returns a new GymEnv with the given name, which must be a legal
// name from the OpenAI Gym suite and must have a discrete action space.
func New(name string, seed uint64) (*GymEnv, error) {
	goGymEnv, err := gogym.Make(name)
	if err != nil {
		return nil, fmt.Errorf("new: could not create environment: %w", err)
	}
	goGymEnv.Seed(int(seed))

	space, ok := goGymEnv.ActionSpace().(*gogym.DiscreteSpace)
	if !ok {
		goGymEnv.Close()
		return nil, fmt.Errorf("new: environment %v does not have discrete "+
			"actions", name)
	}
	actions := int(space.High()[0].AtVec(0)) + 1

	return &GymEnv{Environment: goGymEnv, actions: actions}, nil
}

// Reset resets the environment to some starting state
func (g *GymEnv) Reset() (ts.TimeStep, error) {
	obs, err := g.Environment.Reset()
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: could not reset "+
			"environment: %w", err)
	}
	g.currentStep = ts.New(ts.First, 0, obs, 0)
	return g.currentStep, nil
}

// Step takes a single environmental step
func (g *GymEnv) Step(a int) (ts.TimeStep, bool, error) {
	if err := env.ValidateAction(a, g.actions); err != nil {
		return ts.TimeStep{}, true, err
	}

	action := mat.NewVecDense(1, []float64{float64(a)})
	obs, reward, done, err := g.Environment.Step(action)
	if err != nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: could not step "+
			"GoGym environment: %w", err)
	}

	t := ts.New(ts.Mid, reward, obs, g.currentStep.Number+1)
	if done {
		t.SetEnd(ts.TerminalStateReached)
	}
	g.currentStep = t
	return t, done, nil
}

// ObservationSpec returns the observation spec of the environment
func (g *GymEnv) ObservationSpec() env.Spec {
	space := g.ObservationSpace()
	low := space.Low()[0]
	high := space.High()[0]
	shape := mat.NewVecDense(low.Len(), nil)

	cardinality := env.Continuous
	if _, ok := space.(*gogym.DiscreteSpace); ok {
		cardinality = env.Discrete
	}
	return env.NewSpec(shape, env.Observation, low, high, cardinality)
}

// ActionSpec returns the action specification of the environment
func (g *GymEnv) ActionSpec() env.Spec {
	return env.NewDiscreteActionSpec(g.actions)
}

// Close performs resource cleanup after the environment is no longer
// needed
func (g *GymEnv) Close() error {
	g.Environment.Close()
	return nil
}
