// Package chain implements a one-dimensional chain walk. The agent
// starts at the left end of a chain of states and must walk to the
// right end, which is terminal.
//
// Observations are one-hot encodings of the agent's position. Actions
// are discrete:
//
//	Action	Meaning
//	  0		Move left
//	  1		Move right
//
// Moving left in the leftmost state leaves the agent in place. Each
// step yields StepReward, except the step reaching the rightmost state
// which yields GoalReward and ends the episode. Episodes are also cut
// off after a step limit.
package chain

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	env "github.com/samuelfneumann/godqn/environment"
	ts "github.com/samuelfneumann/godqn/timestep"
)

const (
	Left int = iota
	Right

	NumActions int = 2
)

// Default rewards
const (
	GoalReward float64 = 1.0
	StepReward float64 = 0.0
)

// Chain implements the chain walk environment
type Chain struct {
	length      int
	position    int
	goalReward  float64
	stepReward  float64
	limit       *env.StepLimit
	currentStep ts.TimeStep
}

// New returns a new Chain with length states and default rewards.
// Episodes are cut off after episodeSteps steps.
func New(length, episodeSteps int) (*Chain, error) {
	return NewWithRewards(length, episodeSteps, GoalReward, StepReward)
}

// NewWithRewards returns a new Chain with the given goal and per-step
// rewards
func NewWithRewards(length, episodeSteps int, goalReward,
	stepReward float64) (*Chain, error) {
	if length < 2 {
		return nil, fmt.Errorf("new: chain must have at least 2 states "+
			"\n\twant(>=2) \n\thave(%v)", length)
	}
	if episodeSteps < 1 {
		return nil, fmt.Errorf("new: episodes must have a positive step "+
			"limit \n\twant(>0) \n\thave(%v)", episodeSteps)
	}
	c := &Chain{
		length:     length,
		goalReward: goalReward,
		stepReward: stepReward,
		limit:      env.NewStepLimit(episodeSteps),
	}
	return c, nil
}

// Reset resets the environment to the leftmost state
func (c *Chain) Reset() (ts.TimeStep, error) {
	c.position = 0
	c.currentStep = ts.New(ts.First, 0, c.observation(), 0)
	return c.currentStep, nil
}

// Step takes one environmental step given action a and returns the next
// timestep and whether or not the episode has ended
func (c *Chain) Step(a int) (ts.TimeStep, bool, error) {
	if err := env.ValidateAction(a, NumActions); err != nil {
		return ts.TimeStep{}, true, err
	}
	if c.currentStep.Last() {
		return ts.TimeStep{}, true, fmt.Errorf("step: episode has ended, " +
			"call Reset() before Step()")
	}

	switch a {
	case Left:
		if c.position > 0 {
			c.position--
		}
	case Right:
		c.position++
	}

	reward := c.stepReward
	next := ts.New(ts.Mid, reward, c.observation(), c.currentStep.Number+1)
	if c.position == c.length-1 {
		next.Reward = c.goalReward
		next.SetEnd(ts.TerminalStateReached)
	} else {
		c.limit.End(&next)
	}

	c.currentStep = next
	return next, next.Last(), nil
}

// ObservationSpec returns the observation specification of the
// environment
func (c *Chain) ObservationSpec() env.Spec {
	shape := mat.NewVecDense(c.length, nil)
	lower := mat.NewVecDense(c.length, nil)
	upper := mat.NewVecDense(c.length, nil)
	for i := 0; i < c.length; i++ {
		upper.SetVec(i, 1.0)
	}
	return env.NewSpec(shape, env.Observation, lower, upper, env.Discrete)
}

// ActionSpec returns the action specification of the environment
func (c *Chain) ActionSpec() env.Spec {
	return env.NewDiscreteActionSpec(NumActions)
}

// Position returns the index of the agent's current state
func (c *Chain) Position() int {
	return c.position
}

func (c *Chain) String() string {
	return fmt.Sprintf("Chain | Position: %v  |  Length: %v", c.position,
		c.length)
}

func (c *Chain) observation() *mat.VecDense {
	obs := mat.NewVecDense(c.length, nil)
	obs.SetVec(c.position, 1.0)
	return obs
}
