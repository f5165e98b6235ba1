// Package gridworld implements 2D gridworld environments
package gridworld

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/godqn/environment"
	"github.com/samuelfneumann/godqn/timestep"
)

// Actions in a GridWorld
const (
	Left int = iota
	Right
	Up
	Down

	NumActions int = 4
)

// maxStartAttempts bounds the number of times a starting position is
// resampled when the Starter returns a goal cell
const maxStartAttempts = 100

// GridWorld represents a gridworld environment
//
// A gridworld is represented as a flattened matrix, but in this
// implementation only the matrix dimensions and current agent position
// are tracked. Observations are one-hot encodings of the agent's
// position, indexed by y*cols + x.
//
// The Starter of a GridWorld returns (x, y) coordinate vectors.
type GridWorld struct {
	*Goal
	environment.Starter
	r, c        int
	x, y        int
	limit       *environment.StepLimit
	currentStep timestep.TimeStep
}

// New creates a new gridworld with r rows and c columns, the goal task
// t, and starting positions drawn from s. Episodes are cut off after
// episodeSteps steps.
func New(r, c int, t *Goal, s environment.Starter,
	episodeSteps int) (*GridWorld, error) {
	if r < 1 || c < 1 {
		return nil, fmt.Errorf("new: gridworld must have positive dimensions"+
			" \n\twant(>0, >0) \n\thave(%v, %v)", r, c)
	}
	if t.r != r || t.c != c {
		return nil, fmt.Errorf("new: goal dimensions do not match gridworld"+
			" \n\twant(%v, %v) \n\thave(%v, %v)", r, c, t.r, t.c)
	}
	if episodeSteps < 1 {
		return nil, fmt.Errorf("new: episodes must have a positive step "+
			"limit \n\twant(>0) \n\thave(%v)", episodeSteps)
	}
	return &GridWorld{
		Goal:    t,
		Starter: s,
		r:       r,
		c:       c,
		limit:   environment.NewStepLimit(episodeSteps),
	}, nil
}

// Dims gets the rows and columns of the GridWorld
func (g *GridWorld) Dims() (r, c int) {
	return g.r, g.c
}

// At checks the value at position (i, j) in the gridworld. A value of 1.0
// indicates that the agent is at position (i, j).
func (g *GridWorld) At(i, j int) float64 {
	if i == g.y && j == g.x {
		return 1.0
	}
	return 0.0
}

// Reset resets the environment to a starting position drawn from the
// Starter
func (g *GridWorld) Reset() (timestep.TimeStep, error) {
	for i := 0; i < maxStartAttempts; i++ {
		start := g.Start()
		if start.Len() != 2 {
			return timestep.TimeStep{}, fmt.Errorf("reset: starting "+
				"positions must be (x, y) coordinates \n\twant(2) "+
				"\n\thave(%v)", start.Len())
		}
		x, y := int(start.AtVec(0)), int(start.AtVec(1))
		if err := g.validCoordinates(x, y); err != nil {
			return timestep.TimeStep{}, fmt.Errorf("reset: %v", err)
		}
		if g.AtGoal(x, y) {
			continue
		}

		g.x, g.y = x, y
		g.currentStep = timestep.New(timestep.First, 0, g.observation(), 0)
		return g.currentStep, nil
	}
	return timestep.TimeStep{}, fmt.Errorf("reset: could not sample a " +
		"non-goal starting position")
}

// Step takes one environmental step given action a and returns the next
// timestep and whether or not the episode has ended
func (g *GridWorld) Step(a int) (timestep.TimeStep, bool, error) {
	if err := environment.ValidateAction(a, NumActions); err != nil {
		return timestep.TimeStep{}, true, err
	}
	if g.currentStep.Last() {
		return timestep.TimeStep{}, true, fmt.Errorf("step: episode has " +
			"ended, call Reset() before Step()")
	}

	g.x, g.y = g.move(g.x, g.y, a)

	step := timestep.New(timestep.Mid, g.Reward(g.x, g.y), g.observation(),
		g.currentStep.Number+1)
	if g.AtGoal(g.x, g.y) {
		step.SetEnd(timestep.TerminalStateReached)
	} else {
		g.limit.End(&step)
	}

	g.currentStep = step
	return step, step.Last(), nil
}

// ObservationSpec returns the observation specification of the
// environment
func (g *GridWorld) ObservationSpec() environment.Spec {
	features := g.r * g.c
	upper := make([]float64, features)
	for i := range upper {
		upper[i] = 1.0
	}
	return environment.NewSpec(mat.NewVecDense(features, nil),
		environment.Observation, mat.NewVecDense(features, nil),
		mat.NewVecDense(features, upper), environment.Discrete)
}

// ActionSpec returns the action specification of the environment
func (g *GridWorld) ActionSpec() environment.Spec {
	return environment.NewDiscreteActionSpec(NumActions)
}

// Coordinates returns the agent's current (x, y) position
func (g *GridWorld) Coordinates() (int, int) {
	return g.x, g.y
}

func (g *GridWorld) String() string {
	str := "GridWorld | At: (%d, %d)  |   Goal: %v  |  Bounds: (%d, %d)"
	return fmt.Sprintf(str, g.x, g.y, g.Goal, g.r, g.c)
}

// move returns the position reached by taking action a at (x, y).
// Moves into a wall leave the position unchanged.
func (g *GridWorld) move(x, y, a int) (int, int) {
	switch a {
	case Left:
		if x-1 >= 0 {
			x--
		}
	case Right:
		if x+1 < g.c {
			x++
		}
	case Up:
		if y+1 < g.r {
			y++
		}
	case Down:
		if y-1 >= 0 {
			y--
		}
	}
	return x, y
}

func (g *GridWorld) observation() *mat.VecDense {
	obs := mat.NewVecDense(g.r*g.c, nil)
	obs.SetVec(cToInd(g.x, g.y, g.c), 1.0)
	return obs
}

func (g *GridWorld) validCoordinates(x, y int) error {
	if x < 0 || x >= g.c || y < 0 || y >= g.r {
		return fmt.Errorf("coordinates (%d, %d) outside of bounds (%d, %d)",
			x, y, g.c, g.r)
	}
	return nil
}

func cToInd(x, y, c int) int {
	return y*c + x
}
