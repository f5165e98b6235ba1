// Package maze implements maze environments using GoMaze
package maze

import (
	"fmt"

	"github.com/samuelfneumann/gomaze"
	"gonum.org/v1/gonum/mat"

	env "github.com/samuelfneumann/godqn/environment"
	ts "github.com/samuelfneumann/godqn/timestep"
)

// Actions in a Maze
const (
	North int = iota
	South
	West
	East

	NumActions int = gomaze.Actions
)

// Rewards in a Maze
const (
	TimeStepReward float64 = -1.0
	GoalReward     float64 = 0.0
)

// Algorithm names a maze generation algorithm
type Algorithm string

const (
	AldousBroder Algorithm = "AldousBroder"
	Backtracking Algorithm = "Backtracking"
	BinaryTree   Algorithm = "BinaryTree"
	Iterative    Algorithm = "Iterative"
	Wilson       Algorithm = "Wilson"
)

// NewIniter returns the GoMaze Initer which generates mazes with the
// algorithm a
func NewIniter(a Algorithm, seed int64) (gomaze.Initer, error) {
	switch a {
	case AldousBroder:
		return gomaze.NewAldousBroder(seed), nil
	case Backtracking:
		return gomaze.NewBacktracking(seed), nil
	case BinaryTree:
		return gomaze.NewBinaryTree(seed), nil
	case Iterative:
		return gomaze.NewIterative(seed), nil
	case Wilson:
		return gomaze.NewWilson(seed), nil
	}
	return nil, fmt.Errorf("newIniter: no such algorithm %q", a)
}

// Maze is a perfect maze with the agent starting in the top left cell
// and the goal in the bottom right cell. Each step yields
// TimeStepReward, and the step reaching the goal yields GoalReward and
// ends the episode.
//
// Observations are either the agent's (col, row) position or a one-hot
// encoding of its cell, indexed by row*cols + col.
type Maze struct {
	maze        *gomaze.Maze
	rows, cols  int
	oneHot      bool
	limit       *env.StepLimit
	currentStep ts.TimeStep
}

// New returns a new Maze with r rows and c columns generated by init.
// Episodes are cut off after episodeSteps steps.
func New(r, c int, init gomaze.Initer, oneHot bool,
	episodeSteps int) (*Maze, error) {
	if r < 1 || c < 1 || r*c < 2 {
		return nil, fmt.Errorf("new: maze must have at least 2 cells "+
			"\n\twant(>=2) \n\thave(%v ⨉ %v)", r, c)
	}
	if init == nil {
		return nil, fmt.Errorf("new: no maze generation algorithm given")
	}
	if episodeSteps < 1 {
		return nil, fmt.Errorf("new: episodes must have a positive step "+
			"limit \n\twant(>0) \n\thave(%v)", episodeSteps)
	}

	// Negative positions select the default start and goal cells
	m, err := gomaze.NewMaze(r, c, -1, -1, -1, -1, init, oneHot)
	if err != nil {
		return nil, fmt.Errorf("new: could not create maze: %w", err)
	}

	return &Maze{
		maze:   m,
		rows:   r,
		cols:   c,
		oneHot: oneHot,
		limit:  env.NewStepLimit(episodeSteps),
	}, nil
}

// Reset resets the environment to the starting cell
func (m *Maze) Reset() (ts.TimeStep, error) {
	obs := m.maze.Reset()
	m.currentStep = ts.New(ts.First, 0, mat.NewVecDense(len(obs), obs), 0)
	return m.currentStep, nil
}

// Step takes one environmental step given action a and returns the next
// timestep and whether or not the episode has ended
func (m *Maze) Step(a int) (ts.TimeStep, bool, error) {
	if err := env.ValidateAction(a, NumActions); err != nil {
		return ts.TimeStep{}, true, err
	}
	if m.currentStep.Last() {
		return ts.TimeStep{}, true, fmt.Errorf("step: episode has " +
			"ended, call Reset() before Step()")
	}

	obs, _, atGoal, err := m.maze.Step(a)
	if err != nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: %w", err)
	}

	reward := TimeStepReward
	if atGoal {
		reward = GoalReward
	}
	step := ts.New(ts.Mid, reward, mat.NewVecDense(len(obs), obs),
		m.currentStep.Number+1)
	if atGoal {
		step.SetEnd(ts.TerminalStateReached)
	} else {
		m.limit.End(&step)
	}

	m.currentStep = step
	return step, step.Last(), nil
}

// Dims returns the number of rows and columns in the maze
func (m *Maze) Dims() (r, c int) {
	return m.rows, m.cols
}

// ObservationSpec returns the observation specification of the
// environment
func (m *Maze) ObservationSpec() env.Spec {
	if m.oneHot {
		n := m.rows * m.cols
		upper := make([]float64, n)
		for i := range upper {
			upper[i] = 1.0
		}
		return env.NewSpec(mat.NewVecDense(n, nil), env.Observation,
			mat.NewVecDense(n, nil), mat.NewVecDense(n, upper), env.Discrete)
	}

	upper := []float64{float64(m.cols - 1), float64(m.rows - 1)}
	return env.NewSpec(mat.NewVecDense(2, nil), env.Observation,
		mat.NewVecDense(2, nil), mat.NewVecDense(2, upper), env.Discrete)
}

// ActionSpec returns the action specification of the environment
func (m *Maze) ActionSpec() env.Spec {
	return env.NewDiscreteActionSpec(NumActions)
}

func (m *Maze) String() string {
	return fmt.Sprintf("Maze | %v ⨉ %v\n%v", m.rows, m.cols, m.maze)
}
