package cartpole

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	env "github.com/samuelfneumann/godqn/environment"
	ts "github.com/samuelfneumann/godqn/timestep"
)

const (
	FailAngle float64 = 12 * 2 * math.Pi / 360
)

// Balance implements the classic control Cartpole Balance task. In this
// Task, the goal of the agent is to balance the pole on the cart in
// an upright position for as long as possible.
//
// The rewards are +1 for every timestep and -1 when the pole has fallen
// below the angle threshold.
//
// Episodes end after a step limit, after the pole has fallen below the
// angle threshold, or after the cart leaves the track.
type Balance struct {
	env.Starter
	stepLimiter  *env.StepLimit
	stateLimiter *env.IntervalLimit
	failAngle    float64
}

// NewBalance creates and returns a new Balance task
func NewBalance(s env.Starter, episodeSteps int, failAngle float64) (*Balance,
	error) {
	legal := []r1.Interval{
		{Min: -PositionBounds, Max: PositionBounds},
		{Min: -failAngle, Max: failAngle},
	}
	stateLimiter, err := env.NewIntervalLimit(legal, []int{0, 2},
		ts.TerminalStateReached)
	if err != nil {
		return nil, err
	}
	return &Balance{
		Starter:      s,
		stepLimiter:  env.NewStepLimit(episodeSteps),
		stateLimiter: stateLimiter,
		failAngle:    failAngle,
	}, nil
}

// End checks if a TimeStep is the last in an episode. If so, it adjusts
// the TimeStep's StepType to timestep.Last and returns true.
func (b *Balance) End(t *ts.TimeStep) bool {
	if b.stateLimiter.End(t) {
		return true
	}
	return b.stepLimiter.End(t)
}

// Reward returns the reward for transitioning to nextState
func (b *Balance) Reward(nextState *mat.VecDense) float64 {
	if math.Abs(nextState.AtVec(2)) < b.failAngle {
		return 1.0
	}
	return -1.0
}
