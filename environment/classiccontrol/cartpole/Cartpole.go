// Package cartpole implements the Cartpole classic control environment
package cartpole

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	env "github.com/samuelfneumann/godqn/environment"
	ts "github.com/samuelfneumann/godqn/timestep"
)

const (
	// Physical constants
	Gravity        float64 = 9.8
	CartMass       float64 = 1.0
	PoleMass       float64 = 0.1
	HalfPoleLength float64 = 0.5  // half of pole length
	ForceMag       float64 = 10.0 // Magnification of force applied
	Dt             float64 = 0.02 // seconds between state updates

	// Bounds (+/-) on state variables
	PositionBounds float64 = 2.4
	AngleBounds    float64 = math.Pi

	// Discrete Actions
	MinDiscreteAction int = 0
	MaxDiscreteAction int = 2
	NumActions        int = MaxDiscreteAction + 1

	ObservationDims int = 4
)

// Cartpole implements the classic control environment Cartpole with
// discrete actions. In this environment, a pole is attached to a cart,
// which can move horizontally. Gravity pulls the pole downwards so that
// balancing it in an upright position is very difficult.
//
// The state features are continuous and consist of the cart's x
// position and speed, as well as the pole's angle from the positive
// y-axis and the pole's angular velocity.
//
// Actions are discrete, consisting of the direction to apply
// horizontal force to the cart:
//
//	Action		Meaning
//	  0			Apply force left
//	  1			Do nothing
//	  2			Apply force right
type Cartpole struct {
	*Balance
	lastStep ts.TimeStep
}

// New constructs a new Cartpole environment
func New(t *Balance) *Cartpole {
	return &Cartpole{Balance: t}
}

// Reset resets the environment and returns a starting state drawn from
// the environment Starter
func (c *Cartpole) Reset() (ts.TimeStep, error) {
	state := c.Start()
	if state.Len() != ObservationDims {
		return ts.TimeStep{}, fmt.Errorf("reset: invalid starting state "+
			"\n\twant(%v) \n\thave(%v)", ObservationDims, state.Len())
	}
	c.lastStep = ts.New(ts.First, 0, state, 0)
	return c.lastStep, nil
}

// Step takes one environmental step given action a and returns the next
// state as a timestep.TimeStep and a bool indicating whether or not the
// episode has ended
func (c *Cartpole) Step(a int) (ts.TimeStep, bool, error) {
	if err := env.ValidateAction(a, NumActions); err != nil {
		return ts.TimeStep{}, true, err
	}
	if c.lastStep.Last() {
		return ts.TimeStep{}, true, fmt.Errorf("step: episode has ended, " +
			"call Reset() before Step()")
	}

	// Convert action (0, 1, 2) to a direction (-1, 0, 1)
	force := float64(a-1) * ForceMag
	nextState := nextState(c.lastStep.Observation, force)

	reward := c.Reward(nextState)
	nextStep := ts.New(ts.Mid, reward, nextState, c.lastStep.Number+1)
	c.End(&nextStep)

	c.lastStep = nextStep
	return nextStep, nextStep.Last(), nil
}

// ObservationSpec returns the observation specification of the
// environment
func (c *Cartpole) ObservationSpec() env.Spec {
	shape := mat.NewVecDense(ObservationDims, nil)
	lower := mat.NewVecDense(ObservationDims, []float64{-PositionBounds,
		-math.MaxFloat64, -AngleBounds, -math.MaxFloat64})
	upper := mat.NewVecDense(ObservationDims, []float64{PositionBounds,
		math.MaxFloat64, AngleBounds, math.MaxFloat64})
	return env.NewSpec(shape, env.Observation, lower, upper, env.Continuous)
}

// ActionSpec returns the action specification of the environment
func (c *Cartpole) ActionSpec() env.Spec {
	return env.NewDiscreteActionSpec(NumActions)
}

func (c *Cartpole) String() string {
	msg := "Cartpole  |  Position: %v  | Speed: %v  |  Angle: %v" +
		"  |  Angular Velocity: %v"
	state := c.lastStep.Observation
	return fmt.Sprintf(msg, state.AtVec(0), state.AtVec(1), state.AtVec(2),
		state.AtVec(3))
}

// nextState integrates the cart-pole dynamics for one step of length
// Dt with the given horizontal force applied to the cart
func nextState(state *mat.VecDense, force float64) *mat.VecDense {
	x, xDot := state.AtVec(0), state.AtVec(1)
	th, thDot := state.AtVec(2), state.AtVec(3)

	cosTheta := math.Cos(th)
	sinTheta := math.Sin(th)
	totalMass := PoleMass + CartMass
	poleMassLength := PoleMass * HalfPoleLength

	temp := (force + poleMassLength*thDot*thDot*sinTheta) / totalMass
	thAcc := (Gravity*sinTheta - cosTheta*temp) / (HalfPoleLength *
		(4.0/3.0 - PoleMass*cosTheta*cosTheta/totalMass))
	xAcc := temp - poleMassLength*thAcc*cosTheta/totalMass

	// Euler kinematic integration
	x += Dt * xDot
	xDot += Dt * xAcc
	th += Dt * thDot
	thDot += Dt * thAcc

	return mat.NewVecDense(ObservationDims, []float64{x, xDot,
		normalizeAngle(th), thDot})
}

// normalizeAngle normalizes the pole angle to (-π, π]
func normalizeAngle(th float64) float64 {
	th = math.Mod(th+AngleBounds, 2*AngleBounds)
	if th <= 0 {
		th += 2 * AngleBounds
	}
	return th - AngleBounds
}

// DefaultStarter returns the standard Cartpole starting distribution,
// with all features uniform in [-0.05, 0.05]
func DefaultStarter(seed uint64) env.Starter {
	bound := r1.Interval{Min: -0.05, Max: 0.05}
	bounds := []r1.Interval{bound, bound, bound, bound}
	return env.NewUniformStarter(bounds, seed)
}
