// Package environment outlines the interfaces and structs needed to
// implement concrete environments with discrete actions
package environment

import (
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/godqn/timestep"
)

// Starter implements a distribution of starting states and samples
// starting states for environments
type Starter interface {
	Start() *mat.VecDense
}

// Ender determines when episodes end. If End returns true, it has
// marked the argument TimeStep as the last in its episode.
type Ender interface {
	End(*timestep.TimeStep) bool
}

// Environment implements a simulated environment with a discrete
// action set {0, 1, ..., n-1}.
//
// Step returns the next TimeStep, whether the episode has ended, and
// an error. The returned TimeStep holds the next observation and the
// reward and serves as the auxiliary info of the step. Illegal actions
// result in an *InvalidActionError.
type Environment interface {
	Reset() (timestep.TimeStep, error)
	Step(action int) (timestep.TimeStep, bool, error)
	ObservationSpec() Spec
	ActionSpec() Spec
}
