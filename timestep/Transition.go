package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Transition is one (s, a, r, s', done) experience tuple. Transitions
// are created with NewTransition and are never modified afterwards;
// both state vectors are private copies owned by the Transition.
type Transition struct {
	State     *mat.VecDense
	Action    int
	Reward    float64
	NextState *mat.VecDense
	Terminal  bool
}

// NewTransition returns a new Transition holding copies of state and
// nextState
func NewTransition(state *mat.VecDense, action int, reward float64,
	nextState *mat.VecDense, terminal bool) Transition {
	return Transition{
		State:     mat.VecDenseCopyOf(state),
		Action:    action,
		Reward:    reward,
		NextState: mat.VecDenseCopyOf(nextState),
		Terminal:  terminal,
	}
}

// Features returns the length of the state vectors
func (t Transition) Features() int {
	return t.State.Len()
}

func (t Transition) String() string {
	return fmt.Sprintf("Transition | Action: %v  |  Reward: %.2f  |  "+
		"Terminal: %v", t.Action, t.Reward, t.Terminal)
}
