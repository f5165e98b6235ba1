package gridworld

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/godqn/environment"
	"github.com/samuelfneumann/godqn/timestep"
)

func newGrid(t *testing.T, r, c, steps int) *GridWorld {
	goal, err := NewGoal([]int{c - 1}, []int{r - 1}, r, c, -0.1, 1.0)
	require.NoError(t, err)
	start, err := NewSingleStart(0, 0, r, c)
	require.NoError(t, err)
	g, err := New(r, c, goal, start, steps)
	require.NoError(t, err)
	return g
}

func TestWalls(t *testing.T) {
	g := newGrid(t, 3, 3, 100)
	step, err := g.Reset()
	require.NoError(t, err)
	require.Equal(t, 1.0, step.Observation.AtVec(0))

	step, done, err := g.Step(Left)
	require.NoError(t, err)
	require.False(t, done)
	require.Equal(t, -0.1, step.Reward)
	x, y := g.Coordinates()
	require.Equal(t, [2]int{0, 0}, [2]int{x, y})

	_, _, err = g.Step(Down)
	require.NoError(t, err)
	x, y = g.Coordinates()
	require.Equal(t, [2]int{0, 0}, [2]int{x, y})
}

func TestReachGoal(t *testing.T) {
	g := newGrid(t, 2, 2, 100)
	_, err := g.Reset()
	require.NoError(t, err)

	_, done, err := g.Step(Right)
	require.NoError(t, err)
	require.False(t, done)

	step, done, err := g.Step(Up)
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, 1.0, step.Reward)
	require.Equal(t, timestep.TerminalStateReached, step.EndType())
	require.Equal(t, 1.0, step.Observation.AtVec(3))
	require.Equal(t, 1.0, g.At(1, 1))
}

func TestTimeout(t *testing.T) {
	g := newGrid(t, 2, 2, 2)
	_, err := g.Reset()
	require.NoError(t, err)

	_, done, err := g.Step(Left)
	require.NoError(t, err)
	require.False(t, done)
	step, done, err := g.Step(Left)
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, timestep.Timeout, step.EndType())
}

func TestInvalidAction(t *testing.T) {
	g := newGrid(t, 2, 2, 10)
	_, err := g.Reset()
	require.NoError(t, err)
	_, _, err = g.Step(NumActions)
	require.True(t, environment.IsInvalidAction(err))
}

func TestRandomStartAvoidsGoal(t *testing.T) {
	goal, err := NewGoal([]int{0}, []int{0}, 2, 2, 0, 1)
	require.NoError(t, err)
	g, err := New(2, 2, goal, NewRandomStart(2, 2, 7), 10)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		_, err := g.Reset()
		require.NoError(t, err)
		x, y := g.Coordinates()
		require.False(t, goal.AtGoal(x, y))
	}
}

func TestNewGoalErrors(t *testing.T) {
	_, err := NewGoal([]int{0, 1}, []int{0}, 2, 2, 0, 1)
	require.Error(t, err)
	_, err = NewGoal([]int{2}, []int{0}, 2, 2, 0, 1)
	require.Error(t, err)
	_, err = NewSingleStart(0, 3, 2, 2)
	require.Error(t, err)
}
