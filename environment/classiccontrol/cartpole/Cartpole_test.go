package cartpole

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	env "github.com/samuelfneumann/godqn/environment"
	ts "github.com/samuelfneumann/godqn/timestep"
)

func newCartpole(t *testing.T, steps int) *Cartpole {
	task, err := NewBalance(DefaultStarter(1), steps, FailAngle)
	require.NoError(t, err)
	return New(task)
}

func TestEpisodeEnds(t *testing.T) {
	c := newCartpole(t, 500)
	step, err := c.Reset()
	require.NoError(t, err)
	require.True(t, step.First())

	// Pushing in a single direction always drops the pole
	ret := 0.0
	done := false
	for i := 0; i < 500 && !done; i++ {
		step, done, err = c.Step(2)
		require.NoError(t, err)
		ret += step.Reward
	}
	require.True(t, done)
	require.Equal(t, ts.TerminalStateReached, step.EndType())
	require.Equal(t, -1.0, step.Reward)
	require.Less(t, step.Number, 500)
}

func TestStepLimit(t *testing.T) {
	c := newCartpole(t, 3)
	_, err := c.Reset()
	require.NoError(t, err)

	var step ts.TimeStep
	var done bool
	for i := 0; i < 3; i++ {
		step, done, err = c.Step(1)
		require.NoError(t, err)
	}
	require.True(t, done)
	require.Equal(t, ts.Timeout, step.EndType())
}

func TestInvalidAction(t *testing.T) {
	c := newCartpole(t, 10)
	_, err := c.Reset()
	require.NoError(t, err)
	_, _, err = c.Step(3)
	require.True(t, env.IsInvalidAction(err))
}

func TestNormalizeAngle(t *testing.T) {
	require.InDelta(t, 0.5, normalizeAngle(0.5), 1e-12)
	require.InDelta(t, -math.Pi+0.5, normalizeAngle(math.Pi+0.5), 1e-12)
	require.InDelta(t, math.Pi-0.5, normalizeAngle(-math.Pi-0.5), 1e-12)
	require.InDelta(t, math.Pi, normalizeAngle(math.Pi), 1e-12)
}
