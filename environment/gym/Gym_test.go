//go:build gogym

package gym

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiscreteEnvironments(t *testing.T) {
	for _, name := range []string{"CartPole-v0", "MountainCar-v0",
		"Acrobot-v1"} {
		e, err := New(name, 0)
		require.NoError(t, err, name)

		step, err := e.Reset()
		require.NoError(t, err)
		require.True(t, step.First())
		require.Equal(t, e.ObservationSpec().Features(),
			step.Observation.Len())

		actions, err := e.ActionSpec().Actions()
		require.NoError(t, err)
		step, _, err = e.Step(actions - 1)
		require.NoError(t, err)
		require.Equal(t, 1, step.Number)

		_, _, err = e.Step(actions)
		require.Error(t, err)
		require.NoError(t, e.Close())
	}
}

func TestContinuousRejected(t *testing.T) {
	_, err := New("Pendulum-v0", 0)
	require.Error(t, err)
}
