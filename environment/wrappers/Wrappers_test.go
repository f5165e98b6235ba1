package wrappers

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/godqn/environment/chain"
	"github.com/samuelfneumann/godqn/environment/gridworld"
)

func ones(t *testing.T, v *mat.VecDense) int {
	n := 0
	for i := 0; i < v.Len(); i++ {
		if v.AtVec(i) == 1.0 {
			n++
		} else {
			require.Equal(t, 0.0, v.AtVec(i))
		}
	}
	return n
}

func TestTileCoderEncode(t *testing.T) {
	coder, err := NewTileCoder(3, []float64{0, -1}, []float64{1, 1},
		[]int{4, 2}, 1)
	require.NoError(t, err)
	require.Equal(t, 3*4*2, coder.VecLength())
	require.Equal(t, 2, coder.Dims())

	a := coder.Encode(mat.NewVecDense(2, []float64{0.3, 0.2}))
	require.Equal(t, coder.VecLength(), a.Len())
	require.Equal(t, 3, ones(t, a))

	// Encoding is deterministic
	require.True(t, mat.Equal(a, coder.Encode(mat.NewVecDense(2,
		[]float64{0.3, 0.2}))))

	// Values outside the bounds are clipped to the edge tiles
	far := coder.Encode(mat.NewVecDense(2, []float64{100, 100}))
	require.Equal(t, 3, ones(t, far))
}

func TestTileCoderDistinctTiles(t *testing.T) {
	coder, err := NewTileCoder(1, []float64{0}, []float64{1}, []int{4}, 7)
	require.NoError(t, err)

	low := coder.Encode(mat.NewVecDense(1, []float64{0.05}))
	high := coder.Encode(mat.NewVecDense(1, []float64{0.95}))
	require.Equal(t, 1.0, low.AtVec(0))
	require.Equal(t, 1.0, high.AtVec(3))
}

func TestTileCoderMixedBins(t *testing.T) {
	coder, err := NewTileCoder(1, []float64{0, 0, 0}, []float64{1, 1, 1},
		[]int{2, 3, 4}, 3)
	require.NoError(t, err)

	// Every corner of the unit cube lands in a different tile
	seen := make(map[int]bool)
	for _, x := range []float64{0.01, 0.99} {
		for _, y := range []float64{0.01, 0.99} {
			for _, z := range []float64{0.01, 0.99} {
				v := coder.Encode(mat.NewVecDense(3, []float64{x, y, z}))
				idx := floats.MaxIdx(v.RawVector().Data)
				require.False(t, seen[idx])
				seen[idx] = true
			}
		}
	}
}

func TestNewTileCoderErrors(t *testing.T) {
	tests := map[string]struct {
		tilings  int
		min, max []float64
		bins     []int
	}{
		"no tilings": {0, []float64{0}, []float64{1}, []int{2}},
		"lengths":    {1, []float64{0, 0}, []float64{1}, []int{2}},
		"no bins":    {1, []float64{0}, []float64{1}, []int{0}},
		"empty":      {1, []float64{1}, []float64{1}, []int{2}},
		"inverted":   {1, []float64{1}, []float64{0}, []int{2}},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewTileCoder(test.tilings, test.min, test.max,
				test.bins, 1)
			require.Error(t, err)
		})
	}
}

func TestTileCoding(t *testing.T) {
	c, err := chain.New(3, 10)
	require.NoError(t, err)

	e, err := NewTileCoding(c, [][]int{{2, 2, 2}, {3, 3, 3}}, nil, nil, 1)
	require.NoError(t, err)
	require.Equal(t, 8+27, e.ObservationSpec().Features())

	actions, err := e.ActionSpec().Actions()
	require.NoError(t, err)
	require.Equal(t, chain.NumActions, actions)

	step, err := e.Reset()
	require.NoError(t, err)
	require.Equal(t, 35, step.Observation.Len())
	require.Equal(t, 2, ones(t, step.Observation))

	step, _, err = e.Step(chain.Right)
	require.NoError(t, err)
	require.Equal(t, 35, step.Observation.Len())
	require.Equal(t, 2, ones(t, step.Observation))
	require.NoError(t, e.Close())
}

func TestTileCodingErrors(t *testing.T) {
	c, err := chain.New(3, 10)
	require.NoError(t, err)

	_, err = NewTileCoding(c, nil, nil, nil, 1)
	require.Error(t, err)

	_, err = NewTileCoding(c, [][]int{{2}}, []float64{0}, []float64{1}, 1)
	require.Error(t, err)

	_, err = NewTileCoding(c, [][]int{{2, 2}}, nil, nil, 1)
	require.Error(t, err)
}

func TestXY(t *testing.T) {
	goal, err := gridworld.NewGoal([]int{3}, []int{2}, 3, 4, -0.1, 1.0)
	require.NoError(t, err)
	start, err := gridworld.NewSingleStart(0, 0, 3, 4)
	require.NoError(t, err)
	g, err := gridworld.New(3, 4, goal, start, 20)
	require.NoError(t, err)

	e := NewXY(g)
	require.Equal(t, 2, e.ObservationSpec().Features())
	require.Equal(t, []float64{3, 2},
		e.ObservationSpec().UpperBound.RawVector().Data)

	step, err := e.Reset()
	require.NoError(t, err)
	require.Equal(t, []float64{0, 0}, step.Observation.RawVector().Data)

	moves := []struct {
		action int
		x, y   float64
	}{
		{gridworld.Right, 1, 0},
		{gridworld.Up, 1, 1},
		{gridworld.Right, 2, 1},
		{gridworld.Left, 1, 1},
		{gridworld.Down, 1, 0},
	}
	for _, m := range moves {
		step, done, err := e.Step(m.action)
		require.NoError(t, err)
		require.False(t, done)
		require.Equal(t, []float64{m.x, m.y},
			step.Observation.RawVector().Data)
	}

	_, err = e.getObs(mat.NewVecDense(12, nil))
	require.Error(t, err)
}
