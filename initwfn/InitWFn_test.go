package initwfn

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestGlorotUBounds(t *testing.T) {
	init, err := NewGlorotU(1)
	require.NoError(t, err)

	values := init.InitWFn(1)(tensor.Float64, 10, 20).([]float64)
	require.Len(t, values, 200)

	limit := math.Sqrt(6.0 / 30.0)
	for _, v := range values {
		require.LessOrEqual(t, math.Abs(v), limit)
	}
}

func TestSeeded(t *testing.T) {
	init, err := NewHeN(math.Sqrt2)
	require.NoError(t, err)

	a := init.InitWFn(42)(tensor.Float64, 4, 4).([]float64)
	b := init.InitWFn(42)(tensor.Float64, 4, 4).([]float64)
	c := init.InitWFn(43)(tensor.Float64, 4, 4).([]float64)
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}

func TestConstants(t *testing.T) {
	zeroes, err := NewZeroes()
	require.NoError(t, err)
	require.Equal(t, []float64{0, 0, 0},
		zeroes.InitWFn(0)(tensor.Float64, 1, 3))

	ones, err := NewOnes()
	require.NoError(t, err)
	require.Equal(t, []float32{1, 1}, ones.InitWFn(0)(tensor.Float32, 2))

	c, err := NewConstant(0.5)
	require.NoError(t, err)
	require.Equal(t, []float64{0.5, 0.5}, c.InitWFn(0)(tensor.Float64, 2, 1))
}

func TestValidate(t *testing.T) {
	_, err := NewGlorotN(0)
	require.Error(t, err)
	_, err = NewUniform(1, -1)
	require.Error(t, err)
	_, err = NewGaussian(0, -1)
	require.Error(t, err)
}

func TestJSON(t *testing.T) {
	init, err := NewUniform(-0.1, 0.1)
	require.NoError(t, err)

	data, err := json.Marshal(init)
	require.NoError(t, err)

	var decoded InitWFn
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, Uniform, decoded.Type)
	require.Equal(t, UniformConfig{Low: -0.1, High: 0.1}, decoded.Config)

	var zeroes InitWFn
	require.NoError(t, json.Unmarshal([]byte(`{"Type": "Zeroes"}`), &zeroes))
	require.Equal(t, ZeroesConfig{}, zeroes.Config)

	var unknown InitWFn
	require.Error(t, json.Unmarshal([]byte(`{"Type": "Orthogonal"}`),
		&unknown))
}
