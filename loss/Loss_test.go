package loss

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestMSE(t *testing.T) {
	target := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	pred := mat.NewDense(2, 2, []float64{2, 2, 3, 2})

	value, grad, err := NewMSE().Loss(target, pred)
	require.NoError(t, err)
	require.InDelta(t, (1.0+4.0)/4, value, 1e-12)
	require.InDeltaSlice(t, []float64{0.5, 0, 0, -1},
		grad.RawMatrix().Data, 1e-12)
}

func TestMSEBroadcast(t *testing.T) {
	target := mat.NewDense(2, 1, []float64{1, 0})
	pred := mat.NewDense(2, 3, []float64{1, 2, 3, 0, 0, 1})

	value, grad, err := NewMSE().Loss(target, pred)
	require.NoError(t, err)
	require.InDelta(t, (0.0+1+4+0+0+1)/6, value, 1e-12)
	require.InDeltaSlice(t, []float64{0, 2.0 / 6, 4.0 / 6, 0, 0, 2.0 / 6},
		grad.RawMatrix().Data, 1e-12)
}

func TestHuber(t *testing.T) {
	h, err := NewHuber(1)
	require.NoError(t, err)

	target := mat.NewDense(2, 1, []float64{0, 0})
	pred := mat.NewDense(2, 1, []float64{0.5, -3})

	value, grad, err := h.Loss(target, pred)
	require.NoError(t, err)
	require.InDelta(t, (0.125+2.5)/2, value, 1e-12)
	require.InDeltaSlice(t, []float64{0.25, -0.5}, grad.RawMatrix().Data,
		1e-12)

	_, err = NewHuber(0)
	require.Error(t, err)
}

func TestShapeMismatch(t *testing.T) {
	_, _, err := NewMSE().Loss(mat.NewDense(3, 1, nil), mat.NewDense(2, 2, nil))
	require.Error(t, err)
	_, _, err = NewMSE().Loss(mat.NewDense(2, 3, nil), mat.NewDense(2, 2, nil))
	require.Error(t, err)
}

func TestConfig(t *testing.T) {
	var c Config
	require.NoError(t, json.Unmarshal([]byte(`{"Type": "Huber"}`), &c))
	l, err := c.Create()
	require.NoError(t, err)
	require.Equal(t, "Huber(1)", l.String())

	_, err = Config{Type: "L1"}.Create()
	require.Error(t, err)
}
