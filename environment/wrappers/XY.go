package wrappers

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	env "github.com/samuelfneumann/godqn/environment"
	ts "github.com/samuelfneumann/godqn/timestep"
)

// RowColer is an environment whose observations are one-hot encodings
// of cells in a grid with Dims() rows and columns, indexed row major
type RowColer interface {
	env.Environment
	Dims() (r, c int)
}

// XY converts one-hot state encodings of RowColer's to the
// corresponding (x, y) == (col, row) coordinates.
type XY struct {
	RowColer
}

// NewXY returns a new XY environment wrapper
func NewXY(e RowColer) *XY {
	return &XY{RowColer: e}
}

// Reset resets the environment to some starting state
func (x *XY) Reset() (ts.TimeStep, error) {
	step, err := x.RowColer.Reset()
	if err != nil {
		return ts.TimeStep{}, err
	}

	newObs, err := x.getObs(step.Observation)
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: could not calculate "+
			"observation: %w", err)
	}
	step.Observation = newObs
	return step, nil
}

// Step takes one environmental step given some action
func (x *XY) Step(a int) (ts.TimeStep, bool, error) {
	step, done, err := x.RowColer.Step(a)
	if err != nil {
		return ts.TimeStep{}, true, err
	}

	newObs, err := x.getObs(step.Observation)
	if err != nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: could not calculate "+
			"observation: %w", err)
	}
	step.Observation = newObs
	return step, done, nil
}

// getObs returns the (x, y) version of a one-hot encoded vector
func (x *XY) getObs(obs *mat.VecDense) (*mat.VecDense, error) {
	data := mat.VecDenseCopyOf(obs).RawVector().Data
	index, err := floats.Find(nil, func(v float64) bool { return v == 1.0 },
		data, -1)
	if err != nil || len(index) != 1 {
		return nil, fmt.Errorf("getObs: vector is not one-hot")
	}

	_, cols := x.Dims()
	return mat.NewVecDense(2, []float64{
		float64(index[0] % cols),
		float64(index[0] / cols),
	}), nil
}

// ObservationSpec returns the observation specification of the
// environment
func (x *XY) ObservationSpec() env.Spec {
	rows, cols := x.Dims()
	shape := mat.NewVecDense(2, nil)
	low := mat.NewVecDense(2, []float64{0, 0})
	high := mat.NewVecDense(2, []float64{float64(cols - 1), float64(rows - 1)})

	return env.NewSpec(shape, env.Observation, low, high, env.Discrete)
}

// String returns the string representation of the environment
func (x *XY) String() string {
	return fmt.Sprintf("XY: %v", x.RowColer)
}
