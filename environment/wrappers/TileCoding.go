package wrappers

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/mat"

	env "github.com/samuelfneumann/godqn/environment"
	ts "github.com/samuelfneumann/godqn/timestep"
)

// TileCoding wraps an environment and tile codes its observations. Each
// tiling may use a different number of tiles per dimension, and the
// tile coded observation is the concatenation of the tile codings of
// every TileCoder.
type TileCoding struct {
	env.Environment
	coders   []*TileCoder
	features int
}

// NewTileCoding returns a new TileCoding wrapper. For each element of
// bins a TileCoder with a single tiling is created, with bins[i][j]
// tiles along dimension j. The tiled space is bounded by minDims and
// maxDims, or by the bounds of the environment's observation Spec if
// both are nil.
func NewTileCoding(e env.Environment, bins [][]int, minDims,
	maxDims []float64, seed uint64) (*TileCoding, error) {
	if len(bins) == 0 {
		return nil, fmt.Errorf("newTileCoding: at least one tiling required")
	}
	if minDims == nil && maxDims == nil {
		obsSpec := e.ObservationSpec()
		minDims = mat.VecDenseCopyOf(obsSpec.LowerBound).RawVector().Data
		maxDims = mat.VecDenseCopyOf(obsSpec.UpperBound).RawVector().Data
	}
	if len(minDims) != e.ObservationSpec().Features() {
		return nil, fmt.Errorf("newTileCoding: bounds must have one "+
			"element per observation feature \n\twant(%v) \n\thave(%v)",
			e.ObservationSpec().Features(), len(minDims))
	}

	coders := make([]*TileCoder, len(bins))
	features := 0
	for i := range bins {
		coder, err := NewTileCoder(1, minDims, maxDims, bins[i],
			seed+uint64(i))
		if err != nil {
			return nil, fmt.Errorf("newTileCoding: %w", err)
		}
		coders[i] = coder
		features += coder.VecLength()
	}

	return &TileCoding{Environment: e, coders: coders, features: features}, nil
}

// Reset resets the environment to some starting state
func (t *TileCoding) Reset() (ts.TimeStep, error) {
	step, err := t.Environment.Reset()
	if err != nil {
		return step, err
	}
	step.Observation = t.encode(step.Observation)
	return step, nil
}

// Step takes one environmental step given some action
func (t *TileCoding) Step(a int) (ts.TimeStep, bool, error) {
	step, done, err := t.Environment.Step(a)
	if err != nil {
		return step, done, err
	}
	step.Observation = t.encode(step.Observation)
	return step, done, nil
}

func (t *TileCoding) encode(obs *mat.VecDense) *mat.VecDense {
	out := mat.NewVecDense(t.features, nil)
	offset := 0
	for _, coder := range t.coders {
		coded := coder.Encode(obs)
		for i := 0; i < coded.Len(); i++ {
			out.SetVec(offset+i, coded.AtVec(i))
		}
		offset += coded.Len()
	}
	return out
}

// ObservationSpec returns the observation specification of the
// environment
func (t *TileCoding) ObservationSpec() env.Spec {
	upper := make([]float64, t.features)
	for i := range upper {
		upper[i] = 1.0
	}
	return env.NewSpec(mat.NewVecDense(t.features, nil), env.Observation,
		mat.NewVecDense(t.features, nil), mat.NewVecDense(t.features, upper),
		env.Discrete)
}

// Close closes the wrapped environment if it holds resources
func (t *TileCoding) Close() error {
	if c, ok := t.Environment.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// String returns the string representation of the environment
func (t *TileCoding) String() string {
	return fmt.Sprintf("TileCoding(%d features): %v", t.features,
		t.Environment)
}
