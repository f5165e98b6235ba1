package environment

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SpecType determines what kind of specification a Spec is. A Spec can
// specify the layout of an action or an observation
type SpecType int

const (
	Action SpecType = iota
	Observation
)

// Cardinality determines the cardinality of a number (discrete or continuous)
type Cardinality string

const (
	Continuous Cardinality = "Continuous"
	Discrete   Cardinality = "Discrete"
)

// Spec implements an environment specification, which tells the type,
// shape, and bounds of an action or observation in an environment
type Spec struct {
	Shape      *mat.VecDense
	Type       SpecType
	LowerBound *mat.VecDense
	UpperBound *mat.VecDense
	Cardinality
}

// NewSpec constructs a new environment specification
// The shape argument outlines the shape of the data described by the
// specification. The argument t outlines what the specification is
// describing (e.g. actions, observations, etc.). The cardinality
// arguments describes whether the values that the spec describes are
// continuous or discrete.
func NewSpec(shape *mat.VecDense, t SpecType, lowerBound,
	upperBound *mat.VecDense, cardinality Cardinality) Spec {
	if shape.Len() != lowerBound.Len() {
		panic(fmt.Sprintf("shape length %v must match lower bounds length %v",
			shape.Len(), lowerBound.Len()))
	}
	if shape.Len() != upperBound.Len() {
		panic(fmt.Sprintf("shape length %v must match upper bounds length %v",
			shape.Len(), upperBound.Len()))
	}
	return Spec{shape, t, lowerBound, upperBound, cardinality}
}

// NewDiscreteActionSpec returns the Spec of a 1-dimensional discrete
// action set {0, 1, ..., actions-1}
func NewDiscreteActionSpec(actions int) Spec {
	shape := mat.NewVecDense(1, nil)
	lower := mat.NewVecDense(1, []float64{0})
	upper := mat.NewVecDense(1, []float64{float64(actions - 1)})
	return NewSpec(shape, Action, lower, upper, Discrete)
}

// Features returns the number of features described by the Spec
func (s Spec) Features() int {
	return s.Shape.Len()
}

// Actions returns the number of discrete actions described by an
// action Spec. Actions must be 1-dimensional, discrete, and
// enumerated from 0.
func (s Spec) Actions() (int, error) {
	if s.Type != Action {
		return 0, fmt.Errorf("actions: not an action spec")
	}
	if s.Cardinality != Discrete {
		return 0, fmt.Errorf("actions: cannot use non-discrete actions")
	}
	if s.Shape.Len() != 1 {
		return 0, fmt.Errorf("actions: actions must be 1-dimensional "+
			"\n\twant(1) \n\thave(%v)", s.Shape.Len())
	}
	if s.LowerBound.AtVec(0) != 0 {
		return 0, fmt.Errorf("actions: actions must be enumerated "+
			"starting from 0 \n\twant(0) \n\thave(%v)", s.LowerBound.AtVec(0))
	}
	return int(s.UpperBound.AtVec(0)) + 1, nil
}
