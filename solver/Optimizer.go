package solver

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Parameterized is a model whose learnable parameters can be stepped
// by a Gorgonia Solver
type Parameterized interface {
	// Model returns the learnables of the model with their accumulated
	// gradients. The order of the returned slice must not change
	// between calls, since Solvers key their state by position.
	Model() []G.ValueGrad
	ZeroGrad()
}

// Optimizer binds a Solver to the parameters of a single model
type Optimizer struct {
	solver *Solver
	model  Parameterized
}

// NewOptimizer returns a new Optimizer which steps model with solver.
// The Optimizer owns the Solver's state from here on, so a Solver
// should not be shared between Optimizers; use Solver.Clone instead.
func NewOptimizer(solver *Solver, model Parameterized) (*Optimizer, error) {
	if solver == nil || solver.Solver == nil {
		return nil, fmt.Errorf("newOptimizer: nil solver")
	}
	if model == nil {
		return nil, fmt.Errorf("newOptimizer: nil model")
	}
	return &Optimizer{solver: solver, model: model}, nil
}

// ZeroGrad clears the accumulated gradients of the model
func (o *Optimizer) ZeroGrad() {
	o.model.ZeroGrad()
}

// Step moves the model's parameters along their accumulated gradients
func (o *Optimizer) Step() error {
	if err := o.solver.Step(o.model.Model()); err != nil {
		return fmt.Errorf("step: %w", err)
	}
	return nil
}

// Solver returns the Solver used by the Optimizer
func (o *Optimizer) Solver() *Solver {
	return o.solver
}
