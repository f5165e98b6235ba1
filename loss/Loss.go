// Package loss implements regression losses between update targets and
// action-value predictions, together with their gradients with respect
// to the predictions.
package loss

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Type describes the different losses available
type Type string

const (
	MSE   Type = "MSE"
	Huber Type = "Huber"
)

// Config implements a JSON serializable loss configuration
type Config struct {
	Type
	Delta float64 `json:",omitempty"` // Huber threshold, 1 if unset
}

// Create returns the loss described by the Config
func (c Config) Create() (*Loss, error) {
	switch c.Type {
	case MSE:
		return NewMSE(), nil
	case Huber:
		delta := c.Delta
		if delta == 0 {
			delta = 1
		}
		return NewHuber(delta)
	}
	return nil, fmt.Errorf("create: unknown loss type %q", c.Type)
}

// Loss computes the mean elementwise loss between a batch of targets and
// a batch of predictions.
//
// Targets must either have the same shape as the predictions or be a
// single column, in which case the column is broadcast against every
// column of the predictions.
type Loss struct {
	Type
	delta float64
}

// NewMSE returns the mean squared error loss
func NewMSE() *Loss {
	return &Loss{Type: MSE}
}

// NewHuber returns the Huber loss with threshold delta
func NewHuber(delta float64) (*Loss, error) {
	if delta <= 0 {
		return nil, fmt.Errorf("newHuber: delta must be positive \n\twant(>0)"+
			" \n\thave(%v)", delta)
	}
	return &Loss{Type: Huber, delta: delta}, nil
}

// Loss returns the mean loss over all elements of prediction and the
// gradient of the loss with respect to prediction
func (l *Loss) Loss(target, prediction *mat.Dense) (float64, *mat.Dense,
	error) {
	rows, cols := prediction.Dims()
	tRows, tCols := target.Dims()
	if tRows != rows || (tCols != cols && tCols != 1) {
		return 0, nil, fmt.Errorf("loss: target shape must match prediction "+
			"or be a column vector \n\twant(%v, %v) or (%v, 1) \n\thave(%v, %v)",
			rows, cols, rows, tRows, tCols)
	}

	n := float64(rows * cols)
	grad := mat.NewDense(rows, cols, nil)
	var total float64
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			tj := j
			if tCols == 1 {
				tj = 0
			}
			diff := prediction.At(i, j) - target.At(i, tj)
			value, g := l.elementwise(diff)
			total += value
			grad.Set(i, j, g/n)
		}
	}
	return total / n, grad, nil
}

// elementwise returns the loss and its derivative for a single
// prediction error
func (l *Loss) elementwise(diff float64) (float64, float64) {
	switch l.Type {
	case Huber:
		if math.Abs(diff) <= l.delta {
			return 0.5 * diff * diff, diff
		}
		return l.delta * (math.Abs(diff) - 0.5*l.delta),
			l.delta * math.Copysign(1, diff)
	default:
		return diff * diff, 2 * diff
	}
}

// String implements the fmt.Stringer interface
func (l *Loss) String() string {
	if l.Type == Huber {
		return fmt.Sprintf("Huber(%v)", l.delta)
	}
	return string(l.Type)
}
