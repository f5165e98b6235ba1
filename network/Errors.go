package network

import (
	"errors"
	"fmt"
)

// DimensionMismatchError is returned when a state batch, gradient, or
// parameter does not have the shape a network expects
type DimensionMismatchError struct {
	Op   string
	Want []int
	Have []int
}

// Error satisfies the error interface
func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%v: dimension mismatch \n\twant(%v) \n\thave(%v)",
		e.Op, e.Want, e.Have)
}

// IsDimensionMismatch returns whether err reports a dimension mismatch
func IsDimensionMismatch(err error) bool {
	var target *DimensionMismatchError
	return errors.As(err, &target)
}
