package expreplay

import (
	"errors"
	"fmt"
)

// InsufficientDataError is returned when more transitions are
// requested from a buffer than it holds
type InsufficientDataError struct {
	Op        string
	Requested int
	Available int
}

// Error satisfies the error interface
func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%v: insufficient samples in buffer \n\twant(%v) "+
		"\n\thave(%v)", e.Op, e.Requested, e.Available)
}

// IsInsufficientData returns whether or not an error reports that
// there are insufficient samples in the buffer to sample from the
// buffer.
func IsInsufficientData(err error) bool {
	var target *InsufficientDataError
	return errors.As(err, &target)
}
