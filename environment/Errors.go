package environment

import (
	"errors"
	"fmt"
)

// InvalidActionError is returned when an environment is stepped with
// an action outside of {0, 1, ..., Actions-1}
type InvalidActionError struct {
	Action  int
	Actions int
}

// Error satisfies the error interface
func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("step: illegal action \n\twant([0, %v)) \n\thave(%v)",
		e.Actions, e.Action)
}

// IsInvalidAction returns whether err reports an illegal action
func IsInvalidAction(err error) bool {
	var target *InvalidActionError
	return errors.As(err, &target)
}

// ValidateAction returns an *InvalidActionError if action is not one
// of the actions {0, 1, ..., actions-1}
func ValidateAction(action, actions int) error {
	if action < 0 || action >= actions {
		return &InvalidActionError{Action: action, Actions: actions}
	}
	return nil
}
