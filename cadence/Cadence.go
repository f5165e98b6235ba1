// Package cadence implements rules deciding on which steps a periodic
// action, such as a target network sync or a monitoring render, fires.
package cadence

import (
	"encoding/json"
	"fmt"
)

// Kind describes the type of a Rule
type Kind string

const (
	// Always fires on every step
	Always Kind = "Always"

	// OnMultipleOf fires on steps that are multiples of N, including
	// step 0
	OnMultipleOf Kind = "OnMultipleOf"

	// ExceptMultipleOf fires on every step that is not a multiple of N
	ExceptMultipleOf Kind = "ExceptMultipleOf"
)

// Rule decides whether an action fires at a given step
type Rule struct {
	Kind
	N int `json:",omitempty"`
}

// NewAlways returns a Rule which always fires
func NewAlways() Rule {
	return Rule{Kind: Always}
}

// NewOnMultipleOf returns a Rule which fires on steps that are
// multiples of n
func NewOnMultipleOf(n int) (Rule, error) {
	r := Rule{Kind: OnMultipleOf, N: n}
	return r, r.Validate()
}

// NewExceptMultipleOf returns a Rule which fires on steps that are not
// multiples of n
func NewExceptMultipleOf(n int) (Rule, error) {
	r := Rule{Kind: ExceptMultipleOf, N: n}
	return r, r.Validate()
}

// Validate checks that the Rule is well formed
func (r Rule) Validate() error {
	switch r.Kind {
	case Always:
		return nil
	case OnMultipleOf, ExceptMultipleOf:
		if r.N < 1 {
			return fmt.Errorf("validate: %v rule requires a positive period "+
				"\n\twant(>0) \n\thave(%v)", r.Kind, r.N)
		}
		return nil
	default:
		return fmt.Errorf("validate: unknown rule kind %q", r.Kind)
	}
}

// WithPeriod returns a copy of the Rule with period n. Always rules are
// returned unchanged.
func (r Rule) WithPeriod(n int) (Rule, error) {
	if r.Kind == Always {
		return r, nil
	}
	r.N = n
	return r, r.Validate()
}

// Fires returns whether the Rule fires at step
func (r Rule) Fires(step int) bool {
	switch r.Kind {
	case Always:
		return true
	case OnMultipleOf:
		return step%r.N == 0
	case ExceptMultipleOf:
		return step%r.N != 0
	}
	return false
}

// String implements the fmt.Stringer interface
func (r Rule) String() string {
	if r.Kind == Always {
		return string(r.Kind)
	}
	return fmt.Sprintf("%v(%d)", r.Kind, r.N)
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (r *Rule) UnmarshalJSON(data []byte) error {
	type rule Rule
	var decoded rule
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	if err := Rule(decoded).Validate(); err != nil {
		return fmt.Errorf("unmarshalJSON: %w", err)
	}
	*r = Rule(decoded)
	return nil
}
