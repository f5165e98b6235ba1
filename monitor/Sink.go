// Package monitor implements sinks which observe the history of
// episodic returns produced during training, rendering it to plots,
// logs, files, progress bars, or an HTTP endpoint.
package monitor

import "errors"

// Sink observes the full history of episodic returns once per episode.
// Sinks decide for themselves how often to render what they observe.
type Sink interface {
	Observe(returns []float64) error
	Close() error
}

// Multi is a Sink which fans each observation out to a list of Sinks
type Multi []Sink

// Observe passes returns to each Sink, continuing past failures. All
// errors encountered are joined and returned.
func (m Multi) Observe(returns []float64) error {
	var errs []error
	for _, s := range m {
		if err := s.Observe(returns); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes each Sink, returning all errors encountered
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
