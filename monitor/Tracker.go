package monitor

import (
	"encoding/gob"
	"fmt"
	"os"
)

// Tracker is a Sink which keeps the history of episodic returns and
// saves it to disk, gob encoded, when closed. Saved returns can be
// loaded with LoadReturns.
type Tracker struct {
	filename string
	returns  []float64
}

// NewTracker returns a new Tracker which will save to filename
func NewTracker(filename string) *Tracker {
	return &Tracker{filename: filename}
}

// Observe implements the Sink interface
func (t *Tracker) Observe(returns []float64) error {
	t.returns = append(t.returns[:0], returns...)
	return nil
}

// Returns returns a copy of the tracked returns
func (t *Tracker) Returns() []float64 {
	return append([]float64(nil), t.returns...)
}

// Close saves the tracked returns to disk. Nothing is saved if no
// returns were observed.
func (t *Tracker) Close() error {
	if len(t.returns) == 0 {
		return nil
	}
	return t.Save()
}

// Save saves the tracked returns to disk
func (t *Tracker) Save() error {
	file, err := os.Create(t.filename)
	if err != nil {
		return fmt.Errorf("save: could not open save file: %w", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(t.returns); err != nil {
		return fmt.Errorf("save: could not encode returns: %w", err)
	}
	return file.Close()
}

// LoadReturns loads and returns the returns saved by a Tracker
func LoadReturns(filename string) ([]float64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("loadReturns: could not open data file: %w",
			err)
	}
	defer file.Close()

	var data []float64
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return nil, fmt.Errorf("loadReturns: could not decode data: %w", err)
	}
	return data, nil
}
