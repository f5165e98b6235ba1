// Package expreplay implements a bounded experience replay buffer of
// transitions with uniform sampling.
package expreplay

import (
	"fmt"
	"sync"

	"github.com/gammazero/deque"
	"golang.org/x/exp/rand"

	ts "github.com/samuelfneumann/godqn/timestep"
)

// Config implements a configuration of an experience replay buffer
type Config struct {
	Capacity int
	Seed     uint64
}

// Validate checks a Config to ensure it describes a valid buffer
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("validate: capacity must be positive "+
			"\n\twant(>0) \n\thave(%v)", c.Capacity)
	}
	return nil
}

// Create returns the buffer described by the Config
func (c Config) Create() (*Buffer, error) {
	return New(c.Capacity, c.Seed)
}

// Buffer is a fixed-capacity FIFO buffer of transitions. Once full, each
// Add evicts the oldest stored transition. Sampling is uniform without
// replacement.
//
// A Buffer is safe for concurrent use.
type Buffer struct {
	mu       sync.Mutex
	capacity int
	data     deque.Deque[ts.Transition]
	rng      *rand.Rand
	indices  []int
}

// New returns a new, empty Buffer holding at most capacity transitions
func New(capacity int, seed uint64) (*Buffer, error) {
	config := Config{Capacity: capacity, Seed: seed}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	b := &Buffer{
		capacity: capacity,
		rng:      rand.New(rand.NewSource(seed)),
	}
	return b, nil
}

// Add appends t to the buffer, evicting the oldest transition if the
// buffer is over capacity
func (b *Buffer) Add(t ts.Transition) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data.PushBack(t)
	if b.data.Len() > b.capacity {
		b.data.PopFront()
	}
}

// Sample returns n distinct transitions drawn uniformly at random
// without replacement. No ordering is guaranteed. If n exceeds the
// number of stored transitions, an *InsufficientDataError is returned.
func (b *Buffer) Sample(n int) ([]ts.Transition, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n <= 0 {
		return nil, fmt.Errorf("sample: sample size must be positive "+
			"\n\twant(>0) \n\thave(%v)", n)
	}
	size := b.data.Len()
	if n > size {
		return nil, &InsufficientDataError{
			Op:        "sample",
			Requested: n,
			Available: size,
		}
	}

	if cap(b.indices) < size {
		b.indices = make([]int, size, b.capacity)
	}
	indices := b.indices[:size]
	for i := range indices {
		indices[i] = i
	}

	// Partial Fisher-Yates shuffle of the first n indices
	batch := make([]ts.Transition, n)
	for i := 0; i < n; i++ {
		j := i + b.rng.Intn(size-i)
		indices[i], indices[j] = indices[j], indices[i]
		batch[i] = b.data.At(indices[i])
	}
	return batch, nil
}

// All returns every stored transition, oldest first
func (b *Buffer) All() []ts.Transition {
	b.mu.Lock()
	defer b.mu.Unlock()

	all := make([]ts.Transition, b.data.Len())
	for i := range all {
		all[i] = b.data.At(i)
	}
	return all
}

// Len returns the number of stored transitions
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data.Len()
}

// Capacity returns the maximum number of stored transitions
func (b *Buffer) Capacity() int {
	return b.capacity
}

// Clear removes all stored transitions
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data.Clear()
}

func (b *Buffer) String() string {
	return fmt.Sprintf("Buffer | Size: %v  |  Capacity: %v", b.Len(),
		b.capacity)
}
