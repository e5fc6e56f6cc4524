// Package fake implements a fake rangefinder.
package fake

import (
	"context"
	"sync"
)

// Rangefinder returns settable ranges.
type Rangefinder struct {
	mu     sync.Mutex
	ranges []float64
}

// NewRangefinder returns a rangefinder with n sensors that see nothing closer than far.
func NewRangefinder(n int, far float64) *Rangefinder {
	ranges := make([]float64, n)
	for i := range ranges {
		ranges[i] = far
	}
	return &Rangefinder{ranges: ranges}
}

// Set changes reading i.
func (r *Rangefinder) Set(i int, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ranges[i] = value
}

// Ranges returns a copy of the current readings.
func (r *Rangefinder) Ranges(ctx context.Context) ([]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]float64, len(r.ranges))
	copy(out, r.ranges)
	return out, nil
}
