// Package fake implements a fake GPIO pin.
package fake

import (
	"context"

	"go.uber.org/atomic"
)

// GPIOPin is an in memory pin that counts its transitions.
type GPIOPin struct {
	high    atomic.Bool
	changes atomic.Int32
}

// Set changes the pin level.
func (gp *GPIOPin) Set(ctx context.Context, high bool) error {
	if gp.high.Swap(high) != high {
		gp.changes.Inc()
	}
	return nil
}

// Get returns the pin level.
func (gp *GPIOPin) Get(ctx context.Context) (bool, error) {
	return gp.high.Load(), nil
}

// Changes returns how many times the level changed.
func (gp *GPIOPin) Changes() int {
	return int(gp.changes.Load())
}
