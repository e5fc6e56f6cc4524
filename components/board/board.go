// Package board defines the GPIO pins used for operator feedback.
package board

import "context"

// GPIOPin is a single digital output pin.
type GPIOPin interface {
	// Set drives the pin high or low.
	Set(ctx context.Context, high bool) error
	// Get returns whether the pin is currently high.
	Get(ctx context.Context) (bool, error)
}

// DefaultIndicatorPin is the GPIO number of the status LED on the robot's hat.
const DefaultIndicatorPin = "GPIO16"
