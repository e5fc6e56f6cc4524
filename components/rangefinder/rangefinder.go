// Package rangefinder defines the distance sensor array.
package rangefinder

import (
	"context"

	"github.com/pkg/errors"
)

// Indexes of the IR distance sensors on the robot.
const (
	Front = 0
	Side  = 1
)

// Rangefinder is an array of distance sensors. Readings are in meters.
type Rangefinder interface {
	Ranges(ctx context.Context) ([]float64, error)
}

// Range returns reading i of ranges, or an error when the array is too short.
func Range(ranges []float64, i int) (float64, error) {
	if i < 0 || i >= len(ranges) {
		return 0, errors.Errorf("no range sensor %d, have %d", i, len(ranges))
	}
	return ranges[i], nil
}
