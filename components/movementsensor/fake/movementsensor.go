// Package fake is a fake IMU for testing
package fake

import (
	"context"
	"sync"

	"github.com/golang/geo/r3"

	"robobot.dev/raubase/components/movementsensor"
)

// gravity as seen by a level IMU.
var gravity = r3.Vector{Z: 9.81}

// IMU returns a settable reading, level and at rest by default.
type IMU struct {
	mu      sync.Mutex
	reading movementsensor.IMUReading
}

// NewIMU returns a level IMU at rest.
func NewIMU() *IMU {
	return &IMU{reading: movementsensor.IMUReading{Acceleration: gravity}}
}

// Set replaces the reading.
func (i *IMU) Set(reading movementsensor.IMUReading) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.reading = reading
}

// Readings returns the current reading.
func (i *IMU) Readings(ctx context.Context) (movementsensor.IMUReading, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.reading, nil
}
