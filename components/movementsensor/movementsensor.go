// Package movementsensor defines the interfaces of the inertial measurement unit.
package movementsensor

import (
	"context"

	"github.com/golang/geo/r3"
)

// IMUReading holds one accelerometer and gyro sample.
type IMUReading struct {
	// Acceleration in m/s^2.
	Acceleration r3.Vector
	// AngularVelocity in deg/s.
	AngularVelocity r3.Vector
}

// IMU is an inertial measurement unit.
type IMU interface {
	Readings(ctx context.Context) (IMUReading, error)
}
