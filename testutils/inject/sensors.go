package inject

import (
	"context"

	"robobot.dev/raubase/components/lineedge"
	"robobot.dev/raubase/components/movementsensor"
	"robobot.dev/raubase/components/odometry"
	"robobot.dev/raubase/components/rangefinder"
	"robobot.dev/raubase/components/servo"
)

// Odometry is an injected odometry.
type Odometry struct {
	odometry.Odometry
	PoseFunc  func(ctx context.Context) (odometry.Pose, error)
	ResetFunc func(ctx context.Context) error
}

// Pose calls the injected Pose or the real version.
func (o *Odometry) Pose(ctx context.Context) (odometry.Pose, error) {
	if o.PoseFunc == nil {
		return o.Odometry.Pose(ctx)
	}
	return o.PoseFunc(ctx)
}

// Reset calls the injected Reset or the real version.
func (o *Odometry) Reset(ctx context.Context) error {
	if o.ResetFunc == nil {
		return o.Odometry.Reset(ctx)
	}
	return o.ResetFunc(ctx)
}

// Detector is an injected line edge detector.
type Detector struct {
	lineedge.Detector
	EdgeFunc      func(ctx context.Context) (lineedge.Reading, error)
	CalibrateFunc func(ctx context.Context, calibration lineedge.Calibration) error
}

// Edge calls the injected Edge or the real version.
func (d *Detector) Edge(ctx context.Context) (lineedge.Reading, error) {
	if d.EdgeFunc == nil {
		return d.Detector.Edge(ctx)
	}
	return d.EdgeFunc(ctx)
}

// Calibrate calls the injected Calibrate or the real version.
func (d *Detector) Calibrate(ctx context.Context, calibration lineedge.Calibration) error {
	if d.CalibrateFunc == nil {
		return d.Detector.Calibrate(ctx, calibration)
	}
	return d.CalibrateFunc(ctx, calibration)
}

// Rangefinder is an injected rangefinder.
type Rangefinder struct {
	rangefinder.Rangefinder
	RangesFunc func(ctx context.Context) ([]float64, error)
}

// Ranges calls the injected Ranges or the real version.
func (r *Rangefinder) Ranges(ctx context.Context) ([]float64, error) {
	if r.RangesFunc == nil {
		return r.Rangefinder.Ranges(ctx)
	}
	return r.RangesFunc(ctx)
}

// IMU is an injected IMU.
type IMU struct {
	movementsensor.IMU
	ReadingsFunc func(ctx context.Context) (movementsensor.IMUReading, error)
}

// Readings calls the injected Readings or the real version.
func (i *IMU) Readings(ctx context.Context) (movementsensor.IMUReading, error) {
	if i.ReadingsFunc == nil {
		return i.IMU.Readings(ctx)
	}
	return i.ReadingsFunc(ctx)
}

// Servo is an injected servo controller.
type Servo struct {
	servo.Servo
	SetServoFunc func(ctx context.Context, channel int, enabled bool, target, speed int) error
	PositionFunc func(ctx context.Context, channel int) (int, error)
}

// SetServo calls the injected SetServo or the real version.
func (s *Servo) SetServo(ctx context.Context, channel int, enabled bool, target, speed int) error {
	if s.SetServoFunc == nil {
		return s.Servo.SetServo(ctx, channel, enabled, target, speed)
	}
	return s.SetServoFunc(ctx, channel, enabled, target, speed)
}

// Position calls the injected Position or the real version.
func (s *Servo) Position(ctx context.Context, channel int) (int, error) {
	if s.PositionFunc == nil {
		return s.Servo.Position(ctx, channel)
	}
	return s.PositionFunc(ctx, channel)
}
