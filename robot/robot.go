// Package robot aggregates the components a mission talks to and produces the per cycle
// sensor snapshot.
package robot

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"robobot.dev/raubase/components/board"
	"robobot.dev/raubase/components/lineedge"
	"robobot.dev/raubase/components/mixer"
	"robobot.dev/raubase/components/movementsensor"
	"robobot.dev/raubase/components/odometry"
	"robobot.dev/raubase/components/rangefinder"
	"robobot.dev/raubase/components/servo"
	"robobot.dev/raubase/services/vision"
	"robobot.dev/raubase/utils"
)

// Parts are the components of a robot. Balls and Indicator are optional.
type Parts struct {
	Mixer     mixer.Mixer
	Servo     servo.Servo
	Odometry  odometry.Odometry
	Line      lineedge.Detector
	Ranges    rangefinder.Rangefinder
	IMU       movementsensor.IMU
	Balls     vision.BallFinder
	Indicator board.GPIOPin

	// ServoChannels are the servo channels read into every snapshot.
	ServoChannels []int
}

// Robot is the facade the mission runtime drives.
type Robot struct {
	Mixer     mixer.Mixer
	Servo     servo.Servo
	Odometry  odometry.Odometry
	Line      lineedge.Detector
	Ranges    rangefinder.Rangefinder
	IMU       movementsensor.IMU
	Balls     vision.BallFinder
	Indicator board.GPIOPin

	servoChannels []int
}

// Snapshot is a read-only view of every sensor, taken once per cycle.
type Snapshot struct {
	Time   time.Time
	Pose   odometry.Pose
	Edge   lineedge.Reading
	Ranges []float64
	IMU    movementsensor.IMUReading
	// Servo maps channel to position for the configured channels.
	Servo map[int]int
}

// Range returns range sensor i, and false when the robot has no such sensor.
func (s Snapshot) Range(i int) (float64, bool) {
	v, err := rangefinder.Range(s.Ranges, i)
	return v, err == nil
}

// New checks that the required parts are present and returns the robot.
func New(parts Parts) (*Robot, error) {
	for name, missing := range map[string]bool{
		"mixer":       parts.Mixer == nil,
		"servo":       parts.Servo == nil,
		"odometry":    parts.Odometry == nil,
		"line":        parts.Line == nil,
		"rangefinder": parts.Ranges == nil,
		"imu":         parts.IMU == nil,
	} {
		if missing {
			return nil, errors.Errorf("robot is missing its %s", name)
		}
	}
	channels := parts.ServoChannels
	if channels == nil {
		channels = []int{servo.Arm}
	}
	return &Robot{
		Mixer:         parts.Mixer,
		Servo:         parts.Servo,
		Odometry:      parts.Odometry,
		Line:          parts.Line,
		Ranges:        parts.Ranges,
		IMU:           parts.IMU,
		Balls:         parts.Balls,
		Indicator:     parts.Indicator,
		servoChannels: channels,
	}, nil
}

// Snapshot reads every sensor once. at is the capture time recorded in the snapshot.
func (r *Robot) Snapshot(ctx context.Context, at time.Time) (Snapshot, error) {
	snap := Snapshot{Time: at, Servo: make(map[int]int, len(r.servoChannels))}
	var err error
	if snap.Pose, err = r.Odometry.Pose(ctx); err != nil {
		return Snapshot{}, errors.Wrap(err, "failed to read pose")
	}
	if snap.Edge, err = r.Line.Edge(ctx); err != nil {
		return Snapshot{}, errors.Wrap(err, "failed to read line edge")
	}
	if snap.Ranges, err = r.Ranges.Ranges(ctx); err != nil {
		return Snapshot{}, errors.Wrap(err, "failed to read ranges")
	}
	if snap.IMU, err = r.IMU.Readings(ctx); err != nil {
		return Snapshot{}, errors.Wrap(err, "failed to read imu")
	}
	for _, ch := range r.servoChannels {
		pos, err := r.Servo.Position(ctx, ch)
		if err != nil {
			return Snapshot{}, errors.Wrapf(err, "failed to read servo %d", ch)
		}
		snap.Servo[ch] = pos
	}
	return snap, nil
}

// Stop commands zero velocity then zero turn rate.
func (r *Robot) Stop(ctx context.Context) error {
	return mixer.Stop(ctx, r.Mixer)
}

// SetIndicator switches the status LED when one is fitted.
func (r *Robot) SetIndicator(ctx context.Context, on bool) error {
	if r.Indicator == nil {
		return nil
	}
	return r.Indicator.Set(ctx, on)
}

// Close closes every part that can be closed.
func (r *Robot) Close(ctx context.Context) error {
	var err error
	for _, part := range []interface{}{r.Mixer, r.Servo, r.Odometry, r.Line, r.Ranges, r.IMU, r.Balls, r.Indicator} {
		if part == nil {
			continue
		}
		err = multierr.Combine(err, utils.TryClose(ctx, part))
	}
	return err
}
