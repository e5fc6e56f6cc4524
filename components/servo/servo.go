// Package servo defines the servo controller of the robot's arm.
package servo

import (
	"context"
)

// Channels of the servos mounted on the robot.
const (
	// Arm is the front arm used on the stairs and for the golf ball.
	Arm = 1
	// Park is the servo parked by the dispatcher before the first mission.
	Park = 2
)

// Servo is a multi channel servo controller. Positions are raw controller units, roughly
// -1000..1000, and speed is in units per second.
type Servo interface {
	// SetServo enables or disables a channel and starts moving it towards target.
	SetServo(ctx context.Context, channel int, enabled bool, target, speed int) error
	// Position returns the last reported position of a channel.
	Position(ctx context.Context, channel int) (int, error)
}

// Disable turns a channel off.
func Disable(ctx context.Context, s Servo, channel int) error {
	return s.SetServo(ctx, channel, false, 0, 0)
}
