package mission

import (
	"context"
	"fmt"
	"image"

	"github.com/pkg/errors"

	"robobot.dev/raubase/components/lineedge"
	"robobot.dev/raubase/components/mixer"
)

// Cycle is handed to rule actions. Commands are fire-and-forget; the first failing command is
// remembered and ends the run Lost once the action returns. Commands after a failure are
// skipped.
type Cycle struct {
	ctx   context.Context
	env   *Env
	view  View
	state string
	err   error
	lost  string
}

func (c *Cycle) do(name string, fn func() error) {
	if c.err != nil {
		return
	}
	if err := fn(); err != nil {
		c.err = errors.Wrapf(err, "%s failed", name)
	}
}

// Context returns the run's context.
func (c *Cycle) Context() context.Context {
	return c.ctx
}

// View returns what the rule's predicate saw this cycle.
func (c *Cycle) View() View {
	return c.view
}

// SetVelocity sets the forward velocity in m/s.
func (c *Cycle) SetVelocity(velocity float64) {
	c.do("set velocity", func() error { return c.env.Robot.Mixer.SetVelocity(c.ctx, velocity) })
}

// SetTurnRate steers at rate rad/s.
func (c *Cycle) SetTurnRate(rate float64) {
	c.do("set turn rate", func() error { return c.env.Robot.Mixer.SetTurnRate(c.ctx, rate) })
}

// SetDesiredHeading steers to heading radians relative to the last pose reset.
func (c *Cycle) SetDesiredHeading(heading float64) {
	c.do("set desired heading", func() error { return c.env.Robot.Mixer.SetDesiredHeading(c.ctx, heading) })
}

// FollowEdge switches to edge following.
func (c *Cycle) FollowEdge(side mixer.Side, offset float64) {
	c.do("set edge mode", func() error { return c.env.Robot.Mixer.SetEdgeMode(c.ctx, side, offset) })
}

// SetMaxTurnRate limits the heading controller turn rate in rad/s.
func (c *Cycle) SetMaxTurnRate(rate float64) {
	c.do("set max turn rate", func() error { return c.env.Robot.Mixer.SetMaxTurnRate(c.ctx, rate) })
}

// Stop commands zero velocity and zero turn rate.
func (c *Cycle) Stop() {
	c.SetVelocity(0)
	c.SetTurnRate(0)
}

// SetServo moves a servo channel.
func (c *Cycle) SetServo(channel int, enabled bool, target, speed int) {
	c.do("set servo", func() error { return c.env.Robot.Servo.SetServo(c.ctx, channel, enabled, target, speed) })
}

// ResetPose zeroes distance and heading. The next snapshot observes the reset.
func (c *Cycle) ResetPose() {
	c.do("reset pose", func() error { return c.env.Robot.Odometry.Reset(c.ctx) })
}

// Calibrate swaps the line sensor calibration.
func (c *Cycle) Calibrate(calibration lineedge.Calibration) {
	c.do("calibrate line sensor", func() error { return c.env.Robot.Line.Calibrate(c.ctx, calibration) })
}

// FindBall asks the vision boundary for the golf ball. A robot without a ball finder sees
// no ball.
func (c *Cycle) FindBall() (image.Point, bool) {
	var (
		center image.Point
		found  bool
	)
	if c.env.Robot.Balls == nil {
		return center, false
	}
	c.do("find ball", func() error {
		var err error
		center, found, err = c.env.Robot.Balls.FindBall(c.ctx)
		return err
	})
	return center, found
}

// Log writes a line to the mission log under the current state.
func (c *Cycle) Log(message string) {
	c.env.record(c.state, message)
}

// Logf formats and writes a line to the mission log.
func (c *Cycle) Logf(format string, args ...interface{}) {
	c.env.record(c.state, fmt.Sprintf(format, args...))
}

// Lose ends the run Lost after this action with reason.
func (c *Cycle) Lose(reason string) {
	if c.lost == "" {
		c.lost = reason
	}
}

func (env *Env) record(state, message string) {
	if env.Log == nil {
		return
	}
	env.Log.Record(env.Clock.Now(), state, message)
}
