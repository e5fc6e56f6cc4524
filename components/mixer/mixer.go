// Package mixer defines the drive mixer, the component that turns velocity and steering
// commands into wheel speeds.
package mixer

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Side selects which line edge the mixer follows.
type Side int

const (
	// LeftEdge follows the left edge of the line.
	LeftEdge Side = iota
	// RightEdge follows the right edge of the line.
	RightEdge
)

func (s Side) String() string {
	if s == RightEdge {
		return "right"
	}
	return "left"
}

// Mixer accepts drive commands. Commands are fire-and-forget: a returned nil error means the
// command was accepted, not that the motion completed. Turn rate, desired heading and edge
// following are mutually exclusive steering modes; the last one set wins.
type Mixer interface {
	// SetVelocity sets the forward velocity in m/s.
	SetVelocity(ctx context.Context, velocity float64) error
	// SetTurnRate steers at a fixed rate in rad/s.
	SetTurnRate(ctx context.Context, rate float64) error
	// SetDesiredHeading steers towards heading in radians relative to the last odometry reset.
	SetDesiredHeading(ctx context.Context, heading float64) error
	// SetEdgeMode follows a line edge with offset meters of lateral offset.
	SetEdgeMode(ctx context.Context, side Side, offset float64) error
	// SetMaxTurnRate limits the turn rate of the heading controller, in rad/s.
	SetMaxTurnRate(ctx context.Context, rate float64) error
}

// CommandKind names a mixer command.
type CommandKind string

// Mixer commands.
const (
	Velocity       CommandKind = "velocity"
	TurnRate       CommandKind = "turnrate"
	DesiredHeading CommandKind = "heading"
	EdgeMode       CommandKind = "edge"
	MaxTurnRate    CommandKind = "maxturnrate"
)

// Command is one issued mixer command, used by recorders and the simulator.
type Command struct {
	Kind  CommandKind
	Value float64
	Side  Side
}

func (c Command) String() string {
	if c.Kind == EdgeMode {
		return fmt.Sprintf("%s(%s, %.3f)", c.Kind, c.Side, c.Value)
	}
	return fmt.Sprintf("%s(%.3f)", c.Kind, c.Value)
}

// Stop sets velocity and turn rate to zero, in that order.
func Stop(ctx context.Context, m Mixer) error {
	if err := m.SetVelocity(ctx, 0); err != nil {
		return err
	}
	return m.SetTurnRate(ctx, 0)
}

// ParseSide parses "left" or "right".
func ParseSide(s string) (Side, error) {
	switch s {
	case "left":
		return LeftEdge, nil
	case "right":
		return RightEdge, nil
	}
	return LeftEdge, errors.Errorf("unknown line edge %q, want left or right", s)
}
