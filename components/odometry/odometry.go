// Package odometry defines the pose accumulator the missions read and reset.
package odometry

import (
	"context"
	"math"
	"sync"
	"time"
)

// Pose is accumulated odometry since the last reset. It is not an absolute position.
type Pose struct {
	// Distance driven in meters, negative when reversing.
	Distance float64
	// Turned is the heading change in radians, positive counter-clockwise.
	Turned float64
	// Velocity is the most recent forward velocity in m/s.
	Velocity float64
	// Updated is the time of the last integration step.
	Updated time.Time
}

// Odometry is the pose source used by the mission runtime.
type Odometry interface {
	// Pose returns a consistent snapshot of the accumulators.
	Pose(ctx context.Context) (Pose, error)
	// Reset zeroes distance and heading in one step.
	Reset(ctx context.Context) error
}

// Accumulator integrates wheel displacement into a Pose. It is the odometry used by the
// simulator and by tests, and it is safe for an integrating goroutine and a reading goroutine
// to use concurrently.
type Accumulator struct {
	mu   sync.Mutex
	pose Pose
}

// NewAccumulator returns a zeroed accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Integrate adds one step of displacement, distance in meters and heading change in radians.
func (a *Accumulator) Integrate(at time.Time, dDist, dTurned float64, velocity float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pose.Distance += dDist
	a.pose.Turned += dTurned
	a.pose.Velocity = velocity
	a.pose.Updated = at
}

// Pose returns the current accumulators.
func (a *Accumulator) Pose(ctx context.Context) (Pose, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pose, nil
}

// Reset zeroes distance and heading. Velocity is kept, it is a measurement and not an
// accumulator.
func (a *Accumulator) Reset(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pose.Distance = 0
	a.pose.Turned = 0
	return nil
}

// NormalizeAngle wraps an angle in radians to (-pi, pi].
func NormalizeAngle(angle float64) float64 {
	angle = math.Mod(angle, 2*math.Pi)
	if angle > math.Pi {
		angle -= 2 * math.Pi
	} else if angle <= -math.Pi {
		angle += 2 * math.Pi
	}
	return angle
}
