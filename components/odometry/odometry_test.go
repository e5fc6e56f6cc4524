package odometry

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"go.viam.com/test"
)

func TestAccumulator(t *testing.T) {
	ctx := context.Background()
	acc := NewAccumulator()
	now := time.Unix(100, 0)

	acc.Integrate(now, 0.25, 0.1, 0.5)
	acc.Integrate(now.Add(time.Millisecond), 0.25, -0.3, 0.6)
	pose, err := acc.Pose(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose.Distance, test.ShouldAlmostEqual, 0.5)
	test.That(t, pose.Turned, test.ShouldAlmostEqual, -0.2)
	test.That(t, pose.Velocity, test.ShouldEqual, 0.6)
	test.That(t, pose.Updated, test.ShouldEqual, now.Add(time.Millisecond))

	test.That(t, acc.Reset(ctx), test.ShouldBeNil)
	pose, err = acc.Pose(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose.Distance, test.ShouldEqual, 0)
	test.That(t, pose.Turned, test.ShouldEqual, 0)
	test.That(t, pose.Velocity, test.ShouldEqual, 0.6)
}

// The integrator always adds equal distance and heading, so any snapshot with the two
// accumulators out of step would be a torn reset.
func TestResetIsAtomic(t *testing.T) {
	ctx := context.Background()
	acc := NewAccumulator()
	done := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				acc.Integrate(time.Time{}, 0.001, 0.001, 0)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				//nolint:errcheck
				acc.Reset(ctx)
			}
		}
	}()

	for i := 0; i < 20000; i++ {
		pose, err := acc.Pose(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, pose.Distance, test.ShouldEqual, pose.Turned)
	}
	close(done)
	wg.Wait()
}

func TestNormalizeAngle(t *testing.T) {
	test.That(t, NormalizeAngle(0), test.ShouldEqual, 0)
	test.That(t, NormalizeAngle(math.Pi), test.ShouldAlmostEqual, math.Pi)
	test.That(t, NormalizeAngle(-math.Pi), test.ShouldAlmostEqual, math.Pi)
	test.That(t, NormalizeAngle(3*math.Pi/2), test.ShouldAlmostEqual, -math.Pi/2)
	test.That(t, NormalizeAngle(-5*math.Pi/2), test.ShouldAlmostEqual, -math.Pi/2)
}
