package sim

import (
	"context"
	"image"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"robobot.dev/raubase/components/lineedge"
	"robobot.dev/raubase/components/mixer"
	"robobot.dev/raubase/logging"
)

var start = time.Unix(1_700_000_000, 0)

func newTestWorld(t *testing.T) (*World, *Clock) {
	t.Helper()
	w, err := NewWorld(Config{}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return w, NewClock(w, start)
}

func float(v float64) *float64 { return &v }

func boolean(v bool) *bool { return &v }

func duration(d time.Duration) *time.Duration { return &d }

func TestVelocityRamp(t *testing.T) {
	ctx := context.Background()
	w, clk := newTestWorld(t)
	test.That(t, w.SetVelocity(ctx, 0.5), test.ShouldBeNil)

	clk.Sleep(100 * time.Millisecond)
	pose, err := w.Pose(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose.Velocity, test.ShouldAlmostEqual, 0.2, 1e-6)
	test.That(t, pose.Updated, test.ShouldEqual, start.Add(100*time.Millisecond))

	clk.Sleep(time.Second)
	pose, _ = w.Pose(ctx)
	test.That(t, pose.Velocity, test.ShouldAlmostEqual, 0.5, 1e-6)
	test.That(t, w.Elapsed(), test.ShouldEqual, 1100*time.Millisecond)
	test.That(t, w.Odometer(), test.ShouldAlmostEqual, pose.Distance, 1e-9)
}

func TestHeadingHold(t *testing.T) {
	ctx := context.Background()
	w, clk := newTestWorld(t)
	test.That(t, w.SetDesiredHeading(ctx, 1.5708), test.ShouldBeNil)

	clk.Sleep(2 * time.Second)
	pose, _ := w.Pose(ctx)
	test.That(t, pose.Turned, test.ShouldAlmostEqual, 1.5708, 0.01)

	// The heading is relative to the last reset.
	test.That(t, w.Reset(ctx), test.ShouldBeNil)
	test.That(t, w.SetMaxTurnRate(ctx, 1), test.ShouldBeNil)
	test.That(t, w.SetDesiredHeading(ctx, -1.0), test.ShouldBeNil)
	clk.Sleep(500 * time.Millisecond)
	pose, _ = w.Pose(ctx)
	test.That(t, pose.Turned, test.ShouldBeGreaterThanOrEqualTo, -0.5-1e-9)
	test.That(t, pose.Turned, test.ShouldBeLessThan, -0.4)

	reading, _ := w.Readings(ctx)
	test.That(t, reading.AngularVelocity.Z, test.ShouldAlmostEqual, -1*180/3.141592653589793, 1e-6)
	test.That(t, reading.Acceleration.Z, test.ShouldEqual, Gravity)

	test.That(t, w.SetMaxTurnRate(ctx, 0), test.ShouldNotBeNil)
}

func TestTurnRateAndEdgeMode(t *testing.T) {
	ctx := context.Background()
	w, clk := newTestWorld(t)
	test.That(t, w.SetTurnRate(ctx, 0.5), test.ShouldBeNil)
	clk.Sleep(time.Second)
	pose, _ := w.Pose(ctx)
	test.That(t, pose.Turned, test.ShouldAlmostEqual, 0.5, 1e-6)

	test.That(t, w.SetEdgeMode(ctx, mixer.RightEdge, 0.01), test.ShouldBeNil)
	clk.Sleep(time.Second)
	pose, _ = w.Pose(ctx)
	test.That(t, pose.Turned, test.ShouldAlmostEqual, 0.5, 1e-6)

	test.That(t, w.Commands(), test.ShouldResemble, []mixer.Command{
		{Kind: mixer.TurnRate, Value: 0.5},
		{Kind: mixer.EdgeMode, Value: 0.01, Side: mixer.RightEdge},
	})
}

func TestServoMotion(t *testing.T) {
	ctx := context.Background()
	w, clk := newTestWorld(t)
	test.That(t, w.SetServo(ctx, 1, true, 300, 400), test.ShouldBeNil)
	clk.Sleep(500 * time.Millisecond)
	pos, err := w.Position(ctx, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pos, test.ShouldEqual, 200)

	clk.Sleep(500 * time.Millisecond)
	pos, _ = w.Position(ctx, 1)
	test.That(t, pos, test.ShouldEqual, 300)

	// A disabled servo stays where it is.
	test.That(t, w.SetServo(ctx, 1, false, 0, 0), test.ShouldBeNil)
	clk.Sleep(500 * time.Millisecond)
	pos, _ = w.Position(ctx, 1)
	test.That(t, pos, test.ShouldEqual, 300)

	test.That(t, w.SetServo(ctx, 9, true, 0, 0), test.ShouldNotBeNil)
	_, err = w.Position(ctx, 0)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestScheduledEvents(t *testing.T) {
	ctx := context.Background()
	w, clk := newTestWorld(t)
	w.Schedule(
		Event{Distance: float(0.1), Line: &LineEvent{Width: float(0.08)}},
		Event{At: duration(50 * time.Millisecond), Ranges: map[int]float64{0: 0.15}},
		Event{Distance: float(0.05), Line: &LineEvent{Valid: boolean(false)}},
	)
	test.That(t, w.SetTurnRate(ctx, 0), test.ShouldBeNil)

	clk.Sleep(60 * time.Millisecond)
	ranges, _ := w.Ranges(ctx)
	test.That(t, ranges, test.ShouldResemble, []float64{0.15, 2})
	edge, _ := w.Edge(ctx)
	test.That(t, edge, test.ShouldResemble, lineedge.Reading{Width: 0.02, Valid: true})

	// Reverse: the odometer counts distance in either direction.
	test.That(t, w.SetVelocity(ctx, -1), test.ShouldBeNil)
	clk.Sleep(time.Second)
	edge, _ = w.Edge(ctx)
	test.That(t, edge, test.ShouldResemble, lineedge.Reading{Width: 0.08, Valid: false})
	pose, _ := w.Pose(ctx)
	test.That(t, pose.Distance, test.ShouldBeLessThan, 0)
}

func TestBallMovesInImage(t *testing.T) {
	ctx := context.Background()
	w, clk := newTestWorld(t)
	_, found, err := w.FindBall(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, found, test.ShouldBeFalse)

	w.Script(Event{Ball: &BallEvent{X: 320, Y: 240}})
	test.That(t, w.SetTurnRate(ctx, 0.1), test.ShouldBeNil)
	clk.Sleep(time.Second)
	center, found, _ := w.FindBall(ctx)
	test.That(t, found, test.ShouldBeTrue)
	test.That(t, center, test.ShouldResemble, image.Pt(360, 240))

	w.Script(Event{Ball: &BallEvent{Found: boolean(false)}})
	_, found, _ = w.FindBall(ctx)
	test.That(t, found, test.ShouldBeFalse)
}

func TestCalibrate(t *testing.T) {
	ctx := context.Background()
	w, _ := newTestWorld(t)
	test.That(t, w.Calibrate(ctx, lineedge.Wood), test.ShouldBeNil)
	test.That(t, w.Calibrate(ctx, lineedge.Calibration{Name: "short", Black: []int{1}}), test.ShouldNotBeNil)
	test.That(t, w.Calibrations(), test.ShouldResemble, []string{"wood"})
}

func TestRobot(t *testing.T) {
	w, clk := newTestWorld(t)
	r, err := w.Robot()
	test.That(t, err, test.ShouldBeNil)
	clk.Sleep(time.Millisecond)
	snap, err := r.Snapshot(context.Background(), clk.Now())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, snap.Edge.Valid, test.ShouldBeTrue)
	test.That(t, snap.Ranges, test.ShouldHaveLength, 2)
	test.That(t, snap.Servo[1], test.ShouldEqual, 0)
}

func TestParseTrace(t *testing.T) {
	tr, err := ParseTrace(strings.NewReader(`
name: probe
mission: approach
world:
  step: 2ms
  ranges: 3
initial:
  line: {valid: false, width: 0}
events:
  - at: 1s
    line: {valid: true, width: 0.03}
  - distance: 0.4
    ranges: {0: 0.1}
    accel: [0, 0, 12]
expect:
  outcome: finished
`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tr.Mission, test.ShouldEqual, "approach")
	test.That(t, tr.World.Step, test.ShouldEqual, 2*time.Millisecond)
	test.That(t, *tr.Events[0].At, test.ShouldEqual, time.Second)
	test.That(t, *tr.Events[1].Distance, test.ShouldEqual, 0.4)
	test.That(t, tr.Expect.Outcome, test.ShouldEqual, "finished")

	w, err := NewWorldFromTrace(tr, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	edge, _ := w.Edge(context.Background())
	test.That(t, edge.Valid, test.ShouldBeFalse)
	ranges, _ := w.Ranges(context.Background())
	test.That(t, ranges, test.ShouldHaveLength, 3)

	_, err = ParseTrace(strings.NewReader("name: bad\nevents:\n  - line: {width: 0.1}\n"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "exactly one of at or distance")

	_, err = ParseTrace(strings.NewReader("name: bad\nspeed: 3\n"))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = ParseTrace(strings.NewReader("name: bad\ninitial:\n  accel: [1, 2]\n"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestBuiltinTraces(t *testing.T) {
	names := BuiltinTraces()
	test.That(t, names, test.ShouldNotBeEmpty)
	for _, name := range names {
		tr, err := LoadTrace(name)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, tr.Name, test.ShouldEqual, name)
		test.That(t, tr.Mission, test.ShouldNotBeEmpty)
	}
	_, err := BuiltinTrace("nope")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = LoadTrace("/nonexistent/trace.yaml")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDeterministic(t *testing.T) {
	run := func() (float64, float64) {
		w, clk := newTestWorld(t)
		ctx := context.Background()
		w.Schedule(Event{Distance: float(0.2), Ranges: map[int]float64{1: 0.1}})
		test.That(t, w.SetVelocity(ctx, 0.3), test.ShouldBeNil)
		test.That(t, w.SetDesiredHeading(ctx, 0.7), test.ShouldBeNil)
		clk.Sleep(1234 * time.Millisecond)
		pose, _ := w.Pose(ctx)
		return pose.Distance, pose.Turned
	}
	d1, h1 := run()
	d2, h2 := run()
	test.That(t, d1, test.ShouldEqual, d2)
	test.That(t, h1, test.ShouldEqual, h2)
}

func TestRealTime(t *testing.T) {
	w, _ := newTestWorld(t)
	mock := clock.NewMock()
	workers := w.Run(context.Background(), mock)
	test.That(t, w.SetVelocity(context.Background(), 1), test.ShouldBeNil)

	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		mock.Add(time.Millisecond)
		test.That(tb, w.Elapsed(), test.ShouldBeGreaterThan, 0)
	})
	workers.Stop()
	elapsed := w.Elapsed()
	mock.Add(10 * time.Millisecond)
	test.That(t, w.Elapsed(), test.ShouldEqual, elapsed)
}
