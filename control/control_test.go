package control

import (
	"context"
	"testing"
	"time"

	"go.viam.com/test"

	"robobot.dev/raubase/logging"
)

func TestNewBlock(t *testing.T) {
	logger := logging.NewTestLogger(t)
	_, err := NewBlock(BlockConfig{Name: "x", Type: "integrator"}, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unsupported block type")

	_, err = NewBlock(BlockConfig{Name: "p", Type: blockPID, Attribute: AttributeMap{}}, logger)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewBlock(BlockConfig{Name: "r", Type: blockRateLimiter, Attribute: AttributeMap{"max_rate": -1}}, logger)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewBlock(BlockConfig{Name: "f", Type: blockMovingAverage, Attribute: AttributeMap{"filter_size": "three"}}, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPIDBlock(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	b, err := NewBlock(PIDConfig("heading", 2, 0.5, 0, 3), logger)
	test.That(t, err, test.ShouldBeNil)

	dt := 10 * time.Millisecond
	y, ok := b.Next(ctx, 1, dt)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, y, test.ShouldAlmostEqual, 2+0.5*0.01)

	// A large error saturates at the limit.
	y, ok = b.Next(ctx, 10, dt)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, y, test.ShouldEqual, 3)
	test.That(t, b.Output(ctx), test.ShouldEqual, 3)

	y, _ = b.Next(ctx, -10, dt)
	test.That(t, y, test.ShouldEqual, -3)

	test.That(t, b.Reset(ctx), test.ShouldBeNil)
	test.That(t, b.Output(ctx), test.ShouldEqual, 0)

	_, ok = b.Next(ctx, 1, 0)
	test.That(t, ok, test.ShouldBeFalse)

	test.That(t, b.UpdateConfig(ctx, PIDConfig("heading", 1, 0, 0, 0)), test.ShouldNotBeNil)
}

func TestPIDDerivative(t *testing.T) {
	ctx := context.Background()
	b, err := NewBlock(PIDConfig("d", 0, 0, 0.1, 100), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	// No derivative kick on the first sample.
	y, _ := b.Next(ctx, 5, 100*time.Millisecond)
	test.That(t, y, test.ShouldEqual, 0)
	y, _ = b.Next(ctx, 4, 100*time.Millisecond)
	test.That(t, y, test.ShouldAlmostEqual, -1)
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()
	b, err := NewBlock(RateLimiterConfig("velocity", 1), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	var y float64
	for i := 0; i < 5; i++ {
		y, _ = b.Next(ctx, 0.3, 100*time.Millisecond)
	}
	test.That(t, y, test.ShouldAlmostEqual, 0.3)

	y, _ = b.Next(ctx, -1, 100*time.Millisecond)
	test.That(t, y, test.ShouldAlmostEqual, 0.2)
	test.That(t, b.Config(ctx).Name, test.ShouldEqual, "velocity")
}

func TestMovingAverage(t *testing.T) {
	ctx := context.Background()
	b, err := NewBlock(MovingAverageConfig("range", 3), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	_, ok := b.Next(ctx, 1, 0)
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = b.Next(ctx, 2, 0)
	test.That(t, ok, test.ShouldBeFalse)
	y, ok := b.Next(ctx, 3, 0)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, y, test.ShouldAlmostEqual, 2)
	y, _ = b.Next(ctx, 7, 0)
	test.That(t, y, test.ShouldAlmostEqual, 4)
}

func TestAttributeMap(t *testing.T) {
	a := AttributeMap{"f": "1.5", "i": 3.0, "bad": "x"}
	test.That(t, a.Float64("f", 0), test.ShouldEqual, 1.5)
	test.That(t, a.Int("i", 0), test.ShouldEqual, 3)
	test.That(t, a.Float64("bad", 9), test.ShouldEqual, 9)
	test.That(t, a.Int("missing", 4), test.ShouldEqual, 4)
	test.That(t, a.Has("f"), test.ShouldBeTrue)
}
