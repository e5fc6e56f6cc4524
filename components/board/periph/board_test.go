package periph

import (
	"context"
	"testing"

	"go.viam.com/test"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func TestGPIOPin(t *testing.T) {
	ctx := context.Background()
	pin := NewGPIOPin(&gpiotest.Pin{N: "GPIO16", Num: 16})

	high, err := pin.Get(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, high, test.ShouldBeFalse)

	test.That(t, pin.Set(ctx, true), test.ShouldBeNil)
	high, err = pin.Get(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, high, test.ShouldBeTrue)

	test.That(t, pin.Set(ctx, false), test.ShouldBeNil)
	high, err = pin.Get(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, high, test.ShouldBeFalse)
}
