package lineedge

import (
	"testing"

	"go.viam.com/test"
)

func TestKnownCalibrationsAreValid(t *testing.T) {
	for _, name := range []string{"black", "wood", "gate-wood", "gate-black"} {
		c, ok := Known(name)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, c.Validate("calibration."+name), test.ShouldBeNil)
	}
	_, ok := Known("carpet")
	test.That(t, ok, test.ShouldBeFalse)
}

func TestCalibrationValidate(t *testing.T) {
	err := Calibration{Black: Black.Black, WhiteThreshold: 400}.Validate("cal")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "name")

	err = Calibration{Name: "short", Black: []int{1, 2}, WhiteThreshold: 400}.Validate("cal")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "8 values")

	err = Calibration{Name: "dim", Black: Wood.Black, WhiteThreshold: 400}.Validate("cal")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "white_threshold")
}
