// Package lineedge defines the line sensor edge detector and its floor calibrations.
package lineedge

import (
	"context"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// SensorCount is the number of reflectance sensors on the line sensor bar.
const SensorCount = 8

// Reading is one detector output.
type Reading struct {
	// Width is the detected line width in meters. Crossings and intersections read wide.
	Width float64
	// Valid is true when a line edge is currently detected.
	Valid bool
	// Left and Right are the edge positions in meters relative to the sensor center.
	Left  float64
	Right float64
}

// Calibration is a floor calibration. Black holds the raw sensor values over a dark surface and
// WhiteThreshold the raw level above which a sensor is considered to see the line.
type Calibration struct {
	Name           string `toml:"name" mapstructure:"name"`
	Black          []int  `toml:"black" mapstructure:"black"`
	WhiteThreshold int    `toml:"white_threshold" mapstructure:"white_threshold"`
}

// Validate ensures the calibration can be sent to the detector.
func (c Calibration) Validate(path string) error {
	if c.Name == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if len(c.Black) != SensorCount {
		return utils.NewConfigValidationError(path,
			errors.Errorf("black must have %d values, got %d", SensorCount, len(c.Black)))
	}
	for i, v := range c.Black {
		if v < 0 || v >= c.WhiteThreshold {
			return utils.NewConfigValidationError(path,
				errors.Errorf("black[%d]=%d must be in [0, white_threshold=%d)", i, v, c.WhiteThreshold))
		}
	}
	return nil
}

// Well known calibrations of the competition course.
var (
	// Black is the default calibration over the black course floor.
	Black = Calibration{
		Name:           "black",
		Black:          []int{34, 33, 40, 44, 52, 52, 49, 46},
		WhiteThreshold: 400,
	}
	// Wood is the calibration over the wooden ramps and the stairs.
	Wood = Calibration{
		Name:           "wood",
		Black:          []int{384, 479, 495, 467, 506, 506, 463, 391},
		WhiteThreshold: 600,
	}
	// GateWood is the wood calibration measured at the gate.
	GateWood = Calibration{
		Name:           "gate-wood",
		Black:          []int{352, 436, 468, 461, 503, 499, 460, 391},
		WhiteThreshold: 550,
	}
	// GateBlack is the black calibration used when leaving the gate.
	GateBlack = Calibration{
		Name:           "gate-black",
		Black:          []int{34, 33, 40, 44, 52, 52, 49, 46},
		WhiteThreshold: 350,
	}
)

// Known returns the built in calibration named name.
func Known(name string) (Calibration, bool) {
	for _, c := range []Calibration{Black, Wood, GateWood, GateBlack} {
		if c.Name == name {
			return c, true
		}
	}
	return Calibration{}, false
}

// Detector is the line edge detector.
type Detector interface {
	// Edge returns the latest detector reading.
	Edge(ctx context.Context) (Reading, error)
	// Calibrate swaps the floor calibration. It takes effect from the next reading.
	Calibrate(ctx context.Context, calibration Calibration) error
}
