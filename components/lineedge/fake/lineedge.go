// Package fake implements a fake line edge detector.
package fake

import (
	"context"
	"sync"

	"robobot.dev/raubase/components/lineedge"
)

// Detector is a fake lineedge.Detector returning a settable reading.
type Detector struct {
	mu           sync.Mutex
	reading      lineedge.Reading
	calibrations []lineedge.Calibration
}

// NewDetector returns a detector with a valid, narrow line.
func NewDetector() *Detector {
	return &Detector{reading: lineedge.Reading{Width: 0.02, Valid: true}}
}

// Set replaces the reading returned by Edge.
func (d *Detector) Set(reading lineedge.Reading) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reading = reading
}

// Edge returns the current reading.
func (d *Detector) Edge(ctx context.Context) (lineedge.Reading, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reading, nil
}

// Calibrate records the calibration.
func (d *Detector) Calibrate(ctx context.Context, calibration lineedge.Calibration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calibrations = append(d.calibrations, calibration)
	return nil
}

// Calibrations returns the names of every calibration applied so far, oldest first.
func (d *Detector) Calibrations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.calibrations))
	for _, c := range d.calibrations {
		names = append(names, c.Name)
	}
	return names
}
