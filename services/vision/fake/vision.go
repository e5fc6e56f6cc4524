// Package fake implements a scripted ball finder.
package fake

import (
	"context"
	"image"
	"sync"
)

// BallFinder returns a settable detection.
type BallFinder struct {
	mu     sync.Mutex
	center image.Point
	found  bool
	calls  int
}

// NewBallFinder returns a finder that sees nothing.
func NewBallFinder() *BallFinder {
	return &BallFinder{}
}

// Set changes the detection.
func (f *BallFinder) Set(center image.Point, found bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.center = center
	f.found = found
}

// FindBall returns the current detection.
func (f *BallFinder) FindBall(ctx context.Context) (image.Point, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.center, f.found, nil
}

// Calls returns how many times FindBall was called.
func (f *BallFinder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
