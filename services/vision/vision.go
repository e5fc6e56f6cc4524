// Package vision is the boundary to the camera pipeline. Image processing itself lives outside
// this module; missions only consume detections.
package vision

import (
	"context"
	"image"
)

// BallFinder locates the golf ball in the current camera frame.
type BallFinder interface {
	// FindBall returns the ball center in image pixels, and false when no ball is visible.
	FindBall(ctx context.Context) (image.Point, bool, error)
}
