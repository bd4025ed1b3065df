// Package geometry places crop windows inside frame bounds.
package geometry

import (
	"math"

	"github.com/menta2k/vertical-cropper/pkg/types"
)

// WindowSize returns the crop window dimensions for a frame and target aspect ratio
// (width/height). The full frame height is kept unless the resulting width would
// exceed the frame, in which case the width is pinned to the frame and the height derived.
func WindowSize(frameWidth, frameHeight int, aspect float64) (int, int) {
	if frameWidth <= 0 || frameHeight <= 0 {
		return 0, 0
	}
	if aspect <= 0 || math.IsNaN(aspect) || math.IsInf(aspect, 0) {
		aspect = types.DefaultAspectRatio
	}

	height := frameHeight
	width := int(math.Round(float64(height) * aspect))
	if width > frameWidth {
		width = frameWidth
		height = int(math.Round(float64(width) / aspect))
		if height > frameHeight {
			height = frameHeight
		}
	}

	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return width, height
}

// Clamp returns the crop window of the target aspect whose center is as close as
// possible to desired while staying fully inside the frame. When the width is
// pinned to the frame the window is centered vertically and desired.Y is
// ignored. It never fails: a
// non-finite center falls back to the frame center and a non-positive frame size
// yields the zero rectangle.
func Clamp(desired types.Point, frameWidth, frameHeight int, aspect float64) types.Rectangle {
	width, height := WindowSize(frameWidth, frameHeight, aspect)
	if width == 0 || height == 0 {
		return types.Rectangle{}
	}

	if !desired.Finite() {
		desired = FrameCenter(frameWidth, frameHeight)
	}

	x := clampInt(roundToInt(desired.X-float64(width)/2), 0, frameWidth-width)
	y := 0
	if height < frameHeight {
		y = roundToInt(float64(frameHeight-height) / 2)
	}

	return types.Rectangle{X: x, Y: y, Width: width, Height: height}
}

// FrameCenter returns the geometric center of a frame
func FrameCenter(frameWidth, frameHeight int) types.Point {
	return types.Point{X: float64(frameWidth) / 2, Y: float64(frameHeight) / 2}
}

// ClampPoint keeps a point inside [0,width] x [0,height]
func ClampPoint(p types.Point, frameWidth, frameHeight int) types.Point {
	return types.Point{
		X: math.Max(0, math.Min(p.X, float64(frameWidth))),
		Y: math.Max(0, math.Min(p.Y, float64(frameHeight))),
	}
}

func roundToInt(v float64) int {
	// Guard the float to int conversion for centers far outside the frame.
	const limit = 1 << 40
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return int(math.Round(v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
