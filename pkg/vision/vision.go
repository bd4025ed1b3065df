// Package vision provides the classical computer-vision primitives the crop
// engine consumes: face detection and optical flow between downsampled frames.
//
// Backends register themselves by name (see registry.go). The pure-Go backends
// (pigo face detection, block-matching flow) are always available; OpenCV-backed
// ones (Haar cascades, Farneback flow) are compiled in with the withcv build tag.
package vision

import (
	"context"
	"errors"
	"image"
	"math"

	"github.com/menta2k/vertical-cropper/pkg/types"
)

// ErrDegenerateFrame is returned when a frame has no usable pixels
var ErrDegenerateFrame = errors.New("degenerate frame")

// DetectParams carries the tuning knobs of a face detection pass
type DetectParams struct {
	ScaleFactor  float64
	MinNeighbors int
	MinSize      image.Point
}

// ParamsFromConfig builds detection parameters from the face configuration
func ParamsFromConfig(cfg types.FaceDetectionConfig) DetectParams {
	return DetectParams{
		ScaleFactor:  cfg.ScaleFactor,
		MinNeighbors: cfg.MinNeighbors,
		MinSize:      image.Pt(cfg.MinSize[0], cfg.MinSize[1]),
	}
}

// FaceDetector finds face rectangles in a frame. An empty result is not an error.
// Implementations return ctx.Err() once ctx is done.
type FaceDetector interface {
	Detect(ctx context.Context, img image.Image, params DetectParams) ([]types.Rectangle, error)
}

// Vector is a displacement measured at a position of the previous frame
type Vector struct {
	X, Y   float64
	DX, DY float64
}

// Magnitude returns the length of the displacement
func (v Vector) Magnitude() float64 {
	return math.Hypot(v.DX, v.DY)
}

// Field is a sampled motion field between two frames of equal size
type Field struct {
	Width   int
	Height  int
	Vectors []Vector
}

// FlowEngine measures motion between two grey frames. Implementations must be
// deterministic for identical inputs.
type FlowEngine interface {
	Flow(prev, curr *image.Gray) (Field, error)
}
