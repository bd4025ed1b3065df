// Package strategy decides, frame by frame, where the vertical crop window sits
// inside the source frame.
//
// Three strategies are available: a fixed anchor computed from face detections
// over the opening frames, a smoothed focus point driven by optical flow, and a
// fixed center crop. Every window they return lies fully inside the frame and
// has the configured aspect ratio.
package strategy

import (
	"image"

	"github.com/menta2k/vertical-cropper/pkg/types"
)

// Strategy returns the crop window for a frame
type Strategy interface {
	WindowFor(index int, frame image.Image) types.Rectangle
}

// focuser is implemented by strategies that track a focus point
type focuser interface {
	Focus() (types.Point, bool)
}

func frameSize(frame image.Image) (int, int) {
	if frame == nil {
		return 0, 0
	}
	b := frame.Bounds()
	return b.Dx(), b.Dy()
}
