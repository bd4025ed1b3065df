package strategy

import (
	"image"

	"github.com/menta2k/vertical-cropper/pkg/geometry"
	"github.com/menta2k/vertical-cropper/pkg/types"
)

// Center always crops the middle of the frame
type Center struct {
	aspect float64
}

// NewCenter creates a new Center strategy
func NewCenter(aspect float64) *Center {
	return &Center{aspect: aspect}
}

// WindowFor implements Strategy
func (c *Center) WindowFor(_ int, frame image.Image) types.Rectangle {
	w, h := frameSize(frame)
	return geometry.Clamp(geometry.FrameCenter(w, h), w, h, c.aspect)
}
