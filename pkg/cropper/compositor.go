// Package cropper turns crop windows into output frames.
package cropper

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/vertical-cropper/pkg/types"
)

// Compositor crops frames to a window and scales them to a fixed output size
type Compositor struct {
	config CompositorConfig
	width  int
	height int
}

// CompositorConfig holds configuration for frame composition
type CompositorConfig struct {
	AspectRatio float64
	// OutputHeight is the height of emitted frames. Zero keeps the height of
	// the first window.
	OutputHeight int
	Filter       imaging.ResampleFilter
}

// New creates a new Compositor using Lanczos resampling
func New(aspect float64, outputHeight int) *Compositor {
	return NewWithConfig(CompositorConfig{
		AspectRatio:  aspect,
		OutputHeight: outputHeight,
		Filter:       imaging.Lanczos,
	})
}

// NewWithConfig creates a new Compositor with custom configuration
func NewWithConfig(config CompositorConfig) *Compositor {
	if config.AspectRatio <= 0 || math.IsNaN(config.AspectRatio) || math.IsInf(config.AspectRatio, 0) {
		config.AspectRatio = types.DefaultAspectRatio
	}
	c := &Compositor{config: config}
	if config.OutputHeight > 0 {
		c.width, c.height = OutputSize(config.AspectRatio, config.OutputHeight)
	}
	return c
}

// OutputSize returns the output frame size for a base height. Both sides are
// rounded to even numbers as required by 4:2:0 encoders.
func OutputSize(aspect float64, baseHeight int) (int, int) {
	height := even(baseHeight)
	width := even(int(math.Round(float64(height) * aspect)))
	return width, height
}

func even(v int) int {
	if v < 2 {
		return 2
	}
	return v &^ 1
}

// Size returns the output size, or zeros until it is known
func (c *Compositor) Size() (int, int) {
	return c.width, c.height
}

// Compose crops frame to window and resizes the result to the output size
func (c *Compositor) Compose(frame image.Image, window types.Rectangle) (image.Image, error) {
	b := frame.Bounds()
	if window.Empty() || !window.Within(b.Dx(), b.Dy()) {
		return nil, fmt.Errorf("%w: window %dx%d+%d+%d outside %dx%d frame",
			types.ErrDimensionMismatch, window.Width, window.Height, window.X, window.Y, b.Dx(), b.Dy())
	}
	if c.height == 0 {
		c.width, c.height = OutputSize(c.config.AspectRatio, window.Height)
	}

	cropped := imaging.Crop(frame, window.ImageRect().Add(b.Min))
	if window.Width == c.width && window.Height == c.height {
		return cropped, nil
	}
	return imaging.Resize(cropped, c.width, c.height, c.config.Filter), nil
}
