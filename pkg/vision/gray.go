package vision

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Downsample converts img to grey at scale times its resolution. Scales outside
// (0,1] keep the native resolution.
func Downsample(img image.Image, scale float64) (*image.Gray, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, ErrDegenerateFrame
	}
	if scale <= 0 || scale > 1 || math.IsNaN(scale) {
		scale = 1
	}

	w := int(math.Round(float64(bounds.Dx()) * scale))
	h := int(math.Round(float64(bounds.Dy()) * scale))
	if w < 1 || h < 1 {
		return nil, ErrDegenerateFrame
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	if w == bounds.Dx() && h == bounds.Dy() {
		draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
		return dst, nil
	}
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst, nil
}
