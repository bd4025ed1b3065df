//go:build withcv

package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// FarnebackEngine computes dense Farneback optical flow with OpenCV and samples
// it on a regular grid.
type FarnebackEngine struct {
	// Step is the sampling grid spacing in pixels
	Step int
}

func init() {
	RegisterFlowEngine("farneback", func(Options) (FlowEngine, error) {
		return &FarnebackEngine{Step: 4}, nil
	})
}

// Flow implements FlowEngine
func (e *FarnebackEngine) Flow(prev, curr *image.Gray) (Field, error) {
	if prev == nil || curr == nil {
		return Field{}, ErrDegenerateFrame
	}
	pb, cb := prev.Bounds(), curr.Bounds()
	if pb.Dx() != cb.Dx() || pb.Dy() != cb.Dy() {
		return Field{}, fmt.Errorf("frame size changed from %dx%d to %dx%d", pb.Dx(), pb.Dy(), cb.Dx(), cb.Dy())
	}

	p, err := grayToMat(prev)
	if err != nil {
		return Field{}, err
	}
	defer p.Close()
	c, err := grayToMat(curr)
	if err != nil {
		return Field{}, err
	}
	defer c.Close()

	flow := gocv.NewMat()
	defer flow.Close()
	gocv.CalcOpticalFlowFarneback(p, c, &flow, 0.5, 3, 15, 3, 5, 1.2, 0)

	step := e.Step
	if step <= 0 {
		step = 1
	}
	field := Field{Width: pb.Dx(), Height: pb.Dy()}
	for y := step / 2; y < flow.Rows(); y += step {
		for x := step / 2; x < flow.Cols(); x += step {
			v := flow.GetVecfAt(y, x)
			field.Vectors = append(field.Vectors, Vector{
				X:  float64(x),
				Y:  float64(y),
				DX: float64(v[0]),
				DY: float64(v[1]),
			})
		}
	}
	return field, nil
}

func grayToMat(img *image.Gray) (gocv.Mat, error) {
	b := img.Bounds()
	pix := make([]byte, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		pix = append(pix, img.Pix[off:off+b.Dx()]...)
	}
	mat, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8U, pix)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to wrap frame: %w", err)
	}
	return mat, nil
}
