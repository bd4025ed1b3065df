//go:build withcv

package vision

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/menta2k/vertical-cropper/pkg/types"
)

// DefaultHaarCascade is the OpenCV frontal face model looked up by default
const DefaultHaarCascade = "models/haarcascade_frontalface_default.xml"

// HaarDetector detects faces with an OpenCV Haar cascade
type HaarDetector struct {
	mu         sync.Mutex
	classifier gocv.CascadeClassifier
}

// NewHaarDetector loads the cascade XML at path
func NewHaarDetector(path string) (*HaarDetector, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load cascade file %s", path)
	}
	return &HaarDetector{classifier: classifier}, nil
}

func init() {
	RegisterDetector("haar", func(opts Options) (FaceDetector, error) {
		path := opts.CascadePath
		if path == "" {
			path = DefaultHaarCascade
		}
		return NewHaarDetector(path)
	})
}

// Detect implements FaceDetector
func (d *HaarDetector) Detect(ctx context.Context, img image.Image, params DetectParams) ([]types.Rectangle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	scale := params.ScaleFactor
	if scale <= 1 {
		scale = 1.1
	}

	d.mu.Lock()
	rects := d.classifier.DetectMultiScaleWithParams(gray, scale, params.MinNeighbors, 0, params.MinSize, image.Point{})
	d.mu.Unlock()

	faces := make([]types.Rectangle, 0, len(rects))
	for _, r := range rects {
		faces = append(faces, types.FromImageRect(r, image.Rectangle{}))
	}
	return faces, nil
}

// Close releases the classifier
func (d *HaarDetector) Close() error {
	return d.classifier.Close()
}
