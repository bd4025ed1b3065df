package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"

	"github.com/menta2k/vertical-cropper/pkg/types"
)

// DefaultPigoCascade is where the pigo facefinder model is looked up by default.
// The model is not bundled; it ships with github.com/esimov/pigo under
// cascade/facefinder.
const DefaultPigoCascade = "models/facefinder"

const (
	pigoShiftFactor  = 0.1
	pigoIoUThreshold = 0.2
	pigoMinSize      = 20
	// Each requested neighbour adds this much to the required detection quality,
	// so the default of 8 neighbours asks for a score of 5.
	pigoQualityPerNeighbor = 0.625
)

// PigoDetector detects faces with the pure-Go pigo cascade classifier
type PigoDetector struct {
	classifier *pigo.Pigo
}

// NewPigoDetector creates a detector from an unpacked facefinder cascade
func NewPigoDetector(cascade []byte) (*PigoDetector, error) {
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack cascade: %w", err)
	}
	return &PigoDetector{classifier: classifier}, nil
}

// LoadPigoDetector reads the cascade file at path
func LoadPigoDetector(path string) (*PigoDetector, error) {
	cascade, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cascade file: %w", err)
	}
	return NewPigoDetector(cascade)
}

func init() {
	RegisterDetector("pigo", func(opts Options) (FaceDetector, error) {
		path := opts.CascadePath
		if path == "" {
			path = DefaultPigoCascade
		}
		d, err := LoadPigoDetector(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w (download the pigo facefinder cascade and pass --cascade, or use --detector saliency)", err)
		}
		return d, err
	})
}

// Detect implements FaceDetector
func (d *PigoDetector) Detect(ctx context.Context, img image.Image, params DetectParams) ([]types.Rectangle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gray, err := Downsample(img, 1)
	if err != nil {
		return nil, err
	}
	bounds := gray.Bounds()
	cols, rows := bounds.Dx(), bounds.Dy()

	minSize := max(params.MinSize.X, params.MinSize.Y)
	if minSize <= 0 {
		minSize = pigoMinSize
	}
	maxSize := min(cols, rows)
	if minSize > maxSize {
		return nil, nil
	}
	scale := params.ScaleFactor
	if scale <= 1 {
		scale = 1.1
	}

	cParams := pigo.CascadeParams{
		MinSize:     minSize,
		MaxSize:     maxSize,
		ShiftFactor: pigoShiftFactor,
		ScaleFactor: scale,
		ImageParams: pigo.ImageParams{
			Pixels: gray.Pix,
			Rows:   rows,
			Cols:   cols,
			Dim:    gray.Stride,
		},
	}

	dets := d.classifier.RunCascade(cParams, 0.0)
	dets = d.classifier.ClusterDetections(dets, pigoIoUThreshold)

	return convertPigoDetections(dets, params.MinNeighbors, img.Bounds()), nil
}

func convertPigoDetections(dets []pigo.Detection, minNeighbors int, bounds image.Rectangle) []types.Rectangle {
	threshold := float32(minNeighbors) * pigoQualityPerNeighbor
	frame := image.Rect(0, 0, bounds.Dx(), bounds.Dy())

	var faces []types.Rectangle
	for _, det := range dets {
		if det.Q < threshold {
			continue
		}
		// Row/Col is the face center and Scale its side length.
		half := det.Scale / 2
		r := image.Rect(det.Col-half, det.Row-half, det.Col-half+det.Scale, det.Row-half+det.Scale).Intersect(frame)
		if r.Empty() {
			continue
		}
		faces = append(faces, types.FromImageRect(r, frame))
	}
	return faces
}
