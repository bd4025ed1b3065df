package strategy

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/menta2k/vertical-cropper/pkg/geometry"
	"github.com/menta2k/vertical-cropper/pkg/types"
	"github.com/menta2k/vertical-cropper/pkg/video"
	"github.com/menta2k/vertical-cropper/pkg/vision"
)

// FaceAnchor crops around the typical face position of the opening frames.
// The anchor is computed once at construction and never moves afterwards.
type FaceAnchor struct {
	aspect   float64
	detected bool
	// anchor is the desired window center before clamping
	anchor types.Point
	width  int
	height int
	window types.Rectangle
}

// NewFaceAnchor samples up to cfg.SampleFrames frames from samples, runs the
// detector on each and fixes the crop anchor at the median face center shifted
// right by cfg.RightOffset. Without any detection the anchor is the frame center.
// Sampling stops with ctx.Err() as soon as ctx is done.
func NewFaceAnchor(ctx context.Context, samples video.FrameSource, detector vision.FaceDetector, cfg types.FaceDetectionConfig, aspect float64) (*FaceAnchor, error) {
	limit := cfg.SampleFrames
	if limit <= 0 {
		limit = 1
	}
	params := vision.ParamsFromConfig(cfg)

	var (
		sampled         int
		width, height   int
		cxs, cys        []float64
		widths, heights []float64
	)
	for sampled < limit {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("face sampling: %w", err)
		}
		frame, err := samples.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Warn().Err(err).Int("frame", sampled).Msg("stopping face sampling early")
			}
			break
		}
		if sampled == 0 {
			width, height = frameSize(frame)
		}
		sampled++

		faces, err := detector.Detect(ctx, frame, params)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("face sampling: %w", ctx.Err())
			}
			log.Warn().Err(err).Int("frame", sampled-1).Msg("face detection failed")
			continue
		}
		for _, f := range faces {
			c := f.Center()
			cxs = append(cxs, c.X)
			cys = append(cys, c.Y)
			widths = append(widths, float64(f.Width))
			heights = append(heights, float64(f.Height))
		}
	}
	if sampled == 0 {
		return nil, fmt.Errorf("face sampling: %w", types.ErrNoFramesAvailable)
	}

	a := &FaceAnchor{aspect: aspect, width: width, height: height}
	if len(cxs) == 0 {
		a.anchor = geometry.FrameCenter(width, height)
		log.Info().Int("sampled", sampled).Msg("no faces detected, using center crop")
	} else {
		a.detected = true
		a.anchor = types.Point{X: median(cxs) + float64(cfg.RightOffset), Y: median(cys)}
		log.Info().
			Int("sampled", sampled).
			Int("faces", len(cxs)).
			Float64("median_width", median(widths)).
			Float64("median_height", median(heights)).
			Float64("anchor_x", a.anchor.X).
			Float64("anchor_y", a.anchor.Y).
			Msg("face anchor fixed")
	}
	a.window = geometry.Clamp(a.anchor, width, height, aspect)
	return a, nil
}

// WindowFor implements Strategy
func (a *FaceAnchor) WindowFor(_ int, frame image.Image) types.Rectangle {
	w, h := frameSize(frame)
	if w == a.width && h == a.height {
		return a.window
	}
	anchor := a.anchor
	if !a.detected {
		anchor = geometry.FrameCenter(w, h)
	}
	return geometry.Clamp(anchor, w, h, a.aspect)
}

// Focus returns the anchor center and whether any face supported it
func (a *FaceAnchor) Focus() (types.Point, bool) {
	return a.anchor, a.detected
}
