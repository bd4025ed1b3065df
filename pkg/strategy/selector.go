package strategy

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/menta2k/vertical-cropper/pkg/types"
	"github.com/menta2k/vertical-cropper/pkg/video"
	"github.com/menta2k/vertical-cropper/pkg/vision"
)

// Deps are the collaborators a strategy may need. Only those used by the
// configured mode are required.
type Deps struct {
	Detector vision.FaceDetector
	Flow     vision.FlowEngine
	// Samples feeds the opening frames to the face anchor
	Samples video.FrameSource
	Info    types.VideoInfo
}

// Selector picks one strategy at construction and answers every window query with it
type Selector struct {
	mode     types.Mode
	strategy Strategy
}

// NewSelector creates a selector for cfg.Mode. ctx bounds the face sampling pass.
func NewSelector(ctx context.Context, cfg types.StrategyConfig, deps Deps) (*Selector, error) {
	var (
		s   Strategy
		err error
	)
	switch cfg.Mode {
	case types.ModeFace:
		if deps.Detector == nil || deps.Samples == nil {
			return nil, errors.New("face mode requires a detector and a sample source")
		}
		s, err = NewFaceAnchor(ctx, deps.Samples, deps.Detector, cfg.FaceDetection, cfg.AspectRatio)
		if err != nil {
			return nil, err
		}
	case types.ModeMotion:
		if deps.Flow == nil {
			return nil, errors.New("motion mode requires a flow engine")
		}
		s = NewMotionTracker(cfg.MotionTracking, deps.Flow, deps.Info, cfg.AspectRatio)
	case types.ModeCenter:
		s = NewCenter(cfg.AspectRatio)
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidMode, cfg.Mode)
	}
	return &Selector{mode: cfg.Mode, strategy: s}, nil
}

// Mode returns the active mode
func (s *Selector) Mode() types.Mode {
	return s.mode
}

// WindowFor returns the crop window for frame index
func (s *Selector) WindowFor(index int, frame image.Image) types.Rectangle {
	return s.strategy.WindowFor(index, frame)
}

// Focus returns the point the active strategy is following, if it has one
func (s *Selector) Focus() (types.Point, bool) {
	if f, ok := s.strategy.(focuser); ok {
		return f.Focus()
	}
	return types.Point{}, false
}
