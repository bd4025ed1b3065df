package strategy

import (
	"image"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/menta2k/vertical-cropper/pkg/geometry"
	"github.com/menta2k/vertical-cropper/pkg/types"
	"github.com/menta2k/vertical-cropper/pkg/vision"
)

// trackState is the mutable part of a MotionTracker
type trackState struct {
	started    bool
	focus      types.Point
	lastUpdate int
	// prev is the downsampled grey frame of the last tick
	prev     *image.Gray
	moved    bool
	lastMove int
}

// MotionTracker follows on-screen motion. Every update interval it measures the
// optical flow since the previous tick and moves an exponentially smoothed focus
// point towards where the motion leads.
type MotionTracker struct {
	cfg      types.MotionTrackingConfig
	flow     vision.FlowEngine
	aspect   float64
	fps      float64
	interval int
	state    trackState
}

// NewMotionTracker creates a tracker for a video with the given frame rate
func NewMotionTracker(cfg types.MotionTrackingConfig, flow vision.FlowEngine, info types.VideoInfo, aspect float64) *MotionTracker {
	interval := int(info.FPS * cfg.UpdateInterval)
	if interval < 1 || math.IsNaN(info.FPS*cfg.UpdateInterval) {
		interval = 1
	}
	return &MotionTracker{
		cfg:      cfg,
		flow:     flow,
		aspect:   aspect,
		fps:      info.FPS,
		interval: interval,
	}
}

// Interval returns the number of frames between focus updates
func (t *MotionTracker) Interval() int {
	return t.interval
}

// WindowFor implements Strategy. Frames must be queried in increasing index order.
func (t *MotionTracker) WindowFor(index int, frame image.Image) types.Rectangle {
	w, h := frameSize(frame)
	if !t.state.started || index-t.state.lastUpdate >= t.interval {
		t.tick(index, frame, w, h)
	}
	return geometry.Clamp(t.state.focus, w, h, t.aspect)
}

// Focus returns the current focus point
func (t *MotionTracker) Focus() (types.Point, bool) {
	return t.state.focus, t.state.started
}

func (t *MotionTracker) tick(index int, frame image.Image, w, h int) {
	s := &t.state
	first := !s.started
	s.started = true
	s.lastUpdate = index
	if first {
		s.focus = geometry.FrameCenter(w, h)
	}

	var gray *image.Gray
	if frame != nil {
		var err error
		gray, err = vision.Downsample(frame, t.cfg.ScaleFactor)
		if err != nil {
			log.Debug().Err(err).Int("frame", index).Msg("skipping motion update")
		}
	}
	prev := s.prev
	s.prev = gray
	if first || prev == nil || gray == nil || !prev.Bounds().Eq(gray.Bounds()) {
		return
	}

	field, err := t.flow.Flow(prev, gray)
	if err != nil {
		log.Warn().Err(err).Int("frame", index).Msg("optical flow failed, keeping focus")
		return
	}
	motion, ok := representativeMotion(field, w, h, t.cfg.MotionThreshold)
	if !ok {
		return
	}
	if !t.shiftAllowed(index) {
		log.Debug().Int("frame", index).Msg("focus shift rate limited")
		return
	}

	smoothing := math.Max(0, math.Min(1, t.cfg.SmoothingFactor))
	raw := geometry.ClampPoint(types.Point{X: s.focus.X + motion.X, Y: s.focus.Y + motion.Y}, w, h)
	s.focus = types.Point{
		X: smoothing*s.focus.X + (1-smoothing)*raw.X,
		Y: smoothing*s.focus.Y + (1-smoothing)*raw.Y,
	}
	s.moved = true
	s.lastMove = index

	log.Debug().
		Int("frame", index).
		Float64("dx", motion.X).
		Float64("dy", motion.Y).
		Float64("focus_x", s.focus.X).
		Float64("focus_y", s.focus.Y).
		Msg("focus updated")
}

func (t *MotionTracker) shiftAllowed(index int) bool {
	if t.cfg.MaxShiftsPerSecond <= 0 || t.fps <= 0 || !t.state.moved {
		return true
	}
	// whole frames, truncated like the tick interval
	minGap := max(1, int(t.fps/t.cfg.MaxShiftsPerSecond))
	return index-t.state.lastMove >= minGap
}
