// Package analyzer checks that a video can be cropped and summarizes the run
// before any frame is decoded.
package analyzer

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/menta2k/vertical-cropper/pkg/cropper"
	"github.com/menta2k/vertical-cropper/pkg/geometry"
	"github.com/menta2k/vertical-cropper/pkg/types"
)

// ErrInvalidVideo is returned when a video cannot be processed
var ErrInvalidVideo = errors.New("invalid video")

// Analyzer validates inputs against minimum requirements
type Analyzer struct {
	config Config
}

// Config holds configuration for the analyzer
type Config struct {
	// MinFrameSize is the smallest accepted width and height
	MinFrameSize int
	// MaxFPS rejects obviously bogus probe results
	MaxFPS float64
}

// New creates a new Analyzer with default configuration
func New() *Analyzer {
	return &Analyzer{
		config: Config{
			MinFrameSize: 16,
			MaxFPS:       1000,
		},
	}
}

// NewWithConfig creates a new Analyzer with custom configuration
func NewWithConfig(config Config) *Analyzer {
	return &Analyzer{config: config}
}

// Summary describes an input and the output it will produce
type Summary struct {
	Width        int
	Height       int
	FPS          float64
	TotalFrames  int
	Duration     time.Duration
	AspectRatio  float64
	WindowWidth  int
	WindowHeight int
	OutputWidth  int
	OutputHeight int
}

// Describe returns the input/output size summary for a run. An outputHeight
// of zero keeps the window height.
func (a *Analyzer) Describe(info types.VideoInfo, aspect float64, outputHeight int) Summary {
	s := Summary{
		Width:       info.Width,
		Height:      info.Height,
		FPS:         info.FPS,
		TotalFrames: info.TotalFrames,
	}
	if info.Height > 0 {
		s.AspectRatio = float64(info.Width) / float64(info.Height)
	}
	if info.FPS > 0 && info.TotalFrames > 0 {
		s.Duration = time.Duration(float64(info.TotalFrames) / info.FPS * float64(time.Second))
	}

	s.WindowWidth, s.WindowHeight = geometry.WindowSize(info.Width, info.Height, aspect)
	base := outputHeight
	if base <= 0 {
		base = s.WindowHeight
	}
	if base > 0 {
		s.OutputWidth, s.OutputHeight = cropper.OutputSize(aspect, base)
	}
	return s
}

// Validate checks that a video has usable dimensions and frame rate
func (a *Analyzer) Validate(info types.VideoInfo) error {
	if info.Width < a.config.MinFrameSize || info.Height < a.config.MinFrameSize {
		return fmt.Errorf("%w: frame too small: %dx%d (minimum: %d)",
			ErrInvalidVideo, info.Width, info.Height, a.config.MinFrameSize)
	}
	if info.FPS <= 0 || math.IsNaN(info.FPS) || math.IsInf(info.FPS, 0) {
		return fmt.Errorf("%w: frame rate must be positive, got %v", ErrInvalidVideo, info.FPS)
	}
	if a.config.MaxFPS > 0 && info.FPS > a.config.MaxFPS {
		return fmt.Errorf("%w: frame rate %.2f exceeds %.0f", ErrInvalidVideo, info.FPS, a.config.MaxFPS)
	}
	if info.TotalFrames < 0 {
		return fmt.Errorf("%w: negative frame count %d", ErrInvalidVideo, info.TotalFrames)
	}
	return nil
}
