// Package verticalcropper converts landscape video into 9:16 vertical video by
// choosing a crop window per frame and scaling it to a fixed output size.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//
//		verticalcropper "github.com/menta2k/vertical-cropper"
//	)
//
//	func main() {
//		vc := verticalcropper.New()
//		result, err := vc.Process(context.Background(), "talk.mp4", "talk_vertical.mp4")
//		if err != nil {
//			log.Fatal(err)
//		}
//		log.Printf("wrote %d frames", result.Stats.Frames)
//	}
//
// The package consists of these components:
//
//  1. Strategy (pkg/strategy): face anchor, motion tracking and center windows
//  2. Vision (pkg/vision, pkg/detection): face detectors and optical flow backends
//  3. Cropper (pkg/cropper): crops and scales frames to the output size
//  4. Video (pkg/video): ffmpeg and image-sequence sources and sinks
//  5. Pipeline (pkg/pipeline): the per-frame loop
//
// Face mode reads the opening frames through a second source so the main
// stream starts at frame zero.
package verticalcropper

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/menta2k/vertical-cropper/internal/config"
	"github.com/menta2k/vertical-cropper/internal/utils"
	"github.com/menta2k/vertical-cropper/pkg/analyzer"
	"github.com/menta2k/vertical-cropper/pkg/cropper"
	_ "github.com/menta2k/vertical-cropper/pkg/detection"
	"github.com/menta2k/vertical-cropper/pkg/pipeline"
	"github.com/menta2k/vertical-cropper/pkg/plan"
	"github.com/menta2k/vertical-cropper/pkg/processing"
	"github.com/menta2k/vertical-cropper/pkg/strategy"
	"github.com/menta2k/vertical-cropper/pkg/types"
	"github.com/menta2k/vertical-cropper/pkg/video"
	"github.com/menta2k/vertical-cropper/pkg/vision"
)

// Version of the vertical cropper
const Version = "1.0.0"

// DefaultSequenceFPS is the frame rate assumed for image-sequence inputs
const DefaultSequenceFPS = 30.0

// VerticalCropper runs crop jobs with one configuration
type VerticalCropper struct {
	config    *config.Config
	analyzer  *analyzer.Analyzer
	processor *processing.Processor
}

// New creates a new VerticalCropper with default configuration
func New() *VerticalCropper {
	vc, _ := NewWithConfig(config.Default())
	return vc
}

// NewWithConfig creates a new VerticalCropper after validating cfg
func NewWithConfig(cfg *config.Config) (*VerticalCropper, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &VerticalCropper{
		config:    cfg,
		analyzer:  analyzer.New(),
		processor: processing.NewProcessor(),
	}, nil
}

// Config returns the configuration in use
func (vc *VerticalCropper) Config() *config.Config {
	return vc.config
}

// Result summarizes a finished job
type Result struct {
	Input   string
	Output  string
	Summary analyzer.Summary
	Stats   pipeline.Stats
}

// Process crops input into output. Either side may be a video file or a
// directory of numbered images.
func (vc *VerticalCropper) Process(ctx context.Context, input, output string) (res Result, err error) {
	cfg := vc.config
	res.Input, res.Output = input, output

	src, err := openSource(input, cfg.Output.FPS)
	if err != nil {
		return res, err
	}
	defer src.Close()

	info := src.Info()
	if err := vc.analyzer.Validate(info); err != nil {
		return res, err
	}
	res.Summary = vc.analyzer.Describe(info, cfg.AspectRatio, cfg.Output.Height)
	log.Info().
		Str("input", input).
		Str("output", output).
		Str("mode", string(cfg.Mode)).
		Int("input_width", res.Summary.Width).
		Int("input_height", res.Summary.Height).
		Int("output_width", res.Summary.OutputWidth).
		Int("output_height", res.Summary.OutputHeight).
		Float64("fps", info.FPS).
		Msg("processing video")

	selector, err := vc.newSelector(ctx, input, info)
	if err != nil {
		return res, err
	}

	sink, err := openSink(output, info.FPS, cfg.Output)
	if err != nil {
		return res, err
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to finalize output: %w", cerr)
		}
	}()

	opts := pipeline.Options{
		RunID:         uuid.NewString(),
		ProgressEvery: cfg.Runtime.ProgressEvery,
	}

	if cfg.Runtime.Plan != "" {
		rec, perr := plan.Create(cfg.Runtime.Plan, plan.Header{
			RunID:  opts.RunID,
			Mode:   selector.Mode(),
			Width:  info.Width,
			Height: info.Height,
			FPS:    info.FPS,
			Aspect: cfg.AspectRatio,
		})
		if perr != nil {
			return res, perr
		}
		defer func() {
			if cerr := rec.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		opts.Recorder = rec
	}

	if cfg.Runtime.DebugOverlay != "" {
		overlay, oerr := vc.overlayWriter(cfg.Runtime.DebugOverlay, info.FPS, selector)
		if oerr != nil {
			return res, oerr
		}
		opts.Overlay = overlay
	}

	compositor := cropper.New(cfg.AspectRatio, cfg.Output.Height)
	res.Stats, err = pipeline.Run(ctx, src, selector, compositor, sink, opts)
	return res, err
}

func (vc *VerticalCropper) newSelector(ctx context.Context, input string, info types.VideoInfo) (*strategy.Selector, error) {
	cfg := vc.config
	opts := vision.Options{
		CascadePath:   cfg.Vision.Cascade,
		Model:         cfg.Vision.Model,
		URL:           cfg.Vision.URL,
		Timeout:       cfg.Vision.Timeout(),
		Prompt:        cfg.Vision.Prompt,
		MinConfidence: cfg.Vision.MinConfidence,
	}
	deps := strategy.Deps{Info: info}

	switch cfg.Mode {
	case types.ModeFace:
		detector, err := vision.NewDetector(cfg.Vision.Detector, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to create face detector: %w", err)
		}
		samples, err := openSource(input, cfg.Output.FPS)
		if err != nil {
			return nil, err
		}
		defer samples.Close()
		deps.Detector, deps.Samples = detector, samples
	case types.ModeMotion:
		flow, err := vision.NewFlowEngine(cfg.Vision.Flow, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to create flow engine: %w", err)
		}
		deps.Flow = flow
	}

	return strategy.NewSelector(ctx, cfg.StrategyConfig, deps)
}

// overlayWriter saves an annotated source frame about once per second of video
func (vc *VerticalCropper) overlayWriter(dir string, fps float64, selector *strategy.Selector) (pipeline.OverlayFunc, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create overlay directory: %w", err)
	}
	every := max(1, int(fps))
	return func(index int, frame image.Image, window types.Rectangle) error {
		if index%every != 0 {
			return nil
		}
		var focus *types.Point
		if p, ok := selector.Focus(); ok {
			focus = &p
		}
		annotated := vc.processor.CreateDebugOverlay(frame, nil, window, focus)
		path := filepath.Join(dir, fmt.Sprintf("overlay_%06d.webp", index))
		return vc.processor.SaveImage(annotated, path, 80)
	}, nil
}

// openSource opens a video file through ffmpeg or a directory as an image sequence
func openSource(input string, fps float64) (video.FrameSource, error) {
	if utils.DirExists(input) {
		if fps <= 0 {
			fps = DefaultSequenceFPS
		}
		src, err := video.OpenSequence(input, fps)
		if err != nil {
			return nil, err
		}
		if src.Info().TotalFrames == 0 {
			return nil, fmt.Errorf("%s: %w", input, types.ErrNoFramesAvailable)
		}
		return src, nil
	}
	if !utils.FileExists(input) {
		return nil, fmt.Errorf("input not found: %s", input)
	}
	switch {
	case utils.IsVideoFile(input):
	case utils.IsImageFile(input):
		return nil, fmt.Errorf("input %s is a single image; use a directory of numbered images", input)
	default:
		log.Warn().Str("input", input).Msg("unrecognized video extension, trying ffmpeg anyway")
	}
	return video.OpenFFmpeg(input)
}

// openSink writes numbered PNGs when output is a directory or has no
// extension, and encodes a video otherwise
func openSink(output string, fps float64, out types.OutputConfig) (video.FrameSink, error) {
	if output == "" {
		return nil, errors.New("output path is empty")
	}
	if utils.DirExists(output) || filepath.Ext(output) == "" {
		return video.NewSequenceSink(output, "png", 95)
	}
	if utils.IsImageFile(output) {
		return nil, fmt.Errorf("output %s is a single image; use a directory for image sequences", output)
	}
	if err := utils.EnsureDir(filepath.Dir(output)); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return video.NewFFmpegSink(output, fps, out), nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
