// Package pipeline drives a crop run: it pulls frames from a source, asks the
// selector for each window, composes the vertical frame and hands it to a sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/menta2k/vertical-cropper/pkg/types"
	"github.com/menta2k/vertical-cropper/pkg/video"
)

// DefaultProgressEvery is the number of frames between progress log lines
const DefaultProgressEvery = 100

// WindowSelector chooses the crop window of a frame
type WindowSelector interface {
	WindowFor(index int, frame image.Image) types.Rectangle
}

// FrameCompositor turns a frame and its window into an output frame
type FrameCompositor interface {
	Compose(frame image.Image, window types.Rectangle) (image.Image, error)
}

// PlanRecorder stores the chosen windows
type PlanRecorder interface {
	Record(frame int, window types.Rectangle) error
}

// OverlayFunc receives every source frame together with its window
type OverlayFunc func(index int, frame image.Image, window types.Rectangle) error

// Options holds optional run hooks
type Options struct {
	// RunID labels log lines; a random one is generated when empty
	RunID         string
	Recorder      PlanRecorder
	Overlay       OverlayFunc
	ProgressEvery int
}

// Stats summarizes a finished run
type Stats struct {
	RunID    string
	Frames   int
	Duration time.Duration
	// First and Last are the windows of the first and last frame
	First types.Rectangle
	Last  types.Rectangle
}

// Run processes src until it is exhausted or ctx is cancelled. The caller owns
// src and sink and must close them.
func Run(ctx context.Context, src video.FrameSource, selector WindowSelector, compositor FrameCompositor, sink video.FrameSink, opts Options) (Stats, error) {
	stats := Stats{RunID: opts.RunID}
	if stats.RunID == "" {
		stats.RunID = uuid.NewString()
	}
	every := opts.ProgressEvery
	if every <= 0 {
		every = DefaultProgressEvery
	}

	logger := log.With().Str("run_id", stats.RunID).Logger()
	info := src.Info()
	start := time.Now()

	logger.Info().
		Int("width", info.Width).
		Int("height", info.Height).
		Float64("fps", info.FPS).
		Int("total_frames", info.TotalFrames).
		Msg("starting crop run")

	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return finish(stats, start), err
		}

		frame, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return finish(stats, start), fmt.Errorf("failed to read frame %d: %w", index, err)
		}

		window := selector.WindowFor(index, frame)
		if index == 0 {
			stats.First = window
		}
		stats.Last = window

		if opts.Recorder != nil {
			if err := opts.Recorder.Record(index, window); err != nil {
				return finish(stats, start), err
			}
		}
		if opts.Overlay != nil {
			if err := opts.Overlay(index, frame, window); err != nil {
				return finish(stats, start), fmt.Errorf("overlay frame %d: %w", index, err)
			}
		}

		out, err := compositor.Compose(frame, window)
		if err != nil {
			return finish(stats, start), fmt.Errorf("compose frame %d: %w", index, err)
		}
		if err := sink.Write(out); err != nil {
			var sinkErr *types.SinkWriteError
			if !errors.As(err, &sinkErr) {
				err = &types.SinkWriteError{Frame: index, Err: err}
			}
			return finish(stats, start), err
		}
		stats.Frames++

		if stats.Frames%every == 0 {
			ev := logger.Info().Int("frames", stats.Frames)
			if info.TotalFrames > 0 {
				ev = ev.Int("total", info.TotalFrames).
					Float64("percent", float64(stats.Frames)*100/float64(info.TotalFrames))
			}
			ev.Msg("progress")
		}
	}

	stats = finish(stats, start)
	if stats.Frames == 0 {
		return stats, fmt.Errorf("crop run: %w", types.ErrNoFramesAvailable)
	}

	logger.Info().
		Int("frames", stats.Frames).
		Dur("elapsed", stats.Duration).
		Msg("crop run finished")
	return stats, nil
}

func finish(stats Stats, start time.Time) Stats {
	stats.Duration = time.Since(start)
	return stats
}
