package video

import (
	"fmt"
	"image"
	"io"
	"path/filepath"

	"github.com/menta2k/vertical-cropper/internal/utils"
	"github.com/menta2k/vertical-cropper/pkg/processing"
	"github.com/menta2k/vertical-cropper/pkg/types"
)

// SequenceSource reads a directory of numbered image files as a video
type SequenceSource struct {
	files     []string
	next      int
	info      types.VideoInfo
	processor *processing.Processor
}

// OpenSequence lists the images in dir. fps is reported as the sequence frame rate.
func OpenSequence(dir string, fps float64) (*SequenceSource, error) {
	files, err := utils.ListImageFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list frames: %w", err)
	}

	s := &SequenceSource{
		files:     files,
		processor: processing.NewProcessor(),
		info:      types.VideoInfo{FPS: fps, TotalFrames: len(files)},
	}
	if len(files) > 0 {
		first, err := s.processor.LoadImage(files[0])
		if err != nil {
			return nil, fmt.Errorf("failed to read first frame: %w", err)
		}
		s.info.Width, s.info.Height = first.Bounds().Dx(), first.Bounds().Dy()
	}
	return s, nil
}

// Info implements FrameSource
func (s *SequenceSource) Info() types.VideoInfo {
	return s.info
}

// Next implements FrameSource
func (s *SequenceSource) Next() (image.Image, error) {
	if s.next >= len(s.files) {
		return nil, io.EOF
	}
	path := s.files[s.next]
	s.next++
	img, err := s.processor.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", s.next-1, err)
	}
	return img, nil
}

// Close implements FrameSource
func (s *SequenceSource) Close() error {
	return nil
}

// SequenceSink writes frames as numbered image files
type SequenceSink struct {
	dir       string
	format    string
	quality   int
	frames    int
	processor *processing.Processor
}

// NewSequenceSink creates dir if needed. format is an image extension such as png, jpg or webp.
func NewSequenceSink(dir, format string, quality int) (*SequenceSink, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if format == "" {
		format = "png"
	}
	return &SequenceSink{dir: dir, format: format, quality: quality, processor: processing.NewProcessor()}, nil
}

// Write implements FrameSink
func (s *SequenceSink) Write(frame image.Image) error {
	path := filepath.Join(s.dir, fmt.Sprintf("frame_%06d.%s", s.frames, s.format))
	if err := s.processor.SaveImage(frame, path, s.quality); err != nil {
		return &types.SinkWriteError{Frame: s.frames, Err: err}
	}
	s.frames++
	return nil
}

// Frames returns the number of frames written
func (s *SequenceSink) Frames() int {
	return s.frames
}

// Close implements FrameSink
func (s *SequenceSink) Close() error {
	return nil
}
