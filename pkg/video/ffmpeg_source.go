package video

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/menta2k/vertical-cropper/pkg/types"
)

// FFmpegSource decodes a video file into RGBA frames through an ffmpeg subprocess
type FFmpegSource struct {
	info      types.VideoInfo
	cmd       *exec.Cmd
	reader    *io.PipeReader
	frameSize int
	stderr    bytes.Buffer
	done      chan struct{}
}

// OpenFFmpeg probes path and starts decoding it
func OpenFFmpeg(path string) (*FFmpegSource, error) {
	info, err := Probe(path)
	if err != nil {
		return nil, err
	}
	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("video %s has no frame size", path)
	}

	pr, pw := io.Pipe()
	s := &FFmpegSource{
		info:      info,
		reader:    pr,
		frameSize: info.Width * info.Height * 4,
		done:      make(chan struct{}),
	}
	s.cmd = ffmpeg.Input(path).
		Output("pipe:", ffmpeg.KwArgs{"format": "rawvideo", "pix_fmt": "rgba"}).
		WithOutput(pw).
		WithErrorOutput(&s.stderr).
		Compile()

	if err := s.cmd.Start(); err != nil {
		pw.Close()
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	go func() {
		defer close(s.done)
		err := s.cmd.Wait()
		if err != nil {
			err = fmt.Errorf("ffmpeg decode: %w: %s", err, tail(s.stderr.Bytes()))
		}
		pw.CloseWithError(err)
	}()
	return s, nil
}

// Info implements FrameSource
func (s *FFmpegSource) Info() types.VideoInfo {
	return s.info
}

// Next implements FrameSource
func (s *FFmpegSource) Next() (image.Image, error) {
	buf := make([]byte, s.frameSize)
	if _, err := io.ReadFull(s.reader, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			// A truncated trailing frame ends the stream.
			return nil, io.EOF
		}
		return nil, err
	}
	return &image.RGBA{
		Pix:    buf,
		Stride: s.info.Width * 4,
		Rect:   image.Rect(0, 0, s.info.Width, s.info.Height),
	}, nil
}

// Close stops the decoder
func (s *FFmpegSource) Close() error {
	s.reader.Close()
	select {
	case <-s.done:
	default:
		if s.cmd.Process != nil {
			s.cmd.Process.Kill()
		}
		<-s.done
	}
	return nil
}

// tail keeps the end of ffmpeg's stderr, where the actual error is printed
func tail(b []byte) string {
	const limit = 512
	b = bytes.TrimSpace(b)
	if len(b) > limit {
		b = b[len(b)-limit:]
	}
	return string(b)
}
