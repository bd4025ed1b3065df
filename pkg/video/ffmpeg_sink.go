package video

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os/exec"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/menta2k/vertical-cropper/pkg/types"
)

// FFmpegSink encodes frames to a video file through an ffmpeg subprocess. The
// encoder starts on the first frame, whose size fixes the output size.
type FFmpegSink struct {
	path   string
	fps    float64
	output types.OutputConfig

	cmd    *exec.Cmd
	writer *io.PipeWriter
	stderr bytes.Buffer
	done   chan error
	bounds image.Rectangle
	frames int
}

// NewFFmpegSink creates a sink writing to path at the source frame rate
func NewFFmpegSink(path string, fps float64, output types.OutputConfig) *FFmpegSink {
	return &FFmpegSink{path: path, fps: fps, output: output}
}

// Write implements FrameSink
func (s *FFmpegSink) Write(frame image.Image) error {
	if s.cmd == nil {
		if err := s.start(frame.Bounds()); err != nil {
			return &types.SinkWriteError{Frame: s.frames, Err: err}
		}
	}
	b := frame.Bounds()
	if b.Dx() != s.bounds.Dx() || b.Dy() != s.bounds.Dy() {
		return &types.SinkWriteError{
			Frame: s.frames,
			Err:   fmt.Errorf("frame size %dx%d differs from stream size %dx%d", b.Dx(), b.Dy(), s.bounds.Dx(), s.bounds.Dy()),
		}
	}

	if _, err := s.writer.Write(rgbaPixels(frame)); err != nil {
		return &types.SinkWriteError{Frame: s.frames, Err: err}
	}
	s.frames++
	return nil
}

// Close flushes the encoder and waits for it to finish
func (s *FFmpegSink) Close() error {
	if s.cmd == nil {
		return nil
	}
	s.writer.Close()
	return <-s.done
}

// Frames returns the number of frames written
func (s *FFmpegSink) Frames() int {
	return s.frames
}

func (s *FFmpegSink) start(bounds image.Rectangle) error {
	fps := s.fps
	if fps <= 0 {
		fps = 30
	}
	input := ffmpeg.KwArgs{
		"format":    "rawvideo",
		"pix_fmt":   "rgba",
		"s":         fmt.Sprintf("%dx%d", bounds.Dx(), bounds.Dy()),
		"framerate": strconv.FormatFloat(fps, 'f', -1, 64),
	}

	pr, pw := io.Pipe()
	s.cmd = ffmpeg.Input("pipe:", input).
		Output(s.path, encoderArgs(s.output)).
		OverWriteOutput().
		WithInput(pr).
		WithErrorOutput(&s.stderr).
		Compile()
	if err := s.cmd.Start(); err != nil {
		pw.Close()
		s.cmd = nil
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	s.writer = pw
	s.bounds = bounds
	s.done = make(chan error, 1)
	go func() {
		err := s.cmd.Wait()
		if err != nil {
			err = fmt.Errorf("ffmpeg encode: %w: %s", err, tail(s.stderr.Bytes()))
		}
		pr.CloseWithError(io.ErrClosedPipe)
		s.done <- err
	}()
	return nil
}

// encoderArgs maps the output configuration to ffmpeg output options
func encoderArgs(out types.OutputConfig) ffmpeg.KwArgs {
	codec := encoderFor(out.Codec)
	args := ffmpeg.KwArgs{
		"c:v":     codec,
		"pix_fmt": "yuv420p",
	}
	if out.FPS > 0 {
		args["r"] = strconv.FormatFloat(out.FPS, 'f', -1, 64)
	}
	if out.Bitrate != "" {
		args["b:v"] = out.Bitrate
	}

	quality := strings.ToLower(out.Quality)
	switch codec {
	case "libx264", "libx265":
		args["preset"] = x264Preset(quality)
		if out.Bitrate == "" {
			args["crf"] = x264CRF(quality)
		}
	case "mpeg4":
		if out.Bitrate == "" {
			args["q:v"] = mpeg4Scale(quality)
		}
	}
	return args
}

func x264Preset(quality string) string {
	switch quality {
	case "low":
		return "veryfast"
	case "high":
		return "slow"
	default:
		return "medium"
	}
}

func x264CRF(quality string) int {
	switch quality {
	case "low":
		return 28
	case "high":
		return 18
	default:
		return 23
	}
}

func mpeg4Scale(quality string) int {
	switch quality {
	case "low":
		return 8
	case "high":
		return 2
	default:
		return 5
	}
}

// encoderFor maps a fourcc style codec name to an ffmpeg encoder
func encoderFor(codec string) string {
	switch strings.ToLower(codec) {
	case "", "mp4v", "xvid", "divx":
		return "mpeg4"
	case "avc1", "h264", "x264":
		return "libx264"
	case "hvc1", "hevc", "h265":
		return "libx265"
	case "mjpg":
		return "mjpeg"
	default:
		return codec
	}
}

// rgbaPixels returns tightly packed RGBA bytes for a frame
func rgbaPixels(frame image.Image) []byte {
	b := frame.Bounds()
	switch img := frame.(type) {
	case *image.RGBA:
		if img.Stride == 4*b.Dx() {
			return img.Pix[:4*b.Dx()*b.Dy()]
		}
	case *image.NRGBA:
		// Composed frames are opaque, so straight and premultiplied alpha agree.
		if img.Stride == 4*b.Dx() && img.Opaque() {
			return img.Pix[:4*b.Dx()*b.Dy()]
		}
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), frame, b.Min, draw.Src)
	return dst.Pix
}
