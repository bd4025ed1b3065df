// Package video moves frames in and out of the crop engine. Sources decode a
// video (or an image sequence) into image.Image frames, sinks encode the
// composed vertical frames.
package video

import (
	"image"

	"github.com/menta2k/vertical-cropper/pkg/types"
)

// FrameSource delivers frames sequentially. Next returns io.EOF at end of stream.
type FrameSource interface {
	Info() types.VideoInfo
	Next() (image.Image, error)
	Close() error
}

// FrameSink consumes composed frames in order
type FrameSink interface {
	Write(frame image.Image) error
	Close() error
}
