package types

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFramesAvailable is returned when a source yields no frames before a strategy can initialize
	ErrNoFramesAvailable = errors.New("no frames available")

	// ErrInvalidMode is returned when the configured crop mode is not recognized
	ErrInvalidMode = errors.New("invalid crop mode")

	// ErrDimensionMismatch signals a crop window outside the frame bounds
	ErrDimensionMismatch = errors.New("crop window outside frame bounds")
)

// SinkWriteError reports a failed write to a frame sink
type SinkWriteError struct {
	Frame int
	Err   error
}

func (e *SinkWriteError) Error() string {
	return fmt.Sprintf("sink write failed at frame %d: %v", e.Frame, e.Err)
}

func (e *SinkWriteError) Unwrap() error {
	return e.Err
}
