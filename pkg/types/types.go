package types

import (
	"image"
	"math"
)

// Mode selects the crop window strategy
type Mode string

// Recognized crop modes
const (
	ModeFace   Mode = "face"
	ModeMotion Mode = "motion"
	ModeCenter Mode = "center"
)

// Modes returns all recognized crop modes
func Modes() []Mode {
	return []Mode{ModeFace, ModeMotion, ModeCenter}
}

// Valid reports whether m is one of the recognized modes
func (m Mode) Valid() bool {
	switch m {
	case ModeFace, ModeMotion, ModeCenter:
		return true
	}
	return false
}

// Point is a position in source-frame pixel coordinates
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Finite reports whether both coordinates are finite numbers
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Rectangle is an axis-aligned region in source-frame pixel coordinates
type Rectangle struct {
	X      int `json:"x" msgpack:"x"`
	Y      int `json:"y" msgpack:"y"`
	Width  int `json:"width" msgpack:"w"`
	Height int `json:"height" msgpack:"h"`
}

// Center returns the center point of the rectangle
func (r Rectangle) Center() Point {
	return Point{
		X: float64(r.X) + float64(r.Width)/2,
		Y: float64(r.Y) + float64(r.Height)/2,
	}
}

// Empty reports whether the rectangle covers no pixels
func (r Rectangle) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Within reports whether the rectangle lies fully inside a frame of the given size
func (r Rectangle) Within(frameWidth, frameHeight int) bool {
	return r.X >= 0 && r.Y >= 0 && r.X+r.Width <= frameWidth && r.Y+r.Height <= frameHeight
}

// ImageRect converts to an image.Rectangle anchored at the frame origin
func (r Rectangle) ImageRect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// FromImageRect converts an image.Rectangle relative to bounds.Min
func FromImageRect(ir image.Rectangle, bounds image.Rectangle) Rectangle {
	return Rectangle{
		X:      ir.Min.X - bounds.Min.X,
		Y:      ir.Min.Y - bounds.Min.Y,
		Width:  ir.Dx(),
		Height: ir.Dy(),
	}
}

// Box represents a normalized bounding box with coordinates in [0,1] range
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// ToRectangle converts a normalized box to pixel coordinates of a frame
func (b Box) ToRectangle(frameWidth, frameHeight int) Rectangle {
	fw, fh := float64(frameWidth), float64(frameHeight)
	x0 := int(math.Round(clamp01(b.X) * fw))
	y0 := int(math.Round(clamp01(b.Y) * fh))
	x1 := int(math.Round(clamp01(b.X+b.W) * fw))
	y1 := int(math.Round(clamp01(b.Y+b.H) * fh))
	return Rectangle{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// VideoInfo describes a decodable frame sequence
type VideoInfo struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	FPS         float64 `json:"fps"`
	TotalFrames int     `json:"total_frames"`
}

// Bounds returns the frame rectangle of the video
func (v VideoInfo) Bounds() Rectangle {
	return Rectangle{Width: v.Width, Height: v.Height}
}

// FaceDetectionConfig holds face-anchor parameters
type FaceDetectionConfig struct {
	ScaleFactor  float64 `json:"scale_factor" yaml:"scale_factor"`
	MinNeighbors int     `json:"min_neighbors" yaml:"min_neighbors"`
	MinSize      [2]int  `json:"min_size" yaml:"min_size"`
	SampleFrames int     `json:"sample_frames" yaml:"sample_frames"`
	RightOffset  int     `json:"right_offset" yaml:"right_offset"`
}

// MotionTrackingConfig holds motion-tracker parameters
type MotionTrackingConfig struct {
	UpdateInterval     float64 `json:"update_interval" yaml:"update_interval"`
	MotionThreshold    float64 `json:"motion_threshold" yaml:"motion_threshold"`
	SmoothingFactor    float64 `json:"smoothing_factor" yaml:"smoothing_factor"`
	ScaleFactor        float64 `json:"scale_factor" yaml:"scale_factor"`
	MaxShiftsPerSecond float64 `json:"max_shifts_per_second" yaml:"max_shifts_per_second"`
}

// OutputConfig holds parameters passed through to the encoder
type OutputConfig struct {
	Codec   string  `json:"codec" yaml:"codec"`
	FPS     float64 `json:"fps" yaml:"fps"`
	Quality string  `json:"quality" yaml:"quality"`
	Bitrate string  `json:"bitrate" yaml:"bitrate"`
	Height  int     `json:"height" yaml:"height"`
}

// StrategyConfig is the immutable configuration record consumed by the crop engine
type StrategyConfig struct {
	Mode           Mode                 `json:"mode" yaml:"mode"`
	AspectRatio    float64              `json:"aspect_ratio" yaml:"aspect_ratio"`
	FaceDetection  FaceDetectionConfig  `json:"face_detection" yaml:"face_detection"`
	MotionTracking MotionTrackingConfig `json:"motion_tracking" yaml:"motion_tracking"`
	Output         OutputConfig         `json:"output" yaml:"output"`
}

// DefaultAspectRatio is the 9:16 vertical target
const DefaultAspectRatio = 9.0 / 16.0

// DefaultStrategyConfig returns the stock configuration
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		Mode:        ModeFace,
		AspectRatio: DefaultAspectRatio,
		FaceDetection: FaceDetectionConfig{
			ScaleFactor:  1.1,
			MinNeighbors: 8,
			MinSize:      [2]int{30, 30},
			SampleFrames: 30,
			RightOffset:  60,
		},
		MotionTracking: MotionTrackingConfig{
			UpdateInterval:     1.0,
			MotionThreshold:    2.0,
			SmoothingFactor:    0.9,
			ScaleFactor:        0.67,
			MaxShiftsPerSecond: 0,
		},
		Output: OutputConfig{
			Codec:   "mp4v",
			Quality: "medium",
			Bitrate: "3000k",
		},
	}
}
