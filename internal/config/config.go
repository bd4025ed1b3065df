package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/menta2k/vertical-cropper/pkg/types"
)

// Config holds the application configuration. Strategy keys (mode,
// face_detection, motion_tracking, output) sit at the top level of the file.
type Config struct {
	types.StrategyConfig `yaml:",inline"`

	Vision  VisionConfig  `json:"vision" yaml:"vision"`
	Runtime RuntimeConfig `json:"runtime" yaml:"runtime"`
}

// VisionConfig selects the face and flow backends
type VisionConfig struct {
	Detector       string  `json:"detector" yaml:"detector"`
	Flow           string  `json:"flow" yaml:"flow"`
	Cascade        string  `json:"cascade" yaml:"cascade"`
	Model          string  `json:"model" yaml:"model"`
	URL            string  `json:"url" yaml:"url"`
	TimeoutSeconds float64 `json:"timeout_seconds" yaml:"timeout_seconds"`
	// Prompt and MinConfidence only apply to the model-based detectors
	Prompt        string  `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence"`
}

// Timeout returns the remote detector timeout
func (v VisionConfig) Timeout() time.Duration {
	return time.Duration(v.TimeoutSeconds * float64(time.Second))
}

// RuntimeConfig holds per-run side outputs and logging
type RuntimeConfig struct {
	Plan         string `json:"plan" yaml:"plan"`
	DebugOverlay string `json:"debug_overlay" yaml:"debug_overlay"`
	LogLevel     string `json:"log_level" yaml:"log_level"`
	// ProgressEvery logs progress every N frames
	ProgressEvery int `json:"progress_every" yaml:"progress_every"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		StrategyConfig: types.DefaultStrategyConfig(),
		Vision: VisionConfig{
			Detector:       "pigo",
			Flow:           "blockmatch",
			TimeoutSeconds: 60,
			MinConfidence:  0.3,
		},
		Runtime: RuntimeConfig{
			LogLevel:      "info",
			ProgressEvery: 100,
		},
	}
}

// LoadFromFile loads configuration from a JSON or YAML file. Keys missing from
// the file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	default:
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration as JSON or YAML depending on the extension
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if !c.Mode.Valid() {
		return fmt.Errorf("mode must be one of %v: %w", types.Modes(), types.ErrInvalidMode)
	}
	if c.AspectRatio <= 0 || c.AspectRatio > 1 {
		return fmt.Errorf("aspect_ratio must be in (0,1]")
	}

	fd := c.FaceDetection
	if fd.ScaleFactor <= 1 {
		return fmt.Errorf("face_detection.scale_factor must be greater than 1")
	}
	if fd.MinNeighbors < 0 {
		return fmt.Errorf("face_detection.min_neighbors cannot be negative")
	}
	if fd.MinSize[0] < 0 || fd.MinSize[1] < 0 {
		return fmt.Errorf("face_detection.min_size cannot be negative")
	}
	if fd.SampleFrames < 1 {
		return fmt.Errorf("face_detection.sample_frames must be positive")
	}

	mt := c.MotionTracking
	if mt.UpdateInterval <= 0 {
		return fmt.Errorf("motion_tracking.update_interval must be positive")
	}
	if mt.SmoothingFactor < 0 || mt.SmoothingFactor >= 1 {
		return fmt.Errorf("motion_tracking.smoothing_factor must be in [0,1)")
	}
	if mt.ScaleFactor <= 0 || mt.ScaleFactor > 1 {
		return fmt.Errorf("motion_tracking.scale_factor must be in (0,1]")
	}
	if mt.MotionThreshold < 0 {
		return fmt.Errorf("motion_tracking.motion_threshold cannot be negative")
	}
	if mt.MaxShiftsPerSecond < 0 {
		return fmt.Errorf("motion_tracking.max_shifts_per_second cannot be negative")
	}

	switch c.Output.Quality {
	case "", "low", "medium", "high":
	default:
		return fmt.Errorf("output.quality must be low, medium or high")
	}
	if c.Output.Height < 0 {
		return fmt.Errorf("output.height cannot be negative")
	}
	if c.Output.FPS < 0 {
		return fmt.Errorf("output.fps cannot be negative")
	}

	if c.Vision.Detector == "" {
		return fmt.Errorf("vision.detector cannot be empty")
	}
	if c.Vision.Flow == "" {
		return fmt.Errorf("vision.flow cannot be empty")
	}
	if c.Vision.TimeoutSeconds < 0 {
		return fmt.Errorf("vision.timeout_seconds cannot be negative")
	}
	if c.Vision.MinConfidence < 0 || c.Vision.MinConfidence > 1 {
		return fmt.Errorf("vision.min_confidence must be in [0,1]")
	}

	return nil
}

// GetConfigPath returns the default configuration file path. The CLI loads it
// when no --config is given and the file exists.
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "vertical-cropper", "config.json")
}
