package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/vertical-cropper/pkg/types"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, types.ModeFace, cfg.Mode)
	assert.Equal(t, 0.67, cfg.MotionTracking.ScaleFactor)
	assert.Equal(t, 0.9, cfg.MotionTracking.SmoothingFactor)
	assert.Equal(t, "pigo", cfg.Vision.Detector)
	assert.Equal(t, "blockmatch", cfg.Vision.Flow)
	assert.Equal(t, time.Minute, cfg.Vision.Timeout())
	assert.Equal(t, 0.3, cfg.Vision.MinConfidence)
	assert.Zero(t, cfg.MotionTracking.MaxShiftsPerSecond)
}

func TestLoadJSONMergesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
  "mode": "motion",
  "motion_tracking": {"smoothing_factor": 0.5},
  "output": {"codec": "avc1"},
  "vision": {"flow": "farneback"}
}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, types.ModeMotion, cfg.Mode)
	assert.Equal(t, 0.5, cfg.MotionTracking.SmoothingFactor)
	assert.Equal(t, 1.0, cfg.MotionTracking.UpdateInterval)
	assert.Equal(t, 2.0, cfg.MotionTracking.MotionThreshold)
	assert.Equal(t, "avc1", cfg.Output.Codec)
	assert.Equal(t, "3000k", cfg.Output.Bitrate)
	assert.Equal(t, "farneback", cfg.Vision.Flow)
	assert.Equal(t, "pigo", cfg.Vision.Detector)
	assert.Equal(t, 30, cfg.FaceDetection.SampleFrames)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
mode: center
aspect_ratio: 0.8
face_detection:
  min_size: [40, 40]
vision:
  detector: ollama
  model: llava
  prompt: list the faces
  min_confidence: 0.6
runtime:
  plan: run.plan
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, types.ModeCenter, cfg.Mode)
	assert.Equal(t, 0.8, cfg.AspectRatio)
	assert.Equal(t, [2]int{40, 40}, cfg.FaceDetection.MinSize)
	assert.Equal(t, 1.1, cfg.FaceDetection.ScaleFactor)
	assert.Equal(t, "ollama", cfg.Vision.Detector)
	assert.Equal(t, "llava", cfg.Vision.Model)
	assert.Equal(t, "list the faces", cfg.Vision.Prompt)
	assert.Equal(t, 0.6, cfg.Vision.MinConfidence)
	assert.Equal(t, "run.plan", cfg.Runtime.Plan)
	assert.Equal(t, 100, cfg.Runtime.ProgressEvery)
}

func TestLoadErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"mode": `), 0644))
	_, err = LoadFromFile(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"nested/config.json", "nested/config.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			cfg := Default()
			cfg.Mode = types.ModeMotion
			cfg.Vision.URL = "http://localhost:8080"

			require.NoError(t, cfg.SaveToFile(path))
			loaded, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"mode", func(c *Config) { c.Mode = "diagonal" }},
		{"aspect", func(c *Config) { c.AspectRatio = 1.5 }},
		{"scale factor", func(c *Config) { c.FaceDetection.ScaleFactor = 1 }},
		{"sample frames", func(c *Config) { c.FaceDetection.SampleFrames = 0 }},
		{"min size", func(c *Config) { c.FaceDetection.MinSize = [2]int{-1, 10} }},
		{"interval", func(c *Config) { c.MotionTracking.UpdateInterval = 0 }},
		{"smoothing", func(c *Config) { c.MotionTracking.SmoothingFactor = 1 }},
		{"motion scale", func(c *Config) { c.MotionTracking.ScaleFactor = 0 }},
		{"quality", func(c *Config) { c.Output.Quality = "ultra" }},
		{"detector", func(c *Config) { c.Vision.Detector = "" }},
		{"flow", func(c *Config) { c.Vision.Flow = "" }},
		{"min confidence", func(c *Config) { c.Vision.MinConfidence = 1.5 }},
		{"max shifts", func(c *Config) { c.MotionTracking.MaxShiftsPerSecond = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.Mode = "diagonal"
	assert.ErrorIs(t, cfg.Validate(), types.ErrInvalidMode)
}

func TestGetConfigPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	assert.Equal(t, filepath.Join(home, ".config", "vertical-cropper", "config.json"), GetConfigPath())
}
