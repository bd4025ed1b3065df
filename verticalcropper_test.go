package verticalcropper

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/vertical-cropper/internal/config"
	"github.com/menta2k/vertical-cropper/internal/utils"
	"github.com/menta2k/vertical-cropper/pkg/plan"
	"github.com/menta2k/vertical-cropper/pkg/types"
)

// createTestImage creates a frame with a textured subject on a flat background
func createTestImage(width, height, subjectX int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{64, 64, 64, 255})
		}
	}
	for y := height / 3; y < 2*height/3; y++ {
		for x := subjectX; x < subjectX+height/3 && x < width; x++ {
			v := uint8(((x-subjectX)*37 + y*91) % 256)
			img.Set(x, y, color.RGBA{v, 255 - v, v / 2, 255})
		}
	}
	return img
}

// writeSequence writes n frames with the subject moving right by step pixels
func writeSequence(t *testing.T, n, step int) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "frames")
	require.NoError(t, utils.EnsureDir(dir))
	for i := 0; i < n; i++ {
		img := createTestImage(320, 180, 60+i*step)
		require.NoError(t, imaging.Save(img, filepath.Join(dir, fmt.Sprintf("frame_%04d.png", i))))
	}
	return dir
}

func newCropper(t *testing.T, mutate func(*config.Config)) *VerticalCropper {
	t.Helper()
	cfg := config.Default()
	mutate(cfg)
	vc, err := NewWithConfig(cfg)
	require.NoError(t, err)
	return vc
}

func TestNew(t *testing.T) {
	vc := New()
	require.NotNil(t, vc)
	assert.Equal(t, types.ModeFace, vc.Config().Mode)
	assert.Equal(t, "1.0.0", GetVersion())
}

func TestNewWithConfigRejectsInvalid(t *testing.T) {
	cfg := config.Default()
	cfg.Mode = "sideways"
	_, err := NewWithConfig(cfg)
	assert.ErrorIs(t, err, types.ErrInvalidMode)
}

func TestProcessCenterSequence(t *testing.T) {
	input := writeSequence(t, 10, 0)
	output := filepath.Join(t.TempDir(), "out")

	vc := newCropper(t, func(c *config.Config) { c.Mode = types.ModeCenter })
	res, err := vc.Process(context.Background(), input, output)
	require.NoError(t, err)

	assert.Equal(t, 10, res.Stats.Frames)
	assert.NotEmpty(t, res.Stats.RunID)
	assert.Equal(t, types.Rectangle{X: 110, Y: 0, Width: 101, Height: 180}, res.Stats.First)
	assert.Equal(t, res.Stats.First, res.Stats.Last)
	assert.Equal(t, 100, res.Summary.OutputWidth)
	assert.Equal(t, 180, res.Summary.OutputHeight)

	files, err := utils.ListImageFiles(output)
	require.NoError(t, err)
	require.Len(t, files, 10)

	first, err := imaging.Open(files[0])
	require.NoError(t, err)
	assert.Equal(t, 100, first.Bounds().Dx())
	assert.Equal(t, 180, first.Bounds().Dy())
}

func TestProcessOutputHeight(t *testing.T) {
	input := writeSequence(t, 3, 0)
	output := filepath.Join(t.TempDir(), "out")

	vc := newCropper(t, func(c *config.Config) {
		c.Mode = types.ModeCenter
		c.Output.Height = 96
	})
	_, err := vc.Process(context.Background(), input, output)
	require.NoError(t, err)

	files, err := utils.ListImageFiles(output)
	require.NoError(t, err)
	require.Len(t, files, 3)
	img, err := imaging.Open(files[2])
	require.NoError(t, err)
	assert.Equal(t, image.Pt(54, 96), img.Bounds().Size())
}

func TestProcessFaceSequence(t *testing.T) {
	input := writeSequence(t, 6, 0)
	output := filepath.Join(t.TempDir(), "out")

	vc := newCropper(t, func(c *config.Config) {
		c.Mode = types.ModeFace
		c.Vision.Detector = "saliency"
		c.FaceDetection.RightOffset = 0
	})
	res, err := vc.Process(context.Background(), input, output)
	require.NoError(t, err)

	assert.Equal(t, 6, res.Stats.Frames)
	assert.Equal(t, res.Stats.First, res.Stats.Last)
	assert.True(t, res.Stats.First.Within(320, 180))
}

func TestProcessMotionWithPlanAndOverlay(t *testing.T) {
	input := writeSequence(t, 12, 2)
	dir := t.TempDir()
	output := filepath.Join(dir, "out")
	planPath := filepath.Join(dir, "run.plan")
	overlayDir := filepath.Join(dir, "overlay")

	vc := newCropper(t, func(c *config.Config) {
		c.Mode = types.ModeMotion
		c.Output.FPS = 4
		c.Runtime.Plan = planPath
		c.Runtime.DebugOverlay = overlayDir
	})
	res, err := vc.Process(context.Background(), input, output)
	require.NoError(t, err)
	assert.Equal(t, 12, res.Stats.Frames)

	p, err := plan.Load(planPath)
	require.NoError(t, err)
	assert.Equal(t, res.Stats.RunID, p.Header.RunID)
	assert.Equal(t, types.ModeMotion, p.Header.Mode)
	require.Len(t, p.Entries, 12)
	for i, e := range p.Entries {
		assert.Equal(t, i, e.Frame)
		assert.True(t, e.Window().Within(320, 180))
	}

	// 12 frames at 4 fps give an overlay at frames 0, 4 and 8
	overlays, err := utils.ListImageFiles(overlayDir)
	require.NoError(t, err)
	assert.Len(t, overlays, 3)
}

func TestProcessErrors(t *testing.T) {
	vc := newCropper(t, func(c *config.Config) { c.Mode = types.ModeCenter })
	ctx := context.Background()

	_, err := vc.Process(ctx, filepath.Join(t.TempDir(), "missing.mp4"), filepath.Join(t.TempDir(), "out"))
	assert.Error(t, err)

	empty := t.TempDir()
	_, err = vc.Process(ctx, empty, filepath.Join(t.TempDir(), "out"))
	assert.ErrorIs(t, err, types.ErrNoFramesAvailable)

	input := writeSequence(t, 2, 0)
	_, err = vc.Process(ctx, input, filepath.Join(t.TempDir(), "single.png"))
	assert.Error(t, err)

	_, err = vc.Process(ctx, input, "")
	assert.Error(t, err)
}

func TestProcessUnknownDetector(t *testing.T) {
	input := writeSequence(t, 2, 0)
	vc := newCropper(t, func(c *config.Config) { c.Vision.Detector = "nonexistent" })

	_, err := vc.Process(context.Background(), input, filepath.Join(t.TempDir(), "out"))
	assert.Error(t, err)
}

func TestProcessCancelled(t *testing.T) {
	input := writeSequence(t, 4, 0)
	vc := newCropper(t, func(c *config.Config) { c.Mode = types.ModeCenter })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := vc.Process(ctx, input, filepath.Join(t.TempDir(), "out"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessFaceCancelledDuringSampling(t *testing.T) {
	input := writeSequence(t, 6, 0)
	output := filepath.Join(t.TempDir(), "out")
	vc := newCropper(t, func(c *config.Config) {
		c.Mode = types.ModeFace
		c.Vision.Detector = "saliency"
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := vc.Process(ctx, input, output)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, utils.DirExists(output), "sink must not be opened")
}

func TestOpenSourceRejectsSingleImage(t *testing.T) {
	still := filepath.Join(t.TempDir(), "still.png")
	require.NoError(t, imaging.Save(createTestImage(64, 36, 10), still))

	_, err := openSource(still, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "single image")
}

func TestOpenSink(t *testing.T) {
	dir := t.TempDir()

	sink, err := openSink(filepath.Join(dir, "frames"), 30, types.OutputConfig{})
	require.NoError(t, err)
	assert.NoError(t, sink.Close())
	_, statErr := os.Stat(filepath.Join(dir, "frames"))
	assert.NoError(t, statErr)

	sink, err = openSink(filepath.Join(dir, "nested", "clip.mp4"), 30, types.OutputConfig{Codec: "avc1"})
	require.NoError(t, err)
	assert.NoError(t, sink.Close())
	assert.True(t, utils.DirExists(filepath.Join(dir, "nested")))
}
