package cropper

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/vertical-cropper/pkg/types"
)

// createTestImage creates an image whose left half is red and right half blue
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < width/2 {
				img.Set(x, y, color.RGBA{255, 0, 0, 255})
			} else {
				img.Set(x, y, color.RGBA{0, 0, 255, 255})
			}
		}
	}
	return img
}

func TestCommonAspectRatios(t *testing.T) {
	ratios := CommonAspectRatios()
	require.NotEmpty(t, ratios)
	assert.Equal(t, Story, ratios[0])
	assert.InDelta(t, types.DefaultAspectRatio, Story.Value(), 1e-12)
	assert.Equal(t, "9:16", Story.String())
}

func TestParseAspectRatio(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"story", 9.0 / 16.0, false},
		{"Square", 1, false},
		{"9:16", 9.0 / 16.0, false},
		{" 4:5 ", 0.8, false},
		{"16", 0, true},
		{"a:b", 0, true},
		{"0:16", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAspectRatio(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got.Value(), 1e-12)
		})
	}
}

func TestOutputSize(t *testing.T) {
	w, h := OutputSize(9.0/16.0, 1920)
	assert.Equal(t, 1080, w)
	assert.Equal(t, 1920, h)

	w, h = OutputSize(9.0/16.0, 360)
	assert.Equal(t, 202, w)
	assert.Equal(t, 360, h)

	w, h = OutputSize(9.0/16.0, 0)
	assert.Equal(t, 2, w)
	assert.Equal(t, 2, h)
}

func TestComposeResizes(t *testing.T) {
	c := New(9.0/16.0, 1280)
	frame := createTestImage(1920, 1080)

	out, err := c.Compose(frame, types.Rectangle{X: 0, Y: 0, Width: 608, Height: 1080})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 720, 1280), out.Bounds())

	// The window lies in the red half.
	r, g, b, _ := out.At(360, 640).RGBA()
	assert.Greater(t, r, uint32(0xf000))
	assert.Less(t, g, uint32(0x1000))
	assert.Less(t, b, uint32(0x1000))
}

func TestComposeKeepsNativeHeight(t *testing.T) {
	c := New(9.0/16.0, 0)
	frame := createTestImage(1920, 1080)

	out, err := c.Compose(frame, types.Rectangle{X: 1312, Y: 0, Width: 608, Height: 1080})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 608, 1080), out.Bounds())

	w, h := c.Size()
	assert.Equal(t, 608, w)
	assert.Equal(t, 1080, h)

	_, _, b, _ := out.At(300, 500).RGBA()
	assert.Greater(t, b, uint32(0xf000))
}

func TestComposeOffsetBounds(t *testing.T) {
	frame := createTestImage(200, 100).(*image.RGBA).SubImage(image.Rect(100, 0, 200, 100))
	c := New(0.5, 0)

	out, err := c.Compose(frame, types.Rectangle{X: 0, Y: 0, Width: 50, Height: 100})
	require.NoError(t, err)

	_, _, b, _ := out.At(10, 10).RGBA()
	assert.Greater(t, b, uint32(0xf000))
}

func TestComposeDimensionMismatch(t *testing.T) {
	c := New(9.0/16.0, 0)
	frame := createTestImage(640, 360)

	_, err := c.Compose(frame, types.Rectangle{X: 500, Y: 0, Width: 203, Height: 360})
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)

	_, err = c.Compose(frame, types.Rectangle{})
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)
}

func BenchmarkCompose(b *testing.B) {
	c := New(9.0/16.0, 1280)
	frame := createTestImage(1920, 1080)
	window := types.Rectangle{X: 656, Y: 0, Width: 608, Height: 1080}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Compose(frame, window)
	}
}
