package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/vertical-cropper/pkg/types"
)

func TestWindowSize(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		aspect        float64
		wantW, wantH  int
	}{
		{"1080p", 1920, 1080, 9.0 / 16.0, 608, 1080},
		{"640x360", 640, 360, 9.0 / 16.0, 203, 360},
		{"portrait source pins width", 300, 1000, 9.0 / 16.0, 300, 533},
		{"square target", 400, 300, 1.0, 300, 300},
		{"wide target on narrow frame", 100, 300, 16.0 / 9.0, 100, 56},
		{"invalid aspect uses default", 1920, 1080, 0, 608, 1080},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := WindowSize(tt.width, tt.height, tt.aspect)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestClampCentersWindow(t *testing.T) {
	win := Clamp(types.Point{X: 960, Y: 540}, 1920, 1080, 9.0/16.0)

	assert.Equal(t, types.Rectangle{X: 656, Y: 0, Width: 608, Height: 1080}, win)
}

func TestClampShiftsMinimally(t *testing.T) {
	left := Clamp(types.Point{X: 10, Y: 540}, 1920, 1080, 9.0/16.0)
	assert.Equal(t, 0, left.X)

	right := Clamp(types.Point{X: 1910, Y: 540}, 1920, 1080, 9.0/16.0)
	assert.Equal(t, 1920-608, right.X)

	// Already valid placements are not moved.
	mid := Clamp(types.Point{X: 500, Y: 540}, 1920, 1080, 9.0/16.0)
	assert.Equal(t, 196, mid.X)
}

func TestClampVerticalCenteringWhenWidthLimited(t *testing.T) {
	for _, y := range []float64{0, 100, 500, 950, 1e9} {
		win := Clamp(types.Point{X: 150, Y: y}, 300, 1000, 9.0/16.0)

		assert.Equal(t, 300, win.Width)
		assert.Equal(t, 533, win.Height)
		assert.Equal(t, 0, win.X)
		assert.Equal(t, 234, win.Y, "desired y %v", y)
	}
}

func TestClampFullHeightIgnoresDesiredY(t *testing.T) {
	win := Clamp(types.Point{X: 960, Y: 20}, 1920, 1080, 9.0/16.0)

	assert.Equal(t, 0, win.Y)
	assert.Equal(t, 1080, win.Height)
}

func TestClampTotality(t *testing.T) {
	centers := []types.Point{
		{X: 0, Y: 0},
		{X: -1e9, Y: -1e9},
		{X: 1e12, Y: 1e12},
		{X: math.Inf(1), Y: 10},
		{X: math.NaN(), Y: math.NaN()},
		{X: 320, Y: -50},
		{X: 5000, Y: 180},
	}
	sizes := [][2]int{{640, 360}, {1920, 1080}, {1, 1}, {3, 2000}, {2000, 3}, {17, 31}}
	aspects := []float64{9.0 / 16.0, 1, 4.0 / 5.0, 16.0 / 9.0}

	for _, size := range sizes {
		for _, aspect := range aspects {
			for _, c := range centers {
				win := Clamp(c, size[0], size[1], aspect)
				require.Truef(t, win.Within(size[0], size[1]),
					"window %+v outside %dx%d for center %+v", win, size[0], size[1], c)
				require.False(t, win.Empty())
			}
		}
	}
}

func TestClampAspectPreservation(t *testing.T) {
	sizes := [][2]int{{640, 360}, {1920, 1080}, {1280, 720}, {3840, 2160}, {300, 1000}, {999, 777}}
	aspects := []float64{9.0 / 16.0, 4.0 / 5.0, 3.0 / 4.0, 1}

	for _, size := range sizes {
		for _, aspect := range aspects {
			win := Clamp(FrameCenter(size[0], size[1]), size[0], size[1], aspect)
			got := float64(win.Width) / float64(win.Height)
			// Half a pixel of rounding on the derived side.
			tolerance := (1 + aspect) / float64(win.Height)
			assert.InDeltaf(t, aspect, got, tolerance, "size %v aspect %f", size, aspect)
		}
	}
}

func TestClampDegenerateFrame(t *testing.T) {
	assert.Equal(t, types.Rectangle{}, Clamp(types.Point{}, 0, 100, 9.0/16.0))
	assert.Equal(t, types.Rectangle{}, Clamp(types.Point{}, 100, -1, 9.0/16.0))
}

func TestClampPoint(t *testing.T) {
	p := ClampPoint(types.Point{X: -5, Y: 900}, 640, 360)
	assert.Equal(t, types.Point{X: 0, Y: 360}, p)
}

func BenchmarkClamp(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Clamp(types.Point{X: float64(i % 1920), Y: 540}, 1920, 1080, 9.0/16.0)
	}
}
