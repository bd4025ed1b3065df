package strategy

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/menta2k/vertical-cropper/pkg/types"
	"github.com/menta2k/vertical-cropper/pkg/vision"
)

// representativeMotion reduces a flow field to one full-resolution displacement.
// Vectors are rescaled to the full frame, those not longer than threshold are
// dropped, and the rest are averaged weighted by their magnitude. It reports
// false when nothing moved enough.
func representativeMotion(field vision.Field, fullWidth, fullHeight int, threshold float64) (types.Point, bool) {
	if field.Width <= 0 || field.Height <= 0 || len(field.Vectors) == 0 {
		return types.Point{}, false
	}
	sx := float64(fullWidth) / float64(field.Width)
	sy := float64(fullHeight) / float64(field.Height)

	dxs := make([]float64, 0, len(field.Vectors))
	dys := make([]float64, 0, len(field.Vectors))
	weights := make([]float64, 0, len(field.Vectors))
	for _, v := range field.Vectors {
		dx, dy := v.DX*sx, v.DY*sy
		m := math.Hypot(dx, dy)
		if math.IsNaN(m) || math.IsInf(m, 0) || m <= threshold {
			continue
		}
		dxs = append(dxs, dx)
		dys = append(dys, dy)
		weights = append(weights, m)
	}
	if len(weights) == 0 {
		return types.Point{}, false
	}

	motion := types.Point{X: stat.Mean(dxs, weights), Y: stat.Mean(dys, weights)}
	if !motion.Finite() || math.Hypot(motion.X, motion.Y) < threshold {
		return types.Point{}, false
	}
	return motion, true
}

// median returns the middle value of xs, averaging the two middle values for
// even lengths. xs is sorted in place.
func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sort.Float64s(xs)
	n := len(xs)
	return stat.Mean(xs[(n-1)/2:n/2+1], nil)
}
