package vision

import (
	"context"
	"image"
	"math"
	"sort"

	"github.com/menta2k/vertical-cropper/pkg/types"
)

// SaliencyDetector is a model-free fallback detector. It scores square windows
// of a downsampled frame by edge strength and brightness and reports the most
// salient, non-overlapping ones as face candidates.
type SaliencyDetector struct {
	config SaliencyConfig
}

// SaliencyConfig holds configuration for saliency detection
type SaliencyConfig struct {
	ContrastWeight float64
	ColorWeight    float64
	// Threshold is the minimum mean saliency of a reported window
	Threshold float64
	// MaxRegions caps the number of windows reported per frame
	MaxRegions int
	// AnalysisScale is the downsampling applied before scoring
	AnalysisScale float64
	// OverlapLimit is the IoU above which a weaker window is suppressed
	OverlapLimit float64
}

// NewSaliencyDetector creates a new SaliencyDetector with default configuration
func NewSaliencyDetector() *SaliencyDetector {
	return &SaliencyDetector{
		config: SaliencyConfig{
			ContrastWeight: 0.8,
			ColorWeight:    0.2,
			Threshold:      0.05,
			MaxRegions:     1,
			AnalysisScale:  0.25,
			OverlapLimit:   0.3,
		},
	}
}

// NewSaliencyDetectorWithConfig creates a new SaliencyDetector with custom configuration
func NewSaliencyDetectorWithConfig(config SaliencyConfig) *SaliencyDetector {
	return &SaliencyDetector{config: config}
}

func init() {
	RegisterDetector("saliency", func(Options) (FaceDetector, error) {
		return NewSaliencyDetector(), nil
	})
}

type salientRegion struct {
	rect  image.Rectangle
	score float64
}

// Detect implements FaceDetector. Only params.MinSize is honoured.
func (d *SaliencyDetector) Detect(ctx context.Context, img image.Image, params DetectParams) ([]types.Rectangle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scale := d.config.AnalysisScale
	gray, err := Downsample(img, scale)
	if err != nil {
		return nil, err
	}
	if scale <= 0 || scale > 1 {
		scale = 1
	}

	table := d.saliencyTable(gray)
	b := gray.Bounds()
	regions := d.scanWindows(table, b.Dx(), b.Dy(), params.MinSize, scale)
	regions = suppressOverlaps(regions, d.config.OverlapLimit, d.config.MaxRegions)

	full := img.Bounds()
	frame := image.Rect(0, 0, full.Dx(), full.Dy())
	sx := float64(full.Dx()) / float64(b.Dx())
	sy := float64(full.Dy()) / float64(b.Dy())

	faces := make([]types.Rectangle, 0, len(regions))
	for _, r := range regions {
		rect := image.Rect(
			int(math.Round(float64(r.rect.Min.X)*sx)),
			int(math.Round(float64(r.rect.Min.Y)*sy)),
			int(math.Round(float64(r.rect.Max.X)*sx)),
			int(math.Round(float64(r.rect.Max.Y)*sy)),
		).Intersect(frame)
		if rect.Empty() {
			continue
		}
		faces = append(faces, types.FromImageRect(rect, frame))
	}
	return faces, nil
}

// saliencyTable builds a summed-area table of per-pixel saliency. Entry
// (x,y) of the (w+1)x(h+1) table holds the sum over [0,x)x[0,y).
func (d *SaliencyDetector) saliencyTable(gray *image.Gray) []float64 {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	at := func(x, y int) float64 {
		return float64(gray.Pix[gray.PixOffset(b.Min.X+x, b.Min.Y+y)])
	}

	table := make([]float64, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		var rowSum float64
		for x := 0; x < w; x++ {
			var s float64
			if x > 0 && y > 0 && x < w-1 && y < h-1 {
				v := at(x, y)
				var edge float64
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						edge += math.Abs(v - at(x+dx, y+dy))
					}
				}
				edge /= 8 * 255
				s = d.config.ContrastWeight*edge + d.config.ColorWeight*v/255
			}
			rowSum += s
			table[(y+1)*(w+1)+x+1] = table[y*(w+1)+x+1] + rowSum
		}
	}
	return table
}

func (d *SaliencyDetector) scanWindows(table []float64, w, h int, minSize image.Point, scale float64) []salientRegion {
	stride := w + 1
	mean := func(x, y, size int) float64 {
		sum := table[(y+size)*stride+x+size] - table[y*stride+x+size] - table[(y+size)*stride+x] + table[y*stride+x]
		return sum / float64(size*size)
	}

	floor := int(math.Ceil(float64(max(minSize.X, minSize.Y)) * scale))
	short := min(w, h)

	var regions []salientRegion
	for _, div := range []int{8, 6, 4, 3} {
		size := short / div
		if size < 4 || size < floor {
			continue
		}
		step := max(1, size/4)
		for y := 0; y+size <= h; y += step {
			for x := 0; x+size <= w; x += step {
				if score := mean(x, y, size); score > d.config.Threshold {
					regions = append(regions, salientRegion{
						rect:  image.Rect(x, y, x+size, y+size),
						score: score,
					})
				}
			}
		}
	}

	sort.SliceStable(regions, func(i, j int) bool {
		return regions[i].score > regions[j].score
	})
	return regions
}

// suppressOverlaps greedily keeps the strongest regions, dropping any that
// overlap an already kept one by more than limit.
func suppressOverlaps(regions []salientRegion, limit float64, maxRegions int) []salientRegion {
	var kept []salientRegion
	for _, r := range regions {
		if maxRegions > 0 && len(kept) >= maxRegions {
			break
		}
		overlaps := false
		for _, k := range kept {
			if iou(r.rect, k.rect) > limit {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, r)
		}
	}
	return kept
}

func iou(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	ia := float64(inter.Dx() * inter.Dy())
	union := float64(a.Dx()*a.Dy()+b.Dx()*b.Dy()) - ia
	return ia / union
}
