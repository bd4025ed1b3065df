package vision

import (
	"fmt"
	"image"
)

// BlockMatcher estimates a sparse motion field by exhaustive block matching on
// grey frames. For each textured block of the previous frame it searches the
// current frame within SearchRadius for the offset with the lowest sum of
// absolute differences. Ties prefer the smaller displacement, so static scenes
// report zero motion.
type BlockMatcher struct {
	BlockSize    int
	Stride       int
	SearchRadius int
	// MinContrast skips blocks whose intensity range is below this value
	MinContrast uint8
}

// NewBlockMatcher creates a block matcher with defaults suited to ~0.5x downsampled video
func NewBlockMatcher() *BlockMatcher {
	return &BlockMatcher{
		BlockSize:    8,
		Stride:       8,
		SearchRadius: 6,
		MinContrast:  12,
	}
}

func init() {
	RegisterFlowEngine("blockmatch", func(Options) (FlowEngine, error) {
		return NewBlockMatcher(), nil
	})
}

// Flow implements FlowEngine
func (m *BlockMatcher) Flow(prev, curr *image.Gray) (Field, error) {
	if prev == nil || curr == nil {
		return Field{}, ErrDegenerateFrame
	}
	pb, cb := prev.Bounds(), curr.Bounds()
	if pb.Dx() != cb.Dx() || pb.Dy() != cb.Dy() {
		return Field{}, fmt.Errorf("frame size changed from %dx%d to %dx%d", pb.Dx(), pb.Dy(), cb.Dx(), cb.Dy())
	}

	width, height := pb.Dx(), pb.Dy()
	block, stride, radius := m.params()
	field := Field{Width: width, Height: height}

	// Only blocks whose full search window fits inside the frame are measured.
	for by := radius; by+block+radius <= height; by += stride {
		for bx := radius; bx+block+radius <= width; bx += stride {
			if contrast(prev, bx, by, block) < m.MinContrast {
				continue
			}
			dx, dy := m.search(prev, curr, bx, by, block, radius)
			field.Vectors = append(field.Vectors, Vector{
				X:  float64(bx) + float64(block)/2,
				Y:  float64(by) + float64(block)/2,
				DX: float64(dx),
				DY: float64(dy),
			})
		}
	}

	return field, nil
}

func (m *BlockMatcher) params() (block, stride, radius int) {
	block, stride, radius = m.BlockSize, m.Stride, m.SearchRadius
	if block <= 0 {
		block = 8
	}
	if stride <= 0 {
		stride = block
	}
	if radius < 0 {
		radius = 0
	}
	return block, stride, radius
}

func (m *BlockMatcher) search(prev, curr *image.Gray, bx, by, block, radius int) (int, int) {
	bestDX, bestDY := 0, 0
	best := sad(prev, curr, bx, by, 0, 0, block, -1)
	if best == 0 {
		return 0, 0
	}

	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			cost := sad(prev, curr, bx, by, dx, dy, block, best)
			if cost < best || (cost == best && dx*dx+dy*dy < bestDX*bestDX+bestDY*bestDY) {
				best, bestDX, bestDY = cost, dx, dy
			}
		}
	}
	return bestDX, bestDY
}

// sad returns the sum of absolute differences between the block at (bx,by) in
// prev and the block offset by (dx,dy) in curr. A non-negative limit allows
// early termination once the running sum exceeds it.
func sad(prev, curr *image.Gray, bx, by, dx, dy, block, limit int) int {
	pMin, cMin := prev.Bounds().Min, curr.Bounds().Min
	total := 0
	for y := 0; y < block; y++ {
		pRow := prev.PixOffset(pMin.X+bx, pMin.Y+by+y)
		cRow := curr.PixOffset(cMin.X+bx+dx, cMin.Y+by+dy+y)
		for x := 0; x < block; x++ {
			d := int(prev.Pix[pRow+x]) - int(curr.Pix[cRow+x])
			if d < 0 {
				d = -d
			}
			total += d
		}
		if limit >= 0 && total > limit {
			return total
		}
	}
	return total
}

func contrast(img *image.Gray, bx, by, block int) uint8 {
	origin := img.Bounds().Min
	lo, hi := uint8(255), uint8(0)
	for y := 0; y < block; y++ {
		row := img.PixOffset(origin.X+bx, origin.Y+by+y)
		for _, v := range img.Pix[row : row+block] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	return hi - lo
}
