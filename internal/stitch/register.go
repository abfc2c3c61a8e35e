package stitch

import (
	"image"
	"math"

	"gonum.org/v1/gonum/stat"
)

// minOverlapSamples is the smallest overlap worth correlating; anything
// below it is noise.
const minOverlapSamples = 16

// grayPlane is a tile's reference page flattened to float64 intensities for
// correlation work. RGB collapses to luma; 16-bit keeps its full range.
type grayPlane struct {
	w, h int
	pix  []float64
}

func newGrayPlane(img image.Image) grayPlane {
	b := img.Bounds()
	g := grayPlane{w: b.Dx(), h: b.Dy(), pix: make([]float64, b.Dx()*b.Dy())}
	switch im := img.(type) {
	case *image.Gray:
		for y := 0; y < g.h; y++ {
			off := im.PixOffset(b.Min.X, b.Min.Y+y)
			for x := 0; x < g.w; x++ {
				g.pix[y*g.w+x] = float64(im.Pix[off+x])
			}
		}
	case *image.Gray16:
		for y := 0; y < g.h; y++ {
			off := im.PixOffset(b.Min.X, b.Min.Y+y)
			for x := 0; x < g.w; x++ {
				g.pix[y*g.w+x] = float64(uint16(im.Pix[off+2*x])<<8 | uint16(im.Pix[off+2*x+1]))
			}
		}
	default:
		for y := 0; y < g.h; y++ {
			for x := 0; x < g.w; x++ {
				r, gr, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				g.pix[y*g.w+x] = 0.299*float64(r) + 0.587*float64(gr) + 0.114*float64(bl)
			}
		}
	}
	return g
}

func (g grayPlane) at(x, y int) float64 { return g.pix[y*g.w+x] }

// link is one registered adjacency: the refined offset of tile b's origin
// relative to tile a's origin, and the correlation achieved there.
type link struct {
	a, b int
	off  image.Point
	r    float64
}

// registerPair refines the nominal relative offset between two tiles by
// exhaustive translation search within the given radius, scoring candidates
// by the Pearson correlation of the shared overlap region. Ties resolve
// toward the nominal offset so featureless tiles register deterministically.
func registerPair(a, b grayPlane, nominal image.Point, radius int) (image.Point, float64) {
	best := nominal
	bestR := math.Inf(-1)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			off := image.Pt(nominal.X+dx, nominal.Y+dy)
			r, ok := overlapCorrelation(a, b, off)
			if !ok {
				continue
			}
			if r > bestR || (r == bestR && manhattan(off.Sub(nominal)) < manhattan(best.Sub(nominal))) {
				best, bestR = off, r
			}
		}
	}
	if math.IsInf(bestR, -1) {
		return nominal, 0
	}
	return best, bestR
}

// overlapCorrelation computes Pearson R over the region where tile a (at the
// origin) and tile b (at off) overlap. Large overlaps are subsampled on a
// fixed stride; the estimate stays unbiased and the search stays tractable.
// ok is false when the overlap is too small or has no variance.
func overlapCorrelation(a, b grayPlane, off image.Point) (float64, bool) {
	ra := image.Rect(0, 0, a.w, a.h)
	rb := image.Rect(off.X, off.Y, off.X+b.w, off.Y+b.h)
	ov := ra.Intersect(rb)
	if ov.Dx() < 2 || ov.Dy() < 2 || ov.Dx()*ov.Dy() < minOverlapSamples {
		return 0, false
	}

	step := 1
	if ov.Dx()*ov.Dy() > 1<<16 {
		step = 2
	}
	if ov.Dx()*ov.Dy() > 1<<20 {
		step = 4
	}

	n := ((ov.Dx() + step - 1) / step) * ((ov.Dy() + step - 1) / step)
	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	for y := ov.Min.Y; y < ov.Max.Y; y += step {
		for x := ov.Min.X; x < ov.Max.X; x += step {
			xs = append(xs, a.at(x, y))
			ys = append(ys, b.at(x-off.X, y-off.Y))
		}
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) {
		return 0, false
	}
	return r, true
}

func manhattan(p image.Point) int {
	return abs(p.X) + abs(p.Y)
}

func chebyshev(p image.Point) int {
	if abs(p.X) > abs(p.Y) {
		return abs(p.X)
	}
	return abs(p.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
