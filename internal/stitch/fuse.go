package stitch

import (
	"image"
	"math"

	"github.com/Leiden-Cell-Observatory/wellstitch/internal/config"
)

// planeKind is the pixel layout fusion runs in, derived from the tile
// headers once per well.
type planeKind int

const (
	kindGray planeKind = iota
	kindGray16
	kindRGB
)

func (k planeKind) channels() int {
	if k == kindRGB {
		return 3
	}
	return 1
}

// kindFor maps a tile's sample layout onto a fusion kind.
func kindFor(samples, bitDepth int) planeKind {
	switch {
	case samples == 1 && bitDepth == 16:
		return kindGray16
	case samples == 1:
		return kindGray
	default:
		return kindRGB
	}
}

// canvasRect normalizes placed positions so the minimum is the origin and
// sizes the canvas to the bounding box of all tiles.
func canvasRect(pos []image.Point, tileW, tileH int) (image.Rectangle, []image.Point) {
	min := pos[0]
	for _, p := range pos[1:] {
		if p.X < min.X {
			min.X = p.X
		}
		if p.Y < min.Y {
			min.Y = p.Y
		}
	}
	shifted := make([]image.Point, len(pos))
	var max image.Point
	for i, p := range pos {
		shifted[i] = p.Sub(min)
		if shifted[i].X+tileW > max.X {
			max.X = shifted[i].X + tileW
		}
		if shifted[i].Y+tileH > max.Y {
			max.Y = shifted[i].Y + tileH
		}
	}
	return image.Rect(0, 0, max.X, max.Y), shifted
}

// blendWeights precomputes the per-pixel fusion weight of one tile: the
// product of two edge ramps rising from the tile border across the blend
// margin. Every pixel keeps a positive weight so tiles without neighbors
// still normalize to themselves.
func blendWeights(tileW, tileH, marginX, marginY int) []float64 {
	rampX := edgeRamp(tileW, marginX)
	rampY := edgeRamp(tileH, marginY)
	w := make([]float64, tileW*tileH)
	for y := 0; y < tileH; y++ {
		for x := 0; x < tileW; x++ {
			w[y*tileW+x] = rampX[x] * rampY[y]
		}
	}
	return w
}

// flatWeights is the unit weight map used by average fusion.
func flatWeights(tileW, tileH int) []float64 {
	w := make([]float64, tileW*tileH)
	for i := range w {
		w[i] = 1
	}
	return w
}

// edgeRamp returns per-coordinate weights rising linearly from each edge
// over margin pixels and flat at 1 in the interior.
func edgeRamp(size, margin int) []float64 {
	r := make([]float64, size)
	for i := range r {
		r[i] = 1
		if margin > 0 {
			d := i
			if size-1-i < d {
				d = size - 1 - i
			}
			if d < margin {
				r[i] = (float64(d) + 1) / float64(margin+1)
			}
		}
	}
	return r
}

// weightSum accumulates the canvas-wide weight total at each pixel. Computed
// once per well and reused for every page.
func weightSum(rect image.Rectangle, pos []image.Point, weights []float64, tileW, tileH int) []float64 {
	W := rect.Dx()
	sum := make([]float64, W*rect.Dy())
	for _, base := range pos {
		for y := 0; y < tileH; y++ {
			row := (base.Y + y) * W
			trow := y * tileW
			for x := 0; x < tileW; x++ {
				sum[row+base.X+x] += weights[trow+x]
			}
		}
	}
	return sum
}

// fusePlane blends one page of every tile into a single canvas plane.
// weights is the per-tile pixel weight map, wsum the precomputed canvas
// total; both are ignored for max fusion.
func fusePlane(pages []image.Image, pos []image.Point, rect image.Rectangle, kind planeKind, mode config.FusionMode, weights, wsum []float64, tileW, tileH int) image.Image {
	W, H := rect.Dx(), rect.Dy()
	nc := kind.channels()
	acc := make([]float64, nc*W*H)

	if mode == config.FusionMax {
		for i := range acc {
			acc[i] = -1
		}
		for t, pg := range pages {
			vals := tileValues(pg, kind)
			base := pos[t]
			for y := 0; y < tileH; y++ {
				row := (base.Y + y) * W
				trow := y * tileW
				for x := 0; x < tileW; x++ {
					ci := row + base.X + x
					ti := trow + x
					for c := 0; c < nc; c++ {
						if v := vals[c][ti]; v > acc[c*W*H+ci] {
							acc[c*W*H+ci] = v
						}
					}
				}
			}
		}
		for i := range acc {
			if acc[i] < 0 {
				acc[i] = 0
			}
		}
		return materialize(acc, rect, kind)
	}

	for t, pg := range pages {
		vals := tileValues(pg, kind)
		base := pos[t]
		for y := 0; y < tileH; y++ {
			row := (base.Y + y) * W
			trow := y * tileW
			for x := 0; x < tileW; x++ {
				ci := row + base.X + x
				ti := trow + x
				w := weights[ti]
				for c := 0; c < nc; c++ {
					acc[c*W*H+ci] += w * vals[c][ti]
				}
			}
		}
	}
	for c := 0; c < nc; c++ {
		for i, ws := range wsum {
			if ws > 0 {
				acc[c*W*H+i] /= ws
			}
		}
	}
	return materialize(acc, rect, kind)
}

// tileValues converts one decoded page to flat float channel planes.
func tileValues(img image.Image, kind planeKind) [][]float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	switch kind {
	case kindGray:
		out := make([]float64, w*h)
		if im, ok := img.(*image.Gray); ok {
			for y := 0; y < h; y++ {
				off := im.PixOffset(b.Min.X, b.Min.Y+y)
				for x := 0; x < w; x++ {
					out[y*w+x] = float64(im.Pix[off+x])
				}
			}
		} else {
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
					out[y*w+x] = float64(r >> 8)
				}
			}
		}
		return [][]float64{out}

	case kindGray16:
		out := make([]float64, w*h)
		if im, ok := img.(*image.Gray16); ok {
			for y := 0; y < h; y++ {
				off := im.PixOffset(b.Min.X, b.Min.Y+y)
				for x := 0; x < w; x++ {
					out[y*w+x] = float64(uint16(im.Pix[off+2*x])<<8 | uint16(im.Pix[off+2*x+1]))
				}
			}
		} else {
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
					out[y*w+x] = float64(r)
				}
			}
		}
		return [][]float64{out}

	default:
		rp := make([]float64, w*h)
		gp := make([]float64, w*h)
		bp := make([]float64, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				rp[y*w+x] = float64(r >> 8)
				gp[y*w+x] = float64(g >> 8)
				bp[y*w+x] = float64(bl >> 8)
			}
		}
		return [][]float64{rp, gp, bp}
	}
}

// materialize converts accumulated float channels back to an image at the
// input bit depth.
func materialize(acc []float64, rect image.Rectangle, kind planeKind) image.Image {
	W, H := rect.Dx(), rect.Dy()
	count := W * H
	switch kind {
	case kindGray16:
		img := image.NewGray16(rect)
		for i := 0; i < count; i++ {
			v := clamp(acc[i], 65535)
			img.Pix[2*i] = uint8(v >> 8)
			img.Pix[2*i+1] = uint8(v)
		}
		return img
	case kindRGB:
		img := image.NewRGBA(rect)
		for i := 0; i < count; i++ {
			img.Pix[4*i] = uint8(clamp(acc[i], 255))
			img.Pix[4*i+1] = uint8(clamp(acc[count+i], 255))
			img.Pix[4*i+2] = uint8(clamp(acc[2*count+i], 255))
			img.Pix[4*i+3] = 0xff
		}
		return img
	default:
		img := image.NewGray(rect)
		for i := 0; i < count; i++ {
			img.Pix[i] = uint8(clamp(acc[i], 255))
		}
		return img
	}
}

func clamp(v float64, max uint32) uint32 {
	r := math.Round(v)
	if r < 0 {
		return 0
	}
	if r > float64(max) {
		return max
	}
	return uint32(r)
}
