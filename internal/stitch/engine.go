package stitch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/Leiden-Cell-Observatory/wellstitch/internal/config"
	"github.com/Leiden-Cell-Observatory/wellstitch/internal/plate"
	"github.com/Leiden-Cell-Observatory/wellstitch/internal/tiffio"
)

var (
	// ErrTileCount marks wells whose tile count does not fill the grid.
	ErrTileCount = errors.New("tile count does not match grid")
	// ErrTileLayout marks tile indices outside the grid or appearing twice.
	ErrTileLayout = errors.New("tile indices do not cover the grid")
	// ErrTileMismatch marks tiles that disagree on geometry or sample layout.
	ErrTileMismatch = errors.New("tiles disagree on geometry")
)

// Logger is the subset of the batch logger the engine reports through.
type Logger interface {
	Debug(verbose bool, format string, args ...interface{})
	Outlier(format string, args ...interface{})
}

// Engine stitches the tiles of one well into a fused plane stack. It is
// stateless between wells and safe to reuse across a whole batch.
type Engine struct {
	log     Logger
	verbose bool
}

func NewEngine(log Logger, verbose bool) *Engine {
	return &Engine{log: log, verbose: verbose}
}

// Stitch fuses one well's tiles into a stack of canvas planes, one per TIFF
// page. Tiles are placed on the nominal grid, refined by overlap
// registration on the middle page, and blended per the fusion mode. A 1x1
// grid passes the single tile's pages through untouched.
func (e *Engine) Stitch(ctx context.Context, tiles []plate.TileRef, p Params) ([]image.Image, error) {
	if len(tiles) != p.Tiles() {
		return nil, fmt.Errorf("%w: have %d tiles, grid %dx%d needs %d",
			ErrTileCount, len(tiles), p.GridX, p.GridY, p.Tiles())
	}
	readers, names, err := e.openTiles(tiles, p)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()

	if p.Tiles() == 1 {
		return decodeAll(readers[0])
	}

	bounds := readers[0].Bounds()
	tileW, tileH := bounds.Dx(), bounds.Dy()
	positions, err := e.placeAll(ctx, readers, p, tileW, tileH)
	if err != nil {
		return nil, err
	}

	rect, shifted := canvasRect(positions, tileW, tileH)
	kind := kindFor(readers[0].Samples(), readers[0].BitDepth())

	var weights, wsum []float64
	switch p.Fusion {
	case config.FusionLinear:
		marginX := int(math.Round(float64(tileW) * float64(p.OverlapPercent) / 100))
		marginY := int(math.Round(float64(tileH) * float64(p.OverlapPercent) / 100))
		weights = blendWeights(tileW, tileH, marginX, marginY)
	case config.FusionAverage:
		weights = flatWeights(tileW, tileH)
	}
	if weights != nil {
		wsum = weightSum(rect, shifted, weights, tileW, tileH)
	}

	nPages := readers[0].Pages()
	out := make([]image.Image, 0, nPages)
	pages := make([]image.Image, len(readers))
	for pg := 0; pg < nPages; pg++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i, r := range readers {
			img, err := r.Page(pg)
			if err != nil {
				return nil, fmt.Errorf("%s page %d: %w", names[i], pg, err)
			}
			pages[i] = img
		}
		out = append(out, fusePlane(pages, shifted, rect, kind, p.Fusion, weights, wsum, tileW, tileH))
	}
	return out, nil
}

// openTiles opens every tile and orders the readers by acquisition
// sequence. The count already matches the grid and duplicates are rejected,
// so every slot ends up filled. On error any readers opened so far are
// closed.
func (e *Engine) openTiles(tiles []plate.TileRef, p Params) ([]*tiffio.Reader, []string, error) {
	n := p.Tiles()
	readers := make([]*tiffio.Reader, n)
	names := make([]string, n)
	ok := false
	defer func() {
		if !ok {
			for _, r := range readers {
				if r != nil {
					r.Close()
				}
			}
		}
	}()

	for _, t := range tiles {
		seq := t.Index - p.FirstTileIndex
		if seq < 0 || seq >= n {
			return nil, nil, fmt.Errorf("%w: tile %04d outside range %04d..%04d",
				ErrTileLayout, t.Index, p.FirstTileIndex, p.FirstTileIndex+n-1)
		}
		if readers[seq] != nil {
			return nil, nil, fmt.Errorf("%w: tile index %04d appears twice (%s, %s)",
				ErrTileLayout, t.Index, names[seq], t.Name)
		}
		r, err := tiffio.Open(t.Path)
		if err != nil {
			return nil, nil, err
		}
		readers[seq] = r
		names[seq] = t.Name
	}

	ref := readers[0]
	for i, r := range readers[1:] {
		switch {
		case r.Bounds() != ref.Bounds():
			return nil, nil, fmt.Errorf("%w: %s is %dx%d px, %s is %dx%d px",
				ErrTileMismatch, names[0], ref.Bounds().Dx(), ref.Bounds().Dy(),
				names[i+1], r.Bounds().Dx(), r.Bounds().Dy())
		case r.Pages() != ref.Pages():
			return nil, nil, fmt.Errorf("%w: %s has %d pages, %s has %d",
				ErrTileMismatch, names[0], ref.Pages(), names[i+1], r.Pages())
		case r.BitDepth() != ref.BitDepth() || r.Samples() != ref.Samples():
			return nil, nil, fmt.Errorf("%w: %s and %s differ in sample layout",
				ErrTileMismatch, names[0], names[i+1])
		}
	}
	ok = true
	return readers, names, nil
}

// placeAll registers neighbor overlaps on the middle page and solves for
// global tile positions.
func (e *Engine) placeAll(ctx context.Context, readers []*tiffio.Reader, p Params, tileW, tileH int) ([]image.Point, error) {
	nominal := nominalPositions(p, tileW, tileH)

	mid := readers[0].Pages() / 2
	planes := make([]grayPlane, len(readers))
	for i, r := range readers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := r.Page(mid)
		if err != nil {
			return nil, fmt.Errorf("registration page %d: %w", mid, err)
		}
		planes[i] = newGrayPlane(img)
	}

	links, err := e.registerAll(ctx, planes, nominal, p)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		e.log.Debug(e.verbose, "  No usable links, keeping nominal grid positions")
		return nominal, nil
	}
	positions, dropped := placeTiles(p.Tiles(), nominal, links, p.MaxAvgDisplacement)
	for _, l := range dropped {
		e.log.Outlier("  Link %d-%d dropped by optimizer: residual above %.2fpx", l.a, l.b, p.MaxAvgDisplacement)
	}
	return positions, nil
}

// registerAll refines each neighbor pair's relative offset and filters the
// results by correlation and displacement thresholds.
func (e *Engine) registerAll(ctx context.Context, planes []grayPlane, nominal []image.Point, p Params) ([]link, error) {
	var links []link
	for _, pair := range neighborPairs(p) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a, b := pair[0], pair[1]
		rel := nominal[b].Sub(nominal[a])
		off, r := registerPair(planes[a], planes[b], rel, p.SearchRadius)
		if r < p.RegressionThreshold {
			e.log.Outlier("  Link %d-%d rejected: R=%.3f below %.2f", a, b, r, p.RegressionThreshold)
			continue
		}
		if dev := chebyshev(off.Sub(rel)); float64(dev) > p.AbsoluteDisplacement {
			e.log.Outlier("  Link %d-%d rejected: %dpx from nominal, limit %.2fpx", a, b, dev, p.AbsoluteDisplacement)
			continue
		}
		e.log.Debug(e.verbose, "  Link %d-%d: shift (%+d,%+d) R=%.3f", a, b, off.X-rel.X, off.Y-rel.Y, r)
		links = append(links, link{a: a, b: b, off: off, r: r})
	}
	return links, nil
}

// decodeAll returns every page of a single-tile well unchanged.
func decodeAll(r *tiffio.Reader) ([]image.Image, error) {
	out := make([]image.Image, r.Pages())
	for i := range out {
		img, err := r.Page(i)
		if err != nil {
			return nil, err
		}
		out[i] = img
	}
	return out, nil
}
