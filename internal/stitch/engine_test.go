package stitch

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leiden-Cell-Observatory/wellstitch/internal/config"
	"github.com/Leiden-Cell-Observatory/wellstitch/internal/plate"
	"github.com/Leiden-Cell-Observatory/wellstitch/internal/tiffio"
)

// testLog records engine output so assertions can look at rejected links.
type testLog struct {
	outliers []string
	debugs   []string
}

func (l *testLog) Debug(verbose bool, format string, args ...interface{}) {
	l.debugs = append(l.debugs, fmt.Sprintf(format, args...))
}

func (l *testLog) Outlier(format string, args ...interface{}) {
	l.outliers = append(l.outliers, fmt.Sprintf(format, args...))
}

func gridParams() Params {
	return Params{
		GridX:                2,
		GridY:                2,
		OverlapPercent:       25,
		FirstTileIndex:       0,
		Order:                config.OrderSnakeByRows,
		Fusion:               config.FusionLinear,
		RegressionThreshold:  0.30,
		MaxAvgDisplacement:   2.5,
		AbsoluteDisplacement: 3.5,
		SearchRadius:         8,
	}
}

// cutTile writes a tile cropped from the shared texture at (ox, oy), one
// page per element of pageShifts. Tiles cut this way agree exactly wherever
// they overlap, so registration correlates at 1.0 at the true offset.
func cutTile(t *testing.T, dir, name string, ox, oy, w, h int, pageShifts []int, index int) plate.TileRef {
	t.Helper()
	planes := make([]image.Image, len(pageShifts))
	for p, shift := range pageShifts {
		img := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.Pix[img.PixOffset(x, y)] = texture(ox+x, oy+y+shift)
			}
		}
		planes[p] = img
	}
	path := filepath.Join(dir, name)
	_, err := tiffio.WriteFile(path, planes, "")
	require.NoError(t, err)
	return plate.TileRef{Path: path, Name: name, Well: "A01", Index: index}
}

// TestEngine_RecoverGrid stitches a 2x2 grid whose tiles sit a few pixels
// off their nominal positions. Because every tile is cut from one shared
// texture, the fused canvas must reproduce that texture exactly wherever a
// tile covers it, on every page.
func TestEngine_RecoverGrid(t *testing.T) {
	dir := t.TempDir()
	shifts := []int{0, 4096}

	// Truth positions, consistent across pairs and within the search
	// radius: snake order is 0:(0,0) 1:(1,0) 2:(1,1) 3:(0,1).
	tiles := []plate.TileRef{
		cutTile(t, dir, "scan_A01_0000.tif", 0, 0, 24, 24, shifts, 0),
		cutTile(t, dir, "scan_A01_0001.tif", 20, 1, 24, 24, shifts, 1),
		cutTile(t, dir, "scan_A01_0002.tif", 21, 19, 24, 24, shifts, 2),
		cutTile(t, dir, "scan_A01_0003.tif", 1, 20, 24, 24, shifts, 3),
	}

	log := &testLog{}
	planes, err := NewEngine(log, true).Stitch(context.Background(), tiles, gridParams())
	require.NoError(t, err)
	require.Len(t, planes, 2)
	assert.Empty(t, log.outliers, "all links are consistent")

	assert.Equal(t, image.Rect(0, 0, 45, 44), planes[0].Bounds())

	// Sample one interior point per tile plus an overlap point.
	points := []image.Point{{2, 2}, {30, 10}, {30, 30}, {5, 30}, {22, 5}}
	for p, shift := range shifts {
		fused, ok := planes[p].(*image.Gray)
		require.True(t, ok)
		for _, pt := range points {
			want := texture(pt.X, pt.Y+shift)
			assert.Equal(t, want, fused.GrayAt(pt.X, pt.Y).Y, "page %d at %v", p, pt)
		}
	}
}

// TestEngine_RejectsDriftedLink feeds one tile cut from a completely
// different texture region: its links fail the correlation threshold and it
// falls back to its nominal position instead of poisoning the placement.
func TestEngine_RejectsDriftedLink(t *testing.T) {
	dir := t.TempDir()
	shifts := []int{0}

	tiles := []plate.TileRef{
		cutTile(t, dir, "scan_A01_0000.tif", 0, 0, 24, 24, shifts, 0),
		cutTile(t, dir, "scan_A01_0001.tif", 18, 0, 24, 24, shifts, 1),
		cutTile(t, dir, "scan_A01_0002.tif", 9000, 9000, 24, 24, shifts, 2),
		cutTile(t, dir, "scan_A01_0003.tif", 0, 18, 24, 24, shifts, 3),
	}

	log := &testLog{}
	planes, err := NewEngine(log, false).Stitch(context.Background(), tiles, gridParams())
	require.NoError(t, err)
	require.Len(t, planes, 1)
	assert.NotEmpty(t, log.outliers, "the foreign tile's links must be rejected")
}

func TestEngine_TileCountMismatch(t *testing.T) {
	dir := t.TempDir()
	tiles := []plate.TileRef{
		cutTile(t, dir, "scan_A01_0000.tif", 0, 0, 16, 16, []int{0}, 0),
		cutTile(t, dir, "scan_A01_0001.tif", 12, 0, 16, 16, []int{0}, 1),
	}

	_, err := NewEngine(&testLog{}, false).Stitch(context.Background(), tiles, gridParams())
	require.ErrorIs(t, err, ErrTileCount)
}

func TestEngine_DuplicateIndex(t *testing.T) {
	dir := t.TempDir()
	p := gridParams()
	p.GridX, p.GridY = 2, 1

	tiles := []plate.TileRef{
		cutTile(t, dir, "a_A01_0000.tif", 0, 0, 16, 16, []int{0}, 0),
		cutTile(t, dir, "b_A01_0000.tif", 12, 0, 16, 16, []int{0}, 0),
	}

	_, err := NewEngine(&testLog{}, false).Stitch(context.Background(), tiles, p)
	require.ErrorIs(t, err, ErrTileLayout)
	assert.Contains(t, err.Error(), "appears twice")
}

func TestEngine_IndexOutsideGrid(t *testing.T) {
	dir := t.TempDir()
	p := gridParams()
	p.GridX, p.GridY = 2, 1

	tiles := []plate.TileRef{
		cutTile(t, dir, "scan_A01_0000.tif", 0, 0, 16, 16, []int{0}, 0),
		cutTile(t, dir, "scan_A01_0007.tif", 12, 0, 16, 16, []int{0}, 7),
	}

	_, err := NewEngine(&testLog{}, false).Stitch(context.Background(), tiles, p)
	require.ErrorIs(t, err, ErrTileLayout)
}

func TestEngine_GeometryMismatch(t *testing.T) {
	dir := t.TempDir()
	p := gridParams()
	p.GridX, p.GridY = 2, 1

	tiles := []plate.TileRef{
		cutTile(t, dir, "scan_A01_0000.tif", 0, 0, 16, 16, []int{0}, 0),
		cutTile(t, dir, "scan_A01_0001.tif", 12, 0, 24, 24, []int{0}, 1),
	}

	_, err := NewEngine(&testLog{}, false).Stitch(context.Background(), tiles, p)
	require.ErrorIs(t, err, ErrTileMismatch)
}

// TestEngine_SingleTilePassthrough checks the 1x1 fast path: pages come
// back pixel-identical with no registration or fusion applied.
func TestEngine_SingleTilePassthrough(t *testing.T) {
	dir := t.TempDir()
	p := gridParams()
	p.GridX, p.GridY = 1, 1
	p.FirstTileIndex = 1

	tiles := []plate.TileRef{
		cutTile(t, dir, "scan_A01_0001.tif", 7, 3, 10, 8, []int{0, 4096, 8192}, 1),
	}

	planes, err := NewEngine(&testLog{}, false).Stitch(context.Background(), tiles, p)
	require.NoError(t, err)
	require.Len(t, planes, 3)

	for pg, shift := range []int{0, 4096, 8192} {
		img, ok := planes[pg].(*image.Gray)
		require.True(t, ok)
		assert.Equal(t, image.Rect(0, 0, 10, 8), img.Bounds())
		assert.Equal(t, texture(7, 3+shift), img.GrayAt(0, 0).Y, "page %d", pg)
	}
}

func TestEngine_Canceled(t *testing.T) {
	dir := t.TempDir()
	tiles := []plate.TileRef{
		cutTile(t, dir, "scan_A01_0000.tif", 0, 0, 24, 24, []int{0}, 0),
		cutTile(t, dir, "scan_A01_0001.tif", 20, 1, 24, 24, []int{0}, 1),
		cutTile(t, dir, "scan_A01_0002.tif", 21, 19, 24, 24, []int{0}, 2),
		cutTile(t, dir, "scan_A01_0003.tif", 1, 20, 24, 24, []int{0}, 3),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine(&testLog{}, false).Stitch(ctx, tiles, gridParams())
	require.ErrorIs(t, err, context.Canceled)
}
