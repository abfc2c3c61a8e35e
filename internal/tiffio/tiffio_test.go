package tiffio

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

// grayPlane builds a small gray page with per-pixel values derived from seed
// so pages are distinguishable after a round trip.
func grayPlane(w, h, seed int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(seed*40 + y*w + x)})
		}
	}
	return img
}

func gray16Plane(w, h, seed int) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray16(x, y, color.Gray16{Y: uint16(seed*700 + y*w + x)})
		}
	}
	return img
}

func TestRoundTrip_GrayStack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stack.tif")
	planes := []image.Image{grayPlane(5, 4, 0), grayPlane(5, 4, 1), grayPlane(5, 4, 2)}
	desc := "ImageJ=1.54f\nimages=3\nslices=3\nhyperstack=true\n"

	size, err := WriteFile(path, planes, desc)
	require.NoError(t, err)
	assert.Greater(t, size, int64(0))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 3, r.Pages())
	assert.Equal(t, image.Rect(0, 0, 5, 4), r.Bounds())
	assert.Equal(t, 8, r.BitDepth())
	assert.Equal(t, 1, r.Samples())
	assert.Equal(t, desc, r.Description())
	assert.False(t, r.Compressed())

	for i, want := range planes {
		got, err := r.Page(i)
		require.NoError(t, err, "page %d", i)
		g, ok := got.(*image.Gray)
		require.True(t, ok, "page %d should decode as Gray", i)
		assert.Equal(t, want.(*image.Gray).Pix, g.Pix, "page %d pixels", i)
	}
}

func TestRoundTrip_Gray16(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep.tif")
	planes := []image.Image{gray16Plane(4, 4, 1), gray16Plane(4, 4, 3)}

	_, err := WriteFile(path, planes, "")
	require.NoError(t, err)

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 16, r.BitDepth())
	assert.Empty(t, r.Description())

	got, err := r.Page(1)
	require.NoError(t, err)
	g, ok := got.(*image.Gray16)
	require.True(t, ok)
	// Values above 255 survive, so the 16-bit path is real.
	assert.Equal(t, uint16(3*700), g.Gray16At(0, 0).Y)
	assert.Equal(t, uint16(3*700+15), g.Gray16At(3, 3).Y)
}

func TestRoundTrip_RGB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rgb.tif")
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(10 * x), G: uint8(20 * y), B: 200, A: 255})
		}
	}

	_, err := WriteFile(path, []image.Image{img}, "")
	require.NoError(t, err)

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 3, r.Samples())
	got, err := r.Page(0)
	require.NoError(t, err)
	g, ok := got.(*image.RGBA)
	require.True(t, ok)
	assert.Equal(t, img.Pix, g.Pix)
}

func TestRoundTrip_OddStripSize(t *testing.T) {
	// 3x3 gray gives a 9-byte strip; the writer pads blocks to even offsets
	// and the reader must not see the padding.
	path := filepath.Join(t.TempDir(), "odd.tif")
	planes := []image.Image{grayPlane(3, 3, 0), grayPlane(3, 3, 1)}

	_, err := WriteFile(path, planes, "")
	require.NoError(t, err)

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	for i, want := range planes {
		got, err := r.Page(i)
		require.NoError(t, err)
		assert.Equal(t, want.(*image.Gray).Pix, got.(*image.Gray).Pix, "page %d", i)
	}
}

func TestReadInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "info.tif")
	_, err := WriteFile(path, []image.Image{gray16Plane(6, 2, 0)}, "meta")
	require.NoError(t, err)

	info, err := ReadInfo(path)
	require.NoError(t, err)
	assert.Equal(t, Info{
		Width:           6,
		Height:          2,
		Pages:           1,
		BitsPerSample:   16,
		SamplesPerPixel: 1,
		Compressed:      false,
		Description:     "meta",
	}, info)
}

func TestOpen_NotTIFF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.tif")
	require.NoError(t, os.WriteFile(path, []byte("this is not image data"), 0o644))

	_, err := Open(path)
	assert.ErrorIs(t, err, ErrNotTIFF)
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.tif"))
	assert.Error(t, err)
}

func TestPage_OutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "one.tif")
	_, err := WriteFile(path, []image.Image{grayPlane(2, 2, 0)}, "")
	require.NoError(t, err)

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Page(1)
	assert.Error(t, err)
	_, err = r.Page(-1)
	assert.Error(t, err)
}

func TestCompressedSinglePage_FallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deflate.tif")
	want := grayPlane(8, 8, 2)

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, tiff.Encode(f, want, &tiff.Options{Compression: tiff.Deflate}))
	require.NoError(t, f.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 1, r.Pages())
	assert.True(t, r.Compressed())

	got, err := r.Page(0)
	require.NoError(t, err)
	g, ok := got.(*image.Gray)
	require.True(t, ok)
	assert.Equal(t, want.Pix, g.Pix)
}

func TestEncodeAll_Validation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.tif")

	_, err := WriteFile(path, nil, "")
	assert.Error(t, err, "empty stack")

	_, err = WriteFile(path, []image.Image{grayPlane(4, 4, 0), grayPlane(5, 4, 0)}, "")
	assert.Error(t, err, "mismatched bounds")

	_, err = WriteFile(path, []image.Image{grayPlane(4, 4, 0), gray16Plane(4, 4, 0)}, "")
	assert.Error(t, err, "mixed formats")
}
