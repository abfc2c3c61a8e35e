package hyper

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tagged returns a 1x1 plane whose single pixel value identifies it.
func tagged(v int) image.Image {
	img := image.NewGray(image.Rect(0, 0, 1, 1))
	img.SetGray(0, 0, color.Gray{Y: uint8(v)})
	return img
}

func valueOf(img image.Image) int {
	return int(img.(*image.Gray).GrayAt(0, 0).Y)
}

func flatStack(n int) []image.Image {
	planes := make([]image.Image, n)
	for i := range planes {
		planes[i] = tagged(i)
	}
	return planes
}

func TestReshape_XYCZT(t *testing.T) {
	// Interleaved input: plane index = c + channels*(z + slices*t).
	h, err := Reshape(flatStack(6), 2, 3, 1, OrderXYCZT)
	require.NoError(t, err)

	assert.Equal(t, 2, h.Channels)
	assert.Equal(t, 3, h.Slices)
	assert.Equal(t, 1, h.Frames)
	assert.Equal(t, ModeComposite, h.Mode)

	for z := 0; z < 3; z++ {
		for c := 0; c < 2; c++ {
			want := c + 2*z
			assert.Equal(t, want, valueOf(h.PlaneAt(c, z, 0)), "c=%d z=%d", c, z)
		}
	}
}

func TestReshape_XYZCT(t *testing.T) {
	// Slice-fastest input: plane index = z + slices*c for a single frame.
	h, err := Reshape(flatStack(6), 2, 3, 1, OrderXYZCT)
	require.NoError(t, err)

	for z := 0; z < 3; z++ {
		for c := 0; c < 2; c++ {
			want := z + 3*c
			assert.Equal(t, want, valueOf(h.PlaneAt(c, z, 0)), "c=%d z=%d", c, z)
		}
	}
}

func TestReshape_CountMismatch(t *testing.T) {
	_, err := Reshape(flatStack(5), 2, 3, 1, OrderXYCZT)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "need 6")
}

func TestReshape_BadDimensions(t *testing.T) {
	_, err := Reshape(flatStack(0), 0, 1, 1, OrderXYCZT)
	assert.Error(t, err)
	_, err = Reshape(flatStack(1), 1, 1, 1, "xytc")
	assert.Error(t, err)
}

func TestReshape_SinglePlane(t *testing.T) {
	h, err := Reshape(flatStack(1), 1, 1, 1, OrderXYCZT)
	require.NoError(t, err)
	assert.Equal(t, 0, valueOf(h.PlaneAt(0, 0, 0)))
}

func TestDescription_MultiChannel(t *testing.T) {
	h, err := Reshape(flatStack(6), 2, 3, 1, OrderXYCZT)
	require.NoError(t, err)

	want := "ImageJ=1.54f\n" +
		"images=6\n" +
		"channels=2\n" +
		"slices=3\n" +
		"hyperstack=true\n" +
		"mode=composite\n"
	assert.Equal(t, want, h.Description())
}

func TestDescription_SinglePlane(t *testing.T) {
	h, err := Reshape(flatStack(1), 1, 1, 1, OrderXYCZT)
	require.NoError(t, err)

	want := "ImageJ=1.54f\n" +
		"images=1\n" +
		"hyperstack=true\n"
	assert.Equal(t, want, h.Description())
}
