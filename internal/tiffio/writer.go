package tiffio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os"
)

// ifdEntry is one 12-byte directory entry. value holds the inline value or
// the file offset of the external value block.
type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	value uint32
}

// EncodeAll writes planes as a little-endian baseline multi-page TIFF: one
// directory and one uncompressed strip per plane, desc as page 0's
// ImageDescription. All planes must share bounds and pixel format. Gray and
// Gray16 planes write as grayscale; everything else writes as 8-bit RGB.
func EncodeAll(w io.Writer, planes []image.Image, desc string) error {
	if len(planes) == 0 {
		return errors.New("no planes to encode")
	}
	bounds := planes[0].Bounds()
	spp, bps, pm := planeFormat(planes[0])
	for i, pl := range planes[1:] {
		if pl.Bounds().Dx() != bounds.Dx() || pl.Bounds().Dy() != bounds.Dy() {
			return fmt.Errorf("plane %d is %dx%d, plane 0 is %dx%d",
				i+1, pl.Bounds().Dx(), pl.Bounds().Dy(), bounds.Dx(), bounds.Dy())
		}
		s, b, _ := planeFormat(pl)
		if s != spp || b != bps {
			return fmt.Errorf("plane %d pixel format differs from plane 0", i+1)
		}
	}

	width, height := bounds.Dx(), bounds.Dy()
	stripSize := width * height * spp * bps / 8

	// Layout: header | description | strips | bits-per-sample array | IFDs.
	// Blocks are even-aligned; TIFF requires word-aligned value offsets.
	var descBytes []byte
	if desc != "" {
		descBytes = append([]byte(desc), 0)
	}

	offset := int64(8)
	descOff := offset
	offset += align2(int64(len(descBytes)))

	dataOff := make([]int64, len(planes))
	for i := range planes {
		dataOff[i] = offset
		offset += align2(int64(stripSize))
	}

	bpsOff := offset
	if spp == 3 {
		offset += 6 // three SHORTs don't fit inline
	}

	ifdOff := make([]int64, len(planes)+1)
	for i := range planes {
		ifdOff[i] = offset
		entries := 10
		if i == 0 && desc != "" {
			entries++
		}
		offset += int64(2 + entries*12 + 4)
	}
	ifdOff[len(planes)] = 0

	if offset > math.MaxUint32 {
		return errors.New("stack exceeds the 4 GiB baseline TIFF limit")
	}

	bw := bufio.NewWriter(w)
	le := binary.LittleEndian

	// Header.
	if _, err := bw.WriteString("II"); err != nil {
		return err
	}
	writeU16(bw, le, 42)
	writeU32(bw, le, uint32(ifdOff[0]))

	// Description block.
	bw.Write(descBytes)
	pad2(bw, len(descBytes))

	// Pixel strips.
	for _, pl := range planes {
		if err := writePlaneStrip(bw, pl, spp, bps); err != nil {
			return err
		}
		pad2(bw, stripSize)
	}

	// Bits-per-sample array for RGB.
	if spp == 3 {
		for j := 0; j < 3; j++ {
			writeU16(bw, le, uint16(bps))
		}
	}

	// Directory chain.
	for i := range planes {
		entries := []ifdEntry{
			{tagImageWidth, typeLong, 1, uint32(width)},
			{tagImageLength, typeLong, 1, uint32(height)},
			{tagBitsPerSample, typeShort, uint32(spp), uint32(bps)},
			{tagCompression, typeShort, 1, compressionNone},
			{tagPhotometric, typeShort, 1, uint32(pm)},
			{tagStripOffsets, typeLong, 1, uint32(dataOff[i])},
			{tagSamplesPerPixel, typeShort, 1, uint32(spp)},
			{tagRowsPerStrip, typeLong, 1, uint32(height)},
			{tagStripByteCounts, typeLong, 1, uint32(stripSize)},
			{tagPlanarConfig, typeShort, 1, 1},
		}
		if spp == 3 {
			entries[2].value = uint32(bpsOff)
		}
		if i == 0 && desc != "" {
			descEntry := ifdEntry{tagImageDescription, typeASCII, uint32(len(descBytes)), uint32(descOff)}
			// Keep tags ascending: description slots in after photometric.
			entries = append(entries[:5], append([]ifdEntry{descEntry}, entries[5:]...)...)
		}
		writeU16(bw, le, uint16(len(entries)))
		for _, e := range entries {
			writeU16(bw, le, e.tag)
			writeU16(bw, le, e.typ)
			writeU32(bw, le, e.count)
			writeU32(bw, le, e.value)
		}
		writeU32(bw, le, uint32(ifdOff[i+1]))
	}
	return bw.Flush()
}

// WriteFile writes planes to path via [EncodeAll] and returns the size of
// the finished file.
func WriteFile(path string, planes []image.Image, desc string) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	if err := EncodeAll(f, planes, desc); err != nil {
		f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// planeFormat maps a Go image type onto strip sample layout.
func planeFormat(img image.Image) (spp, bps, photometric int) {
	switch img.(type) {
	case *image.Gray:
		return 1, 8, photometricBlackIsZero
	case *image.Gray16:
		return 1, 16, photometricBlackIsZero
	default:
		return 3, 8, photometricRGB
	}
}

// writePlaneStrip streams one plane's pixels in strip order. Gray16 converts
// from the in-memory big-endian sample layout to the file's little-endian
// one; RGB drops any alpha channel.
func writePlaneStrip(w *bufio.Writer, img image.Image, spp, bps int) error {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	switch im := img.(type) {
	case *image.Gray:
		for y := 0; y < height; y++ {
			off := im.PixOffset(b.Min.X, b.Min.Y+y)
			if _, err := w.Write(im.Pix[off : off+width]); err != nil {
				return err
			}
		}
	case *image.Gray16:
		row := make([]byte, width*2)
		for y := 0; y < height; y++ {
			off := im.PixOffset(b.Min.X, b.Min.Y+y)
			for x := 0; x < width; x++ {
				row[x*2] = im.Pix[off+x*2+1]
				row[x*2+1] = im.Pix[off+x*2]
			}
			if _, err := w.Write(row); err != nil {
				return err
			}
		}
	case *image.RGBA:
		row := make([]byte, width*3)
		for y := 0; y < height; y++ {
			off := im.PixOffset(b.Min.X, b.Min.Y+y)
			for x := 0; x < width; x++ {
				row[x*3] = im.Pix[off+x*4]
				row[x*3+1] = im.Pix[off+x*4+1]
				row[x*3+2] = im.Pix[off+x*4+2]
			}
			if _, err := w.Write(row); err != nil {
				return err
			}
		}
	case *image.NRGBA:
		row := make([]byte, width*3)
		for y := 0; y < height; y++ {
			off := im.PixOffset(b.Min.X, b.Min.Y+y)
			for x := 0; x < width; x++ {
				row[x*3] = im.Pix[off+x*4]
				row[x*3+1] = im.Pix[off+x*4+1]
				row[x*3+2] = im.Pix[off+x*4+2]
			}
			if _, err := w.Write(row); err != nil {
				return err
			}
		}
	default:
		row := make([]byte, width*3)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				r, g, bl, _ := img.At(x, y).RGBA()
				i := (x - b.Min.X) * 3
				row[i] = uint8(r >> 8)
				row[i+1] = uint8(g >> 8)
				row[i+2] = uint8(bl >> 8)
			}
			if _, err := w.Write(row); err != nil {
				return err
			}
		}
	}
	return nil
}

func align2(n int64) int64 {
	return n + n%2
}

func pad2(w *bufio.Writer, n int) {
	if n%2 == 1 {
		w.WriteByte(0)
	}
}

func writeU16(w *bufio.Writer, order binary.ByteOrder, v uint16) {
	var buf [2]byte
	order.PutUint16(buf[:], v)
	w.Write(buf[:])
}

func writeU32(w *bufio.Writer, order binary.ByteOrder, v uint32) {
	var buf [4]byte
	order.PutUint32(buf[:], v)
	w.Write(buf[:])
}
