package tiffio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"strings"

	"golang.org/x/image/tiff"
)

var (
	// ErrNotTIFF marks files without a valid TIFF header.
	ErrNotTIFF = errors.New("not a TIFF file")
	// ErrUnsupported marks valid TIFF files using features outside the
	// baseline this reader handles (BigTIFF, compressed multi-page, planar
	// or exotic sample layouts).
	ErrUnsupported = errors.New("unsupported TIFF feature")
)

// Baseline tag and field type IDs, only what the reader and writer touch.
const (
	tagImageWidth       = 256
	tagImageLength      = 257
	tagBitsPerSample    = 258
	tagCompression      = 259
	tagPhotometric      = 262
	tagImageDescription = 270
	tagStripOffsets     = 273
	tagSamplesPerPixel  = 277
	tagRowsPerStrip     = 278
	tagStripByteCounts  = 279
	tagPlanarConfig     = 284
)

const (
	typeByte  = 1
	typeASCII = 2
	typeShort = 3
	typeLong  = 4
)

const (
	compressionNone        = 1
	photometricBlackIsZero = 1
	photometricRGB         = 2
)

// maxPages bounds the IFD chain walk. Real stacks run to a few hundred
// pages; anything larger is a corrupt or cyclic chain.
const maxPages = 65535

// maxFieldCount bounds array-valued tag reads against corrupt counts.
const maxFieldCount = 1 << 20

// page holds the decoded IFD fields of one directory.
type page struct {
	width, height   int
	bitsPerSample   int
	samplesPerPixel int
	compression     int
	photometric     int
	rowsPerStrip    int
	planarConfig    int
	stripOffsets    []int64
	stripCounts     []int64
}

// Reader exposes the pages of a (possibly multi-page) TIFF file. The header
// and IFD chain are parsed up front; pixel data decodes lazily via [Page],
// one page at a time.
type Reader struct {
	f           *os.File
	order       binary.ByteOrder
	pages       []page
	description string
}

// Open parses the header and IFD chain of the file at path. Close the
// reader when done.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := &Reader{f: f}
	if err := r.parse(); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error { return r.f.Close() }

// Pages returns the number of directories in the file.
func (r *Reader) Pages() int { return len(r.pages) }

// Bounds returns the pixel bounds of page 0. All pages of a well-formed
// stack share them.
func (r *Reader) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.pages[0].width, r.pages[0].height)
}

// BitDepth returns the bits per sample of page 0.
func (r *Reader) BitDepth() int { return r.pages[0].bitsPerSample }

// Samples returns the samples per pixel of page 0.
func (r *Reader) Samples() int { return r.pages[0].samplesPerPixel }

// Compressed reports whether page 0 uses any compression scheme.
func (r *Reader) Compressed() bool { return r.pages[0].compression != compressionNone }

// Description returns page 0's ImageDescription, empty if absent.
func (r *Reader) Description() string { return r.description }

func (r *Reader) parse() error {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r.f, header); err != nil {
		return ErrNotTIFF
	}
	switch {
	case header[0] == 'I' && header[1] == 'I':
		r.order = binary.LittleEndian
	case header[0] == 'M' && header[1] == 'M':
		r.order = binary.BigEndian
	default:
		return ErrNotTIFF
	}
	switch magic := r.order.Uint16(header[2:4]); magic {
	case 42:
	case 43:
		return fmt.Errorf("%w: BigTIFF", ErrUnsupported)
	default:
		return ErrNotTIFF
	}

	off := int64(r.order.Uint32(header[4:8]))
	for off != 0 {
		if len(r.pages) >= maxPages {
			return fmt.Errorf("%w: IFD chain exceeds %d pages", ErrUnsupported, maxPages)
		}
		next, err := r.parseIFD(off)
		if err != nil {
			return err
		}
		off = next
	}
	if len(r.pages) == 0 {
		return errors.New("empty IFD chain")
	}
	return nil
}

// parseIFD reads one directory at off, appends it to r.pages, and returns
// the offset of the next directory (0 at the end of the chain).
func (r *Reader) parseIFD(off int64) (int64, error) {
	var cnt [2]byte
	if _, err := r.f.ReadAt(cnt[:], off); err != nil {
		return 0, fmt.Errorf("IFD at %d: %w", off, err)
	}
	n := int(r.order.Uint16(cnt[:]))
	buf := make([]byte, n*12+4)
	if _, err := r.f.ReadAt(buf, off+2); err != nil {
		return 0, fmt.Errorf("IFD at %d: %w", off, err)
	}

	// TIFF defaults for everything the baseline allows to be omitted.
	p := page{
		bitsPerSample:   1,
		samplesPerPixel: 1,
		compression:     compressionNone,
		photometric:     photometricBlackIsZero,
		planarConfig:    1,
	}
	for i := 0; i < n; i++ {
		e := buf[i*12 : i*12+12]
		tag := r.order.Uint16(e[0:2])
		typ := r.order.Uint16(e[2:4])
		count := r.order.Uint32(e[4:8])

		switch tag {
		case tagImageWidth, tagImageLength, tagCompression, tagPhotometric,
			tagSamplesPerPixel, tagRowsPerStrip, tagPlanarConfig:
			vals, err := r.fieldValues(e, typ, count)
			if err != nil {
				return 0, err
			}
			v := int(vals[0])
			switch tag {
			case tagImageWidth:
				p.width = v
			case tagImageLength:
				p.height = v
			case tagCompression:
				p.compression = v
			case tagPhotometric:
				p.photometric = v
			case tagSamplesPerPixel:
				p.samplesPerPixel = v
			case tagRowsPerStrip:
				p.rowsPerStrip = v
			case tagPlanarConfig:
				p.planarConfig = v
			}
		case tagBitsPerSample:
			vals, err := r.fieldValues(e, typ, count)
			if err != nil {
				return 0, err
			}
			for _, v := range vals[1:] {
				if v != vals[0] {
					return 0, fmt.Errorf("%w: mixed bit depths per sample", ErrUnsupported)
				}
			}
			p.bitsPerSample = int(vals[0])
		case tagStripOffsets, tagStripByteCounts:
			vals, err := r.fieldValues(e, typ, count)
			if err != nil {
				return 0, err
			}
			if tag == tagStripOffsets {
				p.stripOffsets = vals
			} else {
				p.stripCounts = vals
			}
		case tagImageDescription:
			if len(r.pages) == 0 {
				s, err := r.fieldString(e, typ, count)
				if err != nil {
					return 0, err
				}
				r.description = s
			}
		}
	}
	if p.rowsPerStrip == 0 {
		p.rowsPerStrip = p.height // "all rows in one strip" default
	}
	if p.width <= 0 || p.height <= 0 {
		return 0, errors.New("page has no dimensions")
	}
	r.pages = append(r.pages, p)
	return int64(r.order.Uint32(buf[n*12:])), nil
}

// fieldValues decodes a SHORT or LONG tag value array, inline or offset.
func (r *Reader) fieldValues(e []byte, typ uint16, count uint32) ([]int64, error) {
	var size uint32
	switch typ {
	case typeShort:
		size = 2
	case typeLong:
		size = 4
	default:
		return nil, fmt.Errorf("%w: field type %d where short/long expected", ErrUnsupported, typ)
	}
	if count == 0 || count > maxFieldCount {
		return nil, fmt.Errorf("field count %d out of range", count)
	}
	raw := make([]byte, size*count)
	if size*count <= 4 {
		copy(raw, e[8:8+size*count])
	} else {
		off := int64(r.order.Uint32(e[8:12]))
		if _, err := r.f.ReadAt(raw, off); err != nil {
			return nil, err
		}
	}
	vals := make([]int64, count)
	for i := uint32(0); i < count; i++ {
		if typ == typeShort {
			vals[i] = int64(r.order.Uint16(raw[i*2:]))
		} else {
			vals[i] = int64(r.order.Uint32(raw[i*4:]))
		}
	}
	return vals, nil
}

// fieldString decodes an ASCII tag value, trimming the trailing NUL.
func (r *Reader) fieldString(e []byte, typ uint16, count uint32) (string, error) {
	if typ != typeASCII && typ != typeByte {
		return "", nil
	}
	if count == 0 || count > maxFieldCount {
		return "", nil
	}
	raw := make([]byte, count)
	if count <= 4 {
		copy(raw, e[8:8+count])
	} else {
		off := int64(r.order.Uint32(e[8:12]))
		if _, err := r.f.ReadAt(raw, off); err != nil {
			return "", err
		}
	}
	return strings.TrimRight(string(raw), "\x00"), nil
}

// Page decodes page i. Uncompressed 8/16-bit grayscale and 8-bit RGB(A)
// decode natively in either byte order. A compressed single-page file falls
// back to the x/image decoder (LZW, Deflate, PackBits, CCITT); compressed
// multi-page files are ErrUnsupported because that decoder stops at the
// first directory.
func (r *Reader) Page(i int) (image.Image, error) {
	if i < 0 || i >= len(r.pages) {
		return nil, fmt.Errorf("page %d out of range (file has %d)", i, len(r.pages))
	}
	p := r.pages[i]

	if p.compression != compressionNone {
		if len(r.pages) > 1 {
			return nil, fmt.Errorf("%w: compressed multi-page file", ErrUnsupported)
		}
		if _, err := r.f.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		return tiff.Decode(r.f)
	}
	if p.planarConfig != 1 {
		return nil, fmt.Errorf("%w: planar sample layout", ErrUnsupported)
	}

	pix, err := r.stripData(p)
	if err != nil {
		return nil, err
	}
	rect := image.Rect(0, 0, p.width, p.height)
	count := p.width * p.height

	switch {
	case p.samplesPerPixel == 1 && p.bitsPerSample == 8:
		img := image.NewGray(rect)
		copy(img.Pix, pix)
		return img, nil

	case p.samplesPerPixel == 1 && p.bitsPerSample == 16:
		img := image.NewGray16(rect)
		if r.order == binary.BigEndian {
			// Gray16 stores big-endian sample bytes already.
			copy(img.Pix, pix)
		} else {
			for j := 0; j < count*2; j += 2 {
				img.Pix[j] = pix[j+1]
				img.Pix[j+1] = pix[j]
			}
		}
		return img, nil

	case p.samplesPerPixel == 3 && p.bitsPerSample == 8:
		img := image.NewRGBA(rect)
		for s, d := 0, 0; s < count*3; s, d = s+3, d+4 {
			img.Pix[d] = pix[s]
			img.Pix[d+1] = pix[s+1]
			img.Pix[d+2] = pix[s+2]
			img.Pix[d+3] = 0xff
		}
		return img, nil

	case p.samplesPerPixel == 4 && p.bitsPerSample == 8:
		img := image.NewRGBA(rect)
		copy(img.Pix, pix)
		return img, nil
	}
	return nil, fmt.Errorf("%w: %d samples at %d bits", ErrUnsupported, p.samplesPerPixel, p.bitsPerSample)
}

// stripData concatenates a page's strips and checks the total against the
// size its dimensions imply.
func (r *Reader) stripData(p page) ([]byte, error) {
	if len(p.stripOffsets) == 0 || len(p.stripOffsets) != len(p.stripCounts) {
		return nil, errors.New("strip offsets and byte counts disagree")
	}
	expected := p.width * p.height * p.samplesPerPixel * p.bitsPerSample / 8
	total := 0
	for _, c := range p.stripCounts {
		total += int(c)
	}
	if total != expected {
		return nil, fmt.Errorf("strip data is %d bytes, dimensions imply %d", total, expected)
	}
	out := make([]byte, total)
	pos := 0
	for i := range p.stripOffsets {
		n := int(p.stripCounts[i])
		if _, err := r.f.ReadAt(out[pos:pos+n], p.stripOffsets[i]); err != nil {
			return nil, err
		}
		pos += n
	}
	return out, nil
}
