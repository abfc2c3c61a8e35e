// Package tiffio reads and writes the multi-page TIFF files the stitcher
// lives on. The standard decoders only surface the first directory of a
// file, so tile stacks (one page per channel/slice) need their own IFD
// walker; pages decode lazily so a whole stack never sits in memory at once.
//
// Native decode covers uncompressed 8/16-bit grayscale and 8-bit RGB(A) in
// either byte order. Compressed single-page files fall back to
// golang.org/x/image/tiff; compressed multi-page files and BigTIFF are
// ErrUnsupported. EncodeAll is the writing side: little-endian baseline
// pages, one uncompressed strip each, with the ImageDescription recorded on
// the first page.
package tiffio
