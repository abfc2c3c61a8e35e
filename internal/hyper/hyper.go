// Package hyper arranges flat plane stacks into the channel/slice/frame
// shape downstream viewers expect, and renders the ImageJ metadata block
// that makes Fiji open the result as a hyperstack.
package hyper

import (
	"fmt"
	"image"
	"strings"
)

// Order names the interleaving of a flat plane sequence.
type Order string

const (
	// OrderXYCZT cycles channel fastest, then slice, then frame. This is
	// how interleaved acquisitions come off the microscope and the
	// canonical storage order of a Hyperstack.
	OrderXYCZT Order = "xyczt"
	// OrderXYZCT cycles slice fastest, then channel.
	OrderXYZCT Order = "xyzct"
)

// Mode is the display mode recorded for downstream viewers.
type Mode string

const (
	ModeComposite Mode = "composite" // Channels overlaid in color (default).
	ModeColor     Mode = "color"
	ModeGrayscale Mode = "grayscale"
)

// Hyperstack is an ordered plane stack with channel/slice/frame structure.
// Planes are stored in XYCZT order regardless of the input interleaving.
type Hyperstack struct {
	Planes   []image.Image
	Channels int
	Slices   int
	Frames   int
	Mode     Mode
}

// Reshape arranges a flat plane sequence into a Hyperstack. order describes
// how planes is currently interleaved. The plane count must match the
// dimensions exactly; a short or long stack means the tile files and the
// configured dimensions disagree, which is not repairable here.
func Reshape(planes []image.Image, channels, slices, frames int, order Order) (*Hyperstack, error) {
	if channels < 1 || slices < 1 || frames < 1 {
		return nil, fmt.Errorf("stack dimensions must be positive (got %dc x %dz x %dt)", channels, slices, frames)
	}
	if len(planes) != channels*slices*frames {
		return nil, fmt.Errorf("have %d planes, need %d for %dc x %dz x %dt",
			len(planes), channels*slices*frames, channels, slices, frames)
	}

	h := &Hyperstack{
		Planes:   make([]image.Image, len(planes)),
		Channels: channels,
		Slices:   slices,
		Frames:   frames,
		Mode:     ModeComposite,
	}
	for t := 0; t < frames; t++ {
		for z := 0; z < slices; z++ {
			for c := 0; c < channels; c++ {
				var src int
				switch order {
				case OrderXYCZT:
					src = c + channels*(z+slices*t)
				case OrderXYZCT:
					src = z + slices*(c+channels*t)
				default:
					return nil, fmt.Errorf("unknown dimension order %q", order)
				}
				h.Planes[(t*slices+z)*channels+c] = planes[src]
			}
		}
	}
	return h, nil
}

// PlaneAt returns the plane at channel c, slice z, frame t (all 0-based).
func (h *Hyperstack) PlaneAt(c, z, t int) image.Image {
	return h.Planes[(t*h.Slices+z)*h.Channels+c]
}

// Description renders the ImageJ metadata block for the output's
// ImageDescription tag. Dimension lines appear only when the dimension
// exceeds one, matching what ImageJ itself writes; the mode line appears
// only for multi-channel stacks.
func (h *Hyperstack) Description() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ImageJ=1.54f\n")
	fmt.Fprintf(&b, "images=%d\n", len(h.Planes))
	if h.Channels > 1 {
		fmt.Fprintf(&b, "channels=%d\n", h.Channels)
	}
	if h.Slices > 1 {
		fmt.Fprintf(&b, "slices=%d\n", h.Slices)
	}
	if h.Frames > 1 {
		fmt.Fprintf(&b, "frames=%d\n", h.Frames)
	}
	fmt.Fprintf(&b, "hyperstack=true\n")
	if h.Channels > 1 {
		fmt.Fprintf(&b, "mode=%s\n", h.Mode)
	}
	return b.String()
}
