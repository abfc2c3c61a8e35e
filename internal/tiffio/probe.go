package tiffio

// Info summarizes a TIFF file from its header and IFD chain alone; no pixel
// data is decoded.
type Info struct {
	Width           int
	Height          int
	Pages           int
	BitsPerSample   int
	SamplesPerPixel int
	Compressed      bool
	Description     string
}

// ReadInfo probes the file at path.
func ReadInfo(path string) (Info, error) {
	r, err := Open(path)
	if err != nil {
		return Info{}, err
	}
	defer r.Close()

	b := r.Bounds()
	return Info{
		Width:           b.Dx(),
		Height:          b.Dy(),
		Pages:           r.Pages(),
		BitsPerSample:   r.BitDepth(),
		SamplesPerPixel: r.Samples(),
		Compressed:      r.Compressed(),
		Description:     r.Description(),
	}, nil
}
