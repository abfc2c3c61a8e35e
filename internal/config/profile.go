package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is a plate profile: a YAML document carrying the acquisition
// geometry and stitching parameters for one plate layout, so a facility can
// keep a file per microscope protocol instead of repeating flags. Fields are
// pointers so omitted keys leave the Config untouched.
type Profile struct {
	GridX                *int     `yaml:"grid-x"`
	GridY                *int     `yaml:"grid-y"`
	OverlapPercent       *int     `yaml:"overlap"`
	FirstTileIndex       *int     `yaml:"first-tile-index"`
	Order                *string  `yaml:"scan-order"`
	TilePattern          *string  `yaml:"pattern"`
	BaseName             *string  `yaml:"base-name"`
	Channels             *int     `yaml:"channels"`
	Slices               *int     `yaml:"slices"`
	Fusion               *string  `yaml:"fusion"`
	RegressionThreshold  *float64 `yaml:"regression-threshold"`
	MaxAvgDisplacement   *float64 `yaml:"max-avg-displacement"`
	AbsoluteDisplacement *float64 `yaml:"abs-displacement"`
	SearchRadius         *int     `yaml:"search-radius"`
}

// LoadProfile reads and strictly decodes a plate profile. Unknown keys are
// rejected so a typo in a profile fails loudly instead of silently falling
// back to a default.
func LoadProfile(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var p Profile
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return &Profile{}, nil
		}
		return nil, fmt.Errorf("profile %s: %v", path, err)
	}
	return &p, nil
}

// Apply copies profile values into cfg, skipping any field whose flag was
// set explicitly. changed reports whether the named flag was given on the
// command line; precedence is defaults < profile < flags.
func (p *Profile) Apply(cfg *Config, changed func(flag string) bool) {
	setInt := func(flag string, dst *int, src *int) {
		if src != nil && !changed(flag) {
			*dst = *src
		}
	}
	setFloat := func(flag string, dst *float64, src *float64) {
		if src != nil && !changed(flag) {
			*dst = *src
		}
	}

	setInt("grid-x", &cfg.GridX, p.GridX)
	setInt("grid-y", &cfg.GridY, p.GridY)
	setInt("overlap", &cfg.OverlapPercent, p.OverlapPercent)
	setInt("first-tile-index", &cfg.FirstTileIndex, p.FirstTileIndex)
	setInt("channels", &cfg.Channels, p.Channels)
	setInt("slices", &cfg.Slices, p.Slices)
	setInt("search-radius", &cfg.SearchRadius, p.SearchRadius)
	setFloat("regression-threshold", &cfg.RegressionThreshold, p.RegressionThreshold)
	setFloat("max-avg-displacement", &cfg.MaxAvgDisplacement, p.MaxAvgDisplacement)
	setFloat("abs-displacement", &cfg.AbsoluteDisplacement, p.AbsoluteDisplacement)

	if p.Order != nil && !changed("scan-order") {
		cfg.Order = ScanOrder(*p.Order)
	}
	if p.TilePattern != nil && !changed("pattern") {
		cfg.TilePattern = *p.TilePattern
	}
	if p.BaseName != nil && !changed("base-name") {
		cfg.BaseName = *p.BaseName
	}
	if p.Fusion != nil && !changed("fusion") {
		cfg.Fusion = FusionMode(*p.Fusion)
	}
}
