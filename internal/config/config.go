// Package config holds runtime configuration: defaults, plate profiles, and
// validation. The stitching defaults follow the Fiji Grid/Collection
// Stitching plugin, so mosaics line up with plates processed through it.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// --- Enum types for validated string fields ---

// ScanOrder is the order the microscope acquired tiles within a well.
type ScanOrder string

const (
	OrderSnakeByRows ScanOrder = "snake" // Alternating row direction, top row left to right (default).
	OrderRowByRow    ScanOrder = "rows"  // Every row left to right.
)

// FusionMode selects how overlapping tile pixels are combined.
type FusionMode string

const (
	FusionLinear  FusionMode = "linear"  // Distance-weighted blending (default).
	FusionAverage FusionMode = "average" // Unweighted mean of contributing tiles.
	FusionMax     FusionMode = "max"     // Maximum intensity across contributing tiles.
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// DefaultTilePattern matches "<base>_<well>_<tile>.tif" with the well and
// tile fields anchored to the end of the name, e.g. "exp1_day3_B02_0014.tif".
// The base may itself contain underscores; anchoring from the right keeps a
// rename of the experiment prefix from changing which fields are extracted.
const DefaultTilePattern = `^(?P<base>.+)_(?P<well>[A-Z][0-9]{2})_(?P<tile>[0-9]{4})\.tif$`

// Config holds all runtime settings. It is populated by [DefaultConfig],
// optionally overlaid by a plate profile, and then mutated by CLI flags
// before being passed (by pointer) to packages that need it. Fields are
// grouped by concern with inline documentation of defaults and fixed values.
type Config struct {
	// Paths (set from positional args).
	InputDir  string
	OutputDir string

	// Plate geometry and naming.
	GridX          int       // Default: 1. Tiles per row in each well.
	GridY          int       // Default: 1. Tile rows in each well.
	OverlapPercent int       // Default: 10. Nominal tile overlap in percent.
	FirstTileIndex int       // Default: 0. Sequence number of the first tile.
	Order          ScanOrder // Default: "snake".
	TilePattern    string    // Default: DefaultTilePattern. Needs groups "well" and "tile".
	BaseName       string    // Default: "". When set, only tiles of this acquisition series match.

	// Output stack dimensions.
	Channels int // Default: 1.
	Slices   int // Default: 1. Z planes per channel.
	Frames   int // Fixed: 1. One timepoint per well.

	// Registration and fusion.
	Fusion               FusionMode // Default: "linear".
	RegressionThreshold  float64    // Default: 0.30. Minimum correlation to accept a tile link.
	MaxAvgDisplacement   float64    // Default: 2.50 px. Placement residual bound.
	AbsoluteDisplacement float64    // Default: 3.50 px. Maximum deviation from the nominal offset.
	SearchRadius         int        // Default: 8 px. Half-width of the translation search.

	// Behavior flags.
	DryRun       bool
	SkipExisting bool // Default: false. Existing outputs are overwritten.

	// Display and logging.
	Verbose   bool
	ColorMode ColorMode // Default: "auto".
	LogFile   string    // Optional log file path.
	Profile   string    // Optional plate profile (YAML) path.
}

// DefaultConfig returns a Config with every field at its documented default.
// Used as the base before profile values and CLI overrides apply.
func DefaultConfig() Config {
	return Config{
		GridX:                1,
		GridY:                1,
		OverlapPercent:       10,
		FirstTileIndex:       0,
		Order:                OrderSnakeByRows,
		TilePattern:          DefaultTilePattern,
		Channels:             1,
		Slices:               1,
		Frames:               1,
		Fusion:               FusionLinear,
		RegressionThreshold:  0.30,
		MaxAvgDisplacement:   2.50,
		AbsoluteDisplacement: 3.50,
		SearchRadius:         8,
		DryRun:               false,
		SkipExisting:         false,
		Verbose:              false,
		ColorMode:            ColorAuto,
	}
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks enum fields, numeric ranges, and the tile pattern grammar.
// Path existence is checked later, once the logger is up.
func (c *Config) Validate() error {
	switch c.Order {
	case OrderSnakeByRows, OrderRowByRow:
		// valid
	default:
		return errors.New("invalid scan order (use 'snake' or 'rows')")
	}

	switch c.Fusion {
	case FusionLinear, FusionAverage, FusionMax:
		// valid
	default:
		return errors.New("invalid fusion mode (use 'linear', 'average' or 'max')")
	}

	if c.GridX < 1 || c.GridY < 1 {
		return errors.New("grid dimensions must be at least 1x1")
	}
	if c.OverlapPercent < 0 || c.OverlapPercent > 99 {
		return errors.New("overlap must be between 0 and 99 percent")
	}
	if c.FirstTileIndex < 0 {
		return errors.New("first tile index must not be negative")
	}
	if c.Channels < 1 || c.Slices < 1 || c.Frames < 1 {
		return errors.New("stack dimensions must be at least 1")
	}
	if c.RegressionThreshold < 0 || c.RegressionThreshold > 1 {
		return errors.New("regression threshold must be between 0 and 1")
	}
	if c.MaxAvgDisplacement <= 0 || c.AbsoluteDisplacement <= 0 {
		return errors.New("displacement thresholds must be positive")
	}
	if c.SearchRadius < 0 {
		return errors.New("search radius must not be negative")
	}
	return validateTilePattern(c.TilePattern, c.BaseName)
}

// validateTilePattern compiles the pattern and requires the named groups the
// pipeline extracts. Checked here so a bad --pattern fails before any
// directory is read.
func validateTilePattern(expr, baseName string) error {
	re, err := regexp.Compile(expr)
	if err != nil {
		return fmt.Errorf("invalid tile pattern: %v", err)
	}
	var hasWell, hasTile, hasBase bool
	for _, name := range re.SubexpNames() {
		switch name {
		case "well":
			hasWell = true
		case "tile":
			hasTile = true
		case "base":
			hasBase = true
		}
	}
	if !hasWell || !hasTile {
		return errors.New("tile pattern must define named groups 'well' and 'tile'")
	}
	if baseName != "" && !hasBase {
		return errors.New("base-name filtering needs a 'base' group in the tile pattern")
	}
	return nil
}

// ValidatePaths ensures the resolved output directory is not inside (or equal
// to) the resolved input directory. This prevents stitched outputs from
// landing where the next run would discover them as tiles. Both arguments
// must be absolute, symlink-resolved paths.
func (c *Config) ValidatePaths(inputAbs, outputAbs string) error {
	sep := string(filepath.Separator)
	if outputAbs == inputAbs || strings.HasPrefix(outputAbs+sep, inputAbs+sep) {
		return errors.New("output directory must not be inside input directory")
	}
	return nil
}
