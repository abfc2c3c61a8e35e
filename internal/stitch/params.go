package stitch

import (
	"github.com/Leiden-Cell-Observatory/wellstitch/internal/config"
)

// Params carries the full stitching parameter set for one well. Values are
// copied out of Config so the engine never reaches back into shared state.
type Params struct {
	GridX          int
	GridY          int
	OverlapPercent int
	FirstTileIndex int
	Order          config.ScanOrder
	Fusion         config.FusionMode

	// Link acceptance thresholds.
	RegressionThreshold  float64 // Minimum correlation R between overlap bands.
	MaxAvgDisplacement   float64 // Optimizer residual bound in px.
	AbsoluteDisplacement float64 // Maximum refined-offset deviation from nominal in px.
	SearchRadius         int     // Half-width of the translation search in px.
}

// FromConfig builds engine parameters from the runtime configuration.
func FromConfig(cfg *config.Config) Params {
	return Params{
		GridX:                cfg.GridX,
		GridY:                cfg.GridY,
		OverlapPercent:       cfg.OverlapPercent,
		FirstTileIndex:       cfg.FirstTileIndex,
		Order:                cfg.Order,
		Fusion:               cfg.Fusion,
		RegressionThreshold:  cfg.RegressionThreshold,
		MaxAvgDisplacement:   cfg.MaxAvgDisplacement,
		AbsoluteDisplacement: cfg.AbsoluteDisplacement,
		SearchRadius:         cfg.SearchRadius,
	}
}

// Tiles returns the number of tiles the grid expects.
func (p Params) Tiles() int { return p.GridX * p.GridY }
