package pipeline

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/Leiden-Cell-Observatory/wellstitch/internal/config"
	"github.com/Leiden-Cell-Observatory/wellstitch/internal/display"
	"github.com/Leiden-Cell-Observatory/wellstitch/internal/hyper"
	"github.com/Leiden-Cell-Observatory/wellstitch/internal/logging"
	"github.com/Leiden-Cell-Observatory/wellstitch/internal/plate"
	"github.com/Leiden-Cell-Observatory/wellstitch/internal/stitch"
	"github.com/Leiden-Cell-Observatory/wellstitch/internal/tiffio"
)

// Stitcher fuses one well's tiles into a flat stack of canvas planes.
type Stitcher interface {
	Stitch(ctx context.Context, tiles []plate.TileRef, p stitch.Params) ([]image.Image, error)
}

// Reshaper arranges a flat plane stack into hyperstack order.
type Reshaper interface {
	Reshape(planes []image.Image, channels, slices, frames int, order hyper.Order) (*hyper.Hyperstack, error)
}

// ReshaperFunc adapts a plain function to the Reshaper interface.
type ReshaperFunc func(planes []image.Image, channels, slices, frames int, order hyper.Order) (*hyper.Hyperstack, error)

func (f ReshaperFunc) Reshape(planes []image.Image, channels, slices, frames int, order hyper.Order) (*hyper.Hyperstack, error) {
	return f(planes, channels, slices, frames, order)
}

// Deps bundles the batch runner's collaborators so tests can substitute
// them without staging pixel data.
type Deps struct {
	Stitcher Stitcher
	Reshaper Reshaper
}

// DefaultDeps wires the in-process stitching engine and hyperstack reshaper.
func DefaultDeps(log *logging.Logger, verbose bool) Deps {
	return Deps{
		Stitcher: stitch.NewEngine(log, verbose),
		Reshaper: ReshaperFunc(hyper.Reshape),
	}
}

// Run is the top-level batch entry point. It discovers wells through the
// tile grammar and processes them in ID order, stopping at the first
// failure: one broken well needs operator attention before the output set
// can be trusted, so later wells are not attempted. Already written outputs
// stay in place.
func Run(ctx context.Context, cfg *config.Config, log *logging.Logger, deps Deps) (RunStats, error) {
	var stats RunStats
	start := time.Now()

	pat, err := plate.CompilePattern(cfg.TilePattern)
	if err != nil {
		return stats, err
	}
	if pat, err = pat.WithBase(cfg.BaseName); err != nil {
		return stats, err
	}

	wells, err := plate.Discover(cfg.InputDir, pat)
	if err != nil {
		return stats, fmt.Errorf("well discovery: %w", err)
	}
	stats.Total = len(wells)

	if len(wells) == 0 {
		log.Warn("No tiles matching the pattern in %s", cfg.InputDir)
		return stats, nil
	}

	logBatchHeader(cfg, log, &stats)

	params := stitch.FromConfig(cfg)
	for _, well := range wells {
		if err := ctx.Err(); err != nil {
			log.Warn("Interrupted")
			logSummary(cfg, log, &stats, time.Since(start))
			return stats, err
		}
		stats.Current++

		if err := processWell(ctx, cfg, log, deps, pat, params, well, &stats); err != nil {
			stats.Failed++
			logSummary(cfg, log, &stats, time.Since(start))
			return stats, fmt.Errorf("well %s: %w", well, err)
		}
	}

	logSummary(cfg, log, &stats, time.Since(start))
	return stats, nil
}

// processWell handles one well: resolve tiles → stitch → reshape → save.
func processWell(
	ctx context.Context,
	cfg *config.Config,
	log *logging.Logger,
	deps Deps,
	pat plate.Pattern,
	params stitch.Params,
	well plate.WellID,
	stats *RunStats,
) error {
	tiles, err := plate.TilesFor(cfg.InputDir, well, pat)
	if err != nil {
		return err
	}

	log.Info("[%d/%d] Well %s (%d tiles)", stats.Current, stats.Total, well, len(tiles))
	log.Debug(cfg.Verbose, "  Series: %s", pat.DisplayPattern(tiles[0]))

	outputPath := filepath.Join(cfg.OutputDir, string(well)+".tif")

	// --- Skip-existing check ---
	if cfg.SkipExisting {
		if _, err := os.Stat(outputPath); err == nil {
			log.Warn("Skip (exists): %s", filepath.Base(outputPath))
			stats.Skipped++
			fmt.Println()
			return nil
		}
	}

	// --- Dry-run ---
	if cfg.DryRun {
		log.Success("[DRY] Would stitch %d tiles -> %s", len(tiles), filepath.Base(outputPath))
		stats.Stitched++
		fmt.Println()
		return nil
	}

	// --- Stitch ---
	start := time.Now()
	planes, err := deps.Stitcher.Stitch(ctx, tiles, params)
	if err != nil {
		return err
	}

	// --- Reshape into hyperstack order ---
	hs, err := deps.Reshaper.Reshape(planes, cfg.Channels, cfg.Slices, cfg.Frames, hyper.OrderXYCZT)
	if err != nil {
		return err
	}

	// --- Save ---
	written, err := tiffio.WriteFile(outputPath, hs.Planes, hs.Description())
	if err != nil {
		os.Remove(outputPath)
		return err
	}

	stats.Stitched++
	stats.TilesFused += len(tiles)
	stats.BytesWritten += written

	b := hs.Planes[0].Bounds()
	log.Success("Saved %s in %s (%dx%d px, %d plane(s), %s)",
		filepath.Base(outputPath), display.FormatDuration(time.Since(start)),
		b.Dx(), b.Dy(), len(hs.Planes), display.FormatBytes(written))
	fmt.Println()
	return nil
}

// --- Logging helpers ---

func logBatchHeader(cfg *config.Config, log *logging.Logger, stats *RunStats) {
	log.Info("Found %d wells", stats.Total)
	log.Info("Grid: %dx%d (%s), %d%% overlap", cfg.GridX, cfg.GridY, cfg.Order, cfg.OverlapPercent)
	log.Info("Stack: %d channel(s), %d slice(s), %d frame(s)", cfg.Channels, cfg.Slices, cfg.Frames)
	log.Info("Fusion: %s", cfg.Fusion)

	if cfg.BaseName != "" {
		log.Info("Series: %s", cfg.BaseName)
	}
	if cfg.FirstTileIndex != 0 {
		log.Info("First tile index: %d", cfg.FirstTileIndex)
	}
	if cfg.GridX*cfg.GridY > 1 {
		log.Debug(cfg.Verbose, "Link thresholds: R >= %.2f, avg residual <= %.2fpx, offset <= %.2fpx, search +/-%dpx",
			cfg.RegressionThreshold, cfg.MaxAvgDisplacement, cfg.AbsoluteDisplacement, cfg.SearchRadius)
	}
	if cfg.SkipExisting {
		log.Info("Existing outputs: skip")
	}
	if cfg.DryRun {
		log.Info("Dry run: nothing will be written")
	}
	fmt.Println()
}

func logSummary(cfg *config.Config, log *logging.Logger, stats *RunStats, elapsed time.Duration) {
	log.Info("==============================")
	log.Info("Done: %d stitched, %d skipped, %d failed", stats.Stitched, stats.Skipped, stats.Failed)
	log.Info("Summary report:")
	log.Info("  Wells processed: %d of %d", stats.Current, stats.Total)
	log.Info("  Tiles fused: %d", stats.TilesFused)

	if cfg.DryRun {
		log.Info("  Output written: n/a (dry run)")
	} else {
		log.Info("  Output written: %s", display.FormatBytes(stats.BytesWritten))
	}
	log.Info("  Elapsed: %s", display.FormatDuration(elapsed))
}
