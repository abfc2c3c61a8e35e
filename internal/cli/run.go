package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Leiden-Cell-Observatory/wellstitch/internal/config"
	"github.com/Leiden-Cell-Observatory/wellstitch/internal/display"
	"github.com/Leiden-Cell-Observatory/wellstitch/internal/logging"
	"github.com/Leiden-Cell-Observatory/wellstitch/internal/pipeline"
)

// NewRunCommand builds the "run" command, the batch stitcher.
func NewRunCommand() *cobra.Command {
	cfg := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "run [flags] <input-dir> <output-dir>",
		Short: "Stitch every well found in a plate directory",
		Long: `run discovers wells from the tile filenames in <input-dir>, stitches each
well's tiles into a mosaic, reshapes the planes into a hyperstack, and
writes <WellID>.tif into <output-dir>.

Wells are processed in plate order and the batch stops at the first
failure. A plate profile (--profile) can preload the geometry for a
microscope or assay; explicit flags always win over profile values.

Examples:
  wellstitch run --grid-x 5 --grid-y 5 --overlap 10 -c 2 -z 7 ./scan ./stitched
  wellstitch run --profile confocal-96.yaml --base-name day3 ./scan ./stitched
  wellstitch run -n --grid-x 3 --grid-y 3 ./scan ./stitched`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.InputDir = config.NormalizeDirArg(args[0])
			cfg.OutputDir = config.NormalizeDirArg(args[1])
			return runBatch(cmd, &cfg)
		},
	}

	addCommonFlags(cmd, &cfg)

	f := cmd.Flags()
	f.IntVar(&cfg.OverlapPercent, "overlap", cfg.OverlapPercent, "nominal tile overlap in percent")
	f.Var(&config.ScanOrderValue{P: &cfg.Order}, "scan-order", "tile acquisition order: snake or rows")
	f.Var(&config.FusionValue{P: &cfg.Fusion}, "fusion", "overlap fusion: linear, average or max")
	f.Float64Var(&cfg.RegressionThreshold, "regression-threshold", cfg.RegressionThreshold, "minimum correlation R to accept a tile link")
	f.Float64Var(&cfg.MaxAvgDisplacement, "max-avg-displacement", cfg.MaxAvgDisplacement, "placement residual bound in px")
	f.Float64Var(&cfg.AbsoluteDisplacement, "abs-displacement", cfg.AbsoluteDisplacement, "link deviation limit from the nominal offset in px")
	f.IntVar(&cfg.SearchRadius, "search-radius", cfg.SearchRadius, "half-width of the registration search in px")
	f.BoolVarP(&cfg.DryRun, "dry-run", "n", false, "log the plan without stitching or writing")
	f.BoolVar(&cfg.SkipExisting, "skip-existing", false, "keep already stitched wells instead of overwriting")

	return cmd
}

func runBatch(cmd *cobra.Command, cfg *config.Config) error {
	// Phase 1: Bootstrap. The logger doesn't exist yet; failures here
	// return to Execute and print to stderr.
	if err := applyProfile(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	// Phase 2: Logger available; all output goes through log from here on.
	display.PrintBanner()

	// Resolve and validate paths: input must exist, output is created if
	// needed and must not be inside input (a later run would discover the
	// stitched files as tiles).
	inputAbs, err := absPath(cfg.InputDir)
	if err != nil {
		log.Error("Input not found: %s", cfg.InputDir)
		return errReported
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		log.Error("Cannot create output directory: %s", cfg.OutputDir)
		return errReported
	}
	outputAbs, err := absPath(cfg.OutputDir)
	if err != nil {
		log.Error("Cannot resolve output path: %s", cfg.OutputDir)
		return errReported
	}
	if err := cfg.ValidatePaths(inputAbs, outputAbs); err != nil {
		log.Error("%v", err)
		log.Error("Choose an output path outside: %s", cfg.InputDir)
		return errReported
	}

	log.Info("=== WellStitch v%s (%s) ===", Version, Commit)
	log.Info("In:  %s", cfg.InputDir)
	log.Info("Out: %s", cfg.OutputDir)
	if cfg.Profile != "" {
		log.Info("Profile: %s", cfg.Profile)
	}
	if cfg.DryRun {
		log.Warn("DRY RUN: no files will be written")
	}
	log.Info("")

	// Phase 3: Cancel the context on SIGINT/SIGTERM so the batch stops
	// between wells without leaving a partial output file.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		log.Warn("Received interrupt, finishing current well…")
		cancel()
	}()

	// Phase 4: Run the batch.
	if _, err := pipeline.Run(ctx, cfg, log, pipeline.DefaultDeps(log, cfg.Verbose)); err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Error("%v", err)
		}
		return errReported
	}
	return nil
}

// addCommonFlags registers the flags run and inspect share: plate geometry,
// the tile grammar, stack dimensions, and diagnostics.
func addCommonFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	f.IntVar(&cfg.GridX, "grid-x", cfg.GridX, "tiles per row in each well")
	f.IntVar(&cfg.GridY, "grid-y", cfg.GridY, "tile rows in each well")
	f.IntVar(&cfg.FirstTileIndex, "first-tile-index", cfg.FirstTileIndex, "sequence number of the first tile")
	f.StringVar(&cfg.TilePattern, "pattern", cfg.TilePattern, "tile filename regexp with 'well' and 'tile' groups")
	f.StringVar(&cfg.BaseName, "base-name", cfg.BaseName, "only match tiles of this acquisition series")
	f.IntVarP(&cfg.Channels, "channels", "c", cfg.Channels, "channels per tile stack")
	f.IntVarP(&cfg.Slices, "slices", "z", cfg.Slices, "Z slices per channel")
	f.StringVar(&cfg.Profile, "profile", "", "plate profile YAML overlaying the defaults")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "log per-link registration detail")
	f.Var(&config.ColorModeValue{P: &cfg.ColorMode}, "color", "colorize output: auto, always or never")
	f.StringVar(&cfg.LogFile, "log-file", "", "append a plain-text copy of the log to this file")
}

// applyProfile overlays the profile file onto cfg. Explicitly set flags win.
func applyProfile(cmd *cobra.Command, cfg *config.Config) error {
	if cfg.Profile == "" {
		return nil
	}
	p, err := config.LoadProfile(cfg.Profile)
	if err != nil {
		return err
	}
	p.Apply(cfg, cmd.Flags().Changed)
	return nil
}

// absPath returns the absolute, symlink-resolved path for safe comparison
// of input vs output directory hierarchies.
func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
