package cli

import (
	"github.com/spf13/cobra"

	"github.com/Leiden-Cell-Observatory/wellstitch/internal/config"
	"github.com/Leiden-Cell-Observatory/wellstitch/internal/logging"
	"github.com/Leiden-Cell-Observatory/wellstitch/internal/pipeline"
)

// NewInspectCommand builds the "inspect" command, a read-only plate audit.
func NewInspectCommand() *cobra.Command {
	cfg := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "inspect [flags] <input-dir>",
		Short: "Audit tile coverage of a plate directory without stitching",
		Long: `inspect scans <input-dir> with the tile grammar and reports what a run
would see: a plate map of the discovered wells, per-well tile accounting
against the configured grid, and the geometry of one sample tile.

Nothing is written. Use it before a long run to catch missing, duplicated,
or out-of-range tiles early.

Examples:
  wellstitch inspect --grid-x 5 --grid-y 5 ./scan
  wellstitch inspect --pattern '^(?P<well>[A-Z][0-9]{2})-(?P<tile>[0-9]{4})\.tif$' ./scan`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.InputDir = config.NormalizeDirArg(args[0])
			return runInspect(cmd, &cfg)
		},
	}

	addCommonFlags(cmd, &cfg)
	return cmd
}

func runInspect(cmd *cobra.Command, cfg *config.Config) error {
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

	if err := pipeline.Inspect(cfg, log); err != nil {
		log.Error("%v", err)
		return errReported
	}
	return nil
}
