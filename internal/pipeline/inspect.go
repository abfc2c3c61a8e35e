package pipeline

import (
	"fmt"
	"strings"

	"github.com/Leiden-Cell-Observatory/wellstitch/internal/config"
	"github.com/Leiden-Cell-Observatory/wellstitch/internal/display"
	"github.com/Leiden-Cell-Observatory/wellstitch/internal/logging"
	"github.com/Leiden-Cell-Observatory/wellstitch/internal/plate"
	"github.com/Leiden-Cell-Observatory/wellstitch/internal/term"
	"github.com/Leiden-Cell-Observatory/wellstitch/internal/tiffio"
)

// Inspect audits a plate directory against the tile grammar and prints a
// plate map plus a per-well coverage table, without stitching anything.
// With a configured grid larger than 1x1 every well is checked for missing,
// duplicate, and out-of-range tile indices; on a 1x1 grid only duplicates
// and deviations from the plate's usual tile count can be flagged.
func Inspect(cfg *config.Config, log *logging.Logger) error {
	pat, err := plate.CompilePattern(cfg.TilePattern)
	if err != nil {
		return err
	}
	if pat, err = pat.WithBase(cfg.BaseName); err != nil {
		return err
	}

	expect := 0
	if cfg.GridX*cfg.GridY > 1 {
		expect = cfg.GridX * cfg.GridY
	}

	audit, err := plate.AuditPlate(cfg.InputDir, pat, expect, cfg.FirstTileIndex)
	if err != nil {
		return fmt.Errorf("plate audit: %w", err)
	}
	if len(audit.Wells) == 0 {
		log.Warn("No tiles matching the pattern in %s", cfg.InputDir)
		return nil
	}

	log.Info("Inspecting %s", cfg.InputDir)
	if cfg.BaseName != "" {
		log.Info("Series: %s", cfg.BaseName)
	}
	if expect > 0 {
		log.Info("Grid: %dx%d, tile indices %04d..%04d",
			cfg.GridX, cfg.GridY, cfg.FirstTileIndex, cfg.FirstTileIndex+expect-1)
	}
	fmt.Println()

	ids := make([]string, len(audit.Wells))
	for i, w := range audit.Wells {
		ids[i] = string(w.Well)
	}
	fmt.Print(display.PlateMap(ids))
	fmt.Println()

	modal := modalTileCount(audit.Wells)
	printWellTable(audit.Wells, expect, modal)
	probeFirstTile(cfg, log, pat, audit.Wells[0].Well)
	printAuditSummary(cfg, log, audit, expect, modal)
	return nil
}

// printWellTable renders per-well tile accounting with colored status cells.
func printWellTable(wells []plate.WellAudit, expect, modal int) {
	wellW := len("Well")
	tilesW := len("Tiles")
	statusW := len("Status")

	for _, w := range wells {
		if len(w.Well) > wellW {
			wellW = len(w.Well)
		}
		if n := len(fmt.Sprintf("%d", w.Tiles)); n > tilesW {
			tilesW = n
		}
		status, _ := wellStatus(w, expect, modal)
		if len(status) > statusW {
			statusW = len(status)
		}
	}

	header := fmt.Sprintf("  %-*s  %*s  %-*s",
		wellW, "Well",
		tilesW, "Tiles",
		statusW, "Status",
	)
	separator := "  " + strings.Repeat("─", len(header)-2)

	fmt.Println(header)
	fmt.Println(separator)

	for _, w := range wells {
		status, class := wellStatus(w, expect, modal)
		flagStr := formatFlag(class)

		// Pad the plain text first, then wrap in ANSI color. This avoids
		// the alignment bug where %-*s counts escape bytes as visible width.
		tilesCell := colorPad(fmt.Sprintf("%*d", tilesW, w.Tiles), class)
		statusCell := colorPad(fmt.Sprintf("%-*s", statusW, status), class)

		fmt.Printf("  %-*s  %s  %s  %s\n",
			wellW, string(w.Well),
			tilesCell,
			statusCell,
			flagStr,
		)
	}
	fmt.Println()
}

// wellStatus renders one audit row and classifies it. Grid findings are
// "extreme" because the run will refuse those wells; in count mode a
// deviation from the plate's usual tile count is only an "outlier" since no
// expected layout is known.
func wellStatus(w plate.WellAudit, expect, modal int) (string, string) {
	if expect > 0 {
		var parts []string
		if len(w.Missing) > 0 {
			parts = append(parts, "missing "+formatIndices(w.Missing))
		}
		if len(w.Duplicates) > 0 {
			parts = append(parts, "duplicate "+formatIndices(w.Duplicates))
		}
		if len(w.Extras) > 0 {
			parts = append(parts, "outside grid "+formatIndices(w.Extras))
		}
		if len(parts) == 0 {
			return "complete", ""
		}
		return strings.Join(parts, "; "), "extreme"
	}

	if len(w.Duplicates) > 0 {
		return "duplicate " + formatIndices(w.Duplicates), "extreme"
	}
	if modal > 0 && w.Tiles != modal {
		return fmt.Sprintf("%+d vs usual %d tiles", w.Tiles-modal, modal), "outlier"
	}
	return "", ""
}

// formatIndices renders up to three tile indices in acquisition form.
func formatIndices(indices []int) string {
	const max = 3
	parts := make([]string, 0, max+1)
	for i, idx := range indices {
		if i == max {
			parts = append(parts, fmt.Sprintf("(+%d more)", len(indices)-max))
			break
		}
		parts = append(parts, fmt.Sprintf("%04d", idx))
	}
	return strings.Join(parts, " ")
}

// modalTileCount returns the most common per-well tile count, breaking ties
// toward the higher count.
func modalTileCount(wells []plate.WellAudit) int {
	counts := make(map[int]int)
	for _, w := range wells {
		counts[w.Tiles]++
	}
	best, bestN := 0, 0
	for tiles, n := range counts {
		if n > bestN || (n == bestN && tiles > best) {
			best, bestN = tiles, n
		}
	}
	return best
}

// probeFirstTile reports the geometry of one tile; all tiles of a plate are
// expected to share it, so a single read is enough for the report.
func probeFirstTile(cfg *config.Config, log *logging.Logger, pat plate.Pattern, well plate.WellID) {
	tiles, err := plate.TilesFor(cfg.InputDir, well, pat)
	if err != nil {
		return
	}

	info, err := tiffio.ReadInfo(tiles[0].Path)
	if err != nil {
		log.Warn("Cannot read %s: %v", tiles[0].Name, err)
		fmt.Println()
		return
	}

	compression := "none"
	if info.Compressed {
		compression = "yes"
	}
	log.Info("Tile geometry (%s):", tiles[0].Name)
	log.Info("  %dx%d px (%s) | %d page(s) | %d-bit | %d sample(s)/px | compression: %s",
		info.Width, info.Height, display.FormatMegapixels(info.Width, info.Height),
		info.Pages, info.BitsPerSample, info.SamplesPerPixel, compression)

	if planes := cfg.Channels * cfg.Slices * cfg.Frames; planes > 1 && info.Pages != planes {
		log.Outlier("  %d page(s) per tile, but %dc x %dz x %dt needs %d",
			info.Pages, cfg.Channels, cfg.Slices, cfg.Frames, planes)
	}
	fmt.Println()
}

func printAuditSummary(cfg *config.Config, log *logging.Logger, audit plate.PlateAudit, expect, modal int) {
	log.Info("Audited %d wells, %d file(s) ignored by the pattern", len(audit.Wells), audit.Ignored)

	if expect > 0 {
		if n := audit.Incomplete(); n > 0 {
			log.Error("  %d incomplete well(s) flagged [!]; a %dx%d run will refuse them",
				n, cfg.GridX, cfg.GridY)
		} else {
			log.Success("  All wells complete for the %dx%d grid", cfg.GridX, cfg.GridY)
		}
		return
	}

	deviant := 0
	for _, w := range audit.Wells {
		if len(w.Duplicates) > 0 || w.Tiles != modal {
			deviant++
		}
	}
	log.Info("  Usual tile count: %d", modal)
	if deviant > 0 {
		log.Outlier("  %d well(s) deviate [*]", deviant)
	} else {
		log.Success("  Tile counts are uniform")
	}
}

func formatFlag(class string) string {
	switch class {
	case "extreme":
		return term.Red + "[!]" + term.NC
	case "outlier":
		return term.Orange + "[*]" + term.NC
	default:
		return ""
	}
}

// colorPad wraps an already padded cell in ANSI color.
func colorPad(cell, class string) string {
	switch class {
	case "extreme":
		return term.Red + cell + term.NC
	case "outlier":
		return term.Orange + cell + term.NC
	default:
		return cell
	}
}
