package display

import (
	"strings"
	"testing"
)

func TestPlateMap_SnapsTo96Well(t *testing.T) {
	out := PlateMap([]string{"A01", "B02", "H12"})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	// Header plus rows A through H.
	if len(lines) != 9 {
		t.Fatalf("want 9 lines for a 96-well map, got %d:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[1], "  A") || !strings.HasPrefix(lines[8], "  H") {
		t.Errorf("rows should span A..H:\n%s", out)
	}
	if strings.Count(out, "#") != 3 {
		t.Errorf("want 3 present wells, got %d:\n%s", strings.Count(out, "#"), out)
	}
}

func TestPlateMap_SnapsTo384Well(t *testing.T) {
	out := PlateMap([]string{"P24"})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 17 {
		t.Fatalf("want 17 lines for a 384-well map, got %d", len(lines))
	}
	// The single present well sits at the last row and column.
	last := lines[16]
	if !strings.HasPrefix(last, "  P") || !strings.HasSuffix(last, "#") {
		t.Errorf("P24 should mark the bottom-right cell: %q", last)
	}
}

func TestPlateMap_MarksPresence(t *testing.T) {
	out := PlateMap([]string{"A01", "A03"})
	rowA := strings.Split(out, "\n")[1]
	fields := strings.Fields(rowA)
	// fields[0] is the row letter; columns follow.
	if fields[1] != "#" || fields[2] != "." || fields[3] != "#" {
		t.Errorf("row A presence wrong: %q", rowA)
	}
}

func TestPlateMap_OffGridIDs(t *testing.T) {
	out := PlateMap([]string{"A01", "WELL9"})
	if !strings.Contains(out, "off-grid: WELL9") {
		t.Errorf("unconventional IDs should be listed: %q", out)
	}
	if !strings.Contains(out, "#") {
		t.Errorf("grid should still render for the placeable wells: %q", out)
	}
}

func TestPlateMap_Empty(t *testing.T) {
	if out := PlateMap(nil); out != "" {
		t.Errorf("no wells should render nothing, got %q", out)
	}
}
