package display

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// wellCoord parses the conventional row-letter column-number well naming
// ("A01", "H12", "P24"). IDs outside that convention are still valid wells,
// they just can't be placed on a grid.
var wellCoord = regexp.MustCompile(`^([A-Z])([0-9]{1,2})$`)

// PlateMap renders a textual well grid: '#' where a well has tiles, '.'
// where it has none. The extent snaps to the nearest standard plate format
// (24, 96 or 384 wells) so partial plates still render recognizable rows.
// IDs that don't follow the row-letter column-number convention are listed
// below the grid instead.
func PlateMap(ids []string) string {
	type cell struct{ row, col int }
	present := make(map[cell]bool)
	var unplaced []string
	maxRow, maxCol := 0, 0

	for _, id := range ids {
		m := wellCoord.FindStringSubmatch(id)
		if m == nil {
			unplaced = append(unplaced, id)
			continue
		}
		row := int(m[1][0] - 'A')
		col, _ := strconv.Atoi(m[2])
		if col < 1 {
			unplaced = append(unplaced, id)
			continue
		}
		present[cell{row, col - 1}] = true
		if row+1 > maxRow {
			maxRow = row + 1
		}
		if col > maxCol {
			maxCol = col
		}
	}

	var b strings.Builder
	if len(present) > 0 {
		rows, cols := plateExtent(maxRow, maxCol)
		b.WriteString("   ")
		for c := 1; c <= cols; c++ {
			fmt.Fprintf(&b, "%3d", c)
		}
		b.WriteByte('\n')
		for r := 0; r < rows; r++ {
			fmt.Fprintf(&b, "  %c", 'A'+r)
			for c := 0; c < cols; c++ {
				mark := '.'
				if present[cell{r, c}] {
					mark = '#'
				}
				fmt.Fprintf(&b, "  %c", mark)
			}
			b.WriteByte('\n')
		}
	}
	if len(unplaced) > 0 {
		fmt.Fprintf(&b, "  off-grid: %s\n", strings.Join(unplaced, ", "))
	}
	return b.String()
}

// plateExtent snaps an observed row/column extent to a standard plate format.
func plateExtent(rows, cols int) (int, int) {
	formats := []struct{ r, c int }{
		{4, 6},   // 24-well
		{8, 12},  // 96-well
		{16, 24}, // 384-well
	}
	for _, f := range formats {
		if rows <= f.r && cols <= f.c {
			return f.r, f.c
		}
	}
	return rows, cols
}
