package plate

import (
	"os"
	"sort"
)

// WellAudit is the per-well result of a plate audit.
type WellAudit struct {
	Well       WellID
	Tiles      int   // Matching files, duplicates included.
	Missing    []int // Expected indices with no file. Only filled when a grid size is given.
	Duplicates []int // Indices claimed by more than one file.
	Extras     []int // Indices outside the expected range. Only filled when a grid size is given.
}

// Complete reports whether the well's tiles line up with expectations.
func (w WellAudit) Complete() bool {
	return len(w.Missing) == 0 && len(w.Duplicates) == 0 && len(w.Extras) == 0
}

// PlateAudit summarizes one acquisition directory against the tile grammar.
type PlateAudit struct {
	Wells   []WellAudit // Sorted by well ID.
	Ignored int         // Files that did not match the grammar.
}

// Incomplete counts wells whose tiles don't line up.
func (a PlateAudit) Incomplete() int {
	n := 0
	for _, w := range a.Wells {
		if !w.Complete() {
			n++
		}
	}
	return n
}

// AuditPlate scans dir and reports per-well tile accounting. When expect > 0
// the indices [first, first+expect) are checked per well: gaps become
// Missing, anything outside the range becomes Extras. Duplicate indices are
// reported regardless; two different base names can collide on the same well
// and tile number.
func AuditPlate(dir string, pat Pattern, expect, first int) (PlateAudit, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return PlateAudit{}, err
	}

	counts := make(map[WellID]map[int]int)
	var audit PlateAudit
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ref, ok := pat.Match(e.Name())
		if !ok {
			audit.Ignored++
			continue
		}
		if counts[ref.Well] == nil {
			counts[ref.Well] = make(map[int]int)
		}
		counts[ref.Well][ref.Index]++
	}

	wells := make([]WellID, 0, len(counts))
	for w := range counts {
		wells = append(wells, w)
	}
	sort.Slice(wells, func(i, j int) bool { return wells[i] < wells[j] })

	for _, w := range wells {
		byIndex := counts[w]
		wa := WellAudit{Well: w}
		for idx, n := range byIndex {
			wa.Tiles += n
			if n > 1 {
				wa.Duplicates = append(wa.Duplicates, idx)
			}
			if expect > 0 && (idx < first || idx >= first+expect) {
				wa.Extras = append(wa.Extras, idx)
			}
		}
		if expect > 0 {
			for idx := first; idx < first+expect; idx++ {
				if byIndex[idx] == 0 {
					wa.Missing = append(wa.Missing, idx)
				}
			}
		}
		sort.Ints(wa.Duplicates)
		sort.Ints(wa.Extras)
		audit.Wells = append(audit.Wells, wa)
	}
	return audit, nil
}
