package plate

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// WellID identifies one well of a plate, e.g. "A01" or "H12". Values come
// straight from the pattern's well group and compare as plain strings, which
// is what makes discovery order ascending lexicographic.
type WellID string

// TileRef is one tile file that matched the grammar.
type TileRef struct {
	Path  string // Full path; empty until resolved against a directory.
	Name  string // Filename as listed.
	Base  string // The base group's text, empty when the grammar has none.
	Well  WellID
	Index int // Tile sequence number parsed from the tile group.
}

// Pattern is a compiled tile-filename grammar. The expression must define
// the named groups "well" and "tile"; everything else in it is free-form,
// so facilities with unusual acquisition naming can supply their own. A
// "base" group, when present, names the acquisition series and can be pinned
// with [Pattern.WithBase].
type Pattern struct {
	re      *regexp.Regexp
	wellIdx int
	tileIdx int
	baseIdx int
	base    string // Required base group text; empty accepts any series.
}

// CompilePattern compiles expr. It fails when expr does not compile or lacks
// the "well" and "tile" named groups.
func CompilePattern(expr string) (Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("tile pattern: %v", err)
	}
	wellIdx, tileIdx, baseIdx := -1, -1, -1
	for i, name := range re.SubexpNames() {
		switch name {
		case "well":
			wellIdx = i
		case "tile":
			tileIdx = i
		case "base":
			baseIdx = i
		}
	}
	if wellIdx < 0 || tileIdx < 0 {
		return Pattern{}, errors.New("tile pattern must define named groups 'well' and 'tile'")
	}
	return Pattern{re: re, wellIdx: wellIdx, tileIdx: tileIdx, baseIdx: baseIdx}, nil
}

// WithBase returns a copy of p that only matches tiles whose base group
// equals base exactly. Directories holding several acquisition runs use this
// to stitch one series at a time. An empty base returns p unchanged.
func (p Pattern) WithBase(base string) (Pattern, error) {
	if base == "" {
		return p, nil
	}
	if p.baseIdx < 0 {
		return Pattern{}, errors.New("tile pattern has no 'base' group to filter on")
	}
	p.base = base
	return p, nil
}

// Match parses one directory entry name. The second return is false when the
// name does not follow the grammar (or names another series while a base
// filter is set); such entries are not tiles and discovery ignores them.
func (p Pattern) Match(name string) (TileRef, bool) {
	m := p.re.FindStringSubmatch(name)
	if m == nil {
		return TileRef{}, false
	}
	idx, err := strconv.Atoi(m[p.tileIdx])
	if err != nil {
		return TileRef{}, false
	}
	ref := TileRef{Name: name, Well: WellID(m[p.wellIdx]), Index: idx}
	if p.baseIdx >= 0 {
		ref.Base = m[p.baseIdx]
	}
	if p.base != "" && ref.Base != p.base {
		return TileRef{}, false
	}
	return ref, true
}

// DisplayPattern renders the human-readable tile series name for one well by
// splicing the {iiii} placeholder over ref's tile field, mirroring how the
// acquisition software presents a tile series.
func (p Pattern) DisplayPattern(ref TileRef) string {
	loc := p.re.FindStringSubmatchIndex(ref.Name)
	if loc == nil || len(loc) <= 2*p.tileIdx+1 {
		return ref.Name
	}
	start, end := loc[2*p.tileIdx], loc[2*p.tileIdx+1]
	if start < 0 {
		return ref.Name
	}
	return ref.Name[:start] + "{iiii}" + ref.Name[end:]
}
