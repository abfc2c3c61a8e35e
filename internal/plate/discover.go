package plate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Discover reads one directory listing and returns the ID of every well with
// at least one tile matching pat, deduplicated and sorted ascending. Running
// it twice on an unchanged directory yields the same result. Subdirectories
// are never entered: acquisition software writes all tiles of a plate run
// flat into one directory.
func Discover(dir string, pat Pattern) ([]WellID, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	seen := make(map[WellID]struct{})
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ref, ok := pat.Match(e.Name())
		if !ok {
			continue
		}
		seen[ref.Well] = struct{}{}
	}
	wells := make([]WellID, 0, len(seen))
	for w := range seen {
		wells = append(wells, w)
	}
	sort.Slice(wells, func(i, j int) bool { return wells[i] < wells[j] })
	return wells, nil
}

// TilesFor returns the tiles of one well, sorted by tile index (name breaks
// ties), with paths resolved against dir. A well with no matching tiles is
// an error: callers only ask for wells discovery reported.
func TilesFor(dir string, well WellID, pat Pattern) ([]TileRef, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var tiles []TileRef
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ref, ok := pat.Match(e.Name())
		if !ok || ref.Well != well {
			continue
		}
		ref.Path = filepath.Join(dir, e.Name())
		tiles = append(tiles, ref)
	}
	if len(tiles) == 0 {
		return nil, fmt.Errorf("well %s has no tiles matching the pattern", well)
	}
	sort.Slice(tiles, func(i, j int) bool {
		if tiles[i].Index != tiles[j].Index {
			return tiles[i].Index < tiles[j].Index
		}
		return tiles[i].Name < tiles[j].Name
	})
	return tiles, nil
}
