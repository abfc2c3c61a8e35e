// Package plate maps a plate acquisition directory onto wells and tiles.
//
// A Pattern is a compiled tile-filename grammar with named groups "well"
// and "tile", plus an optional "base" naming the acquisition series.
// Discover lists the wells present in one flat directory, TilesFor resolves
// a well's tiles in acquisition order, and AuditPlate produces the per-well
// accounting behind inspect. Listings never recurse: acquisition software
// writes all tiles of a plate run into a single directory.
package plate
