package stitch

import (
	"image"
	"math"

	"github.com/Leiden-Cell-Observatory/wellstitch/internal/config"
)

// cellFor maps a 0-based tile sequence number to its grid cell. Snake order
// walks even rows left to right and odd rows right to left, top row first;
// row order walks every row left to right.
func cellFor(seq, gridX int, order config.ScanOrder) (col, row int) {
	row = seq / gridX
	col = seq % gridX
	if order == config.OrderSnakeByRows && row%2 == 1 {
		col = gridX - 1 - col
	}
	return col, row
}

// nominalPositions returns the expected top-left canvas position of each
// tile by sequence number, spaced by the tile size minus the configured
// overlap.
func nominalPositions(p Params, tileW, tileH int) []image.Point {
	frac := 1 - float64(p.OverlapPercent)/100
	pos := make([]image.Point, p.Tiles())
	for seq := range pos {
		col, row := cellFor(seq, p.GridX, p.Order)
		pos[seq] = image.Pt(
			int(math.Round(float64(col)*float64(tileW)*frac)),
			int(math.Round(float64(row)*float64(tileH)*frac)),
		)
	}
	return pos
}

// neighborPairs lists the adjacent tile pairs registration should link, as
// sequence-number pairs where the second tile sits right of or below the
// first on the grid.
func neighborPairs(p Params) [][2]int {
	seqAt := make([]int, p.Tiles())
	for seq := 0; seq < p.Tiles(); seq++ {
		col, row := cellFor(seq, p.GridX, p.Order)
		seqAt[row*p.GridX+col] = seq
	}
	var pairs [][2]int
	for row := 0; row < p.GridY; row++ {
		for col := 0; col < p.GridX; col++ {
			a := seqAt[row*p.GridX+col]
			if col+1 < p.GridX {
				pairs = append(pairs, [2]int{a, seqAt[row*p.GridX+col+1]})
			}
			if row+1 < p.GridY {
				pairs = append(pairs, [2]int{a, seqAt[(row+1)*p.GridX+col]})
			}
		}
	}
	return pairs
}
