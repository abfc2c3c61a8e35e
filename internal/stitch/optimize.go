package stitch

import (
	"image"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// placeTiles solves global tile positions from registered links. Each
// connected group of tiles gets a per-axis least-squares solve with its
// lowest-numbered tile pinned to nominal; while any link's residual exceeds
// maxAvg the worst link is discarded and the system re-solved. Dropped links
// are returned for reporting. Tiles with no surviving link sit at nominal.
func placeTiles(n int, nominal []image.Point, links []link, maxAvg float64) ([]image.Point, []link) {
	active := append([]link(nil), links...)
	var dropped []link
	for {
		xs, ys := solveAxes(n, nominal, active)

		worst, worstDist := -1, 0.0
		for i, l := range active {
			d := math.Hypot(
				xs[l.b]-xs[l.a]-float64(l.off.X),
				ys[l.b]-ys[l.a]-float64(l.off.Y))
			if d > worstDist {
				worst, worstDist = i, d
			}
		}
		if worst < 0 || worstDist <= maxAvg {
			pos := make([]image.Point, n)
			for i := range pos {
				pos[i] = image.Pt(int(math.Round(xs[i])), int(math.Round(ys[i])))
			}
			return pos, dropped
		}
		dropped = append(dropped, active[worst])
		active = append(active[:worst:worst], active[worst+1:]...)
	}
}

// solveAxes solves the two independent 1-D placement systems. Tiles outside
// any link keep their nominal coordinates.
func solveAxes(n int, nominal []image.Point, links []link) (xs, ys []float64) {
	xs = make([]float64, n)
	ys = make([]float64, n)
	for i := range xs {
		xs[i] = float64(nominal[i].X)
		ys[i] = float64(nominal[i].Y)
	}
	for _, comp := range components(n, links) {
		if len(comp) < 2 {
			continue
		}
		solveComponent(comp, links, nominal, xs, ys)
	}
	return xs, ys
}

// components groups tile indices connected through links, each group sorted
// ascending, groups ordered by their first tile.
func components(n int, links []link) [][]int {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for _, l := range links {
		a, b := find(l.a), find(l.b)
		if a != b {
			if b < a {
				a, b = b, a
			}
			parent[b] = a
		}
	}

	groups := make(map[int][]int)
	for i := 0; i < n; i++ {
		r := find(i)
		groups[r] = append(groups[r], i)
	}
	roots := make([]int, 0, len(groups))
	for r := range groups {
		roots = append(roots, r)
	}
	sort.Ints(roots)

	out := make([][]int, 0, len(groups))
	for _, r := range roots {
		out = append(out, groups[r])
	}
	return out
}

// solveComponent writes the optimized coordinates of one connected group
// into xs/ys. The system has one row per in-group link plus an anchor row
// pinning the group's first tile, solved per axis by QR factorization.
func solveComponent(comp []int, links []link, nominal []image.Point, xs, ys []float64) {
	idx := make(map[int]int, len(comp))
	for i, tile := range comp {
		idx[tile] = i
	}
	var ls []link
	for _, l := range links {
		if _, ok := idx[l.a]; ok {
			ls = append(ls, l)
		}
	}

	m := len(ls) + 1
	k := len(comp)
	A := mat.NewDense(m, k, nil)
	bx := mat.NewVecDense(m, nil)
	by := mat.NewVecDense(m, nil)
	for i, l := range ls {
		A.Set(i, idx[l.b], 1)
		A.Set(i, idx[l.a], -1)
		bx.SetVec(i, float64(l.off.X))
		by.SetVec(i, float64(l.off.Y))
	}
	anchor := comp[0]
	A.Set(m-1, idx[anchor], 1)
	bx.SetVec(m-1, float64(nominal[anchor].X))
	by.SetVec(m-1, float64(nominal[anchor].Y))

	var qr mat.QR
	qr.Factorize(A)

	var px, py mat.VecDense
	if err := qr.SolveVecTo(&px, false, bx); err != nil {
		return // degenerate system; the group keeps nominal positions
	}
	if err := qr.SolveVecTo(&py, false, by); err != nil {
		return
	}
	for i, tile := range comp {
		xs[tile] = px.AtVec(i)
		ys[tile] = py.AtVec(i)
	}
}
