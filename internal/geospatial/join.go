package geospatial

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/quadtree"
	"github.com/rotisserie/eris"
)

// indexedPoint lets quadtree results be mapped back to their input position.
type indexedPoint struct {
	pt  orb.Point
	idx int
}

func (p indexedPoint) Point() orb.Point { return p.pt }

// Assign returns, for each point, the index of the first cell in cells that contains it, or -1.
// Points on an edge shared by two cells belong to the earlier cell.
func Assign(cells []orb.Geometry, points []orb.Point) ([]int, error) {
	owner := make([]int, len(points))
	for i := range owner {
		owner[i] = -1
	}
	if len(points) == 0 || len(cells) == 0 {
		return owner, nil
	}

	bound := orb.MultiPoint(points).Bound().Pad(1e-9)
	qt := quadtree.New(bound)
	for i, p := range points {
		if err := qt.Add(indexedPoint{pt: p, idx: i}); err != nil {
			return nil, eris.Wrapf(err, "join: index point %d", i)
		}
	}

	var buf []orb.Pointer
	for ci, cell := range cells {
		if cell == nil {
			continue
		}
		buf = qt.InBound(buf[:0], cell.Bound())
		for _, ptr := range buf {
			ip := ptr.(indexedPoint)
			if owner[ip.idx] >= 0 {
				continue
			}
			if Contains(cell, ip.pt) {
				owner[ip.idx] = ci
			}
		}
	}
	return owner, nil
}

// CountPoints returns, for each polygon in cells, the number of points it contains. Each point is
// counted once (see Assign), so the counts sum to the number of points inside the union of cells.
func CountPoints(cells []orb.Geometry, points []orb.Point) ([]int, error) {
	owner, err := Assign(cells, points)
	if err != nil {
		return nil, err
	}
	counts := make([]int, len(cells))
	for _, ci := range owner {
		if ci >= 0 {
			counts[ci]++
		}
	}
	return counts, nil
}

// Contains reports whether a polygonal geometry contains pt, boundary included.
func Contains(g orb.Geometry, pt orb.Point) bool {
	switch v := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(v, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(v, pt)
	case orb.Bound:
		return v.Contains(pt)
	default:
		return false
	}
}
