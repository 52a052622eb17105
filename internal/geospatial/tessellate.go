// Package geospatial implements the planar operations behind the workspace engine: hexagon
// tessellation, point-in-polygon join counts and polygon intersection tests.
package geospatial

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/rotisserie/eris"
)

// DefaultCellAreaKM2 is the default hexagon area in square kilometres.
const DefaultCellAreaKM2 = 0.5

// MaxCells caps a single tessellation.
const MaxCells = 2_000_000

// Cell is one hexagon of a tessellation.
type Cell struct {
	ID      string
	Polygon orb.Polygon
}

// Hexagons covers a WGS84 extent with flat-topped hexagons of the given true area.
//
// Cells are laid out in Web Mercator. The Mercator scale factor at the extent's centre latitude is
// applied to the side length so that cells have the requested ground area near that latitude.
// Every point of the extent lies in at least one returned cell.
func Hexagons(extent orb.Bound, areaKM2 float64) ([]Cell, error) {
	if areaKM2 <= 0 || math.IsNaN(areaKM2) || math.IsInf(areaKM2, 0) {
		return nil, eris.Errorf("tessellate: cell area must be positive, got %v", areaKM2)
	}
	if !validBound(extent) {
		return nil, eris.Errorf("tessellate: invalid extent %v", extent)
	}

	lat0 := (extent.Min[1] + extent.Max[1]) / 2
	scale := 1 / math.Cos(lat0*math.Pi/180)
	side := hexSide(areaKM2*1e6) * scale

	lo := project.WGS84.ToMercator(extent.Min)
	hi := project.WGS84.ToMercator(extent.Max)

	dx := 1.5 * side
	h := math.Sqrt(3) * side
	cols := int(math.Ceil((hi[0]-lo[0])/dx)) + 1
	rows := int(math.Ceil((hi[1]-lo[1])/h)) + 1
	if est := (cols + 2) * (rows + 2); est > MaxCells {
		return nil, eris.Errorf("tessellate: extent needs about %d cells, limit is %d", est, MaxCells)
	}

	mercBound := orb.Bound{Min: lo, Max: hi}
	var cells []Cell
	for i := -1; i <= cols; i++ {
		cx := lo[0] + float64(i)*dx
		offset := 0.0
		if i%2 != 0 {
			offset = h / 2
		}
		for j := -1; j <= rows; j++ {
			cy := lo[1] + float64(j)*h + offset
			ring := hexRing(cx, cy, side)
			if !ring.Bound().Intersects(mercBound) {
				continue
			}
			cells = append(cells, Cell{
				ID:      fmt.Sprintf("C%d-R%d", i+1, j+1),
				Polygon: orb.Polygon{toWGS84(ring)},
			})
		}
	}
	return cells, nil
}

// hexSide returns the side length of a regular hexagon with the given area.
func hexSide(area float64) float64 {
	return math.Sqrt(2 * area / (3 * math.Sqrt(3)))
}

// hexRing returns a closed counter-clockwise flat-topped hexagon ring.
func hexRing(cx, cy, side float64) orb.Ring {
	ring := make(orb.Ring, 0, 7)
	for k := 0; k < 6; k++ {
		a := float64(k) * math.Pi / 3
		ring = append(ring, orb.Point{cx + side*math.Cos(a), cy + side*math.Sin(a)})
	}
	return append(ring, ring[0])
}

func toWGS84(r orb.Ring) orb.Ring {
	out := make(orb.Ring, len(r))
	for i, p := range r {
		out[i] = project.Mercator.ToWGS84(p)
	}
	return out
}

func validBound(b orb.Bound) bool {
	for _, v := range []float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1] &&
		b.Min[1] >= -85 && b.Max[1] <= 85
}
