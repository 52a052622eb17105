package geospatial

import (
	"github.com/paulmach/orb"
)

// Intersects reports whether two point or polygonal geometries share at least one point.
func Intersects(a, b orb.Geometry) bool {
	if a == nil || b == nil || !a.Bound().Intersects(b.Bound()) {
		return false
	}
	if p, ok := a.(orb.Point); ok {
		return Contains(b, p) || pointEqual(b, p)
	}
	if p, ok := b.(orb.Point); ok {
		return Contains(a, p) || pointEqual(a, p)
	}

	for _, pa := range polygons(a) {
		for _, pb := range polygons(b) {
			if polygonsIntersect(pa, pb) {
				return true
			}
		}
	}
	return false
}

func pointEqual(g orb.Geometry, p orb.Point) bool {
	q, ok := g.(orb.Point)
	return ok && q.Equal(p)
}

func polygons(g orb.Geometry) []orb.Polygon {
	switch v := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{v}
	case orb.MultiPolygon:
		return v
	case orb.Bound:
		return []orb.Polygon{v.ToPolygon()}
	default:
		return nil
	}
}

// polygonsIntersect checks edge crossings first; without any crossing the polygons are either
// disjoint or one contains the other, which a single vertex test decides.
func polygonsIntersect(p, q orb.Polygon) bool {
	if len(p) == 0 || len(q) == 0 || len(p[0]) == 0 || len(q[0]) == 0 {
		return false
	}
	if !p.Bound().Intersects(q.Bound()) {
		return false
	}
	for _, rp := range p {
		for _, rq := range q {
			if ringsCross(rp, rq) {
				return true
			}
		}
	}
	return Contains(q, p[0][0]) || Contains(p, q[0][0])
}

func ringsCross(a, b orb.Ring) bool {
	if !a.Bound().Intersects(b.Bound()) {
		return false
	}
	for i := 0; i+1 < len(a); i++ {
		for j := 0; j+1 < len(b); j++ {
			if segmentsIntersect(a[i], a[i+1], b[j], b[j+1]) {
				return true
			}
		}
	}
	return false
}

// segmentsIntersect reports whether segments p1p2 and q1q2 touch or cross.
func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := orientation(q1, q2, p1)
	d2 := orientation(q1, q2, p2)
	d3 := orientation(p1, p2, q1)
	d4 := orientation(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(q1, q2, p1)) ||
		(d2 == 0 && onSegment(q1, q2, p2)) ||
		(d3 == 0 && onSegment(p1, p2, q1)) ||
		(d4 == 0 && onSegment(p1, p2, q2))
}

func orientation(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onSegment(a, b, p orb.Point) bool {
	return p[0] >= min(a[0], b[0]) && p[0] <= max(a[0], b[0]) &&
		p[1] >= min(a[1], b[1]) && p[1] <= max(a[1], b[1])
}
