package feature

import (
	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// EncodeWKB converts a point, polygon or multipolygon to EWKB bytes with SRID 4326.
func EncodeWKB(g orb.Geometry) ([]byte, error) {
	var t geom.T

	switch v := g.(type) {
	case orb.Point:
		t = geom.NewPointFlat(geom.XY, []float64{v[0], v[1]}).SetSRID(SRID)

	case orb.Polygon:
		flat, ends := flattenPolygon(v, nil, 0)
		t = geom.NewPolygonFlat(geom.XY, flat, ends).SetSRID(SRID)

	case orb.MultiPolygon:
		var flat []float64
		endss := make([][]int, 0, len(v))
		for _, p := range v {
			var ends []int
			flat, ends = flattenPolygon(p, flat, len(flat))
			endss = append(endss, ends)
		}
		t = geom.NewMultiPolygonFlat(geom.XY, flat, endss).SetSRID(SRID)

	default:
		return nil, eris.Errorf("feature: unsupported geometry %T", g)
	}

	data, err := ewkb.Marshal(t, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "feature: encode WKB")
	}
	return data, nil
}

// DecodeWKB parses EWKB bytes produced by EncodeWKB.
func DecodeWKB(data []byte) (orb.Geometry, error) {
	t, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "feature: decode WKB")
	}

	switch v := t.(type) {
	case *geom.Point:
		return orb.Point{v.X(), v.Y()}, nil
	case *geom.Polygon:
		return toPolygon(v.Coords()), nil
	case *geom.MultiPolygon:
		coords := v.Coords()
		mp := make(orb.MultiPolygon, 0, len(coords))
		for _, p := range coords {
			mp = append(mp, toPolygon(p))
		}
		return mp, nil
	default:
		return nil, eris.Errorf("feature: unsupported WKB geometry %T", t)
	}
}

// flattenPolygon appends the rings of p to flat. ends are absolute offsets into flat, as go-geom
// expects, starting after offset.
func flattenPolygon(p orb.Polygon, flat []float64, offset int) ([]float64, []int) {
	ends := make([]int, 0, len(p))
	for _, ring := range p {
		for _, pt := range ring {
			flat = append(flat, pt[0], pt[1])
			offset += 2
		}
		ends = append(ends, offset)
	}
	return flat, ends
}

func toPolygon(rings [][]geom.Coord) orb.Polygon {
	p := make(orb.Polygon, 0, len(rings))
	for _, r := range rings {
		ring := make(orb.Ring, 0, len(r))
		for _, c := range r {
			ring = append(ring, orb.Point{c[0], c[1]})
		}
		p = append(p, ring)
	}
	return p
}
