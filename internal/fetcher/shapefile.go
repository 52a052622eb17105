package fetcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"

	"github.com/sells-group/hotspot-cli/internal/feature"
)

// dbfNameLen is the longest field name a dBase header can hold.
const dbfNameLen = 10

// ReadShapefile loads a point or polygon shapefile into a collection. Numeric dBase fields become
// int or float attributes, everything else strings.
func ReadShapefile(path string) (*feature.Collection, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: open %s", path)
	}
	defer r.Close() //nolint:errcheck

	coll := &feature.Collection{Name: feature.StemName(path), Kind: feature.KindSource}
	dbf := r.Fields()
	for _, f := range dbf {
		coll.Fields = append(coll.Fields, feature.Field{Name: dbfFieldName(f), Type: dbfFieldType(f)})
	}

	for r.Next() {
		n, shape := r.Shape()
		g, gt, err := shapeGeometry(shape)
		if err != nil {
			return nil, eris.Wrapf(err, "shapefile: %s row %d", path, n)
		}
		if g == nil {
			continue
		}
		if coll.GeomType == "" {
			coll.GeomType = gt
		}

		attrs := make(map[string]any, len(dbf))
		for i, f := range coll.Fields {
			raw := strings.Trim(r.ReadAttribute(n, i), " \x00")
			if v, ok := parseAttribute(raw, f.Type); ok {
				attrs[f.Name] = v
			}
		}
		coll.Features = append(coll.Features, feature.Feature{
			ID:       int64(n + 1),
			Geometry: g,
			Attrs:    attrs,
		})
	}
	if coll.GeomType == "" {
		return nil, eris.Errorf("shapefile: %s has no point or polygon shapes", path)
	}
	return coll, nil
}

// WriteShapefile writes a collection as an ESRI shapefile set. Field names are truncated to the
// dBase limit and de-duplicated; the returned map gives the stored name for each field.
func WriteShapefile(path string, coll *feature.Collection) (map[string]string, error) {
	var shapeType shp.ShapeType = shp.POINT
	if coll.GeomType == feature.Polygon {
		shapeType = shp.POLYGON
	}

	names := DBFNames(coll.Fields)
	fields := make([]shp.Field, len(coll.Fields))
	for i, f := range coll.Fields {
		name := names[f.Name]
		switch f.Type {
		case feature.Int:
			fields[i] = shp.NumberField(name, 18)
		case feature.Float:
			fields[i] = shp.FloatField(name, 24, 8)
		default:
			fields[i] = shp.StringField(name, stringFieldSize(coll, f.Name))
		}
	}

	w, err := shp.Create(path, shapeType)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: create %s", path)
	}
	if err := writeShapes(w, coll, fields); err != nil {
		w.Close()
		return nil, err
	}
	w.Close()

	if err := fixDBFName(path); err != nil {
		return nil, err
	}
	return names, nil
}

func writeShapes(w *shp.Writer, coll *feature.Collection, fields []shp.Field) error {
	if err := w.SetFields(fields); err != nil {
		return eris.Wrap(err, "shapefile: set fields")
	}
	for _, f := range coll.Features {
		shape, err := orbShape(f.Geometry)
		if err != nil {
			return eris.Wrapf(err, "shapefile: feature %d", f.ID)
		}
		row := int(w.Write(shape))
		for i, fld := range coll.Fields {
			v, ok := f.Attrs[fld.Name]
			if !ok || v == nil {
				continue
			}
			if err := w.WriteAttribute(row, i, dbfValue(v, fld.Type)); err != nil {
				return eris.Wrapf(err, "shapefile: write %s", fld.Name)
			}
		}
	}
	return nil
}

// undottedDBF is where go-shp's writer puts the attribute table: the base name with "dbf"
// appended and no separating dot. Its reader looks for <base>.dbf.
func undottedDBF(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + "dbf"
}

// fixDBFName moves the attribute table written next to path to <base>.dbf.
func fixDBFName(path string) error {
	src := undottedDBF(path)
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return nil
	}
	dst := strings.TrimSuffix(path, filepath.Ext(path)) + ".dbf"
	return eris.Wrapf(os.Rename(src, dst), "shapefile: rename %s", src)
}

// RemoveShapefile deletes the .shp/.shx/.dbf files of a shapefile set. Missing parts are ignored.
func RemoveShapefile(path string) error {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	for _, name := range []string{base + ".shp", base + ".shx", base + ".dbf", undottedDBF(path)} {
		if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
			return eris.Wrapf(err, "shapefile: remove %s", name)
		}
	}
	return nil
}

// DBFNames maps field names to unique dBase names of at most ten characters.
func DBFNames(fields []feature.Field) map[string]string {
	out := make(map[string]string, len(fields))
	used := make(map[string]bool, len(fields))
	for _, f := range fields {
		name := truncate(f.Name, dbfNameLen)
		for i := 1; used[strings.ToUpper(name)]; i++ {
			suffix := "_" + strconv.Itoa(i)
			name = truncate(f.Name, dbfNameLen-len(suffix)) + suffix
		}
		used[strings.ToUpper(name)] = true
		out[f.Name] = name
	}
	return out
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func stringFieldSize(coll *feature.Collection, name string) uint8 {
	size := 1
	for _, f := range coll.Features {
		if v, ok := f.Attrs[name]; ok && v != nil {
			size = max(size, len(fmt.Sprint(v)))
		}
	}
	return uint8(min(size, 254))
}

func dbfValue(v any, t feature.FieldType) any {
	switch t {
	case feature.Int:
		if n, ok := feature.AsFloat(v); ok {
			return int(n)
		}
	case feature.Float:
		if n, ok := feature.AsFloat(v); ok {
			return n
		}
	}
	return truncate(fmt.Sprint(v), 254)
}

func dbfFieldName(f shp.Field) string {
	return strings.TrimRight(string(f.Name[:]), "\x00")
}

func dbfFieldType(f shp.Field) feature.FieldType {
	switch f.Fieldtype {
	case 'N':
		if f.Precision == 0 {
			return feature.Int
		}
		return feature.Float
	case 'F':
		return feature.Float
	default:
		return feature.String
	}
}

func parseAttribute(raw string, t feature.FieldType) (any, bool) {
	switch t {
	case feature.Int:
		n, err := strconv.ParseInt(raw, 10, 64)
		return n, err == nil
	case feature.Float:
		n, err := strconv.ParseFloat(raw, 64)
		return n, err == nil
	default:
		return raw, true
	}
}

// shapeGeometry converts a shapefile record. Null shapes return a nil geometry.
func shapeGeometry(s shp.Shape) (orb.Geometry, feature.GeometryType, error) {
	switch v := s.(type) {
	case *shp.Null:
		return nil, "", nil
	case *shp.Point:
		return orb.Point{v.X, v.Y}, feature.Point, nil
	case *shp.Polygon:
		return polygonFromParts(v.Parts, v.Points), feature.Polygon, nil
	default:
		return nil, "", eris.Errorf("unsupported shape %T", s)
	}
}

// polygonFromParts groups rings into polygons. Clockwise rings are shells, counter-clockwise rings
// are holes of the preceding shell. Rings come back counter-clockwise for shells.
func polygonFromParts(parts []int32, points []shp.Point) orb.Geometry {
	var mp orb.MultiPolygon
	for i, start := range parts {
		end := len(points)
		if i+1 < len(parts) {
			end = int(parts[i+1])
		}
		ring := make(orb.Ring, 0, end-int(start))
		for _, p := range points[start:end] {
			ring = append(ring, orb.Point{p.X, p.Y})
		}
		if len(ring) < 4 {
			continue
		}
		if ring.Orientation() == orb.CW || len(mp) == 0 {
			if ring.Orientation() == orb.CW {
				ring.Reverse()
			}
			mp = append(mp, orb.Polygon{ring})
			continue
		}
		ring.Reverse()
		mp[len(mp)-1] = append(mp[len(mp)-1], ring)
	}
	if len(mp) == 1 {
		return mp[0]
	}
	return mp
}

func orbShape(g orb.Geometry) (shp.Shape, error) {
	switch v := g.(type) {
	case orb.Point:
		return &shp.Point{X: v[0], Y: v[1]}, nil
	case orb.Polygon:
		return shapePolygon(orb.MultiPolygon{v}), nil
	case orb.MultiPolygon:
		return shapePolygon(v), nil
	default:
		return nil, eris.Errorf("unsupported geometry %T", g)
	}
}

// shapePolygon writes shells clockwise and holes counter-clockwise.
func shapePolygon(mp orb.MultiPolygon) shp.Shape {
	var parts [][]shp.Point
	for _, poly := range mp {
		for i, ring := range poly {
			want := orb.CCW
			if i == 0 {
				want = orb.CW
			}
			pts := make([]shp.Point, len(ring))
			for j, p := range ring {
				pts[j] = shp.Point{X: p[0], Y: p[1]}
			}
			if ring.Orientation() != want {
				for l, r := 0, len(pts)-1; l < r; l, r = l+1, r-1 {
					pts[l], pts[r] = pts[r], pts[l]
				}
			}
			parts = append(parts, pts)
		}
	}
	poly := shp.Polygon(*shp.NewPolyLine(parts))
	return &poly
}
