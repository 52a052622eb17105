// Package feature defines feature collections: named sets of point or polygon records sharing a
// field schema, as stored in a workspace.
package feature

import (
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/paulmach/orb"
)

// SRID is the spatial reference of every stored geometry (WGS84).
const SRID = 4326

const (
	// CountSuffix marks per-source count fields on the grid.
	CountSuffix = "_num"
	// AggregateField is the reserved weighted density field.
	AggregateField = "count_all"
	// GridIDField identifies a tessellation cell.
	GridIDField = "GRID_ID"
)

// GeometryType is the shape type shared by all features of a collection.
type GeometryType string

const (
	Point   GeometryType = "Point"
	Polygon GeometryType = "Polygon"
)

// Kind records the role a collection plays in the workspace.
type Kind string

const (
	KindSource  Kind = "source"
	KindGrid    Kind = "grid"
	KindResult  Kind = "result"
	KindScratch Kind = "scratch"
)

// FieldType is the attribute type of a field.
type FieldType string

const (
	String FieldType = "string"
	Int    FieldType = "int"
	Float  FieldType = "float"
)

// Field describes one attribute column. Required fields survive field stripping.
type Field struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required,omitempty"`
}

// Feature is a single geometric record.
type Feature struct {
	ID       int64          `json:"id"`
	Geometry orb.Geometry   `json:"-"`
	Attrs    map[string]any `json:"attrs"`
}

// Collection is a named set of features.
type Collection struct {
	Name     string
	Kind     Kind
	GeomType GeometryType
	Fields   []Field
	Features []Feature
}

// Field returns the named field, if present.
func (c *Collection) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// AddField appends a field to the schema unless a field with that name exists.
func (c *Collection) AddField(f Field) {
	if _, ok := c.Field(f.Name); ok {
		return
	}
	c.Fields = append(c.Fields, f)
}

// Bound returns the extent of all features. ok is false for an empty collection.
func (c *Collection) Bound() (orb.Bound, bool) {
	bounds := make([]orb.Bound, 0, len(c.Features))
	for _, f := range c.Features {
		if f.Geometry == nil {
			continue
		}
		bounds = append(bounds, f.Geometry.Bound())
	}
	return UnionBounds(bounds...)
}

// UnionBounds reduces bounds to their enclosing extent. Accumulators start at +Inf for minima and
// -Inf for maxima so any finite input replaces them. ok is false when bounds is empty.
func UnionBounds(bounds ...orb.Bound) (orb.Bound, bool) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, b := range bounds {
		minX = math.Min(minX, b.Min[0])
		minY = math.Min(minY, b.Min[1])
		maxX = math.Max(maxX, b.Max[0])
		maxY = math.Max(maxY, b.Max[1])
	}
	if len(bounds) == 0 {
		return orb.Bound{}, false
	}
	return orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}}, true
}

// StemName returns the file base name without its extension.
func StemName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// CountFieldName returns the count field for a point source.
func CountFieldName(source string) string {
	return source + CountSuffix
}

// IsCountField reports whether name is a per-source count field.
func IsCountField(name string) bool {
	return strings.HasSuffix(name, CountSuffix) && len(name) > len(CountSuffix)
}

// CountFields returns the sorted names of every count field in fields.
func CountFields(fields []Field) []string {
	var names []string
	for _, f := range fields {
		if IsCountField(f.Name) {
			names = append(names, f.Name)
		}
	}
	sort.Strings(names)
	return names
}

// AsFloat converts a decoded attribute value to float64.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}
