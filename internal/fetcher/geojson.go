package fetcher

import (
	"fmt"
	"os"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"

	"github.com/sells-group/hotspot-cli/internal/feature"
)

// ReadGeoJSON parses a GeoJSON FeatureCollection file.
func ReadGeoJSON(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geojson: read %s", path)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, eris.Wrapf(err, "geojson: decode %s", path)
	}
	return fc, nil
}

// WriteGeoJSON encodes a FeatureCollection to path.
func WriteGeoJSON(path string, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return eris.Wrap(err, "geojson: encode")
	}
	return eris.Wrapf(os.WriteFile(path, data, 0o644), "geojson: write %s", path)
}

// FromGeoJSON converts a FeatureCollection of points or (multi)polygons to a collection.
// Property types are inferred: JSON numbers become float fields, everything else strings.
func FromGeoJSON(name string, fc *geojson.FeatureCollection) (*feature.Collection, error) {
	coll := &feature.Collection{Name: name, Kind: feature.KindSource}
	types := map[string]feature.FieldType{}

	for i, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		gt, err := geometryType(f.Geometry)
		if err != nil {
			return nil, eris.Wrapf(err, "geojson: feature %d", i)
		}
		if coll.GeomType == "" {
			coll.GeomType = gt
		} else if coll.GeomType != gt {
			return nil, eris.Errorf("geojson: mixed geometry types %s and %s", coll.GeomType, gt)
		}

		attrs := make(map[string]any, len(f.Properties))
		for k, v := range f.Properties {
			switch val := v.(type) {
			case nil:
				continue
			case float64:
				if _, ok := types[k]; !ok {
					types[k] = feature.Float
				}
				attrs[k] = val
			case string:
				types[k] = feature.String
				attrs[k] = val
			default:
				types[k] = feature.String
				attrs[k] = fmt.Sprint(val)
			}
		}
		coll.Features = append(coll.Features, feature.Feature{
			ID:       int64(len(coll.Features) + 1),
			Geometry: f.Geometry,
			Attrs:    attrs,
		})
	}
	if coll.GeomType == "" {
		return nil, eris.Errorf("geojson: %s has no geometries", name)
	}

	names := make([]string, 0, len(types))
	for k := range types {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		coll.Fields = append(coll.Fields, feature.Field{Name: k, Type: types[k]})
	}
	// A field seen as both number and string is stored as text throughout.
	for _, f := range coll.Features {
		for k, v := range f.Attrs {
			if types[k] == feature.String {
				if n, ok := v.(float64); ok {
					f.Attrs[k] = fmt.Sprint(n)
				}
			}
		}
	}
	return coll, nil
}

// ToGeoJSON converts a collection to a FeatureCollection. Attributes become properties.
func ToGeoJSON(coll *feature.Collection) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range coll.Features {
		gf := geojson.NewFeature(f.Geometry)
		gf.ID = f.ID
		for k, v := range f.Attrs {
			gf.Properties[k] = v
		}
		fc.Append(gf)
	}
	return fc
}

func geometryType(g orb.Geometry) (feature.GeometryType, error) {
	switch g.(type) {
	case orb.Point:
		return feature.Point, nil
	case orb.Polygon, orb.MultiPolygon:
		return feature.Polygon, nil
	default:
		return "", eris.Errorf("unsupported geometry %s", g.GeoJSONType())
	}
}
