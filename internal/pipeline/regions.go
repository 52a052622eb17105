package pipeline

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"

	"github.com/sells-group/hotspot-cli/internal/feature"
	"github.com/sells-group/hotspot-cli/internal/fetcher"
)

// Region is one named polygon of a boundary layer.
type Region struct {
	ID       string
	Name     string
	Geometry orb.Geometry
}

// LoadRegions reads a polygon boundary layer from a shapefile or GeoJSON file. idField and
// nameField name the identifier and display attributes; a missing identifier falls back to the
// zero-based row number and a missing name to the identifier.
func LoadRegions(path, idField, nameField string) ([]Region, error) {
	var (
		coll *feature.Collection
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		coll, err = fetcher.ReadShapefile(path)
	case ".json", ".geojson":
		fc, readErr := fetcher.ReadGeoJSON(path)
		if readErr != nil {
			return nil, readErr
		}
		coll, err = fetcher.FromGeoJSON(feature.StemName(path), fc)
	default:
		return nil, eris.Errorf("pipeline: unsupported boundary layer %s", path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: load boundary layer %s", path)
	}
	if coll.GeomType != feature.Polygon {
		return nil, eris.Errorf("pipeline: boundary layer %s has %s geometry, want polygons", path, coll.GeomType)
	}

	regions := make([]Region, 0, len(coll.Features))
	for i, f := range coll.Features {
		r := Region{
			ID:       attrString(f.Attrs[idField]),
			Name:     strings.TrimSpace(attrString(f.Attrs[nameField])),
			Geometry: f.Geometry,
		}
		if r.ID == "" {
			r.ID = strconv.Itoa(i)
		}
		if r.Name == "" {
			r.Name = r.ID
		}
		regions = append(regions, r)
	}
	return regions, nil
}

// OutputName returns the hot-spot result collection for a region.
func (r Region) OutputName() string {
	return "HSAnalysis_" + r.Name
}

func attrString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
