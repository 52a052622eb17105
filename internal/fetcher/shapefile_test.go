package fetcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/hotspot-cli/internal/feature"
)

func districtFixture() *feature.Collection {
	return &feature.Collection{
		Name:     "districts",
		Kind:     feature.KindSource,
		GeomType: feature.Polygon,
		Fields: []feature.Field{
			{Name: "FID", Type: feature.Int},
			{Name: "Name", Type: feature.String},
			{Name: "population_density", Type: feature.Float},
		},
		Features: []feature.Feature{
			{
				ID:       1,
				Geometry: orb.Polygon{{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}},
				Attrs:    map[string]any{"FID": int64(0), "Name": "Dongcheng", "population_density": 21.5},
			},
			{
				ID: 2,
				Geometry: orb.Polygon{
					{{3, 0}, {6, 0}, {6, 3}, {3, 3}, {3, 0}},
					{{4, 1}, {4, 2}, {5, 2}, {5, 1}, {4, 1}},
				},
				Attrs: map[string]any{"FID": int64(1), "Name": "Xicheng"},
			},
		},
	}
}

func TestShapefile_PolygonRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "districts.shp")
	names, err := WriteShapefile(path, districtFixture())
	require.NoError(t, err)
	assert.Equal(t, "population", names["population_density"])

	coll, err := ReadShapefile(path)
	require.NoError(t, err)
	assert.Equal(t, "districts", coll.Name)
	assert.Equal(t, feature.Polygon, coll.GeomType)
	require.Len(t, coll.Features, 2)

	fid, ok := coll.Field("FID")
	require.True(t, ok)
	assert.Equal(t, feature.Int, fid.Type)
	assert.Equal(t, int64(1), coll.Features[1].Attrs["FID"])
	assert.Equal(t, "Xicheng", coll.Features[1].Attrs["Name"])
	assert.InDelta(t, 21.5, coll.Features[0].Attrs["population"], 1e-9)
	_, hasDensity := coll.Features[1].Attrs["population"]
	assert.False(t, hasDensity)

	holed, ok := coll.Features[1].Geometry.(orb.Polygon)
	require.True(t, ok)
	require.Len(t, holed, 2)
	assert.InDelta(t, 8.0, planar.Area(holed), 1e-9)
	assert.True(t, planar.PolygonContains(holed, orb.Point{3.5, 0.5}))
	assert.False(t, planar.PolygonContains(holed, orb.Point{4.5, 1.5}))
}

func TestShapefile_PointRoundTrip(t *testing.T) {
	coll := &feature.Collection{
		Name:     "food",
		GeomType: feature.Point,
		Fields:   []feature.Field{{Name: "名称", Type: feature.String}},
		Features: []feature.Feature{
			{ID: 1, Geometry: orb.Point{116.4, 39.9}, Attrs: map[string]any{"名称": "饭店"}},
		},
	}
	path := filepath.Join(t.TempDir(), "food.shp")
	_, err := WriteShapefile(path, coll)
	require.NoError(t, err)

	got, err := ReadShapefile(path)
	require.NoError(t, err)
	assert.Equal(t, feature.Point, got.GeomType)
	require.Len(t, got.Features, 1)
	assert.Equal(t, orb.Point{116.4, 39.9}, got.Features[0].Geometry)
	assert.Equal(t, "饭店", got.Features[0].Attrs["名称"])
}

func TestShapefile_MultiPolygon(t *testing.T) {
	coll := &feature.Collection{
		Name:     "islands",
		GeomType: feature.Polygon,
		Features: []feature.Feature{{
			ID: 1,
			Geometry: orb.MultiPolygon{
				{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}},
				{{{5, 5}, {6, 5}, {6, 6}, {5, 6}, {5, 5}}},
			},
			Attrs: map[string]any{},
		}},
	}
	path := filepath.Join(t.TempDir(), "islands.shp")
	_, err := WriteShapefile(path, coll)
	require.NoError(t, err)

	got, err := ReadShapefile(path)
	require.NoError(t, err)
	mp, ok := got.Features[0].Geometry.(orb.MultiPolygon)
	require.True(t, ok)
	assert.Len(t, mp, 2)
}

func TestWriteShapefile_FileSet(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteShapefile(filepath.Join(dir, "source.shp"), districtFixture())
	require.NoError(t, err)

	assert.Equal(t, []string{"source.dbf", "source.shp", "source.shx"}, dirNames(t, dir))
}

func TestRemoveShapefile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scratch.shp")
	_, err := WriteShapefile(path, districtFixture())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scratchdbf"), nil, 0o644))

	require.NoError(t, RemoveShapefile(path))
	assert.Empty(t, dirNames(t, dir))
	// Removing twice is a no-op.
	assert.NoError(t, RemoveShapefile(path))
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestDBFNames(t *testing.T) {
	names := DBFNames([]feature.Field{
		{Name: "population_density"},
		{Name: "population_total"},
		{Name: "GRID_ID"},
		{Name: "grid_id"},
	})
	assert.Equal(t, "population", names["population_density"])
	assert.Equal(t, "populati_1", names["population_total"])
	assert.Equal(t, "GRID_ID", names["GRID_ID"])
	assert.Equal(t, "grid_id_1", names["grid_id"])
}

func TestTruncate_RuneBoundary(t *testing.T) {
	// Each CJK rune is three bytes; ten bytes hold three runes.
	assert.Equal(t, "人口密", truncate("人口密度统计", 10))
	assert.Equal(t, "short", truncate("short", 10))
}
