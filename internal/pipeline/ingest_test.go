package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/hotspot-cli/internal/feature"
)

const sightsGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [116.397, 39.916]},
     "properties": {"name": "Forbidden City", "level": 5}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [116.391, 39.927]},
     "properties": {"name": "Beihai Park", "level": 4}}
  ]
}`

func writeXLSX(t *testing.T, path string, rows [][]string) {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, r := range rows {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}
	require.NoError(t, f.Save(path))
}

func TestSourceKindOf(t *testing.T) {
	tests := []struct {
		path string
		kind SourceKind
		ok   bool
	}{
		{"edu.csv", SourceDelimited, true},
		{"edu.TXT", SourceDelimited, true},
		{"edu.tsv", SourceDelimited, true},
		{"food.xlsx", SourceSpreadsheet, true},
		{"sights.json", SourceJSON, true},
		{"sights.geojson", SourceJSON, true},
		{"notes.md", "", false},
		{"legacy.xls", "", false},
	}
	for _, tt := range tests {
		kind, ok := SourceKindOf(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.kind, kind, tt.path)
	}
}

func TestIngest_Directory(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	p, ws := newTestPipeline(t, cfg)

	src := t.TempDir()
	writeFile(t, src, "edu.csv", "name,lng,lat\nschool,116.40,39.90\nbroken,x,39.9\nlibrary,116.41,39.91\n")
	writeXLSX(t, filepath.Join(src, "food.xlsx"), [][]string{
		{"Unnamed: 0", "name", "lng", "lat"},
		{"0", "noodles", "116.42", "39.90"},
	})
	writeFile(t, src, "siteseeing.json", sightsGeoJSON)
	writeFile(t, src, "broken.json", `{"type": "FeatureCollection", "features": [`)
	writeFile(t, src, "README.md", "not a source")

	res, err := p.Ingest(ctx, src)
	require.NoError(t, err)
	require.Len(t, res.Processed, 3)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, filepath.Join(src, "broken.json"), res.Failed[0].Path)

	byName := map[string]IngestedFile{}
	for _, f := range res.Processed {
		byName[f.Collection] = f
	}
	assert.Equal(t, 2, byName["edu"].Features)
	assert.Equal(t, 1, byName["edu"].Skipped)
	assert.Equal(t, 1, byName["food"].Features)
	assert.Equal(t, SourceJSON, byName["siteseeing"].Kind)

	food, err := ws.Read(ctx, "food")
	require.NoError(t, err)
	_, hasIndex := food.Field("Unnamed: 0")
	assert.False(t, hasIndex)
	assert.Equal(t, "noodles", food.Features[0].Attrs["name"])

	sights, err := ws.Read(ctx, "siteseeing")
	require.NoError(t, err)
	assert.Equal(t, feature.Point, sights.GeomType)
	assert.Len(t, sights.Features, 2)

	assertDirEmpty(t, cfg.Workspace.ScratchDir)
}

func TestIngest_NothingImported(t *testing.T) {
	cfg := testConfig(t)
	p, _ := newTestPipeline(t, cfg)

	src := t.TempDir()
	writeFile(t, src, "bad.csv", "name,x,y\na,1,2\n")

	res, err := p.Ingest(context.Background(), src)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNoCollections))
	assert.Len(t, res.Failed, 1)
	assertDirEmpty(t, cfg.Workspace.ScratchDir)
}

func TestIngest_MissingDir(t *testing.T) {
	p, _ := newTestPipeline(t, testConfig(t))
	_, err := p.Ingest(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestIngestFile_JSONOverwrites(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	p, ws := newTestPipeline(t, cfg)

	path := writeFile(t, t.TempDir(), "siteseeing.json", sightsGeoJSON)
	_, err := p.IngestFile(ctx, path, "")
	require.NoError(t, err)
	_, err = p.IngestFile(ctx, path, "")
	require.NoError(t, err)

	n, err := ws.Count(ctx, "siteseeing")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assertDirEmpty(t, cfg.Workspace.ScratchDir)
}

func TestIngestFile_JSONKeepsAttributes(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	p, ws := newTestPipeline(t, cfg)

	path := writeFile(t, t.TempDir(), "siteseeing.json", sightsGeoJSON)
	_, err := p.IngestFile(ctx, path, "")
	require.NoError(t, err)

	sights, err := ws.Read(ctx, "siteseeing")
	require.NoError(t, err)
	_, hasName := sights.Field("name")
	assert.True(t, hasName)
	_, hasLevel := sights.Field("level")
	assert.True(t, hasLevel)

	levels := map[string]float64{}
	for _, f := range sights.Features {
		name, _ := f.Attrs["name"].(string)
		level, ok := feature.AsFloat(f.Attrs["level"])
		require.True(t, ok, name)
		levels[name] = level
	}
	assert.Equal(t, map[string]float64{"Forbidden City": 5, "Beihai Park": 4}, levels)
	assertDirEmpty(t, cfg.Workspace.ScratchDir)
}

func TestIngestFile_FailedWriteKeepsExisting(t *testing.T) {
	m := new(mockEngine)
	cfg := testConfig(t)
	p := New(cfg, m)

	m.On("CollectionExists", mock.Anything, "siteseeing").Return(true, nil)
	m.On("WriteCollection", mock.Anything, mock.Anything).Return(eris.New("disk full"))

	path := writeFile(t, t.TempDir(), "siteseeing.json", sightsGeoJSON)
	_, err := p.IngestFile(context.Background(), path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	m.AssertNotCalled(t, "DeleteCollection", mock.Anything, mock.Anything)
	assertDirEmpty(t, cfg.Workspace.ScratchDir)
}

func TestIngest_RejectsUnusableStem(t *testing.T) {
	ctx := context.Background()
	p, ws := newTestPipeline(t, testConfig(t))

	src := t.TempDir()
	writeFile(t, src, "kid's.csv", "name,lng,lat\nplayground,116.40,39.90\n")
	writeFile(t, src, "edu.csv", "name,lng,lat\nschool,116.41,39.91\n")

	res, err := p.Ingest(ctx, src)
	require.NoError(t, err)
	require.Len(t, res.Processed, 1)
	assert.Equal(t, "edu", res.Processed[0].Collection)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, filepath.Join(src, "kid's.csv"), res.Failed[0].Path)

	exists, err := ws.Exists(ctx, "kid's")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = p.BuildGrid(ctx)
	require.NoError(t, err)
	fields, err := p.Enrich(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"edu_num"}, fields)
}

func TestIngestFile_CustomName(t *testing.T) {
	ctx := context.Background()
	p, ws := newTestPipeline(t, testConfig(t))

	path := writeFile(t, t.TempDir(), "export-2021.csv", "LNG,LAT\n116.4,39.9\n")
	file, err := p.IngestFile(ctx, path, "medicine")
	require.NoError(t, err)
	assert.Equal(t, "medicine", file.Collection)

	exists, err := ws.Exists(ctx, "medicine")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestIngestFile_Unsupported(t *testing.T) {
	p, _ := newTestPipeline(t, testConfig(t))
	_, err := p.IngestFile(context.Background(), "roads.kml", "")
	require.Error(t, err)
}

func TestIngestFile_SpreadsheetScratchRemovedOnFailure(t *testing.T) {
	cfg := testConfig(t)
	p, _ := newTestPipeline(t, cfg)

	path := filepath.Join(t.TempDir(), "shopping.xlsx")
	writeXLSX(t, path, [][]string{{"name", "x"}, {"mall", "1"}})

	_, err := p.IngestFile(context.Background(), path, "")
	require.Error(t, err)
	assertDirEmpty(t, cfg.Workspace.ScratchDir)
}
