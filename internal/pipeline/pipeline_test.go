package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/hotspot-cli/internal/engine"
	"github.com/sells-group/hotspot-cli/internal/feature"
)

// threeSources writes three point sources whose points fall in three separate cells about
// 1.7 km apart.
func threeSources(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "edu.csv", "name,lng,lat\nschool,116.400,39.900\nlibrary,116.4001,39.9001\n")
	writeFile(t, dir, "food.csv", "name,lng,lat\nnoodles,116.420,39.900\n")
	writeFile(t, dir, "shopping.csv", "name,lng,lat\nmall,116.440,39.910\n")
	return dir
}

const boundaryTwoCells = `{"type": "FeatureCollection", "features": [
  {"type": "Feature", "properties": {"FID": 0, "Name": "Core"},
   "geometry": {"type": "Polygon", "coordinates": [[[116.398,39.898],[116.422,39.898],[116.422,39.902],[116.398,39.902],[116.398,39.898]]]}}
]}`

func TestRun_EndToEnd(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Pipeline.SourceDir = threeSources(t)
	cfg.Pipeline.Districts = writeFile(t, t.TempDir(), "districts.json", boundaryTwoCells)
	p, ws := newTestPipeline(t, cfg)

	res, err := p.Run(ctx)
	require.NoError(t, err)

	assert.Len(t, res.Ingest.Processed, 3)
	assert.Greater(t, res.Cells, 3)
	assert.Equal(t, int64(res.Cells-3), res.Pruned)
	assert.Equal(t, "!edu_num! * 2 + !food_num! * 3 + !shopping_num! * 3", res.Score)
	require.Len(t, res.Stages, 6)
	for _, s := range res.Stages {
		assert.Equal(t, StageComplete, s.Status, s.Name)
	}

	// Only the global analysis ran; the boundary and the region each cover two cells.
	require.Len(t, res.Analysis.Outputs, 1)
	assert.Equal(t, GlobalOutput, res.Analysis.Outputs[0].Collection)
	require.Len(t, res.Analysis.Skipped, 2)
	for _, s := range res.Analysis.Skipped {
		assert.Equal(t, 2, s.Cells)
	}

	out, err := ws.Read(ctx, GlobalOutput)
	require.NoError(t, err)
	assert.Equal(t, feature.KindResult, out.Kind)
	require.Len(t, out.Features, 3)
	scores := map[float64]bool{}
	for _, f := range out.Features {
		v, ok := feature.AsFloat(f.Attrs[feature.AggregateField])
		require.True(t, ok)
		scores[v] = true
		_, ok = f.Attrs[engine.BinField]
		assert.True(t, ok)
	}
	assert.Equal(t, map[float64]bool{4: true, 3: true}, scores)

	exists, err := ws.Exists(ctx, "HSAnalysis_Core")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRun_RegionAnalyzed(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Pipeline.SourceDir = threeSources(t)
	cfg.Pipeline.MinRegionCells = 2
	cfg.Pipeline.Districts = writeFile(t, t.TempDir(), "districts.json", `{"type": "FeatureCollection", "features": [
	  {"type": "Feature", "properties": {"FID": 0, "Name": "City"},
	   "geometry": {"type": "Polygon", "coordinates": [[[116.39,39.89],[116.45,39.89],[116.45,39.92],[116.39,39.92],[116.39,39.89]]]}}
	]}`)
	p, ws := newTestPipeline(t, cfg)

	res, err := p.Run(ctx)
	require.NoError(t, err)

	outputs := map[string]int{}
	for _, o := range res.Analysis.Outputs {
		outputs[o.Collection] = o.Cells
	}
	assert.Equal(t, map[string]int{GlobalOutput: 3, "HSAnalysis_Boundary": 3, "HSAnalysis_City": 3}, outputs)

	n, err := ws.Count(ctx, "HSAnalysis_City")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	// The grid itself is never modified by the analyses.
	grid, err := ws.Read(ctx, cfg.Pipeline.GridName)
	require.NoError(t, err)
	_, hasZ := grid.Field(engine.ZScoreField)
	assert.False(t, hasZ)
}

func TestRun_StopsAtFirstFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pipeline.SourceDir = t.TempDir()
	p, _ := newTestPipeline(t, cfg)

	res, err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNoCollections))
	require.Len(t, res.Stages, 1)
	assert.Equal(t, "ingest", res.Stages[0].Name)
	assert.Equal(t, StageFailed, res.Stages[0].Status)
}

func TestRun_Cancelled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pipeline.SourceDir = threeSources(t)
	p, _ := newTestPipeline(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := p.Run(ctx)
	require.Error(t, err)
	assert.Empty(t, res.Stages)
}

func TestInitWorkspace_Idempotent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := InitWorkspace(ctx, dir, "poi")
	require.NoError(t, err)
	path := first.Path()
	require.NoError(t, first.Close())

	second, err := InitWorkspace(ctx, dir, "poi")
	require.NoError(t, err)
	defer second.Close() //nolint:errcheck
	assert.Equal(t, path, second.Path())
}
