package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/hotspot-cli/internal/config"
	"github.com/sells-group/hotspot-cli/internal/engine"
	"github.com/sells-group/hotspot-cli/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Workspace.Dir = t.TempDir()
	cfg.Workspace.Name = "test"
	cfg.Workspace.ScratchDir = t.TempDir()
	cfg.Ingest.LngColumn = "lng"
	cfg.Ingest.LatColumn = "lat"
	cfg.Pipeline.GridName = "hex_grid"
	cfg.Pipeline.CellAreaKM2 = 0.5
	cfg.Pipeline.MinRegionCells = 30
	cfg.Pipeline.BoundaryOutput = "HSAnalysis_Boundary"
	cfg.Pipeline.RegionIDField = "FID"
	cfg.Pipeline.RegionNameField = "Name"
	cfg.Pipeline.FDR = true
	return cfg
}

// newTestPipeline returns a pipeline over a fresh workspace.
func newTestPipeline(t *testing.T, cfg *config.Config) (*Pipeline, *store.Workspace) {
	t.Helper()
	ws, err := InitWorkspace(context.Background(), cfg.Workspace.Dir, cfg.Workspace.Name)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() }) //nolint:errcheck
	return New(cfg, engine.NewLocal(ws)), ws
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func square(x, y, size float64) orb.Polygon {
	return orb.Polygon{{{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size}, {x, y}}}
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.Empty(t, names, "scratch files left in %s", dir)
}
