package main

import (
	"context"

	"github.com/sells-group/hotspot-cli/internal/engine"
	"github.com/sells-group/hotspot-cli/internal/pipeline"
	"github.com/sells-group/hotspot-cli/internal/store"
)

// openPipeline opens (or creates) the configured workspace and builds a pipeline over it. The
// caller closes the workspace.
func openPipeline(ctx context.Context) (*pipeline.Pipeline, *store.Workspace, error) {
	ws, err := pipeline.InitWorkspace(ctx, cfg.Workspace.Dir, cfg.Workspace.Name)
	if err != nil {
		return nil, nil, err
	}
	return pipeline.New(cfg, engine.NewLocal(ws)), ws, nil
}
