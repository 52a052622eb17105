package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/hotspot-cli/internal/store"
)

// InitWorkspace opens the workspace named name under dir, creating it if absent. Opening an
// existing workspace leaves its contents untouched.
func InitWorkspace(ctx context.Context, dir, name string) (*store.Workspace, error) {
	ws, err := store.Open(ctx, dir, name)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: init workspace")
	}
	zap.L().Info("pipeline: workspace ready", zap.String("path", ws.Path()))
	return ws, nil
}
