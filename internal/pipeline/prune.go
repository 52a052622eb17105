package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/hotspot-cli/internal/expr"
	"github.com/sells-group/hotspot-cli/internal/feature"
)

// countFields returns the grid's count fields, or ErrNoCountFields.
func (p *Pipeline) countFields(ctx context.Context) ([]string, error) {
	fields, err := p.eng.Fields(ctx, p.cfg.Pipeline.GridName)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: grid fields")
	}
	counts := feature.CountFields(fields)
	if len(counts) == 0 {
		return nil, eris.Wrapf(ErrNoCountFields, "grid %s", p.cfg.Pipeline.GridName)
	}
	return counts, nil
}

// Prune deletes grid cells whose every count field is below 1 and returns how many were removed.
func (p *Pipeline) Prune(ctx context.Context) (int64, error) {
	grid := p.cfg.Pipeline.GridName
	fields, err := p.countFields(ctx)
	if err != nil {
		return 0, err
	}

	where := expr.AllBelow(fields, 1)
	n, err := p.eng.CountWhere(ctx, grid, where)
	if err != nil {
		return 0, eris.Wrap(err, "pipeline: count empty cells")
	}
	zap.L().Info("pipeline: empty cells", zap.String("where", where.String()), zap.Int64("count", n))

	if n > 0 {
		if _, err := p.eng.DeleteRows(ctx, grid, where); err != nil {
			return 0, eris.Wrap(err, "pipeline: delete empty cells")
		}
	}

	remaining, err := p.eng.Count(ctx, grid)
	if err != nil {
		return n, err
	}
	if remaining == 0 {
		return n, eris.Wrapf(ErrEmptyGrid, "all %d cells of %s were empty", n, grid)
	}
	return n, nil
}
