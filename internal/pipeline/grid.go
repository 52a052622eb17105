package pipeline

import (
	"context"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/hotspot-cli/internal/feature"
)

// sourceCollections lists source collections, skipping the grid.
func (p *Pipeline) sourceCollections(ctx context.Context) ([]string, []feature.GeometryType, error) {
	infos, err := p.eng.ListCollections(ctx)
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: list collections")
	}
	var (
		names []string
		types []feature.GeometryType
	)
	for _, info := range infos {
		if info.Kind != feature.KindSource || info.Name == p.cfg.Pipeline.GridName {
			continue
		}
		names = append(names, info.Name)
		types = append(types, info.GeomType)
	}
	return names, types, nil
}

// Extent returns the union of every source collection's extent.
func (p *Pipeline) Extent(ctx context.Context) (orb.Bound, error) {
	names, _, err := p.sourceCollections(ctx)
	if err != nil {
		return orb.Bound{}, err
	}
	if len(names) == 0 {
		return orb.Bound{}, ErrNoCollections
	}

	bounds := make([]orb.Bound, 0, len(names))
	for _, name := range names {
		b, ok, err := p.eng.Extent(ctx, name)
		if err != nil {
			return orb.Bound{}, eris.Wrapf(err, "pipeline: extent of %s", name)
		}
		if ok {
			bounds = append(bounds, b)
		}
	}
	extent, ok := feature.UnionBounds(bounds...)
	if !ok {
		return orb.Bound{}, eris.Wrap(ErrNoCollections, "every collection is empty")
	}
	return extent, nil
}

// BuildGrid tessellates the combined source extent and returns the number of cells.
func (p *Pipeline) BuildGrid(ctx context.Context) (int, error) {
	extent, err := p.Extent(ctx)
	if err != nil {
		return 0, err
	}
	grid := p.cfg.Pipeline.GridName
	zap.L().Info("pipeline: building grid",
		zap.String("grid", grid),
		zap.Float64s("extent", []float64{extent.Min[0], extent.Min[1], extent.Max[0], extent.Max[1]}),
		zap.Float64("cell_area_km2", p.cfg.Pipeline.CellAreaKM2),
	)

	n, err := p.eng.GenerateTessellation(ctx, grid, extent, p.cfg.Pipeline.CellAreaKM2)
	if err != nil {
		return 0, eris.Wrapf(err, "pipeline: build grid %s", grid)
	}
	zap.L().Info("pipeline: grid built", zap.String("grid", grid), zap.Int("cells", n))
	return n, nil
}
