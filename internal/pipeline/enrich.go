package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/hotspot-cli/internal/engine"
	"github.com/sells-group/hotspot-cli/internal/feature"
)

// Enrich joins every point source onto the grid as a <source>_num count field and returns the
// grid's count fields afterwards.
func (p *Pipeline) Enrich(ctx context.Context) ([]string, error) {
	names, types, err := p.sourceCollections(ctx)
	if err != nil {
		return nil, err
	}

	joined := 0
	for i, name := range names {
		if types[i] != feature.Point {
			zap.L().Debug("pipeline: not a point source, skipping join", zap.String("collection", name))
			continue
		}
		if err := p.enrichOne(ctx, name); err != nil {
			return nil, err
		}
		joined++
	}
	if joined == 0 {
		return nil, eris.Wrap(ErrNoCollections, "no point collections to join")
	}

	fields, err := p.eng.Fields(ctx, p.cfg.Pipeline.GridName)
	if err != nil {
		return nil, err
	}
	return feature.CountFields(fields), nil
}

// enrichOne runs one join into a scratch collection and copies it over the grid. The scratch
// collection is deleted on every path.
func (p *Pipeline) enrichOne(ctx context.Context, source string) (err error) {
	grid := p.cfg.Pipeline.GridName
	countField := feature.CountFieldName(source)
	tmp := grid + "_join_" + source
	log := zap.L().With(zap.String("grid", grid), zap.String("source", source))

	defer func() {
		exists, existsErr := p.eng.CollectionExists(ctx, tmp)
		if existsErr == nil && exists {
			if delErr := p.eng.DeleteCollection(ctx, tmp); delErr != nil {
				log.Warn("pipeline: delete join scratch", zap.String("collection", tmp), zap.Error(delErr))
			}
		}
	}()

	// A rerun replaces the previous count for this source.
	if err := p.eng.DeleteFields(ctx, grid, countField); err != nil {
		return eris.Wrapf(err, "pipeline: reset %s", countField)
	}

	// Only count fields already on the grid survive the join; source attributes are dropped
	// even when their names end in the count suffix.
	gridFields, err := p.eng.Fields(ctx, grid)
	if err != nil {
		return err
	}
	keep := map[string]bool{countField: true}
	for _, name := range feature.CountFields(gridFields) {
		keep[name] = true
	}

	if err := p.eng.SpatialJoin(ctx, grid, source, tmp); err != nil {
		return eris.Wrapf(err, "pipeline: join %s", source)
	}
	if err := p.eng.RenameField(ctx, tmp, engine.JoinCountField, countField); err != nil {
		return eris.Wrapf(err, "pipeline: rename join count for %s", source)
	}

	fields, err := p.eng.Fields(ctx, tmp)
	if err != nil {
		return err
	}
	var drop []string
	for _, f := range fields {
		if f.Required || keep[f.Name] {
			continue
		}
		drop = append(drop, f.Name)
	}
	if len(drop) > 0 {
		if err := p.eng.DeleteFields(ctx, tmp, drop...); err != nil {
			return eris.Wrapf(err, "pipeline: strip join fields for %s", source)
		}
	}

	if err := p.eng.CopyCollection(ctx, tmp, grid, feature.KindGrid); err != nil {
		return eris.Wrapf(err, "pipeline: replace grid with %s", tmp)
	}
	log.Info("pipeline: joined point counts", zap.String("field", countField), zap.Int("dropped_fields", len(drop)))
	return nil
}
