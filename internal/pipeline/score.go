package pipeline

import (
	"context"
	"maps"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/hotspot-cli/internal/expr"
	"github.com/sells-group/hotspot-cli/internal/feature"
)

// WeightTable returns the default weights overlaid with the configured ones.
func (p *Pipeline) WeightTable() map[string]float64 {
	table := maps.Clone(expr.DefaultWeights)
	maps.Copy(table, p.cfg.Pipeline.Weights)
	return table
}

// Score adds count_all to the grid as the weighted sum of its count fields.
func (p *Pipeline) Score(ctx context.Context) (expr.WeightedSum, error) {
	grid := p.cfg.Pipeline.GridName
	fields, err := p.countFields(ctx)
	if err != nil {
		return expr.WeightedSum{}, err
	}

	sum := expr.Weighted(fields, p.WeightTable())
	zap.L().Info("pipeline: density expression", zap.String("field", feature.AggregateField), zap.String("expression", sum.String()))

	if err := p.eng.AddField(ctx, grid, feature.Field{Name: feature.AggregateField, Type: feature.Float}); err != nil {
		return sum, eris.Wrapf(err, "pipeline: add %s", feature.AggregateField)
	}
	if err := p.eng.CalculateField(ctx, grid, feature.AggregateField, sum); err != nil {
		return sum, eris.Wrapf(err, "pipeline: calculate %s", feature.AggregateField)
	}
	return sum, nil
}
