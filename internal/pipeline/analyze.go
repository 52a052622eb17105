package pipeline

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/hotspot-cli/internal/feature"
	"github.com/sells-group/hotspot-cli/internal/hotspot"
)

// GlobalOutput is the result collection of the whole-grid analysis.
const GlobalOutput = "HSAnalysis_All"

// AnalysisOutput is one written hot-spot result.
type AnalysisOutput struct {
	Collection string          `json:"collection"`
	Region     string          `json:"region,omitempty"`
	Cells      int             `json:"cells"`
	Summary    hotspot.Summary `json:"summary"`
}

// SkippedRegion is a region that was not analysed.
type SkippedRegion struct {
	Region string `json:"region"`
	Cells  int    `json:"cells"`
	Reason string `json:"reason"`
}

// AnalysisResult lists every output and skip of the hot-spot stage.
type AnalysisResult struct {
	Outputs []AnalysisOutput `json:"outputs"`
	Skipped []SkippedRegion  `json:"skipped,omitempty"`
}

// Analyze runs Gi* over the whole grid, then over the cells intersecting all regions together and
// over each region that intersects more than the configured minimum number of cells.
func (p *Pipeline) Analyze(ctx context.Context, regions []Region) (*AnalysisResult, error) {
	grid := p.cfg.Pipeline.GridName
	opts := p.hotSpotOptions()
	result := &AnalysisResult{}

	n, err := p.eng.Count(ctx, grid)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: count grid cells")
	}
	sum, err := p.eng.HotSpot(ctx, grid, nil, GlobalOutput, feature.AggregateField, opts)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: global hot spot analysis")
	}
	result.Outputs = append(result.Outputs, AnalysisOutput{Collection: GlobalOutput, Cells: int(n), Summary: sum})
	zap.L().Info("pipeline: hot spot analysis written",
		zap.String("collection", GlobalOutput),
		zap.Int64("cells", n),
		zap.Int("hot", sum.Hot),
		zap.Int("cold", sum.Cold),
		zap.Float64("distance_band_m", sum.DistanceBand),
	)
	if len(regions) == 0 {
		return result, nil
	}

	used := map[string]bool{GlobalOutput: true}
	if out := p.cfg.Pipeline.BoundaryOutput; out != "" {
		used[out] = true
		geoms := make([]orb.Geometry, len(regions))
		for i, r := range regions {
			geoms[i] = r.Geometry
		}
		if err := p.analyzeSelection(ctx, "boundary", out, geoms, result); err != nil {
			return result, err
		}
	}

	for _, r := range regions {
		if err := ctx.Err(); err != nil {
			return result, eris.Wrap(err, "pipeline: analysis cancelled")
		}
		label := fmt.Sprintf("%s (%s)", r.Name, r.ID)
		out := uniqueOutput(r, used)
		if out != r.OutputName() {
			zap.L().Warn("pipeline: region output name taken, using region id",
				zap.String("region", label), zap.String("collection", out))
		}
		if err := p.analyzeSelection(ctx, label, out, []orb.Geometry{r.Geometry}, result); err != nil {
			return result, err
		}
	}
	return result, nil
}

// uniqueOutput returns the region's output collection, suffixed with its id and then a counter
// while the name is already taken, and marks the result as used.
func uniqueOutput(r Region, used map[string]bool) string {
	out := r.OutputName()
	if used[out] {
		out += "_" + r.ID
	}
	for i, base := 2, out; used[out]; i++ {
		out = fmt.Sprintf("%s_%d", base, i)
	}
	used[out] = true
	return out
}

// analyzeSelection selects the grid cells intersecting geoms afresh and runs Gi* on them when the
// selection exceeds the minimum. Too few cells or insufficient data is recorded as a skip.
func (p *Pipeline) analyzeSelection(ctx context.Context, label, out string, geoms []orb.Geometry, result *AnalysisResult) error {
	grid := p.cfg.Pipeline.GridName
	log := zap.L().With(zap.String("region", label))

	sel, err := p.eng.SelectByLocation(ctx, grid, geoms...)
	if err != nil {
		return eris.Wrapf(err, "pipeline: select cells for %s", label)
	}
	cells := sel.Len()
	log.Info("pipeline: region cells", zap.Int("cells", cells))

	threshold := p.cfg.Pipeline.MinRegionCells
	if cells <= threshold {
		reason := fmt.Sprintf("%d intersecting cells, need more than %d", cells, threshold)
		log.Info("pipeline: skipping region", zap.String("reason", reason))
		result.Skipped = append(result.Skipped, SkippedRegion{Region: label, Cells: cells, Reason: reason})
		return nil
	}

	sum, err := p.eng.HotSpot(ctx, grid, &sel, out, feature.AggregateField, p.hotSpotOptions())
	if eris.Is(err, hotspot.ErrInsufficientData) {
		log.Info("pipeline: skipping region", zap.String("reason", err.Error()))
		result.Skipped = append(result.Skipped, SkippedRegion{Region: label, Cells: cells, Reason: err.Error()})
		return nil
	}
	if err != nil {
		return eris.Wrapf(err, "pipeline: hot spot analysis for %s", label)
	}

	result.Outputs = append(result.Outputs, AnalysisOutput{Collection: out, Region: label, Cells: cells, Summary: sum})
	log.Info("pipeline: hot spot analysis written",
		zap.String("collection", out),
		zap.Int("hot", sum.Hot),
		zap.Int("cold", sum.Cold),
	)
	return nil
}
