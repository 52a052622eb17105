// Package pipeline runs the hot-spot workflow against a workspace: ingest sources, build and
// enrich a hexagon grid, prune and score it, then run the hot-spot analyses.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/hotspot-cli/internal/config"
	"github.com/sells-group/hotspot-cli/internal/engine"
	"github.com/sells-group/hotspot-cli/internal/hotspot"
)

// Empty-input errors.
var (
	ErrNoCollections = eris.New("pipeline: no feature collections")
	ErrNoCountFields = eris.New("pipeline: grid has no count fields")
	ErrEmptyGrid     = eris.New("pipeline: grid is empty")
)

// StageStatus is the outcome of one stage.
type StageStatus string

const (
	StageComplete StageStatus = "complete"
	StageFailed   StageStatus = "failed"
)

// StageResult records one stage of a run.
type StageResult struct {
	Name     string         `json:"name"`
	Status   StageStatus    `json:"status"`
	Duration int64          `json:"duration_ms"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Result is the outcome of a full run.
type Result struct {
	Ingest   *IngestResult   `json:"ingest,omitempty"`
	Cells    int             `json:"cells"`
	Pruned   int64           `json:"pruned"`
	Score    string          `json:"score_expression,omitempty"`
	Analysis *AnalysisResult `json:"analysis,omitempty"`
	Stages   []StageResult   `json:"stages"`
}

// Pipeline runs the workflow stages through an engine.
type Pipeline struct {
	cfg *config.Config
	eng engine.Engine
}

// New creates a Pipeline.
func New(cfg *config.Config, eng engine.Engine) *Pipeline {
	return &Pipeline{cfg: cfg, eng: eng}
}

// Run executes every stage in order. It stops at the first failing stage; the returned result
// holds the stages that ran.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	log := zap.L().With(zap.String("grid", p.cfg.Pipeline.GridName))
	log.Info("pipeline: starting run", zap.String("source_dir", p.cfg.Pipeline.SourceDir))

	result := &Result{}
	stage := func(name string, fn func() (map[string]any, error)) error {
		start := time.Now()
		meta, err := fn()
		sr := StageResult{Name: name, Duration: time.Since(start).Milliseconds(), Metadata: meta}
		if err != nil {
			sr.Status = StageFailed
			sr.Error = err.Error()
			log.Error("pipeline: stage failed", zap.String("stage", name), zap.Int64("duration_ms", sr.Duration), zap.Error(err))
		} else {
			sr.Status = StageComplete
			log.Info("pipeline: stage complete", zap.String("stage", name), zap.Int64("duration_ms", sr.Duration))
		}
		result.Stages = append(result.Stages, sr)
		return err
	}

	var regions []Region
	steps := []struct {
		name string
		fn   func() (map[string]any, error)
	}{
		{"ingest", func() (map[string]any, error) {
			ir, err := p.Ingest(ctx, p.cfg.Pipeline.SourceDir)
			result.Ingest = ir
			if ir == nil {
				return nil, err
			}
			return map[string]any{"processed": len(ir.Processed), "failed": len(ir.Failed)}, err
		}},
		{"grid", func() (map[string]any, error) {
			n, err := p.BuildGrid(ctx)
			result.Cells = n
			return map[string]any{"cells": n}, err
		}},
		{"enrich", func() (map[string]any, error) {
			fields, err := p.Enrich(ctx)
			return map[string]any{"count_fields": fields}, err
		}},
		{"prune", func() (map[string]any, error) {
			n, err := p.Prune(ctx)
			result.Pruned = n
			return map[string]any{"removed": n}, err
		}},
		{"score", func() (map[string]any, error) {
			sum, err := p.Score(ctx)
			result.Score = sum.String()
			return map[string]any{"expression": result.Score}, err
		}},
		{"analyze", func() (map[string]any, error) {
			if path := p.cfg.Pipeline.Districts; path != "" {
				var err error
				if regions, err = LoadRegions(path, p.cfg.Pipeline.RegionIDField, p.cfg.Pipeline.RegionNameField); err != nil {
					return nil, err
				}
			}
			ar, err := p.Analyze(ctx, regions)
			result.Analysis = ar
			if ar == nil {
				return nil, err
			}
			return map[string]any{"outputs": len(ar.Outputs), "skipped": len(ar.Skipped)}, err
		}},
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return result, eris.Wrap(err, "pipeline: cancelled")
		}
		if err := stage(s.name, s.fn); err != nil {
			return result, err
		}
	}

	log.Info("pipeline: run complete", zap.Int("cells", result.Cells), zap.Int64("pruned", result.Pruned))
	return result, nil
}

func (p *Pipeline) hotSpotOptions() hotspot.Options {
	return hotspot.Options{
		DistanceBand: p.cfg.Pipeline.DistanceBandM,
		FDR:          p.cfg.Pipeline.FDR,
	}
}
