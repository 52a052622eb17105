package engine

import (
	"context"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/hotspot-cli/internal/expr"
	"github.com/sells-group/hotspot-cli/internal/feature"
	"github.com/sells-group/hotspot-cli/internal/geospatial"
	"github.com/sells-group/hotspot-cli/internal/hotspot"
	"github.com/sells-group/hotspot-cli/internal/store"
)

// Local runs every operation in-process against a workspace.
type Local struct {
	ws *store.Workspace
}

var _ Engine = (*Local)(nil)

// NewLocal returns an engine backed by ws.
func NewLocal(ws *store.Workspace) *Local {
	return &Local{ws: ws}
}

func (l *Local) ListCollections(ctx context.Context) ([]store.CollectionInfo, error) {
	return l.ws.ListCollections(ctx)
}

func (l *Local) CollectionExists(ctx context.Context, name string) (bool, error) {
	return l.ws.Exists(ctx, name)
}

func (l *Local) DeleteCollection(ctx context.Context, name string) error {
	return l.ws.Delete(ctx, name)
}

func (l *Local) WriteCollection(ctx context.Context, c *feature.Collection) error {
	return l.ws.Write(ctx, c)
}

func (l *Local) ReadCollection(ctx context.Context, name string) (*feature.Collection, error) {
	return l.ws.Read(ctx, name)
}

func (l *Local) CopyCollection(ctx context.Context, src, dst string, kind feature.Kind) error {
	return l.ws.Copy(ctx, src, dst, kind)
}

func (l *Local) Extent(ctx context.Context, name string) (orb.Bound, bool, error) {
	return l.ws.Extent(ctx, name)
}

func (l *Local) Fields(ctx context.Context, name string) ([]feature.Field, error) {
	return l.ws.Fields(ctx, name)
}

func (l *Local) AddField(ctx context.Context, name string, field feature.Field) error {
	return l.ws.AddField(ctx, name, field)
}

func (l *Local) RenameField(ctx context.Context, name, from, to string) error {
	return l.ws.RenameField(ctx, name, from, to)
}

func (l *Local) DeleteFields(ctx context.Context, name string, fields ...string) error {
	return l.ws.DeleteFields(ctx, name, fields...)
}

func (l *Local) CalculateField(ctx context.Context, name, field string, sum expr.WeightedSum) error {
	return l.ws.Calculate(ctx, name, field, sum)
}

func (l *Local) Count(ctx context.Context, name string) (int64, error) {
	return l.ws.Count(ctx, name)
}

func (l *Local) CountWhere(ctx context.Context, name string, where expr.Predicate) (int64, error) {
	return l.ws.CountWhere(ctx, name, where)
}

func (l *Local) DeleteRows(ctx context.Context, name string, where expr.Predicate) (int64, error) {
	return l.ws.DeleteWhere(ctx, name, where)
}

// GenerateTessellation writes a hexagon grid covering extent as polygon collection name and
// returns the number of cells.
func (l *Local) GenerateTessellation(ctx context.Context, name string, extent orb.Bound, areaKM2 float64) (int, error) {
	cells, err := geospatial.Hexagons(extent, areaKM2)
	if err != nil {
		return 0, eris.Wrap(err, "engine: tessellate")
	}

	grid := &feature.Collection{
		Name:     name,
		Kind:     feature.KindGrid,
		GeomType: feature.Polygon,
		Fields:   []feature.Field{{Name: feature.GridIDField, Type: feature.String, Required: true}},
		Features: make([]feature.Feature, len(cells)),
	}
	for i, c := range cells {
		grid.Features[i] = feature.Feature{
			ID:       int64(i + 1),
			Geometry: c.Polygon,
			Attrs:    map[string]any{feature.GridIDField: c.ID},
		}
	}
	if err := l.ws.Write(ctx, grid); err != nil {
		return 0, err
	}
	zap.L().Debug("engine: tessellation written",
		zap.String("collection", name),
		zap.Int("cells", len(cells)),
		zap.Float64("cell_area_km2", areaKM2),
	)
	return len(cells), nil
}

// SpatialJoin writes out as a one-to-one join of target polygons with join points. Each output
// feature keeps the target's fields and gains TARGET_FID, Join_Count and the attributes of the
// first point it contains. Join fields that clash with target fields get a "_1" suffix.
func (l *Local) SpatialJoin(ctx context.Context, target, join, out string) error {
	tc, err := l.ws.Read(ctx, target)
	if err != nil {
		return err
	}
	jc, err := l.ws.Read(ctx, join)
	if err != nil {
		return err
	}
	if jc.GeomType != feature.Point {
		return eris.Errorf("engine: join %s is %s, want points", join, jc.GeomType)
	}

	cells := make([]orb.Geometry, len(tc.Features))
	for i, f := range tc.Features {
		cells[i] = f.Geometry
	}
	points := make([]orb.Point, 0, len(jc.Features))
	for _, f := range jc.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			return eris.Errorf("engine: feature %d of %s is not a point", f.ID, join)
		}
		points = append(points, pt)
	}

	owner, err := geospatial.Assign(cells, points)
	if err != nil {
		return eris.Wrapf(err, "engine: join %s to %s", join, target)
	}
	counts := make([]int, len(cells))
	first := make([]int, len(cells))
	for i := range first {
		first[i] = -1
	}
	for pi, ci := range owner {
		if ci < 0 {
			continue
		}
		counts[ci]++
		if first[ci] < 0 {
			first[ci] = pi
		}
	}

	result := &feature.Collection{
		Name:     out,
		Kind:     feature.KindScratch,
		GeomType: tc.GeomType,
		Fields: append(slices.Clone(tc.Fields),
			feature.Field{Name: TargetFIDField, Type: feature.Int},
			feature.Field{Name: JoinCountField, Type: feature.Int},
		),
		Features: make([]feature.Feature, len(tc.Features)),
	}
	rename := make(map[string]string, len(jc.Fields))
	for _, f := range jc.Fields {
		name := f.Name
		if _, clash := result.Field(name); clash {
			name += "_1"
		}
		rename[f.Name] = name
		result.AddField(feature.Field{Name: name, Type: f.Type})
	}

	for i, f := range tc.Features {
		attrs := make(map[string]any, len(f.Attrs)+len(rename)+2)
		for k, v := range f.Attrs {
			attrs[k] = v
		}
		attrs[TargetFIDField] = f.ID
		attrs[JoinCountField] = counts[i]
		if pi := first[i]; pi >= 0 {
			for k, v := range jc.Features[pi].Attrs {
				if name, ok := rename[k]; ok {
					attrs[name] = v
				}
			}
		}
		result.Features[i] = feature.Feature{ID: f.ID, Geometry: f.Geometry, Attrs: attrs}
	}
	return l.ws.Write(ctx, result)
}

// SelectByLocation returns the features of name that intersect any of regions.
func (l *Local) SelectByLocation(ctx context.Context, name string, regions ...orb.Geometry) (Selection, error) {
	c, err := l.ws.Read(ctx, name)
	if err != nil {
		return Selection{}, err
	}

	sel := Selection{Collection: name}
	for _, f := range c.Features {
		fb := f.Geometry.Bound()
		for _, r := range regions {
			if r == nil || !fb.Intersects(r.Bound()) {
				continue
			}
			if geospatial.Intersects(f.Geometry, r) {
				sel.IDs = append(sel.IDs, f.ID)
				break
			}
		}
	}
	return sel, nil
}

// HotSpot runs Gi* on field of in, restricted to sel when it is non-nil, and writes one result
// feature per analysed input feature to out.
func (l *Local) HotSpot(ctx context.Context, in string, sel *Selection, out, field string, opts hotspot.Options) (hotspot.Summary, error) {
	if sel != nil && sel.Collection != in {
		return hotspot.Summary{}, eris.Errorf("engine: selection is on %s, not %s", sel.Collection, in)
	}
	c, err := l.ws.Read(ctx, in)
	if err != nil {
		return hotspot.Summary{}, err
	}
	if _, ok := c.Field(field); !ok {
		return hotspot.Summary{}, eris.Errorf("engine: %s has no field %s", in, field)
	}

	features := c.Features
	if sel != nil {
		keep := make(map[int64]bool, len(sel.IDs))
		for _, id := range sel.IDs {
			keep[id] = true
		}
		features = make([]feature.Feature, 0, len(sel.IDs))
		for _, f := range c.Features {
			if keep[f.ID] {
				features = append(features, f)
			}
		}
	}

	locations := make([]orb.Point, len(features))
	values := make([]float64, len(features))
	for i, f := range features {
		locations[i], _ = planar.CentroidArea(f.Geometry)
		v, ok := feature.AsFloat(f.Attrs[field])
		if !ok {
			return hotspot.Summary{}, eris.Errorf("engine: feature %d of %s has no numeric %s", f.ID, in, field)
		}
		values[i] = v
	}

	results, summary, err := hotspot.GiStar(locations, values, opts)
	if err != nil {
		return hotspot.Summary{}, err
	}

	result := &feature.Collection{
		Name:     out,
		Kind:     feature.KindResult,
		GeomType: c.GeomType,
		Fields: []feature.Field{
			{Name: SourceIDField, Type: feature.Int},
			{Name: field, Type: feature.Float},
			{Name: ZScoreField, Type: feature.Float},
			{Name: PValueField, Type: feature.Float},
			{Name: NeighborsField, Type: feature.Int},
			{Name: BinField, Type: feature.Int},
		},
		Features: make([]feature.Feature, len(features)),
	}
	_, hasGridID := c.Field(feature.GridIDField)
	if hasGridID {
		result.Fields = append([]feature.Field{{Name: feature.GridIDField, Type: feature.String}}, result.Fields...)
	}
	for i, f := range features {
		r := results[i]
		attrs := map[string]any{
			SourceIDField:  f.ID,
			field:          values[i],
			ZScoreField:    r.ZScore,
			PValueField:    r.PValue,
			NeighborsField: r.Neighbors,
			BinField:       r.Bin,
		}
		if hasGridID {
			attrs[feature.GridIDField] = f.Attrs[feature.GridIDField]
		}
		result.Features[i] = feature.Feature{ID: int64(i + 1), Geometry: f.Geometry, Attrs: attrs}
	}
	if err := l.ws.Write(ctx, result); err != nil {
		return hotspot.Summary{}, err
	}
	return summary, nil
}
