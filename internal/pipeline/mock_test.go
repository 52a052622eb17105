package pipeline

import (
	"context"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/mock"

	"github.com/sells-group/hotspot-cli/internal/engine"
	"github.com/sells-group/hotspot-cli/internal/expr"
	"github.com/sells-group/hotspot-cli/internal/feature"
	"github.com/sells-group/hotspot-cli/internal/hotspot"
	"github.com/sells-group/hotspot-cli/internal/store"
)

// --- Engine Mock ---

type mockEngine struct {
	mock.Mock
}

var _ engine.Engine = (*mockEngine)(nil)

func (m *mockEngine) ListCollections(ctx context.Context) ([]store.CollectionInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.CollectionInfo), args.Error(1)
}

func (m *mockEngine) CollectionExists(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *mockEngine) DeleteCollection(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *mockEngine) WriteCollection(ctx context.Context, c *feature.Collection) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockEngine) ReadCollection(ctx context.Context, name string) (*feature.Collection, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*feature.Collection), args.Error(1)
}

func (m *mockEngine) CopyCollection(ctx context.Context, src, dst string, kind feature.Kind) error {
	return m.Called(ctx, src, dst, kind).Error(0)
}

func (m *mockEngine) Extent(ctx context.Context, name string) (orb.Bound, bool, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(orb.Bound), args.Bool(1), args.Error(2)
}

func (m *mockEngine) GenerateTessellation(ctx context.Context, name string, extent orb.Bound, areaKM2 float64) (int, error) {
	args := m.Called(ctx, name, extent, areaKM2)
	return args.Int(0), args.Error(1)
}

func (m *mockEngine) SpatialJoin(ctx context.Context, target, join, out string) error {
	return m.Called(ctx, target, join, out).Error(0)
}

func (m *mockEngine) SelectByLocation(ctx context.Context, name string, regions ...orb.Geometry) (engine.Selection, error) {
	args := m.Called(ctx, name, regions)
	return args.Get(0).(engine.Selection), args.Error(1)
}

func (m *mockEngine) Fields(ctx context.Context, name string) ([]feature.Field, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]feature.Field), args.Error(1)
}

func (m *mockEngine) AddField(ctx context.Context, name string, field feature.Field) error {
	return m.Called(ctx, name, field).Error(0)
}

func (m *mockEngine) RenameField(ctx context.Context, name, from, to string) error {
	return m.Called(ctx, name, from, to).Error(0)
}

func (m *mockEngine) DeleteFields(ctx context.Context, name string, fields ...string) error {
	return m.Called(ctx, name, fields).Error(0)
}

func (m *mockEngine) CalculateField(ctx context.Context, name, field string, sum expr.WeightedSum) error {
	return m.Called(ctx, name, field, sum).Error(0)
}

func (m *mockEngine) Count(ctx context.Context, name string) (int64, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockEngine) CountWhere(ctx context.Context, name string, where expr.Predicate) (int64, error) {
	args := m.Called(ctx, name, where)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockEngine) DeleteRows(ctx context.Context, name string, where expr.Predicate) (int64, error) {
	args := m.Called(ctx, name, where)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockEngine) HotSpot(ctx context.Context, in string, sel *engine.Selection, out, field string, opts hotspot.Options) (hotspot.Summary, error) {
	args := m.Called(ctx, in, sel, out, field, opts)
	return args.Get(0).(hotspot.Summary), args.Error(1)
}
