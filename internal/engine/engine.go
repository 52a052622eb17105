// Package engine defines the geoprocessing capabilities the pipeline relies on and a pure-Go
// implementation of them over a workspace.
package engine

import (
	"context"

	"github.com/paulmach/orb"

	"github.com/sells-group/hotspot-cli/internal/expr"
	"github.com/sells-group/hotspot-cli/internal/feature"
	"github.com/sells-group/hotspot-cli/internal/hotspot"
	"github.com/sells-group/hotspot-cli/internal/store"
)

// Fields added to a spatial join result.
const (
	JoinCountField = "Join_Count"
	TargetFIDField = "TARGET_FID"
)

// Fields written to every hot-spot result.
const (
	SourceIDField  = "SOURCE_ID"
	ZScoreField    = "GiZScore"
	PValueField    = "GiPValue"
	NeighborsField = "NNeighbors"
	BinField       = "Gi_Bin"
)

// Selection is a set of feature ids of one collection. A nil *Selection means every feature.
type Selection struct {
	Collection string
	IDs        []int64
}

// Len returns the number of selected features.
func (s Selection) Len() int { return len(s.IDs) }

// Engine is the geoprocessing backend of the pipeline.
type Engine interface {
	// Collections
	ListCollections(ctx context.Context) ([]store.CollectionInfo, error)
	CollectionExists(ctx context.Context, name string) (bool, error)
	DeleteCollection(ctx context.Context, name string) error
	WriteCollection(ctx context.Context, c *feature.Collection) error
	ReadCollection(ctx context.Context, name string) (*feature.Collection, error)
	CopyCollection(ctx context.Context, src, dst string, kind feature.Kind) error
	Extent(ctx context.Context, name string) (orb.Bound, bool, error)

	// Geometry
	GenerateTessellation(ctx context.Context, name string, extent orb.Bound, areaKM2 float64) (int, error)
	SpatialJoin(ctx context.Context, target, join, out string) error
	SelectByLocation(ctx context.Context, name string, regions ...orb.Geometry) (Selection, error)

	// Attributes
	Fields(ctx context.Context, name string) ([]feature.Field, error)
	AddField(ctx context.Context, name string, field feature.Field) error
	RenameField(ctx context.Context, name, from, to string) error
	DeleteFields(ctx context.Context, name string, fields ...string) error
	CalculateField(ctx context.Context, name, field string, sum expr.WeightedSum) error
	Count(ctx context.Context, name string) (int64, error)
	CountWhere(ctx context.Context, name string, where expr.Predicate) (int64, error)
	DeleteRows(ctx context.Context, name string, where expr.Predicate) (int64, error)

	// Statistics
	HotSpot(ctx context.Context, in string, sel *Selection, out, field string, opts hotspot.Options) (hotspot.Summary, error)
}
