package fetcher

import (
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"

	"github.com/sells-group/hotspot-cli/internal/feature"
)

// Default coordinate column names for point tables.
const (
	DefaultLngColumn = "lng"
	DefaultLatColumn = "lat"
)

// PointOptions names the coordinate columns of a point table.
type PointOptions struct {
	LngColumn string
	LatColumn string
}

// PointTable is the result of converting tabular rows to point features.
type PointTable struct {
	Collection *feature.Collection
	Skipped    int // rows with missing or out-of-range coordinates
}

// RowsToPoints converts a header row plus data rows to a point collection in EPSG:4326.
// Coordinate columns are matched case-insensitively; every column is kept as a string attribute.
func RowsToPoints(name string, rows [][]string, opts PointOptions) (*PointTable, error) {
	if opts.LngColumn == "" {
		opts.LngColumn = DefaultLngColumn
	}
	if opts.LatColumn == "" {
		opts.LatColumn = DefaultLatColumn
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("points: %s has no header row", name)
	}

	header := rows[0]
	lngIdx, latIdx := -1, -1
	coll := &feature.Collection{Name: name, Kind: feature.KindSource, GeomType: feature.Point}
	seen := make(map[string]bool, len(header))
	cols := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		switch {
		case strings.EqualFold(h, opts.LngColumn):
			lngIdx = i
		case strings.EqualFold(h, opts.LatColumn):
			latIdx = i
		}
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		cols[i] = h
		coll.AddField(feature.Field{Name: h, Type: feature.String})
	}
	if lngIdx < 0 || latIdx < 0 {
		return nil, eris.Errorf("points: %s lacks %q/%q columns", name, opts.LngColumn, opts.LatColumn)
	}

	table := &PointTable{Collection: coll}
	for _, row := range rows[1:] {
		lng, ok := parseCoord(row, lngIdx, 180)
		if !ok {
			table.Skipped++
			continue
		}
		lat, ok := parseCoord(row, latIdx, 90)
		if !ok {
			table.Skipped++
			continue
		}

		attrs := make(map[string]any, len(cols))
		for i, col := range cols {
			if col == "" {
				continue
			}
			if i < len(row) {
				attrs[col] = row[i]
			} else {
				attrs[col] = ""
			}
		}
		coll.Features = append(coll.Features, feature.Feature{
			ID:       int64(len(coll.Features) + 1),
			Geometry: orb.Point{lng, lat},
			Attrs:    attrs,
		})
	}
	return table, nil
}

func parseCoord(row []string, idx int, limit float64) (float64, bool) {
	if idx >= len(row) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > limit {
		return 0, false
	}
	return v, true
}
