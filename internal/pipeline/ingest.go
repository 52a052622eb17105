package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/hotspot-cli/internal/expr"
	"github.com/sells-group/hotspot-cli/internal/feature"
	"github.com/sells-group/hotspot-cli/internal/fetcher"
)

// SourceKind is the format family of a source file.
type SourceKind string

const (
	SourceDelimited   SourceKind = "delimited"
	SourceSpreadsheet SourceKind = "spreadsheet"
	SourceJSON        SourceKind = "json"
)

// IngestedFile describes one successfully imported source.
type IngestedFile struct {
	Path       string     `json:"path"`
	Kind       SourceKind `json:"kind"`
	Collection string     `json:"collection"`
	Features   int        `json:"features"`
	Skipped    int        `json:"skipped_rows,omitempty"`
}

// FailedFile describes a source that could not be imported.
type FailedFile struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// IngestResult lists the outcome for every supported file of a source directory.
type IngestResult struct {
	Processed []IngestedFile `json:"processed"`
	Failed    []FailedFile   `json:"failed,omitempty"`
}

// SourceKindOf classifies a path by extension. ok is false for unsupported files.
func SourceKindOf(path string) (SourceKind, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt", ".tsv":
		return SourceDelimited, true
	case ".xlsx":
		return SourceSpreadsheet, true
	case ".json", ".geojson":
		return SourceJSON, true
	default:
		return "", false
	}
}

// Ingest imports every supported file in dir as a collection named after the file stem. A file
// that fails is logged and skipped. ErrNoCollections is returned when nothing was imported.
func (p *Pipeline) Ingest(ctx context.Context, dir string) (*IngestResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read source dir %s", dir)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	result := &IngestResult{}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return result, eris.Wrap(err, "pipeline: ingest cancelled")
		}
		path := filepath.Join(dir, name)
		if _, ok := SourceKindOf(path); !ok {
			zap.L().Debug("pipeline: ignoring unsupported file", zap.String("path", path))
			continue
		}

		file, err := p.IngestFile(ctx, path, "")
		if err != nil {
			zap.L().Warn("pipeline: skipping source file", zap.String("path", path), zap.Error(err))
			result.Failed = append(result.Failed, FailedFile{Path: path, Error: err.Error()})
			continue
		}
		result.Processed = append(result.Processed, *file)
	}

	if len(result.Processed) == 0 {
		return result, eris.Wrapf(ErrNoCollections, "nothing imported from %s", dir)
	}
	return result, nil
}

// IngestFile imports one source file. An empty name means the file stem.
func (p *Pipeline) IngestFile(ctx context.Context, path, name string) (*IngestedFile, error) {
	kind, ok := SourceKindOf(path)
	if !ok {
		return nil, eris.Errorf("pipeline: unsupported source %s", path)
	}
	if name == "" {
		name = feature.StemName(path)
	}
	// The collection name seeds the grid count field, so it must be a legal field name.
	if err := expr.ValidateField(feature.CountFieldName(name)); err != nil {
		return nil, eris.Wrapf(err, "pipeline: collection name %q", name)
	}

	var (
		table *fetcher.PointTable
		coll  *feature.Collection
		err   error
	)
	switch kind {
	case SourceDelimited:
		table, err = p.readDelimited(ctx, path, name, p.cfg.Ingest.Encoding)
	case SourceSpreadsheet:
		table, err = p.readSpreadsheet(ctx, path, name)
	case SourceJSON:
		coll, err = p.readJSON(path, name)
	}
	if err != nil {
		return nil, err
	}

	file := &IngestedFile{Path: path, Kind: kind, Collection: name}
	if table != nil {
		coll = table.Collection
		file.Skipped = table.Skipped
	}
	exists, err := p.eng.CollectionExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if exists {
		zap.L().Info("pipeline: replacing existing collection", zap.String("collection", name))
	}
	if err := p.eng.WriteCollection(ctx, coll); err != nil {
		return nil, eris.Wrapf(err, "pipeline: store %s", name)
	}
	file.Features = len(coll.Features)

	zap.L().Info("pipeline: processed source file",
		zap.String("path", path),
		zap.String("collection", name),
		zap.Int("features", file.Features),
		zap.Int("skipped_rows", file.Skipped),
	)
	return file, nil
}

func (p *Pipeline) readDelimited(ctx context.Context, path, name, encoding string) (*fetcher.PointTable, error) {
	opts := fetcher.CSVOptions{Encoding: encoding, TrimSpace: true}
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		opts.Delimiter = '\t'
	}
	rows, err := fetcher.ReadCSVFile(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	return fetcher.RowsToPoints(name, rows, fetcher.PointOptions{
		LngColumn: p.cfg.Ingest.LngColumn,
		LatColumn: p.cfg.Ingest.LatColumn,
	})
}

// readSpreadsheet bridges the workbook through a scratch CSV file, removed on every path.
func (p *Pipeline) readSpreadsheet(ctx context.Context, path, name string) (*fetcher.PointTable, error) {
	scratch, err := os.CreateTemp(p.cfg.Workspace.ScratchDir, name+"-*.csv")
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create scratch csv")
	}
	scratchPath := scratch.Name()
	defer os.Remove(scratchPath) //nolint:errcheck
	if err := scratch.Close(); err != nil {
		return nil, eris.Wrap(err, "pipeline: close scratch csv")
	}

	if err := fetcher.XLSXToCSV(path, scratchPath); err != nil {
		return nil, err
	}
	return p.readDelimited(ctx, scratchPath, name, "")
}

// readJSON re-encodes a GeoJSON document through a scratch shapefile, removed on every path.
func (p *Pipeline) readJSON(path, name string) (*feature.Collection, error) {
	fc, err := fetcher.ReadGeoJSON(path)
	if err != nil {
		return nil, err
	}
	coll, err := fetcher.FromGeoJSON(name, fc)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(p.cfg.Workspace.ScratchDir, "ingest-")
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create scratch dir")
	}
	shpPath := filepath.Join(dir, "source.shp")
	defer func() {
		if err := fetcher.RemoveShapefile(shpPath); err != nil {
			zap.L().Warn("pipeline: scratch cleanup", zap.String("path", shpPath), zap.Error(err))
		}
		os.Remove(dir) //nolint:errcheck
	}()

	if _, err := fetcher.WriteShapefile(shpPath, coll); err != nil {
		return nil, err
	}
	back, err := fetcher.ReadShapefile(shpPath)
	if err != nil {
		return nil, err
	}
	back.Name = name
	back.Kind = feature.KindSource
	return back, nil
}
