package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"

	"github.com/sells-group/hotspot-cli/internal/expr"
	"github.com/sells-group/hotspot-cli/internal/feature"
)

// CollectionInfo describes a stored collection without its features.
type CollectionInfo struct {
	Name      string               `json:"name"`
	Kind      feature.Kind         `json:"kind"`
	GeomType  feature.GeometryType `json:"geom_type"`
	Fields    []feature.Field      `json:"fields"`
	Count     int64                `json:"count"`
	CreatedAt time.Time            `json:"created_at"`
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ListCollections returns every collection ordered by name.
func (w *Workspace) ListCollections(ctx context.Context) ([]CollectionInfo, error) {
	rows, err := w.db.QueryContext(ctx, `
		SELECT c.name, c.kind, c.geom_type, c.fields, c.created_at,
			(SELECT COUNT(*) FROM features f WHERE f.collection = c.name)
		FROM collections c
		ORDER BY c.name`)
	if err != nil {
		return nil, eris.Wrap(err, "workspace: list collections")
	}
	defer rows.Close()

	var out []CollectionInfo
	for rows.Next() {
		var (
			info   CollectionInfo
			fields string
		)
		if err := rows.Scan(&info.Name, &info.Kind, &info.GeomType, &fields, &info.CreatedAt, &info.Count); err != nil {
			return nil, eris.Wrap(err, "workspace: scan collection")
		}
		if err := json.Unmarshal([]byte(fields), &info.Fields); err != nil {
			return nil, eris.Wrapf(err, "workspace: decode fields of %s", info.Name)
		}
		out = append(out, info)
	}
	return out, eris.Wrap(rows.Err(), "workspace: list collections iterate")
}

// Info returns the schema and feature count of one collection.
func (w *Workspace) Info(ctx context.Context, name string) (*CollectionInfo, error) {
	return loadInfo(ctx, w.db, name)
}

func loadInfo(ctx context.Context, q queryer, name string) (*CollectionInfo, error) {
	var (
		info   CollectionInfo
		fields string
	)
	err := q.QueryRowContext(ctx, `
		SELECT c.name, c.kind, c.geom_type, c.fields, c.created_at,
			(SELECT COUNT(*) FROM features f WHERE f.collection = c.name)
		FROM collections c WHERE c.name = ?`, name,
	).Scan(&info.Name, &info.Kind, &info.GeomType, &fields, &info.CreatedAt, &info.Count)
	if eris.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrCollectionNotFound, name)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "workspace: load collection %s", name)
	}
	if err := json.Unmarshal([]byte(fields), &info.Fields); err != nil {
		return nil, eris.Wrapf(err, "workspace: decode fields of %s", name)
	}
	return &info, nil
}

// Exists reports whether a collection with the given name is stored.
func (w *Workspace) Exists(ctx context.Context, name string) (bool, error) {
	var n int
	err := w.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM collections WHERE name = ?`, name).Scan(&n)
	if err != nil {
		return false, eris.Wrapf(err, "workspace: check %s", name)
	}
	return n > 0, nil
}

// Delete removes a collection and its features.
func (w *Workspace) Delete(ctx context.Context, name string) error {
	res, err := w.db.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name)
	if err != nil {
		return eris.Wrapf(err, "workspace: delete %s", name)
	}
	return checkRowsAffected(res, ErrCollectionNotFound, name)
}

// Write stores c, replacing any collection with the same name. Features with a zero ID are
// numbered by position.
func (w *Workspace) Write(ctx context.Context, c *feature.Collection) error {
	if c.Name == "" {
		return eris.New("workspace: collection name is required")
	}
	for _, f := range c.Fields {
		if err := expr.ValidateField(f.Name); err != nil {
			return eris.Wrapf(err, "workspace: collection %s", c.Name)
		}
	}
	kind := c.Kind
	if kind == "" {
		kind = feature.KindSource
	}
	fields, err := json.Marshal(nonNilFields(c.Fields))
	if err != nil {
		return eris.Wrap(err, "workspace: encode fields")
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "workspace: begin write")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, c.Name); err != nil {
		return eris.Wrapf(err, "workspace: clear %s", c.Name)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO collections (name, kind, geom_type, srid, fields, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.Name, string(kind), string(c.GeomType), feature.SRID, string(fields), time.Now().UTC(),
	); err != nil {
		return eris.Wrapf(err, "workspace: insert collection %s", c.Name)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO features (collection, fid, min_x, min_y, max_x, max_y, geom, attrs) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "workspace: prepare feature insert")
	}
	defer stmt.Close()

	for i, f := range c.Features {
		fid := f.ID
		if fid == 0 {
			fid = int64(i + 1)
		}
		if f.Geometry == nil {
			return eris.Errorf("workspace: feature %d of %s has no geometry", fid, c.Name)
		}
		wkb, err := feature.EncodeWKB(f.Geometry)
		if err != nil {
			return eris.Wrapf(err, "workspace: feature %d of %s", fid, c.Name)
		}
		attrs := f.Attrs
		if attrs == nil {
			attrs = map[string]any{}
		}
		attrJSON, err := json.Marshal(attrs)
		if err != nil {
			return eris.Wrapf(err, "workspace: encode attrs of feature %d", fid)
		}
		b := f.Geometry.Bound()
		if _, err := stmt.ExecContext(ctx, c.Name, fid, b.Min[0], b.Min[1], b.Max[0], b.Max[1], wkb, string(attrJSON)); err != nil {
			return eris.Wrapf(err, "workspace: insert feature %d of %s", fid, c.Name)
		}
	}

	return eris.Wrap(tx.Commit(), "workspace: commit write")
}

// Read loads a collection with all of its features, ordered by feature id.
func (w *Workspace) Read(ctx context.Context, name string) (*feature.Collection, error) {
	info, err := loadInfo(ctx, w.db, name)
	if err != nil {
		return nil, err
	}

	rows, err := w.db.QueryContext(ctx,
		`SELECT fid, geom, attrs FROM features WHERE collection = ? ORDER BY fid`, name)
	if err != nil {
		return nil, eris.Wrapf(err, "workspace: read %s", name)
	}
	defer rows.Close()

	c := &feature.Collection{
		Name:     info.Name,
		Kind:     info.Kind,
		GeomType: info.GeomType,
		Fields:   info.Fields,
		Features: make([]feature.Feature, 0, info.Count),
	}
	for rows.Next() {
		var (
			f     feature.Feature
			wkb   []byte
			attrs string
		)
		if err := rows.Scan(&f.ID, &wkb, &attrs); err != nil {
			return nil, eris.Wrapf(err, "workspace: scan feature of %s", name)
		}
		if f.Geometry, err = feature.DecodeWKB(wkb); err != nil {
			return nil, eris.Wrapf(err, "workspace: feature %d of %s", f.ID, name)
		}
		if err := json.Unmarshal([]byte(attrs), &f.Attrs); err != nil {
			return nil, eris.Wrapf(err, "workspace: decode attrs of feature %d", f.ID)
		}
		c.Features = append(c.Features, f)
	}
	return c, eris.Wrapf(rows.Err(), "workspace: read %s iterate", name)
}

// Copy replaces dst with a copy of src's schema and features under the given kind.
func (w *Workspace) Copy(ctx context.Context, src, dst string, kind feature.Kind) error {
	if src == dst {
		return nil
	}
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "workspace: begin copy")
	}
	defer tx.Rollback() //nolint:errcheck

	info, err := loadInfo(ctx, tx, src)
	if err != nil {
		return err
	}
	fields, err := json.Marshal(nonNilFields(info.Fields))
	if err != nil {
		return eris.Wrap(err, "workspace: encode fields")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, dst); err != nil {
		return eris.Wrapf(err, "workspace: clear %s", dst)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO collections (name, kind, geom_type, srid, fields, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		dst, string(kind), string(info.GeomType), feature.SRID, string(fields), time.Now().UTC(),
	); err != nil {
		return eris.Wrapf(err, "workspace: insert collection %s", dst)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO features (collection, fid, min_x, min_y, max_x, max_y, geom, attrs)
		SELECT ?, fid, min_x, min_y, max_x, max_y, geom, attrs FROM features WHERE collection = ?`,
		dst, src,
	); err != nil {
		return eris.Wrapf(err, "workspace: copy %s to %s", src, dst)
	}
	return eris.Wrap(tx.Commit(), "workspace: commit copy")
}

// Extent returns the bounding box of a collection. ok is false when it has no features.
func (w *Workspace) Extent(ctx context.Context, name string) (orb.Bound, bool, error) {
	if _, err := loadInfo(ctx, w.db, name); err != nil {
		return orb.Bound{}, false, err
	}
	var minX, minY, maxX, maxY sql.NullFloat64
	err := w.db.QueryRowContext(ctx,
		`SELECT MIN(min_x), MIN(min_y), MAX(max_x), MAX(max_y) FROM features WHERE collection = ?`, name,
	).Scan(&minX, &minY, &maxX, &maxY)
	if err != nil {
		return orb.Bound{}, false, eris.Wrapf(err, "workspace: extent of %s", name)
	}
	if !minX.Valid {
		return orb.Bound{}, false, nil
	}
	return orb.Bound{
		Min: orb.Point{minX.Float64, minY.Float64},
		Max: orb.Point{maxX.Float64, maxY.Float64},
	}, true, nil
}

func nonNilFields(fields []feature.Field) []feature.Field {
	if fields == nil {
		return []feature.Field{}
	}
	return fields
}
