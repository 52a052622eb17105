package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/hotspot-cli/internal/expr"
	"github.com/sells-group/hotspot-cli/internal/feature"
)

// Fields returns the schema of a collection.
func (w *Workspace) Fields(ctx context.Context, name string) ([]feature.Field, error) {
	info, err := loadInfo(ctx, w.db, name)
	if err != nil {
		return nil, err
	}
	return info.Fields, nil
}

// Count returns the number of features in a collection.
func (w *Workspace) Count(ctx context.Context, name string) (int64, error) {
	info, err := loadInfo(ctx, w.db, name)
	if err != nil {
		return 0, err
	}
	return info.Count, nil
}

// CountWhere returns the number of features matching where. An empty predicate is an error.
func (w *Workspace) CountWhere(ctx context.Context, name string, where expr.Predicate) (int64, error) {
	cond, args, err := where.SQL("attrs")
	if err != nil {
		return 0, eris.Wrapf(err, "workspace: count %s", name)
	}
	var n int64
	err = w.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM features WHERE collection = ? AND `+cond,
		append([]any{name}, args...)...,
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrapf(err, "workspace: count %s where %s", name, where)
	}
	return n, nil
}

// DeleteWhere removes features matching where and returns how many were removed.
// An empty predicate is an error.
func (w *Workspace) DeleteWhere(ctx context.Context, name string, where expr.Predicate) (int64, error) {
	cond, args, err := where.SQL("attrs")
	if err != nil {
		return 0, eris.Wrapf(err, "workspace: delete rows of %s", name)
	}
	res, err := w.db.ExecContext(ctx,
		`DELETE FROM features WHERE collection = ? AND `+cond,
		append([]any{name}, args...)...,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "workspace: delete rows of %s where %s", name, where)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "rows affected")
	}
	return n, nil
}

// AddField adds a field to a collection's schema. Adding an existing field is a no-op.
func (w *Workspace) AddField(ctx context.Context, name string, field feature.Field) error {
	if err := expr.ValidateField(field.Name); err != nil {
		return err
	}
	info, err := loadInfo(ctx, w.db, name)
	if err != nil {
		return err
	}
	if _, ok := fieldIndex(info.Fields, field.Name); ok {
		return nil
	}
	return w.saveFields(ctx, name, append(info.Fields, field))
}

// RenameField renames a field in the schema and in every feature's attributes.
func (w *Workspace) RenameField(ctx context.Context, name, from, to string) error {
	if err := expr.ValidateField(to); err != nil {
		return err
	}
	info, err := loadInfo(ctx, w.db, name)
	if err != nil {
		return err
	}
	i, ok := fieldIndex(info.Fields, from)
	if !ok {
		return eris.Errorf("workspace: field %s not found in %s", from, name)
	}
	if _, clash := fieldIndex(info.Fields, to); clash {
		return eris.Errorf("workspace: field %s already exists in %s", to, name)
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "workspace: begin rename")
	}
	defer tx.Rollback() //nolint:errcheck

	fromPath, toPath := jsonKey(from), jsonKey(to)
	if _, err := tx.ExecContext(ctx,
		`UPDATE features SET attrs = json_remove(json_set(attrs, `+toPath+`, json_extract(attrs, `+fromPath+`)), `+fromPath+`)
		WHERE collection = ?`, name,
	); err != nil {
		return eris.Wrapf(err, "workspace: rename %s to %s in %s", from, to, name)
	}

	info.Fields[i].Name = to
	if err := saveFieldsTx(ctx, tx, name, info.Fields); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "workspace: commit rename")
}

// DeleteFields drops fields from the schema and every feature. Required fields cannot be dropped;
// unknown names are ignored.
func (w *Workspace) DeleteFields(ctx context.Context, name string, fields ...string) error {
	info, err := loadInfo(ctx, w.db, name)
	if err != nil {
		return err
	}

	drop := make(map[string]bool, len(fields))
	for _, f := range fields {
		i, ok := fieldIndex(info.Fields, f)
		if !ok {
			continue
		}
		if info.Fields[i].Required {
			return eris.Errorf("workspace: field %s of %s is required", f, name)
		}
		drop[f] = true
	}
	if len(drop) == 0 {
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "workspace: begin delete fields")
	}
	defer tx.Rollback() //nolint:errcheck

	kept := make([]feature.Field, 0, len(info.Fields))
	for _, f := range info.Fields {
		if drop[f.Name] {
			if _, err := tx.ExecContext(ctx,
				`UPDATE features SET attrs = json_remove(attrs, `+jsonKey(f.Name)+`) WHERE collection = ?`, name,
			); err != nil {
				return eris.Wrapf(err, "workspace: drop field %s of %s", f.Name, name)
			}
			continue
		}
		kept = append(kept, f)
	}
	if err := saveFieldsTx(ctx, tx, name, kept); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "workspace: commit delete fields")
}

// Calculate sets field on every feature to the value of sum. The field must already exist.
func (w *Workspace) Calculate(ctx context.Context, name, field string, sum expr.WeightedSum) error {
	info, err := loadInfo(ctx, w.db, name)
	if err != nil {
		return err
	}
	if _, ok := fieldIndex(info.Fields, field); !ok {
		return eris.Errorf("workspace: field %s not found in %s", field, name)
	}
	value, err := sum.SQL("attrs")
	if err != nil {
		return eris.Wrapf(err, "workspace: calculate %s", field)
	}
	if _, err := w.db.ExecContext(ctx,
		`UPDATE features SET attrs = json_set(attrs, `+jsonKey(field)+`, `+value+`) WHERE collection = ?`, name,
	); err != nil {
		return eris.Wrapf(err, "workspace: calculate %s of %s", field, name)
	}
	return nil
}

func (w *Workspace) saveFields(ctx context.Context, name string, fields []feature.Field) error {
	data, err := json.Marshal(nonNilFields(fields))
	if err != nil {
		return eris.Wrap(err, "workspace: encode fields")
	}
	res, err := w.db.ExecContext(ctx, `UPDATE collections SET fields = ? WHERE name = ?`, string(data), name)
	if err != nil {
		return eris.Wrapf(err, "workspace: update fields of %s", name)
	}
	return checkRowsAffected(res, ErrCollectionNotFound, name)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveFieldsTx(ctx context.Context, tx execer, name string, fields []feature.Field) error {
	data, err := json.Marshal(nonNilFields(fields))
	if err != nil {
		return eris.Wrap(err, "workspace: encode fields")
	}
	if _, err := tx.ExecContext(ctx, `UPDATE collections SET fields = ? WHERE name = ?`, string(data), name); err != nil {
		return eris.Wrapf(err, "workspace: update fields of %s", name)
	}
	return nil
}

func fieldIndex(fields []feature.Field, name string) (int, bool) {
	for i, f := range fields {
		if f.Name == name {
			return i, true
		}
	}
	return -1, false
}

// jsonKey returns a quoted JSON path literal for a validated field name.
func jsonKey(field string) string {
	return `'$."` + field + `"'`
}
