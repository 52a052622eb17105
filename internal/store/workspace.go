// Package store persists feature collections in a directory-backed workspace holding an embedded
// SQLite catalog.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	// WorkspaceExt is appended to the workspace name to form its directory.
	WorkspaceExt = ".gdb"
	catalogFile  = "catalog.db"
)

var (
	// ErrCollectionNotFound is returned when a named collection does not exist.
	ErrCollectionNotFound = eris.New("collection not found")
	// ErrRunNotFound is returned when a run id is unknown.
	ErrRunNotFound = eris.New("run not found")
)

// Workspace is a named container of feature collections.
type Workspace struct {
	path string
	db   *sql.DB
}

// Open creates the workspace <dir>/<name>.gdb if absent and opens its catalog. Opening an existing
// workspace is a no-op that returns a handle to the same path.
func Open(ctx context.Context, dir, name string) (*Workspace, error) {
	if name == "" {
		return nil, eris.New("workspace: name is required")
	}
	abs, err := filepath.Abs(filepath.Join(dir, name+WorkspaceExt))
	if err != nil {
		return nil, eris.Wrapf(err, "workspace: resolve path %s", dir)
	}

	created := false
	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return nil, eris.Wrapf(err, "workspace: create %s", abs)
		}
		created = true
	} else if statErr != nil {
		return nil, eris.Wrapf(statErr, "workspace: stat %s", abs)
	}

	db, err := sql.Open("sqlite", filepath.Join(abs, catalogFile))
	if err != nil {
		return nil, eris.Wrap(err, "workspace: open catalog")
	}
	// One connection keeps per-connection pragmas in effect for every statement.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "workspace: exec %s", pragma)
		}
	}

	ws := &Workspace{path: abs, db: db}
	if err := ws.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}

	zap.L().Debug("workspace opened", zap.String("path", abs), zap.Bool("created", created))
	return ws, nil
}

// Path returns the absolute workspace directory.
func (w *Workspace) Path() string { return w.path }

// Close releases the catalog.
func (w *Workspace) Close() error {
	return w.db.Close()
}

const migration = `
CREATE TABLE IF NOT EXISTS collections (
	name       TEXT PRIMARY KEY,
	kind       TEXT NOT NULL DEFAULT 'source',
	geom_type  TEXT NOT NULL,
	srid       INTEGER NOT NULL DEFAULT 4326,
	fields     TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS features (
	collection TEXT NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
	fid        INTEGER NOT NULL,
	min_x      REAL NOT NULL,
	min_y      REAL NOT NULL,
	max_x      REAL NOT NULL,
	max_y      REAL NOT NULL,
	geom       BLOB NOT NULL,
	attrs      TEXT NOT NULL DEFAULT '{}',
	PRIMARY KEY (collection, fid)
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'running',
	summary     TEXT,
	error       TEXT,
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_collections_kind ON collections(kind);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Migrate creates the catalog tables. Safe to call repeatedly.
func (w *Workspace) Migrate(ctx context.Context) error {
	_, err := w.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "workspace: migrate")
}

func checkRowsAffected(res sql.Result, notFound error, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrap(notFound, id)
	}
	return nil
}
