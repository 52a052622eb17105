package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// RunStatus is the lifecycle state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one recorded pipeline execution.
type Run struct {
	ID         string          `json:"id"`
	Status     RunStatus       `json:"status"`
	Summary    json.RawMessage `json:"summary,omitempty"`
	Error      string          `json:"error,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// CreateRun records the start of a pipeline run.
func (w *Workspace) CreateRun(ctx context.Context) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := w.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, started_at) VALUES (?, ?, ?)`,
		run.ID, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "workspace: insert run")
	}
	return run, nil
}

// CompleteRun marks a run complete and stores its summary as JSON.
func (w *Workspace) CompleteRun(ctx context.Context, id string, summary any) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "workspace: marshal run summary")
	}
	res, err := w.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, summary = ?, finished_at = ? WHERE id = ?`,
		string(RunStatusComplete), string(data), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "workspace: complete run %s", id)
	}
	return checkRowsAffected(res, ErrRunNotFound, id)
}

// FailRun marks a run failed with the given error message.
func (w *Workspace) FailRun(ctx context.Context, id string, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	res, err := w.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(RunStatusFailed), msg, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "workspace: fail run %s", id)
	}
	return checkRowsAffected(res, ErrRunNotFound, id)
}

// ListRuns returns the most recent runs first.
func (w *Workspace) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := w.db.QueryContext(ctx,
		`SELECT id, status, summary, error, started_at, finished_at FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "workspace: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r        Run
			summary  sql.NullString
			errMsg   sql.NullString
			finished sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.Status, &summary, &errMsg, &r.StartedAt, &finished); err != nil {
			return nil, eris.Wrap(err, "workspace: scan run")
		}
		if summary.Valid {
			r.Summary = json.RawMessage(summary.String)
		}
		r.Error = errMsg.String
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "workspace: list runs iterate")
}
