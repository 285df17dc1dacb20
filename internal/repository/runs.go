package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexivanou/geonames-sync/internal/model"
	"github.com/jmoiron/sqlx"
)

// RunLog keeps the history of finished runs.
type RunLog struct {
	db *sqlx.DB
}

// NewRunLog creates a RunLog over db.
func NewRunLog(db *sqlx.DB) *RunLog {
	return &RunLog{db: db}
}

// Record stores a finished run.
func (l *RunLog) Record(ctx context.Context, run model.RunRecord) error {
	query := `INSERT INTO sync_runs (run_id, mode, status, started_at, finished_at, error, summary)
		VALUES (:run_id, :mode, :status, :started_at, :finished_at, :error, :summary)`
	if _, err := l.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.RunID, err)
	}
	return nil
}

// Latest returns the most recently recorded run, or nil before the first one.
func (l *RunLog) Latest(ctx context.Context) (*model.RunRecord, error) {
	var run model.RunRecord
	err := l.db.GetContext(ctx, &run, `SELECT id, run_id, mode, status, started_at, finished_at, error, summary
		FROM sync_runs ORDER BY id DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest run: %w", err)
	}
	return &run, nil
}
