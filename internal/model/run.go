package model

import "time"

// Run statuses
const (
	RunSucceeded = "success"
	RunFailed    = "failure"
)

// RunRecord is one finished reconciliation as kept in sync_runs
type RunRecord struct {
	ID         int64     `db:"id"`
	RunID      string    `db:"run_id"`
	Mode       string    `db:"mode"`
	Status     string    `db:"status"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
	Error      *string   `db:"error"`
	// Summary holds the per table counts as JSON.
	Summary string `db:"summary"`
}
