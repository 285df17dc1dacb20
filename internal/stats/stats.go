// Package stats reports the state of the reconciled store and of the process
// serving it.
package stats

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/alexivanou/geonames-sync/internal/config"
	"github.com/alexivanou/geonames-sync/internal/model"
	"github.com/alexivanou/geonames-sync/internal/repository"
	"github.com/jmoiron/sqlx"
)

type Stats struct {
	Timestamp time.Time     `json:"timestamp"`
	Database  DatabaseStats `json:"database"`
	LastRun   *RunStat      `json:"last_run,omitempty"`
	Process   ProcessStats  `json:"process"`
}

type DatabaseStats struct {
	Type               string      `json:"type"`
	TotalRecords       int64       `json:"total_records"`
	UnmarkedRows       int64       `json:"unmarked_rows"`
	SizeBytes          int64       `json:"size_bytes"`
	TableStats         []TableStat `json:"table_stats"`
	AvailableLanguages int         `json:"available_languages"`
}

// TableStat describes one managed table. Unmarked rows are left behind by an
// interrupted sync or daily update and disappear with the next full run.
type TableStat struct {
	Name         string     `json:"name"`
	RowCount     int64      `json:"row_count" db:"row_count"`
	UnmarkedRows int64      `json:"unmarked_rows" db:"unmarked_rows"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

// RunStat is the latest recorded reconciliation.
type RunStat struct {
	RunID      string          `json:"run_id"`
	Mode       string          `json:"mode"`
	Status     string          `json:"status"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Error      *string         `json:"error,omitempty"`
	Summary    json.RawMessage `json:"summary"`
}

type ProcessStats struct {
	Goroutines    int    `json:"goroutines"`
	AllocBytes    uint64 `json:"alloc_bytes"`
	NumGC         uint32 `json:"num_gc"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type Collector struct {
	db        *sqlx.DB
	config    config.DBConfig
	runs      *repository.RunLog
	startTime time.Time
}

func NewCollector(db *sqlx.DB, cfg config.DBConfig) *Collector {
	return &Collector{
		db:        db,
		config:    cfg,
		runs:      repository.NewRunLog(db),
		startTime: time.Now(),
	}
}

func (c *Collector) Collect(ctx context.Context) (*Stats, error) {
	dbStats, err := c.collectDatabaseStats(ctx)
	if err != nil {
		return nil, err
	}

	lastRun, err := c.collectLastRun(ctx)
	if err != nil {
		return nil, err
	}

	return &Stats{
		Timestamp: time.Now(),
		Database:  *dbStats,
		LastRun:   lastRun,
		Process:   c.collectProcessStats(),
	}, nil
}

func (c *Collector) collectDatabaseStats(ctx context.Context) (*DatabaseStats, error) {
	stats := &DatabaseStats{
		Type: string(c.config.Type),
	}

	if totalSize, err := c.getDatabaseSize(ctx); err == nil {
		stats.SizeBytes = totalSize
	}

	for _, table := range Tables() {
		stat, err := c.getTableStat(ctx, table)
		if err != nil {
			return nil, err
		}
		stats.TableStats = append(stats.TableStats, *stat)
		stats.TotalRecords += stat.RowCount
		stats.UnmarkedRows += stat.UnmarkedRows
	}

	languagesCount, err := c.getAvailableLanguagesCount(ctx)
	if err != nil {
		return nil, err
	}
	stats.AvailableLanguages = languagesCount

	return stats, nil
}

func (c *Collector) collectLastRun(ctx context.Context) (*RunStat, error) {
	run, err := c.runs.Latest(ctx)
	if err != nil || run == nil {
		return nil, err
	}
	return &RunStat{
		RunID:      run.RunID,
		Mode:       run.Mode,
		Status:     run.Status,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Error:      run.Error,
		Summary:    json.RawMessage(run.Summary),
	}, nil
}

func (c *Collector) getDatabaseSize(ctx context.Context) (int64, error) {
	query := "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()"
	if c.config.Type == config.DBTypePostgreSQL {
		query = "SELECT pg_database_size(current_database())"
	}

	var size int64
	if err := c.db.GetContext(ctx, &size, query); err != nil {
		return 0, err
	}
	return size, nil
}

// Tables lists the managed tables, entities first.
func Tables() []string {
	tables := make([]string, 0, 2*len(model.Kinds))
	for _, kind := range model.Kinds {
		tables = append(tables, kind.Table())
	}
	for _, kind := range model.Kinds {
		tables = append(tables, kind.TranslationTable())
	}
	return tables
}

func (c *Collector) getAvailableLanguagesCount(ctx context.Context) (int, error) {
	selects := make([]string, 0, len(model.Kinds))
	for _, kind := range model.Kinds {
		selects = append(selects, "SELECT locale FROM "+kind.TranslationTable()+" WHERE locale IS NOT NULL AND is_archived = FALSE")
	}
	querySQL := "SELECT COUNT(DISTINCT locale) FROM (" + strings.Join(selects, " UNION ") + ") AS all_locales"

	var count int
	if err := c.db.GetContext(ctx, &count, querySQL); err != nil {
		return 0, fmt.Errorf("failed to get available languages count: %w", err)
	}
	return count, nil
}

func (c *Collector) getTableStat(ctx context.Context, tableName string) (*TableStat, error) {
	stat := &TableStat{Name: tableName}

	err := c.db.GetContext(ctx, stat, "SELECT COUNT(*) AS row_count, COUNT(*) - COUNT(synced_at) AS unmarked_rows FROM "+tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", tableName, err)
	}

	// the newest marker is read as a column so SQLite keeps its DATETIME type
	var last time.Time
	err = c.db.GetContext(ctx, &last, "SELECT synced_at FROM "+tableName+" WHERE synced_at IS NOT NULL ORDER BY synced_at DESC LIMIT 1")
	switch {
	case err == nil:
		stat.LastSyncedAt = &last
	case !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}

	return stat, nil
}

func (c *Collector) collectProcessStats() ProcessStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return ProcessStats{
		Goroutines:    runtime.NumGoroutine(),
		AllocBytes:    m.Alloc,
		NumGC:         m.NumGC,
		UptimeSeconds: int64(time.Since(c.startTime).Seconds()),
	}
}
