// Package reconcile keeps the local geographic store in step with the GeoNames
// dumps. It runs in three modes: Seed fills an empty store, Sync rewrites the
// store from a full dump with mark-and-sweep, and DailyUpdate applies the
// daily modification and deletion files.
package reconcile

import (
	"context"
	"encoding/json"
	"time"

	"github.com/alexivanou/geonames-sync/internal/cache"
	"github.com/alexivanou/geonames-sync/internal/config"
	"github.com/alexivanou/geonames-sync/internal/filter"
	"github.com/alexivanou/geonames-sync/internal/metrics"
	"github.com/alexivanou/geonames-sync/internal/model"
	"github.com/alexivanou/geonames-sync/internal/progress"
	"github.com/alexivanou/geonames-sync/internal/repository"
	"github.com/alexivanou/geonames-sync/internal/source"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Mode is the kind of run.
type Mode int

const (
	ModeSeed Mode = iota
	ModeSync
	ModeDailyUpdate
)

func (m Mode) String() string {
	switch m {
	case ModeSeed:
		return "seed"
	case ModeSync:
		return "sync"
	case ModeDailyUpdate:
		return "daily-update"
	}
	return "unknown"
}

// Engine runs reconciliations against one store.
type Engine struct {
	repos    *repository.Container
	source   source.Provider
	cfg      config.SyncConfig
	filter   *filter.Filter
	loader   *cache.Loader
	logger   *zap.Logger
	metrics  *metrics.Recorder
	progress progress.Factory
	now      func() time.Time
	newID    func() string
}

// Option customizes an Engine.
type Option func(*Engine)

// WithMetrics records run outcomes on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = r }
}

// WithProgress reports file passes to the sinks built by f.
func WithProgress(f progress.Factory) Option {
	return func(e *Engine) { e.progress = f }
}

// WithClock replaces the clock that stamps the start of a run.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine.
func New(repos *repository.Container, src source.Provider, cfg config.SyncConfig, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		repos:    repos,
		source:   src,
		cfg:      cfg,
		filter:   filter.New(cfg),
		loader:   cache.NewLoader(repos.Lookup),
		logger:   logger,
		progress: progress.NopFactory,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// SeedOptions tunes a seed run.
type SeedOptions struct {
	// Truncate empties every table before loading.
	Truncate bool
}

// Seed bulk-loads the dumps with insert-ignore. Rows already present keep
// their values, which makes a repeated seed a no-op.
func (e *Engine) Seed(ctx context.Context, opts SeedOptions) (*Summary, error) {
	r := e.start(ModeSeed)
	err := r.seed(ctx, opts)
	return r.finish(ctx, err)
}

// Sync upserts every record of the full dumps and deletes rows that no longer
// pass the filter. Each kind goes through reset, upsert and sweep before the
// next kind starts.
func (e *Engine) Sync(ctx context.Context) (*Summary, error) {
	r := e.start(ModeSync)
	err := r.sync(ctx)
	return r.finish(ctx, err)
}

// DailyUpdate applies yesterday's modification and deletion files. Only rows
// named by those files are touched.
func (e *Engine) DailyUpdate(ctx context.Context) (*Summary, error) {
	r := e.start(ModeDailyUpdate)
	err := r.daily(ctx)
	return r.finish(ctx, err)
}

func (e *Engine) start(mode Mode) *run {
	id := e.newID()
	runAt := e.now().UTC()
	logger := e.logger.With(zap.String("run_id", id), zap.String("mode", mode.String()))
	logger.Info("Run started", zap.Time("run_at", runAt), zap.Strings("kinds", e.cfg.Kinds), zap.Strings("countries", e.filter.Countries()))

	return &run{
		Engine:  e,
		id:      id,
		mode:    mode,
		runAt:   runAt,
		logger:  logger,
		summary: newSummary(id, mode, runAt),
	}
}

func (r *run) finish(ctx context.Context, err error) (*Summary, error) {
	r.summary.FinishedAt = r.now().UTC()
	r.summary.log(r.logger)

	status := model.RunSucceeded
	if err != nil {
		status = model.RunFailed
		r.logger.Error("Run failed", zap.Error(err))
	} else {
		r.logger.Info("Run finished")
	}
	r.metrics.Run(r.mode.String(), status)

	// a cancelled run is still recorded
	if recErr := r.record(context.WithoutCancel(ctx), status, err); recErr != nil {
		r.logger.Warn("Failed to record run", zap.Error(recErr))
	}
	return r.summary, err
}

// record appends the run and its summary to the run log.
func (r *run) record(ctx context.Context, status string, runErr error) error {
	if r.repos.Runs == nil {
		return nil
	}
	summary, err := json.Marshal(r.summary)
	if err != nil {
		return err
	}

	rec := model.RunRecord{
		RunID:      r.id,
		Mode:       r.mode.String(),
		Status:     status,
		StartedAt:  r.summary.StartedAt,
		FinishedAt: r.summary.FinishedAt,
		Summary:    string(summary),
	}
	if runErr != nil {
		msg := runErr.Error()
		rec.Error = &msg
	}
	return r.repos.Runs.Record(ctx, rec)
}
