package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/alexivanou/geonames-sync/internal/batch"
	"github.com/alexivanou/geonames-sync/internal/filter"
	"github.com/alexivanou/geonames-sync/internal/geonames"
	"github.com/alexivanou/geonames-sync/internal/mapper"
	"github.com/alexivanou/geonames-sync/internal/metrics"
	"github.com/alexivanou/geonames-sync/internal/model"
	"github.com/alexivanou/geonames-sync/internal/repository"
	"go.uber.org/zap"
)

// Summary labels for work that is not tied to one table.
const (
	labelAll            = "all"
	labelDeletes        = "deletes"
	labelAlternateNames = "alternate_names"
)

// run is the state of one reconciliation. It is not safe for concurrent use.
type run struct {
	*Engine
	id      string
	mode    Mode
	runAt   time.Time
	logger  *zap.Logger
	summary *Summary
	info    filter.CountryInfo
}

func (r *run) seed(ctx context.Context, opts SeedOptions) error {
	if opts.Truncate {
		r.logger.Warn("Truncating all tables before seeding")
		if err := r.phase(ctx, labelAll, PhaseTruncate, r.repos.Truncate); err != nil {
			return err
		}
	}

	if passes := r.entityPasses(); len(passes) > 0 {
		path, err := r.prepare(ctx, r.source.AllCountries)
		if err != nil {
			return err
		}
		for _, p := range passes {
			if err := p.seed(ctx, path); err != nil {
				return err
			}
		}
	}

	if !r.cfg.Translations {
		return nil
	}
	path, err := r.locate(ctx, labelAlternateNames, r.source.AlternateNames)
	if err != nil {
		return err
	}
	return r.writeTranslations(ctx, path, PhaseInsert, false)
}

func (r *run) sync(ctx context.Context) error {
	if passes := r.entityPasses(); len(passes) > 0 {
		path, err := r.prepare(ctx, r.source.AllCountries)
		if err != nil {
			return err
		}
		for _, p := range passes {
			if err := p.sync(ctx, path); err != nil {
				return err
			}
		}
	}

	if !r.cfg.Translations {
		return nil
	}
	path, err := r.locate(ctx, labelAlternateNames, r.source.AlternateNames)
	if err != nil {
		return err
	}

	parts := r.partitions()
	for _, p := range parts {
		if err := r.resetMarkers(ctx, p.label, p.store, repository.TranslationScope(p.kind, r.filter.Countries())); err != nil {
			return err
		}
	}
	if err := r.writeTranslations(ctx, path, PhaseUpsert, true); err != nil {
		return err
	}
	for _, p := range parts {
		if err := r.sweep(ctx, p.label, p.store, repository.TranslationScope(p.kind, r.filter.Countries())); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) daily(ctx context.Context) error {
	if passes := r.entityPasses(); len(passes) > 0 {
		path, err := r.prepare(ctx, r.source.DailyModifications)
		if err != nil {
			return err
		}
		for _, p := range passes {
			if err := p.daily(ctx, path); err != nil {
				return err
			}
		}

		deletes, err := r.locate(ctx, labelDeletes, r.source.DailyDeletes)
		if err != nil {
			return err
		}
		if err := r.deleteEntities(ctx, deletes, passes); err != nil {
			return err
		}
	}

	if !r.cfg.Translations {
		return nil
	}
	path, err := r.locate(ctx, labelAlternateNames, r.source.AlternateNamesModifications)
	if err != nil {
		return err
	}
	if err := r.dailyTranslations(ctx, path); err != nil {
		return err
	}

	deletes, err := r.locate(ctx, labelAlternateNames, r.source.AlternateNamesDeletes)
	if err != nil {
		return err
	}
	return r.deleteTranslations(ctx, deletes)
}

// prepare resolves the main dump and, when countries take part, loads the
// country-info table they are joined with.
func (r *run) prepare(ctx context.Context, locate func(context.Context) (string, error)) (string, error) {
	path, err := r.locate(ctx, labelAll, locate)
	if err != nil {
		return "", err
	}
	if !r.cfg.KindEnabled(string(model.KindCountry)) {
		return path, nil
	}

	infoPath, err := r.locate(ctx, string(model.KindCountry), r.source.CountryInfo)
	if err != nil {
		return "", err
	}
	info, err := filter.LoadCountryInfo(infoPath)
	if err != nil {
		return "", r.fail(string(model.KindCountry), PhasePrepare, err)
	}
	r.info = info
	r.logger.Info("Country info loaded", zap.Int("countries", len(info)))
	return path, nil
}

func (r *run) locate(ctx context.Context, label string, locate func(context.Context) (string, error)) (string, error) {
	path, err := locate(ctx)
	if err != nil {
		return "", r.fail(label, PhasePrepare, err)
	}
	r.logger.Info("Source file ready", zap.String("table", label), zap.String("path", path))
	return path, nil
}

// phase runs fn as one named step, recording its duration and wrapping its
// error with the run position.
func (r *run) phase(ctx context.Context, label string, phase Phase, fn func(context.Context) error) error {
	started := time.Now()
	err := fn(ctx)

	status := "success"
	if err != nil {
		status = "failure"
	}
	r.metrics.ObservePhase(label, string(phase), status, time.Since(started))
	r.logger.Debug("Phase finished", zap.String("table", label), zap.String("phase", string(phase)), zap.Duration("elapsed", time.Since(started)))
	return r.fail(label, phase, err)
}

// stream decodes every data line of path and hands it to fn, stopping at the
// first error or when ctx is done.
func (r *run) stream(ctx context.Context, label string, phase Phase, path string, schema geonames.Schema, fn func(geonames.Record) error) error {
	sink := r.progress(label + ":" + string(phase))
	total := 0
	if r.cfg.CountLines {
		n, err := geonames.CountLines(path)
		if err != nil {
			r.logger.Warn("Could not count source lines", zap.String("path", path), zap.Error(err))
		}
		total = n
	}
	sink.Ready(total)
	defer sink.Finish()

	return geonames.ForEachLine(path, func(index int, line string) error {
		if err := ctx.Err(); err != nil {
			return &lineError{line: index + 1, err: err}
		}
		sink.Advance(1)

		rec, ok := schema.Decode(line)
		if !ok {
			return nil
		}
		if err := fn(rec); err != nil {
			return &lineError{line: index + 1, err: err}
		}
		return nil
	})
}

// rejected decides what a mapping error means for the run. Records without a
// key are skipped. Unresolved references are fatal unless strict references
// are turned off.
func (r *run) rejected(label string, rec geonames.Record, err error) error {
	counts := r.summary.Table(label)
	switch {
	case errors.Is(err, mapper.ErrMissingKey):
		counts.Invalid++
		r.metrics.Records(label, metrics.OutcomeSkipped, 1)
		r.logger.Debug("Record without natural key skipped", zap.String("table", label), zap.Error(err))
		return nil
	case errors.Is(err, mapper.ErrUnresolvedReference) && !r.cfg.StrictReferences:
		counts.Unresolved++
		r.metrics.Records(label, metrics.OutcomeUnresolved, 1)
		r.logger.Warn("Record with unresolved reference skipped",
			zap.String("table", label),
			zap.String("geonameid", rec.Get(geonames.FieldGeonameID)),
			zap.Error(err),
		)
		return nil
	}
	return err
}

// tally adds the processed and skipped counts of a pass.
func (r *run) tally(label string, processed, skipped int64) {
	counts := r.summary.Table(label)
	counts.Processed += processed
	counts.Skipped += skipped
	r.metrics.Records(label, metrics.OutcomeProcessed, processed)
	r.metrics.Records(label, metrics.OutcomeSkipped, skipped)
}

func (r *run) deleted(label string, n int64) {
	r.summary.Table(label).Deleted += n
	r.metrics.Records(label, metrics.OutcomeDeleted, n)
}

func (r *run) reset(label string, n int64) {
	r.summary.Table(label).Reset += n
	r.metrics.Records(label, metrics.OutcomeReset, n)
}

// writeFunc wraps a bulk store operation so every flushed batch is counted.
func writeFunc[T any](r *run, label, outcome string, write func(context.Context, []T) (int64, error)) batch.FlushFunc[T] {
	return func(ctx context.Context, rows []T) (int64, error) {
		n, err := write(ctx, rows)
		if err != nil {
			return 0, err
		}
		r.summary.Table(label).Written += n
		r.metrics.Batch(label)
		r.metrics.Records(label, outcome, n)
		return n, nil
	}
}

// markerStore is the part of a store used by the full-dump marker loops.
type markerStore interface {
	Exists(ctx context.Context, marked bool, scope repository.Scope) (bool, error)
	ResetMarkers(ctx context.Context, scope repository.Scope, limit int) (int64, error)
	DeleteUnmarked(ctx context.Context, scope repository.Scope, limit int) (int64, error)
}

// resetMarkers clears the sync marker of every row in scope, one chunk at a time.
func (r *run) resetMarkers(ctx context.Context, label string, store markerStore, scope repository.Scope) error {
	return r.phase(ctx, label, PhaseReset, func(ctx context.Context) error {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			marked, err := store.Exists(ctx, true, scope)
			if err != nil {
				return err
			}
			if !marked {
				return nil
			}
			n, err := store.ResetMarkers(ctx, scope, r.cfg.ChunkSize)
			if err != nil {
				return err
			}
			r.reset(label, n)
			if n == 0 {
				return nil
			}
		}
	})
}

// sweep deletes every row in scope the upsert pass did not confirm.
func (r *run) sweep(ctx context.Context, label string, store markerStore, scope repository.Scope) error {
	return r.phase(ctx, label, PhaseSweep, func(ctx context.Context) error {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			stale, err := store.Exists(ctx, false, scope)
			if err != nil {
				return err
			}
			if !stale {
				return nil
			}
			n, err := store.DeleteUnmarked(ctx, scope, r.cfg.ChunkSize)
			if err != nil {
				return err
			}
			r.deleted(label, n)
			if n == 0 {
				return nil
			}
		}
	})
}
