package reconcile

import (
	"context"
	"strconv"

	"github.com/alexivanou/geonames-sync/internal/batch"
	"github.com/alexivanou/geonames-sync/internal/cache"
	"github.com/alexivanou/geonames-sync/internal/geonames"
	"github.com/alexivanou/geonames-sync/internal/mapper"
	"github.com/alexivanou/geonames-sync/internal/metrics"
	"github.com/alexivanou/geonames-sync/internal/model"
	"github.com/alexivanou/geonames-sync/internal/repository"
)

// partition is the translation table owned by one entity kind.
type partition struct {
	kind  model.Kind
	label string
	store repository.Store[model.Translation]
}

// partitions returns the translation tables of the enabled kinds.
func (r *run) partitions() []partition {
	parts := make([]partition, 0, len(model.Kinds))
	for _, kind := range model.Kinds {
		if !r.cfg.KindEnabled(string(kind)) {
			continue
		}
		parts = append(parts, partition{kind: kind, label: kind.TranslationTable(), store: r.repos.Translations[kind]})
	}
	return parts
}

func translationKey(row model.Translation) int64 {
	return row.AlternateNameID
}

// translationWriters opens one batch writer per partition.
type translationWriters map[model.Kind]*batch.Writer[model.Translation]

func (r *run) translationWriters(parts []partition, upsert bool) translationWriters {
	ws := make(translationWriters, len(parts))
	for _, p := range parts {
		op, outcome := p.store.Insert, metrics.OutcomeInserted
		if upsert {
			op, outcome = p.store.Upsert, metrics.OutcomeUpserted
		}
		ws[p.kind] = batch.NewWriter(r.cfg.BatchSize, translationKey, writeFunc(r, p.label, outcome, op))
	}
	return ws
}

func (ws translationWriters) close(ctx context.Context) error {
	for _, kind := range model.Kinds {
		if w, ok := ws[kind]; ok {
			if err := w.Close(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// translate filters rec by locale and hands it to the partition of its
// owner. Records whose owner is not stored are dropped.
func (r *run) translate(ctx context.Context, m *mapper.Mapper, parts []partition, ws translationWriters, rec geonames.Record) error {
	if !r.filter.Locale(rec.StringPtr(geonames.FieldISOLanguage)) {
		r.summary.Table(labelAlternateNames).Skipped++
		return nil
	}

	for _, p := range parts {
		row, ok, err := m.Translation(p.kind, rec)
		if err != nil {
			return r.rejected(labelAlternateNames, rec, err)
		}
		if !ok {
			continue
		}
		r.summary.Table(p.label).Processed++
		return ws[p.kind].Add(ctx, row)
	}

	r.summary.Table(labelAlternateNames).Dropped++
	return nil
}

// writeTranslations streams the full alternate names dump into the enabled
// partitions, resolving owners against every stored entity.
func (r *run) writeTranslations(ctx context.Context, path string, phase Phase, upsert bool) error {
	parts := r.partitions()
	return r.phase(ctx, labelAlternateNames, phase, func(ctx context.Context) error {
		c := cache.New()
		for _, p := range parts {
			if err := r.loader.LoadAll(ctx, c, cache.Owners(p.kind)); err != nil {
				return err
			}
		}
		m := mapper.New(c, nil, r.runAt)
		ws := r.translationWriters(parts, upsert)

		err := r.stream(ctx, labelAlternateNames, phase, path, geonames.AlternateNames, func(rec geonames.Record) error {
			return r.translate(ctx, m, parts, ws, rec)
		})
		r.recordTranslationTally(parts)
		if err != nil {
			return err
		}
		return ws.close(ctx)
	})
}

// dailyTranslations applies the alternate names modifications file in
// chunks, narrowing the owner lookups to the geoname ids of each chunk.
func (r *run) dailyTranslations(ctx context.Context, path string) error {
	parts := r.partitions()
	return r.phase(ctx, labelAlternateNames, PhaseModifications, func(ctx context.Context) error {
		chunk := make([]geonames.Record, 0, r.cfg.BatchSize)
		err := r.stream(ctx, labelAlternateNames, PhaseModifications, path, geonames.AlternateNames, func(rec geonames.Record) error {
			chunk = append(chunk, rec)
			if len(chunk) < r.cfg.BatchSize {
				return nil
			}
			err := r.applyTranslationChunk(ctx, parts, chunk)
			chunk = chunk[:0]
			return err
		})
		if err == nil {
			err = r.applyTranslationChunk(ctx, parts, chunk)
		}
		r.recordTranslationTally(parts)
		return err
	})
}

func (r *run) applyTranslationChunk(ctx context.Context, parts []partition, recs []geonames.Record) error {
	if len(recs) == 0 {
		return nil
	}

	keys := recordKeys(recs, geonames.FieldAlternateNameID)
	for _, p := range parts {
		n, err := p.store.ResetMarkersByKeys(ctx, keys)
		if err != nil {
			return err
		}
		r.reset(p.label, n)
	}

	owners := make([]string, 0, len(recs))
	for _, id := range recordKeys(recs, geonames.FieldGeonameID) {
		owners = append(owners, strconv.FormatInt(id, 10))
	}
	c := cache.New()
	for _, p := range parts {
		if err := r.loader.LoadKeys(ctx, c, cache.Owners(p.kind), owners); err != nil {
			return err
		}
	}

	m := mapper.New(c, nil, r.runAt)
	ws := r.translationWriters(parts, true)
	for _, rec := range recs {
		if err := r.translate(ctx, m, parts, ws, rec); err != nil {
			return err
		}
	}
	if err := ws.close(ctx); err != nil {
		return err
	}

	for _, p := range parts {
		n, err := p.store.DeleteUnmarkedByKeys(ctx, keys)
		if err != nil {
			return err
		}
		r.deleted(p.label, n)
	}
	return nil
}

// deleteTranslations removes the alternate names listed in the daily deletes
// file from every enabled partition.
func (r *run) deleteTranslations(ctx context.Context, path string) error {
	parts := r.partitions()
	return r.phase(ctx, labelAlternateNames, PhaseDeletes, func(ctx context.Context) error {
		keys := make([]int64, 0, r.cfg.BatchSize)
		flush := func() error {
			if len(keys) == 0 {
				return nil
			}
			for _, p := range parts {
				n, err := p.store.DeleteByKeys(ctx, keys)
				if err != nil {
					return err
				}
				r.deleted(p.label, n)
			}
			keys = keys[:0]
			return nil
		}

		err := r.stream(ctx, labelAlternateNames, PhaseDeletes, path, geonames.AlternateNamesDeletes, func(rec geonames.Record) error {
			id, err := mapper.Key(rec, geonames.FieldAlternateNameID)
			if err != nil {
				return r.rejected(labelAlternateNames, rec, err)
			}
			keys = append(keys, id)
			if len(keys) < r.cfg.BatchSize {
				return nil
			}
			return flush()
		})
		if err != nil {
			return err
		}
		return flush()
	})
}

// recordTranslationTally publishes the per-line translation counts gathered
// in the summary. A run streams translations once, so the totals are the
// counts of that pass.
func (r *run) recordTranslationTally(parts []partition) {
	file := r.summary.Table(labelAlternateNames)
	r.metrics.Records(labelAlternateNames, metrics.OutcomeSkipped, file.Skipped)
	r.metrics.Records(labelAlternateNames, metrics.OutcomeDropped, file.Dropped)
	for _, p := range parts {
		r.metrics.Records(p.label, metrics.OutcomeProcessed, r.summary.Table(p.label).Processed)
	}
}
