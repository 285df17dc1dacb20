package reconcile

import (
	"context"

	"github.com/alexivanou/geonames-sync/internal/batch"
	"github.com/alexivanou/geonames-sync/internal/cache"
	"github.com/alexivanou/geonames-sync/internal/geonames"
	"github.com/alexivanou/geonames-sync/internal/mapper"
	"github.com/alexivanou/geonames-sync/internal/metrics"
	"github.com/alexivanou/geonames-sync/internal/model"
	"github.com/alexivanou/geonames-sync/internal/repository"
)

// entityPass reconciles one entity table from the main dump.
type entityPass interface {
	Kind() model.Kind
	seed(ctx context.Context, path string) error
	sync(ctx context.Context, path string) error
	daily(ctx context.Context, path string) error
	deleteKeys(ctx context.Context, keys []int64) (int64, error)
}

// entity binds the filter, mapper and store of one kind.
type entity[T any] struct {
	r      *run
	kind   model.Kind
	store  repository.Store[T]
	accept func(geonames.Record) bool
	mapRow func(*mapper.Mapper, geonames.Record) (T, error)
	key    batch.KeyFunc[T]
	// lookups are the parent tables resolved while mapping.
	lookups []string
	// narrow returns the parent keys a daily chunk needs, per lookup.
	// Lookups it leaves out are loaded whole.
	narrow func(recs []geonames.Record) map[string][]string
}

// entityPasses returns the passes of the enabled kinds in dependency order.
func (r *run) entityPasses() []entityPass {
	all := []entityPass{
		&entity[model.Continent]{
			r:      r,
			kind:   model.KindContinent,
			store:  r.repos.Continents,
			accept: r.filter.Continent,
			mapRow: (*mapper.Mapper).Continent,
			key:    func(row model.Continent) int64 { return row.GeonameID },
		},
		&entity[model.Country]{
			r:     r,
			kind:  model.KindCountry,
			store: r.repos.Countries,
			accept: func(rec geonames.Record) bool {
				return r.filter.Country(rec, r.info)
			},
			mapRow:  (*mapper.Mapper).Country,
			key:     func(row model.Country) int64 { return row.GeonameID },
			lookups: []string{cache.Continents},
		},
		&entity[model.Division]{
			r:       r,
			kind:    model.KindDivision,
			store:   r.repos.Divisions,
			accept:  r.filter.Division,
			mapRow:  (*mapper.Mapper).Division,
			key:     func(row model.Division) int64 { return row.GeonameID },
			lookups: []string{cache.Countries},
			narrow: func(recs []geonames.Record) map[string][]string {
				return map[string][]string{cache.Countries: countryCodes(recs)}
			},
		},
		&entity[model.City]{
			r:       r,
			kind:    model.KindCity,
			store:   r.repos.Cities,
			accept:  r.filter.City,
			mapRow:  (*mapper.Mapper).City,
			key:     func(row model.City) int64 { return row.GeonameID },
			lookups: []string{cache.Countries, cache.Divisions},
			narrow: func(recs []geonames.Record) map[string][]string {
				return map[string][]string{
					cache.Countries: countryCodes(recs),
					cache.Divisions: divisionKeys(recs),
				}
			},
		},
	}

	passes := make([]entityPass, 0, len(all))
	for _, p := range all {
		if r.cfg.KindEnabled(string(p.Kind())) {
			passes = append(passes, p)
		}
	}
	return passes
}

func (e *entity[T]) Kind() model.Kind {
	return e.kind
}

func (e *entity[T]) label() string {
	return string(e.kind)
}

func (e *entity[T]) seed(ctx context.Context, path string) error {
	return e.write(ctx, path, PhaseInsert, metrics.OutcomeInserted, e.store.Insert)
}

func (e *entity[T]) sync(ctx context.Context, path string) error {
	scope := repository.CountryScope(e.kind, e.r.filter.Countries())
	if err := e.r.resetMarkers(ctx, e.label(), e.store, scope); err != nil {
		return err
	}
	if err := e.write(ctx, path, PhaseUpsert, metrics.OutcomeUpserted, e.store.Upsert); err != nil {
		return err
	}
	return e.r.sweep(ctx, e.label(), e.store, scope)
}

// write streams the whole dump through the filter and mapper into op.
func (e *entity[T]) write(ctx context.Context, path string, phase Phase, outcome string, op func(context.Context, []T) (int64, error)) error {
	return e.r.phase(ctx, e.label(), phase, func(ctx context.Context) error {
		c := cache.New()
		if err := e.r.loader.LoadAll(ctx, c, e.lookups...); err != nil {
			return err
		}
		m := mapper.New(c, e.r.info, e.r.runAt)
		w := batch.NewWriter(e.r.cfg.BatchSize, e.key, writeFunc(e.r, e.label(), outcome, op))

		var processed, skipped int64
		err := e.r.stream(ctx, e.label(), phase, path, geonames.AllCountries, func(rec geonames.Record) error {
			if !e.accept(rec) {
				skipped++
				return nil
			}
			row, err := e.mapRow(m, rec)
			if err != nil {
				return e.r.rejected(e.label(), rec, err)
			}
			processed++
			return w.Add(ctx, row)
		})
		e.r.tally(e.label(), processed, skipped)
		if err != nil {
			return err
		}
		return w.Close(ctx)
	})
}

// daily applies the modifications file in chunks. Every chunk resets the
// markers of the keys it names, upserts the records that still pass the
// filter and deletes the named rows left unmarked.
func (e *entity[T]) daily(ctx context.Context, path string) error {
	return e.r.phase(ctx, e.label(), PhaseModifications, func(ctx context.Context) error {
		chunk := make([]geonames.Record, 0, e.r.cfg.BatchSize)
		err := e.r.stream(ctx, e.label(), PhaseModifications, path, geonames.AllCountries, func(rec geonames.Record) error {
			chunk = append(chunk, rec)
			if len(chunk) < e.r.cfg.BatchSize {
				return nil
			}
			err := e.applyChunk(ctx, chunk)
			chunk = chunk[:0]
			return err
		})
		if err != nil {
			return err
		}
		return e.applyChunk(ctx, chunk)
	})
}

func (e *entity[T]) applyChunk(ctx context.Context, recs []geonames.Record) error {
	if len(recs) == 0 {
		return nil
	}

	keys := recordKeys(recs, geonames.FieldGeonameID)
	n, err := e.store.ResetMarkersByKeys(ctx, keys)
	if err != nil {
		return err
	}
	e.r.reset(e.label(), n)

	var accepted []geonames.Record
	for _, rec := range recs {
		if e.accept(rec) {
			accepted = append(accepted, rec)
		}
	}

	c := cache.New()
	var narrowed map[string][]string
	if e.narrow != nil {
		narrowed = e.narrow(accepted)
	}
	for _, name := range e.lookups {
		wanted, ok := narrowed[name]
		if !ok {
			err = e.r.loader.LoadAll(ctx, c, name)
		} else {
			err = e.r.loader.LoadKeys(ctx, c, name, wanted)
		}
		if err != nil {
			return err
		}
	}

	m := mapper.New(c, e.r.info, e.r.runAt)
	w := batch.NewWriter(e.r.cfg.BatchSize, e.key, writeFunc(e.r, e.label(), metrics.OutcomeUpserted, e.store.Upsert))
	var processed int64
	for _, rec := range accepted {
		row, err := e.mapRow(m, rec)
		if err != nil {
			if err := e.r.rejected(e.label(), rec, err); err != nil {
				return err
			}
			continue
		}
		processed++
		if err := w.Add(ctx, row); err != nil {
			return err
		}
	}
	e.r.tally(e.label(), processed, int64(len(recs)-len(accepted)))
	if err := w.Close(ctx); err != nil {
		return err
	}

	n, err = e.store.DeleteUnmarkedByKeys(ctx, keys)
	if err != nil {
		return err
	}
	e.r.deleted(e.label(), n)
	return nil
}

func (e *entity[T]) deleteKeys(ctx context.Context, keys []int64) (int64, error) {
	return e.store.DeleteByKeys(ctx, keys)
}

// deleteEntities removes the rows listed in the daily deletes file from every
// enabled table, children first.
func (r *run) deleteEntities(ctx context.Context, path string, passes []entityPass) error {
	return r.phase(ctx, labelDeletes, PhaseDeletes, func(ctx context.Context) error {
		keys := make([]int64, 0, r.cfg.BatchSize)
		flush := func() error {
			if len(keys) == 0 {
				return nil
			}
			for i := len(passes) - 1; i >= 0; i-- {
				n, err := passes[i].deleteKeys(ctx, keys)
				if err != nil {
					return err
				}
				r.deleted(string(passes[i].Kind()), n)
			}
			keys = keys[:0]
			return nil
		}

		err := r.stream(ctx, labelDeletes, PhaseDeletes, path, geonames.Deletes, func(rec geonames.Record) error {
			id, err := mapper.Key(rec, geonames.FieldGeonameID)
			if err != nil {
				return r.rejected(labelDeletes, rec, err)
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

// recordKeys collects the parseable natural keys of recs.
func recordKeys(recs []geonames.Record, field string) []int64 {
	keys := make([]int64, 0, len(recs))
	for _, rec := range recs {
		if id, ok := rec.Int64(field); ok {
			keys = append(keys, id)
		}
	}
	return keys
}

func countryCodes(recs []geonames.Record) []string {
	return distinct(recs, func(rec geonames.Record) string {
		return rec.Get(geonames.FieldCountryCode)
	})
}

func divisionKeys(recs []geonames.Record) []string {
	return distinct(recs, func(rec geonames.Record) string {
		admin1 := rec.Get(geonames.FieldAdmin1Code)
		if admin1 == "" {
			return ""
		}
		return cache.DivisionKey(rec.Get(geonames.FieldCountryCode), admin1)
	})
}

func distinct(recs []geonames.Record, fn func(geonames.Record) string) []string {
	seen := make(map[string]bool, len(recs))
	out := make([]string, 0, len(recs))
	for _, rec := range recs {
		v := fn(rec)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
