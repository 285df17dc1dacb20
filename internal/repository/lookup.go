package repository

import (
	"context"
	"fmt"

	"github.com/alexivanou/geonames-sync/internal/model"
	"github.com/jmoiron/sqlx"
)

// Lookup reads the natural key to row id pairs the resource cache is built from.
// A nil key list reads the whole table.
type Lookup struct {
	db      *sqlx.DB
	dialect dialect
}

type codeID struct {
	Key string `db:"k"`
	ID  int64  `db:"id"`
}

type geonameID struct {
	GeonameID int64 `db:"geoname_id"`
	ID        int64 `db:"id"`
}

// ContinentIDs maps continent codes to ids.
func (l *Lookup) ContinentIDs(ctx context.Context) (map[string]int64, error) {
	return l.codes(ctx, "SELECT code AS k, id FROM continents", "", nil)
}

// CountryIDs maps ISO codes to country ids.
func (l *Lookup) CountryIDs(ctx context.Context, codes []string) (map[string]int64, error) {
	return l.codes(ctx, "SELECT code AS k, id FROM countries", "code", codes)
}

// DivisionIDs maps "CC.ADM1" keys to division ids.
func (l *Lookup) DivisionIDs(ctx context.Context, keys []string) (map[string]int64, error) {
	const key = "country_code || '.' || code"
	return l.codes(ctx, "SELECT "+key+" AS k, id FROM divisions", key, keys)
}

// OwnerIDs maps geoname ids of kind to row ids.
func (l *Lookup) OwnerIDs(ctx context.Context, kind model.Kind, geonameIDs []int64) (map[int64]int64, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	base := fmt.Sprintf("SELECT geoname_id, id FROM %s", kind.Table())
	out := make(map[int64]int64)

	collect := func(q string, args ...interface{}) error {
		var rows []geonameID
		if err := l.db.SelectContext(ctx, &rows, l.db.Rebind(q), args...); err != nil {
			return err
		}
		for _, r := range rows {
			out[r.GeonameID] = r.ID
		}
		return nil
	}

	if geonameIDs == nil {
		return out, collect(base)
	}

	err := chunkKeys(geonameIDs, l.dialect.maxParams(), func(chunk []int64) error {
		q, args, err := sqlx.In(base+" WHERE geoname_id IN (?)", chunk)
		if err != nil {
			return err
		}
		return collect(q, args...)
	})
	return out, err
}

func (l *Lookup) codes(ctx context.Context, base, column string, keys []string) (map[string]int64, error) {
	out := make(map[string]int64)

	collect := func(q string, args ...interface{}) error {
		var rows []codeID
		if err := l.db.SelectContext(ctx, &rows, l.db.Rebind(q), args...); err != nil {
			return err
		}
		for _, r := range rows {
			out[r.Key] = r.ID
		}
		return nil
	}

	if keys == nil {
		return out, collect(base)
	}

	err := chunkKeys(keys, l.dialect.maxParams(), func(chunk []string) error {
		q, args, err := sqlx.In(base+" WHERE "+column+" IN (?)", chunk)
		if err != nil {
			return err
		}
		return collect(q, args...)
	})
	return out, err
}
