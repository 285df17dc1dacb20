// Package cache holds the short-lived natural key to row id lookups used to
// resolve foreign keys while mapping records.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/alexivanou/geonames-sync/internal/model"
)

// Lookup names.
const (
	Continents = "continents"
	Countries  = "countries"
	Divisions  = "divisions"
)

// Owners returns the lookup name mapping geoname ids of kind to row ids.
func Owners(kind model.Kind) string {
	return "owners:" + string(kind)
}

// DivisionKey builds the "CC.ADM1" key of a division.
func DivisionKey(countryCode, admin1 string) string {
	return countryCode + "." + admin1
}

// Cache is a set of named lookups. It is built for one pass and then dropped.
type Cache struct {
	lookups map[string]map[string]int64
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{lookups: make(map[string]map[string]int64)}
}

// Set replaces the lookup stored under name.
func (c *Cache) Set(name string, values map[string]int64) {
	c.lookups[name] = values
}

// Lookup resolves key in the named lookup.
func (c *Cache) Lookup(name, key string) (int64, bool) {
	id, ok := c.lookups[name][key]
	return id, ok
}

// Len returns the number of keys held by the named lookup.
func (c *Cache) Len(name string) int {
	return len(c.lookups[name])
}

// Reader is the store side of the cache.
type Reader interface {
	ContinentIDs(ctx context.Context) (map[string]int64, error)
	CountryIDs(ctx context.Context, codes []string) (map[string]int64, error)
	DivisionIDs(ctx context.Context, keys []string) (map[string]int64, error)
	OwnerIDs(ctx context.Context, kind model.Kind, geonameIDs []int64) (map[int64]int64, error)
}

// Loader fills caches from the store.
type Loader struct {
	reader Reader
}

// NewLoader creates a Loader reading through r.
func NewLoader(r Reader) *Loader {
	return &Loader{reader: r}
}

// LoadAll reads every row of the named lookups with one bulk query each.
func (l *Loader) LoadAll(ctx context.Context, c *Cache, names ...string) error {
	for _, name := range names {
		if err := l.load(ctx, c, name, nil, true); err != nil {
			return err
		}
	}
	return nil
}

// LoadKeys reads only the rows of the named lookup whose keys are listed.
func (l *Loader) LoadKeys(ctx context.Context, c *Cache, name string, keys []string) error {
	if len(keys) == 0 {
		c.Set(name, map[string]int64{})
		return nil
	}
	return l.load(ctx, c, name, keys, false)
}

func (l *Loader) load(ctx context.Context, c *Cache, name string, keys []string, all bool) error {
	var (
		values map[string]int64
		err    error
	)

	switch {
	case name == Continents:
		values, err = l.reader.ContinentIDs(ctx)
	case name == Countries:
		values, err = l.reader.CountryIDs(ctx, keys)
	case name == Divisions:
		values, err = l.reader.DivisionIDs(ctx, keys)
	case strings.HasPrefix(name, "owners:"):
		values, err = l.owners(ctx, model.Kind(strings.TrimPrefix(name, "owners:")), keys, all)
	default:
		return fmt.Errorf("unknown lookup %q", name)
	}
	if err != nil {
		return fmt.Errorf("failed to load %s lookup: %w", name, err)
	}

	c.Set(name, values)
	return nil
}

func (l *Loader) owners(ctx context.Context, kind model.Kind, keys []string, all bool) (map[string]int64, error) {
	var ids []int64
	if !all {
		ids = make([]int64, 0, len(keys))
		for _, key := range keys {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				continue
			}
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			return map[string]int64{}, nil
		}
	}

	byGeonameID, err := l.reader.OwnerIDs(ctx, kind, ids)
	if err != nil {
		return nil, err
	}

	values := make(map[string]int64, len(byGeonameID))
	for geonameID, id := range byGeonameID {
		values[strconv.FormatInt(geonameID, 10)] = id
	}
	return values, nil
}
