package repository

import (
	"fmt"

	"github.com/alexivanou/geonames-sync/internal/model"
	"github.com/jmoiron/sqlx"
)

// Scope restricts marker maintenance to the rows a run is responsible for.
// The zero Scope matches the whole table.
type Scope struct {
	Clause string
	Args   []interface{}
}

// IsZero reports whether the scope matches every row.
func (s Scope) IsZero() bool {
	return s.Clause == ""
}

func (s Scope) and(prefix string) (string, []interface{}) {
	if s.IsZero() {
		return prefix, nil
	}
	return prefix + " AND (" + s.Clause + ")", s.Args
}

// CountryScope returns the scope of entity rows of kind reachable under the
// country allow-list. Continents are never scoped.
func CountryScope(kind model.Kind, countries []string) Scope {
	if len(countries) == 0 {
		return Scope{}
	}
	switch kind {
	case model.KindCountry:
		return in("code IN (?)", countries)
	case model.KindDivision, model.KindCity:
		return in("country_code IN (?)", countries)
	}
	return Scope{}
}

// TranslationScope returns the scope of translation rows whose owner of kind
// is reachable under the country allow-list.
func TranslationScope(kind model.Kind, countries []string) Scope {
	owner := CountryScope(kind, countries)
	if owner.IsZero() {
		return Scope{}
	}
	return Scope{
		Clause: fmt.Sprintf("entity_id IN (SELECT id FROM %s WHERE %s)", kind.Table(), owner.Clause),
		Args:   owner.Args,
	}
}

func in(clause string, values []string) Scope {
	q, args, err := sqlx.In(clause, values)
	if err != nil {
		// sqlx.In only fails on an empty slice, which callers exclude
		panic(err)
	}
	return Scope{Clause: q, Args: args}
}
